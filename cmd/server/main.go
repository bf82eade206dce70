package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/meliguard/acosd/internal/action"
	"github.com/meliguard/acosd/internal/api"
	"github.com/meliguard/acosd/internal/engine"
	"github.com/meliguard/acosd/internal/meli"
	"github.com/meliguard/acosd/internal/model"
	"github.com/meliguard/acosd/internal/monitor"
	"github.com/meliguard/acosd/internal/notify"
	"github.com/meliguard/acosd/internal/scheduler"
	"github.com/meliguard/acosd/internal/sim"
	"github.com/meliguard/acosd/internal/storage"
)

func main() {
	// Initialize logger
	logger, err := zap.NewDevelopment()
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	// Load configuration
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./config")
	viper.SetDefault("storage.path", "acosd.db")
	viper.SetDefault("http.addr", ":8080")
	viper.SetDefault("engine.schedule", "0 */15 * * * *")
	viper.SetDefault("alerts.check_interval", "1m")
	viper.SetDefault("metrics.collect_interval", "30s")
	viper.SetDefault("meli.token_sweep_interval", "1m")
	if err := viper.ReadInConfig(); err != nil {
		logger.Fatal("Failed to read config file", zap.Error(err))
	}

	// Connect to NATS with more options
	opts := []nats.Option{
		nats.Name(viper.GetString("app.name")),
		nats.MaxReconnects(viper.GetInt("nats.max_reconnects")),
		nats.ReconnectWait(viper.GetDuration("nats.reconnect_wait")),
		nats.Timeout(viper.GetDuration("nats.connect_timeout")),
		nats.PingInterval(20 * time.Second),
		nats.MaxPingsOutstanding(5),
		nats.ReconnectBufSize(5 * 1024 * 1024), // 5MB
		nats.DrainTimeout(30 * time.Second),
		nats.ErrorHandler(func(nc *nats.Conn, sub *nats.Subscription, err error) {
			logger.Error("NATS connection error",
				zap.String("subject", sub.Subject),
				zap.Error(err))
		}),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			logger.Warn("NATS disconnected", zap.Error(err))
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("NATS reconnected",
				zap.String("url", nc.ConnectedUrl()))
		}),
	}

	// Connect with retry
	var nc *nats.Conn
	maxRetries := 5
	for i := 0; i < maxRetries; i++ {
		nc, err = nats.Connect(viper.GetString("nats.urls.0"), opts...)
		if err == nil {
			break
		}
		logger.Warn("Failed to connect to NATS, retrying...",
			zap.Int("attempt", i+1),
			zap.Error(err))
		time.Sleep(time.Second * time.Duration(i+1))
	}
	if err != nil {
		logger.Fatal("Failed to connect to NATS after retries", zap.Error(err))
	}
	defer nc.Close()

	logger.Info("Connected to NATS successfully",
		zap.String("url", nc.ConnectedUrl()))

	// Create JetStream context
	js, err := nc.JetStream()
	if err != nil {
		logger.Fatal("Failed to create JetStream context", zap.Error(err))
	}

	// Open persistence
	store, err := storage.Open(logger, viper.GetString("storage.path"))
	if err != nil {
		logger.Fatal("Failed to open storage", zap.Error(err))
	}
	defer store.Close()

	// Setup signal handling for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		logger.Info("Received shutdown signal", zap.String("signal", sig.String()))
		cancel()
	}()

	// Marketplace client: only wired when an access token is configured.
	// Without it campaign mutations stay local.
	tokens := meli.NewTokenStore(logger, viper.GetDuration("meli.token_sweep_interval"))
	defer tokens.Close()

	var remote action.RemoteSync
	if accessToken := viper.GetString("meli.access_token"); accessToken != "" {
		userID := viper.GetString("meli.user_id")
		tokens.Put(userID, &meli.Token{
			AccessToken: accessToken,
			ExpiresAt:   time.Now().Add(viper.GetDuration("meli.token_ttl")),
		})
		remote = meli.NewClient(logger, meli.Config{
			BaseURL: viper.GetString("meli.base_url"),
			UserID:  userID,
			Timeout: viper.GetDuration("meli.timeout"),
		}, tokens)
		logger.Info("Marketplace sync enabled", zap.String("user_id", userID))
	}

	// Alert manager with notification channels
	alertManager := monitor.NewAlertManager(logger, store, js, viper.GetDuration("alerts.check_interval"))
	if apiKey := viper.GetString("notify.sendgrid.api_key"); apiKey != "" {
		alertManager.RegisterChannel("email", notify.NewEmailChannel(logger, notify.EmailConfig{
			APIKey:    apiKey,
			FromName:  viper.GetString("notify.sendgrid.from_name"),
			FromEmail: viper.GetString("notify.sendgrid.from_email"),
			To:        viper.GetStringSlice("notify.sendgrid.to"),
		}))
	}
	if botToken := viper.GetString("notify.telegram.bot_token"); botToken != "" {
		var chatIDs []int64
		for _, id := range viper.GetIntSlice("notify.telegram.chat_ids") {
			chatIDs = append(chatIDs, int64(id))
		}
		alertManager.RegisterChannel("telegram", notify.NewTelegramChannel(logger, notify.TelegramConfig{
			BotToken:      botToken,
			ChatIDs:       chatIDs,
			RatePerSecond: viper.GetInt("notify.telegram.rate_per_second"),
		}))
	}
	if err := alertManager.Start(ctx); err != nil {
		logger.Fatal("Failed to start alert manager", zap.Error(err))
	}
	defer alertManager.Stop()

	// Action dispatcher with one handler per action type
	dispatcher := action.NewDispatcher(logger, store)
	dispatcher.RegisterHandler(model.ActionPauseCampaign, action.NewPauseHandler(logger, store, remote))
	dispatcher.RegisterHandler(model.ActionAdjustBid, action.NewBidHandler(logger, store, remote))
	dispatcher.RegisterHandler(model.ActionAdjustBudget, action.NewBudgetHandler(logger, store, remote))
	dispatcher.RegisterHandler(model.ActionOptimizeKeywords, action.NewKeywordsHandler(logger))
	dispatcher.RegisterHandler(model.ActionSendAlert, action.NewAlertHandler(logger, alertManager))

	// Evaluation engine
	aggregator := engine.NewAggregator(logger, store)
	evalEngine := engine.New(logger, store, aggregator, dispatcher, js)
	if err := evalEngine.Start(ctx); err != nil {
		logger.Fatal("Failed to start evaluation engine", zap.Error(err))
	}
	defer evalEngine.Stop()

	// Campaign scheduler drives cron schedules and periodic evaluation runs
	campaignScheduler := scheduler.NewCampaignScheduler(logger, store, js, evalEngine)
	if err := campaignScheduler.Start(ctx, viper.GetString("engine.schedule")); err != nil {
		logger.Fatal("Failed to start scheduler", zap.Error(err))
	}
	defer campaignScheduler.Stop()

	// Host metrics collector backs /health
	collector := monitor.NewMetricsCollector(js, viper.GetDuration("metrics.collect_interval"), logger)
	if err := collector.Start(ctx); err != nil {
		logger.Fatal("Failed to start metrics collector", zap.Error(err))
	}
	defer collector.Stop()

	// Simulators
	seed := viper.GetInt64("sim.seed")
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	intel := sim.NewIntel(logger, seed)
	optimizer := sim.NewOptimizer(logger, seed)

	// HTTP API
	handler := api.NewHandler(logger, store, aggregator, evalEngine, campaignScheduler, collector, intel, optimizer)
	router := api.NewRouter(logger, handler)
	server := &http.Server{
		Addr:    viper.GetString("http.addr"),
		Handler: router,
	}

	go func() {
		logger.Info("HTTP server listening", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("HTTP server failed", zap.Error(err))
			cancel()
		}
	}()

	// Wait for shutdown signal
	<-ctx.Done()

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("HTTP server shutdown failed", zap.Error(err))
	}

	logger.Info("Server shutting down gracefully")
}
