package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/go-telegram/bot"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/meliguard/acosd/internal/model"
)

// TelegramConfig configures the Telegram alert channel
type TelegramConfig struct {
	BotToken      string
	ChatIDs       []int64
	RatePerSecond int
	SendTimeout   time.Duration
}

// TelegramChannel delivers alerts to Telegram chats. Sends are rate limited
// globally so a burst of alerts cannot trip the Bot API limits.
type TelegramChannel struct {
	logger   *zap.Logger
	config   TelegramConfig
	limiter  *rate.Limiter
	strategy RetryStrategy
}

// NewTelegramChannel creates a telegram notification channel
func NewTelegramChannel(logger *zap.Logger, config TelegramConfig) *TelegramChannel {
	if config.RatePerSecond <= 0 {
		config.RatePerSecond = 1
	}
	if config.SendTimeout <= 0 {
		config.SendTimeout = 10 * time.Second
	}
	return &TelegramChannel{
		logger:  logger.Named("telegram"),
		config:  config,
		limiter: rate.NewLimiter(rate.Limit(float64(config.RatePerSecond)), config.RatePerSecond),
		strategy: &ExponentialBackoff{
			InitialDelay: time.Second,
			MaxDelay:     10 * time.Second,
			Multiplier:   2.0,
		},
	}
}

// Send delivers the alert to every configured chat
func (c *TelegramChannel) Send(alert *model.Alert) error {
	if c.config.BotToken == "" || len(c.config.ChatIDs) == 0 {
		return fmt.Errorf("telegram channel not configured")
	}

	ctx, cancel := context.WithTimeout(context.Background(), c.config.SendTimeout)
	defer cancel()

	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("telegram rate limit wait: %w", err)
	}

	b, err := bot.New(c.config.BotToken)
	if err != nil {
		return fmt.Errorf("failed to initialize telegram bot: %w", err)
	}

	text := fmt.Sprintf("*%s alert*\n%s\n\nCampaign: %s\nRule: %s",
		alert.Severity, alert.Message, alert.CampaignID, alert.RuleID)

	for _, chatID := range c.config.ChatIDs {
		id := chatID
		err := retry(3, c.strategy, func() error {
			_, err := b.SendMessage(ctx, &bot.SendMessageParams{
				ChatID:    id,
				Text:      text,
				ParseMode: "Markdown",
			})
			return err
		})
		if err != nil {
			return fmt.Errorf("failed to send telegram message to chat %d: %w", id, err)
		}
	}

	c.logger.Info("Alert sent to telegram",
		zap.String("alert_id", alert.ID),
		zap.Int("chats", len(c.config.ChatIDs)))
	return nil
}
