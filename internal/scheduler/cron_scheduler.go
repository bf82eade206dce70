package scheduler

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/meliguard/acosd/internal/model"
	"github.com/meliguard/acosd/internal/storage"
)

const (
	scheduleStreamName  = "SCHEDULES"
	scheduleFireSubject = "schedule.fired"
)

// EvaluationTrigger kicks off one rule evaluation run
type EvaluationTrigger interface {
	Trigger(ctx context.Context, requestedBy string) error
}

// CampaignScheduler fires campaign actions (pause, activate, reset_budget)
// on cron expressions and drives the periodic rule evaluation. Schedules are
// persisted; on restart every stored schedule is re-registered.
type CampaignScheduler struct {
	logger   *zap.Logger
	store    *storage.Store
	js       nats.JetStreamContext
	trigger  EvaluationTrigger
	cron     *cron.Cron
	parser   cron.Parser
	entryIDs sync.Map
}

// cronLogger adapts zap.Logger to cron.Logger
type cronLogger struct {
	logger *zap.Logger
}

func (l *cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Info(msg)
}

func (l *cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error(msg, zap.Error(err))
}

// NewCampaignScheduler creates a new scheduler
func NewCampaignScheduler(logger *zap.Logger, store *storage.Store, js nats.JetStreamContext, trigger EvaluationTrigger) *CampaignScheduler {
	cronLogger := &cronLogger{logger: logger.Named("cron")}
	cronOptions := []cron.Option{
		cron.WithSeconds(),
		cron.WithChain(cron.Recover(cronLogger)),
	}

	return &CampaignScheduler{
		logger:  logger.Named("scheduler"),
		store:   store,
		js:      js,
		trigger: trigger,
		cron:    cron.New(cronOptions...),
		parser:  cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow),
	}
}

// Start ensures the schedule stream exists, re-registers persisted schedules
// and starts the cron loop. evalExpression, when non-empty, is the cadence of
// the automatic rule evaluation runs.
func (s *CampaignScheduler) Start(ctx context.Context, evalExpression string) error {
	_, err := s.js.StreamInfo(scheduleStreamName)
	if err != nil {
		if err != nats.ErrStreamNotFound {
			return fmt.Errorf("failed to get stream info: %w", err)
		}
		_, err = s.js.AddStream(&nats.StreamConfig{
			Name:     scheduleStreamName,
			Subjects: []string{"schedule.*"},
			Storage:  nats.FileStorage,
			MaxAge:   24 * time.Hour,
		})
		if err != nil {
			return fmt.Errorf("failed to create stream: %w", err)
		}
		s.logger.Info("Created schedule stream", zap.String("name", scheduleStreamName))
	}

	schedules, err := s.store.ListSchedules(ctx)
	if err != nil {
		return fmt.Errorf("failed to load schedules: %w", err)
	}
	for _, sched := range schedules {
		if err := s.register(ctx, sched); err != nil {
			s.logger.Error("Failed to re-register schedule",
				zap.String("id", sched.ID),
				zap.Error(err))
		}
	}

	if evalExpression != "" && s.trigger != nil {
		_, err := s.cron.AddFunc(evalExpression, func() {
			if err := s.trigger.Trigger(ctx, "scheduler"); err != nil {
				s.logger.Error("Failed to trigger evaluation run", zap.Error(err))
			}
		})
		if err != nil {
			return fmt.Errorf("%w: %s", ErrInvalidExpression, evalExpression)
		}
		s.logger.Info("Scheduled evaluation runs", zap.String("expression", evalExpression))
	}

	s.cron.Start()
	s.logger.Info("Campaign scheduler started", zap.Int("schedules", len(schedules)))
	return nil
}

// Stop stops the scheduler and waits for running jobs to finish
func (s *CampaignScheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}

// AddSchedule validates, persists and registers a new campaign schedule
func (s *CampaignScheduler) AddSchedule(ctx context.Context, sched *model.CampaignSchedule) error {
	switch sched.Action {
	case model.ScheduleActionPause, model.ScheduleActionActivate, model.ScheduleActionResetBudget:
	default:
		return fmt.Errorf("%w: %s", ErrUnknownAction, sched.Action)
	}

	spec, err := s.parser.Parse(sched.Expression)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidExpression, sched.Expression)
	}

	if _, err := s.store.GetCampaign(ctx, sched.CampaignID); err != nil {
		return fmt.Errorf("failed to resolve campaign: %w", err)
	}

	if sched.ID == "" {
		sched.ID = uuid.New().String()
	}
	now := time.Now()
	if sched.CreatedAt.IsZero() {
		sched.CreatedAt = now
	}
	sched.UpdatedAt = now
	next := spec.Next(now)
	sched.NextRunTime = &next

	if err := s.store.CreateSchedule(ctx, sched); err != nil {
		return err
	}
	if err := s.register(ctx, sched); err != nil {
		return err
	}

	s.logger.Info("Added schedule",
		zap.String("id", sched.ID),
		zap.String("name", sched.Name),
		zap.String("campaign_id", sched.CampaignID),
		zap.String("action", string(sched.Action)),
		zap.Time("next_run", next))
	return nil
}

// RemoveSchedule deletes a schedule and unhooks its cron entry
func (s *CampaignScheduler) RemoveSchedule(ctx context.Context, id string) error {
	if err := s.store.DeleteSchedule(ctx, id); err != nil {
		if err == storage.ErrNotFound {
			return ErrScheduleNotFound
		}
		return err
	}

	if entryIDVal, ok := s.entryIDs.Load(id); ok {
		s.cron.Remove(entryIDVal.(cron.EntryID))
		s.entryIDs.Delete(id)
	}

	s.logger.Info("Removed schedule", zap.String("id", id))
	return nil
}

// ListSchedules lists all persisted campaign schedules
func (s *CampaignScheduler) ListSchedules(ctx context.Context) ([]*model.CampaignSchedule, error) {
	return s.store.ListSchedules(ctx)
}

// register hooks a schedule into the cron runner
func (s *CampaignScheduler) register(ctx context.Context, sched *model.CampaignSchedule) error {
	entryID, err := s.cron.AddJob(sched.Expression, &scheduleJob{
		scheduler: s,
		schedule:  sched,
		ctx:       ctx,
	})
	if err != nil {
		return fmt.Errorf("failed to add cron job: %w", err)
	}
	s.entryIDs.Store(sched.ID, entryID)
	return nil
}

// scheduleJob implements cron.Job for one campaign schedule
type scheduleJob struct {
	scheduler *CampaignScheduler
	schedule  *model.CampaignSchedule
	ctx       context.Context
}

// Run applies the schedule's action to its campaign, publishes the firing and
// stamps the run times
func (j *scheduleJob) Run() {
	s := j.scheduler
	now := time.Now()

	if err := j.apply(); err != nil {
		s.logger.Error("Failed to apply schedule action",
			zap.String("id", j.schedule.ID),
			zap.String("campaign_id", j.schedule.CampaignID),
			zap.String("action", string(j.schedule.Action)),
			zap.Error(err))
		return
	}

	j.schedule.LastRunTime = &now
	spec, err := s.parser.Parse(j.schedule.Expression)
	if err == nil {
		next := spec.Next(now)
		j.schedule.NextRunTime = &next
	}
	j.schedule.UpdatedAt = now

	if err := s.store.UpdateScheduleRunTimes(j.ctx, j.schedule); err != nil {
		s.logger.Error("Failed to stamp schedule run times",
			zap.String("id", j.schedule.ID),
			zap.Error(err))
	}

	data, err := json.Marshal(j.schedule)
	if err == nil {
		if _, err := s.js.Publish(scheduleFireSubject, data); err != nil {
			s.logger.Error("Failed to publish schedule firing",
				zap.String("id", j.schedule.ID),
				zap.Error(err))
		}
	}

	s.logger.Info("Schedule fired",
		zap.String("id", j.schedule.ID),
		zap.String("name", j.schedule.Name),
		zap.String("campaign_id", j.schedule.CampaignID),
		zap.String("action", string(j.schedule.Action)),
		zap.Time("fired_at", now))
}

// apply performs the schedule's campaign mutation
func (j *scheduleJob) apply() error {
	s := j.scheduler
	switch j.schedule.Action {
	case model.ScheduleActionPause:
		return s.store.UpdateCampaignStatus(j.ctx, j.schedule.CampaignID, model.CampaignStatusPaused)
	case model.ScheduleActionActivate:
		return s.store.UpdateCampaignStatus(j.ctx, j.schedule.CampaignID, model.CampaignStatusActive)
	case model.ScheduleActionResetBudget:
		return s.store.UpdateCampaignBudget(j.ctx, j.schedule.CampaignID, j.schedule.Budget)
	default:
		return fmt.Errorf("%w: %s", ErrUnknownAction, j.schedule.Action)
	}
}
