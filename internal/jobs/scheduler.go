// Package jobs runs periodic store maintenance on a cron schedule.
package jobs

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/zwehtet-dev/inifinity-tg-bot-backend/internal/logger"
)

// TokenPurger removes expired bearer tokens.
type TokenPurger interface {
	PurgeExpired() (int64, error)
}

// WebhookLogPurger removes delivery log rows older than a cutoff.
type WebhookLogPurger interface {
	PurgeWebhookLogs(before time.Time) (int64, error)
}

// Config holds the cron expressions and the webhook log retention.
type Config struct {
	TokenPurgeSchedule  string
	WebhookLogSchedule  string
	WebhookLogRetention time.Duration
}

// Scheduler owns the cron runner.
type Scheduler struct {
	cron   *cron.Cron
	cfg    Config
	tokens TokenPurger
	logs   WebhookLogPurger
	now    func() time.Time
}

// NewScheduler creates a scheduler evaluating schedules in loc.
func NewScheduler(cfg Config, tokens TokenPurger, logs WebhookLogPurger, loc *time.Location) *Scheduler {
	if loc == nil {
		loc = time.UTC
	}
	return &Scheduler{
		cron:   cron.New(cron.WithLocation(loc)),
		cfg:    cfg,
		tokens: tokens,
		logs:   logs,
		now:    time.Now,
	}
}

// Start registers the jobs and starts the runner. An empty schedule disables
// its job.
func (s *Scheduler) Start() error {
	if s.cfg.TokenPurgeSchedule != "" {
		if _, err := s.cron.AddFunc(s.cfg.TokenPurgeSchedule, s.purgeTokens); err != nil {
			return fmt.Errorf("invalid token purge schedule %q: %w", s.cfg.TokenPurgeSchedule, err)
		}
	}
	if s.cfg.WebhookLogSchedule != "" && s.cfg.WebhookLogRetention > 0 {
		if _, err := s.cron.AddFunc(s.cfg.WebhookLogSchedule, s.purgeWebhookLogs); err != nil {
			return fmt.Errorf("invalid webhook log purge schedule %q: %w", s.cfg.WebhookLogSchedule, err)
		}
	}

	s.cron.Start()
	logger.Get().Infow("scheduler started", "jobs", len(s.cron.Entries()))
	return nil
}

// Stop stops the runner and waits for running jobs.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	logger.Get().Info("scheduler stopped")
}

func (s *Scheduler) purgeTokens() {
	n, err := s.tokens.PurgeExpired()
	if err != nil {
		logger.Get().Errorw("token purge failed", "error", err)
		return
	}
	if n > 0 {
		logger.Get().Infow("expired tokens purged", "count", n)
	}
}

func (s *Scheduler) purgeWebhookLogs() {
	cutoff := s.now().Add(-s.cfg.WebhookLogRetention)
	n, err := s.logs.PurgeWebhookLogs(cutoff)
	if err != nil {
		logger.Get().Errorw("webhook log purge failed", "error", err)
		return
	}
	if n > 0 {
		logger.Get().Infow("webhook logs purged", "count", n, "before", cutoff)
	}
}
