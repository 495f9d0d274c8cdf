// Package scheduler periodically queues analyses of a watch list.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/klimeurt/repolens/internal/broker"
	"github.com/klimeurt/repolens/internal/collector"
	"github.com/klimeurt/repolens/internal/config"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// jobTimeout bounds one run over the watch list
const jobTimeout = 30 * time.Minute

// RequestPublisher queues analysis requests
type RequestPublisher interface {
	PublishRequest(ctx context.Context, req broker.Request) error
}

// Scheduler publishes one request per watched repository on a cron schedule
type Scheduler struct {
	cron      *cron.Cron
	schedule  string
	repos     []collector.RepoRef
	publisher RequestPublisher
	logger    *zap.Logger
}

// New creates a new Scheduler. Every watched repository must parse.
func New(cfg *config.Config, publisher RequestPublisher, logger *zap.Logger) (*Scheduler, error) {
	if err := cfg.RequireWatchList(); err != nil {
		return nil, err
	}

	repos := make([]collector.RepoRef, 0, len(cfg.WatchRepos))
	for _, raw := range cfg.WatchRepos {
		ref, err := collector.ParseRepoURL(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid WATCH_REPOS entry: %w", err)
		}
		repos = append(repos, ref)
	}

	s := &Scheduler{
		cron:      cron.New(),
		schedule:  cfg.CronSchedule,
		repos:     repos,
		publisher: publisher,
		logger:    logger.Named("scheduler"),
	}

	if _, err := s.cron.AddFunc(cfg.CronSchedule, s.run); err != nil {
		return nil, fmt.Errorf("failed to add cron job: %w", err)
	}
	return s, nil
}

// Start starts the cron scheduler in the background
func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("Cron scheduler started",
		zap.String("schedule", s.schedule),
		zap.Int("repos", len(s.repos)))
}

// Stop stops the scheduler and waits for a running job to finish
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

func (s *Scheduler) run() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	if err := s.PublishAll(ctx); err != nil {
		s.logger.Error("Scheduled run failed", zap.Error(err))
	}
}

// PublishAll queues every watched repository. It keeps going past
// individual failures and returns them joined.
func (s *Scheduler) PublishAll(ctx context.Context) error {
	var errs []error
	published := 0

	for _, ref := range s.repos {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}

		req := broker.Request{RepoURL: ref.HTMLURL(), RequestedAt: time.Now().UTC()}
		if err := s.publisher.PublishRequest(ctx, req); err != nil {
			errs = append(errs, fmt.Errorf("failed to queue %s: %w", ref, err))
			continue
		}
		published++
	}

	s.logger.Info("Queued watched repositories",
		zap.Int("published", published),
		zap.Int("total", len(s.repos)))
	return errors.Join(errs...)
}
