package scheduler

import (
	"context"
	"log/slog"
	"time"

	"news_maker/internal/domain"
)

// Fetcher runs one fetch pass.
type Fetcher interface {
	Fetch(ctx context.Context) (*domain.FetchStats, error)
}

type Scheduler struct {
	fetcher    Fetcher
	interval   time.Duration
	runTimeout time.Duration
	logger     *slog.Logger
}

func NewScheduler(fetcher Fetcher, interval, runTimeout time.Duration, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		fetcher:    fetcher,
		interval:   interval,
		runTimeout: runTimeout,
		logger:     logger.With("component", "scheduler"),
	}
}

// Start runs a fetch immediately and then on every tick until ctx is done.
func (s *Scheduler) Start(ctx context.Context) error {
	s.logger.Info("scheduler started", "interval", s.interval)

	s.runFetch(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler stopped")
			return ctx.Err()
		case <-ticker.C:
			s.runFetch(ctx)
		}
	}
}

// RunOnce runs a single fetch under the run timeout.
func (s *Scheduler) RunOnce(ctx context.Context) (*domain.FetchStats, error) {
	fetchCtx, cancel := context.WithTimeout(ctx, s.runTimeout)
	defer cancel()

	return s.fetcher.Fetch(fetchCtx)
}

func (s *Scheduler) runFetch(ctx context.Context) {
	if _, err := s.RunOnce(ctx); err != nil {
		s.logger.Error("fetch failed", "error", err)
	}
}
