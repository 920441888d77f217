package server

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-co-op/gocron/v2"
)

// jobTimeout bounds a single scheduled run.
const jobTimeout = 2 * time.Minute

// Scheduler runs background jobs at fixed intervals.
type Scheduler struct {
	gocron gocron.Scheduler
	logger *log.Logger
}

// NewScheduler creates a stopped scheduler.
func NewScheduler(logger *log.Logger) (*Scheduler, error) {
	gs, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("failed to create gocron scheduler: %w", err)
	}
	return &Scheduler{gocron: gs, logger: logger.With("component", "scheduler")}, nil
}

// Every registers fn to run every interval. Overlapping runs are skipped.
func (s *Scheduler) Every(name string, interval time.Duration, fn func(ctx context.Context) error) error {
	if interval <= 0 {
		return fmt.Errorf("invalid interval %s for job %q", interval, name)
	}

	_, err := s.gocron.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() { s.run(name, fn) }),
		gocron.WithName(name),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return fmt.Errorf("failed to create job %q: %w", name, err)
	}

	s.logger.Info("registered job", "name", name, "interval", interval)
	return nil
}

func (s *Scheduler) run(name string, fn func(ctx context.Context) error) {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	start := time.Now()
	if err := fn(ctx); err != nil {
		s.logger.Error("job failed", "name", name, "duration", time.Since(start), "error", err)
		return
	}
	s.logger.Debug("job finished", "name", name, "duration", time.Since(start))
}

// Start begins running registered jobs.
func (s *Scheduler) Start() {
	s.gocron.Start()
}

// Shutdown stops the scheduler and waits for running jobs.
func (s *Scheduler) Shutdown() error {
	return s.gocron.Shutdown()
}
