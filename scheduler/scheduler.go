package scheduler

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"

	"github.com/graphicsoft-com/RHA-simulation/logging"
	"github.com/graphicsoft-com/RHA-simulation/room"
)

// Options configures a Scheduler.
type Options struct {
	// StartSpec is the cron expression for starting all rooms. Empty
	// disables the job.
	StartSpec string

	// StopSpec is the cron expression for stopping all rooms. Empty
	// disables the job.
	StopSpec string

	// Logger for job activity.
	Logger logging.Logger
}

// Scheduler drives the registry's StartAll and StopAll on cron schedules.
type Scheduler struct {
	cron   *cron.Cron
	logger logging.Logger
}

// New creates a Scheduler. It returns an error when either cron expression
// does not parse.
func New(registry *room.Registry, optFns ...func(o *Options)) (*Scheduler, error) {
	opts := Options{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}

	c := cron.New()

	if opts.StartSpec != "" {
		_, err := c.AddFunc(opts.StartSpec, func() {
			opts.Logger.Info("scheduled start of all rooms", "spec", opts.StartSpec)
			registry.StartAll(context.Background())
		})
		if err != nil {
			return nil, fmt.Errorf("invalid start schedule %q: %w", opts.StartSpec, err)
		}
	}

	if opts.StopSpec != "" {
		_, err := c.AddFunc(opts.StopSpec, func() {
			opts.Logger.Info("scheduled stop of all rooms", "spec", opts.StopSpec)
			registry.StopAll()
		})
		if err != nil {
			return nil, fmt.Errorf("invalid stop schedule %q: %w", opts.StopSpec, err)
		}
	}

	return &Scheduler{cron: c, logger: opts.Logger}, nil
}

// Start begins running the schedules on a background goroutine.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("scheduler started")
}

// Stop halts the schedules and waits for any running job to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("scheduler stopped")
}
