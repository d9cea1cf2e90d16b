// Package jobs runs periodic housekeeping next to the HTTP server.
package jobs

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/robfig/cron/v3"
)

// sweepTimeout bounds a single scheduled sweep.
const sweepTimeout = 30 * time.Second

// Sweeper deletes stale pending verifications.
type Sweeper interface {
	SweepExpired(ctx context.Context) (int64, error)
}

// Scheduler manages background jobs
type Scheduler struct {
	cron *cron.Cron
}

// NewScheduler creates a new job scheduler
func NewScheduler() *Scheduler {
	return &Scheduler{
		cron: cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger))),
	}
}

// Add registers fn under a standard cron spec or an "@every" descriptor.
func (s *Scheduler) Add(spec, name string, fn func()) error {
	if _, err := s.cron.AddFunc(spec, fn); err != nil {
		return fmt.Errorf("schedule %s (%q): %w", name, spec, err)
	}
	log.Printf("⏰ Scheduled %s: %s", name, spec)
	return nil
}

// Start starts the scheduler
func (s *Scheduler) Start() {
	s.cron.Start()
	log.Println("Job scheduler started")
}

// Stop stops the scheduler and waits for running jobs until ctx is done.
func (s *Scheduler) Stop(ctx context.Context) {
	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
	}
	log.Println("Job scheduler stopped")
}

// SweepJob returns a job that runs the same idempotent sweep initiate runs
// inline, so stale records go away even when nobody initiates.
func SweepJob(sweeper Sweeper) func() {
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), sweepTimeout)
		defer cancel()

		n, err := sweeper.SweepExpired(ctx)
		if err != nil {
			log.Printf("⚠️ Scheduled sweep failed: %v", err)
			return
		}
		if n > 0 {
			log.Printf("🧹 Scheduled sweep removed %d expired pending verifications", n)
		}
	}
}
