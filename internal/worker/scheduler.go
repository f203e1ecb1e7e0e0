// Package worker runs the periodic background jobs.
package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/rs/zerolog"
)

// LedgerExporter archives the previous UTC day of ledger entries.
type LedgerExporter interface {
	ExportPreviousDay(ctx context.Context) error
}

// Scheduler wraps a gocron scheduler running in UTC.
type Scheduler struct {
	sched   gocron.Scheduler
	log     zerolog.Logger
	timeout time.Duration
}

// NewScheduler creates a stopped scheduler. timeout bounds every job run.
func NewScheduler(log zerolog.Logger, timeout time.Duration) (*Scheduler, error) {
	sched, err := gocron.NewScheduler(gocron.WithLocation(time.UTC))
	if err != nil {
		return nil, fmt.Errorf("create scheduler: %w", err)
	}
	if timeout <= 0 {
		timeout = 10 * time.Minute
	}
	return &Scheduler{sched: sched, log: log, timeout: timeout}, nil
}

// AddLedgerExport runs exporter once a day at hour:minute UTC. Overlapping
// runs are skipped.
func (s *Scheduler) AddLedgerExport(exporter LedgerExporter, hour, minute uint) (gocron.Job, error) {
	job, err := s.sched.NewJob(
		gocron.DailyJob(1, gocron.NewAtTimes(gocron.NewAtTime(hour, minute, 0))),
		gocron.NewTask(s.run, "ledger-export", exporter.ExportPreviousDay),
		gocron.WithName("ledger-export"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return nil, fmt.Errorf("schedule ledger export: %w", err)
	}
	return job, nil
}

// Start begins running jobs in the background.
func (s *Scheduler) Start() {
	s.sched.Start()
	s.log.Info().Int("jobs", len(s.sched.Jobs())).Msg("scheduler started")
}

// Shutdown stops the scheduler and waits for running jobs.
func (s *Scheduler) Shutdown() error {
	return s.sched.Shutdown()
}

func (s *Scheduler) run(name string, fn func(context.Context) error) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	start := time.Now()
	if err := fn(ctx); err != nil {
		s.log.Error().Err(err).Str("job", name).Msg("scheduled job failed")
		return
	}
	s.log.Info().Str("job", name).Dur("took", time.Since(start)).Msg("scheduled job finished")
}
