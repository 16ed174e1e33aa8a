// Package scheduler runs the daily digest batch on a cron schedule.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/bilgisen/newsdigest/internal/digest"
	"github.com/bilgisen/newsdigest/internal/logger"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// Defaults for the daily run.
const (
	DefaultSchedule = "0 5 * * *"
	DefaultTimezone = "America/Edmonton"
)

// BatchRunner is the job the scheduler drives.
type BatchRunner interface {
	Run(ctx context.Context) (*digest.BatchReport, error)
}

// Scheduler owns a cron instance with a single batch entry. At most one run
// is in flight at any time, whether started by cron or by Trigger.
type Scheduler struct {
	cron   *cron.Cron
	entry  cron.EntryID
	runner BatchRunner
	log    zerolog.Logger

	mu      sync.Mutex
	running bool
	last    *digest.BatchReport
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// New registers runner under spec, evaluated in loc.
func New(runner BatchRunner, spec string, loc *time.Location) (*Scheduler, error) {
	if spec == "" {
		spec = DefaultSchedule
	}
	if loc == nil {
		loc = time.UTC
	}

	s := &Scheduler{
		runner: runner,
		log:    logger.Component("scheduler"),
	}
	s.ctx, s.cancel = context.WithCancel(context.Background())

	cronLog := cron.PrintfLogger(&s.log)
	s.cron = cron.New(
		cron.WithLocation(loc),
		cron.WithLogger(cronLog),
		cron.WithChain(cron.Recover(cronLog), cron.SkipIfStillRunning(cronLog)),
	)

	id, err := s.cron.AddFunc(spec, func() { s.run(s.ctx, "cron") })
	if err != nil {
		return nil, fmt.Errorf("invalid digest schedule %q: %w", spec, err)
	}
	s.entry = id
	return s, nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Info().Time("next_run", s.Next()).Msg("Scheduler started")
}

// Stop halts the schedule, cancels an in-flight batch and waits for it to
// return or for ctx to end.
func (s *Scheduler) Stop(ctx context.Context) error {
	cronDone := s.cron.Stop()
	s.cancel()

	done := make(chan struct{})
	go func() {
		<-cronDone.Done()
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.log.Info().Msg("Scheduler stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Next returns the next scheduled run, zero before Start.
func (s *Scheduler) Next() time.Time {
	return s.cron.Entry(s.entry).Next
}

// Trigger starts a batch in the background. It returns false when a batch
// is already running.
func (s *Scheduler) Trigger() bool {
	if !s.acquire() {
		return false
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer s.release()
		s.execute(s.ctx, "manual")
	}()
	return true
}

// Running reports whether a batch is in flight.
func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// LastReport returns the report of the most recent finished batch.
func (s *Scheduler) LastReport() *digest.BatchReport {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}

func (s *Scheduler) run(ctx context.Context, trigger string) {
	if !s.acquire() {
		s.log.Warn().Str("trigger", trigger).Msg("Batch already running, skipping")
		return
	}
	s.wg.Add(1)
	defer s.wg.Done()
	defer s.release()
	s.execute(ctx, trigger)
}

func (s *Scheduler) execute(ctx context.Context, trigger string) {
	s.log.Info().Str("trigger", trigger).Msg("Digest batch triggered")

	report, err := s.runner.Run(ctx)
	if err != nil {
		s.log.Error().Err(err).Str("trigger", trigger).Msg("Digest batch failed")
		return
	}

	s.mu.Lock()
	s.last = report
	s.mu.Unlock()
}

func (s *Scheduler) acquire() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return false
	}
	s.running = true
	return true
}

func (s *Scheduler) release() {
	s.mu.Lock()
	s.running = false
	s.mu.Unlock()
}
