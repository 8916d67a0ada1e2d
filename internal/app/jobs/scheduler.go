// Package jobs runs recurring maintenance work on a cron schedule.
package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"github.com/yigit/enrolladmin/internal/app/models/dto"
)

// DefaultEligibilitySchedule runs the recompute every night at 02:00
const DefaultEligibilitySchedule = "0 2 * * *"

// EligibilityRecomputer re-derives graduation eligibility for enrolled students
type EligibilityRecomputer interface {
	RecomputeEligibility(ctx context.Context) (*dto.EligibilityRecomputeResponse, error)
}

// Scheduler owns the cron runner and the registered jobs
type Scheduler struct {
	cron    *cron.Cron
	timeout time.Duration
	logger  zerolog.Logger
}

// NewScheduler registers the eligibility job under spec. The job runs at most
// once at a time; a run still going when the next tick fires is skipped.
func NewScheduler(spec string, recomputer EligibilityRecomputer, logger zerolog.Logger) (*Scheduler, error) {
	if spec == "" {
		spec = DefaultEligibilitySchedule
	}
	cl := cronLogger{logger: logger}
	s := &Scheduler{
		cron: cron.New(
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		timeout: 30 * time.Minute,
		logger:  logger,
	}

	if _, err := s.cron.AddFunc(spec, func() { s.runEligibility(recomputer) }); err != nil {
		return nil, fmt.Errorf("invalid eligibility schedule %q: %w", spec, err)
	}
	return s, nil
}

func (s *Scheduler) runEligibility(recomputer EligibilityRecomputer) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	started := time.Now()
	s.logger.Info().Msg("Running scheduled eligibility recompute")
	result, err := recomputer.RecomputeEligibility(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("Scheduled eligibility recompute failed")
		return
	}
	s.logger.Info().
		Int("checked", result.Checked).
		Int("changed", result.Changed).
		Dur("took", time.Since(started)).
		Msg("Scheduled eligibility recompute finished")
}

// Start begins firing jobs in the background
func (s *Scheduler) Start() {
	s.cron.Start()
	for _, e := range s.cron.Entries() {
		s.logger.Info().Time("next", e.Next).Msg("Scheduler started")
	}
}

// Stop prevents new runs and waits for a running job until ctx is done
func (s *Scheduler) Stop(ctx context.Context) error {
	done := s.cron.Stop().Done()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// cronLogger adapts zerolog to cron.Logger
type cronLogger struct {
	logger zerolog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug().Fields(keysAndValues).Msg(msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error().Err(err).Fields(keysAndValues).Msg(msg)
}
