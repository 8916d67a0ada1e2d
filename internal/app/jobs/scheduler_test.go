package jobs

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yigit/enrolladmin/internal/app/models/dto"
)

type countingRecomputer struct {
	calls atomic.Int32
	err   error
}

func (r *countingRecomputer) RecomputeEligibility(ctx context.Context) (*dto.EligibilityRecomputeResponse, error) {
	r.calls.Add(1)
	if _, ok := ctx.Deadline(); !ok {
		return nil, errors.New("expected a deadline")
	}
	if r.err != nil {
		return nil, r.err
	}
	return &dto.EligibilityRecomputeResponse{Checked: 3, Eligible: 1, Changed: 1}, nil
}

func TestNewSchedulerRejectsBadSpec(t *testing.T) {
	_, err := NewScheduler("not a cron line", &countingRecomputer{}, zerolog.Nop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid eligibility schedule")
}

func TestNewSchedulerDefaultsSpec(t *testing.T) {
	s, err := NewScheduler("", &countingRecomputer{}, zerolog.Nop())
	require.NoError(t, err)

	entries := s.cron.Entries()
	require.Len(t, entries, 1)

	from := time.Date(2024, 5, 1, 12, 0, 0, 0, time.Local)
	next := entries[0].Schedule.Next(from)
	assert.Equal(t, time.Date(2024, 5, 2, 2, 0, 0, 0, time.Local), next)
}

func TestRunEligibility(t *testing.T) {
	r := &countingRecomputer{}
	s, err := NewScheduler(DefaultEligibilitySchedule, r, zerolog.Nop())
	require.NoError(t, err)

	s.runEligibility(r)
	assert.Equal(t, int32(1), r.calls.Load())

	r.err = errors.New("database unavailable")
	assert.NotPanics(t, func() { s.runEligibility(r) })
	assert.Equal(t, int32(2), r.calls.Load())
}

func TestStartStop(t *testing.T) {
	s, err := NewScheduler(DefaultEligibilitySchedule, &countingRecomputer{}, zerolog.Nop())
	require.NoError(t, err)

	s.Start()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.NoError(t, s.Stop(ctx))
}
