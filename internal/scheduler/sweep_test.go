package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeLedger struct {
	calls   atomic.Int64
	revoked int64
}

func (f *fakeLedger) Sweep(asOf time.Time) (int64, error) {
	f.calls.Add(1)
	return f.revoked, nil
}

func TestSweepScheduler_StartStop(t *testing.T) {
	ledger := &fakeLedger{}
	s := NewSweepScheduler(ledger, "0 * * * *")

	require.NoError(t, s.Start(context.Background()))
	assert.True(t, s.IsRunning())

	next := s.GetNextRunTime()
	require.NotNil(t, next)
	assert.True(t, next.After(time.Now()))

	// Start is idempotent
	require.NoError(t, s.Start(context.Background()))

	s.Stop()
	assert.False(t, s.IsRunning())
	assert.Nil(t, s.GetNextRunTime())

	// Stop is idempotent too
	s.Stop()
}

func TestSweepScheduler_InvalidSchedule(t *testing.T) {
	s := NewSweepScheduler(&fakeLedger{}, "not a schedule")
	err := s.Start(context.Background())
	assert.Error(t, err)
	assert.False(t, s.IsRunning())
}

func TestSweepScheduler_RunNow(t *testing.T) {
	ledger := &fakeLedger{revoked: 3}
	s := NewSweepScheduler(ledger, "0 * * * *")

	s.RunNow()

	assert.Eventually(t, func() bool {
		return ledger.calls.Load() == 1
	}, time.Second, 10*time.Millisecond)
}

func TestSweepScheduler_ContextCancelStops(t *testing.T) {
	ledger := &fakeLedger{}
	s := NewSweepScheduler(ledger, "0 * * * *")

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, s.Start(ctx))

	cancel()

	assert.Eventually(t, func() bool {
		return !s.IsRunning()
	}, time.Second, 10*time.Millisecond)
}
