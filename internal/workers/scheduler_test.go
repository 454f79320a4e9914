package workers

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"traderwatch/pkg/errors"
)

type mockWorker struct {
	*BaseWorker
	runCount int32
	runFunc  func(ctx context.Context) error
}

func newMockWorker(name string, interval time.Duration, enabled bool) *mockWorker {
	return &mockWorker{
		BaseWorker: NewBaseWorker(name, interval, 0, enabled),
	}
}

func (m *mockWorker) Run(ctx context.Context) error {
	atomic.AddInt32(&m.runCount, 1)
	if m.runFunc != nil {
		return m.runFunc(ctx)
	}
	return nil
}

func (m *mockWorker) GetRunCount() int {
	return int(atomic.LoadInt32(&m.runCount))
}

func TestScheduler_StartStop(t *testing.T) {
	scheduler := NewScheduler()

	worker := newMockWorker("test-worker", 100*time.Millisecond, true)
	scheduler.RegisterWorker(worker)

	require.NoError(t, scheduler.Start(context.Background()))
	assert.True(t, scheduler.IsRunning())

	time.Sleep(250 * time.Millisecond)

	require.NoError(t, scheduler.Stop())
	assert.False(t, scheduler.IsRunning())

	// Immediate pass on start plus at least one tick.
	assert.GreaterOrEqual(t, worker.GetRunCount(), 2)
}

func TestScheduler_PanicInWorkerDoesNotKillScheduler(t *testing.T) {
	scheduler := NewScheduler()

	worker := newMockWorker("panicking-worker", 50*time.Millisecond, true)
	worker.runFunc = func(ctx context.Context) error {
		panic("boom")
	}
	scheduler.RegisterWorker(worker)

	require.NoError(t, scheduler.Start(context.Background()))

	time.Sleep(200 * time.Millisecond)

	require.NoError(t, scheduler.Stop())

	// The worker kept being scheduled after panicking.
	assert.GreaterOrEqual(t, worker.GetRunCount(), 2)
}

func TestScheduler_JitterDelaysFirstPass(t *testing.T) {
	scheduler := NewScheduler()

	immediate := newMockWorker("no-jitter-worker", time.Hour, true)

	delayed := &mockWorker{
		BaseWorker: NewBaseWorker("jittered-worker", time.Hour, time.Hour, true),
	}

	scheduler.RegisterWorker(immediate)
	scheduler.RegisterWorker(delayed)

	require.NoError(t, scheduler.Start(context.Background()))
	time.Sleep(100 * time.Millisecond)

	assert.Equal(t, 1, immediate.GetRunCount())
	assert.Equal(t, 0, delayed.GetRunCount(), "first pass waits out the jitter")

	require.NoError(t, scheduler.Stop())
}

func TestScheduler_ContextCancellation(t *testing.T) {
	scheduler := NewScheduler()

	worker := newMockWorker("test-worker", 100*time.Millisecond, true)
	scheduler.RegisterWorker(worker)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, scheduler.Start(ctx))

	cancel()
	time.Sleep(200 * time.Millisecond)

	require.NoError(t, scheduler.Stop())
}

func TestScheduler_DisabledWorker(t *testing.T) {
	scheduler := NewScheduler()

	enabledWorker := newMockWorker("enabled-worker", 100*time.Millisecond, true)
	disabledWorker := newMockWorker("disabled-worker", 100*time.Millisecond, false)

	scheduler.RegisterWorker(enabledWorker)
	scheduler.RegisterWorker(disabledWorker)

	require.NoError(t, scheduler.Start(context.Background()))
	time.Sleep(250 * time.Millisecond)
	require.NoError(t, scheduler.Stop())

	assert.Greater(t, enabledWorker.GetRunCount(), 0)
	assert.Equal(t, 0, disabledWorker.GetRunCount())
}

func TestScheduler_CannotStartTwice(t *testing.T) {
	scheduler := NewScheduler()
	scheduler.RegisterWorker(newMockWorker("test-worker", 100*time.Millisecond, true))

	ctx := context.Background()
	require.NoError(t, scheduler.Start(ctx))

	err := scheduler.Start(ctx)
	assert.True(t, errors.Is(err, errors.ErrInternal))

	scheduler.Stop()
}

func TestScheduler_HealthTracksErrors(t *testing.T) {
	scheduler := NewScheduler()

	worker := newMockWorker("failing-worker", time.Hour, true)
	worker.runFunc = func(ctx context.Context) error {
		return errors.New("pass failed")
	}
	scheduler.RegisterWorker(worker)

	require.NoError(t, scheduler.Start(context.Background()))
	time.Sleep(50 * time.Millisecond)
	require.NoError(t, scheduler.Stop())

	health := worker.Health()
	assert.Equal(t, int64(1), health.RunCount)
	assert.Equal(t, int64(1), health.ErrorCount)
	assert.Error(t, health.LastError)
	assert.False(t, health.LastRun.IsZero())
}

func TestScheduler_GetWorkers(t *testing.T) {
	scheduler := NewScheduler()

	scheduler.RegisterWorker(newMockWorker("worker-1", 100*time.Millisecond, true))
	scheduler.RegisterWorker(newMockWorker("worker-2", 200*time.Millisecond, false))

	workers := scheduler.GetWorkers()
	require.Len(t, workers, 2)
	assert.Equal(t, "worker-1", workers[0].Name())
	assert.Equal(t, "worker-2", workers[1].Name())
}
