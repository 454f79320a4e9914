package workers

import (
	"context"
	"sync"
	"time"

	"traderwatch/pkg/logger"
)

// Worker defines the interface for background workers.
type Worker interface {
	// Name returns the unique identifier for this worker.
	Name() string

	// Run executes one pass of the worker's task. The scheduler calls it
	// repeatedly based on Interval; passes of the same worker never overlap.
	Run(ctx context.Context) error

	// Interval returns how often this worker should run.
	Interval() time.Duration

	// Jitter returns the upper bound of the random delay added before each
	// pass. Zero means fixed cadence.
	Jitter() time.Duration

	// Enabled returns whether this worker is active.
	Enabled() bool
}

// Health contains run statistics for a worker.
type Health struct {
	LastRun    time.Time
	LastError  error
	RunCount   int64
	ErrorCount int64
	Enabled    bool
}

// BaseWorker provides the common cadence and health bookkeeping; concrete
// workers embed it and implement Run.
type BaseWorker struct {
	name     string
	interval time.Duration
	jitter   time.Duration
	enabled  bool
	log      *logger.Logger

	mu         sync.RWMutex
	lastRun    time.Time
	lastError  error
	runCount   int64
	errorCount int64
}

// NewBaseWorker creates a new base worker.
func NewBaseWorker(name string, interval, jitter time.Duration, enabled bool) *BaseWorker {
	return &BaseWorker{
		name:     name,
		interval: interval,
		jitter:   jitter,
		enabled:  enabled,
		log:      logger.Get().With("worker", name),
	}
}

func (w *BaseWorker) Name() string            { return w.name }
func (w *BaseWorker) Interval() time.Duration { return w.interval }
func (w *BaseWorker) Jitter() time.Duration   { return w.jitter }

// Enabled returns whether the worker is enabled.
func (w *BaseWorker) Enabled() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.enabled
}

// Log returns the worker's logger.
func (w *BaseWorker) Log() *logger.Logger {
	return w.log
}

// Health returns run statistics for the worker.
func (w *BaseWorker) Health() Health {
	w.mu.RLock()
	defer w.mu.RUnlock()

	return Health{
		LastRun:    w.lastRun,
		LastError:  w.lastError,
		RunCount:   w.runCount,
		ErrorCount: w.errorCount,
		Enabled:    w.enabled,
	}
}

func (w *BaseWorker) recordPass(err error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.lastRun = time.Now()
	w.runCount++
	w.lastError = err
	if err != nil {
		w.errorCount++
	}
}
