package workers

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"traderwatch/internal/metrics"
	"traderwatch/pkg/errors"
	"traderwatch/pkg/logger"
)

const shutdownTimeout = 30 * time.Second

// Scheduler runs registered workers on their own cadence. Each worker gets a
// single goroutine, so its passes never overlap; an optional random jitter is
// added before every pass to keep the upstream traffic pattern irregular.
type Scheduler struct {
	workers []Worker
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	mu      sync.RWMutex
	log     *logger.Logger
	started bool
}

// NewScheduler creates a new worker scheduler.
func NewScheduler() *Scheduler {
	return &Scheduler{
		workers: make([]Worker, 0),
		log:     logger.Get(),
	}
}

// RegisterWorker adds a worker to the scheduler. Registration after Start is
// ignored.
func (s *Scheduler) RegisterWorker(w Worker) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		s.log.Warnw("Cannot register worker after scheduler has started", "worker", w.Name())
		return
	}

	s.workers = append(s.workers, w)
	s.log.Infow("Worker registered",
		"worker", w.Name(),
		"interval", w.Interval(),
		"jitter", w.Jitter(),
	)
}

// Start begins running all enabled workers.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return errors.Wrap(errors.ErrInternal, "scheduler already started")
	}

	s.started = true
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.mu.Unlock()

	for _, worker := range s.workers {
		if !worker.Enabled() {
			s.log.Infow("Skipping disabled worker", "worker", worker.Name())
			continue
		}

		s.wg.Add(1)
		go s.runWorker(worker)
	}

	s.log.Infow("Worker scheduler started", "workers", len(s.workers))
	return nil
}

// Stop cancels all workers and waits for in-flight passes to finish.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return errors.Wrap(errors.ErrInternal, "scheduler not started")
	}
	s.cancel()
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	var shutdownErr error
	select {
	case <-done:
		s.log.Infow("All workers stopped")
	case <-time.After(shutdownTimeout):
		s.log.Warnw("Worker shutdown timed out", "timeout", shutdownTimeout)
		shutdownErr = errors.Wrap(errors.ErrTimeout, "worker shutdown")
	}

	s.mu.Lock()
	s.started = false
	s.mu.Unlock()

	return shutdownErr
}

func (s *Scheduler) runWorker(worker Worker) {
	defer s.wg.Done()

	ticker := time.NewTicker(worker.Interval())
	defer ticker.Stop()

	// The first pass is jittered too, so a restart loop never hits the
	// upstream in a synchronized burst.
	if !s.sleepJitter(worker.Jitter()) {
		return
	}
	s.executeWorker(worker)

	for {
		select {
		case <-s.ctx.Done():
			s.log.Infow("Worker stopping", "worker", worker.Name())
			return

		case <-ticker.C:
			if !s.sleepJitter(worker.Jitter()) {
				return
			}
			s.executeWorker(worker)
		}
	}
}

// sleepJitter waits a random duration up to max; false means the scheduler is
// shutting down.
func (s *Scheduler) sleepJitter(max time.Duration) bool {
	if max <= 0 {
		return true
	}

	t := time.NewTimer(time.Duration(rand.Int63n(int64(max))))
	defer t.Stop()

	select {
	case <-s.ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func (s *Scheduler) executeWorker(worker Worker) {
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			s.log.Errorw("Worker panicked",
				"worker", worker.Name(),
				"panic", r,
			)
		}
	}()

	err := worker.Run(s.ctx)
	metrics.RecordWorkerExecution(worker.Name(), time.Since(start), err)
	if rec, ok := worker.(interface{ recordPass(error) }); ok {
		rec.recordPass(err)
	}

	if err != nil {
		s.log.Errorw("Worker execution failed",
			"worker", worker.Name(),
			"error", err,
			"duration", time.Since(start),
		)
	} else {
		s.log.Debugw("Worker execution completed",
			"worker", worker.Name(),
			"duration", time.Since(start),
		)
	}
}

// GetWorkers returns a snapshot of all registered workers.
func (s *Scheduler) GetWorkers() []Worker {
	s.mu.RLock()
	defer s.mu.RUnlock()

	workers := make([]Worker, len(s.workers))
	copy(workers, s.workers)
	return workers
}

// IsRunning returns whether the scheduler is currently running.
func (s *Scheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.started
}
