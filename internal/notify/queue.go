package notify

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"traderwatch/internal/metrics"
	"traderwatch/pkg/errors"
	"traderwatch/pkg/logger"
)

// QueueConfig tunes delivery pacing.
type QueueConfig struct {
	// MessageSpacing is the minimum delay between two deliveries.
	MessageSpacing time.Duration

	// DefaultRetryAfter is the pause applied when the sink reports
	// throttling without a duration.
	DefaultRetryAfter time.Duration
}

// Queue serializes outbound messages to a flow-controlled sink.
//
// Delivery is strictly ordered: one message in flight at a time, drained in
// enqueue order with a minimum spacing between sends. When the sink reports
// throttling, the failed message is put back at the head of the queue and
// all draining pauses for the sink-supplied duration, so no message ever
// skips ahead of an older one that has not yet succeeded. Any other delivery
// error drops that single message with a log entry.
type Queue struct {
	sink    Sink
	spacing *rate.Limiter
	cfg     QueueConfig
	log     *logger.Logger

	mu      sync.Mutex
	pending []Message
	wake    chan struct{}
	running bool
	stopped bool
	wg      sync.WaitGroup
	cancel  context.CancelFunc
}

// NewQueue creates a notification queue over the given sink.
func NewQueue(sink Sink, cfg QueueConfig) *Queue {
	if cfg.MessageSpacing <= 0 {
		cfg.MessageSpacing = time.Second
	}
	if cfg.DefaultRetryAfter <= 0 {
		cfg.DefaultRetryAfter = 30 * time.Second
	}

	return &Queue{
		sink:    sink,
		spacing: rate.NewLimiter(rate.Every(cfg.MessageSpacing), 1),
		cfg:     cfg,
		wake:    make(chan struct{}, 1),
		log:     logger.Get().With("component", "notification_queue"),
	}
}

// Start launches the single drainer goroutine. The queue stops draining when
// ctx is cancelled or Stop is called.
func (q *Queue) Start(ctx context.Context) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.running {
		q.log.Warnw("Notification queue already running")
		return
	}
	q.running = true

	ctx, q.cancel = context.WithCancel(ctx)
	q.wg.Add(1)
	go q.drain(ctx)

	q.log.Infow("Notification queue started",
		"spacing", q.cfg.MessageSpacing,
		"default_retry_after", q.cfg.DefaultRetryAfter,
	)
}

// Stop halts draining. Pending messages are surrendered; durable state lives
// in the signal store, so at most the in-flight notification is lost.
func (q *Queue) Stop() {
	q.mu.Lock()
	if !q.running || q.stopped {
		q.mu.Unlock()
		return
	}
	q.stopped = true
	cancel := q.cancel
	q.mu.Unlock()

	cancel()
	q.wg.Wait()
	q.log.Infow("Notification queue stopped")
}

// Enqueue appends a message for delivery. Safe to call from any pipeline
// goroutine.
func (q *Queue) Enqueue(msg Message) error {
	q.mu.Lock()
	if q.stopped {
		q.mu.Unlock()
		return errors.ErrQueueStopped
	}
	q.pending = append(q.pending, msg)
	depth := len(q.pending)
	q.mu.Unlock()

	metrics.QueueDepth.Set(float64(depth))

	select {
	case q.wake <- struct{}{}:
	default:
	}
	return nil
}

// Len returns the number of pending messages.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

func (q *Queue) drain(ctx context.Context) {
	defer q.wg.Done()

	for {
		msg, ok := q.popFront()
		if !ok {
			select {
			case <-ctx.Done():
				return
			case <-q.wake:
				continue
			}
		}

		// Minimum spacing between deliveries, including the first after a
		// requeue.
		if err := q.spacing.Wait(ctx); err != nil {
			q.requeueFront(msg)
			return
		}

		err := q.sink.Send(ctx, msg)
		if err == nil {
			metrics.NotificationsSent.Inc()
			continue
		}

		var rl *errors.RateLimitError
		if errors.As(err, &rl) {
			retryAfter := rl.RetryAfter
			if retryAfter <= 0 {
				retryAfter = q.cfg.DefaultRetryAfter
			}

			// Head requeue keeps enqueue order: the throttled message is
			// retried before anything younger.
			q.requeueFront(msg)
			metrics.RateLimitPauses.Inc()
			q.log.Warnw("Sink rate limited, pausing deliveries",
				"retry_after", retryAfter,
				"pending", q.Len(),
			)

			select {
			case <-ctx.Done():
				return
			case <-time.After(retryAfter):
			}
			continue
		}

		if ctx.Err() != nil {
			q.requeueFront(msg)
			return
		}

		// Terminal for this message only.
		metrics.NotificationsDropped.Inc()
		q.log.Errorw("Dropping undeliverable notification",
			"chat_id", msg.ChatID,
			"error", err,
		)
	}
}

func (q *Queue) popFront() (Message, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.pending) == 0 {
		return Message{}, false
	}
	msg := q.pending[0]
	q.pending = q.pending[1:]
	metrics.QueueDepth.Set(float64(len(q.pending)))
	return msg, true
}

func (q *Queue) requeueFront(msg Message) {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.pending = append([]Message{msg}, q.pending...)
	metrics.QueueDepth.Set(float64(len(q.pending)))
}
