package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Fetch metrics
	Fetches = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "traderwatch_fetches_total",
			Help: "Total number of upstream position fetches",
		},
		[]string{"result"}, // result: success|failure|cached
	)

	FetchDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "traderwatch_fetch_duration_seconds",
			Help:    "Upstream fetch duration in seconds",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 20},
		},
	)

	// Signal metrics
	SignalsOpened = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "traderwatch_signals_opened_total",
			Help: "Total number of newly detected open positions",
		},
	)

	SignalsClosed = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "traderwatch_signals_closed_total",
			Help: "Total number of detected position closes",
		},
	)

	// Delivery metrics
	NotificationsSent = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "traderwatch_notifications_sent_total",
			Help: "Total number of successfully delivered notifications",
		},
	)

	NotificationsDropped = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "traderwatch_notifications_dropped_total",
			Help: "Total number of notifications dropped on non-retryable delivery errors",
		},
	)

	RateLimitPauses = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "traderwatch_rate_limit_pauses_total",
			Help: "Total number of sink rate-limit pauses",
		},
	)

	QueueDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "traderwatch_notification_queue_depth",
			Help: "Current number of pending notifications",
		},
	)

	// Worker metrics
	WorkerExecutions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "traderwatch_worker_executions_total",
			Help: "Total number of worker executions",
		},
		[]string{"worker", "status"}, // status: success|error
	)

	WorkerDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "traderwatch_worker_duration_seconds",
			Help:    "Worker execution duration in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
		},
		[]string{"worker"},
	)
)

var initOnce sync.Once

// Init registers all collectors with the default registry.
func Init() {
	initOnce.Do(func() {
		prometheus.MustRegister(Fetches)
		prometheus.MustRegister(FetchDuration)
		prometheus.MustRegister(SignalsOpened)
		prometheus.MustRegister(SignalsClosed)
		prometheus.MustRegister(NotificationsSent)
		prometheus.MustRegister(NotificationsDropped)
		prometheus.MustRegister(RateLimitPauses)
		prometheus.MustRegister(QueueDepth)
		prometheus.MustRegister(WorkerExecutions)
		prometheus.MustRegister(WorkerDuration)
	})
}

// Handler returns the Prometheus HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordWorkerExecution records a worker execution
func RecordWorkerExecution(worker string, duration time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}

	WorkerExecutions.WithLabelValues(worker, status).Inc()
	WorkerDuration.WithLabelValues(worker).Observe(duration.Seconds())
}

// RecordFetch records an upstream fetch outcome
func RecordFetch(result string, duration time.Duration) {
	Fetches.WithLabelValues(result).Inc()
	FetchDuration.Observe(duration.Seconds())
}
