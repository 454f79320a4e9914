package health

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"traderwatch/pkg/logger"
)

// Pinger verifies connectivity of one backing component.
type Pinger interface {
	Health(ctx context.Context) error
}

// Handler provides health check endpoints.
type Handler struct {
	log         *logger.Logger
	components  map[string]Pinger
	startTime   time.Time
	serviceName string
	version     string
}

// New creates a health handler over the given named components.
func New(serviceName, version string, components map[string]Pinger) *Handler {
	return &Handler{
		log:         logger.Get().With("component", "health"),
		components:  components,
		startTime:   time.Now(),
		serviceName: serviceName,
		version:     version,
	}
}

// Status is the overall health report.
type Status struct {
	Status    string                     `json:"status"` // "healthy", "degraded", "unhealthy"
	Service   string                     `json:"service"`
	Version   string                     `json:"version"`
	Uptime    string                     `json:"uptime"`
	Timestamp string                     `json:"timestamp"`
	Checks    map[string]ComponentHealth `json:"checks"`
}

// ComponentHealth is the health of a single component.
type ComponentHealth struct {
	Status       string `json:"status"`
	ResponseTime string `json:"response_time,omitempty"`
	Error        string `json:"error,omitempty"`
}

// HandleLiveness returns 200 OK while the process is running.
func (h *Handler) HandleLiveness(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "alive"})
}

// HandleReadiness returns 200 only when every backing component answers.
func (h *Handler) HandleReadiness(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status, healthy, total := h.check(ctx)

	statusCode := http.StatusOK
	if healthy < total {
		status.Status = "unhealthy"
		statusCode = http.StatusServiceUnavailable
		h.log.Warnw("Readiness check failed", "checks", status.Checks)
	}

	writeJSON(w, statusCode, status)
}

// HandleHealth returns the detailed health report. Partial component failure
// reports "degraded" but still answers 200.
func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	status, healthy, total := h.check(ctx)

	statusCode := http.StatusOK
	switch {
	case total > 0 && healthy == 0:
		status.Status = "unhealthy"
		statusCode = http.StatusServiceUnavailable
	case healthy < total:
		status.Status = "degraded"
	}

	writeJSON(w, statusCode, status)
}

func (h *Handler) check(ctx context.Context) (Status, int, int) {
	checks := make(map[string]ComponentHealth, len(h.components))
	healthy := 0

	for name, component := range h.components {
		result := h.checkComponent(ctx, name, component)
		checks[name] = result
		if result.Status == "healthy" {
			healthy++
		}
	}

	return Status{
		Status:    "healthy",
		Service:   h.serviceName,
		Version:   h.version,
		Uptime:    time.Since(h.startTime).String(),
		Timestamp: time.Now().Format(time.RFC3339),
		Checks:    checks,
	}, healthy, len(h.components)
}

func (h *Handler) checkComponent(ctx context.Context, name string, component Pinger) ComponentHealth {
	start := time.Now()
	err := component.Health(ctx)
	elapsed := time.Since(start)

	if err != nil {
		h.log.Errorw("Component health check failed",
			"check", name,
			"error", err,
			"elapsed", elapsed,
		)
		return ComponentHealth{
			Status:       "unhealthy",
			ResponseTime: elapsed.String(),
			Error:        err.Error(),
		}
	}

	return ComponentHealth{
		Status:       "healthy",
		ResponseTime: elapsed.String(),
	}
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
