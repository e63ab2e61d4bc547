package health

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"admissions-service/common/httputil"
	"admissions-service/common/metrics"

	"github.com/go-chi/chi/v5"
)

const checkTimeout = 2 * time.Second

// Checker probes one dependency.
type Checker func(ctx context.Context) error

type Handler struct {
	checks  map[string]Checker
	metrics *metrics.Metrics
	logger  *slog.Logger
}

func NewHandler(m *metrics.Metrics, logger *slog.Logger) *Handler {
	return &Handler{
		checks:  make(map[string]Checker),
		metrics: m,
		logger:  logger,
	}
}

// AddCheck registers a dependency consulted by /ready.
func (h *Handler) AddCheck(name string, check Checker) {
	h.checks[name] = check
}

func (h *Handler) Dependencies() []string {
	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	return names
}

func (h *Handler) RegisterRoutes(router chi.Router) {
	router.Get("/health", h.Health)
	router.Get("/ready", h.Ready)
}

type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	httputil.RespondWithJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), checkTimeout)
	defer cancel()

	resp := HealthResponse{Status: "ready"}
	code := http.StatusOK
	if len(h.checks) > 0 {
		resp.Checks = make(map[string]string, len(h.checks))
	}

	for name, check := range h.checks {
		start := time.Now()
		err := check(ctx)
		h.metrics.Health.RecordDependencyCheck(ctx, name, time.Since(start), err)

		if err != nil {
			h.logger.WarnContext(ctx, "readiness check failed", "dependency", name, "error", err)
			resp.Checks[name] = "unavailable"
			resp.Status = "not ready"
			code = http.StatusServiceUnavailable
			continue
		}
		resp.Checks[name] = "ok"
	}

	httputil.RespondWithJSON(w, code, resp)
}
