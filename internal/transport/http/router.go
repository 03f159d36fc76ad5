package httptransport

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"grobi/internal/platform/middleware"
)

// NewRouter wires all endpoints. Batch submission carries no request
// timeout: the handler detaches the run from the request context and the
// status endpoint serves polling.
func NewRouter(h *Handler, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.Logger(logger))

	r.Post("/sync/batches", h.handleSubmitBatch)

	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(10 * time.Second))
		r.Get("/sync/batches/{id}", h.handleBatchStatus)
		r.Get("/healthz", h.handleHealth)
	})

	r.Method(http.MethodGet, "/metrics", promhttp.Handler())
	return r
}
