// Package httptransport is the thin HTTP layer over the sync engine. It
// delegates to the orchestrator without embedding batch logic so transport
// concerns stay isolated.
package httptransport

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"grobi/internal/sync"
	syncmodels "grobi/internal/sync/models"
	"grobi/internal/sync/source"
	"grobi/pkg/platform/httputil"
	"grobi/pkg/platform/sentinel"
	"grobi/pkg/requestcontext"
)

// Runner executes one desired-state batch.
type Runner interface {
	Run(ctx context.Context, req sync.BatchRequest) (*syncmodels.Summary, error)
}

// Handler wires the sync endpoints to the orchestrator.
type Handler struct {
	runner  Runner
	source  source.Source
	logger  *slog.Logger
	batches *batchRegistry
}

// New constructs the HTTP handler.
func New(runner Runner, src source.Source, logger *slog.Logger) *Handler {
	return &Handler{
		runner:  runner,
		source:  src,
		logger:  logger,
		batches: newBatchRegistry(),
	}
}

// Shutdown cancels the running batch, if any. The batch observes the
// cancellation between identifiers and finishes its current one first.
func (h *Handler) Shutdown() {
	h.batches.stop()
}

// handleSubmitBatch handles POST /sync/batches. The facet query parameter
// selects the aspect; dry_run=true validates and detects changes without
// writing. Dry runs respond synchronously; real runs return 202 and are
// polled via the status endpoint.
func (h *Handler) handleSubmitBatch(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	facet := syncmodels.Facet(r.URL.Query().Get("facet"))
	if !facet.Valid() {
		httputil.WriteBadRequest(w, "facet must be one of: creators, contributors, publisher")
		return
	}
	dryRun := r.URL.Query().Get("dry_run") == "true"

	items, warnings, err := h.source.Parse(facet, r.Body)
	if err != nil {
		h.logger.WarnContext(ctx, "batch document rejected",
			"request_id", requestID, "facet", facet, "error", err)
		httputil.WriteBadRequest(w, err.Error())
		return
	}

	record := &BatchRecord{
		ID:        uuid.New(),
		Facet:     facet,
		DryRun:    dryRun,
		State:     BatchRunning,
		Warnings:  warnings,
		StartedAt: time.Now().UTC(),
	}

	// The batch must outlive the HTTP request; shutdown cancels it instead.
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	if !h.batches.begin(record, cancel) {
		cancel()
		httputil.WriteJSON(w, http.StatusConflict, map[string]string{
			"error": "a batch is already running; retry after it completes",
		})
		return
	}

	events := make(chan syncmodels.Event, 16)
	done := make(chan struct{})
	go h.consumeEvents(record.ID, events, done)

	req := sync.BatchRequest{
		ID:     record.ID,
		Facet:  facet,
		Items:  items,
		DryRun: dryRun,
		Events: events,
	}

	h.logger.InfoContext(ctx, "batch submitted",
		"request_id", requestID, "batch_id", record.ID, "facet", facet,
		"identifiers", len(items), "dry_run", dryRun)

	if dryRun {
		summary, runErr := h.runner.Run(runCtx, req)
		<-done
		h.batches.finish(record.ID, summary, runErr)
		cancel()
		if runErr != nil {
			// An aborted dry run carries the store taxonomy: unreachable
			// local database maps to 503, registry auth/network to 502.
			httputil.WriteError(w, runErr)
			return
		}
		snapshot, _ := h.batches.snapshot(record.ID)
		httputil.WriteJSON(w, http.StatusOK, snapshot)
		return
	}

	go func() {
		defer cancel()
		summary, runErr := h.runner.Run(runCtx, req)
		<-done
		h.batches.finish(record.ID, summary, runErr)
		if runErr != nil {
			h.logger.Error("batch failed", "batch_id", record.ID, "error", runErr)
		}
	}()

	httputil.WriteJSON(w, http.StatusAccepted, map[string]string{
		"batchId": record.ID.String(),
		"status":  string(BatchRunning),
	})
}

// handleBatchStatus handles GET /sync/batches/{id}.
func (h *Handler) handleBatchStatus(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteBadRequest(w, "batch id must be a UUID")
		return
	}
	record, ok := h.batches.snapshot(id)
	if !ok {
		httputil.WriteError(w, fmt.Errorf("batch %s: %w", id, sentinel.ErrNotFound))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, record)
}

func (h *Handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// consumeEvents folds the orchestrator's ordered event stream into the
// poll-able batch record. It returns when the orchestrator closes the
// channel, which happens before Run returns.
func (h *Handler) consumeEvents(id uuid.UUID, events <-chan syncmodels.Event, done chan<- struct{}) {
	defer close(done)
	for event := range events {
		switch event.Kind {
		case syncmodels.EventProgress:
			h.batches.update(id, func(r *BatchRecord) {
				r.Progress = Progress{Current: event.Current, Total: event.Total, Message: event.Message}
			})
		case syncmodels.EventValidation:
			h.batches.update(id, func(r *BatchRecord) {
				r.Validation = event.DryRun
			})
		case syncmodels.EventOutcome:
			if event.Outcome != nil {
				h.logger.Info("identifier processed",
					"batch_id", id, "doi", event.Outcome.DOI,
					"status", event.Outcome.Status, "detail", event.Outcome.Message)
			}
		case syncmodels.EventSummary:
			h.batches.update(id, func(r *BatchRecord) {
				r.Summary = event.Summary
			})
		}
	}
}
