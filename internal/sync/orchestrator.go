package sync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"grobi/internal/audit"
	"grobi/internal/platform/metrics"
	"grobi/internal/registry"
	"grobi/internal/sync/models"
	"grobi/pkg/platform/sentinel"
)

// Config carries the orchestrator's behavioral switches. LocalSyncEnabled is
// an explicit field rather than ambient state so callers always know which
// mode a batch ran in.
type Config struct {
	LocalSyncEnabled bool
}

// Orchestrator runs desired-state batches against both stores. Identifiers
// are processed strictly sequentially: the local-then-remote ordering and
// the single-retry rule require one identifier's complete outcome before the
// next starts, and this also bounds remote load to one in-flight request.
type Orchestrator struct {
	registry Registry
	local    LocalStore
	cfg      Config
	logger   *slog.Logger
	metrics  *metrics.Metrics
	audit    audit.Publisher
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) {
		if logger != nil {
			o.logger = logger
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(o *Orchestrator) {
		o.metrics = m
	}
}

func WithAudit(p audit.Publisher) Option {
	return func(o *Orchestrator) {
		if p != nil {
			o.audit = p
		}
	}
}

// New constructs an orchestrator. local may be nil only when the config
// disables local synchronization.
func New(reg Registry, local LocalStore, cfg Config, opts ...Option) (*Orchestrator, error) {
	if reg == nil {
		return nil, fmt.Errorf("registry client is required")
	}
	if cfg.LocalSyncEnabled && local == nil {
		return nil, fmt.Errorf("local store is required when local synchronization is enabled")
	}
	o := &Orchestrator{
		registry: reg,
		local:    local,
		cfg:      cfg,
		logger:   slog.Default(),
		audit:    audit.Noop{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}
	return o, nil
}

// BatchRequest is one desired-state batch: one facet, one row set per
// identifier. When Events is non-nil the run sends its ordered event stream
// there and closes the channel on return; the caller must consume it.
type BatchRequest struct {
	ID     uuid.UUID
	Facet  models.Facet
	Items  []models.Item
	DryRun bool
	Events chan<- models.Event
}

// workItem is one identifier that passed validation with detected changes.
// The cached document is both the diff basis and the write basis.
type workItem struct {
	item models.Item
	doc  *registry.Document
}

// Run executes one batch. Fatal conditions (credentials rejected, network
// loss, local store configured on but unreachable) abort the whole batch
// with a top-level error; every other failure is scoped to its identifier
// and folded into the summary. Cancellation is cooperative and only observed
// between identifiers, never inside a local-transaction/remote-write pair.
func (o *Orchestrator) Run(ctx context.Context, req BatchRequest) (*models.Summary, error) {
	if req.Events != nil {
		defer close(req.Events)
	}

	strategy, err := StrategyFor(req.Facet)
	if err != nil {
		return nil, err
	}
	if len(req.Items) == 0 {
		return nil, fmt.Errorf("batch contains no identifiers")
	}

	batchID := req.ID
	if batchID == uuid.Nil {
		batchID = uuid.New()
	}
	summary := &models.Summary{BatchID: batchID, Facet: req.Facet}

	if o.metrics != nil {
		o.metrics.IncrementBatchesStarted()
	}
	o.logger.Info("batch started",
		"batch_id", batchID, "facet", req.Facet, "identifiers", len(req.Items), "dry_run", req.DryRun)

	if err := o.checkStores(ctx); err != nil {
		return nil, err
	}
	o.emit(req, models.Event{Kind: models.EventProgress, Total: len(req.Items), Message: "all required stores reachable"})

	pending, dry, err := o.validate(ctx, req, strategy, summary)
	if err != nil {
		return summary, err
	}
	o.emit(req, models.Event{Kind: models.EventValidation, DryRun: dry})

	if req.DryRun {
		o.logger.Info("dry run complete", "batch_id", batchID, "valid", dry.Valid, "invalid", dry.Invalid)
		o.emit(req, models.Event{Kind: models.EventSummary, Summary: summary})
		return summary, nil
	}

	for i, w := range pending {
		if err := ctx.Err(); err != nil {
			return summary, fmt.Errorf("batch cancelled: %w", err)
		}
		o.emit(req, models.Event{
			Kind:    models.EventProgress,
			Current: i + 1,
			Total:   len(pending),
			Message: fmt.Sprintf("updating %s", w.item.DOI),
		})

		outcome, fatal := o.apply(ctx, strategy, w)
		o.record(ctx, req, batchID, summary, outcome)
		if fatal != nil {
			o.logger.Error("batch aborted", "batch_id", batchID, "doi", w.item.DOI, "error", fatal)
			return summary, fatal
		}
	}

	o.logger.Info("batch complete",
		"batch_id", batchID, "updated", summary.Updated, "skipped", summary.Skipped, "failed", summary.Failed)
	o.emit(req, models.Event{Kind: models.EventSummary, Summary: summary})
	return summary, nil
}

// checkStores probes both stores before any identifier is touched. A store
// that is configured on but unreachable aborts the batch here, with nothing
// written anywhere.
func (o *Orchestrator) checkStores(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := o.registry.Ping(gctx); err != nil {
			return fmt.Errorf("remote registry unreachable: %w", err)
		}
		return nil
	})
	if o.cfg.LocalSyncEnabled {
		g.Go(func() error {
			if err := o.local.Ping(gctx); err != nil {
				return fmt.Errorf("local synchronization is enabled but the local database is unreachable; "+
					"check the database connection and credentials or disable local synchronization: %w", err)
			}
			return nil
		})
	}
	return g.Wait()
}

// validate fetches each identifier's document once and runs change
// detection. Unchanged identifiers are terminal here (skipped, no writes);
// changed ones return as work items carrying their cached document.
func (o *Orchestrator) validate(
	ctx context.Context,
	req BatchRequest,
	strategy Strategy,
	summary *models.Summary,
) ([]workItem, *models.DryRunSummary, error) {
	dry := &models.DryRunSummary{}
	var pending []workItem

	for i, item := range req.Items {
		if err := ctx.Err(); err != nil {
			return nil, dry, fmt.Errorf("batch cancelled: %w", err)
		}
		o.emit(req, models.Event{
			Kind:    models.EventProgress,
			Current: i + 1,
			Total:   len(req.Items),
			Message: fmt.Sprintf("validating %s", item.DOI),
		})

		doc, err := o.registry.Fetch(ctx, item.DOI)
		switch {
		case err == nil:
			// fall through to detection
		case errors.Is(err, sentinel.ErrUnauthorized), errors.Is(err, sentinel.ErrNetwork):
			return nil, dry, fmt.Errorf("batch aborted during validation: %w", err)
		case errors.Is(err, sentinel.ErrNotFound), errors.Is(err, sentinel.ErrTimeout):
			// A fetch timeout counts as not-found for validation purposes.
			dry.Invalid++
			msg := fmt.Sprintf("identifier %s not found or unreachable in registry", item.DOI)
			dry.Results = append(dry.Results, models.ValidationResult{DOI: item.DOI, Message: msg})
			o.record(ctx, req, summary.BatchID, summary, models.Outcome{DOI: item.DOI, Status: models.StatusNotFound, Message: msg})
			continue
		default:
			dry.Invalid++
			msg := fmt.Sprintf("registry fetch failed: %v", err)
			dry.Results = append(dry.Results, models.ValidationResult{DOI: item.DOI, Message: msg})
			o.record(ctx, req, summary.BatchID, summary, models.Outcome{DOI: item.DOI, Status: models.StatusFailedRemote, Message: msg})
			continue
		}

		changed, description := strategy.Detect(doc, item.Rows)
		dry.Valid++
		dry.Results = append(dry.Results, models.ValidationResult{
			DOI: item.DOI, Valid: true, Changed: changed, Message: description,
		})

		if !changed {
			o.record(ctx, req, summary.BatchID, summary, models.Outcome{DOI: item.DOI, Status: models.StatusSkipped, Message: description})
			continue
		}
		o.logger.Info("changes detected", "doi", item.DOI, "changes", description)
		pending = append(pending, workItem{item: item, doc: doc})
	}

	return pending, dry, nil
}

// apply runs the local-first write pair for one identifier. The returned
// error is non-nil only for batch-fatal conditions; everything else is
// expressed in the outcome.
func (o *Orchestrator) apply(ctx context.Context, strategy Strategy, w workItem) (models.Outcome, error) {
	doi := w.item.DOI
	localCommitted := false
	remoteOnly := false

	if o.cfg.LocalSyncEnabled {
		resourceID, err := o.local.Resolve(ctx, doi)
		switch {
		case errors.Is(err, sentinel.ErrNotFound):
			// Absent locally is a warning, not a failure: the registry leg
			// still runs, flagged in the final message.
			o.logger.Warn("identifier not found locally, updating registry only", "doi", doi)
			remoteOnly = true
		case err != nil:
			return models.Outcome{DOI: doi, Status: models.StatusFailedLocal,
				Message: fmt.Sprintf("local lookup failed: %v", err)}, nil
		default:
			if err := strategy.ApplyLocal(ctx, o.local, resourceID, w.item.Rows); err != nil {
				// The store rolled the transaction back; the registry write
				// must not happen, because the local store has no
				// compensating action once the registry has been written.
				return models.Outcome{DOI: doi, Status: models.StatusFailedLocal,
					Message: fmt.Sprintf("local update failed and was rolled back: %v", err)}, nil
			}
			localCommitted = true
		}
	}

	strategy.ApplyRemote(w.doc, w.item.Rows)

	err := o.registry.Write(ctx, doi, w.doc)
	if err == nil {
		return models.Outcome{DOI: doi, Status: models.StatusUpdated, Message: successMessage(o.cfg, remoteOnly, false)}, nil
	}
	if fatal(err) && !localCommitted {
		return models.Outcome{DOI: doi, Status: models.StatusFailedRemote,
			Message: fmt.Sprintf("registry update failed: %v", err)}, err
	}
	if !localCommitted {
		return models.Outcome{DOI: doi, Status: models.StatusFailedRemote,
			Message: fmt.Sprintf("registry update failed: %v", err)}, nil
	}

	// The local store has committed and cannot be compensated, so the remote
	// leg gets exactly one immediate retry before escalation.
	o.logger.Warn("registry write failed after local commit, retrying once", "doi", doi, "error", err)
	retryErr := o.registry.Write(ctx, doi, w.doc)
	if retryErr == nil {
		return models.Outcome{DOI: doi, Status: models.StatusUpdated, Message: successMessage(o.cfg, remoteOnly, true)}, nil
	}

	o.logger.Error("critical inconsistency: local committed, registry failed twice", "doi", doi, "error", retryErr)
	outcome := models.Outcome{
		DOI:    doi,
		Status: models.StatusInconsistent,
		Message: fmt.Sprintf(
			"critical inconsistency for %s: local store committed but registry update failed twice; "+
				"manual remediation required (last error: %v)", doi, retryErr),
	}
	if fatal(retryErr) {
		return outcome, retryErr
	}
	return outcome, nil
}

// record finalizes one identifier: summary counters, metrics, the outcome
// event and the audit trail.
func (o *Orchestrator) record(ctx context.Context, req BatchRequest, batchID uuid.UUID, summary *models.Summary, outcome models.Outcome) {
	switch {
	case outcome.Status == models.StatusUpdated:
		summary.Updated++
		if o.metrics != nil {
			o.metrics.IncrementUpdated()
		}
	case outcome.Status == models.StatusSkipped:
		summary.Skipped++
		summary.Skips = append(summary.Skips, outcome)
		if o.metrics != nil {
			o.metrics.IncrementSkipped()
		}
	case outcome.Failed():
		summary.Failed++
		summary.Failures = append(summary.Failures, outcome)
		if o.metrics != nil {
			o.metrics.IncrementFailed()
			if outcome.Status == models.StatusInconsistent {
				o.metrics.IncrementInconsistencies()
			}
		}
	}

	o.emit(req, models.Event{Kind: models.EventOutcome, Outcome: &outcome})

	event := audit.Event{
		Timestamp: time.Now().UTC(),
		BatchID:   batchID,
		Facet:     string(req.Facet),
		DOI:       outcome.DOI,
		Status:    string(outcome.Status),
		Message:   outcome.Message,
	}
	if err := o.audit.Emit(ctx, event); err != nil {
		o.logger.Warn("audit emit failed", "doi", outcome.DOI, "error", err)
	}
}

func (o *Orchestrator) emit(req BatchRequest, event models.Event) {
	if req.Events != nil {
		req.Events <- event
	}
}

// fatal reports conditions that must stop the whole batch: rejected
// credentials and loss of network connectivity.
func fatal(err error) bool {
	return errors.Is(err, sentinel.ErrUnauthorized) || errors.Is(err, sentinel.ErrNetwork)
}

func successMessage(cfg Config, remoteOnly, retried bool) string {
	switch {
	case !cfg.LocalSyncEnabled:
		msg := "registry updated (local synchronization disabled)"
		if retried {
			msg += " (registry succeeded on retry)"
		}
		return msg
	case remoteOnly:
		msg := "registry updated; identifier not found locally (remote-only update)"
		if retried {
			msg += " (registry succeeded on retry)"
		}
		return msg
	case retried:
		return "both stores updated (registry succeeded on retry)"
	default:
		return "both stores updated"
	}
}
