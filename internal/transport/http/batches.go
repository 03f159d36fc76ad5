package httptransport

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"grobi/internal/sync/models"
)

// BatchState is the lifecycle of a submitted batch.
type BatchState string

const (
	BatchRunning   BatchState = "running"
	BatchCompleted BatchState = "completed"
	BatchFailed    BatchState = "failed"
)

// Progress mirrors the orchestrator's progress events for status polling.
type Progress struct {
	Current int    `json:"current"`
	Total   int    `json:"total"`
	Message string `json:"message,omitempty"`
}

// BatchRecord is the poll-able view of one batch. Completed and failed
// records stay in memory until the process exits; batches are operator
// actions, not high-volume traffic.
type BatchRecord struct {
	ID         uuid.UUID             `json:"batchId"`
	Facet      models.Facet          `json:"facet"`
	DryRun     bool                  `json:"dryRun"`
	State      BatchState            `json:"state"`
	Warnings   []string              `json:"warnings,omitempty"`
	Progress   Progress              `json:"progress"`
	Validation *models.DryRunSummary `json:"validation,omitempty"`
	Summary    *models.Summary       `json:"summary,omitempty"`
	Error      string                `json:"error,omitempty"`
	StartedAt  time.Time             `json:"startedAt"`
	FinishedAt *time.Time            `json:"finishedAt,omitempty"`
}

// batchRegistry tracks submitted batches and enforces the one-at-a-time
// model: a second submission while any batch runs is refused.
type batchRegistry struct {
	mu      sync.Mutex
	records map[uuid.UUID]*BatchRecord
	active  uuid.UUID
	cancel  context.CancelFunc
}

func newBatchRegistry() *batchRegistry {
	return &batchRegistry{records: make(map[uuid.UUID]*BatchRecord)}
}

// begin registers a new running batch, or reports false when one is already
// in flight.
func (br *batchRegistry) begin(record *BatchRecord, cancel context.CancelFunc) bool {
	br.mu.Lock()
	defer br.mu.Unlock()
	if br.active != uuid.Nil {
		return false
	}
	br.active = record.ID
	br.cancel = cancel
	br.records[record.ID] = record
	return true
}

// finish marks the active batch terminal and releases the run slot.
func (br *batchRegistry) finish(id uuid.UUID, summary *models.Summary, runErr error) {
	br.mu.Lock()
	defer br.mu.Unlock()
	record, ok := br.records[id]
	if !ok {
		return
	}
	now := time.Now().UTC()
	record.FinishedAt = &now
	record.Summary = summary
	if runErr != nil {
		record.State = BatchFailed
		record.Error = runErr.Error()
	} else {
		record.State = BatchCompleted
	}
	if br.active == id {
		br.active = uuid.Nil
		br.cancel = nil
	}
}

func (br *batchRegistry) update(id uuid.UUID, fn func(*BatchRecord)) {
	br.mu.Lock()
	defer br.mu.Unlock()
	if record, ok := br.records[id]; ok {
		fn(record)
	}
}

// snapshot returns a copy of the record so callers can marshal it without
// holding the lock.
func (br *batchRegistry) snapshot(id uuid.UUID) (BatchRecord, bool) {
	br.mu.Lock()
	defer br.mu.Unlock()
	record, ok := br.records[id]
	if !ok {
		return BatchRecord{}, false
	}
	return *record, true
}

// stop cancels the active batch, if any. Used on server shutdown;
// cancellation is cooperative and lands between identifiers.
func (br *batchRegistry) stop() {
	br.mu.Lock()
	defer br.mu.Unlock()
	if br.cancel != nil {
		br.cancel()
	}
}
