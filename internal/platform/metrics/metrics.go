package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the sync engine.
type Metrics struct {
	IdentifiersUpdated  prometheus.Counter
	IdentifiersSkipped  prometheus.Counter
	IdentifiersFailed   prometheus.Counter
	InconsistenciesSeen prometheus.Counter
	SchemaUpgrades      prometheus.Counter
	BatchesStarted      prometheus.Counter
}

// New creates and registers all Prometheus metrics.
func New() *Metrics {
	return &Metrics{
		IdentifiersUpdated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "grobi_sync_identifiers_updated_total",
			Help: "Total number of identifiers updated in both stores",
		}),
		IdentifiersSkipped: promauto.NewCounter(prometheus.CounterOpts{
			Name: "grobi_sync_identifiers_skipped_total",
			Help: "Total number of identifiers skipped because no change was detected",
		}),
		IdentifiersFailed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "grobi_sync_identifiers_failed_total",
			Help: "Total number of identifiers that failed during a batch run",
		}),
		InconsistenciesSeen: promauto.NewCounter(prometheus.CounterOpts{
			Name: "grobi_sync_inconsistencies_total",
			Help: "Total number of local-committed-remote-failed divergences needing manual remediation",
		}),
		SchemaUpgrades: promauto.NewCounter(prometheus.CounterOpts{
			Name: "grobi_registry_schema_upgrades_total",
			Help: "Total number of automatic legacy schema repairs attempted on registry writes",
		}),
		BatchesStarted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "grobi_sync_batches_started_total",
			Help: "Total number of batch runs started",
		}),
	}
}

func (m *Metrics) IncrementUpdated()         { m.IdentifiersUpdated.Inc() }
func (m *Metrics) IncrementSkipped()         { m.IdentifiersSkipped.Inc() }
func (m *Metrics) IncrementFailed()          { m.IdentifiersFailed.Inc() }
func (m *Metrics) IncrementInconsistencies() { m.InconsistenciesSeen.Inc() }
func (m *Metrics) IncrementSchemaUpgrades()  { m.SchemaUpgrades.Inc() }
func (m *Metrics) IncrementBatchesStarted()  { m.BatchesStarted.Inc() }
