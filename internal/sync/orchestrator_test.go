package sync

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"grobi/internal/registry"
	"grobi/internal/sync/mocks"
	"grobi/internal/sync/models"
	"grobi/pkg/platform/sentinel"
)

// =============================================================================
// Orchestrator Test Suite
// =============================================================================
// Justification for unit tests: the orchestrator owns the cross-store
// ordering guarantees (local before remote, single remote retry, explicit
// inconsistency escalation). Those guarantees are about which collaborator is
// called when, which only mock expectations can verify precisely.

type OrchestratorSuite struct {
	suite.Suite
	ctrl         *gomock.Controller
	mockRegistry *mocks.MockRegistry
	mockLocal    *mocks.MockLocalStore
	orchestrator *Orchestrator
}

func TestOrchestratorSuite(t *testing.T) {
	suite.Run(t, new(OrchestratorSuite))
}

func (s *OrchestratorSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.mockRegistry = mocks.NewMockRegistry(s.ctrl)
	s.mockLocal = mocks.NewMockLocalStore(s.ctrl)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s.orchestrator, _ = New(
		s.mockRegistry,
		s.mockLocal,
		Config{LocalSyncEnabled: true},
		WithLogger(logger),
	)
}

func (s *OrchestratorSuite) TearDownTest() {
	s.ctrl.Finish()
}

const testDOI = "10.5880/GFZ.TEST.001"

// creatorDoc returns a registry document holding one personal creator.
func creatorDoc(name string) *registry.Document {
	return &registry.Document{
		DOI: testDOI,
		Attributes: map[string]any{
			"creators": []any{map[string]any{"name": name, "nameType": "Personal"}},
		},
	}
}

func creatorBatch(names ...string) BatchRequest {
	rows := make([]models.Entity, 0, len(names))
	for _, n := range names {
		rows = append(rows, models.Entity{Name: n, NameType: "Personal"})
	}
	return BatchRequest{
		ID:    uuid.New(),
		Facet: models.FacetCreators,
		Items: []models.Item{{DOI: testDOI, Rows: rows}},
	}
}

func (s *OrchestratorSuite) expectProbes() {
	s.mockRegistry.EXPECT().Ping(gomock.Any()).Return(nil)
	s.mockLocal.EXPECT().Ping(gomock.Any()).Return(nil)
}

// =============================================================================
// Constructor Tests
// =============================================================================

func (s *OrchestratorSuite) TestNew() {
	s.Run("nil registry returns error", func() {
		_, err := New(nil, s.mockLocal, Config{})
		s.Error(err)
		s.Contains(err.Error(), "registry client is required")
	})

	s.Run("nil local store rejected when local sync enabled", func() {
		_, err := New(s.mockRegistry, nil, Config{LocalSyncEnabled: true})
		s.Error(err)
		s.Contains(err.Error(), "local store is required")
	})

	s.Run("nil local store accepted when local sync disabled", func() {
		o, err := New(s.mockRegistry, nil, Config{LocalSyncEnabled: false})
		s.NoError(err)
		s.NotNil(o)
	})
}

// =============================================================================
// Batch Validation Phase
// =============================================================================

func (s *OrchestratorSuite) TestValidationPhase() {
	s.Run("unreachable local store aborts before any identifier", func() {
		s.mockRegistry.EXPECT().Ping(gomock.Any()).Return(nil)
		s.mockLocal.EXPECT().Ping(gomock.Any()).Return(fmt.Errorf("dial: %w", sentinel.ErrUnavailable))

		_, err := s.orchestrator.Run(context.Background(), creatorBatch("Smith, John"))
		s.Error(err)
		s.Contains(err.Error(), "local database is unreachable")
	})

	s.Run("rejected credentials during fetch abort the whole batch", func() {
		s.expectProbes()
		s.mockRegistry.EXPECT().Fetch(gomock.Any(), testDOI).
			Return(nil, fmt.Errorf("fetch: %w", sentinel.ErrUnauthorized))

		_, err := s.orchestrator.Run(context.Background(), creatorBatch("Smith, John"))
		s.ErrorIs(err, sentinel.ErrUnauthorized)
	})

	s.Run("unknown identifier fails alone and the batch continues", func() {
		s.expectProbes()
		req := creatorBatch("Smith, John")
		req.Items = append(req.Items, models.Item{
			DOI:  "10.5880/GFZ.TEST.002",
			Rows: []models.Entity{{Name: "Doe, Jane", NameType: "Personal"}},
		})

		s.mockRegistry.EXPECT().Fetch(gomock.Any(), testDOI).
			Return(nil, fmt.Errorf("fetch: %w", sentinel.ErrNotFound))
		s.mockRegistry.EXPECT().Fetch(gomock.Any(), "10.5880/GFZ.TEST.002").
			Return(creatorDoc("Doe, Jane"), nil)

		summary, err := s.orchestrator.Run(context.Background(), req)
		s.NoError(err)
		s.Equal(1, summary.Failed)
		s.Equal(1, summary.Skipped)
		s.Require().Len(summary.Failures, 1)
		s.Equal(models.StatusNotFound, summary.Failures[0].Status)
	})

	s.Run("empty batch is rejected", func() {
		_, err := s.orchestrator.Run(context.Background(), BatchRequest{Facet: models.FacetCreators})
		s.Error(err)
		s.Contains(err.Error(), "no identifiers")
	})

	s.Run("unknown facet is rejected", func() {
		_, err := s.orchestrator.Run(context.Background(), BatchRequest{Facet: "titles"})
		s.Error(err)
	})
}

// =============================================================================
// Skip Semantics
// =============================================================================

func (s *OrchestratorSuite) TestUnchangedIdentifierSkipsBothStores() {
	s.expectProbes()
	s.mockRegistry.EXPECT().Fetch(gomock.Any(), testDOI).Return(creatorDoc("Smith, John"), nil)
	// No Resolve, ReplaceCreators or Write expectations: any write attempt
	// for an unchanged identifier fails the test.

	summary, err := s.orchestrator.Run(context.Background(), creatorBatch("Smith, John"))
	s.NoError(err)
	s.Equal(0, summary.Updated)
	s.Equal(1, summary.Skipped)
	s.Require().Len(summary.Skips, 1)
	s.Contains(summary.Skips[0].Message, "no changes")
}

// =============================================================================
// Local-First Ordering
// =============================================================================

func (s *OrchestratorSuite) TestApplyOrdering() {
	s.Run("local failure rolls back and remote is never written", func() {
		s.expectProbes()
		s.mockRegistry.EXPECT().Fetch(gomock.Any(), testDOI).Return(creatorDoc("Old, Name"), nil)
		s.mockLocal.EXPECT().Resolve(gomock.Any(), testDOI).Return(int64(42), nil)
		s.mockLocal.EXPECT().ReplaceCreators(gomock.Any(), int64(42), gomock.Any()).
			Return(fmt.Errorf("replace creators: constraint violation"))

		summary, err := s.orchestrator.Run(context.Background(), creatorBatch("Smith, John"))
		s.NoError(err)
		s.Equal(1, summary.Failed)
		s.Require().Len(summary.Failures, 1)
		s.Equal(models.StatusFailedLocal, summary.Failures[0].Status)
		s.Contains(summary.Failures[0].Message, "constraint violation")
	})

	s.Run("identifier absent locally still updates the registry", func() {
		s.expectProbes()
		s.mockRegistry.EXPECT().Fetch(gomock.Any(), testDOI).Return(creatorDoc("Old, Name"), nil)
		s.mockLocal.EXPECT().Resolve(gomock.Any(), testDOI).
			Return(int64(0), fmt.Errorf("resolve: %w", sentinel.ErrNotFound))
		s.mockRegistry.EXPECT().Write(gomock.Any(), testDOI, gomock.Any()).Return(nil)

		summary, err := s.orchestrator.Run(context.Background(), creatorBatch("Smith, John"))
		s.NoError(err)
		s.Equal(1, summary.Updated)
	})

	s.Run("both stores updated on the happy path", func() {
		s.expectProbes()
		s.mockRegistry.EXPECT().Fetch(gomock.Any(), testDOI).Return(creatorDoc("Old, Name"), nil)
		gomock.InOrder(
			s.mockLocal.EXPECT().Resolve(gomock.Any(), testDOI).Return(int64(42), nil),
			s.mockLocal.EXPECT().ReplaceCreators(gomock.Any(), int64(42), gomock.Any()).Return(nil),
			s.mockRegistry.EXPECT().Write(gomock.Any(), testDOI, gomock.Any()).Return(nil),
		)

		summary, err := s.orchestrator.Run(context.Background(), creatorBatch("Smith, John"))
		s.NoError(err)
		s.Equal(1, summary.Updated)
		s.Equal(0, summary.Failed)
	})
}

// =============================================================================
// Remote Retry and Inconsistency Escalation
// =============================================================================

func (s *OrchestratorSuite) TestRemoteRetry() {
	s.Run("one retry after local commit then success", func() {
		s.expectProbes()
		s.mockRegistry.EXPECT().Fetch(gomock.Any(), testDOI).Return(creatorDoc("Old, Name"), nil)
		s.mockLocal.EXPECT().Resolve(gomock.Any(), testDOI).Return(int64(42), nil)
		s.mockLocal.EXPECT().ReplaceCreators(gomock.Any(), int64(42), gomock.Any()).Return(nil)
		gomock.InOrder(
			s.mockRegistry.EXPECT().Write(gomock.Any(), testDOI, gomock.Any()).
				Return(fmt.Errorf("write: %w", sentinel.ErrTimeout)),
			s.mockRegistry.EXPECT().Write(gomock.Any(), testDOI, gomock.Any()).Return(nil),
		)

		summary, err := s.orchestrator.Run(context.Background(), creatorBatch("Smith, John"))
		s.NoError(err)
		s.Equal(1, summary.Updated)
		s.Equal(0, summary.Failed)
	})

	s.Run("retry success message carries a retry marker", func() {
		s.expectProbes()
		s.mockRegistry.EXPECT().Fetch(gomock.Any(), testDOI).Return(creatorDoc("Old, Name"), nil)
		s.mockLocal.EXPECT().Resolve(gomock.Any(), testDOI).Return(int64(42), nil)
		s.mockLocal.EXPECT().ReplaceCreators(gomock.Any(), int64(42), gomock.Any()).Return(nil)
		gomock.InOrder(
			s.mockRegistry.EXPECT().Write(gomock.Any(), testDOI, gomock.Any()).
				Return(fmt.Errorf("write: %w", sentinel.ErrTimeout)),
			s.mockRegistry.EXPECT().Write(gomock.Any(), testDOI, gomock.Any()).Return(nil),
		)

		events := make(chan models.Event, 32)
		req := creatorBatch("Smith, John")
		req.Events = events

		_, err := s.orchestrator.Run(context.Background(), req)
		s.NoError(err)

		var outcome *models.Outcome
		for e := range events {
			if e.Kind == models.EventOutcome {
				outcome = e.Outcome
			}
		}
		s.Require().NotNil(outcome)
		s.Equal(models.StatusUpdated, outcome.Status)
		s.Contains(outcome.Message, "retry")
	})

	s.Run("no retry when local never committed", func() {
		s.expectProbes()
		s.mockRegistry.EXPECT().Fetch(gomock.Any(), testDOI).Return(creatorDoc("Old, Name"), nil)
		s.mockLocal.EXPECT().Resolve(gomock.Any(), testDOI).
			Return(int64(0), fmt.Errorf("resolve: %w", sentinel.ErrNotFound))
		s.mockRegistry.EXPECT().Write(gomock.Any(), testDOI, gomock.Any()).
			Return(fmt.Errorf("write: %w", sentinel.ErrTimeout)).Times(1)

		summary, err := s.orchestrator.Run(context.Background(), creatorBatch("Smith, John"))
		s.NoError(err)
		s.Equal(1, summary.Failed)
		s.Equal(models.StatusFailedRemote, summary.Failures[0].Status)
	})

	s.Run("double remote failure after local commit is an inconsistency", func() {
		s.expectProbes()
		req := creatorBatch("Smith, John")
		req.Items = append(req.Items, models.Item{
			DOI:  "10.5880/GFZ.TEST.002",
			Rows: []models.Entity{{Name: "Doe, Jane", NameType: "Personal"}},
		})

		s.mockRegistry.EXPECT().Fetch(gomock.Any(), testDOI).Return(creatorDoc("Old, Name"), nil)
		s.mockRegistry.EXPECT().Fetch(gomock.Any(), "10.5880/GFZ.TEST.002").
			Return(creatorDoc("Old, Name"), nil)

		s.mockLocal.EXPECT().Resolve(gomock.Any(), testDOI).Return(int64(42), nil)
		s.mockLocal.EXPECT().ReplaceCreators(gomock.Any(), int64(42), gomock.Any()).Return(nil)
		s.mockRegistry.EXPECT().Write(gomock.Any(), testDOI, gomock.Any()).
			Return(fmt.Errorf("write: %w", sentinel.ErrTimeout)).Times(2)

		// The batch must proceed to the second identifier.
		s.mockLocal.EXPECT().Resolve(gomock.Any(), "10.5880/GFZ.TEST.002").Return(int64(43), nil)
		s.mockLocal.EXPECT().ReplaceCreators(gomock.Any(), int64(43), gomock.Any()).Return(nil)
		s.mockRegistry.EXPECT().Write(gomock.Any(), "10.5880/GFZ.TEST.002", gomock.Any()).Return(nil)

		summary, err := s.orchestrator.Run(context.Background(), req)
		s.NoError(err)
		s.Equal(1, summary.Updated)
		s.Equal(1, summary.Failed)
		s.Require().Len(summary.Failures, 1)
		s.Equal(models.StatusInconsistent, summary.Failures[0].Status)
		s.Contains(summary.Failures[0].Message, testDOI)
		s.Contains(summary.Failures[0].Message, "local store committed")
		s.Contains(summary.Failures[0].Message, "failed twice")
	})
}

// =============================================================================
// Dry Run
// =============================================================================

func (s *OrchestratorSuite) TestDryRun() {
	s.Run("reports detected changes without writing anywhere", func() {
		s.expectProbes()
		s.mockRegistry.EXPECT().Fetch(gomock.Any(), testDOI).Return(creatorDoc("Old, Name"), nil)

		events := make(chan models.Event, 32)
		req := creatorBatch("Smith, John")
		req.DryRun = true
		req.Events = events

		summary, err := s.orchestrator.Run(context.Background(), req)
		s.NoError(err)
		s.Equal(0, summary.Updated)
		s.Equal(0, summary.Failed)

		var validation *models.DryRunSummary
		for e := range events {
			if e.Kind == models.EventValidation {
				validation = e.DryRun
			}
		}
		s.Require().NotNil(validation)
		s.Equal(1, validation.Valid)
		s.Require().Len(validation.Results, 1)
		s.True(validation.Results[0].Changed)
	})
}

// =============================================================================
// Remote-Only Mode
// =============================================================================

func (s *OrchestratorSuite) TestLocalSyncDisabled() {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	orchestrator, err := New(s.mockRegistry, nil, Config{LocalSyncEnabled: false}, WithLogger(logger))
	s.Require().NoError(err)

	s.mockRegistry.EXPECT().Ping(gomock.Any()).Return(nil)
	s.mockRegistry.EXPECT().Fetch(gomock.Any(), testDOI).Return(creatorDoc("Old, Name"), nil)
	s.mockRegistry.EXPECT().Write(gomock.Any(), testDOI, gomock.Any()).Return(nil)

	summary, err := orchestrator.Run(context.Background(), creatorBatch("Smith, John"))
	s.NoError(err)
	s.Equal(1, summary.Updated)
}

// =============================================================================
// Cancellation
// =============================================================================

func (s *OrchestratorSuite) TestCancellationBetweenIdentifiers() {
	s.expectProbes()

	ctx, cancel := context.WithCancel(context.Background())
	req := creatorBatch("Smith, John")
	req.Items = append(req.Items, models.Item{
		DOI:  "10.5880/GFZ.TEST.002",
		Rows: []models.Entity{{Name: "Doe, Jane", NameType: "Personal"}},
	})

	s.mockRegistry.EXPECT().Fetch(gomock.Any(), testDOI).Return(creatorDoc("Old, Name"), nil)
	s.mockRegistry.EXPECT().Fetch(gomock.Any(), "10.5880/GFZ.TEST.002").
		Return(creatorDoc("Old, Name"), nil)

	// Cancel while the first identifier is being applied: the second must
	// never start.
	s.mockLocal.EXPECT().Resolve(gomock.Any(), testDOI).
		DoAndReturn(func(context.Context, string) (int64, error) {
			cancel()
			return 42, nil
		})
	s.mockLocal.EXPECT().ReplaceCreators(gomock.Any(), int64(42), gomock.Any()).Return(nil)
	s.mockRegistry.EXPECT().Write(gomock.Any(), testDOI, gomock.Any()).Return(nil)

	summary, err := s.orchestrator.Run(ctx, req)
	s.Error(err)
	s.Contains(err.Error(), "cancelled")
	s.Equal(1, summary.Updated)
}
