package sync

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"grobi/internal/registry"
	"grobi/internal/sync/mocks"
	"grobi/internal/sync/models"
)

// =============================================================================
// Facet Strategy Test Suite
// =============================================================================
// Justification for unit tests: strategies translate one desired row set into
// two very different shapes (local rows, registry attribute objects). The
// translation rules, ordering, role tagging, identifier normalization and the
// local-only attribute boundary, are pure logic pinned here.

type StrategySuite struct {
	suite.Suite
	ctrl      *gomock.Controller
	mockLocal *mocks.MockLocalStore
}

func TestStrategySuite(t *testing.T) {
	suite.Run(t, new(StrategySuite))
}

func (s *StrategySuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.mockLocal = mocks.NewMockLocalStore(s.ctrl)
}

func (s *StrategySuite) TearDownTest() {
	s.ctrl.Finish()
}

func (s *StrategySuite) TestStrategyFor() {
	for _, facet := range []models.Facet{models.FacetCreators, models.FacetContributors, models.FacetPublisher} {
		strategy, err := StrategyFor(facet)
		s.NoError(err)
		s.Equal(facet, strategy.Facet())
	}

	_, err := StrategyFor("titles")
	s.Error(err)
}

// =============================================================================
// Creators
// =============================================================================

func (s *StrategySuite) TestCreatorsApplyLocal() {
	strategy, _ := StrategyFor(models.FacetCreators)

	var got []models.AgentRow
	s.mockLocal.EXPECT().ReplaceCreators(gomock.Any(), int64(7), gomock.Any()).
		DoAndReturn(func(_ context.Context, _ int64, rows []models.AgentRow) error {
			got = rows
			return nil
		})

	err := strategy.ApplyLocal(context.Background(), s.mockLocal, 7, []models.Entity{
		{Name: "Smith, John", GivenName: "John", FamilyName: "Smith",
			Identifier: "https://orcid.org/0000-0001-5000-0007"},
		{Name: "GFZ Data Services", NameType: "Organizational"},
	})
	s.Require().NoError(err)
	s.Require().Len(got, 2)

	s.Equal(1, got[0].Seq)
	s.Equal(2, got[1].Seq)
	s.Equal([]string{"Creator"}, got[0].Roles)
	s.Equal("0000-0001-5000-0007", got[0].Identifier, "stored identifier is the bare token")
	s.Equal("ORCID", got[0].IdentifierScheme)
	s.Equal("Organizational", got[1].NameType)
	s.Empty(got[1].Identifier)
}

func (s *StrategySuite) TestCreatorsApplyRemote() {
	strategy, _ := StrategyFor(models.FacetCreators)
	doc := &registry.Document{Attributes: map[string]any{"creators": []any{}}}

	strategy.ApplyRemote(doc, []models.Entity{
		{Name: "Smith, John", GivenName: "John", FamilyName: "Smith", Identifier: "0000-0001-5000-0007"},
	})

	creators := doc.Creators()
	s.Require().Len(creators, 1)
	s.Equal("Smith, John", creators[0].Name)
	s.Equal("Personal", creators[0].NameType)
	s.Equal("0000-0001-5000-0007", creators[0].Identifier)
	s.Equal("ORCID", creators[0].IdentifierScheme)
	s.Equal("https://orcid.org", creators[0].SchemeURI)
}

// =============================================================================
// Contributors
// =============================================================================

func (s *StrategySuite) TestContributorsApplyLocal() {
	strategy, _ := StrategyFor(models.FacetContributors)

	var got []models.AgentRow
	s.mockLocal.EXPECT().ReplaceContributors(gomock.Any(), int64(7), gomock.Any()).
		DoAndReturn(func(_ context.Context, _ int64, rows []models.AgentRow) error {
			got = rows
			return nil
		})

	err := strategy.ApplyLocal(context.Background(), s.mockLocal, 7, []models.Entity{{
		Name: "Doe, Jane", GivenName: "Jane", FamilyName: "Doe",
		ContributorTypes: []string{"ContactPerson", "DataCurator"},
		Email:            "jane.doe@gfz.de",
		Position:         "Data Steward",
	}})
	s.Require().NoError(err)
	s.Require().Len(got, 1)

	s.Equal([]string{"ContactPerson", "DataCurator"}, got[0].Roles, "all types become local roles")
	s.Equal("jane.doe@gfz.de", got[0].Email)
	s.Equal("Data Steward", got[0].Position)
}

func (s *StrategySuite) TestContributorsApplyRemote() {
	strategy, _ := StrategyFor(models.FacetContributors)
	doc := &registry.Document{Attributes: map[string]any{}}

	strategy.ApplyRemote(doc, []models.Entity{{
		Name: "Doe, Jane", GivenName: "Jane", FamilyName: "Doe",
		ContributorTypes: []string{"ContactPerson", "DataCurator"},
		Email:            "jane.doe@gfz.de",
		Website:          "https://example.org/jane",
	}})

	list, _ := doc.Attributes["contributors"].([]any)
	s.Require().Len(list, 1)
	obj, _ := list[0].(map[string]any)

	s.Equal("ContactPerson", obj["contributorType"], "only the first type goes to the registry")
	s.NotContains(obj, "email", "contact attributes never leave the local store")
	s.NotContains(obj, "website")
	s.NotContains(obj, "position")
}

// =============================================================================
// Publisher
// =============================================================================

func (s *StrategySuite) TestPublisherApplyLocal() {
	strategy, _ := StrategyFor(models.FacetPublisher)

	s.Run("updates the publisher name", func() {
		s.mockLocal.EXPECT().UpdatePublisher(gomock.Any(), int64(7), "GFZ Data Services").Return(nil)
		err := strategy.ApplyLocal(context.Background(), s.mockLocal, 7, []models.Entity{{Name: "GFZ Data Services"}})
		s.NoError(err)
	})

	s.Run("rejects an empty desired list", func() {
		err := strategy.ApplyLocal(context.Background(), s.mockLocal, 7, nil)
		s.Error(err)
	})
}

func (s *StrategySuite) TestPublisherApplyRemote() {
	strategy, _ := StrategyFor(models.FacetPublisher)
	doc := &registry.Document{Attributes: map[string]any{"publisher": "GFZ"}}

	strategy.ApplyRemote(doc, []models.Entity{{
		Name:             "GFZ Data Services",
		Identifier:       "https://ror.org/04z8jg394",
		IdentifierScheme: "ROR",
		SchemeURI:        "https://ror.org",
		Lang:             "en",
	}})

	publisher := doc.Publisher()
	s.Equal("GFZ Data Services", publisher.Name)
	s.Equal("ROR", publisher.Scheme)
	s.Equal("en", publisher.Lang)

	// Empty optional fields stay absent rather than serializing as "".
	doc2 := &registry.Document{Attributes: map[string]any{}}
	strategy.ApplyRemote(doc2, []models.Entity{{Name: "GFZ Data Services"}})
	obj, _ := doc2.Attributes["publisher"].(map[string]any)
	s.NotContains(obj, "lang")
	s.NotContains(obj, "publisherIdentifier")
}
