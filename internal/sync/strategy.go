package sync

import (
	"context"
	"fmt"
	"strings"

	"grobi/internal/localstore"
	"grobi/internal/registry"
	"grobi/internal/sync/models"
)

// Strategy bundles the per-facet behavior the orchestrator is parameterized
// with: change detection against the fetched document, the local row
// replacement, and reshaping desired rows into registry field conventions on
// the cached document.
type Strategy interface {
	Facet() models.Facet
	Detect(doc *registry.Document, desired []models.Entity) (changed bool, description string)
	ApplyLocal(ctx context.Context, store LocalStore, resourceID int64, desired []models.Entity) error
	ApplyRemote(doc *registry.Document, desired []models.Entity)
}

// StrategyFor returns the strategy implementing one facet's rules.
func StrategyFor(facet models.Facet) (Strategy, error) {
	switch facet {
	case models.FacetCreators:
		return creatorsStrategy{}, nil
	case models.FacetContributors:
		return contributorsStrategy{}, nil
	case models.FacetPublisher:
		return publisherStrategy{}, nil
	default:
		return nil, fmt.Errorf("unknown facet %q", facet)
	}
}

type creatorsStrategy struct{}

func (creatorsStrategy) Facet() models.Facet { return models.FacetCreators }

func (creatorsStrategy) Detect(doc *registry.Document, desired []models.Entity) (bool, string) {
	return detectCreatorChanges(doc, desired)
}

func (creatorsStrategy) ApplyLocal(ctx context.Context, store LocalStore, resourceID int64, desired []models.Entity) error {
	rows := make([]models.AgentRow, 0, len(desired))
	for i, e := range desired {
		row := agentRow(i+1, e)
		row.Roles = []string{localstore.RoleCreator}
		rows = append(rows, row)
	}
	return store.ReplaceCreators(ctx, resourceID, rows)
}

func (creatorsStrategy) ApplyRemote(doc *registry.Document, desired []models.Entity) {
	list := make([]any, 0, len(desired))
	for _, e := range desired {
		list = append(list, agentObject(e, ""))
	}
	doc.Attributes["creators"] = list
}

type contributorsStrategy struct{}

func (contributorsStrategy) Facet() models.Facet { return models.FacetContributors }

func (contributorsStrategy) Detect(doc *registry.Document, desired []models.Entity) (bool, string) {
	return detectContributorChanges(doc, desired)
}

func (contributorsStrategy) ApplyLocal(ctx context.Context, store LocalStore, resourceID int64, desired []models.Entity) error {
	rows := make([]models.AgentRow, 0, len(desired))
	for i, e := range desired {
		row := agentRow(i+1, e)
		row.Roles = e.ContributorTypes
		row.Email = e.Email
		row.Website = e.Website
		row.Position = e.Position
		rows = append(rows, row)
	}
	return store.ReplaceContributors(ctx, resourceID, rows)
}

func (contributorsStrategy) ApplyRemote(doc *registry.Document, desired []models.Entity) {
	list := make([]any, 0, len(desired))
	for _, e := range desired {
		// The registry stores one type per contributor; secondary types and
		// the contact attributes stay local.
		role := ""
		if len(e.ContributorTypes) > 0 {
			role = e.ContributorTypes[0]
		}
		list = append(list, agentObject(e, role))
	}
	doc.Attributes["contributors"] = list
}

type publisherStrategy struct{}

func (publisherStrategy) Facet() models.Facet { return models.FacetPublisher }

func (publisherStrategy) Detect(doc *registry.Document, desired []models.Entity) (bool, string) {
	return detectPublisherChanges(doc, desired)
}

func (publisherStrategy) ApplyLocal(ctx context.Context, store LocalStore, resourceID int64, desired []models.Entity) error {
	if len(desired) == 0 {
		return fmt.Errorf("publisher update requires one entity")
	}
	return store.UpdatePublisher(ctx, resourceID, desired[0].Name)
}

func (publisherStrategy) ApplyRemote(doc *registry.Document, desired []models.Entity) {
	if len(desired) == 0 {
		return
	}
	e := desired[0]
	publisher := map[string]any{"name": e.Name}
	if e.Identifier != "" {
		publisher["publisherIdentifier"] = e.Identifier
	}
	if e.IdentifierScheme != "" {
		publisher["publisherIdentifierScheme"] = e.IdentifierScheme
	}
	if e.SchemeURI != "" {
		publisher["schemeUri"] = e.SchemeURI
	}
	if e.Lang != "" {
		publisher["lang"] = e.Lang
	}
	doc.Attributes["publisher"] = publisher
}

// agentRow converts a desired entity into the local store's row shape. The
// local schema stores the bare identifier token and a "Lastname, Firstname"
// display name.
func agentRow(seq int, e models.Entity) models.AgentRow {
	lastName := e.FamilyName
	if lastName == "" {
		lastName = e.Name
	}
	name := e.Name
	if name == "" {
		name = lastName
		if e.GivenName != "" {
			name = lastName + ", " + e.GivenName
		}
	}
	id := NormalizeIdentifier(strings.TrimSpace(e.Identifier))
	scheme := e.IdentifierScheme
	if id != "" && scheme == "" {
		scheme = "ORCID"
	}
	return models.AgentRow{
		Seq:              seq,
		Name:             name,
		FirstName:        e.GivenName,
		LastName:         lastName,
		Identifier:       id,
		IdentifierScheme: scheme,
		NameType:         defaultPersonal(e.NameType),
	}
}

// agentObject reshapes a desired entity into the registry's agent
// conventions. Local-only attributes are never included.
func agentObject(e models.Entity, contributorType string) map[string]any {
	obj := map[string]any{
		"name":     e.Name,
		"nameType": defaultPersonal(e.NameType),
	}
	if obj["nameType"] == nameTypePersonal {
		if e.GivenName != "" {
			obj["givenName"] = e.GivenName
		}
		if e.FamilyName != "" {
			obj["familyName"] = e.FamilyName
		}
	}
	if contributorType != "" {
		obj["contributorType"] = contributorType
	}
	if e.Identifier != "" {
		scheme := e.IdentifierScheme
		if scheme == "" {
			scheme = "ORCID"
		}
		schemeURI := e.SchemeURI
		if schemeURI == "" {
			schemeURI = "https://orcid.org"
		}
		obj["nameIdentifiers"] = []any{map[string]any{
			"nameIdentifier":       e.Identifier,
			"nameIdentifierScheme": scheme,
			"schemeUri":            schemeURI,
		}}
	}
	return obj
}
