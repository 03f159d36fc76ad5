// Package models holds the shared types of the dual-store sync engine.
package models

import "github.com/google/uuid"

// Facet selects which metadata aspect a batch run edits. Each facet carries
// its own comparison and update rules.
type Facet string

const (
	FacetCreators     Facet = "creators"
	FacetContributors Facet = "contributors"
	FacetPublisher    Facet = "publisher"
)

// Valid reports whether the facet is one of the three editable aspects.
func (f Facet) Valid() bool {
	switch f {
	case FacetCreators, FacetContributors, FacetPublisher:
		return true
	}
	return false
}

// Entity is one desired-state row for an identifier. Creators and
// contributors use the name fields; the publisher facet uses Name,
// Identifier, IdentifierScheme, SchemeURI and Lang. Email, Website and
// Position exist only in the local store and are never sent to the
// registry.
type Entity struct {
	Name             string   `json:"name"`
	NameType         string   `json:"nameType,omitempty"`
	GivenName        string   `json:"givenName,omitempty"`
	FamilyName       string   `json:"familyName,omitempty"`
	Identifier       string   `json:"identifier,omitempty"`
	IdentifierScheme string   `json:"identifierScheme,omitempty"`
	SchemeURI        string   `json:"schemeUri,omitempty"`
	Lang             string   `json:"lang,omitempty"`
	ContributorTypes []string `json:"contributorTypes,omitempty"`

	Email    string `json:"email,omitempty"`
	Website  string `json:"website,omitempty"`
	Position string `json:"position,omitempty"`
}

// HasLocalOnlyFields reports whether the entity carries attributes that only
// the local store persists.
func (e Entity) HasLocalOnlyFields() bool {
	return e.Email != "" || e.Website != "" || e.Position != ""
}

// Item is one identifier with its desired rows, in submission order.
type Item struct {
	DOI  string   `json:"doi"`
	Rows []Entity `json:"rows"`
}

// Status classifies the terminal state of one identifier within a batch.
type Status string

const (
	StatusUpdated      Status = "updated"
	StatusSkipped      Status = "skipped-unchanged"
	StatusNotFound     Status = "failed-not-found"
	StatusFailedLocal  Status = "failed-local"
	StatusFailedRemote Status = "failed-remote"
	StatusInconsistent Status = "inconsistent"
)

// Outcome is the terminal state of one identifier plus a message precise
// enough for manual remediation.
type Outcome struct {
	DOI     string `json:"doi"`
	Status  Status `json:"status"`
	Message string `json:"message"`
}

// Failed reports whether the outcome counts against the batch.
func (o Outcome) Failed() bool {
	switch o.Status {
	case StatusNotFound, StatusFailedLocal, StatusFailedRemote, StatusInconsistent:
		return true
	}
	return false
}

// ValidationResult is one identifier's dry-run verdict.
type ValidationResult struct {
	DOI     string `json:"doi"`
	Valid   bool   `json:"valid"`
	Changed bool   `json:"changed"`
	Message string `json:"message"`
}

// DryRunSummary aggregates the validation phase of a batch.
type DryRunSummary struct {
	Valid   int                `json:"valid"`
	Invalid int                `json:"invalid"`
	Results []ValidationResult `json:"results"`
}

// Summary is the final report of a batch run.
type Summary struct {
	BatchID  uuid.UUID `json:"batchId"`
	Facet    Facet     `json:"facet"`
	Updated  int       `json:"updated"`
	Failed   int       `json:"failed"`
	Skipped  int       `json:"skipped"`
	Failures []Outcome `json:"failures,omitempty"`
	Skips    []Outcome `json:"skips,omitempty"`
}

// EventKind tags entries of the ordered batch event stream.
type EventKind string

const (
	EventProgress   EventKind = "progress"
	EventValidation EventKind = "validation"
	EventOutcome    EventKind = "outcome"
	EventSummary    EventKind = "summary"
)

// Event is one entry of the ordered stream a batch run emits. Exactly one of
// Outcome, DryRun and Summary is set depending on Kind; progress events use
// Current, Total and Message.
type Event struct {
	Kind    EventKind      `json:"kind"`
	Current int            `json:"current,omitempty"`
	Total   int            `json:"total,omitempty"`
	Message string         `json:"message,omitempty"`
	Outcome *Outcome       `json:"outcome,omitempty"`
	DryRun  *DryRunSummary `json:"dryRun,omitempty"`
	Summary *Summary       `json:"summary,omitempty"`
}

// AgentRow is one local-store row for a facet update. Seq is the explicit
// order the row keeps inside its facet; Roles carries the role tags the row
// is inserted under.
type AgentRow struct {
	Seq              int
	Name             string
	FirstName        string
	LastName         string
	Identifier       string
	IdentifierScheme string
	NameType         string
	Roles            []string

	Email    string
	Website  string
	Position string
}
