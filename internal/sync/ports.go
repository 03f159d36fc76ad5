// Package sync drives the dual-store synchronization of research-output
// metadata: it detects changes per identifier against the live registry
// document and applies them local-first with a bounded compensating retry on
// the remote leg.
package sync

//go:generate mockgen -source=ports.go -destination=mocks/mocks.go -package=mocks

import (
	"context"

	"grobi/internal/registry"
	"grobi/internal/sync/models"
)

// Registry is the remote metadata store for batch runs.
type Registry interface {
	// Fetch retrieves one identifier's full document.
	Fetch(ctx context.Context, doi string) (*registry.Document, error)

	// Write replaces one identifier's full document.
	Write(ctx context.Context, doi string, doc *registry.Document) error

	// Ping confirms the registry is reachable.
	Ping(ctx context.Context) error
}

// LocalStore is the internal record store for batch runs. Each replace call
// is one atomic transaction scoped to a single identifier and facet.
type LocalStore interface {
	// Resolve maps an identifier to its internal record id.
	Resolve(ctx context.Context, doi string) (int64, error)

	// ReplaceCreators swaps all creator rows of one record.
	ReplaceCreators(ctx context.Context, resourceID int64, rows []models.AgentRow) error

	// ReplaceContributors swaps all contributor rows of one record.
	ReplaceContributors(ctx context.Context, resourceID int64, rows []models.AgentRow) error

	// UpdatePublisher replaces the record's publisher name.
	UpdatePublisher(ctx context.Context, resourceID int64, name string) error

	// Ping confirms the database is reachable.
	Ping(ctx context.Context) error
}
