// Package localstore persists research-output metadata in the internal
// relational database. The schema predates this service: agents live in
// resourceagent keyed by (resource_id, "order"), role tags in role, and
// contact details in contactinfo. Facet updates may only ever touch the rows
// tagged with that facet's roles.
package localstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/lib/pq"

	"grobi/internal/sync/models"
	"grobi/pkg/platform/sentinel"
)

// RoleCreator tags creator rows; every other role tag belongs to the
// contributors facet.
const RoleCreator = "Creator"

// RoleContactPerson is the one contributor role that carries contactinfo.
const RoleContactPerson = "ContactPerson"

// Postgres is the local record store backed by the internal metadata
// database.
type Postgres struct {
	db     *sql.DB
	logger *slog.Logger
}

// Option configures a Postgres store.
type Option func(*Postgres)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Postgres) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New constructs a Postgres-backed local record store.
func New(db *sql.DB, opts ...Option) (*Postgres, error) {
	if db == nil {
		return nil, fmt.Errorf("database handle is required")
	}
	s := &Postgres{db: db, logger: slog.Default()}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s, nil
}

// Ping confirms the database is reachable before a batch starts.
func (s *Postgres) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("local database ping: %v: %w", err, sentinel.ErrUnavailable)
	}
	return nil
}

// Resolve maps an identifier to its internal record id.
func (s *Postgres) Resolve(ctx context.Context, doi string) (int64, error) {
	var id int64
	err := s.db.QueryRowContext(ctx,
		`SELECT id FROM resource WHERE identifier = $1 LIMIT 1`, doi).Scan(&id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, fmt.Errorf("identifier %s: %w", doi, sentinel.ErrNotFound)
		}
		return 0, fmt.Errorf("resolve identifier %s: %w", doi, err)
	}
	return id, nil
}

// ReplaceCreators atomically swaps all creator rows of one record for the
// given rows. Rows tagged with other roles in the same tables stay
// untouched; new rows go after the highest surviving order so they never
// collide with a contributor occupying a low order. Any failure rolls the
// whole replacement back.
func (s *Postgres) ReplaceCreators(ctx context.Context, resourceID int64, rows []models.AgentRow) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin creators transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	orders, err := facetOrders(ctx, tx, resourceID, true)
	if err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM role WHERE resourceagent_resource_id = $1 AND role = $2`,
		resourceID, RoleCreator); err != nil {
		return fmt.Errorf("delete creator roles: %w", err)
	}
	if len(orders) > 0 {
		// Keep agent rows that still carry a contributor role.
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM resourceagent ra
			 WHERE ra.resource_id = $1 AND ra."order" = ANY($2)
			   AND NOT EXISTS (
			     SELECT 1 FROM role r
			     WHERE r.resourceagent_resource_id = ra.resource_id
			       AND r.resourceagent_order = ra."order")`,
			resourceID, pq.Array(orders)); err != nil {
			return fmt.Errorf("delete creator agents: %w", err)
		}
	}

	var base int
	if err := tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX("order"), 0) FROM resourceagent WHERE resource_id = $1`,
		resourceID).Scan(&base); err != nil {
		return fmt.Errorf("next agent order: %w", err)
	}

	for _, row := range rows {
		order := base + row.Seq
		if err := insertAgent(ctx, tx, resourceID, order, row); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO role (role, resourceagent_resource_id, resourceagent_order) VALUES ($1, $2, $3)`,
			RoleCreator, resourceID, order); err != nil {
			return fmt.Errorf("insert creator role at %d: %w", order, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit creators transaction: %w", err)
	}
	s.logger.Debug("replaced creators", "resource_id", resourceID, "count", len(rows))
	return nil
}

// ReplaceContributors atomically swaps all non-creator agent rows of one
// record, including their role tags and any contactinfo, for the given rows.
// New rows are appended after the highest existing order so creator numbering
// is never disturbed.
func (s *Postgres) ReplaceContributors(ctx context.Context, resourceID int64, rows []models.AgentRow) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin contributors transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	orders, err := facetOrders(ctx, tx, resourceID, false)
	if err != nil {
		return err
	}

	if len(orders) > 0 {
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM contactinfo WHERE resourceagent_resource_id = $1 AND resourceagent_order = ANY($2)`,
			resourceID, pq.Array(orders)); err != nil {
			return fmt.Errorf("delete contributor contactinfo: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM role WHERE resourceagent_resource_id = $1 AND role <> $2 AND resourceagent_order = ANY($3)`,
			resourceID, RoleCreator, pq.Array(orders)); err != nil {
			return fmt.Errorf("delete contributor roles: %w", err)
		}
		// Drop agent rows that no longer carry any role. A row shared with
		// the creator facet keeps its Creator tag and survives.
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM resourceagent ra
			 WHERE ra.resource_id = $1 AND ra."order" = ANY($2)
			   AND NOT EXISTS (
			     SELECT 1 FROM role r
			     WHERE r.resourceagent_resource_id = ra.resource_id
			       AND r.resourceagent_order = ra."order")`,
			resourceID, pq.Array(orders)); err != nil {
			return fmt.Errorf("delete orphaned contributor agents: %w", err)
		}
	}

	var next int
	if err := tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX("order"), 0) + 1 FROM resourceagent WHERE resource_id = $1`,
		resourceID).Scan(&next); err != nil {
		return fmt.Errorf("next agent order: %w", err)
	}

	for i, row := range rows {
		order := next + i
		if err := insertAgent(ctx, tx, resourceID, order, row); err != nil {
			return err
		}
		for _, role := range row.Roles {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO role (role, resourceagent_resource_id, resourceagent_order) VALUES ($1, $2, $3)`,
				role, resourceID, order); err != nil {
				return fmt.Errorf("insert contributor role %q at %d: %w", role, order, err)
			}
		}
		if hasRole(row.Roles, RoleContactPerson) && (row.Email != "" || row.Website != "" || row.Position != "") {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO contactinfo (resourceagent_resource_id, resourceagent_order, email, website, position)
				 VALUES ($1, $2, $3, $4, $5)`,
				resourceID, order, nullStr(row.Email), nullStr(row.Website), nullStr(row.Position)); err != nil {
				return fmt.Errorf("insert contactinfo at %d: %w", order, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit contributors transaction: %w", err)
	}
	s.logger.Debug("replaced contributors", "resource_id", resourceID, "count", len(rows))
	return nil
}

// UpdatePublisher replaces the record's publisher name.
func (s *Postgres) UpdatePublisher(ctx context.Context, resourceID int64, name string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE resource SET publisher = $2 WHERE id = $1`, resourceID, name)
	if err != nil {
		return fmt.Errorf("update publisher: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update publisher rows: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("resource %d: %w", resourceID, sentinel.ErrNotFound)
	}
	return nil
}

// facetOrders returns the agent order numbers currently tagged with the
// facet's roles: Creator rows when creators is true, everything else
// otherwise.
func facetOrders(ctx context.Context, tx *sql.Tx, resourceID int64, creators bool) ([]int64, error) {
	cmp := "<>"
	if creators {
		cmp = "="
	}
	query := fmt.Sprintf(
		`SELECT DISTINCT ra."order"
		 FROM resourceagent ra
		 JOIN role r ON r.resourceagent_resource_id = ra.resource_id
		            AND r.resourceagent_order = ra."order"
		 WHERE ra.resource_id = $1 AND r.role %s $2`, cmp)
	rows, err := tx.QueryContext(ctx, query, resourceID, RoleCreator)
	if err != nil {
		return nil, fmt.Errorf("select facet orders: %w", err)
	}
	defer rows.Close()

	var orders []int64
	for rows.Next() {
		var o int64
		if err := rows.Scan(&o); err != nil {
			return nil, fmt.Errorf("scan facet order: %w", err)
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate facet orders: %w", err)
	}
	return orders, nil
}

func insertAgent(ctx context.Context, tx *sql.Tx, resourceID int64, order int, row models.AgentRow) error {
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO resourceagent
		   (resource_id, "order", name, firstname, lastname, identifier, identifiertype, nametype)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		resourceID, order, row.Name, nullStr(row.FirstName), nullStr(row.LastName),
		nullStr(row.Identifier), nullStr(row.IdentifierScheme), row.NameType); err != nil {
		return fmt.Errorf("insert agent at %d: %w", order, err)
	}
	return nil
}

func hasRole(roles []string, want string) bool {
	for _, r := range roles {
		if r == want {
			return true
		}
	}
	return false
}

func nullStr(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
