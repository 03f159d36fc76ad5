//go:build integration

package localstore

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/suite"

	"grobi/internal/sync/models"
	"grobi/pkg/platform/sentinel"
	"grobi/pkg/testutil/containers"
)

// =============================================================================
// Local Store Integration Test Suite
// =============================================================================
// Justification for integration tests: the facet-replace transactions lean on
// real SQL behavior (composite-order deletes, array parameters, constraint
// rollback) that sqlmock cannot exercise faithfully. Runs against a real
// Postgres via testcontainers; requires the integration build tag.

const schema = `
CREATE TABLE resource (
	id         BIGSERIAL PRIMARY KEY,
	identifier TEXT NOT NULL UNIQUE,
	publisher  TEXT
);
CREATE TABLE resourceagent (
	resource_id    BIGINT NOT NULL REFERENCES resource (id),
	"order"        INT    NOT NULL,
	name           TEXT   NOT NULL,
	firstname      TEXT,
	lastname       TEXT,
	identifier     TEXT,
	identifiertype TEXT,
	nametype       TEXT NOT NULL,
	PRIMARY KEY (resource_id, "order")
);
CREATE TABLE role (
	role                      TEXT   NOT NULL,
	resourceagent_resource_id BIGINT NOT NULL,
	resourceagent_order       INT    NOT NULL,
	PRIMARY KEY (role, resourceagent_resource_id, resourceagent_order),
	FOREIGN KEY (resourceagent_resource_id, resourceagent_order)
		REFERENCES resourceagent (resource_id, "order")
);
CREATE TABLE contactinfo (
	resourceagent_resource_id BIGINT NOT NULL,
	resourceagent_order       INT    NOT NULL,
	email                     TEXT,
	website                   TEXT,
	position                  TEXT,
	PRIMARY KEY (resourceagent_resource_id, resourceagent_order),
	FOREIGN KEY (resourceagent_resource_id, resourceagent_order)
		REFERENCES resourceagent (resource_id, "order")
);
`

type PostgresSuite struct {
	suite.Suite
	pg    *containers.PostgresContainer
	store *Postgres
	ctx   context.Context
}

func TestPostgresSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresSuite))
}

func (s *PostgresSuite) SetupSuite() {
	s.ctx = context.Background()
	s.pg = containers.NewPostgresContainer(s.T())
	_, err := s.pg.DB.ExecContext(s.ctx, schema)
	s.Require().NoError(err)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s.store, err = New(s.pg.DB, WithLogger(logger))
	s.Require().NoError(err)
}

func (s *PostgresSuite) SetupTest() {
	for _, table := range []string{"contactinfo", "role", "resourceagent", "resource"} {
		_, err := s.pg.DB.ExecContext(s.ctx, "DELETE FROM "+table)
		s.Require().NoError(err)
	}
}

const testDOI = "10.5880/GFZ.TEST.001"

func (s *PostgresSuite) seedResource() int64 {
	var id int64
	err := s.pg.DB.QueryRowContext(s.ctx,
		`INSERT INTO resource (identifier, publisher) VALUES ($1, 'GFZ') RETURNING id`, testDOI).Scan(&id)
	s.Require().NoError(err)
	return id
}

func (s *PostgresSuite) seedAgent(resourceID int64, order int, name, role string) {
	_, err := s.pg.DB.ExecContext(s.ctx,
		`INSERT INTO resourceagent (resource_id, "order", name, nametype) VALUES ($1, $2, $3, 'Personal')`,
		resourceID, order, name)
	s.Require().NoError(err)
	_, err = s.pg.DB.ExecContext(s.ctx,
		`INSERT INTO role (role, resourceagent_resource_id, resourceagent_order) VALUES ($1, $2, $3)`,
		role, resourceID, order)
	s.Require().NoError(err)
}

func (s *PostgresSuite) agentNames(resourceID int64, role string) []string {
	rows, err := s.pg.DB.QueryContext(s.ctx,
		`SELECT ra.name FROM resourceagent ra
		 JOIN role r ON r.resourceagent_resource_id = ra.resource_id AND r.resourceagent_order = ra."order"
		 WHERE ra.resource_id = $1 AND r.role = $2 ORDER BY ra."order"`, resourceID, role)
	s.Require().NoError(err)
	defer rows.Close()
	var names []string
	for rows.Next() {
		var n string
		s.Require().NoError(rows.Scan(&n))
		names = append(names, n)
	}
	s.Require().NoError(rows.Err())
	return names
}

func (s *PostgresSuite) TestResolve() {
	id := s.seedResource()

	got, err := s.store.Resolve(s.ctx, testDOI)
	s.NoError(err)
	s.Equal(id, got)

	_, err = s.store.Resolve(s.ctx, "10.5880/GFZ.MISSING")
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *PostgresSuite) TestReplaceCreators() {
	id := s.seedResource()
	s.seedAgent(id, 1, "Old, Creator", RoleCreator)
	s.seedAgent(id, 5, "Doe, Jane", RoleContactPerson)

	err := s.store.ReplaceCreators(s.ctx, id, []models.AgentRow{
		{Seq: 1, Name: "Smith, John", FirstName: "John", LastName: "Smith",
			Identifier: "0000-0001-5000-0007", IdentifierScheme: "ORCID",
			NameType: "Personal", Roles: []string{RoleCreator}},
		{Seq: 2, Name: "Miller, Anne", LastName: "Miller", NameType: "Personal", Roles: []string{RoleCreator}},
	})
	s.Require().NoError(err)

	s.Equal([]string{"Smith, John", "Miller, Anne"}, s.agentNames(id, RoleCreator))
	s.Equal([]string{"Doe, Jane"}, s.agentNames(id, RoleContactPerson),
		"contributor rows survive a creators replace")
}

func (s *PostgresSuite) TestReplaceCreatorsWithOccupiedLowOrders() {
	id := s.seedResource()
	// A legacy record: the contact sits at order 1 and one agent carries both
	// a creator and a contributor tag at order 2.
	s.seedAgent(id, 1, "Contact, Only", RoleContactPerson)
	s.seedAgent(id, 2, "Shared, Agent", RoleCreator)
	_, err := s.pg.DB.ExecContext(s.ctx,
		`INSERT INTO role (role, resourceagent_resource_id, resourceagent_order) VALUES ($1, $2, $3)`,
		RoleContactPerson, id, 2)
	s.Require().NoError(err)

	err = s.store.ReplaceCreators(s.ctx, id, []models.AgentRow{
		{Seq: 1, Name: "Smith, John", LastName: "Smith", NameType: "Personal", Roles: []string{RoleCreator}},
		{Seq: 2, Name: "Miller, Anne", LastName: "Miller", NameType: "Personal", Roles: []string{RoleCreator}},
	})
	s.Require().NoError(err, "new creators must not collide with surviving rows")

	s.Equal([]string{"Smith, John", "Miller, Anne"}, s.agentNames(id, RoleCreator))
	s.Equal([]string{"Contact, Only", "Shared, Agent"}, s.agentNames(id, RoleContactPerson),
		"contributor rows at low orders survive, including the shared agent")
}

func (s *PostgresSuite) TestReplaceContributors() {
	id := s.seedResource()
	s.seedAgent(id, 1, "Smith, John", RoleCreator)
	s.seedAgent(id, 2, "Old, Contact", RoleContactPerson)

	err := s.store.ReplaceContributors(s.ctx, id, []models.AgentRow{
		{Seq: 1, Name: "Doe, Jane", FirstName: "Jane", LastName: "Doe", NameType: "Personal",
			Roles: []string{RoleContactPerson, "DataCurator"},
			Email: "jane.doe@gfz.de", Position: "Data Steward"},
	})
	s.Require().NoError(err)

	s.Equal([]string{"Smith, John"}, s.agentNames(id, RoleCreator),
		"creator rows survive a contributors replace")
	s.Equal([]string{"Doe, Jane"}, s.agentNames(id, RoleContactPerson))
	s.Equal([]string{"Doe, Jane"}, s.agentNames(id, "DataCurator"),
		"every contributor type becomes a role row")

	var email string
	err = s.pg.DB.QueryRowContext(s.ctx,
		`SELECT ci.email FROM contactinfo ci
		 JOIN resourceagent ra ON ra.resource_id = ci.resourceagent_resource_id
		                      AND ra."order" = ci.resourceagent_order
		 WHERE ra.name = 'Doe, Jane'`).Scan(&email)
	s.Require().NoError(err)
	s.Equal("jane.doe@gfz.de", email)
}

func (s *PostgresSuite) TestReplaceContributorsRollsBackOnFailure() {
	id := s.seedResource()
	s.seedAgent(id, 1, "Old, Contact", RoleContactPerson)

	// A duplicated role violates the role primary key mid-transaction; the
	// original rows must survive.
	err := s.store.ReplaceContributors(s.ctx, id, []models.AgentRow{
		{Seq: 1, Name: "Doe, Jane", LastName: "Doe", NameType: "Personal", Roles: []string{RoleContactPerson}},
		{Seq: 2, Name: "Miller, Anne", LastName: "Miller", NameType: "Personal",
			Roles: []string{"DataCurator", "DataCurator"}},
	})
	s.Require().Error(err)

	s.Equal([]string{"Old, Contact"}, s.agentNames(id, RoleContactPerson))
}

func (s *PostgresSuite) TestUpdatePublisher() {
	id := s.seedResource()

	s.Require().NoError(s.store.UpdatePublisher(s.ctx, id, "GFZ Data Services"))

	var publisher string
	err := s.pg.DB.QueryRowContext(s.ctx,
		`SELECT publisher FROM resource WHERE id = $1`, id).Scan(&publisher)
	s.Require().NoError(err)
	s.Equal("GFZ Data Services", publisher)

	s.ErrorIs(s.store.UpdatePublisher(s.ctx, id+999, "x"), sentinel.ErrNotFound)
}
