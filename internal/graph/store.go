// Package graph stores Person nodes and family relationship edges in Neo4j.
//
// Every operation is a single Cypher statement run in an auto-commit
// transaction, so the two edges of a symmetric relationship are written
// atomically and nothing is retried.
package graph

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/geocoder89/familytree/internal/domain/person"
	"github.com/geocoder89/familytree/internal/observability"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

const constraintViolation = "Neo.ClientError.Schema.ConstraintValidationFailed"

// runner executes one statement and returns all records.
type runner interface {
	run(ctx context.Context, mode neo4j.AccessMode, cypher string, params map[string]any) ([]*neo4j.Record, error)
	verify(ctx context.Context) error
}

type sessionRunner struct {
	driver   neo4j.DriverWithContext
	database string
}

func (r *sessionRunner) run(ctx context.Context, mode neo4j.AccessMode, cypher string, params map[string]any) ([]*neo4j.Record, error) {
	session := r.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: mode, DatabaseName: r.database})
	defer session.Close(ctx)

	result, err := session.Run(ctx, cypher, params)
	if err != nil {
		return nil, err
	}

	return result.Collect(ctx)
}

func (r *sessionRunner) verify(ctx context.Context) error {
	return r.driver.VerifyConnectivity(ctx)
}

type Store struct {
	db      runner
	metrics *observability.Prom
}

// NewDriver opens a driver and checks that the server is reachable.
func NewDriver(ctx context.Context, uri, username, password string) (neo4j.DriverWithContext, error) {
	driver, err := neo4j.NewDriverWithContext(uri, neo4j.BasicAuth(username, password, ""))
	if err != nil {
		return nil, fmt.Errorf("neo4j driver: %w", err)
	}

	verifyCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := driver.VerifyConnectivity(verifyCtx); err != nil {
		_ = driver.Close(ctx)
		return nil, fmt.Errorf("neo4j connectivity: %w", err)
	}

	return driver, nil
}

func NewStore(driver neo4j.DriverWithContext, database string, metrics *observability.Prom) *Store {
	return &Store{
		db:      &sessionRunner{driver: driver, database: database},
		metrics: metrics,
	}
}

// InitSchema installs the Person.id uniqueness constraint and the
// created_by_user_id lookup index. Safe to call on every startup.
func (s *Store) InitSchema(ctx context.Context) error {
	statements := []string{
		`CREATE CONSTRAINT person_id_unique IF NOT EXISTS
		FOR (p:Person)
		REQUIRE p.id IS UNIQUE`,
		`CREATE INDEX person_created_by IF NOT EXISTS
		FOR (p:Person)
		ON (p.created_by_user_id)`,
	}

	for _, stmt := range statements {
		err := s.metrics.ObserveDB("graph.init_schema", func() error {
			_, err := s.db.run(ctx, neo4j.AccessModeWrite, stmt, nil)
			return err
		})
		if err != nil {
			return fmt.Errorf("init graph schema: %w", err)
		}
	}

	return nil
}

func (s *Store) CreatePerson(ctx context.Context, p person.Person) error {
	query := `
		CREATE (:Person {
			id: $id,
			name: $name,
			birth_date: $birth_date,
			gender: $gender,
			created_by_user_id: $created_by_user_id
		})
	`

	err := s.metrics.ObserveDB("graph.create_person", func() error {
		_, err := s.db.run(ctx, neo4j.AccessModeWrite, query, map[string]any{
			"id":                 p.ID,
			"name":               p.Name,
			"birth_date":         p.BirthDate,
			"gender":             p.Gender,
			"created_by_user_id": p.CreatedByUserID,
		})
		return err
	})

	if err != nil {
		if isConstraintViolation(err) {
			return person.ErrExists
		}
		return fmt.Errorf("failed to create person: %w", err)
	}

	return nil
}

func (s *Store) GetPerson(ctx context.Context, id string) (person.Person, error) {
	query := `
		MATCH (p:Person {id: $id})
		RETURN p.id AS id, p.name AS name, p.birth_date AS birth_date,
		       p.gender AS gender, p.created_by_user_id AS created_by_user_id
	`

	var records []*neo4j.Record
	err := s.metrics.ObserveDB("graph.get_person", func() error {
		var err error
		records, err = s.db.run(ctx, neo4j.AccessModeRead, query, map[string]any{"id": id})
		return err
	})

	if err != nil {
		return person.Person{}, fmt.Errorf("failed to get person: %w", err)
	}

	if len(records) == 0 {
		return person.Person{}, person.ErrNotFound
	}

	return personFromRecord(records[0]), nil
}

// ListByCreator returns every person a user has created, served by the
// created_by_user_id index.
func (s *Store) ListByCreator(ctx context.Context, userID string) ([]person.Person, error) {
	query := `
		MATCH (p:Person)
		WHERE p.created_by_user_id = $user_id
		RETURN p.id AS id, p.name AS name, p.birth_date AS birth_date,
		       p.gender AS gender, p.created_by_user_id AS created_by_user_id
		ORDER BY p.name, p.id
	`

	var records []*neo4j.Record
	err := s.metrics.ObserveDB("graph.list_by_creator", func() error {
		var err error
		records, err = s.db.run(ctx, neo4j.AccessModeRead, query, map[string]any{"user_id": userID})
		return err
	})

	if err != nil {
		return nil, fmt.Errorf("failed to list persons: %w", err)
	}

	out := make([]person.Person, 0, len(records))
	for _, rec := range records {
		out = append(out, personFromRecord(rec))
	}

	return out, nil
}

// Relatives lists the outgoing relationship edges of one person.
func (s *Store) Relatives(ctx context.Context, id string) ([]person.Relation, error) {
	query := `
		MATCH (p:Person {id: $id})
		OPTIONAL MATCH (p)-[r:PARENT_OF|MARRIED_TO|SIBLING_OF]->(o:Person)
		RETURN type(r) AS rel_type, o.id AS person_id, o.name AS name
		ORDER BY rel_type, name
	`

	var records []*neo4j.Record
	err := s.metrics.ObserveDB("graph.relatives", func() error {
		var err error
		records, err = s.db.run(ctx, neo4j.AccessModeRead, query, map[string]any{"id": id})
		return err
	})

	if err != nil {
		return nil, fmt.Errorf("failed to list relatives: %w", err)
	}

	if len(records) == 0 {
		return nil, person.ErrNotFound
	}

	out := make([]person.Relation, 0, len(records))
	for _, rec := range records {
		relType := getStringFromRecord(rec, "rel_type")
		// OPTIONAL MATCH yields one null row for a person with no edges
		if relType == "" {
			continue
		}
		out = append(out, person.Relation{
			Type:     relType,
			PersonID: getStringFromRecord(rec, "person_id"),
			Name:     getStringFromRecord(rec, "name"),
		})
	}

	return out, nil
}

// LinkParent writes one PARENT_OF edge from parent to child.
func (s *Store) LinkParent(ctx context.Context, parentID, childID string) error {
	if parentID == childID {
		return person.ErrSelfLink
	}

	query := `
		MATCH (parent:Person {id: $parent_id})
		MATCH (child:Person {id: $child_id})
		MERGE (parent)-[:PARENT_OF]->(child)
		RETURN count(*) AS linked
	`

	return s.link(ctx, "graph.link_parent", query, map[string]any{
		"parent_id": parentID,
		"child_id":  childID,
	})
}

// LinkMarriage writes MARRIED_TO in both directions.
func (s *Store) LinkMarriage(ctx context.Context, person1ID, person2ID string) error {
	return s.linkBoth(ctx, "graph.link_marriage", person.RelMarriedTo, person1ID, person2ID)
}

// LinkSiblings writes SIBLING_OF in both directions.
func (s *Store) LinkSiblings(ctx context.Context, person1ID, person2ID string) error {
	return s.linkBoth(ctx, "graph.link_siblings", person.RelSiblingOf, person1ID, person2ID)
}

// relType is one of the package constants, never user input; Cypher cannot
// take a relationship type as a parameter.
func (s *Store) linkBoth(ctx context.Context, op, relType, person1ID, person2ID string) error {
	if person1ID == person2ID {
		return person.ErrSelfLink
	}

	query := `
		MATCH (p1:Person {id: $person1_id})
		MATCH (p2:Person {id: $person2_id})
		MERGE (p1)-[:` + relType + `]->(p2)
		MERGE (p2)-[:` + relType + `]->(p1)
		RETURN count(*) AS linked
	`

	return s.link(ctx, op, query, map[string]any{
		"person1_id": person1ID,
		"person2_id": person2ID,
	})
}

func (s *Store) link(ctx context.Context, op, query string, params map[string]any) error {
	var records []*neo4j.Record

	err := s.metrics.ObserveDB(op, func() error {
		var err error
		records, err = s.db.run(ctx, neo4j.AccessModeWrite, query, params)
		return err
	})

	if err != nil {
		return fmt.Errorf("failed to link persons: %w", err)
	}

	// count(*) over an empty MATCH still returns one row with 0
	if len(records) == 0 || getIntFromRecord(records[0], "linked") == 0 {
		return person.ErrNotFound
	}

	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.verify(ctx)
}

func isConstraintViolation(err error) bool {
	var neoErr *neo4j.Neo4jError
	return errors.As(err, &neoErr) && neoErr.Code == constraintViolation
}

func personFromRecord(rec *neo4j.Record) person.Person {
	return person.Person{
		ID:              getStringFromRecord(rec, "id"),
		Name:            getStringFromRecord(rec, "name"),
		BirthDate:       getStringFromRecord(rec, "birth_date"),
		Gender:          getStringFromRecord(rec, "gender"),
		CreatedByUserID: getStringFromRecord(rec, "created_by_user_id"),
	}
}

func getStringFromRecord(record *neo4j.Record, key string) string {
	val, ok := record.Get(key)
	if !ok || val == nil {
		return ""
	}
	if str, ok := val.(string); ok {
		return str
	}
	return ""
}

func getIntFromRecord(record *neo4j.Record, key string) int64 {
	val, ok := record.Get(key)
	if !ok || val == nil {
		return 0
	}
	switch n := val.(type) {
	case int64:
		return n
	case int:
		return int64(n)
	}
	return 0
}
