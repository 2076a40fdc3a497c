package graph

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/geocoder89/familytree/internal/domain/person"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type call struct {
	mode   neo4j.AccessMode
	cypher string
	params map[string]any
}

type fakeRunner struct {
	calls   []call
	runFn   func(cypher string, params map[string]any) ([]*neo4j.Record, error)
	pingErr error
}

func (f *fakeRunner) run(_ context.Context, mode neo4j.AccessMode, cypher string, params map[string]any) ([]*neo4j.Record, error) {
	f.calls = append(f.calls, call{mode: mode, cypher: cypher, params: params})
	if f.runFn != nil {
		return f.runFn(cypher, params)
	}
	return nil, nil
}

func (f *fakeRunner) verify(context.Context) error {
	return f.pingErr
}

func newTestStore(f *fakeRunner) *Store {
	return &Store{db: f}
}

func linkedRecords(n int64) []*neo4j.Record {
	return []*neo4j.Record{{Keys: []string{"linked"}, Values: []any{n}}}
}

func TestInitSchema_IsIdempotentDDL(t *testing.T) {
	f := &fakeRunner{}
	s := newTestStore(f)

	require.NoError(t, s.InitSchema(context.Background()))
	require.NoError(t, s.InitSchema(context.Background()))

	require.Len(t, f.calls, 4)
	for _, c := range f.calls {
		assert.Contains(t, c.cypher, "IF NOT EXISTS")
		assert.Equal(t, neo4j.AccessModeWrite, c.mode)
	}
	assert.Contains(t, f.calls[0].cypher, "REQUIRE p.id IS UNIQUE")
	assert.Contains(t, f.calls[1].cypher, "ON (p.created_by_user_id)")
}

func TestCreatePerson_PassesAllAttributes(t *testing.T) {
	f := &fakeRunner{}
	s := newTestStore(f)

	p := person.Person{ID: "p1", Name: "Anna", BirthDate: "1950-02-01", Gender: person.GenderFemale, CreatedByUserID: "u1"}
	require.NoError(t, s.CreatePerson(context.Background(), p))

	require.Len(t, f.calls, 1)
	assert.Equal(t, map[string]any{
		"id":                 "p1",
		"name":               "Anna",
		"birth_date":         "1950-02-01",
		"gender":             "female",
		"created_by_user_id": "u1",
	}, f.calls[0].params)
}

func TestCreatePerson_DuplicateID(t *testing.T) {
	f := &fakeRunner{runFn: func(string, map[string]any) ([]*neo4j.Record, error) {
		return nil, &neo4j.Neo4jError{Code: constraintViolation, Msg: "already exists with label `Person`"}
	}}
	s := newTestStore(f)

	err := s.CreatePerson(context.Background(), person.Person{ID: "p1"})
	assert.ErrorIs(t, err, person.ErrExists)
}

func TestCreatePerson_OtherErrorsAreWrapped(t *testing.T) {
	boom := errors.New("connection reset")
	s := newTestStore(&fakeRunner{runFn: func(string, map[string]any) ([]*neo4j.Record, error) {
		return nil, boom
	}})

	err := s.CreatePerson(context.Background(), person.Person{ID: "p1"})
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, person.ErrExists)
}

func TestLinkParent_SingleDirectedEdge(t *testing.T) {
	f := &fakeRunner{runFn: func(string, map[string]any) ([]*neo4j.Record, error) {
		return linkedRecords(1), nil
	}}
	s := newTestStore(f)

	require.NoError(t, s.LinkParent(context.Background(), "parent", "child"))

	require.Len(t, f.calls, 1)
	cypher := f.calls[0].cypher
	assert.Contains(t, cypher, "(parent)-[:PARENT_OF]->(child)")
	assert.Equal(t, 1, strings.Count(cypher, "PARENT_OF"))
	assert.Equal(t, "parent", f.calls[0].params["parent_id"])
	assert.Equal(t, "child", f.calls[0].params["child_id"])
}

func TestLinkParent_MissingEndpoint(t *testing.T) {
	s := newTestStore(&fakeRunner{runFn: func(string, map[string]any) ([]*neo4j.Record, error) {
		return linkedRecords(0), nil
	}})

	err := s.LinkParent(context.Background(), "parent", "ghost")
	assert.ErrorIs(t, err, person.ErrNotFound)
}

func TestSymmetricLinks_WriteBothDirectionsInOneStatement(t *testing.T) {
	tests := []struct {
		name    string
		relType string
		link    func(s *Store, a, b string) error
	}{
		{name: "marriage", relType: "MARRIED_TO", link: func(s *Store, a, b string) error {
			return s.LinkMarriage(context.Background(), a, b)
		}},
		{name: "siblings", relType: "SIBLING_OF", link: func(s *Store, a, b string) error {
			return s.LinkSiblings(context.Background(), a, b)
		}},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			f := &fakeRunner{runFn: func(string, map[string]any) ([]*neo4j.Record, error) {
				return linkedRecords(1), nil
			}}
			s := newTestStore(f)

			require.NoError(t, tt.link(s, "A", "B"))

			require.Len(t, f.calls, 1, "both edges must be written by one statement")
			cypher := f.calls[0].cypher
			assert.Contains(t, cypher, "MERGE (p1)-[:"+tt.relType+"]->(p2)")
			assert.Contains(t, cypher, "MERGE (p2)-[:"+tt.relType+"]->(p1)")
			assert.Equal(t, "A", f.calls[0].params["person1_id"])
			assert.Equal(t, "B", f.calls[0].params["person2_id"])
		})
	}
}

func TestSymmetricLinks_RejectSelfLink(t *testing.T) {
	f := &fakeRunner{}
	s := newTestStore(f)

	assert.ErrorIs(t, s.LinkMarriage(context.Background(), "A", "A"), person.ErrSelfLink)
	assert.ErrorIs(t, s.LinkSiblings(context.Background(), "A", "A"), person.ErrSelfLink)
	assert.ErrorIs(t, s.LinkParent(context.Background(), "A", "A"), person.ErrSelfLink)
	assert.Empty(t, f.calls, "self links must not reach the store")
}

func TestGetPerson(t *testing.T) {
	f := &fakeRunner{runFn: func(_ string, params map[string]any) ([]*neo4j.Record, error) {
		if params["id"] != "p1" {
			return nil, nil
		}
		return []*neo4j.Record{{
			Keys:   []string{"id", "name", "birth_date", "gender", "created_by_user_id"},
			Values: []any{"p1", "Anna", "1950-02-01", "female", "u1"},
		}}, nil
	}}
	s := newTestStore(f)

	p, err := s.GetPerson(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, person.Person{ID: "p1", Name: "Anna", BirthDate: "1950-02-01", Gender: "female", CreatedByUserID: "u1"}, p)

	_, err = s.GetPerson(context.Background(), "nope")
	assert.ErrorIs(t, err, person.ErrNotFound)
}

func TestRelatives_SkipsNullOptionalRow(t *testing.T) {
	s := newTestStore(&fakeRunner{runFn: func(string, map[string]any) ([]*neo4j.Record, error) {
		return []*neo4j.Record{{
			Keys:   relativesColumns,
			Values: []any{nil, nil, nil},
		}}, nil
	}})

	rels, err := s.Relatives(context.Background(), "lonely")
	require.NoError(t, err)
	assert.Empty(t, rels)
}

func TestRelatives_UnknownPerson(t *testing.T) {
	s := newTestStore(&fakeRunner{})

	_, err := s.Relatives(context.Background(), "ghost")
	assert.ErrorIs(t, err, person.ErrNotFound)
}

// relativesColumns are the column names the relatives query must return.
var relativesColumns = []string{"rel_type", "person_id", "name"}

func TestRelatives_MapsRows(t *testing.T) {
	f := &fakeRunner{runFn: func(string, map[string]any) ([]*neo4j.Record, error) {
		return []*neo4j.Record{
			{Keys: relativesColumns, Values: []any{"MARRIED_TO", "b", "B"}},
			{Keys: relativesColumns, Values: []any{"PARENT_OF", "c", "C"}},
		}, nil
	}}
	s := newTestStore(f)

	rels, err := s.Relatives(context.Background(), "a")
	require.NoError(t, err)

	require.Len(t, f.calls, 1)
	for _, col := range relativesColumns {
		assert.Contains(t, f.calls[0].cypher, "AS "+col, "query must alias column %q", col)
	}
	assert.Equal(t, []person.Relation{
		{Type: person.RelMarriedTo, PersonID: "b", Name: "B"},
		{Type: person.RelParentOf, PersonID: "c", Name: "C"},
	}, rels)
}
