package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/geocoder89/familytree/internal/domain/person"
)

func TestMemory_ExpiresEntries(t *testing.T) {
	ctx := context.Background()
	now := time.Unix(1_700_000_000, 0)

	c := NewMemory()
	c.now = func() time.Time { return now }

	if err := c.Set(ctx, "k", []byte("v"), time.Minute); err != nil {
		t.Fatalf("set: %v", err)
	}

	if got, ok, _ := c.Get(ctx, "k"); !ok || string(got) != "v" {
		t.Fatalf("expected hit, got %q ok=%v", got, ok)
	}

	now = now.Add(time.Minute)
	if _, ok, _ := c.Get(ctx, "k"); ok {
		t.Fatalf("expected entry to expire at its deadline")
	}
}

func TestMemory_SetSweepsEntriesNeverReadAgain(t *testing.T) {
	ctx := context.Background()
	now := time.Unix(1_700_000_000, 0)

	c := NewMemory()
	c.now = func() time.Time { return now }

	for _, k := range []string{"a", "b", "c"} {
		if err := c.Set(ctx, k, []byte("v"), time.Second); err != nil {
			t.Fatalf("set: %v", err)
		}
	}

	now = now.Add(sweepEvery)
	if err := c.Set(ctx, "d", []byte("v"), time.Minute); err != nil {
		t.Fatalf("set: %v", err)
	}

	if got := c.Len(); got != 1 {
		t.Fatalf("expected expired entries to be swept, got %d entries", got)
	}
}

type fakeGraph struct {
	PersonStore
	getFn    func(ctx context.Context, id string) (person.Person, error)
	createFn func(ctx context.Context, p person.Person) error
	getCalls int
}

func (f *fakeGraph) GetPerson(ctx context.Context, id string) (person.Person, error) {
	f.getCalls++
	return f.getFn(ctx, id)
}

func (f *fakeGraph) CreatePerson(ctx context.Context, p person.Person) error {
	return f.createFn(ctx, p)
}

func TestCachedPersons_GetHitsGraphOnce(t *testing.T) {
	graph := &fakeGraph{getFn: func(_ context.Context, id string) (person.Person, error) {
		return person.Person{ID: id, Name: "Anna", CreatedByUserID: "u1"}, nil
	}}
	c := NewCachedPersons(graph, NewMemory(), time.Minute, nil)

	for i := 0; i < 3; i++ {
		p, err := c.GetPerson(context.Background(), "p1")
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		if p.Name != "Anna" || p.CreatedByUserID != "u1" {
			t.Fatalf("unexpected person %+v", p)
		}
	}

	if graph.getCalls != 1 {
		t.Fatalf("expected 1 graph call, got %d", graph.getCalls)
	}
}

func TestCachedPersons_ErrorsAreNotCached(t *testing.T) {
	graph := &fakeGraph{getFn: func(context.Context, string) (person.Person, error) {
		return person.Person{}, person.ErrNotFound
	}}
	c := NewCachedPersons(graph, NewMemory(), time.Minute, nil)

	for i := 0; i < 2; i++ {
		if _, err := c.GetPerson(context.Background(), "ghost"); !errors.Is(err, person.ErrNotFound) {
			t.Fatalf("expected not found, got %v", err)
		}
	}
	if graph.getCalls != 2 {
		t.Fatalf("expected every miss to reach the graph, got %d calls", graph.getCalls)
	}
}

func TestCachedPersons_CreateWarmsCache(t *testing.T) {
	graph := &fakeGraph{
		createFn: func(context.Context, person.Person) error { return nil },
		getFn: func(context.Context, string) (person.Person, error) {
			return person.Person{}, errors.New("unexpected graph read")
		},
	}
	c := NewCachedPersons(graph, NewMemory(), time.Minute, nil)
	ctx := context.Background()

	if err := c.CreatePerson(ctx, person.Person{ID: "p1", Name: "Anna"}); err != nil {
		t.Fatalf("create: %v", err)
	}

	p, err := c.GetPerson(ctx, "p1")
	if err != nil || p.Name != "Anna" {
		t.Fatalf("expected cached person, got %+v err=%v", p, err)
	}
	if graph.getCalls != 0 {
		t.Fatalf("expected no graph read, got %d", graph.getCalls)
	}
}

func TestCachedPersons_FailedCreateIsNotCached(t *testing.T) {
	graph := &fakeGraph{
		createFn: func(context.Context, person.Person) error { return person.ErrExists },
		getFn: func(_ context.Context, id string) (person.Person, error) {
			return person.Person{ID: id, Name: "Original"}, nil
		},
	}
	c := NewCachedPersons(graph, NewMemory(), time.Minute, nil)
	ctx := context.Background()

	if err := c.CreatePerson(ctx, person.Person{ID: "p1", Name: "Impostor"}); !errors.Is(err, person.ErrExists) {
		t.Fatalf("expected ErrExists, got %v", err)
	}

	p, err := c.GetPerson(ctx, "p1")
	if err != nil || p.Name != "Original" {
		t.Fatalf("expected the stored person, got %+v err=%v", p, err)
	}
}

type failingStore struct{}

func (failingStore) Get(context.Context, string) ([]byte, bool, error) {
	return nil, false, errors.New("redis down")
}
func (failingStore) Set(context.Context, string, []byte, time.Duration) error {
	return errors.New("redis down")
}
func (failingStore) Delete(context.Context, string) error { return errors.New("redis down") }

func TestCachedPersons_StoreFailureFallsThrough(t *testing.T) {
	graph := &fakeGraph{getFn: func(_ context.Context, id string) (person.Person, error) {
		return person.Person{ID: id}, nil
	}}
	c := NewCachedPersons(graph, failingStore{}, time.Minute, nil)

	p, err := c.GetPerson(context.Background(), "p1")
	if err != nil || p.ID != "p1" {
		t.Fatalf("expected graph result despite cache failure, got %+v err=%v", p, err)
	}
}
