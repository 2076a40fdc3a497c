package cache

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/geocoder89/familytree/internal/domain/person"
)

// PersonStore is the graph surface the API needs.
type PersonStore interface {
	CreatePerson(ctx context.Context, p person.Person) error
	GetPerson(ctx context.Context, id string) (person.Person, error)
	ListByCreator(ctx context.Context, userID string) ([]person.Person, error)
	Relatives(ctx context.Context, id string) ([]person.Relation, error)
	LinkParent(ctx context.Context, parentID, childID string) error
	LinkMarriage(ctx context.Context, person1ID, person2ID string) error
	LinkSiblings(ctx context.Context, person1ID, person2ID string) error
}

// CachedPersons puts a cache-aside layer in front of GetPerson. Person nodes
// are never modified after creation, so an entry can only go stale by its
// TTL. Edge lists and per-user listings change on every link and are always
// read from the graph. Cache failures are logged and fall through.
type CachedPersons struct {
	PersonStore
	store Store
	ttl   time.Duration
	log   *slog.Logger
}

func NewCachedPersons(graph PersonStore, store Store, ttl time.Duration, log *slog.Logger) *CachedPersons {
	if log == nil {
		log = slog.Default()
	}
	return &CachedPersons{PersonStore: graph, store: store, ttl: ttl, log: log}
}

func personKey(id string) string {
	return "familytree:person:" + id
}

func (c *CachedPersons) GetPerson(ctx context.Context, id string) (person.Person, error) {
	key := personKey(id)

	if raw, ok, err := c.store.Get(ctx, key); err != nil {
		c.log.WarnContext(ctx, "person_cache_get_failed", "err", err)
	} else if ok {
		var p person.Person
		if err := json.Unmarshal(raw, &p); err == nil {
			return p, nil
		}
		_ = c.store.Delete(ctx, key)
	}

	p, err := c.PersonStore.GetPerson(ctx, id)
	if err != nil {
		return person.Person{}, err
	}

	c.put(ctx, p)
	return p, nil
}

// CreatePerson warms the cache with the node it just wrote.
func (c *CachedPersons) CreatePerson(ctx context.Context, p person.Person) error {
	if err := c.PersonStore.CreatePerson(ctx, p); err != nil {
		return err
	}
	c.put(ctx, p)
	return nil
}

func (c *CachedPersons) put(ctx context.Context, p person.Person) {
	raw, err := json.Marshal(p)
	if err != nil {
		return
	}
	if err := c.store.Set(ctx, personKey(p.ID), raw, c.ttl); err != nil {
		c.log.WarnContext(ctx, "person_cache_set_failed", "err", err)
	}
}
