// Package cache holds short-lived copies of person nodes so repeated reads do
// not hit Neo4j. Redis is used when configured, otherwise an in-process map.
package cache

import (
	"context"
	"sync"
	"time"
)

// Store is a byte-oriented key/value cache with per-entry expiry.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, val []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// sweepEvery bounds how often Set scans the map for expired entries.
const sweepEvery = time.Minute

type Memory struct {
	mu        sync.RWMutex
	now       func() time.Time
	m         map[string]entry
	nextSweep time.Time
}

type entry struct {
	val []byte
	exp time.Time
}

func NewMemory() *Memory {
	return &Memory{
		now: time.Now,
		m:   make(map[string]entry),
	}
}

func (c *Memory) Get(_ context.Context, key string) ([]byte, bool, error) {
	now := c.now()
	c.mu.RLock()
	e, ok := c.m[key]
	c.mu.RUnlock()
	if !ok {
		return nil, false, nil
	}

	if !now.Before(e.exp) {
		c.mu.Lock()
		delete(c.m, key)
		c.mu.Unlock()
		return nil, false, nil
	}

	return e.val, true, nil
}

func (c *Memory) Set(_ context.Context, key string, val []byte, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = 5 * time.Second
	}

	now := c.now()

	c.mu.Lock()
	defer c.mu.Unlock()

	// entries that are never read again are dropped here
	if !now.Before(c.nextSweep) {
		for k, e := range c.m {
			if !now.Before(e.exp) {
				delete(c.m, k)
			}
		}
		c.nextSweep = now.Add(sweepEvery)
	}

	c.m[key] = entry{val: val, exp: now.Add(ttl)}
	return nil
}

// Len reports the number of stored entries, expired or not.
func (c *Memory) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.m)
}

func (c *Memory) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	delete(c.m, key)
	c.mu.Unlock()
	return nil
}
