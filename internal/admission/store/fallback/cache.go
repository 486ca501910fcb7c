// Package fallback is the process-local substitute used for the duration of a
// single call when the shared store cannot be reached. It is never consulted
// ahead of the store and is not shared across processes.
package fallback

import (
	"sync"
	"time"

	rgsync "relaygate/pkg/platform/sync"
)

const defaultSweepInterval = 30 * time.Second

type entry[V any] struct {
	value     V
	expiresAt time.Time
}

// Cache is a TTL map with per-key serialized updates and a background janitor.
type Cache[V any] struct {
	mu      sync.RWMutex
	entries map[string]entry[V]
	keyLock rgsync.ShardedMutex
	now     func() time.Time

	sweepInterval time.Duration
	stop          chan struct{}
	stopOnce      sync.Once
	done          chan struct{}
}

type Option[V any] func(*Cache[V])

// WithSweepInterval changes how often expired entries are purged.
func WithSweepInterval[V any](d time.Duration) Option[V] {
	return func(c *Cache[V]) {
		if d > 0 {
			c.sweepInterval = d
		}
	}
}

// WithNow injects a clock, used in tests.
func WithNow[V any](now func() time.Time) Option[V] {
	return func(c *Cache[V]) {
		if now != nil {
			c.now = now
		}
	}
}

// New creates a cache and starts its janitor. Call Close to stop it.
func New[V any](opts ...Option[V]) *Cache[V] {
	c := &Cache[V]{
		entries:       make(map[string]entry[V]),
		now:           time.Now,
		sweepInterval: defaultSweepInterval,
		stop:          make(chan struct{}),
		done:          make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	go c.janitor()
	return c
}

// Get returns the live value for key.
func (c *Cache[V]) Get(key string) (V, bool) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok || !c.now().Before(e.expiresAt) {
		var zero V
		return zero, false
	}
	return e.value, true
}

// Set stores value for ttl.
func (c *Cache[V]) Set(key string, value V, ttl time.Duration) {
	c.mu.Lock()
	c.entries[key] = entry[V]{value: value, expiresAt: c.now().Add(ttl)}
	c.mu.Unlock()
}

// Delete removes key.
func (c *Cache[V]) Delete(key string) {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
}

// Update runs a read-modify-write for key while holding the key's lock.
// fn receives the current live value (found=false when absent or expired)
// and returns the value to store with its ttl. When write is false the entry
// is left untouched.
func (c *Cache[V]) Update(key string, fn func(current V, found bool) (next V, ttl time.Duration, write bool)) {
	c.keyLock.WithLock(key, func() {
		current, found := c.Get(key)
		if next, ttl, write := fn(current, found); write {
			c.Set(key, next, ttl)
		}
	})
}

// Len returns the number of stored entries, including not yet swept ones.
func (c *Cache[V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Sweep removes expired entries and returns how many were dropped.
func (c *Cache[V]) Sweep() int {
	now := c.now()
	removed := 0
	c.mu.Lock()
	for k, e := range c.entries {
		if !now.Before(e.expiresAt) {
			delete(c.entries, k)
			removed++
		}
	}
	c.mu.Unlock()
	return removed
}

// Close stops the janitor. It is safe to call more than once.
func (c *Cache[V]) Close() {
	c.stopOnce.Do(func() {
		close(c.stop)
	})
	<-c.done
}

func (c *Cache[V]) janitor() {
	defer close(c.done)
	ticker := time.NewTicker(c.sweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			c.Sweep()
		case <-c.stop:
			return
		}
	}
}
