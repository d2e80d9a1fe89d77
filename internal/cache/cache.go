// Package cache holds small in-memory keyed caches.
package cache

import (
	"sync"
	"time"
)

// Cache is a keyed store with optional per-entry expiry
type Cache[K comparable, V any] interface {
	Get(key K) (V, bool)
	Set(key K, value V, ttl time.Duration)
	Delete(key K)
	Len() int
	Replace(items map[K]V)
	Values() []V
	PurgeExpired()
}

type entry[V any] struct {
	value     V
	expiresAt time.Time // zero never expires
}

// Map is a map-backed Cache. Expired entries are ignored on read and
// dropped by PurgeExpired.
type Map[K comparable, V any] struct {
	mu    *sync.RWMutex // nil when not shared between goroutines
	items map[K]entry[V]
	now   func() time.Time
}

// Options controls construction of a Map
type Options struct {
	ConcurrencySafe bool
	Now             func() time.Time
}

// New creates an empty Map
func New[K comparable, V any](opts Options) *Map[K, V] {
	c := &Map[K, V]{
		items: make(map[K]entry[V]),
		now:   opts.Now,
	}
	if opts.ConcurrencySafe {
		c.mu = &sync.RWMutex{}
	}
	if c.now == nil {
		c.now = time.Now
	}
	return c
}

func (c *Map[K, V]) rlock() func() {
	if c.mu == nil {
		return func() {}
	}
	c.mu.RLock()
	return c.mu.RUnlock
}

func (c *Map[K, V]) lock() func() {
	if c.mu == nil {
		return func() {}
	}
	c.mu.Lock()
	return c.mu.Unlock
}

func (e entry[V]) live(now time.Time) bool {
	return e.expiresAt.IsZero() || now.Before(e.expiresAt)
}

// Get returns a live entry
func (c *Map[K, V]) Get(key K) (V, bool) {
	defer c.rlock()()

	e, ok := c.items[key]
	if !ok || !e.live(c.now()) {
		var zero V
		return zero, false
	}
	return e.value, true
}

// Set stores value; ttl <= 0 never expires
func (c *Map[K, V]) Set(key K, value V, ttl time.Duration) {
	defer c.lock()()

	var exp time.Time
	if ttl > 0 {
		exp = c.now().Add(ttl)
	}
	c.items[key] = entry[V]{value: value, expiresAt: exp}
}

func (c *Map[K, V]) Delete(key K) {
	defer c.lock()()
	delete(c.items, key)
}

// Len counts live entries
func (c *Map[K, V]) Len() int {
	defer c.rlock()()

	now := c.now()
	n := 0
	for _, e := range c.items {
		if e.live(now) {
			n++
		}
	}
	return n
}

// Replace swaps the whole contents for items, none of which expire
func (c *Map[K, V]) Replace(items map[K]V) {
	next := make(map[K]entry[V], len(items))
	for k, v := range items {
		next[k] = entry[V]{value: v}
	}

	defer c.lock()()
	c.items = next
}

// Values returns the live values in no particular order
func (c *Map[K, V]) Values() []V {
	defer c.rlock()()

	now := c.now()
	out := make([]V, 0, len(c.items))
	for _, e := range c.items {
		if e.live(now) {
			out = append(out, e.value)
		}
	}
	return out
}

func (c *Map[K, V]) PurgeExpired() {
	defer c.lock()()

	now := c.now()
	for k, e := range c.items {
		if !e.live(now) {
			delete(c.items, k)
		}
	}
}

var _ Cache[string, any] = (*Map[string, any])(nil)
