// Package cache provides a sharded in-memory store with per-entry TTL and
// optional LRU eviction.
package cache

import (
	"container/list"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
)

// Options configures a Cache.
type Options struct {
	// Shards is the number of independently locked partitions.
	// Default: 16
	Shards int

	// Capacity bounds the number of entries per shard. When a shard is
	// full the least recently used entry is evicted. 0 means unbounded.
	Capacity int

	// Clock overrides time.Now (tests).
	Clock func() time.Time

	// OnEvict is called after an entry leaves the cache through expiry or
	// LRU eviction. It is not called for explicit Delete.
	OnEvict func(key string, reason EvictReason)
}

// EvictReason tells OnEvict why an entry was removed.
type EvictReason string

const (
	EvictExpired EvictReason = "expired"
	EvictLRU     EvictReason = "lru"
)

type entry[V any] struct {
	key       string
	value     V
	expiresAt time.Time
	element   *list.Element
}

type shard[V any] struct {
	mu      sync.Mutex
	items   map[string]*entry[V]
	lruList *list.List
}

// Cache is a concurrency-safe key/value store split into shards.
type Cache[V any] struct {
	shards   []*shard[V]
	capacity int
	now      func() time.Time
	onEvict  func(string, EvictReason)
}

// New creates a cache with the given options.
func New[V any](opts Options) *Cache[V] {
	if opts.Shards <= 0 {
		opts.Shards = 16
	}
	if opts.Capacity < 0 {
		opts.Capacity = 0
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}

	c := &Cache[V]{
		shards:   make([]*shard[V], opts.Shards),
		capacity: opts.Capacity,
		now:      opts.Clock,
		onEvict:  opts.OnEvict,
	}
	for i := range c.shards {
		c.shards[i] = &shard[V]{
			items:   make(map[string]*entry[V]),
			lruList: list.New(),
		}
	}
	return c
}

func (c *Cache[V]) shardFor(key string) *shard[V] {
	return c.shards[xxhash.Sum64String(key)%uint64(len(c.shards))]
}

func (c *Cache[V]) expired(e *entry[V], now time.Time) bool {
	return !e.expiresAt.IsZero() && now.After(e.expiresAt)
}

// Get retrieves a value. Expired entries are removed on access.
func (c *Cache[V]) Get(key string) (V, bool) {
	s := c.shardFor(key)
	s.mu.Lock()

	e, ok := s.items[key]
	if !ok {
		s.mu.Unlock()
		var zero V
		return zero, false
	}
	if c.expired(e, c.now()) {
		s.remove(e)
		s.mu.Unlock()
		c.notify(key, EvictExpired)
		var zero V
		return zero, false
	}
	s.lruList.MoveToFront(e.element)
	v := e.value
	s.mu.Unlock()
	return v, true
}

// Set stores a value. A ttl of 0 means the entry never expires.
func (c *Cache[V]) Set(key string, value V, ttl time.Duration) {
	s := c.shardFor(key)
	var evicted string

	s.mu.Lock()
	expiresAt := c.deadline(ttl)
	if existing, ok := s.items[key]; ok {
		existing.value = value
		existing.expiresAt = expiresAt
		s.lruList.MoveToFront(existing.element)
		s.mu.Unlock()
		return
	}

	if c.capacity > 0 && len(s.items) >= c.capacity {
		evicted = s.evictLRU()
	}

	e := &entry[V]{key: key, value: value, expiresAt: expiresAt}
	e.element = s.lruList.PushFront(e)
	s.items[key] = e
	s.mu.Unlock()

	if evicted != "" {
		c.notify(evicted, EvictLRU)
	}
}

// Expire changes the TTL of an existing entry without touching its value.
// It reports whether the key was present.
func (c *Cache[V]) Expire(key string, ttl time.Duration) bool {
	s := c.shardFor(key)
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.items[key]
	if !ok {
		return false
	}
	e.expiresAt = c.deadline(ttl)
	return true
}

// Delete removes a key.
func (c *Cache[V]) Delete(key string) {
	s := c.shardFor(key)
	s.mu.Lock()
	defer s.mu.Unlock()

	if e, ok := s.items[key]; ok {
		s.remove(e)
	}
}

// Len returns the number of stored entries, expired ones included until
// they are cleaned.
func (c *Cache[V]) Len() int {
	n := 0
	for _, s := range c.shards {
		s.mu.Lock()
		n += len(s.items)
		s.mu.Unlock()
	}
	return n
}

// Range calls fn for every live entry until fn returns false. Shards are
// visited one at a time; fn must not call back into the cache.
func (c *Cache[V]) Range(fn func(key string, value V) bool) {
	now := c.now()
	for _, s := range c.shards {
		s.mu.Lock()
		for k, e := range s.items {
			if c.expired(e, now) {
				continue
			}
			if !fn(k, e.value) {
				s.mu.Unlock()
				return
			}
		}
		s.mu.Unlock()
	}
}

// Keys returns all live keys.
func (c *Cache[V]) Keys() []string {
	keys := make([]string, 0)
	c.Range(func(k string, _ V) bool {
		keys = append(keys, k)
		return true
	})
	return keys
}

// CleanExpired removes all expired entries and returns how many were dropped.
func (c *Cache[V]) CleanExpired() int {
	now := c.now()
	var removed []string

	for _, s := range c.shards {
		s.mu.Lock()
		for _, e := range s.items {
			if c.expired(e, now) {
				s.remove(e)
				removed = append(removed, e.key)
			}
		}
		s.mu.Unlock()
	}

	for _, k := range removed {
		c.notify(k, EvictExpired)
	}
	return len(removed)
}

// StartCleanupWorker runs CleanExpired every interval until the returned
// stop function is called.
func (c *Cache[V]) StartCleanupWorker(interval time.Duration) func() {
	stopChan := make(chan struct{})
	ticker := time.NewTicker(interval)

	go func() {
		for {
			select {
			case <-ticker.C:
				c.CleanExpired()
			case <-stopChan:
				ticker.Stop()
				return
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() { close(stopChan) })
	}
}

func (c *Cache[V]) deadline(ttl time.Duration) time.Time {
	if ttl <= 0 {
		return time.Time{}
	}
	return c.now().Add(ttl)
}

func (c *Cache[V]) notify(key string, reason EvictReason) {
	if c.onEvict != nil {
		c.onEvict(key, reason)
	}
}

// evictLRU removes the least recently used entry. Must hold s.mu.
func (s *shard[V]) evictLRU() string {
	back := s.lruList.Back()
	if back == nil {
		return ""
	}
	e := back.Value.(*entry[V])
	s.remove(e)
	return e.key
}

// remove deletes e. Must hold s.mu.
func (s *shard[V]) remove(e *entry[V]) {
	delete(s.items, e.key)
	s.lruList.Remove(e.element)
}
