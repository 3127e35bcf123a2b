package idempotency

import (
	"context"
	"errors"
	"hash/fnv"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

const defaultShardCount = 32

var (
	// ErrNotFound reports that no entry was ever stored under the key, or it
	// was evicted.
	ErrNotFound = errors.New("idempotency entry not found")
	// ErrExpired reports that the entry existed but its TTL elapsed. The
	// entry is removed as part of the check.
	ErrExpired = errors.New("idempotency entry expired")
	// ErrInvalidTTL rejects non-positive lifetimes.
	ErrInvalidTTL = errors.New("idempotency ttl must be positive")
)

type entry struct {
	value     any
	expiresAt time.Time
}

type shard struct {
	mu      sync.Mutex
	entries map[string]entry
}

// Cache is a process-local replay cache keyed by operation fingerprint.
// Keys are spread over independently locked shards; expired entries are
// dropped lazily on read and in bulk by Sweep.
type Cache struct {
	shards []*shard
	now    func() time.Time
	flight singleflight.Group
}

type Option func(*Cache)

// WithClock replaces the wall clock used for expiry decisions.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) {
		if now != nil {
			c.now = now
		}
	}
}

func WithShardCount(count int) Option {
	return func(c *Cache) {
		if count > 0 {
			c.shards = newShards(count)
		}
	}
}

func New(opts ...Option) *Cache {
	cache := &Cache{
		shards: newShards(defaultShardCount),
		now:    func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(cache)
	}
	return cache
}

func newShards(count int) []*shard {
	shards := make([]*shard, count)
	for i := range shards {
		shards[i] = &shard{entries: make(map[string]entry)}
	}
	return shards
}

func (c *Cache) shardFor(key string) *shard {
	hash := fnv.New32a()
	_, _ = hash.Write([]byte(key))
	return c.shards[hash.Sum32()%uint32(len(c.shards))]
}

// Check returns the stored value when present and unexpired.
func (c *Cache) Check(key string) (any, error) {
	s := c.shardFor(key)
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.entries[key]
	if !ok {
		return nil, ErrNotFound
	}
	if !c.now().Before(item.expiresAt) {
		delete(s.entries, key)
		return nil, ErrExpired
	}
	return item.value, nil
}

// Store records value under key for ttl, replacing any previous entry.
func (c *Cache) Store(key string, value any, ttl time.Duration) error {
	if ttl <= 0 {
		return ErrInvalidTTL
	}
	s := c.shardFor(key)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = entry{value: value, expiresAt: c.now().Add(ttl)}
	return nil
}

func (c *Cache) Invalidate(key string) {
	s := c.shardFor(key)
	s.mu.Lock()
	delete(s.entries, key)
	s.mu.Unlock()
}

// Sweep removes every expired entry and returns how many were removed. Each
// shard is locked on its own, so readers of other shards are not blocked.
func (c *Cache) Sweep() int {
	removed := 0
	for _, s := range c.shards {
		s.mu.Lock()
		now := c.now()
		for key, item := range s.entries {
			if !now.Before(item.expiresAt) {
				delete(s.entries, key)
				removed++
			}
		}
		s.mu.Unlock()
	}
	return removed
}

// Len counts stored entries, expired ones included until swept.
func (c *Cache) Len() int {
	total := 0
	for _, s := range c.shards {
		s.mu.Lock()
		total += len(s.entries)
		s.mu.Unlock()
	}
	return total
}

// Execute returns the stored outcome for key or runs fn and stores its
// successful result for ttl. Concurrent callers with the same key share one
// execution; all but the executing caller observe replayed=true. Errors are
// returned to every waiter and never stored.
func (c *Cache) Execute(
	ctx context.Context,
	key string,
	ttl time.Duration,
	fn func(ctx context.Context) (any, error),
) (any, bool, error) {
	if ttl <= 0 {
		return nil, false, ErrInvalidTTL
	}
	if value, err := c.Check(key); err == nil {
		return value, true, nil
	}

	executed := false
	value, err, _ := c.flight.Do(key, func() (any, error) {
		if value, err := c.Check(key); err == nil {
			return value, nil
		}
		executed = true
		value, err := fn(ctx)
		if err != nil {
			return nil, err
		}
		if err := c.Store(key, value, ttl); err != nil {
			return nil, err
		}
		return value, nil
	})
	if err != nil {
		return nil, false, err
	}
	return value, !executed, nil
}
