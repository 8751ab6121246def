package ttlcache

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"danmu/internal/kvstore"
	"danmu/internal/logging"
)

type entry[V any] struct {
	value  V
	stored time.Time
}

type persisted[V any] struct {
	Value     V         `json:"value"`
	Timestamp time.Time `json:"timestamp"`
}

// Option configures a Cache.
type Option[V any] func(*Cache[V])

// WithClock replaces time.Now, mainly for tests.
func WithClock[V any](now func() time.Time) Option[V] {
	return func(c *Cache[V]) {
		if now != nil {
			c.now = now
		}
	}
}

// WithBackend persists entries under prefix in store.
func WithBackend[V any](store kvstore.Store, prefix string) Option[V] {
	return func(c *Cache[V]) {
		c.backend = store
		c.prefix = prefix
	}
}

// WithLogger sets the logger used for backend failures.
func WithLogger[V any](logger *slog.Logger) Option[V] {
	return func(c *Cache[V]) {
		c.logger = logging.NewComponentLogger(logger, "ttlcache")
	}
}

// Cache maps keys to values for a fixed TTL. A non-positive TTL disables
// caching entirely.
type Cache[V any] struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[string]entry[V]
	now     func() time.Time
	backend kvstore.Store
	prefix  string
	logger  *slog.Logger
}

// New returns an empty cache.
func New[V any](ttl time.Duration, opts ...Option[V]) *Cache[V] {
	c := &Cache[V]{
		ttl:     ttl,
		entries: make(map[string]entry[V]),
		now:     time.Now,
		logger:  logging.NewComponentLogger(nil, "ttlcache"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// TTL returns the configured lifetime.
func (c *Cache[V]) TTL() time.Duration {
	return c.ttl
}

func (c *Cache[V]) expired(stored time.Time) bool {
	return c.now().Sub(stored) > c.ttl
}

// Get returns the value for key when it is present and not expired. Expired
// entries are deleted.
func (c *Cache[V]) Get(key string) (V, bool) {
	var zero V
	if c.ttl <= 0 {
		return zero, false
	}

	c.mu.Lock()
	e, ok := c.entries[key]
	if ok {
		if !c.expired(e.stored) {
			c.mu.Unlock()
			return e.value, true
		}
		delete(c.entries, key)
	}
	c.mu.Unlock()

	if ok {
		c.deleteBackend(key)
		return zero, false
	}
	return c.loadBackend(key)
}

// Set stores value under key.
func (c *Cache[V]) Set(key string, value V) {
	if c.ttl <= 0 {
		return
	}
	stored := c.now()
	c.mu.Lock()
	c.entries[key] = entry[V]{value: value, stored: stored}
	c.mu.Unlock()
	c.storeBackend(key, value, stored)
}

// Delete removes key.
func (c *Cache[V]) Delete(key string) {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
	c.deleteBackend(key)
}

// Len reports the number of in-memory entries, expired or not.
func (c *Cache[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Purge drops every in-memory entry. The backend is left untouched.
func (c *Cache[V]) Purge() {
	c.mu.Lock()
	c.entries = make(map[string]entry[V])
	c.mu.Unlock()
}

func (c *Cache[V]) backendKey(key string) string {
	return c.prefix + key
}

func (c *Cache[V]) loadBackend(key string) (V, bool) {
	var zero V
	if c.backend == nil {
		return zero, false
	}
	ctx := context.Background()
	record, ok, err := c.backend.Get(ctx, c.backendKey(key))
	if err != nil {
		c.logger.Debug("cache backend read failed", logging.String("key", key), logging.Error(err))
		return zero, false
	}
	if !ok {
		return zero, false
	}
	var payload persisted[V]
	if err := json.Unmarshal(record.Value, &payload); err != nil {
		logging.WarnWithContext(c.logger, "discarding undecodable cache entry", "cache_entry_corrupt",
			logging.String("key", key),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "entry will be refetched"),
			logging.String(logging.FieldImpact, "none beyond an extra upstream request"),
		)
		c.deleteBackend(key)
		return zero, false
	}
	if c.expired(payload.Timestamp) {
		c.deleteBackend(key)
		return zero, false
	}
	c.mu.Lock()
	c.entries[key] = entry[V]{value: payload.Value, stored: payload.Timestamp}
	c.mu.Unlock()
	return payload.Value, true
}

func (c *Cache[V]) storeBackend(key string, value V, stored time.Time) {
	if c.backend == nil {
		return
	}
	data, err := json.Marshal(persisted[V]{Value: value, Timestamp: stored})
	if err != nil {
		c.logger.Debug("cache value not serializable", logging.String("key", key), logging.Error(err))
		return
	}
	if _, err := c.backend.Put(context.Background(), c.backendKey(key), data); err != nil {
		logging.WarnWithContext(c.logger, "cache backend write failed", "cache_write_failed",
			logging.String("key", key),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check cache.path permissions and disk space"),
			logging.String(logging.FieldImpact, "entry is cached in memory only"),
		)
	}
}

func (c *Cache[V]) deleteBackend(key string) {
	if c.backend == nil {
		return
	}
	if err := c.backend.Delete(context.Background(), c.backendKey(key)); err != nil {
		c.logger.Debug("cache backend delete failed", logging.String("key", key), logging.Error(err))
	}
}
