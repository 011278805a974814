// Package cache stores resolved manifest sets by content key.
package cache

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/93bx/vidsrc-stremio-addon/internal/manifest"
	"github.com/93bx/vidsrc-stremio-addon/internal/metrics"
)

// DefaultTTL balances manifest freshness against repeat solver spend.
const DefaultTTL = 2 * time.Hour

// Cache is the resolution cache. Only non-empty sets are ever stored, and
// expired entries are never returned regardless of backend.
type Cache struct {
	store  Store
	ttl    time.Duration
	logger zerolog.Logger
	now    func() time.Time
}

// New creates a cache over store. A non-positive ttl selects DefaultTTL.
func New(store Store, ttl time.Duration, logger zerolog.Logger) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{
		store:  store,
		ttl:    ttl,
		logger: logger.With().Str("component", "cache").Str("backend", store.Name()).Logger(),
		now:    time.Now,
	}
}

// TTL returns the default entry lifetime.
func (c *Cache) TTL() time.Duration {
	return c.ttl
}

// Get returns the cached set for key. Backend errors count as a miss.
func (c *Cache) Get(ctx context.Context, key string) (manifest.Set, bool) {
	set, ok, err := c.lookup(ctx, key)
	switch {
	case err != nil:
		metrics.CacheLookups.WithLabelValues("error").Inc()
	case ok:
		metrics.CacheLookups.WithLabelValues("hit").Inc()
	default:
		metrics.CacheLookups.WithLabelValues("miss").Inc()
	}
	return set, ok
}

// Peek is Get without recording a lookup.
func (c *Cache) Peek(ctx context.Context, key string) (manifest.Set, bool) {
	set, ok, _ := c.lookup(ctx, key)
	return set, ok
}

func (c *Cache) lookup(ctx context.Context, key string) (manifest.Set, bool, error) {
	e, ok, err := c.store.Load(ctx, key)
	if err != nil {
		c.logger.Warn().Err(err).Str("key", key).Msg("Cache lookup failed")
		return nil, false, err
	}
	if !ok || e.Expired(c.now()) || e.Value.Empty() {
		return nil, false, nil
	}
	return e.Value.Clone(), true, nil
}

// Put stores set under key. Empty sets are rejected.
func (c *Cache) Put(ctx context.Context, key string, set manifest.Set, ttl time.Duration) {
	if set.Empty() {
		c.logger.Warn().Str("key", key).Msg("Refusing to cache empty manifest set")
		return
	}
	if ttl <= 0 {
		ttl = c.ttl
	}

	entry := Entry{Key: key, Value: set.Clone(), InsertedAt: c.now(), TTL: ttl}
	if err := c.store.Save(ctx, entry); err != nil {
		c.logger.Warn().Err(err).Str("key", key).Msg("Cache write failed")
		return
	}
	c.logger.Debug().Str("key", key).Int("manifests", len(set)).Dur("ttl", ttl).Msg("Cached manifest set")
}

// Invalidate drops key.
func (c *Cache) Invalidate(ctx context.Context, key string) error {
	return c.store.Delete(ctx, key)
}

// Sweep removes expired entries from backends that need it.
func (c *Cache) Sweep(ctx context.Context) error {
	removed, err := c.store.Sweep(ctx)
	if err != nil {
		return err
	}
	if removed > 0 {
		c.logger.Debug().Int("removed", removed).Msg("Swept expired cache entries")
	}
	return nil
}
