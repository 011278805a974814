// Package resolver fronts extraction with the resolution cache.
package resolver

import (
	"context"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/93bx/vidsrc-stremio-addon/internal/cache"
	"github.com/93bx/vidsrc-stremio-addon/internal/extractor"
	"github.com/93bx/vidsrc-stremio-addon/internal/manifest"
)

// Extractor resolves a request without caching.
type Extractor interface {
	Resolve(ctx context.Context, req extractor.Request) (manifest.Set, error)
}

// Resolver returns cached sets when fresh and otherwise runs one extraction
// per content key at a time, caching its result.
type Resolver struct {
	cache     *cache.Cache
	extractor Extractor
	group     singleflight.Group
	logger    zerolog.Logger
}

// New creates a resolver.
func New(c *cache.Cache, ex Extractor, logger zerolog.Logger) *Resolver {
	return &Resolver{
		cache:     c,
		extractor: ex,
		logger:    logger.With().Str("component", "resolver").Logger(),
	}
}

// Resolve returns the manifest set for req.
func (r *Resolver) Resolve(ctx context.Context, req extractor.Request) (manifest.Set, error) {
	if set, ok := r.cache.Get(ctx, req.ContentKey); ok {
		r.logger.Debug().Str("contentKey", req.ContentKey).Msg("Cache hit")
		return set, nil
	}

	// Waiters share one extraction; it is detached from the first caller's
	// cancellation so a dropped client does not fail the others.
	shared := context.WithoutCancel(ctx)
	v, err, joined := r.group.Do(req.ContentKey, func() (interface{}, error) {
		// a caller that finished just before us may have filled the entry
		if set, ok := r.cache.Peek(shared, req.ContentKey); ok {
			return set, nil
		}
		set, err := r.extractor.Resolve(shared, req)
		if err != nil {
			return nil, err
		}
		r.cache.Put(shared, req.ContentKey, set, 0)
		return set, nil
	})
	if err != nil {
		return nil, err
	}
	if joined {
		r.logger.Debug().Str("contentKey", req.ContentKey).Msg("Joined in-flight extraction")
	}
	return v.(manifest.Set).Clone(), nil
}

// Invalidate drops the cached entry for key.
func (r *Resolver) Invalidate(ctx context.Context, key string) error {
	return r.cache.Invalidate(ctx, key)
}
