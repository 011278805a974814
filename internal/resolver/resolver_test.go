package resolver

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/93bx/vidsrc-stremio-addon/internal/cache"
	"github.com/93bx/vidsrc-stremio-addon/internal/extractor"
	"github.com/93bx/vidsrc-stremio-addon/internal/manifest"
	"github.com/93bx/vidsrc-stremio-addon/internal/metrics"
)

type countingExtractor struct {
	calls atomic.Int32
	delay time.Duration
	set   manifest.Set
	err   error
}

func (e *countingExtractor) Resolve(ctx context.Context, req extractor.Request) (manifest.Set, error) {
	e.calls.Add(1)
	if e.delay > 0 {
		time.Sleep(e.delay)
	}
	return e.set.Clone(), e.err
}

func newResolver(ex Extractor) *Resolver {
	c := cache.New(cache.NewMemoryStore(100), time.Hour, zerolog.Nop())
	return New(c, ex, zerolog.Nop())
}

var req = extractor.Request{ContentKey: "tt1234567", TargetURL: "https://vidsrc.example/embed/movie/tt1234567"}

func TestResolve_SecondCallIsCached(t *testing.T) {
	ex := &countingExtractor{set: manifest.Set{"master": "https://cdn.example/hls/master.m3u8"}}
	r := newResolver(ex)

	first, err := r.Resolve(context.Background(), req)
	require.NoError(t, err)
	second, err := r.Resolve(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.EqualValues(t, 1, ex.calls.Load(), "exactly one extraction expected")
}

func TestResolve_ConcurrentCallersShareExtraction(t *testing.T) {
	ex := &countingExtractor{set: manifest.Set{"master": "u"}, delay: 50 * time.Millisecond}
	r := newResolver(ex)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			set, err := r.Resolve(context.Background(), req)
			assert.NoError(t, err)
			assert.Equal(t, "u", set["master"])
		}()
	}
	wg.Wait()

	assert.EqualValues(t, 1, ex.calls.Load())
}

func TestResolve_FailureIsNotCached(t *testing.T) {
	ex := &countingExtractor{err: extractor.ErrNoManifestCaptured}
	r := newResolver(ex)

	_, err := r.Resolve(context.Background(), req)
	require.True(t, errors.Is(err, extractor.ErrNoManifestCaptured))
	_, err = r.Resolve(context.Background(), req)
	require.Error(t, err)

	assert.EqualValues(t, 2, ex.calls.Load())
}

func TestResolve_Invalidate(t *testing.T) {
	ex := &countingExtractor{set: manifest.Set{"master": "u"}}
	r := newResolver(ex)
	ctx := context.Background()

	_, err := r.Resolve(ctx, req)
	require.NoError(t, err)
	require.NoError(t, r.Invalidate(ctx, req.ContentKey))
	_, err = r.Resolve(ctx, req)
	require.NoError(t, err)

	assert.EqualValues(t, 2, ex.calls.Load())
}

func TestResolve_ColdResolutionCountsOneMiss(t *testing.T) {
	ex := &countingExtractor{set: manifest.Set{"master": "u"}}
	r := newResolver(ex)
	misses := metrics.CacheLookups.WithLabelValues("miss")
	hits := metrics.CacheLookups.WithLabelValues("hit")
	missesBefore, hitsBefore := promtest.ToFloat64(misses), promtest.ToFloat64(hits)

	cold := extractor.Request{ContentKey: "tt7654321", TargetURL: req.TargetURL}
	_, err := r.Resolve(context.Background(), cold)
	require.NoError(t, err)
	_, err = r.Resolve(context.Background(), cold)
	require.NoError(t, err)

	assert.Equal(t, 1.0, promtest.ToFloat64(misses)-missesBefore)
	assert.Equal(t, 1.0, promtest.ToFloat64(hits)-hitsBefore)
}
