package readcache

import (
	"context"
	"errors"
	"maps"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/goliatone/go-library-catalog/cache"
	"github.com/goliatone/go-library-catalog/catalog"
	"github.com/goliatone/go-library-catalog/naming"
	"go.uber.org/zap"
)

// Read operation names used in keys and observer events.
const (
	OpRecord = "record"
	OpFind   = "find"
	OpIndex  = "index"
)

// Observer receives read cache events.
type Observer interface {
	ReadCacheLookup(kind catalog.Kind, op string, hit bool)
	ReadCacheInvalidated(kind catalog.Kind, keys int)
}

type nopObserver struct{}

func (nopObserver) ReadCacheLookup(catalog.Kind, string, bool) {}
func (nopObserver) ReadCacheInvalidated(catalog.Kind, int)     {}

// Option configures a CachedReader.
type Option func(*CachedReader)

// WithObserver registers an Observer.
func WithObserver(o Observer) Option {
	return func(c *CachedReader) {
		if o != nil {
			c.observer = o
		}
	}
}

// WithLogger sets the logger used for invalidation failures.
func WithLogger(l *zap.Logger) Option {
	return func(c *CachedReader) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithNormalizer sets the normalizer applied to Find names before they are
// used as keys. It must match the one the stores use.
func WithNormalizer(n naming.Normalizer) Option {
	return func(c *CachedReader) {
		if n != nil {
			c.normalizer = n
		}
	}
}

// CachedReader decorates a Reader with a read-through cache of views,
// indexes and name lookups. Only detached values are cached, never
// entities. Keys start with the kind so a kind is dropped by prefix.
type CachedReader struct {
	base        Reader
	cache       cache.CacheService
	keys        cache.KeySerializer
	keyRegistry *sync.Map
	generations sync.Map // catalog.Kind -> *atomic.Uint64
	observer    Observer
	logger      *zap.Logger
	normalizer  naming.Normalizer
}

var _ Reader = (*CachedReader)(nil)

// NewCachedReader wraps base. The cache service should be configured with
// catalog.ErrNotFound as its NotFound error so absent records are cached
// too.
func NewCachedReader(base Reader, svc cache.CacheService, keys cache.KeySerializer, opts ...Option) *CachedReader {
	c := &CachedReader{
		base:        base,
		cache:       svc,
		keys:        keys,
		keyRegistry: &sync.Map{},
		observer:    nopObserver{},
		logger:      zap.NewNop(),
		normalizer:  naming.Default,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Record implements Reader.
func (c *CachedReader) Record(ctx context.Context, kind catalog.Kind, id int64) (catalog.View, error) {
	key := c.keys.SerializeKey(kind.String(), OpRecord, id)
	view, err := read(ctx, c, kind, OpRecord, key, func(ctx context.Context) (catalog.View, error) {
		return c.base.Record(ctx, kind, id)
	})
	return maps.Clone(view), err
}

// Find implements Reader.
func (c *CachedReader) Find(ctx context.Context, kind catalog.Kind, name string) (int64, error) {
	normalized, err := c.normalizer.Normalize(name)
	if err != nil {
		return 0, &catalog.InvalidNameError{Kind: kind, Raw: name, Err: err}
	}
	key := c.keys.SerializeKey(kind.String(), OpFind, normalized)
	return read(ctx, c, kind, OpFind, key, func(ctx context.Context) (int64, error) {
		return c.base.Find(ctx, kind, normalized)
	})
}

// Index implements Reader.
func (c *CachedReader) Index(ctx context.Context, kind catalog.Kind) (catalog.Index, error) {
	key := c.keys.SerializeKey(kind.String(), OpIndex)
	idx, err := read(ctx, c, kind, OpIndex, key, func(ctx context.Context) (catalog.Index, error) {
		return c.base.Index(ctx, kind)
	})
	return maps.Clone(idx), err
}

func read[T any](ctx context.Context, c *CachedReader, kind catalog.Kind, op, key string, fetch cache.FetchFn[T]) (T, error) {
	c.trackKey(key)
	gen := c.generation(kind)
	started := gen.Load()
	fetched := false
	v, err := cache.GetOrFetch(ctx, c.cache, key, func(ctx context.Context) (T, error) {
		fetched = true
		return fetch(ctx)
	})
	c.observer.ReadCacheLookup(kind, op, !fetched)

	// An invalidation that ran while the fetch was in flight may have
	// missed the value stored above.
	if fetched && gen.Load() != started {
		if derr := c.cache.Delete(ctx, key); derr != nil {
			c.logger.Warn("read cache delete failed", zap.String("key", key), zap.Error(derr))
		}
	}
	return v, err
}

func (c *CachedReader) generation(kind catalog.Kind) *atomic.Uint64 {
	g, _ := c.generations.LoadOrStore(kind, new(atomic.Uint64))
	return g.(*atomic.Uint64)
}

// Invalidate drops the entries of kinds, of the kinds whose views embed
// them, and of the kinds they reference, since creating a book may have
// created its author, genre and series.
func (c *CachedReader) Invalidate(ctx context.Context, kinds ...catalog.Kind) error {
	var errs []error
	for _, kind := range affected(kinds) {
		c.generation(kind).Add(1)
		n, err := c.invalidateByPrefix(ctx, cache.Prefix(kind.String()))
		if err != nil {
			errs = append(errs, err)
		}
		c.observer.ReadCacheInvalidated(kind, n)
	}
	return errors.Join(errs...)
}

func affected(kinds []catalog.Kind) []catalog.Kind {
	seen := map[catalog.Kind]bool{}
	var out []catalog.Kind
	add := func(k catalog.Kind) {
		if !seen[k] {
			seen[k] = true
			out = append(out, k)
		}
	}
	for _, kind := range kinds {
		add(kind)
		for _, dep := range catalog.Dependents(kind) {
			add(dep)
		}
		for _, rel := range catalog.RelationsOf(kind) {
			add(rel.Target)
		}
	}
	return out
}

func (c *CachedReader) trackKey(key string) {
	c.keyRegistry.Store(key, struct{}{})
}

func (c *CachedReader) invalidateByPrefix(ctx context.Context, prefix string) (int, error) {
	var keys []string
	c.keyRegistry.Range(func(k, _ any) bool {
		if key, ok := k.(string); ok && strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
		return true
	})

	var errs []error
	for _, key := range keys {
		if err := c.cache.Delete(ctx, key); err != nil {
			c.logger.Warn("read cache delete failed", zap.String("key", key), zap.Error(err))
			errs = append(errs, err)
			continue
		}
		c.keyRegistry.Delete(key)
	}
	return len(keys), errors.Join(errs...)
}
