// Package cache provides the read-through cache interface used for
// detached catalog views, its key serializer and its configuration.
//
// # Overview
//
//   - CacheService: read-through GetOrFetch plus key and prefix deletion
//   - KeySerializer: builds stable keys that start with a namespace
//   - Config: sizing, TTL and missing record settings, validated with
//     ozzo-validation and backed by sturdyc
//
// # Basic Usage
//
//	svc, err := cache.NewCacheService(cache.DefaultConfig())
//	keys := cache.NewDefaultKeySerializer()
//	key := keys.SerializeKey("book", "record", int64(3)) // book::"record"::3
//
//	view, err := cache.GetOrFetch(ctx, svc, key, func(ctx context.Context) (catalog.View, error) {
//		return loadView(ctx, 3)
//	})
//
// Every key of a namespace starts with Prefix(namespace), so
// DeleteByPrefix(ctx, cache.Prefix("book")) drops all book entries.
//
// # Missing Records
//
// With MissingRecordStorage enabled, a fetch that fails with the configured
// NotFound error is remembered and later lookups fail with the same error
// without calling fetch again until the entry expires or is deleted.
//
// Values stored in the cache are shared between callers and must not be
// mutated. Never store live entities from an open scope.
package cache
