// Package readcache serves the catalog read routes, optionally through a
// read-through cache.
//
// # Overview
//
// ScopedReader opens one store scope per read. CachedReader decorates any
// Reader and keeps the detached results (views, indexes and name to key
// lookups) in a cache.CacheService:
//
//	base := readcache.NewScopedReader(db)
//	svc, _ := cache.NewCacheService(cfg)
//	reader := readcache.NewCachedReader(base, svc, cache.NewDefaultKeySerializer())
//
//	view, err := reader.Record(ctx, catalog.KindBook, 3)
//
// # Invalidation
//
// Writers call Invalidate with the kinds they touched once their scope has
// committed. Every key of a kind starts with the kind name, and a registry
// of issued keys is scanned by prefix, the way the repository decorator of
// the cache package drops list and count entries after writes. Invalidating
// a kind also drops the kinds whose views embed it (an author rename
// changes book views) and the kinds it references.
//
// Cached views are shared, so Record and Index return copies.
package readcache
