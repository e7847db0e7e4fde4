// Package sessioncache provides a transactional entity store for the catalog
// and the manager that scopes it.
//
// A Store wraps one database transaction at a time and keeps an identity
// cache keyed by (kind, normalized name). Two Create calls for the same name
// in one transaction return the same instance, and books loaded from the
// database share the cached author, genre and series instances:
//
//	err := manager.Scope(ctx, func(ctx context.Context, s *sessioncache.Store) error {
//		_, err := s.Create(ctx, catalog.KindBook, "Words of Radiance", catalog.Attrs{
//			catalog.AttrAuthor: "Brandon Sanderson",
//			catalog.AttrSeries: "The Stormlight Archive",
//		})
//		return err
//	})
//
// Relation attributes given as strings are created or fetched in the same
// transaction. Commit and Rollback clear the cache so no instance outlives
// the transaction that loaded it. Scope commits when the callback returns
// nil, rolls back on error or panic, and always closes the store.
package sessioncache
