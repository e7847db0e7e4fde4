package readcache

import (
	"context"
	"fmt"

	"github.com/goliatone/go-library-catalog/catalog"
	"github.com/goliatone/go-library-catalog/sessioncache"
)

// Reader answers the catalog read routes.
type Reader interface {
	// Record returns the view of the kind row keyed id.
	Record(ctx context.Context, kind catalog.Kind, id int64) (catalog.View, error)
	// Find returns the key of the kind row named name.
	Find(ctx context.Context, kind catalog.Kind, name string) (int64, error)
	// Index returns the committed index of kind.
	Index(ctx context.Context, kind catalog.Kind) (catalog.Index, error)
	// Invalidate drops anything cached for kinds after a committed write.
	Invalidate(ctx context.Context, kinds ...catalog.Kind) error
}

// Scoper opens store scopes. It is implemented by *librarydb.DB and
// *sessioncache.Manager.
type Scoper interface {
	Scope(ctx context.Context, fn func(ctx context.Context, s *sessioncache.Store) error) error
}

// ScopedReader reads every request in its own scope.
type ScopedReader struct {
	db Scoper
}

var _ Reader = (*ScopedReader)(nil)

// NewScopedReader returns a Reader without caching.
func NewScopedReader(db Scoper) *ScopedReader {
	return &ScopedReader{db: db}
}

// Record implements Reader.
func (r *ScopedReader) Record(ctx context.Context, kind catalog.Kind, id int64) (catalog.View, error) {
	var view catalog.View
	err := r.db.Scope(ctx, func(ctx context.Context, s *sessioncache.Store) error {
		e, err := s.GetByKey(ctx, kind, id)
		if err != nil {
			return err
		}
		view = catalog.ViewOf(e)
		return nil
	})
	return view, err
}

// Find implements Reader.
func (r *ScopedReader) Find(ctx context.Context, kind catalog.Kind, name string) (int64, error) {
	var id int64
	err := r.db.Scope(ctx, func(ctx context.Context, s *sessioncache.Store) error {
		e, ok, err := s.Get(ctx, kind, name)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: %s %q", catalog.ErrNotFound, kind, name)
		}
		id = e.Key()
		return nil
	})
	return id, err
}

// Index implements Reader.
func (r *ScopedReader) Index(ctx context.Context, kind catalog.Kind) (catalog.Index, error) {
	var idx catalog.Index
	err := r.db.Scope(ctx, func(ctx context.Context, s *sessioncache.Store) error {
		var err error
		idx, err = s.Index(ctx, kind)
		return err
	})
	return idx, err
}

// Invalidate implements Reader. Nothing is cached.
func (r *ScopedReader) Invalidate(context.Context, ...catalog.Kind) error { return nil }
