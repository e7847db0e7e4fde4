package readcache_test

import (
	"context"
	"errors"
	"testing"

	"github.com/goliatone/go-library-catalog/cache"
	"github.com/goliatone/go-library-catalog/catalog"
	"github.com/goliatone/go-library-catalog/librarydb"
	"github.com/goliatone/go-library-catalog/pkg/testsupport"
	"github.com/goliatone/go-library-catalog/readcache"
	"github.com/goliatone/go-library-catalog/sessioncache"
)

func populated(t *testing.T) *librarydb.DB {
	t.Helper()
	ctx := context.Background()
	db, err := librarydb.Connect(ctx, librarydb.Options{DSN: testsupport.DatabasePath(t)})
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	if _, err := db.Populate(ctx); err != nil {
		t.Fatalf("populate: %v", err)
	}
	return db
}

func TestScopedReader(t *testing.T) {
	ctx := context.Background()
	r := readcache.NewScopedReader(populated(t))

	id, err := r.Find(ctx, catalog.KindAuthor, "brandon sanderson")
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	view, err := r.Record(ctx, catalog.KindAuthor, id)
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	if view["name"] != "Brandon Sanderson" {
		t.Errorf("view = %v", view)
	}

	if _, err := r.Find(ctx, catalog.KindGenre, "Horror"); !errors.Is(err, catalog.ErrNotFound) {
		t.Errorf("Find(Horror) error = %v, want ErrNotFound", err)
	}
	if _, err := r.Record(ctx, catalog.KindBook, 99); !errors.Is(err, catalog.ErrNotFound) {
		t.Errorf("Record(99) error = %v, want ErrNotFound", err)
	}

	idx, err := r.Index(ctx, catalog.KindSeries)
	if err != nil {
		t.Fatalf("Index: %v", err)
	}
	if len(idx) != 2 {
		t.Errorf("series index = %v", idx)
	}
	if err := r.Invalidate(ctx, catalog.KindBook); err != nil {
		t.Errorf("Invalidate: %v", err)
	}
}

func TestCachedReaderSeesCommittedRenameAfterInvalidate(t *testing.T) {
	ctx := context.Background()
	db := populated(t)

	cfg := cache.DefaultConfig()
	cfg.NotFound = catalog.ErrNotFound
	svc, err := cache.NewCacheService(cfg)
	if err != nil {
		t.Fatalf("NewCacheService: %v", err)
	}
	r := readcache.NewCachedReader(readcache.NewScopedReader(db), svc, cache.NewDefaultKeySerializer())

	id, err := r.Find(ctx, catalog.KindBook, "The Way of Kings")
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if _, err := r.Record(ctx, catalog.KindBook, id); err != nil {
		t.Fatalf("Record: %v", err)
	}

	err = db.Scope(ctx, func(ctx context.Context, s *sessioncache.Store) error {
		author, ok, err := s.Get(ctx, catalog.KindAuthor, "Brandon Sanderson")
		if err != nil || !ok {
			return errors.Join(err, errors.New("author missing"))
		}
		return s.Update(ctx, author, catalog.Attrs{catalog.AttrName: "B. Sanderson"})
	})
	if err != nil {
		t.Fatalf("rename: %v", err)
	}

	stale, err := r.Record(ctx, catalog.KindBook, id)
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	if stale["author"] != "Brandon Sanderson" {
		t.Fatalf("expected the cached view before invalidation, got %v", stale)
	}

	if err := r.Invalidate(ctx, catalog.KindAuthor); err != nil {
		t.Fatalf("Invalidate: %v", err)
	}
	fresh, err := r.Record(ctx, catalog.KindBook, id)
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	if fresh["author"] != "B. Sanderson" {
		t.Errorf("author after invalidation = %v, want B. Sanderson", fresh["author"])
	}
}

func TestCachedReaderMissesOnEmptyDatabase(t *testing.T) {
	ctx := context.Background()
	db, err := librarydb.Connect(ctx, librarydb.Options{DSN: testsupport.DatabasePath(t)})
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	cfg := cache.DefaultConfig()
	cfg.NotFound = catalog.ErrNotFound
	svc, err := cache.NewCacheService(cfg)
	if err != nil {
		t.Fatalf("NewCacheService: %v", err)
	}
	r := readcache.NewCachedReader(readcache.NewScopedReader(db), svc, cache.NewDefaultKeySerializer())

	for i := 0; i < 2; i++ {
		if _, err := r.Find(ctx, catalog.KindBook, "dune"); !errors.Is(err, catalog.ErrNotFound) {
			t.Errorf("Find(dune) #%d error = %v, want ErrNotFound", i, err)
		}
		if _, err := r.Record(ctx, catalog.KindBook, 99); !errors.Is(err, catalog.ErrNotFound) {
			t.Errorf("Record(99) #%d error = %v, want ErrNotFound", i, err)
		}
	}
}
