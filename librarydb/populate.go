package librarydb

import (
	"context"
	"time"

	"github.com/goliatone/go-library-catalog/catalog"
	"github.com/goliatone/go-library-catalog/sessioncache"
)

// Populate adds the sample library in one scope and returns the committed
// book index. Running it again adds nothing: every name resolves to the
// rows created by the first run.
func (d *DB) Populate(ctx context.Context) (catalog.Index, error) {
	err := d.Scope(ctx, func(ctx context.Context, s *sessioncache.Store) error {
		return AddSampleLibrary(ctx, s)
	})
	if err != nil {
		return nil, err
	}
	return d.Index(ctx, catalog.KindBook)
}

// AddSampleLibrary creates the sample authors, genres, series and books
// through s.
func AddSampleLibrary(ctx context.Context, s *sessioncache.Store) error {
	if _, err := s.Create(ctx, catalog.KindGenre, "Fantasy", nil); err != nil {
		return err
	}
	if _, err := s.Create(ctx, catalog.KindBook, "The Way of Kings", catalog.Attrs{
		catalog.AttrAuthor:       "Brandon Sanderson",
		catalog.AttrGenre:        "Fantasy",
		catalog.AttrSeries:       "The Stormlight Archive",
		catalog.AttrSeriesNumber: 1,
		catalog.AttrReleaseDate:  time.Date(2010, time.August, 31, 0, 0, 0, 0, time.UTC),
	}); err != nil {
		return err
	}

	sanderson, _, err := s.Get(ctx, catalog.KindAuthor, "Brandon Sanderson")
	if err != nil {
		return err
	}
	if _, err := s.Create(ctx, catalog.KindBook, "Words of Radiance", catalog.Attrs{
		catalog.AttrAuthor:       sanderson,
		catalog.AttrGenre:        "Fantasy",
		catalog.AttrSeries:       "The Stormlight Archive",
		catalog.AttrSeriesNumber: 2,
		catalog.AttrReleaseDate:  time.Date(2014, time.March, 4, 0, 0, 0, 0, time.UTC),
	}); err != nil {
		return err
	}

	if _, err := s.Create(ctx, catalog.KindBook, "Harry Potter and the Sorcerer's Stone", catalog.Attrs{
		catalog.AttrAuthor: "J.K. Rowling",
	}); err != nil {
		return err
	}
	if _, err := s.Create(ctx, catalog.KindSeries, "The Expanse", nil); err != nil {
		return err
	}
	_, err = s.Create(ctx, catalog.KindBook, "The Fault in our Stars", catalog.Attrs{
		catalog.AttrAuthor: "John Green",
		catalog.AttrGenre:  "Contemporary",
	})
	return err
}
