package catalog

import (
	"fmt"
	"time"

	"github.com/goliatone/go-library-catalog/naming"
	"github.com/uptrace/bun"
)

// Entity is a record identified by its normalized name within its kind.
type Entity interface {
	Kind() Kind
	Key() int64
	DisplayName() string
	// Rename normalizes raw and assigns it as the entity name.
	Rename(n naming.Normalizer, raw string) error
	record() *Record
}

// Record holds the columns shared by every named entity.
// Name must only be assigned through Rename so it is always normalized.
type Record struct {
	ID        int64     `bun:"id,pk,autoincrement" json:"record_id"`
	Name      string    `bun:"name,unique,notnull" json:"name"`
	DateAdded time.Time `bun:"date_added,notnull" json:"date_added"`
}

// Key returns the surrogate primary key, zero until inserted.
func (r *Record) Key() int64 { return r.ID }

// DisplayName returns the canonical name.
func (r *Record) DisplayName() string { return r.Name }

// Rename implements Entity.
func (r *Record) Rename(n naming.Normalizer, raw string) error {
	if n == nil {
		n = naming.Default
	}
	name, err := n.Normalize(raw)
	if err != nil {
		return err
	}
	r.Name = name
	return nil
}

func (r *Record) record() *Record { return r }

// Author is a book author.
type Author struct {
	bun.BaseModel `bun:"table:authors,alias:author"`
	Record
}

// Kind implements Entity.
func (*Author) Kind() Kind { return KindAuthor }

func (a *Author) String() string { return describe(a) }

// Genre is a book genre.
type Genre struct {
	bun.BaseModel `bun:"table:genres,alias:genre"`
	Record
}

// Kind implements Entity.
func (*Genre) Kind() Kind { return KindGenre }

func (g *Genre) String() string { return describe(g) }

// Series groups books published as a sequence.
type Series struct {
	bun.BaseModel `bun:"table:series,alias:series"`
	Record
}

// Kind implements Entity.
func (*Series) Kind() Kind { return KindSeries }

func (s *Series) String() string { return describe(s) }

// Book references an author, a genre and optionally a series.
type Book struct {
	bun.BaseModel `bun:"table:books,alias:book"`
	Record

	AuthorID int64   `bun:"author_id,nullzero"`
	Author   *Author `bun:"rel:belongs-to,join:author_id=id"`
	GenreID  int64   `bun:"genre_id,nullzero"`
	Genre    *Genre  `bun:"rel:belongs-to,join:genre_id=id"`
	SeriesID int64   `bun:"series_id,nullzero"`
	Series   *Series `bun:"rel:belongs-to,join:series_id=id"`

	SeriesNumber Ordinal   `bun:"series_number,type:integer"`
	ReleaseDate  time.Time `bun:"release_date,nullzero"`
}

// Kind implements Entity.
func (*Book) Kind() Kind { return KindBook }

// SetAuthor links the book to a (possibly nil) author.
func (b *Book) SetAuthor(a *Author) {
	b.Author = a
	b.AuthorID = 0
	if a != nil {
		b.AuthorID = a.ID
	}
}

// SetGenre links the book to a (possibly nil) genre.
func (b *Book) SetGenre(g *Genre) {
	b.Genre = g
	b.GenreID = 0
	if g != nil {
		b.GenreID = g.ID
	}
}

// SetSeries links the book to a (possibly nil) series.
func (b *Book) SetSeries(s *Series) {
	b.Series = s
	b.SeriesID = 0
	if s != nil {
		b.SeriesID = s.ID
	}
}

func (b *Book) String() string {
	var author, genre string
	if b.Author != nil {
		author = b.Author.Name
	}
	if b.Genre != nil {
		genre = b.Genre.Name
	}
	return fmt.Sprintf("Book(%q, author=%q, genre=%q)", b.Name, author, genre)
}

// New builds an unsaved entity of kind with a normalized name.
func New(kind Kind, n naming.Normalizer, raw string, added time.Time) (Entity, error) {
	e := kind.New()
	if e == nil {
		return nil, fmt.Errorf("catalog: unknown kind %d", kind)
	}
	if err := e.Rename(n, raw); err != nil {
		return nil, &InvalidNameError{Kind: kind, Raw: raw, Err: err}
	}
	e.record().DateAdded = added
	return e, nil
}

// Stamp sets the date e was added unless it already has one.
func Stamp(e Entity, at time.Time) {
	if r := e.record(); r.DateAdded.IsZero() {
		r.DateAdded = at
	}
}

// SameIdentity reports whether a and b are the same row: same kind and
// either both saved with equal keys or both unsaved with equal names.
func SameIdentity(a, b Entity) bool {
	if a == nil || b == nil || a.Kind() != b.Kind() {
		return false
	}
	if a.Key() != 0 || b.Key() != 0 {
		return a.Key() == b.Key()
	}
	return a.DisplayName() == b.DisplayName()
}

func describe(e Entity) string {
	return fmt.Sprintf("%s(%q)", e.Kind().Label(), e.DisplayName())
}
