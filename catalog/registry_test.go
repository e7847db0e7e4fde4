package catalog

import (
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/goliatone/go-library-catalog/naming"
)

func TestRegistryRelationsOfBook(t *testing.T) {
	rels := RelationsOf(KindBook)
	var tags []string
	for _, r := range rels {
		tags = append(tags, r.Tag)
	}
	want := []string{AttrAuthor, AttrGenre, AttrSeries}
	if !reflect.DeepEqual(tags, want) {
		t.Errorf("RelationsOf(book) = %v, want %v", tags, want)
	}

	for _, k := range []Kind{KindAuthor, KindGenre, KindSeries} {
		if got := RelationsOf(k); len(got) != 0 {
			t.Errorf("RelationsOf(%s) = %v, want none", k, got)
		}
	}
}

func TestRegistryTargetsAreLeaves(t *testing.T) {
	for _, k := range Kinds() {
		for _, r := range RelationsOf(k) {
			if r.Target == r.Owner {
				t.Errorf("%s references itself", k)
			}
			if len(RelationsOf(r.Target)) != 0 {
				t.Errorf("target %s of %q has relations", r.Target, r.Tag)
			}
		}
	}
}

func TestLookupRelation(t *testing.T) {
	r, ok := LookupRelation(AttrSeries)
	if !ok {
		t.Fatal("expected series relation")
	}
	if r.Owner != KindBook || r.Target != KindSeries || r.Column != "series_id" {
		t.Errorf("unexpected relation %+v", r)
	}

	if _, ok := LookupRelation("publisher"); ok {
		t.Error("publisher should not be a relation")
	}
}

func TestRelationSetAndGet(t *testing.T) {
	book := &Book{}
	author := &Author{Record: Record{ID: 7, Name: "Brandon Sanderson"}}

	rel, _ := LookupRelation(AttrAuthor)
	if got := rel.Get(book); got != nil {
		t.Fatalf("Get on empty book = %v, want nil", got)
	}

	rel.Set(book, author)
	if book.Author != author || book.AuthorID != 7 {
		t.Fatalf("Set did not link author: %+v", book)
	}
	if got := rel.Get(book); got != Entity(author) {
		t.Errorf("Get = %v, want the linked author", got)
	}

	rel.Set(book, nil)
	if book.Author != nil || book.AuthorID != 0 {
		t.Errorf("Set(nil) did not clear author: %+v", book)
	}
}

func TestDependents(t *testing.T) {
	if got := Dependents(KindAuthor); !reflect.DeepEqual(got, []Kind{KindBook}) {
		t.Errorf("Dependents(author) = %v, want [book]", got)
	}
	if got := Dependents(KindBook); len(got) != 0 {
		t.Errorf("Dependents(book) = %v, want none", got)
	}
}

func TestCheckAttrs(t *testing.T) {
	tests := []struct {
		name      string
		kind      Kind
		attrs     Attrs
		allowName bool
		wantAttr  string
	}{
		{name: "book relations and scalars", kind: KindBook, attrs: Attrs{
			AttrAuthor: "x", AttrGenre: "y", AttrSeries: "z", AttrSeriesNumber: "1", AttrReleaseDate: "2010-08-31",
		}},
		{name: "empty", kind: KindAuthor, attrs: nil},
		{name: "author has no author attr", kind: KindAuthor, attrs: Attrs{AttrAuthor: "x"}, wantAttr: AttrAuthor},
		{name: "unknown tag", kind: KindBook, attrs: Attrs{"publisher": "Tor"}, wantAttr: "publisher"},
		{name: "name rejected on create", kind: KindGenre, attrs: Attrs{AttrName: "x"}, wantAttr: AttrName},
		{name: "name allowed on update", kind: KindGenre, attrs: Attrs{AttrName: "x"}, allowName: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckAttrs(tt.kind, tt.attrs, tt.allowName)
			if tt.wantAttr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			var unknown *UnknownAttributeError
			if !errors.As(err, &unknown) {
				t.Fatalf("error = %v, want *UnknownAttributeError", err)
			}
			if unknown.Attr != tt.wantAttr || unknown.Kind != tt.kind {
				t.Errorf("got %+v, want attr %q on %s", unknown, tt.wantAttr, tt.kind)
			}
			if !IsClientError(err) {
				t.Error("unknown attribute should be a client error")
			}
		})
	}
}

func TestScalarApply(t *testing.T) {
	book := &Book{}

	number, _ := LookupScalar(KindBook, AttrSeriesNumber)
	for _, v := range []any{"2.5", 2.5, OrdinalFromThousandths(2500)} {
		if err := number.Apply(book, v); err != nil {
			t.Fatalf("Apply(%v) returned error: %v", v, err)
		}
		if book.SeriesNumber.Thousandths() != 2500 {
			t.Errorf("Apply(%v) stored %d thousandths, want 2500", v, book.SeriesNumber.Thousandths())
		}
	}
	if err := number.Apply(book, 3); err != nil || book.SeriesNumber.String() != "3" {
		t.Errorf("Apply(3) = %v, stored %q", err, book.SeriesNumber)
	}

	released, _ := LookupScalar(KindBook, AttrReleaseDate)
	if err := released.Apply(book, "2014-03-04"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := time.Date(2014, 3, 4, 0, 0, 0, 0, time.UTC); !book.ReleaseDate.Equal(want) {
		t.Errorf("ReleaseDate = %v, want %v", book.ReleaseDate, want)
	}

	err := released.Apply(book, "March 4th")
	var valueErr *AttributeValueError
	if !errors.As(err, &valueErr) || valueErr.Attr != AttrReleaseDate {
		t.Fatalf("error = %v, want *AttributeValueError for release_date", err)
	}
	if err := number.Apply(book, []int{1}); err == nil {
		t.Error("expected unsupported type error")
	}
}

func TestScalarsOf(t *testing.T) {
	var tags []string
	for _, s := range ScalarsOf(KindBook) {
		tags = append(tags, s.Tag)
	}
	if want := []string{AttrReleaseDate, AttrSeriesNumber}; !reflect.DeepEqual(tags, want) {
		t.Errorf("ScalarsOf(book) = %v, want %v", tags, want)
	}
	if got := ScalarsOf(KindAuthor); len(got) != 0 {
		t.Errorf("ScalarsOf(author) = %v, want none", got)
	}
}

func TestParseKind(t *testing.T) {
	for _, k := range Kinds() {
		got, ok := ParseKind(" " + k.Label() + " ")
		if !ok || got != k {
			t.Errorf("ParseKind(%q) = %v, %v", k.Label(), got, ok)
		}
		if e := k.New(); e == nil || e.Kind() != k {
			t.Errorf("%s.New() = %v", k, e)
		}
	}
	if _, ok := ParseKind("publisher"); ok {
		t.Error("publisher should not parse")
	}
	if Kind(99).Valid() || Kind(99).New() != nil || Kind(99).String() != "unknown" {
		t.Error("unknown kind should be invalid")
	}
}

func TestNewEntity(t *testing.T) {
	added := time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)
	e, err := New(KindAuthor, naming.Default, "  brandon sanderson ", added)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if e.DisplayName() != "Brandon Sanderson" || e.Key() != 0 {
		t.Errorf("unexpected entity %v", e)
	}

	_, err = New(KindAuthor, nil, "   ", added)
	var invalid *InvalidNameError
	if !errors.As(err, &invalid) || invalid.Kind != KindAuthor {
		t.Fatalf("error = %v, want *InvalidNameError", err)
	}
	if !errors.Is(err, naming.ErrEmptyName) {
		t.Error("InvalidNameError should unwrap to naming.ErrEmptyName")
	}
}

func TestSameIdentity(t *testing.T) {
	a := &Author{Record: Record{ID: 1, Name: "A"}}
	b := &Author{Record: Record{ID: 1, Name: "A"}}
	g := &Genre{Record: Record{ID: 1, Name: "A"}}
	u1 := &Author{Record: Record{Name: "New"}}
	u2 := &Author{Record: Record{Name: "New"}}

	if !SameIdentity(a, b) {
		t.Error("same kind and key should match")
	}
	if SameIdentity(a, g) {
		t.Error("different kinds should not match")
	}
	if !SameIdentity(u1, u2) {
		t.Error("unsaved entities with the same name should match")
	}
	if SameIdentity(a, u1) || SameIdentity(a, nil) {
		t.Error("unexpected match")
	}
}

func TestViewOf(t *testing.T) {
	author := &Author{Record: Record{ID: 1, Name: "Brandon Sanderson"}}
	book := &Book{Record: Record{ID: 3, Name: "Words of Radiance", DateAdded: time.Date(2026, 10, 14, 0, 0, 0, 0, time.UTC)}}
	book.SetAuthor(author)
	book.SeriesNumber = OrdinalFromThousandths(2000)
	book.ReleaseDate = time.Date(2014, 3, 4, 0, 0, 0, 0, time.UTC)

	want := View{
		"model":         "Book",
		"record_id":     int64(3),
		"name":          "Words of Radiance",
		"date_added":    "2026-10-14",
		"author":        "Brandon Sanderson",
		"genre":         nil,
		"series":        nil,
		"series_number": "2",
		"release_date":  "2014-03-04",
	}
	if got := ViewOf(book); !reflect.DeepEqual(got, want) {
		t.Errorf("ViewOf(book) = %v, want %v", got, want)
	}

	genreView := ViewOf(&Genre{Record: Record{ID: 2, Name: "Fantasy"}})
	if genreView["model"] != "Genre" || genreView["date_added"] != nil || len(genreView) != 4 {
		t.Errorf("unexpected genre view %v", genreView)
	}
}

func TestIndexSorted(t *testing.T) {
	idx := Index{3: "c", 1: "a", 2: "b"}
	got := idx.Sorted()
	want := []IndexEntry{{1, "a"}, {2, "b"}, {3, "c"}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Sorted() = %v, want %v", got, want)
	}
}
