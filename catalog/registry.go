package catalog

import (
	"fmt"
	"sort"
	"time"
)

// Attribute tags accepted by Create and Update.
const (
	AttrName         = "name"
	AttrAuthor       = "author"
	AttrGenre        = "genre"
	AttrSeries       = "series"
	AttrSeriesNumber = "series_number"
	AttrReleaseDate  = "release_date"
)

// DateLayout is the format of date attributes given as strings.
const DateLayout = "2006-01-02"

// Attrs carries attribute values keyed by tag.
type Attrs map[string]any

// Relation describes an attribute that references another named entity.
type Relation struct {
	Tag    string
	Owner  Kind
	Target Kind
	// Field is the bun relation name on the owner model.
	Field string
	// Column is the foreign key column on the owner table.
	Column string

	get func(owner Entity) Entity
	set func(owner, target Entity)
}

// Get returns the related entity or nil.
func (r Relation) Get(owner Entity) Entity {
	return r.get(owner)
}

// Set links owner to target; a nil target clears the link.
// target must be of kind r.Target.
func (r Relation) Set(owner, target Entity) {
	r.set(owner, target)
}

// Scalar describes a plain attribute of a kind.
type Scalar struct {
	Tag   string
	Owner Kind

	apply func(owner Entity, value any) error
}

// Apply assigns value to owner, converting it when needed.
func (s Scalar) Apply(owner Entity, value any) error {
	if err := s.apply(owner, value); err != nil {
		return &AttributeValueError{Kind: s.Owner, Attr: s.Tag, Value: value, Err: err}
	}
	return nil
}

var relations = []Relation{
	{
		Tag: AttrAuthor, Owner: KindBook, Target: KindAuthor, Field: "Author", Column: "author_id",
		get: func(o Entity) Entity {
			if a := o.(*Book).Author; a != nil {
				return a
			}
			return nil
		},
		set: func(o, t Entity) {
			a, _ := t.(*Author)
			o.(*Book).SetAuthor(a)
		},
	},
	{
		Tag: AttrGenre, Owner: KindBook, Target: KindGenre, Field: "Genre", Column: "genre_id",
		get: func(o Entity) Entity {
			if g := o.(*Book).Genre; g != nil {
				return g
			}
			return nil
		},
		set: func(o, t Entity) {
			g, _ := t.(*Genre)
			o.(*Book).SetGenre(g)
		},
	},
	{
		Tag: AttrSeries, Owner: KindBook, Target: KindSeries, Field: "Series", Column: "series_id",
		get: func(o Entity) Entity {
			if s := o.(*Book).Series; s != nil {
				return s
			}
			return nil
		},
		set: func(o, t Entity) {
			s, _ := t.(*Series)
			o.(*Book).SetSeries(s)
		},
	},
}

var scalars = []Scalar{
	{Tag: AttrSeriesNumber, Owner: KindBook, apply: applySeriesNumber},
	{Tag: AttrReleaseDate, Owner: KindBook, apply: applyReleaseDate},
}

var (
	relationsByTag   = map[string]Relation{}
	relationsByOwner = map[Kind][]Relation{}
	scalarsByOwner   = map[Kind]map[string]Scalar{}
)

func init() {
	for _, r := range relations {
		if _, dup := relationsByTag[r.Tag]; dup {
			panic(fmt.Sprintf("catalog: relation tag %q registered twice", r.Tag))
		}
		relationsByTag[r.Tag] = r
		relationsByOwner[r.Owner] = append(relationsByOwner[r.Owner], r)
	}
	// create-or-get recursion only terminates if targets are leaves
	for _, r := range relations {
		if r.Target == r.Owner {
			panic(fmt.Sprintf("catalog: %s references itself through %q", r.Owner, r.Tag))
		}
		if len(relationsByOwner[r.Target]) > 0 {
			panic(fmt.Sprintf("catalog: relation target %s has relations of its own", r.Target))
		}
	}
	for _, s := range scalars {
		if scalarsByOwner[s.Owner] == nil {
			scalarsByOwner[s.Owner] = map[string]Scalar{}
		}
		scalarsByOwner[s.Owner][s.Tag] = s
	}
}

// LookupRelation returns the relation registered under tag.
func LookupRelation(tag string) (Relation, bool) {
	r, ok := relationsByTag[tag]
	return r, ok
}

// RelationsOf returns the relations owned by kind in registration order.
func RelationsOf(kind Kind) []Relation {
	return relationsByOwner[kind]
}

// LookupScalar returns the scalar attribute tag of kind.
func LookupScalar(kind Kind, tag string) (Scalar, bool) {
	s, ok := scalarsByOwner[kind][tag]
	return s, ok
}

// ScalarsOf returns the scalar attributes of kind sorted by tag.
func ScalarsOf(kind Kind) []Scalar {
	out := make([]Scalar, 0, len(scalarsByOwner[kind]))
	for _, s := range scalarsByOwner[kind] {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Tag < out[j].Tag })
	return out
}

// Dependents returns the kinds that hold a relation to kind.
func Dependents(kind Kind) []Kind {
	var out []Kind
	seen := map[Kind]bool{}
	for _, r := range relations {
		if r.Target == kind && !seen[r.Owner] {
			seen[r.Owner] = true
			out = append(out, r.Owner)
		}
	}
	return out
}

// CheckAttrs reports the first attribute kind does not accept. The name
// attribute is accepted when allowName is set (updates).
func CheckAttrs(kind Kind, attrs Attrs, allowName bool) error {
	tags := make([]string, 0, len(attrs))
	for tag := range attrs {
		tags = append(tags, tag)
	}
	sort.Strings(tags)

	for _, tag := range tags {
		if tag == AttrName && allowName {
			continue
		}
		if r, ok := relationsByTag[tag]; ok && r.Owner == kind {
			continue
		}
		if _, ok := scalarsByOwner[kind][tag]; ok {
			continue
		}
		return &UnknownAttributeError{Kind: kind, Attr: tag}
	}
	return nil
}

func applySeriesNumber(o Entity, value any) error {
	b := o.(*Book)
	switch v := value.(type) {
	case nil:
		b.SeriesNumber = Ordinal{}
	case Ordinal:
		b.SeriesNumber = v
	case string:
		ord, err := ParseOrdinal(v)
		if err != nil {
			return err
		}
		b.SeriesNumber = ord
	case int:
		b.SeriesNumber = OrdinalFromThousandths(int64(v) * ordinalScale)
	case int64:
		b.SeriesNumber = OrdinalFromThousandths(v * ordinalScale)
	case float64:
		ord, err := OrdinalFromFloat(v)
		if err != nil {
			return err
		}
		b.SeriesNumber = ord
	default:
		return fmt.Errorf("unsupported type %T", value)
	}
	return nil
}

func applyReleaseDate(o Entity, value any) error {
	b := o.(*Book)
	switch v := value.(type) {
	case nil:
		b.ReleaseDate = time.Time{}
	case time.Time:
		b.ReleaseDate = v.UTC().Truncate(24 * time.Hour)
	case string:
		d, err := time.Parse(DateLayout, v)
		if err != nil {
			return err
		}
		b.ReleaseDate = d
	default:
		return fmt.Errorf("unsupported type %T", value)
	}
	return nil
}
