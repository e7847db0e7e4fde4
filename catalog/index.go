package catalog

import (
	"sort"
	"time"
)

// Index maps primary keys to display names for one kind.
type Index map[int64]string

// IndexEntry is one row of an Index.
type IndexEntry struct {
	Key  int64
	Name string
}

// Sorted returns the entries ordered by key.
func (idx Index) Sorted() []IndexEntry {
	out := make([]IndexEntry, 0, len(idx))
	for k, v := range idx {
		out = append(out, IndexEntry{Key: k, Name: v})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// View is a detached, JSON friendly description of an entity. Views are
// safe to cache across scopes; entities are not.
type View map[string]any

// ViewOf describes e with the same fields it persists. Relations are
// rendered by name and unset values as nil.
func ViewOf(e Entity) View {
	r := e.record()
	v := View{
		"model":      e.Kind().Label(),
		"record_id":  r.ID,
		"name":       r.Name,
		"date_added": formatDate(r.DateAdded),
	}
	for _, rel := range RelationsOf(e.Kind()) {
		if target := rel.Get(e); target != nil {
			v[rel.Tag] = target.DisplayName()
		} else {
			v[rel.Tag] = nil
		}
	}
	if b, ok := e.(*Book); ok {
		v[AttrSeriesNumber] = nil
		if b.SeriesNumber.Valid() {
			v[AttrSeriesNumber] = b.SeriesNumber.String()
		}
		v[AttrReleaseDate] = formatDate(b.ReleaseDate)
	}
	return v
}

func formatDate(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.Format(DateLayout)
}
