package catalog

import (
	"strings"
)

// Kind tags the entity types stored by the catalog.
type Kind uint8

const (
	KindAuthor Kind = iota + 1
	KindGenre
	KindSeries
	KindBook
)

type kindInfo struct {
	name  string
	label string
	table string
	new   func() Entity
}

var kinds = map[Kind]kindInfo{
	KindAuthor: {name: "author", label: "Author", table: "authors", new: func() Entity { return &Author{} }},
	KindGenre:  {name: "genre", label: "Genre", table: "genres", new: func() Entity { return &Genre{} }},
	KindSeries: {name: "series", label: "Series", table: "series", new: func() Entity { return &Series{} }},
	KindBook:   {name: "book", label: "Book", table: "books", new: func() Entity { return &Book{} }},
}

// Kinds returns every kind in schema dependency order: relation targets
// come before the kinds that reference them.
func Kinds() []Kind {
	return []Kind{KindAuthor, KindGenre, KindSeries, KindBook}
}

// ParseKind resolves a case insensitive kind name such as "author".
func ParseKind(s string) (Kind, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	for k, info := range kinds {
		if info.name == s {
			return k, true
		}
	}
	return 0, false
}

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	_, ok := kinds[k]
	return ok
}

// String returns the lowercase kind name used in routes and attributes.
func (k Kind) String() string {
	if info, ok := kinds[k]; ok {
		return info.name
	}
	return "unknown"
}

// Label returns the model name, e.g. "Book".
func (k Kind) Label() string {
	if info, ok := kinds[k]; ok {
		return info.label
	}
	return "Unknown"
}

// Table returns the backing table name.
func (k Kind) Table() string {
	return kinds[k].table
}

// New returns an empty, unsaved entity of kind k, or nil for an unknown kind.
func (k Kind) New() Entity {
	info, ok := kinds[k]
	if !ok {
		return nil
	}
	return info.new()
}
