// Package catalog defines the entities of the library catalog and the
// static registry that describes how they reference each other.
//
// # Entities
//
// Author, Genre, Series and Book are bun models embedding Record, which
// carries the surrogate key, the unique normalized name and the date the
// record was added. A name is the natural key of an entity within its Kind:
// two records of the same kind never share a normalized name.
//
// # Registry
//
// Relations and scalar attributes are enumerated once, at package init:
//
//	tag            owner  target
//	author         book   author
//	genre          book   genre
//	series         book   series
//	series_number  book   (scalar, Ordinal)
//	release_date   book   (scalar, date)
//
// The session store consults the registry to decide which attributes passed
// to Create name another entity (and may be resolved from a raw string) and
// which are plain values. Relation targets are leaves, which init enforces,
// so create-or-get resolution never recurses more than one level.
//
// # Errors
//
// Caller mistakes surface as InvalidNameError, UnknownAttributeError,
// RelationTypeError or AttributeValueError (see IsClientError). Uniqueness
// races surface as DuplicateNameError and database failures as
// PersistenceError.
package catalog
