package catalog

import (
	"errors"
	"fmt"
	"strconv"
)

var (
	// ErrNotFound is returned by lookups that address a record by key, such
	// as HTTP reads. Name lookups report absence with a boolean instead.
	ErrNotFound = errors.New("catalog: record not found")

	// ErrScopeClosed is returned by any store used after its scope ended.
	ErrScopeClosed = errors.New("catalog: store used after its scope was closed")
)

// InvalidNameError reports an empty or unnormalizable name. It is a caller
// error and never worth retrying.
type InvalidNameError struct {
	Kind Kind
	Raw  string
	Err  error
}

func (e *InvalidNameError) Error() string {
	return fmt.Sprintf("catalog: invalid %s name %s", e.Kind, strconv.Quote(e.Raw))
}

func (e *InvalidNameError) Unwrap() error { return e.Err }

// DuplicateNameError reports a uniqueness violation raised by the database
// despite the identity cache check, typically because another scope created
// the same name first. Looking the name up again picks up the winner.
type DuplicateNameError struct {
	Kind Kind
	Name string
	Err  error
}

func (e *DuplicateNameError) Error() string {
	return fmt.Sprintf("catalog: %s %s already exists", e.Kind, strconv.Quote(e.Name))
}

func (e *DuplicateNameError) Unwrap() error { return e.Err }

// PersistenceError wraps a failure of the underlying database. It is fatal
// to the current scope.
type PersistenceError struct {
	Op   string
	Kind Kind
	Err  error
}

func (e *PersistenceError) Error() string {
	if e.Kind.Valid() {
		return fmt.Sprintf("catalog: %s %s: %v", e.Op, e.Kind, e.Err)
	}
	return fmt.Sprintf("catalog: %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// UnknownAttributeError reports an attribute the kind does not define.
type UnknownAttributeError struct {
	Kind Kind
	Attr string
}

func (e *UnknownAttributeError) Error() string {
	return fmt.Sprintf("catalog: %s has no attribute %s", e.Kind, strconv.Quote(e.Attr))
}

// RelationTypeError reports an entity of the wrong kind given for a relation.
type RelationTypeError struct {
	Attr string
	Want Kind
	Got  Kind
}

func (e *RelationTypeError) Error() string {
	return fmt.Sprintf("catalog: attribute %s expects a %s, got a %s", strconv.Quote(e.Attr), e.Want, e.Got)
}

// AttributeValueError reports a value that cannot be assigned to an attribute.
type AttributeValueError struct {
	Kind  Kind
	Attr  string
	Value any
	Err   error
}

func (e *AttributeValueError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("catalog: invalid value %v for %s.%s: %v", e.Value, e.Kind, e.Attr, e.Err)
	}
	return fmt.Sprintf("catalog: invalid value %v (%T) for %s.%s", e.Value, e.Value, e.Kind, e.Attr)
}

func (e *AttributeValueError) Unwrap() error { return e.Err }

// IsClientError reports whether err was caused by the caller's input rather
// than by the database.
func IsClientError(err error) bool {
	var (
		invalid *InvalidNameError
		unknown *UnknownAttributeError
		relType *RelationTypeError
		value   *AttributeValueError
	)
	return errors.As(err, &invalid) ||
		errors.As(err, &unknown) ||
		errors.As(err, &relType) ||
		errors.As(err, &value)
}

// IsDuplicate reports whether err carries a DuplicateNameError.
func IsDuplicate(err error) bool {
	var dup *DuplicateNameError
	return errors.As(err, &dup)
}
