package naming

import (
	"errors"
	"strconv"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Reasons a name is rejected.
var (
	ErrEmptyName   = errors.New("name is empty")
	ErrInvalidUTF8 = errors.New("name is not valid UTF-8")
)

// InvalidNameError reports a name that cannot be normalized.
type InvalidNameError struct {
	Raw string
	// Reason is ErrEmptyName when nil.
	Reason error
}

// Error implements the error interface.
func (e *InvalidNameError) Error() string {
	return "invalid name " + strconv.Quote(e.Raw) + ": " + e.Unwrap().Error()
}

// Unwrap allows errors.Is(err, ErrEmptyName) and errors.Is(err, ErrInvalidUTF8).
func (e *InvalidNameError) Unwrap() error {
	if e.Reason == nil {
		return ErrEmptyName
	}
	return e.Reason
}

// Normalizer canonicalizes human entered names so equal names share one key.
type Normalizer interface {
	Normalize(raw string) (string, error)
}

// TitleCaser capitalizes an already lowercased, whitespace collapsed name.
// Implementations must be idempotent.
type TitleCaser interface {
	Title(name string) string
}

// TitleCaserFunc adapts a plain function to TitleCaser.
type TitleCaserFunc func(name string) string

// Title implements TitleCaser.
func (f TitleCaserFunc) Title(name string) string {
	return f(name)
}

// Option configures a Normalizer built by New.
type Option func(*normalizer)

// WithTitleCaser replaces the default title casing rules.
func WithTitleCaser(caser TitleCaser) Option {
	return func(n *normalizer) {
		if caser != nil {
			n.caser = caser
		}
	}
}

// Default is the normalizer used when none is configured.
var Default = New()

// New returns a Normalizer that lowercases, collapses whitespace and title cases.
func New(opts ...Option) Normalizer {
	n := &normalizer{caser: RuleCaser{}}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

type normalizer struct {
	caser TitleCaser
}

func (n *normalizer) Normalize(raw string) (string, error) {
	if !utf8.ValidString(raw) {
		return "", &InvalidNameError{Raw: raw, Reason: ErrInvalidUTF8}
	}
	words := strings.Fields(raw)
	if len(words) == 0 {
		return "", &InvalidNameError{Raw: raw}
	}

	lower := cases.Lower(language.English)
	collapsed := lower.String(strings.Join(words, " "))

	name := strings.Join(strings.Fields(n.caser.Title(collapsed)), " ")
	if name == "" {
		return "", &InvalidNameError{Raw: raw}
	}
	return name, nil
}

// Normalize runs the Default normalizer.
func Normalize(raw string) (string, error) {
	return Default.Normalize(raw)
}
