package naming

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// smallWords stay lowercase inside a title.
var smallWords = map[string]struct{}{
	"a": {}, "an": {}, "and": {}, "as": {}, "at": {}, "but": {}, "by": {},
	"en": {}, "for": {}, "if": {}, "in": {}, "of": {}, "on": {}, "or": {},
	"the": {}, "to": {}, "v": {}, "via": {}, "vs": {},
}

var initials = regexp.MustCompile(`^(\pL\.)+\pL?$`)

// RuleCaser applies conventional English title rules to a lowercase name.
//
// The first and last words, and any word following a colon, are always
// capitalized. Small words such as "of" and "the" stay lowercase elsewhere.
// Dotted initials ("j.k.") are upper cased whole and each hyphenated part is
// capitalized on its own.
type RuleCaser struct{}

// Title implements TitleCaser.
func (RuleCaser) Title(name string) string {
	words := strings.Split(name, " ")
	last := len(words) - 1
	for i, w := range words {
		force := i == 0 || i == last || strings.HasSuffix(words[i-1], ":")
		words[i] = titleWord(w, force)
	}
	return strings.Join(words, " ")
}

func titleWord(w string, force bool) string {
	core := strings.TrimFunc(w, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	if core == "" {
		return w
	}
	if _, small := smallWords[core]; small && !force {
		return w
	}

	dotted := strings.TrimFunc(w, func(r rune) bool {
		return !unicode.IsLetter(r) && r != '.'
	})
	if initials.MatchString(dotted) {
		return strings.ToUpper(w)
	}

	parts := strings.Split(w, "-")
	for i, p := range parts {
		parts[i] = capitalize(p)
	}
	return strings.Join(parts, "-")
}

// capitalize title cases the first letter and leaves the rest untouched.
// Words starting with a digit ("2nd") are left as they are.
func capitalize(s string) string {
	for i, r := range s {
		if unicode.IsDigit(r) {
			return s
		}
		if unicode.IsLetter(r) {
			size := utf8.RuneLen(r)
			return s[:i] + string(unicode.ToTitle(r)) + s[i+size:]
		}
	}
	return s
}
