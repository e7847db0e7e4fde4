// Package naming canonicalizes the display names of catalog entities.
//
// Two names that differ only by case or whitespace must collide to the same
// natural key, so every name stored by the catalog passes through a Normalizer
// first:
//
//	name, err := naming.Normalize("  brandon   SANDERSON ")
//	// name == "Brandon Sanderson"
//
// The default pipeline lowercases the input, collapses whitespace runs, trims
// and then hands the result to a TitleCaser. RuleCaser implements the usual
// English title rules and can be replaced with WithTitleCaser when a
// different convention is needed. Whatever the caser, Normalize is expected
// to be idempotent.
//
// Empty or whitespace-only input returns an *InvalidNameError.
package naming
