// Package librarydb opens the catalog database, creates its schema and hands
// out store scopes.
//
// Tables are created in dependency order (authors, genres, series, books)
// and only when missing. Clear drops and recreates them and is meant for
// the CLI and tests only.
package librarydb
