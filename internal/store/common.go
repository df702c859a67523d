package store

import "database/sql"

// errNoRows aliases sql.ErrNoRows so callers can switch on it without
// importing database/sql directly in every file.
var errNoRows = sql.ErrNoRows

// execer is the subset of *sql.Tx used by the write paths in this package,
// narrowed so helpers can be exercised against either a transaction or
// (in tests) a bare *sql.DB.
type execer interface {
	Exec(query string, args ...interface{}) (sql.Result, error)
	QueryRow(query string, args ...interface{}) *sql.Row
	Query(query string, args ...interface{}) (*sql.Rows, error)
}
