// Package store provides persistent account storage for profile-service using SQLite.
//
// # Architecture
//
// AccountStore is the single persistence interface. SQLiteStore implements it
// on top of database/sql with either of two drivers:
//
//   - "sqlite": modernc.org/sqlite, pure Go, the default
//   - "sqlite3": github.com/mattn/go-sqlite3, requires cgo
//
// MockStore is an in-memory implementation used by tests in other packages.
//
// # Data Model
//
//   - Account: registered profile (name, age, email) with an opaque UUID id
//
// Emails are unique and compared byte-for-byte; "Ann@x.io" and "ann@x.io"
// are distinct accounts.
//
// # Errors
//
//   - ErrNotFound: no account with the given id or email
//   - ErrDuplicateEmail: the email is already registered to another account
//
// # Timestamps
//
// CreatedAt and UpdatedAt are stored as RFC3339 text in UTC with second precision.
package store
