// ABOUTME: Store interface and data types for profile-service persistence
// ABOUTME: Defines the Account struct and the AccountStore interface for database operations

package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a requested entity does not exist
var ErrNotFound = errors.New("not found")

// ErrDuplicateEmail is returned when an account email is already registered
var ErrDuplicateEmail = errors.New("email already registered")

// Account is a registered user profile. Email is the natural key used
// for authentication; ID is an opaque identifier assigned on creation.
type Account struct {
	ID        string
	Name      string
	Age       int
	Email     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// AccountStore defines the interface for account persistence.
// Email lookups and uniqueness are case-sensitive.
type AccountStore interface {
	CreateAccount(ctx context.Context, account *Account) error
	GetAccount(ctx context.Context, id string) (*Account, error)
	GetAccountByEmail(ctx context.Context, email string) (*Account, error)
	ListAccounts(ctx context.Context) ([]*Account, error)
	UpdateAccount(ctx context.Context, account *Account) error
	DeleteAccount(ctx context.Context, id string) error
	AccountExists(ctx context.Context, id string) (bool, error)

	// Close releases any resources held by the store
	Close() error
}
