// ABOUTME: Tests for SQLite store implementation
// ABOUTME: Covers account CRUD, email uniqueness, ordering, and both SQL drivers

package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestStore creates a temporary SQLite store for testing.
func newTestStore(t *testing.T, opts ...Option) *SQLiteStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")

	store, err := NewSQLiteStore(dbPath, opts...)
	require.NoError(t, err)

	t.Cleanup(func() {
		store.Close()
	})

	return store
}

func TestNewSQLiteStore(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")

	store, err := NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatalf("NewSQLiteStore failed: %v", err)
	}
	defer store.Close()

	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Error("database file was not created")
	}
}

func TestNewSQLiteStore_CreatesDirectory(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "subdir", "nested", "test.db")

	store, err := NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatalf("NewSQLiteStore failed: %v", err)
	}
	defer store.Close()

	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Error("database file was not created in nested directory")
	}
}

func TestNewSQLiteStore_InMemory(t *testing.T) {
	store, err := NewSQLiteStore(":memory:")
	require.NoError(t, err)
	defer store.Close()

	require.NoError(t, store.Ping(context.Background()))
	require.NoError(t, store.CreateAccount(context.Background(), &Account{Name: "Ann", Age: 30, Email: "ann@example.com"}))

	got, err := store.GetAccountByEmail(context.Background(), "ann@example.com")
	require.NoError(t, err)
	assert.Equal(t, "Ann", got.Name)
}

func TestNewSQLiteStore_Reopen(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")
	ctx := context.Background()

	store, err := NewSQLiteStore(dbPath)
	require.NoError(t, err)
	require.NoError(t, store.CreateAccount(ctx, &Account{Name: "Ann", Age: 30, Email: "ann@example.com"}))
	require.NoError(t, store.Close())

	reopened, err := NewSQLiteStore(dbPath)
	require.NoError(t, err)
	defer reopened.Close()

	got, err := reopened.GetAccountByEmail(ctx, "ann@example.com")
	require.NoError(t, err)
	assert.Equal(t, "Ann", got.Name)
}

func TestCreateAndGetAccount(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	account := &Account{Name: "Ann", Age: 30, Email: "ann@example.com"}
	if err := store.CreateAccount(ctx, account); err != nil {
		t.Fatalf("CreateAccount failed: %v", err)
	}

	if account.ID == "" {
		t.Fatal("CreateAccount did not assign an ID")
	}
	if account.CreatedAt.IsZero() || account.UpdatedAt.IsZero() {
		t.Fatal("CreateAccount did not set timestamps")
	}

	got, err := store.GetAccount(ctx, account.ID)
	if err != nil {
		t.Fatalf("GetAccount failed: %v", err)
	}

	if got.Name != "Ann" {
		t.Errorf("Name mismatch: got %q, want %q", got.Name, "Ann")
	}
	if got.Age != 30 {
		t.Errorf("Age mismatch: got %d, want %d", got.Age, 30)
	}
	if got.Email != "ann@example.com" {
		t.Errorf("Email mismatch: got %q, want %q", got.Email, "ann@example.com")
	}
	if !got.CreatedAt.Equal(account.CreatedAt) {
		t.Errorf("CreatedAt mismatch: got %v, want %v", got.CreatedAt, account.CreatedAt)
	}
}

func TestCreateAccount_KeepsProvidedID(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.CreateAccount(ctx, &Account{ID: "acct-1", Name: "Ann", Age: 30, Email: "ann@example.com"}))

	got, err := store.GetAccount(ctx, "acct-1")
	require.NoError(t, err)
	assert.Equal(t, "ann@example.com", got.Email)
}

func TestCreateAccount_DuplicateIDIsNotDuplicateEmail(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.CreateAccount(ctx, &Account{ID: "acct-1", Name: "Ann", Age: 30, Email: "ann@example.com"}))

	err := store.CreateAccount(ctx, &Account{ID: "acct-1", Name: "Bob", Age: 41, Email: "bob@example.com"})
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrDuplicateEmail)
	assert.ErrorContains(t, err, "inserting account")

	_, err = store.GetAccountByEmail(ctx, "bob@example.com")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCreateAccount_DuplicateEmail(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.CreateAccount(ctx, &Account{Name: "Ann", Age: 30, Email: "ann@example.com"}))

	err := store.CreateAccount(ctx, &Account{Name: "Other Ann", Age: 41, Email: "ann@example.com"})
	assert.ErrorIs(t, err, ErrDuplicateEmail)
}

func TestCreateAccount_EmailIsCaseSensitive(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.CreateAccount(ctx, &Account{Name: "Ann", Age: 30, Email: "ann@example.com"}))
	require.NoError(t, store.CreateAccount(ctx, &Account{Name: "ANN", Age: 30, Email: "ANN@example.com"}))

	got, err := store.GetAccountByEmail(ctx, "ANN@example.com")
	require.NoError(t, err)
	assert.Equal(t, "ANN", got.Name)
}

func TestGetAccount_NotFound(t *testing.T) {
	store := newTestStore(t)

	_, err := store.GetAccount(context.Background(), "nonexistent")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestGetAccountByEmail(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	account := &Account{Name: "Ann", Age: 30, Email: "ann@example.com"}
	require.NoError(t, store.CreateAccount(ctx, account))

	got, err := store.GetAccountByEmail(ctx, "ann@example.com")
	require.NoError(t, err)
	assert.Equal(t, account.ID, got.ID)

	_, err = store.GetAccountByEmail(ctx, "bob@example.com")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListAccounts(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	accounts, err := store.ListAccounts(ctx)
	require.NoError(t, err)
	assert.NotNil(t, accounts, "empty list should be non-nil")
	assert.Empty(t, accounts)

	emails := []string{"c@example.com", "a@example.com", "b@example.com"}
	for i, email := range emails {
		require.NoError(t, store.CreateAccount(ctx, &Account{Name: "user", Age: 20 + i, Email: email}))
	}

	accounts, err = store.ListAccounts(ctx)
	require.NoError(t, err)
	require.Len(t, accounts, 3)
	for i, email := range emails {
		assert.Equal(t, email, accounts[i].Email, "accounts should be in insertion order")
	}
}

func TestUpdateAccount(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	account := &Account{Name: "Ann", Age: 30, Email: "ann@example.com"}
	require.NoError(t, store.CreateAccount(ctx, account))

	account.Name = "Annie"
	account.Age = 31
	account.Email = "annie@example.com"
	require.NoError(t, store.UpdateAccount(ctx, account))

	got, err := store.GetAccount(ctx, account.ID)
	require.NoError(t, err)
	assert.Equal(t, "Annie", got.Name)
	assert.Equal(t, 31, got.Age)
	assert.Equal(t, "annie@example.com", got.Email)
	assert.False(t, got.UpdatedAt.Before(got.CreatedAt))

	_, err = store.GetAccountByEmail(ctx, "ann@example.com")
	assert.ErrorIs(t, err, ErrNotFound, "old email should no longer resolve")
}

func TestUpdateAccount_NotFound(t *testing.T) {
	store := newTestStore(t)

	err := store.UpdateAccount(context.Background(), &Account{ID: "nonexistent", Name: "x", Email: "x@example.com"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateAccount_DuplicateEmail(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	ann := &Account{Name: "Ann", Age: 30, Email: "ann@example.com"}
	bob := &Account{Name: "Bob", Age: 40, Email: "bob@example.com"}
	require.NoError(t, store.CreateAccount(ctx, ann))
	require.NoError(t, store.CreateAccount(ctx, bob))

	bob.Email = "ann@example.com"
	assert.ErrorIs(t, store.UpdateAccount(ctx, bob), ErrDuplicateEmail)

	// Keeping one's own email is not a conflict
	ann.Name = "Annie"
	assert.NoError(t, store.UpdateAccount(ctx, ann))
}

func TestDeleteAccount(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	account := &Account{Name: "Ann", Age: 30, Email: "ann@example.com"}
	require.NoError(t, store.CreateAccount(ctx, account))

	require.NoError(t, store.DeleteAccount(ctx, account.ID))

	_, err := store.GetAccount(ctx, account.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	assert.ErrorIs(t, store.DeleteAccount(ctx, account.ID), ErrNotFound)

	// The email is free again
	assert.NoError(t, store.CreateAccount(ctx, &Account{Name: "New Ann", Age: 22, Email: "ann@example.com"}))
}

func TestAccountExists(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	account := &Account{Name: "Ann", Age: 30, Email: "ann@example.com"}
	require.NoError(t, store.CreateAccount(ctx, account))

	exists, err := store.AccountExists(ctx, account.ID)
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = store.AccountExists(ctx, "nonexistent")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestSQLiteStore_MattnDriver(t *testing.T) {
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"), WithDriver("sqlite3"))
	if err != nil {
		// go-sqlite3 registers a stub driver that fails when built without cgo
		t.Skipf("sqlite3 driver unavailable: %v", err)
	}
	defer store.Close()
	ctx := context.Background()

	require.NoError(t, store.CreateAccount(ctx, &Account{Name: "Ann", Age: 30, Email: "ann@example.com"}))
	assert.ErrorIs(t,
		store.CreateAccount(ctx, &Account{Name: "Ann", Age: 30, Email: "ann@example.com"}),
		ErrDuplicateEmail)

	got, err := store.GetAccountByEmail(ctx, "ann@example.com")
	require.NoError(t, err)
	assert.Equal(t, 30, got.Age)
}

func TestIsDuplicateEmail(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"email unique", errors.New("UNIQUE constraint failed: accounts.email"), true},
		{"modernc wrapped", errors.New("constraint failed: UNIQUE constraint failed: accounts.email (2067)"), true},
		{"primary key", errors.New("UNIQUE constraint failed: accounts.id"), false},
		{"not null", errors.New("constraint failed: NOT NULL constraint failed: accounts.name"), false},
		{"other", errors.New("database is locked"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isDuplicateEmail(tt.err); got != tt.want {
				t.Errorf("isDuplicateEmail(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}
