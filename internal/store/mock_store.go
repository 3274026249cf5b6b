// ABOUTME: Mock AccountStore implementation for testing
// ABOUTME: Allows tests to run without SQLite

package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MockStore is an in-memory AccountStore implementation for testing.
type MockStore struct {
	mu       sync.RWMutex
	accounts map[string]*Account // keyed by account ID
	byEmail  map[string]string   // keyed by email -> account ID
	order    []string            // account IDs in insertion order

	// Err, when set, is returned by every operation.
	Err error
}

var _ AccountStore = (*MockStore)(nil)

// NewMockStore creates a new MockStore.
func NewMockStore() *MockStore {
	return &MockStore{
		accounts: make(map[string]*Account),
		byEmail:  make(map[string]string),
	}
}

// CreateAccount stores a new account.
func (m *MockStore) CreateAccount(ctx context.Context, account *Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.Err != nil {
		return m.Err
	}
	if _, taken := m.byEmail[account.Email]; taken {
		return ErrDuplicateEmail
	}

	if account.ID == "" {
		account.ID = uuid.New().String()
	}
	if _, exists := m.accounts[account.ID]; exists {
		return fmt.Errorf("inserting account: id %q already exists", account.ID)
	}
	now := time.Now().UTC().Truncate(time.Second)
	if account.CreatedAt.IsZero() {
		account.CreatedAt = now
	}
	if account.UpdatedAt.IsZero() {
		account.UpdatedAt = account.CreatedAt
	}

	// Make a copy to avoid external modification
	a := *account
	m.accounts[a.ID] = &a
	m.byEmail[a.Email] = a.ID
	m.order = append(m.order, a.ID)

	return nil
}

// GetAccount retrieves an account by ID.
func (m *MockStore) GetAccount(ctx context.Context, id string) (*Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.Err != nil {
		return nil, m.Err
	}
	a, ok := m.accounts[id]
	if !ok {
		return nil, ErrNotFound
	}

	result := *a
	return &result, nil
}

// GetAccountByEmail retrieves an account by exact email.
func (m *MockStore) GetAccountByEmail(ctx context.Context, email string) (*Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.Err != nil {
		return nil, m.Err
	}
	id, ok := m.byEmail[email]
	if !ok {
		return nil, ErrNotFound
	}

	result := *m.accounts[id]
	return &result, nil
}

// ListAccounts returns copies of all accounts in insertion order.
func (m *MockStore) ListAccounts(ctx context.Context) ([]*Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.Err != nil {
		return nil, m.Err
	}
	accounts := make([]*Account, 0, len(m.order))
	for _, id := range m.order {
		a := *m.accounts[id]
		accounts = append(accounts, &a)
	}
	return accounts, nil
}

// UpdateAccount replaces an existing account.
func (m *MockStore) UpdateAccount(ctx context.Context, account *Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.Err != nil {
		return m.Err
	}
	existing, ok := m.accounts[account.ID]
	if !ok {
		return ErrNotFound
	}
	if ownerID, taken := m.byEmail[account.Email]; taken && ownerID != account.ID {
		return ErrDuplicateEmail
	}

	account.CreatedAt = existing.CreatedAt
	account.UpdatedAt = time.Now().UTC().Truncate(time.Second)

	delete(m.byEmail, existing.Email)
	a := *account
	m.accounts[a.ID] = &a
	m.byEmail[a.Email] = a.ID

	return nil
}

// DeleteAccount removes an account by ID.
func (m *MockStore) DeleteAccount(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.Err != nil {
		return m.Err
	}
	a, ok := m.accounts[id]
	if !ok {
		return ErrNotFound
	}

	delete(m.accounts, id)
	delete(m.byEmail, a.Email)
	for i, existing := range m.order {
		if existing == id {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}

	return nil
}

// AccountExists reports whether an account with the given ID exists.
func (m *MockStore) AccountExists(ctx context.Context, id string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.Err != nil {
		return false, m.Err
	}
	_, ok := m.accounts[id]
	return ok, nil
}

// Close is a no-op for MockStore.
func (m *MockStore) Close() error {
	return nil
}
