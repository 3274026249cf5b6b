// ABOUTME: Account management service wrapping the account store
// ABOUTME: Validates requests and maps store errors to account-level sentinel errors

package account

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/2389/profile-service/internal/store"
)

// Account errors
var (
	ErrNotFound   = errors.New("account not found")
	ErrEmailTaken = errors.New("email already registered")
)

// Service implements account CRUD on top of an AccountStore.
type Service struct {
	store  store.AccountStore
	logger *slog.Logger
}

// NewService creates an account service.
func NewService(s store.AccountStore, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:  s,
		logger: logger.With("component", "account"),
	}
}

// Create validates req and registers a new account.
// Returns ErrEmailTaken if the email is already registered.
func (s *Service) Create(ctx context.Context, req Request) (*store.Account, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	account := &store.Account{
		Name:  req.Name,
		Age:   *req.Age,
		Email: req.Email,
	}
	if err := s.store.CreateAccount(ctx, account); err != nil {
		if errors.Is(err, store.ErrDuplicateEmail) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("creating account: %w", err)
	}

	s.logger.Info("account created", "account_id", account.ID)
	return account, nil
}

// List returns every account in registration order.
func (s *Service) List(ctx context.Context) ([]*store.Account, error) {
	accounts, err := s.store.ListAccounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing accounts: %w", err)
	}
	return accounts, nil
}

// Get returns the account with the given id.
func (s *Service) Get(ctx context.Context, id string) (*store.Account, error) {
	account, err := s.store.GetAccount(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("getting account: %w", err)
	}
	return account, nil
}

// Update replaces the name, age and email of an existing account.
// Returns ErrNotFound if the account doesn't exist and ErrEmailTaken if the
// new email belongs to a different account.
func (s *Service) Update(ctx context.Context, id string, req Request) (*store.Account, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	account, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	account.Name = req.Name
	account.Age = *req.Age
	account.Email = req.Email

	if err := s.store.UpdateAccount(ctx, account); err != nil {
		switch {
		case errors.Is(err, store.ErrDuplicateEmail):
			return nil, ErrEmailTaken
		case errors.Is(err, store.ErrNotFound):
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("updating account: %w", err)
	}

	s.logger.Info("account updated", "account_id", account.ID)
	return account, nil
}

// Delete removes the account with the given id.
func (s *Service) Delete(ctx context.Context, id string) error {
	exists, err := s.store.AccountExists(ctx, id)
	if err != nil {
		return fmt.Errorf("checking account: %w", err)
	}
	if !exists {
		return ErrNotFound
	}

	if err := s.store.DeleteAccount(ctx, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("deleting account: %w", err)
	}

	s.logger.Info("account deleted", "account_id", id)
	return nil
}
