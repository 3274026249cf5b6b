// ABOUTME: Credential store adapter exposing accounts as authenticatable identities
// ABOUTME: Maps store accounts to Identity values carrying the fixed user capability

package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/2389/profile-service/internal/store"
)

// CapabilityUser is the single capability granted to every account.
const CapabilityUser = "user"

// ErrIdentityNotFound is returned when no account has the requested email.
var ErrIdentityNotFound = errors.New("identity not found")

// Identity is an account as seen by authentication: the email is the subject.
type Identity struct {
	AccountID    string
	Email        string
	Name         string
	Capabilities []string
}

// HasCapability reports whether the identity carries the named capability.
func (i *Identity) HasCapability(name string) bool {
	for _, c := range i.Capabilities {
		if c == name {
			return true
		}
	}
	return false
}

// IdentityLoader resolves an email to an Identity.
type IdentityLoader interface {
	LoadByEmail(ctx context.Context, email string) (*Identity, error)
}

// AccountLookup is the subset of store.AccountStore the adapter needs.
type AccountLookup interface {
	GetAccountByEmail(ctx context.Context, email string) (*store.Account, error)
}

// IdentityProvider adapts an account store to IdentityLoader.
type IdentityProvider struct {
	accounts AccountLookup
}

var _ IdentityLoader = (*IdentityProvider)(nil)

// NewIdentityProvider creates an IdentityProvider backed by accounts.
func NewIdentityProvider(accounts AccountLookup) *IdentityProvider {
	return &IdentityProvider{accounts: accounts}
}

// LoadByEmail looks up the account with exactly this email.
// Returns ErrIdentityNotFound if none exists; other store errors are wrapped.
func (p *IdentityProvider) LoadByEmail(ctx context.Context, email string) (*Identity, error) {
	account, err := p.accounts.GetAccountByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrIdentityNotFound, email)
		}
		return nil, fmt.Errorf("loading identity: %w", err)
	}
	return identityFromAccount(account), nil
}

func identityFromAccount(a *store.Account) *Identity {
	return &Identity{
		AccountID:    a.ID,
		Email:        a.Email,
		Name:         a.Name,
		Capabilities: []string{CapabilityUser},
	}
}
