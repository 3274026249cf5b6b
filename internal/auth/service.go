// ABOUTME: Authentication service that turns a login email into a signed token
// ABOUTME: Resolves the identity and issues a token with the configured TTL

package auth

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Service performs passwordless login: any registered email receives a token.
type Service struct {
	identities IdentityLoader
	tokens     TokenIssuer
	ttl        time.Duration
	logger     *slog.Logger
}

// NewService creates an authentication service.
func NewService(identities IdentityLoader, tokens TokenIssuer, ttl time.Duration, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		identities: identities,
		tokens:     tokens,
		ttl:        ttl,
		logger:     logger.With("component", "auth"),
	}
}

// TTL returns the lifetime of tokens issued by this service.
func (s *Service) TTL() time.Duration {
	return s.ttl
}

// Authenticate returns a token for the account registered under email.
// Returns ErrIdentityNotFound if no account has that email.
func (s *Service) Authenticate(ctx context.Context, email string) (string, error) {
	identity, err := s.identities.LoadByEmail(ctx, email)
	if err != nil {
		return "", err
	}

	token, err := s.tokens.Issue(identity.Email, s.ttl)
	if err != nil {
		return "", fmt.Errorf("issuing token: %w", err)
	}

	s.logger.Info("issued token", "account_id", identity.AccountID, "ttl", s.ttl)
	return token, nil
}
