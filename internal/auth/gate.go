// ABOUTME: Request gate that attaches an AuthContext when a bearer token validates
// ABOUTME: Pure per-request decision function shared by the HTTP middleware and gRPC interceptors

package auth

import (
	"context"
	"errors"
	"log/slog"
	"strings"
)

// State is the terminal state of one gate evaluation.
type State string

// Gate evaluation states.
const (
	StateNoToken              State = "no_token"
	StateInvalidToken         State = "invalid_token"
	StateAlreadyAuthenticated State = "already_authenticated"
	StateUnknownSubject       State = "unknown_subject"
	StateLookupFailed         State = "lookup_failed"
	StateTokenRejected        State = "token_rejected"
	StateAuthenticated        State = "authenticated"
)

const bearerPrefix = "Bearer "

// Outcome is the result of evaluating one request.
type Outcome struct {
	State   State
	Subject string       // set once a subject was extracted
	Auth    *AuthContext // set for StateAuthenticated and StateAlreadyAuthenticated
	Err     error        // cause for StateInvalidToken and StateLookupFailed
}

// Authenticated reports whether the request carries an authenticated identity.
func (o Outcome) Authenticated() bool {
	return o.State == StateAuthenticated || o.State == StateAlreadyAuthenticated
}

// Gate validates bearer tokens and decides whether a request is authenticated.
// It never rejects a request; route policy decides access afterwards.
type Gate struct {
	tokens     TokenVerifier
	identities IdentityLoader
	logger     *slog.Logger
}

// NewGate creates a gate over the given verifier and identity loader.
func NewGate(tokens TokenVerifier, identities IdentityLoader, logger *slog.Logger) *Gate {
	if logger == nil {
		logger = slog.Default()
	}
	return &Gate{
		tokens:     tokens,
		identities: identities,
		logger:     logger.With("component", "gate"),
	}
}

// extractBearerToken returns the token following the case-sensitive "Bearer " prefix.
func extractBearerToken(authHeader string) (string, bool) {
	if !strings.HasPrefix(authHeader, bearerPrefix) {
		return "", false
	}
	return strings.TrimPrefix(authHeader, bearerPrefix), true
}

// Evaluate runs the gate state machine for one request without side effects
// on ctx. The only blocking step is the identity lookup, which uses ctx.
func (g *Gate) Evaluate(ctx context.Context, authHeader string) Outcome {
	token, ok := extractBearerToken(authHeader)
	if !ok {
		return Outcome{State: StateNoToken}
	}

	subject, err := g.tokens.ExtractSubject(token)
	if err != nil {
		return Outcome{State: StateInvalidToken, Err: err}
	}

	if existing := FromContext(ctx); existing != nil {
		return Outcome{State: StateAlreadyAuthenticated, Subject: subject, Auth: existing}
	}

	identity, err := g.identities.LoadByEmail(ctx, subject)
	if err != nil {
		if errors.Is(err, ErrIdentityNotFound) {
			return Outcome{State: StateUnknownSubject, Subject: subject}
		}
		return Outcome{State: StateLookupFailed, Subject: subject, Err: err}
	}

	if !g.tokens.Validate(token, identity.Email) {
		return Outcome{State: StateTokenRejected, Subject: subject}
	}

	caps := make([]string, len(identity.Capabilities))
	copy(caps, identity.Capabilities)
	return Outcome{
		State:   StateAuthenticated,
		Subject: subject,
		Auth:    &AuthContext{Identity: identity, Capabilities: caps},
	}
}

// Apply evaluates the request, logs the outcome, and returns ctx with the
// AuthContext attached when a new identity was authenticated.
// attrs are added to log records (peer address, request path).
func (g *Gate) Apply(ctx context.Context, authHeader string, attrs ...any) (context.Context, Outcome) {
	outcome := g.Evaluate(ctx, authHeader)
	g.logOutcome(ctx, outcome, attrs...)

	if outcome.State == StateAuthenticated {
		ctx = WithAuth(ctx, outcome.Auth)
	}
	return ctx, outcome
}

func (g *Gate) logOutcome(ctx context.Context, o Outcome, attrs ...any) {
	attrs = append([]any{"reason", string(o.State)}, attrs...)
	if o.Subject != "" {
		attrs = append(attrs, "subject", o.Subject)
	}

	switch o.State {
	case StateNoToken, StateAlreadyAuthenticated:
		g.logger.DebugContext(ctx, "no authentication performed", attrs...)
	case StateAuthenticated:
		g.logger.DebugContext(ctx, "request authenticated", attrs...)
	case StateLookupFailed:
		g.logger.ErrorContext(ctx, "identity lookup failed", append(attrs, "error", o.Err)...)
	case StateInvalidToken:
		g.logger.WarnContext(ctx, "auth failure", append(attrs, "error", o.Err)...)
	default:
		g.logger.WarnContext(ctx, "auth failure", attrs...)
	}
}
