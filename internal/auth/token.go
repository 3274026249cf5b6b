// ABOUTME: JWT token codec for issuing and validating login tokens
// ABOUTME: Uses HS256 signing with an immutable key and an injectable clock

package auth

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// tokenPrecision is the resolution of iat and exp. NewCodec sets the
// process-wide jwt.TimePrecision to it, which affects every jwt/v5 user in the binary.
const tokenPrecision = time.Millisecond

var setPrecision sync.Once

// Token errors
var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token expired")
	ErrMissingClaim = fmt.Errorf("%w: missing required claim", ErrInvalidToken)
	ErrEncoding     = errors.New("token encoding failed")
)

// TokenIssuer issues signed tokens for a subject.
type TokenIssuer interface {
	Issue(subject string, ttl time.Duration) (string, error)
}

// TokenVerifier extracts and validates the subject of a token.
type TokenVerifier interface {
	ExtractSubject(token string) (string, error)
	Validate(token, expectedSubject string) bool
}

// Codec implements TokenIssuer and TokenVerifier using HS256 signed JWTs.
// A Codec is immutable after construction and safe for concurrent use.
type Codec struct {
	key    []byte
	issuer string
	now    func() time.Time
}

var (
	_ TokenIssuer   = (*Codec)(nil)
	_ TokenVerifier = (*Codec)(nil)
)

// CodecOption configures a Codec.
type CodecOption func(*Codec)

// WithIssuer sets the "iss" claim on issued tokens and requires it when parsing.
func WithIssuer(issuer string) CodecOption {
	return func(c *Codec) {
		c.issuer = issuer
	}
}

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) CodecOption {
	return func(c *Codec) {
		if now != nil {
			c.now = now
		}
	}
}

// NewCodec creates a codec that signs and verifies with key.
func NewCodec(key SigningKey, opts ...CodecOption) (*Codec, error) {
	if !key.valid() {
		return nil, fmt.Errorf("%w: key must be at least %d bytes", ErrWeakKey, MinSecretLength)
	}

	setPrecision.Do(func() {
		jwt.TimePrecision = tokenPrecision
	})

	c := &Codec{
		key: key.bytes(),
		now: time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// issueInstant rounds t up to tokenPrecision so that iat and exp are exact
// in the encoded token and a token never expires before t+ttl.
func issueInstant(t time.Time) time.Time {
	truncated := t.Truncate(tokenPrecision)
	if truncated.Before(t) {
		return truncated.Add(tokenPrecision)
	}
	return truncated
}

// Issue creates a token for subject that expires ttl from now.
func (c *Codec) Issue(subject string, ttl time.Duration) (string, error) {
	now := issueInstant(c.now())
	claims := jwt.RegisteredClaims{
		Subject:   subject,
		Issuer:    c.issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		ID:        uuid.New().String(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(c.key)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrEncoding, err)
	}
	return signed, nil
}

// parse verifies signature, algorithm, issuer and required claims.
// Time-based claims are not checked here; expiry is evaluated against the codec clock.
func (c *Codec) parse(tokenString string) (*jwt.RegisteredClaims, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithoutClaimsValidation(),
	)

	parsed := &tokenClaims{}
	token, err := parser.ParseWithClaims(tokenString, parsed, func(token *jwt.Token) (interface{}, error) {
		return c.key, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}
	claims := &parsed.RegisteredClaims

	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: sub", ErrMissingClaim)
	}
	if claims.ExpiresAt == nil {
		return nil, fmt.Errorf("%w: exp", ErrMissingClaim)
	}
	if c.issuer != "" && claims.Issuer != c.issuer {
		return nil, fmt.Errorf("%w: unexpected issuer %q", ErrInvalidToken, claims.Issuer)
	}

	return claims, nil
}

// ExtractSubject verifies the token and returns its "sub" claim.
// An authentic but expired token still yields its subject; use Validate or
// IsExpired to check expiry.
func (c *Codec) ExtractSubject(tokenString string) (string, error) {
	claims, err := c.parse(tokenString)
	if err != nil {
		return "", err
	}
	return claims.Subject, nil
}

// IsExpired reports whether the token's expiry is strictly before the current time.
// The token is re-verified; a token that fails verification returns an error.
func (c *Codec) IsExpired(tokenString string) (bool, error) {
	claims, err := c.parse(tokenString)
	if err != nil {
		return false, err
	}
	return c.now().After(claims.ExpiresAt.Time), nil
}

// Verify returns the subject of an authentic, unexpired token.
func (c *Codec) Verify(tokenString string) (string, error) {
	claims, err := c.parse(tokenString)
	if err != nil {
		return "", err
	}
	if c.now().After(claims.ExpiresAt.Time) {
		return "", ErrExpiredToken
	}
	return claims.Subject, nil
}

// Validate reports whether the token is authentic, unexpired and issued
// for exactly expectedSubject. It never panics on garbage input.
func (c *Codec) Validate(tokenString, expectedSubject string) bool {
	subject, err := c.Verify(tokenString)
	if err != nil {
		return false
	}
	return subject == expectedSubject
}
