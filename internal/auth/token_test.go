// ABOUTME: Unit tests for the JWT token codec and signing keys
// ABOUTME: Tests round-trip, expiry boundaries, tampering, and malformed tokens

package auth

import (
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testSecret is a 32-byte secret that meets MinSecretLength requirement.
const testSecret = "token-codec-test-secret-32bytes!"

// fakeClock is a settable clock for expiry tests.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestCodec(t *testing.T, opts ...CodecOption) *Codec {
	t.Helper()
	key, err := KeyFromSecret(testSecret)
	require.NoError(t, err)
	codec, err := NewCodec(key, opts...)
	require.NoError(t, err)
	return codec
}

func TestKeyFromSecret(t *testing.T) {
	a, err := KeyFromSecret(testSecret)
	require.NoError(t, err)
	b, err := KeyFromSecret(testSecret)
	require.NoError(t, err)
	assert.Equal(t, a.bytes(), b.bytes(), "derivation should be deterministic")
	assert.NotEqual(t, []byte(testSecret), a.bytes(), "key should not be the raw secret")

	other, err := KeyFromSecret("another-secret-that-is-32-bytes!")
	require.NoError(t, err)
	assert.NotEqual(t, a.bytes(), other.bytes())
}

func TestKeyFromSecret_TooShort(t *testing.T) {
	_, err := KeyFromSecret("short")
	if !errors.Is(err, ErrWeakKey) {
		t.Errorf("KeyFromSecret() error = %v, want ErrWeakKey", err)
	}
}

func TestGenerateKey(t *testing.T) {
	a, err := GenerateKey()
	require.NoError(t, err)
	b, err := GenerateKey()
	require.NoError(t, err)

	assert.Len(t, a.bytes(), keyLength)
	assert.NotEqual(t, a.bytes(), b.bytes())
}

func TestNewCodec_ZeroKey(t *testing.T) {
	_, err := NewCodec(SigningKey{})
	assert.ErrorIs(t, err, ErrWeakKey)
}

func TestCodec_RoundTrip(t *testing.T) {
	codec := newTestCodec(t)

	for _, subject := range []string{"alice@example.com", "Bob@Example.COM", "x"} {
		token, err := codec.Issue(subject, time.Hour)
		if err != nil {
			t.Fatalf("Issue() error = %v", err)
		}

		got, err := codec.ExtractSubject(token)
		if err != nil {
			t.Fatalf("ExtractSubject() error = %v", err)
		}
		if got != subject {
			t.Errorf("ExtractSubject() = %q, want %q", got, subject)
		}
		if !codec.Validate(token, subject) {
			t.Errorf("Validate(%q) = false, want true", subject)
		}
	}
}

func TestCodec_Claims(t *testing.T) {
	clock := newFakeClock()
	codec := newTestCodec(t, WithClock(clock.Now), WithIssuer("profile-service"))

	token, err := codec.Issue("alice@example.com", 1500*time.Millisecond)
	require.NoError(t, err)

	claims, err := codec.parse(token)
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", claims.Subject)
	assert.Equal(t, "profile-service", claims.Issuer)
	assert.NotEmpty(t, claims.ID)
	assert.True(t, claims.IssuedAt.Time.Equal(clock.Now()))
	assert.True(t, claims.ExpiresAt.Time.Equal(clock.Now().Add(1500*time.Millisecond)),
		"expiry should keep millisecond precision")

	assert.Len(t, strings.Split(token, "."), 3)
}

func TestCodec_ExpiryBoundary(t *testing.T) {
	clock := newFakeClock()
	codec := newTestCodec(t, WithClock(clock.Now))
	ttl := 10 * time.Second

	token, err := codec.Issue("alice@example.com", ttl)
	require.NoError(t, err)

	clock.Advance(ttl - time.Millisecond)
	expired, err := codec.IsExpired(token)
	require.NoError(t, err)
	assert.False(t, expired, "token should be live before now+ttl")
	assert.True(t, codec.Validate(token, "alice@example.com"))

	clock.Advance(time.Millisecond)
	expired, err = codec.IsExpired(token)
	require.NoError(t, err)
	assert.False(t, expired, "token should be live exactly at now+ttl")

	clock.Advance(time.Millisecond)
	expired, err = codec.IsExpired(token)
	require.NoError(t, err)
	assert.True(t, expired, "token should be expired strictly after now+ttl")
	assert.False(t, codec.Validate(token, "alice@example.com"))

	// An authentic expired token still yields its subject
	subject, err := codec.ExtractSubject(token)
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", subject)

	_, err = codec.Verify(token)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestCodec_ExpiryBoundary_OffMillisecond(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 1, 2, 3, 4, 5, 900_000, time.UTC)}
	codec := newTestCodec(t, WithClock(clock.Now))
	ttl := 10 * time.Second

	issuedAt := clock.Now()
	token, err := codec.Issue("alice@example.com", ttl)
	require.NoError(t, err)

	claims, err := codec.parse(token)
	require.NoError(t, err)
	assert.Equal(t, ttl, claims.ExpiresAt.Sub(claims.IssuedAt.Time), "iat and exp must agree")
	assert.False(t, claims.IssuedAt.Time.Before(issuedAt), "iat must not precede the issue instant")
	assert.Less(t, claims.IssuedAt.Time.Sub(issuedAt), time.Millisecond)

	// 500µs before issue time + ttl
	clock.Advance(ttl - 500*time.Microsecond)
	expired, err := codec.IsExpired(token)
	require.NoError(t, err)
	assert.False(t, expired, "token must not expire before issue time + ttl")
	assert.True(t, codec.Validate(token, "alice@example.com"))

	clock.Advance(claims.ExpiresAt.Time.Sub(clock.Now()))
	expired, err = codec.IsExpired(token)
	require.NoError(t, err)
	assert.False(t, expired, "token should be live exactly at exp")

	clock.Advance(time.Nanosecond)
	expired, err = codec.IsExpired(token)
	require.NoError(t, err)
	assert.True(t, expired, "token should be expired strictly after exp")
}

func TestIssueInstant(t *testing.T) {
	base := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	tests := []struct {
		name string
		in   time.Time
		want time.Time
	}{
		{"on boundary", base, base},
		{"just after boundary", base.Add(time.Nanosecond), base.Add(time.Millisecond)},
		{"mid millisecond", base.Add(900 * time.Microsecond), base.Add(time.Millisecond)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, issueInstant(tt.in).Equal(tt.want), "issueInstant(%v) = %v, want %v", tt.in, issueInstant(tt.in), tt.want)
		})
	}
}

func TestNewCodec_SetsTokenPrecision(t *testing.T) {
	newTestCodec(t)
	assert.Equal(t, tokenPrecision, jwt.TimePrecision)
}

func TestCodec_OneSecondTTLScenario(t *testing.T) {
	codec := newTestCodec(t)

	token, err := codec.Issue("alice@example.com", 1000*time.Millisecond)
	require.NoError(t, err)
	assert.True(t, codec.Validate(token, "alice@example.com"), "fresh token should validate")

	time.Sleep(1100 * time.Millisecond)
	assert.False(t, codec.Validate(token, "alice@example.com"), "token should be expired after its ttl")
}

func TestCodec_WrongKeyTamper(t *testing.T) {
	codec := newTestCodec(t)

	otherKey, err := KeyFromSecret("a-completely-different-secret-32")
	require.NoError(t, err)
	other, err := NewCodec(otherKey)
	require.NoError(t, err)

	forged, err := other.Issue("alice@example.com", time.Hour)
	require.NoError(t, err)

	assert.False(t, codec.Validate(forged, "alice@example.com"))
	_, err = codec.ExtractSubject(forged)
	assert.ErrorIs(t, err, ErrInvalidToken)
	_, err = codec.IsExpired(forged)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestCodec_PayloadTamper(t *testing.T) {
	codec := newTestCodec(t)

	token, err := codec.Issue("alice@example.com", time.Hour)
	require.NoError(t, err)
	mallory, err := codec.Issue("mallory@example.com", time.Hour)
	require.NoError(t, err)

	// Splice mallory's payload onto alice's signature
	parts := strings.Split(token, ".")
	parts[1] = strings.Split(mallory, ".")[1]
	spliced := strings.Join(parts, ".")

	assert.False(t, codec.Validate(spliced, "mallory@example.com"))
	_, err = codec.ExtractSubject(spliced)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestCodec_SubjectMismatch(t *testing.T) {
	codec := newTestCodec(t)

	token, err := codec.Issue("alice@example.com", time.Hour)
	require.NoError(t, err)

	assert.False(t, codec.Validate(token, "bob@example.com"))
	assert.False(t, codec.Validate(token, "ALICE@example.com"), "subject comparison is case-sensitive")
	assert.False(t, codec.Validate(token, ""))
}

func TestCodec_InvalidTokens(t *testing.T) {
	codec := newTestCodec(t)

	tests := []struct {
		name  string
		token string
	}{
		{name: "empty token", token: ""},
		{name: "garbage token", token: "garbage"},
		{name: "malformed JWT", token: "header.payload.signature"},
		{name: "two segments", token: "abc.def"},
		{
			name: "alg none",
			token: func() string {
				tok := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{
					Subject:   "alice@example.com",
					ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
				})
				s, _ := tok.SignedString(jwt.UnsafeAllowNoneSignatureType)
				return s
			}(),
		},
		{
			name: "HS512 with same key",
			token: func() string {
				tok := jwt.NewWithClaims(jwt.SigningMethodHS512, jwt.RegisteredClaims{
					Subject:   "alice@example.com",
					ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
				})
				s, _ := tok.SignedString(codec.key)
				return s
			}(),
		},
		{
			name: "missing sub",
			token: func() string {
				tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
					ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
				})
				s, _ := tok.SignedString(codec.key)
				return s
			}(),
		},
		{
			name: "missing exp",
			token: func() string {
				tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
					Subject: "alice@example.com",
				})
				s, _ := tok.SignedString(codec.key)
				return s
			}(),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := codec.ExtractSubject(tt.token)
			if !errors.Is(err, ErrInvalidToken) {
				t.Errorf("ExtractSubject() error = %v, want ErrInvalidToken", err)
			}

			if codec.Validate(tt.token, "alice@example.com") {
				t.Error("Validate() = true, want false")
			}
		})
	}
}

func TestCodec_MissingClaimWrapsInvalid(t *testing.T) {
	codec := newTestCodec(t)

	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	s, err := tok.SignedString(codec.key)
	require.NoError(t, err)

	_, err = codec.ExtractSubject(s)
	assert.ErrorIs(t, err, ErrMissingClaim)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestCodec_Issuer(t *testing.T) {
	issuing := newTestCodec(t, WithIssuer("someone-else"))
	verifying := newTestCodec(t, WithIssuer("profile-service"))

	token, err := issuing.Issue("alice@example.com", time.Hour)
	require.NoError(t, err)

	_, err = verifying.ExtractSubject(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
	assert.False(t, verifying.Validate(token, "alice@example.com"))

	// A codec without an issuer accepts any iss
	plain := newTestCodec(t)
	assert.True(t, plain.Validate(token, "alice@example.com"))
}

func TestCodec_TwoTokensDiffer(t *testing.T) {
	clock := newFakeClock()
	codec := newTestCodec(t, WithClock(clock.Now))

	first, err := codec.Issue("alice@example.com", 10*time.Second)
	require.NoError(t, err)

	clock.Advance(5 * time.Second)
	second, err := codec.Issue("alice@example.com", 10*time.Second)
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
	assert.NotEqual(t, strings.Split(first, ".")[2], strings.Split(second, ".")[2], "signatures should differ")
	assert.True(t, codec.Validate(first, "alice@example.com"))
	assert.True(t, codec.Validate(second, "alice@example.com"))

	// Past the first token's expiry only the second survives
	clock.Advance(5*time.Second + time.Millisecond)
	assert.False(t, codec.Validate(first, "alice@example.com"))
	assert.True(t, codec.Validate(second, "alice@example.com"))

	clock.Advance(5 * time.Second)
	assert.False(t, codec.Validate(second, "alice@example.com"))
}

func TestCodec_SameInstantTokensDiffer(t *testing.T) {
	clock := newFakeClock()
	codec := newTestCodec(t, WithClock(clock.Now))

	first, err := codec.Issue("alice@example.com", time.Minute)
	require.NoError(t, err)
	second, err := codec.Issue("alice@example.com", time.Minute)
	require.NoError(t, err)

	assert.NotEqual(t, first, second, "jti should make tokens unique")
}

func TestCodec_ConcurrentUse(t *testing.T) {
	codec := newTestCodec(t)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			token, err := codec.Issue("alice@example.com", time.Minute)
			if err != nil {
				t.Errorf("Issue() error = %v", err)
				return
			}
			if !codec.Validate(token, "alice@example.com") {
				t.Error("Validate() = false, want true")
			}
		}()
	}
	wg.Wait()
}
