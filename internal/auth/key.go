// ABOUTME: Signing key construction for the token codec
// ABOUTME: Derives HS256 keys from a configured secret or generates an ephemeral one

package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
)

// MinSecretLength is the minimum accepted length in bytes for a configured secret
// and for the signing key handed to NewCodec.
const MinSecretLength = 32

// keyLength matches the SHA-256 block output used by HS256.
const keyLength = 32

// ErrWeakKey is returned when a secret or key is shorter than MinSecretLength.
var ErrWeakKey = errors.New("signing key too short")

// hkdfInfo binds derived keys to their use so the same secret
// never yields the same bytes for another purpose.
var hkdfInfo = []byte("profile-service token signing v1")

// SigningKey is an immutable HS256 key. Construct it once at startup.
type SigningKey struct {
	b []byte
}

// KeyFromSecret derives a signing key from a configured secret using HKDF-SHA256.
func KeyFromSecret(secret string) (SigningKey, error) {
	if len(secret) < MinSecretLength {
		return SigningKey{}, fmt.Errorf("%w: secret must be at least %d bytes, got %d", ErrWeakKey, MinSecretLength, len(secret))
	}

	key := make([]byte, keyLength)
	r := hkdf.New(sha256.New, []byte(secret), nil, hkdfInfo)
	if _, err := io.ReadFull(r, key); err != nil {
		return SigningKey{}, fmt.Errorf("deriving signing key: %w", err)
	}
	return SigningKey{b: key}, nil
}

// GenerateKey returns a random signing key. Tokens signed with it do not
// survive a process restart.
func GenerateKey() (SigningKey, error) {
	key := make([]byte, keyLength)
	if _, err := rand.Read(key); err != nil {
		return SigningKey{}, fmt.Errorf("generating signing key: %w", err)
	}
	return SigningKey{b: key}, nil
}

// bytes returns a copy so callers cannot mutate the key.
func (k SigningKey) bytes() []byte {
	out := make([]byte, len(k.b))
	copy(out, k.b)
	return out
}

func (k SigningKey) valid() bool {
	return len(k.b) >= MinSecretLength
}
