// Package auth provides token authentication for profile-service.
//
// # Login
//
// Login is passwordless: Service.Authenticate issues a token to anyone who
// presents an email that belongs to a registered account. There is no password,
// no refresh token, and no revocation list. A token is valid until it expires.
//
// # Tokens
//
// Codec issues and parses HS256 JWTs with the claims sub (the account email),
// iat, exp, jti and, when configured, iss. Timestamps carry millisecond
// precision: the first NewCodec call sets the global jwt.TimePrecision to one
// millisecond, and the issue instant is rounded up to it. The signing key is an immutable SigningKey built at startup:
//
//	key, err := KeyFromSecret(cfg.Auth.JWTSecret) // HKDF-SHA256, secret >= 32 bytes
//	key, err := GenerateKey()                     // ephemeral, lost on restart
//	codec, err := NewCodec(key, WithIssuer("profile-service"))
//
// # Request Gate
//
// Gate.Evaluate decides, for one request, whether the Authorization header
// carries a valid bearer token for an existing account. The decision is one of:
//
//   - no_token: header absent or not prefixed with "Bearer " (case-sensitive)
//   - invalid_token: bad signature, structure, algorithm or issuer
//   - already_authenticated: an AuthContext is already attached
//   - unknown_subject: no account has the token's email
//   - lookup_failed: the account store returned an error
//   - token_rejected: expired, or subject does not match the account
//   - authenticated: an AuthContext is attached
//
// The gate never rejects a request. Gate.Middleware adapts it to net/http and
// Gate.UnaryInterceptor / Gate.StreamInterceptor adapt it to gRPC, where the
// token is read from the "authorization" metadata key. Access control happens
// afterwards, in RequireAuthenticated.
package auth
