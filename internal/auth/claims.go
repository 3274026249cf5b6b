// ABOUTME: Token claims with exact decoding of the exp and iat timestamps
// ABOUTME: Avoids the float64 round trip that can move a millisecond timestamp earlier

package auth

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// tokenClaims are the registered claims of a token. jwt/v5 decodes
// NumericDate through float64 and truncates, so "….001" can come back as
// "….000". exp and iat are re-read from the JSON number text.
type tokenClaims struct {
	jwt.RegisteredClaims
}

func (c *tokenClaims) UnmarshalJSON(data []byte) error {
	if err := json.Unmarshal(data, &c.RegisteredClaims); err != nil {
		return err
	}

	var raw struct {
		ExpiresAt json.Number `json:"exp"`
		IssuedAt  json.Number `json:"iat"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	if t, ok := exactNumericDate(raw.ExpiresAt); ok {
		c.ExpiresAt = &jwt.NumericDate{Time: t}
	}
	if t, ok := exactNumericDate(raw.IssuedAt); ok {
		c.IssuedAt = &jwt.NumericDate{Time: t}
	}
	return nil
}

// exactNumericDate parses a non-negative decimal number of seconds without
// going through float64. Other forms, such as exponents, report false and
// keep the value decoded by jwt/v5.
func exactNumericDate(n json.Number) (time.Time, bool) {
	s := n.String()
	if s == "" || strings.ContainsAny(s, "eE-+") {
		return time.Time{}, false
	}

	whole, frac, _ := strings.Cut(s, ".")
	secs, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return time.Time{}, false
	}

	var nanos int64
	if frac != "" {
		if len(frac) > 9 {
			frac = frac[:9]
		}
		frac += strings.Repeat("0", 9-len(frac))
		nanos, err = strconv.ParseInt(frac, 10, 64)
		if err != nil {
			return time.Time{}, false
		}
	}
	return time.Unix(secs, nanos), true
}
