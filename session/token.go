package session

import (
	"strings"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"

	"github.com/jrsteele09/carpool-client/internal/utils"
)

// Token is the bearer credential captured from an interactive login.
// The backend may issue a JWT or an opaque string; claims are read without
// verification and only used for display and expiry hints.
type Token struct {
	Raw       string
	IsJWT     bool
	Subject   string
	Roles     []string
	ExpiresAt time.Time
}

// ParseToken wraps raw, extracting unverified JWT claims when possible.
func ParseToken(raw string) Token {
	t := Token{Raw: strings.TrimSpace(raw)}
	if t.Raw == "" {
		return t
	}
	claims := jwtlib.MapClaims{}
	if _, _, err := jwtlib.NewParser().ParseUnverified(t.Raw, claims); err != nil {
		return t
	}
	t.IsJWT = true
	if sub, err := claims.GetSubject(); err == nil {
		t.Subject = sub
	}
	if roles, ok := claims["roles"].([]any); ok {
		t.Roles = utils.ToStringSlice(roles)
	}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		t.ExpiresAt = exp.Time
	}
	return t
}

// Expired reports whether the token carries an expiry that is before now.
// Opaque tokens never report expired.
func (t Token) Expired(now time.Time) bool {
	return !t.ExpiresAt.IsZero() && now.After(t.ExpiresAt)
}

// Redacted returns a loggable form of the token.
func (t Token) Redacted() string {
	if len(t.Raw) <= 8 {
		return "****"
	}
	return t.Raw[:4] + "…" + t.Raw[len(t.Raw)-4:]
}
