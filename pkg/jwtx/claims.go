package jwtx

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claim names carried by a request token.
const (
	ClaimID        = "jti"
	ClaimSubject   = "sub"
	ClaimMode      = "mod"
	ClaimAudience  = "aud"
	ClaimExpiresAt = "exp"
	ClaimNotBefore = "nbf"
	ClaimIssuedAt  = "iat"
	ClaimMaxUses   = "max"
)

// MandatoryClaims must be present on every token we sign or accept.
var MandatoryClaims = []string{ClaimID, ClaimSubject, ClaimMode}

// Claims is the flat claim set of a request token. Only integrity is
// protected, anyone holding the token can read these.
type Claims struct {
	ID        string           `json:"jti,omitempty"`
	Subject   string           `json:"sub,omitempty"` // scope label
	Mode      string           `json:"mod,omitempty"` // single letter login mode
	Audience  string           `json:"aud,omitempty"` // bound user id
	ExpiresAt *jwt.NumericDate `json:"exp,omitempty"`
	NotBefore *jwt.NumericDate `json:"nbf,omitempty"`
	IssuedAt  *jwt.NumericDate `json:"iat,omitempty"`
	MaxUses   int              `json:"max,omitempty"`
}

var _ jwt.Claims = Claims{}

func (c Claims) GetExpirationTime() (*jwt.NumericDate, error) { return c.ExpiresAt, nil }
func (c Claims) GetIssuedAt() (*jwt.NumericDate, error)       { return c.IssuedAt, nil }
func (c Claims) GetNotBefore() (*jwt.NumericDate, error)      { return c.NotBefore, nil }
func (c Claims) GetIssuer() (string, error)                   { return "", nil }
func (c Claims) GetSubject() (string, error)                  { return c.Subject, nil }

func (c Claims) GetAudience() (jwt.ClaimStrings, error) {
	if c.Audience == "" {
		return nil, nil
	}
	return jwt.ClaimStrings{c.Audience}, nil
}

// Has reports whether the named claim carries a value.
func (c Claims) Has(name string) bool {
	switch name {
	case ClaimID:
		return c.ID != ""
	case ClaimSubject:
		return c.Subject != ""
	case ClaimMode:
		return c.Mode != ""
	case ClaimAudience:
		return c.Audience != ""
	case ClaimExpiresAt:
		return c.ExpiresAt != nil
	case ClaimNotBefore:
		return c.NotBefore != nil
	case ClaimIssuedAt:
		return c.IssuedAt != nil
	case ClaimMaxUses:
		return c.MaxUses != 0
	default:
		return false
	}
}

// CheckMandatory returns a *MissingClaimError naming the first absent
// mandatory claim.
func (c Claims) CheckMandatory() error {
	for _, name := range MandatoryClaims {
		if !c.Has(name) {
			return &MissingClaimError{Claim: name}
		}
	}
	return nil
}

// Date converts an optional timestamp into a NumericDate (second precision).
func Date(t *time.Time) *jwt.NumericDate {
	if t == nil {
		return nil
	}
	return jwt.NewNumericDate(*t)
}

var (
	ErrMalformed     = errors.New("jwtx: malformed token")
	ErrAlgMismatch   = errors.New("jwtx: algorithm mismatch")
	ErrUnknownKID    = errors.New("jwtx: unknown kid")
	ErrInvalidSig    = errors.New("jwtx: invalid signature")
	ErrExpired       = errors.New("jwtx: token expired")
	ErrNotYetValid   = errors.New("jwtx: token not yet valid")
	ErrInvalidClaim  = errors.New("jwtx: invalid claims")
	ErrMissingClaim  = errors.New("jwtx: missing required claim")
	ErrNoSigningKey  = errors.New("jwtx: no signing key configured")
	ErrSecretTooWeak = errors.New("jwtx: secret too short")
)

// MissingClaimError names the mandatory claim that was absent.
type MissingClaimError struct {
	Claim string
}

func (e *MissingClaimError) Error() string {
	return fmt.Sprintf("jwtx: missing required claim %q", e.Claim)
}

func (e *MissingClaimError) Unwrap() error { return ErrMissingClaim }
