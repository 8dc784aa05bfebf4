package domain

import (
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/aussiebroadwan/reqtoken/pkg/jwtx"
)

var (
	ErrInvalidLoginMode = errors.New("invalid login mode")
	ErrScopeRequired    = errors.New("scope is required")
	ErrUserRequired     = errors.New("login mode requires a user")
	ErrInvalidMaxUses   = errors.New("max uses must be positive")
	ErrInvalidWindow    = errors.New("not_before must precede expiration")
)

// LoginMode governs whether a verified token changes the caller identity.
type LoginMode string

const (
	LoginModeNone    LoginMode = "NONE"    // never touches identity
	LoginModeRequest LoginMode = "REQUEST" // identity for this request only
	LoginModeSession LoginMode = "SESSION" // identity persisted into the session (legacy)
)

// ParseLoginMode accepts the mode name in any case or its single letter
// claim code.
func ParseLoginMode(s string) (LoginMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "none", "n":
		return LoginModeNone, nil
	case "request", "r":
		return LoginModeRequest, nil
	case "session", "s":
		return LoginModeSession, nil
	default:
		return "", ErrInvalidLoginMode
	}
}

// Code is the value carried in the mod claim.
func (m LoginMode) Code() string {
	if m == "" {
		return ""
	}
	return strings.ToLower(string(m[:1]))
}

func (m LoginMode) Valid() bool {
	switch m {
	case LoginModeNone, LoginModeRequest, LoginModeSession:
		return true
	}
	return false
}

// BindsIdentity reports whether the mode substitutes the caller identity.
func (m LoginMode) BindsIdentity() bool {
	return m == LoginModeRequest || m == LoginModeSession
}

// Token is the persisted configuration and usage state of a request token.
type Token struct {
	ID         string
	Scope      string
	UserID     string // empty when the token is not bound to a user
	LoginMode  LoginMode
	NotBefore  *time.Time
	ExpiresAt  *time.Time
	MaxUses    int
	UsedToDate int
	Data       json.RawMessage // never signed, always read from the store
	IssuedAt   *time.Time      // nil until first persisted
	Stash      bool
}

// Validate checks the construction-time invariants.
func (t Token) Validate() error {
	if strings.TrimSpace(t.Scope) == "" {
		return ErrScopeRequired
	}
	if !t.LoginMode.Valid() {
		return ErrInvalidLoginMode
	}
	if t.LoginMode.BindsIdentity() && t.UserID == "" {
		return ErrUserRequired
	}
	if t.MaxUses <= 0 {
		return ErrInvalidMaxUses
	}
	if t.NotBefore != nil && t.ExpiresAt != nil && !t.NotBefore.Before(*t.ExpiresAt) {
		return ErrInvalidWindow
	}
	return nil
}

// Claims derives the claim set from the stored fields. Nothing here is
// cached on the token.
func (t Token) Claims() jwtx.Claims {
	return jwtx.Claims{
		ID:        t.ID,
		Subject:   t.Scope,
		Mode:      t.LoginMode.Code(),
		Audience:  t.UserID,
		ExpiresAt: jwtx.Date(t.ExpiresAt),
		NotBefore: jwtx.Date(t.NotBefore),
		IssuedAt:  jwtx.Date(t.IssuedAt),
		MaxUses:   t.MaxUses,
	}
}

// CheckWindow returns ErrTokenImmature or ErrTokenExpired when now falls
// outside [NotBefore, ExpiresAt].
func (t Token) CheckWindow(now time.Time) error {
	if t.NotBefore != nil && now.Before(*t.NotBefore) {
		return ErrTokenImmature
	}
	if t.ExpiresAt != nil && now.After(*t.ExpiresAt) {
		return ErrTokenExpired
	}
	return nil
}

// CheckUsage returns ErrMaxUseExceeded once the cap has been reached.
func (t Token) CheckUsage() error {
	if t.UsedToDate >= t.MaxUses {
		return ErrMaxUseExceeded
	}
	return nil
}

// Remaining is the number of uses left, never negative.
func (t Token) Remaining() int {
	return max(t.MaxUses-t.UsedToDate, 0)
}
