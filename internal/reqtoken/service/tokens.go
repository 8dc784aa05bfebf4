package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/aussiebroadwan/reqtoken/internal/reqtoken/domain"
	"github.com/aussiebroadwan/reqtoken/internal/reqtoken/store"
	"github.com/aussiebroadwan/reqtoken/pkg/idx"
	"github.com/aussiebroadwan/reqtoken/pkg/jwtx"
	"github.com/aussiebroadwan/reqtoken/pkg/slogx"
)

const (
	DefaultQueryArg      = "rt"
	DefaultMaxUses       = 10
	DefaultSessionExpiry = 10 * time.Minute
	expireOffset         = time.Microsecond
)

var (
	ErrInvalidData = errors.New("token data must be valid JSON")
	ErrInvalidURL  = errors.New("invalid url")
)

// TokenService owns the token lifecycle: creation, lookup, usage increments
// and forced expiry.
type TokenService struct {
	Store  store.Store
	Signer jwtx.Signer

	// DefaultMaxUses applies when CreateParams.MaxUses is zero.
	DefaultMaxUses int

	// SessionExpiry is the lifetime given to SESSION tokens created without
	// an explicit expiry.
	SessionExpiry time.Duration

	// QueryArg is the query string key Tokenise writes.
	QueryArg string

	Now func() time.Time
}

// CreateParams describes a new token. Zero values take the configured
// defaults.
type CreateParams struct {
	Scope     string
	UserID    string
	LoginMode domain.LoginMode
	NotBefore *time.Time
	ExpiresAt *time.Time
	MaxUses   int
	Data      json.RawMessage
	Stash     bool
}

func (s *TokenService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// Create validates p and persists a new token. issued_at is assigned here
// and never changes afterwards.
func (s *TokenService) Create(ctx context.Context, p CreateParams) (domain.Token, error) {
	log := slogx.FromContext(ctx)

	// The store keeps microseconds, truncate so the returned token matches
	// what a later Lookup sees.
	now := s.now().UTC().Truncate(time.Microsecond)

	if len(p.Data) > 0 && !json.Valid(p.Data) {
		return domain.Token{}, ErrInvalidData
	}

	mode := p.LoginMode
	if mode == "" {
		mode = domain.LoginModeNone
	}

	maxUses := p.MaxUses
	if maxUses == 0 {
		maxUses = s.DefaultMaxUses
		if maxUses <= 0 {
			maxUses = DefaultMaxUses
		}
	}

	tok := domain.Token{
		ID:        idx.NewAt(now).String(),
		Scope:     p.Scope,
		UserID:    p.UserID,
		LoginMode: mode,
		NotBefore: truncate(p.NotBefore),
		ExpiresAt: truncate(p.ExpiresAt),
		MaxUses:   maxUses,
		Data:      p.Data,
		IssuedAt:  &now,
		Stash:     p.Stash,
	}

	if tok.LoginMode == domain.LoginModeSession && tok.ExpiresAt == nil {
		expiry := s.SessionExpiry
		if expiry <= 0 {
			expiry = DefaultSessionExpiry
		}
		exp := now.Add(expiry)
		tok.ExpiresAt = &exp
	}

	if err := tok.Validate(); err != nil {
		return domain.Token{}, err
	}

	if err := s.Store.Tokens().CreateToken(ctx, tok); err != nil {
		log.Error("failed to create request token", slog.Any("error", err))
		return domain.Token{}, err
	}

	log.Info("request token created",
		slog.String("token_id", tok.ID),
		slog.String("scope", tok.Scope),
		slog.String("login_mode", string(tok.LoginMode)),
		slog.Int("max_uses", tok.MaxUses),
	)
	return tok, nil
}

// Lookup fetches a token by the id carried in its jti claim. Ids that could
// never have been issued are reported as not found without a query.
func (s *TokenService) Lookup(ctx context.Context, id string) (domain.Token, error) {
	if _, err := idx.Parse(id); err != nil {
		return domain.Token{}, fmt.Errorf("%w: %q", domain.ErrTokenNotFound, id)
	}

	tok, err := s.Store.Tokens().GetToken(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return domain.Token{}, fmt.Errorf("%w: %q", domain.ErrTokenNotFound, id)
	}
	if err != nil {
		return domain.Token{}, err
	}
	return tok, nil
}

// IncrementUsage atomically adds one use and returns the token carrying the
// counter value the store now holds.
func (s *TokenService) IncrementUsage(ctx context.Context, tok domain.Token) (domain.Token, error) {
	n, err := s.Store.Tokens().IncrementUsedCount(ctx, tok.ID)
	if err != nil {
		return tok, err
	}
	tok.UsedToDate = n
	return tok, nil
}

// ClaimUse counts a use only while the cap has not been reached, closing the
// window between the usage check and the increment.
func (s *TokenService) ClaimUse(ctx context.Context, tok domain.Token) (domain.Token, error) {
	n, err := s.Store.Tokens().ClaimUse(ctx, tok.ID)
	if errors.Is(err, store.ErrExhausted) {
		return tok, fmt.Errorf("%w: claimed by a concurrent request", domain.ErrMaxUseExceeded)
	}
	if err != nil {
		return tok, err
	}
	tok.UsedToDate = n
	return tok, nil
}

// Expire kills a token by moving its expiry just behind the current time.
// History is kept.
func (s *TokenService) Expire(ctx context.Context, tok domain.Token) (domain.Token, error) {
	at := s.now().UTC().Add(-expireOffset)
	if err := s.Store.Tokens().SetExpiration(ctx, tok.ID, at); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return tok, fmt.Errorf("%w: %q", domain.ErrTokenNotFound, tok.ID)
		}
		return tok, err
	}

	slogx.FromContext(ctx).Info("request token expired", slog.String("token_id", tok.ID))

	tok.ExpiresAt = &at
	return tok, nil
}

// Encode signs the claims derived from tok.
func (s *TokenService) Encode(tok domain.Token) (string, error) {
	raw, err := s.Signer.Sign(tok.Claims())
	if err != nil {
		return "", fromCodecError(err)
	}
	return raw, nil
}

// Tokenise returns rawURL with the encoded token set as the query string
// argument, replacing any previous value and keeping every other parameter.
func (s *TokenService) Tokenise(tok domain.Token, rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidURL, err)
	}

	raw, err := s.Encode(tok)
	if err != nil {
		return "", err
	}

	q := u.Query()
	q.Set(s.queryArg(), raw)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func (s *TokenService) queryArg() string {
	if s.QueryArg == "" {
		return DefaultQueryArg
	}
	return s.QueryArg
}

func truncate(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := t.UTC().Truncate(time.Microsecond)
	return &v
}

// fromCodecError maps codec failures onto the token error family.
func fromCodecError(err error) error {
	var mce *jwtx.MissingClaimError
	switch {
	case errors.As(err, &mce):
		return &domain.MissingClaimError{Claim: mce.Claim}
	case errors.Is(err, jwtx.ErrExpired):
		return fmt.Errorf("%w: %w", domain.ErrTokenExpired, err)
	case errors.Is(err, jwtx.ErrNotYetValid):
		return fmt.Errorf("%w: %w", domain.ErrTokenImmature, err)
	case errors.Is(err, jwtx.ErrNoSigningKey):
		return err
	default:
		return fmt.Errorf("%w: %w", domain.ErrDecode, err)
	}
}
