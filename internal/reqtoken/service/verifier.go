package service

import (
	"context"
	"fmt"
	"time"

	"github.com/aussiebroadwan/reqtoken/internal/reqtoken/domain"
	"github.com/aussiebroadwan/reqtoken/pkg/jwtx"
)

// TokenLookup resolves a token id to its stored state.
type TokenLookup interface {
	Lookup(ctx context.Context, id string) (domain.Token, error)
}

// Verifier runs the token checks that do not depend on the endpoint:
// decode, lookup, validity window and usage cap, in that order.
type Verifier struct {
	Codec  jwtx.Verifier
	Tokens TokenLookup
	Now    func() time.Time
}

// Verify validates a raw token string. When the token was resolved from the
// store but failed a later check, the token is returned together with the
// error so the attempt can be recorded against it. A zero token means the
// failure happened before lookup.
func (v *Verifier) Verify(ctx context.Context, raw string) (domain.Token, error) {
	claims, err := v.Codec.Verify(raw)
	if err != nil {
		return domain.Token{}, fromCodecError(err)
	}

	tok, err := v.Tokens.Lookup(ctx, claims.ID)
	if err != nil {
		return domain.Token{}, err
	}

	if err := tok.CheckWindow(v.now()); err != nil {
		return tok, err
	}
	if err := tok.CheckUsage(); err != nil {
		return tok, fmt.Errorf("%w: %d of %d used", err, tok.UsedToDate, tok.MaxUses)
	}
	return tok, nil
}

// CheckScope compares the token scope with the scope an endpoint declares.
func (v *Verifier) CheckScope(tok domain.Token, scope string) error {
	if tok.Scope != scope {
		return fmt.Errorf("%w: token scope %q, endpoint scope %q", domain.ErrScopeMismatch, tok.Scope, scope)
	}
	return nil
}

func (v *Verifier) now() time.Time {
	if v.Now != nil {
		return v.Now()
	}
	return time.Now()
}
