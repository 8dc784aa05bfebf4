package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aussiebroadwan/reqtoken/internal/reqtoken/domain"
	"github.com/aussiebroadwan/reqtoken/pkg/slogx"
)

var ErrNoPersister = errors.New("session mode token but no identity persister configured")

// IdentityPersister keeps a user logged in beyond the current request.
type IdentityPersister interface {
	PersistIdentity(ctx context.Context, userID string) error
}

// Binder decides the effective caller identity for a verified token.
type Binder struct {
	Persister IdentityPersister
}

// Bind returns the identity the request should run as. callerID is empty
// for anonymous callers. An authenticated caller other than the token's user
// is an AudienceMismatch.
func (b *Binder) Bind(ctx context.Context, tok domain.Token, callerID string) (string, error) {
	if !tok.LoginMode.BindsIdentity() {
		return callerID, nil
	}

	// Construction rejects these, a token without a user never logs anyone in.
	if tok.UserID == "" {
		return callerID, fmt.Errorf("%w: token %s is not bound to a user", domain.ErrAudienceMismatch, tok.ID)
	}

	if callerID != "" {
		if callerID != tok.UserID {
			return callerID, fmt.Errorf("%w: caller %q, token user %q", domain.ErrAudienceMismatch, callerID, tok.UserID)
		}
		return callerID, nil
	}

	if tok.LoginMode == domain.LoginModeSession {
		if b.Persister == nil {
			return "", ErrNoPersister
		}
		if err := b.Persister.PersistIdentity(ctx, tok.UserID); err != nil {
			return "", fmt.Errorf("persist identity: %w", err)
		}
		slogx.FromContext(ctx).Info("request token logged user into session",
			slog.String("token_id", tok.ID),
			slog.String("user_id", tok.UserID),
		)
	}

	return tok.UserID, nil
}
