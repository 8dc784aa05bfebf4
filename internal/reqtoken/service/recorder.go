package service

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/aussiebroadwan/reqtoken/internal/reqtoken/domain"
	"github.com/aussiebroadwan/reqtoken/internal/reqtoken/store"
	"github.com/aussiebroadwan/reqtoken/pkg/httpx"
	"github.com/aussiebroadwan/reqtoken/pkg/idx"
	"github.com/aussiebroadwan/reqtoken/pkg/slogx"
)

const unknownUserAgent = "unknown"

// RequestMeta is what a usage log keeps about the caller.
type RequestMeta struct {
	UserID    string
	ClientIP  string
	UserAgent string
}

// MetaFromRequest takes the first X-Forwarded-For hop (else the peer
// address) and the user agent, defaulting to "unknown".
func MetaFromRequest(r *http.Request, userID string) RequestMeta {
	ua := r.UserAgent()
	if ua == "" {
		ua = unknownUserAgent
	}
	return RequestMeta{
		UserID:    userID,
		ClientIP:  httpx.ClientIP(r),
		UserAgent: ua,
	}
}

// Attempt is one finished use of a token.
type Attempt struct {
	Token  domain.Token
	Meta   RequestMeta
	Status int

	// Err is the token error the attempt failed with, nil on success.
	Err error

	// Claimed is set when the use was already counted before the handler ran.
	Claimed bool
}

// Recorder writes usage logs and keeps used_to_date current. Only successful
// attempts count toward max_uses, failed ones are logged but never counted.
type Recorder struct {
	Store store.Store

	// DisableLogs skips usage rows for successful attempts, the counter is
	// still updated.
	DisableLogs bool

	// LogErrors writes a usage row plus an error row for soft failures.
	// Hard failures are always written.
	LogErrors bool

	Now func() time.Time
}

// Record stores the attempt and returns the token with its refreshed
// counter. It runs after the handler so the response status is known.
func (r *Recorder) Record(ctx context.Context, a Attempt) (domain.Token, error) {
	tok := a.Token
	now := time.Now()
	if r.Now != nil {
		now = r.Now()
	}
	now = now.UTC()

	if a.Err != nil {
		if !r.LogErrors && !domain.IsHardFailure(a.Err) {
			return tok, nil
		}
		class := domain.Classify(a.Err)
		if class == "" {
			class = domain.ClassInvalidToken
		}
		l := newUsageLog(tok, a, now)
		l.Error = &domain.ErrorLog{LogID: l.ID, Classification: class, Message: a.Err.Error()}

		if err := r.Store.WithTx(ctx, func(tx store.Tx) error {
			return tx.UsageLogs().CreateUsageLog(ctx, l)
		}); err != nil {
			slogx.FromContext(ctx).Error("failed to record request token error",
				slog.String("token_id", tok.ID),
				slog.Any("error", err),
			)
			return tok, err
		}
		return tok, nil
	}

	err := r.Store.WithTx(ctx, func(tx store.Tx) error {
		if !a.Claimed {
			n, err := tx.Tokens().IncrementUsedCount(ctx, tok.ID)
			if err != nil {
				return err
			}
			tok.UsedToDate = n
		}
		if r.DisableLogs {
			return nil
		}
		return tx.UsageLogs().CreateUsageLog(ctx, newUsageLog(tok, a, now))
	})
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			slogx.FromContext(ctx).Warn("request token vanished before use was recorded", slog.String("token_id", tok.ID))
		} else {
			slogx.FromContext(ctx).Error("failed to record request token use",
				slog.String("token_id", tok.ID),
				slog.Any("error", err),
			)
		}
		return a.Token, err
	}

	return tok, nil
}

func newUsageLog(tok domain.Token, a Attempt, now time.Time) domain.UsageLog {
	ua := a.Meta.UserAgent
	if ua == "" {
		ua = unknownUserAgent
	}
	return domain.UsageLog{
		ID:         idx.NewAt(now).String(),
		TokenID:    tok.ID,
		UserID:     a.Meta.UserID,
		ClientIP:   a.Meta.ClientIP,
		UserAgent:  ua,
		StatusCode: a.Status,
		Timestamp:  now,
	}
}
