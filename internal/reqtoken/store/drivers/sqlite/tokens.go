package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/aussiebroadwan/reqtoken/internal/reqtoken/domain"
	"github.com/aussiebroadwan/reqtoken/internal/reqtoken/store"
	"github.com/aussiebroadwan/reqtoken/internal/reqtoken/store/drivers/sqlite/gen"
)

type tokensRepo struct {
	q *gen.Queries
}

func (r *tokensRepo) CreateToken(ctx context.Context, t domain.Token) error {
	if t.IssuedAt == nil {
		return errors.New("sqlite: token issued_at not set")
	}

	var data sql.NullString
	if len(t.Data) > 0 {
		data = sql.NullString{String: string(t.Data), Valid: true}
	}

	err := r.q.CreateRequestToken(ctx, gen.CreateRequestTokenParams{
		ID:         t.ID,
		Scope:      t.Scope,
		UserID:     mapStringNull(t.UserID),
		LoginMode:  string(t.LoginMode),
		NotBefore:  mapOptionalTime(t.NotBefore),
		ExpiresAt:  mapOptionalTime(t.ExpiresAt),
		MaxUses:    int64(t.MaxUses),
		UsedToDate: int64(t.UsedToDate),
		Data:       data,
		IssuedAt:   toMicros(*t.IssuedAt),
		Stash:      t.Stash,
	})
	return mapAlreadyExists(err)
}

func (r *tokensRepo) GetToken(ctx context.Context, id string) (domain.Token, error) {
	row, err := r.q.GetRequestToken(ctx, id)
	if err != nil {
		return domain.Token{}, mapNotFound(err)
	}
	return mapToken(row), nil
}

func (r *tokensRepo) IncrementUsedCount(ctx context.Context, id string) (int, error) {
	n, err := r.q.IncrementRequestTokenUsedCount(ctx, id)
	if err != nil {
		return 0, mapNotFound(err)
	}
	return int(n), nil
}

func (r *tokensRepo) ClaimUse(ctx context.Context, id string) (int, error) {
	n, err := r.q.ClaimRequestTokenUse(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, store.ErrExhausted
	}
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

func (r *tokensRepo) SetExpiration(ctx context.Context, id string, at time.Time) error {
	rows, err := r.q.SetRequestTokenExpiration(ctx, gen.SetRequestTokenExpirationParams{
		ExpiresAt: mapOptionalTime(&at),
		ID:        id,
	})
	if err != nil {
		return err
	}
	if rows == 0 {
		return store.ErrNotFound
	}
	return nil
}
