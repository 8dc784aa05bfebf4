package sqlite

import (
	"context"
	"time"

	"github.com/aussiebroadwan/reqtoken/internal/reqtoken/domain"
	"github.com/aussiebroadwan/reqtoken/internal/reqtoken/store"
	"github.com/aussiebroadwan/reqtoken/internal/reqtoken/store/drivers/sqlite/gen"
)

type sessionsRepo struct {
	q *gen.Queries
}

func (r *sessionsRepo) CreateSession(ctx context.Context, s domain.Session) error {
	err := r.q.CreateSession(ctx, gen.CreateSessionParams{
		ID:        s.ID,
		UserID:    mapStringNull(s.UserID),
		Stash:     mapStringNull(s.Stash),
		ExpiresAt: toMicros(s.ExpiresAt),
		CreatedAt: toMicros(s.CreatedAt),
		UpdatedAt: toMicros(s.UpdatedAt),
	})
	return mapAlreadyExists(err)
}

func (r *sessionsRepo) GetSession(ctx context.Context, id string, now time.Time) (domain.Session, error) {
	row, err := r.q.GetActiveSession(ctx, gen.GetActiveSessionParams{
		ID:  id,
		Now: toMicros(now),
	})
	if err != nil {
		return domain.Session{}, mapNotFound(err)
	}
	return mapSession(row), nil
}

func (r *sessionsRepo) SetSessionUser(ctx context.Context, id, userID string) error {
	rows, err := r.q.SetSessionUser(ctx, gen.SetSessionUserParams{
		UserID:    mapStringNull(userID),
		UpdatedAt: toMicros(time.Now()),
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

func (r *sessionsRepo) SetSessionStash(ctx context.Context, id, stash string) error {
	rows, err := r.q.SetSessionStash(ctx, gen.SetSessionStashParams{
		Stash:     mapStringNull(stash),
		UpdatedAt: toMicros(time.Now()),
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

func (r *sessionsRepo) DeleteSession(ctx context.Context, id string) error {
	return r.q.DeleteSession(ctx, id)
}

func (r *sessionsRepo) DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error) {
	return r.q.DeleteExpiredSessions(ctx, toMicros(now))
}
