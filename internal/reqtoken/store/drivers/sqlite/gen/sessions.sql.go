package gen

import (
	"context"
	"database/sql"
)

const createSession = `
INSERT INTO sessions (id, user_id, stash, expires_at, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?)
`

type CreateSessionParams struct {
	ID        string
	UserID    sql.NullString
	Stash     sql.NullString
	ExpiresAt int64
	CreatedAt int64
	UpdatedAt int64
}

func (q *Queries) CreateSession(ctx context.Context, arg CreateSessionParams) error {
	_, err := q.db.ExecContext(ctx, createSession,
		arg.ID,
		arg.UserID,
		arg.Stash,
		arg.ExpiresAt,
		arg.CreatedAt,
		arg.UpdatedAt,
	)
	return err
}

const getActiveSession = `
SELECT id, user_id, stash, expires_at, created_at, updated_at
FROM sessions
WHERE id = ? AND expires_at > ?
`

type GetActiveSessionParams struct {
	ID  string
	Now int64
}

func (q *Queries) GetActiveSession(ctx context.Context, arg GetActiveSessionParams) (Session, error) {
	row := q.db.QueryRowContext(ctx, getActiveSession, arg.ID, arg.Now)
	var i Session
	err := row.Scan(
		&i.ID,
		&i.UserID,
		&i.Stash,
		&i.ExpiresAt,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const setSessionUser = `
UPDATE sessions
SET user_id = ?, updated_at = ?
WHERE id = ?
`

type SetSessionUserParams struct {
	UserID    sql.NullString
	UpdatedAt int64
	ID        string
}

func (q *Queries) SetSessionUser(ctx context.Context, arg SetSessionUserParams) (int64, error) {
	result, err := q.db.ExecContext(ctx, setSessionUser, arg.UserID, arg.UpdatedAt, arg.ID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const setSessionStash = `
UPDATE sessions
SET stash = ?, updated_at = ?
WHERE id = ?
`

type SetSessionStashParams struct {
	Stash     sql.NullString
	UpdatedAt int64
	ID        string
}

func (q *Queries) SetSessionStash(ctx context.Context, arg SetSessionStashParams) (int64, error) {
	result, err := q.db.ExecContext(ctx, setSessionStash, arg.Stash, arg.UpdatedAt, arg.ID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const deleteSession = `
DELETE FROM sessions
WHERE id = ?
`

func (q *Queries) DeleteSession(ctx context.Context, id string) error {
	_, err := q.db.ExecContext(ctx, deleteSession, id)
	return err
}

const deleteExpiredSessions = `
DELETE FROM sessions
WHERE expires_at <= ?
`

func (q *Queries) DeleteExpiredSessions(ctx context.Context, now int64) (int64, error) {
	result, err := q.db.ExecContext(ctx, deleteExpiredSessions, now)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
