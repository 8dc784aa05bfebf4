package gen

import (
	"context"
	"database/sql"
)

const createRequestToken = `
INSERT INTO request_tokens (
    id, scope, user_id, login_mode, not_before, expires_at,
    max_uses, used_to_date, data, issued_at, stash
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`

type CreateRequestTokenParams struct {
	ID         string
	Scope      string
	UserID     sql.NullString
	LoginMode  string
	NotBefore  sql.NullInt64
	ExpiresAt  sql.NullInt64
	MaxUses    int64
	UsedToDate int64
	Data       sql.NullString
	IssuedAt   int64
	Stash      bool
}

func (q *Queries) CreateRequestToken(ctx context.Context, arg CreateRequestTokenParams) error {
	_, err := q.db.ExecContext(ctx, createRequestToken,
		arg.ID,
		arg.Scope,
		arg.UserID,
		arg.LoginMode,
		arg.NotBefore,
		arg.ExpiresAt,
		arg.MaxUses,
		arg.UsedToDate,
		arg.Data,
		arg.IssuedAt,
		arg.Stash,
	)
	return err
}

const getRequestToken = `
SELECT id, scope, user_id, login_mode, not_before, expires_at,
       max_uses, used_to_date, data, issued_at, stash
FROM request_tokens
WHERE id = ?
`

func (q *Queries) GetRequestToken(ctx context.Context, id string) (RequestToken, error) {
	row := q.db.QueryRowContext(ctx, getRequestToken, id)
	var i RequestToken
	err := row.Scan(
		&i.ID,
		&i.Scope,
		&i.UserID,
		&i.LoginMode,
		&i.NotBefore,
		&i.ExpiresAt,
		&i.MaxUses,
		&i.UsedToDate,
		&i.Data,
		&i.IssuedAt,
		&i.Stash,
	)
	return i, err
}

const incrementRequestTokenUsedCount = `
UPDATE request_tokens
SET used_to_date = used_to_date + 1
WHERE id = ?
RETURNING used_to_date
`

func (q *Queries) IncrementRequestTokenUsedCount(ctx context.Context, id string) (int64, error) {
	row := q.db.QueryRowContext(ctx, incrementRequestTokenUsedCount, id)
	var used_to_date int64
	err := row.Scan(&used_to_date)
	return used_to_date, err
}

const claimRequestTokenUse = `
UPDATE request_tokens
SET used_to_date = used_to_date + 1
WHERE id = ? AND used_to_date < max_uses
RETURNING used_to_date
`

func (q *Queries) ClaimRequestTokenUse(ctx context.Context, id string) (int64, error) {
	row := q.db.QueryRowContext(ctx, claimRequestTokenUse, id)
	var used_to_date int64
	err := row.Scan(&used_to_date)
	return used_to_date, err
}

const setRequestTokenExpiration = `
UPDATE request_tokens
SET expires_at = ?
WHERE id = ?
`

type SetRequestTokenExpirationParams struct {
	ExpiresAt sql.NullInt64
	ID        string
}

func (q *Queries) SetRequestTokenExpiration(ctx context.Context, arg SetRequestTokenExpirationParams) (int64, error) {
	result, err := q.db.ExecContext(ctx, setRequestTokenExpiration, arg.ExpiresAt, arg.ID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
