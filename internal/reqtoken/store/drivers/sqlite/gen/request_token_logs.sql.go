package gen

import (
	"context"
	"database/sql"
)

const createRequestTokenLog = `
INSERT INTO request_token_logs (
    id, token_id, user_id, client_ip, user_agent, status_code, timestamp
) VALUES (?, ?, ?, ?, ?, ?, ?)
`

type CreateRequestTokenLogParams struct {
	ID         string
	TokenID    string
	UserID     sql.NullString
	ClientIp   sql.NullString
	UserAgent  string
	StatusCode int64
	Timestamp  int64
}

func (q *Queries) CreateRequestTokenLog(ctx context.Context, arg CreateRequestTokenLogParams) error {
	_, err := q.db.ExecContext(ctx, createRequestTokenLog,
		arg.ID,
		arg.TokenID,
		arg.UserID,
		arg.ClientIp,
		arg.UserAgent,
		arg.StatusCode,
		arg.Timestamp,
	)
	return err
}

const createRequestTokenError = `
INSERT INTO request_token_errors (log_id, classification, message)
VALUES (?, ?, ?)
`

type CreateRequestTokenErrorParams struct {
	LogID          string
	Classification string
	Message        string
}

func (q *Queries) CreateRequestTokenError(ctx context.Context, arg CreateRequestTokenErrorParams) error {
	_, err := q.db.ExecContext(ctx, createRequestTokenError, arg.LogID, arg.Classification, arg.Message)
	return err
}

const listRequestTokenLogs = `
SELECT l.id, l.token_id, l.user_id, l.client_ip, l.user_agent, l.status_code, l.timestamp,
       e.classification, e.message
FROM request_token_logs l
LEFT JOIN request_token_errors e ON e.log_id = l.id
WHERE l.token_id = ?
ORDER BY l.timestamp ASC, l.id ASC
`

type ListRequestTokenLogsRow struct {
	ID             string
	TokenID        string
	UserID         sql.NullString
	ClientIp       sql.NullString
	UserAgent      string
	StatusCode     int64
	Timestamp      int64
	Classification sql.NullString
	Message        sql.NullString
}

func (q *Queries) ListRequestTokenLogs(ctx context.Context, tokenID string) ([]ListRequestTokenLogsRow, error) {
	rows, err := q.db.QueryContext(ctx, listRequestTokenLogs, tokenID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []ListRequestTokenLogsRow
	for rows.Next() {
		var i ListRequestTokenLogsRow
		if err := rows.Scan(
			&i.ID,
			&i.TokenID,
			&i.UserID,
			&i.ClientIp,
			&i.UserAgent,
			&i.StatusCode,
			&i.Timestamp,
			&i.Classification,
			&i.Message,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const countSuccessfulRequestTokenUses = `
SELECT COUNT(*)
FROM request_token_logs l
LEFT JOIN request_token_errors e ON e.log_id = l.id
WHERE l.token_id = ? AND e.log_id IS NULL
`

func (q *Queries) CountSuccessfulRequestTokenUses(ctx context.Context, tokenID string) (int64, error) {
	row := q.db.QueryRowContext(ctx, countSuccessfulRequestTokenUses, tokenID)
	var count int64
	err := row.Scan(&count)
	return count, err
}

const deleteRequestTokenLogsBefore = `
DELETE FROM request_token_logs
WHERE timestamp < ?
`

func (q *Queries) DeleteRequestTokenLogsBefore(ctx context.Context, timestamp int64) (int64, error) {
	result, err := q.db.ExecContext(ctx, deleteRequestTokenLogsBefore, timestamp)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
