package gen

import (
	"database/sql"
)

type RequestToken struct {
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

type RequestTokenLog struct {
	ID         string
	TokenID    string
	UserID     sql.NullString
	ClientIp   sql.NullString
	UserAgent  string
	StatusCode int64
	Timestamp  int64
}

type RequestTokenError struct {
	LogID          string
	Classification string
	Message        string
}

type Session struct {
	ID        string
	UserID    sql.NullString
	Stash     sql.NullString
	ExpiresAt int64
	CreatedAt int64
	UpdatedAt int64
}
