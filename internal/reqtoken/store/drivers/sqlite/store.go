package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/aussiebroadwan/reqtoken/internal/reqtoken/domain"
	"github.com/aussiebroadwan/reqtoken/internal/reqtoken/store"
	"github.com/aussiebroadwan/reqtoken/internal/reqtoken/store/drivers/sqlite/gen"
	_ "modernc.org/sqlite"
)

type Store struct {
	db  *sql.DB
	q   *gen.Queries
	dsn string
}

func NewStore(dsn string) (*Store, error) {
	memory := strings.Contains(dsn, ":memory:")
	if !memory && !strings.Contains(dsn, "?") {
		// Pragmas in the DSN apply to every pooled connection.
		dsn += "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}

	// Every new connection to :memory: is a new empty database.
	if memory {
		db.SetMaxOpenConns(1)
	}

	// Enforce FKs
	if _, err := db.ExecContext(context.Background(), `PRAGMA foreign_keys = ON;`); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{
		db:  db,
		q:   gen.New(db),
		dsn: dsn,
	}, nil
}

func (s *Store) Close() error { return s.db.Close() }

// Ping verifies the database connection is still alive.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Tx starts a read/write transaction and returns a Tx-scoped Store.
func (s *Store) Tx(ctx context.Context) (store.Tx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return newTx(tx), nil
}

// WithTx executes fn within a transaction, automatically handling commit/rollback.
func (s *Store) WithTx(ctx context.Context, fn func(tx store.Tx) error) error {
	tx, err := s.Tx(ctx)
	if err != nil {
		return err
	}

	defer func() {
		_ = tx.Rollback() // safe to call even after commit
	}()

	if err := fn(tx); err != nil {
		return err
	}

	return tx.Commit()
}

func (s *Store) Tokens() store.Tokens       { return &tokensRepo{q: s.q} }
func (s *Store) UsageLogs() store.UsageLogs { return &usageLogsRepo{q: s.q} }
func (s *Store) Sessions() store.Sessions   { return &sessionsRepo{q: s.q} }

func mapNotFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return store.ErrNotFound
	}
	return err
}

// mapAlreadyExists turns primary key violations into store.ErrAlreadyExists.
func mapAlreadyExists(err error) error {
	if err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed") {
		return store.ErrAlreadyExists
	}
	return err
}

func mapNullString(ns sql.NullString) string {
	if ns.Valid {
		return ns.String
	}
	return ""
}

func mapStringNull(s string) sql.NullString {
	if s == "" {
		return sql.NullString{Valid: false}
	}
	return sql.NullString{String: s, Valid: true}
}

// Times are stored as unix microseconds in UTC.

func toMicros(t time.Time) int64 {
	return t.UnixMicro()
}

func fromMicros(us int64) time.Time {
	return time.UnixMicro(us).UTC()
}

func mapNullTimePtr(n sql.NullInt64) *time.Time {
	if n.Valid {
		val := fromMicros(n.Int64)
		return &val
	}
	return nil
}

func mapOptionalTime(t *time.Time) sql.NullInt64 {
	if t == nil {
		return sql.NullInt64{Valid: false}
	}
	return sql.NullInt64{Int64: toMicros(*t), Valid: true}
}

func mapToken(row gen.RequestToken) domain.Token {
	issuedAt := fromMicros(row.IssuedAt)

	var data json.RawMessage
	if row.Data.Valid {
		data = json.RawMessage(row.Data.String)
	}

	return domain.Token{
		ID:         row.ID,
		Scope:      row.Scope,
		UserID:     mapNullString(row.UserID),
		LoginMode:  domain.LoginMode(row.LoginMode),
		NotBefore:  mapNullTimePtr(row.NotBefore),
		ExpiresAt:  mapNullTimePtr(row.ExpiresAt),
		MaxUses:    int(row.MaxUses),
		UsedToDate: int(row.UsedToDate),
		Data:       data,
		IssuedAt:   &issuedAt,
		Stash:      row.Stash,
	}
}

func mapSession(row gen.Session) domain.Session {
	return domain.Session{
		ID:        row.ID,
		UserID:    mapNullString(row.UserID),
		Stash:     mapNullString(row.Stash),
		ExpiresAt: fromMicros(row.ExpiresAt),
		CreatedAt: fromMicros(row.CreatedAt),
		UpdatedAt: fromMicros(row.UpdatedAt),
	}
}
