package store

import (
	"context"
	"errors"
	"time"

	"github.com/aussiebroadwan/reqtoken/internal/reqtoken/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")

	// ErrExhausted is returned by ClaimUse when the usage cap has already
	// been reached.
	ErrExhausted = errors.New("store: usage cap reached")
)

// Store is the root data access interface. Concrete drivers implement it and
// expose sub-repositories so callers cannot open a transaction inside a
// transaction.
type Store interface {
	Tokens() Tokens
	UsageLogs() UsageLogs
	Sessions() Sessions

	ApplyMigrations() error

	// Tx starts a read/write transaction and returns a Tx-scoped Store.
	// The caller MUST call Commit() or Rollback() on the returned Tx.
	Tx(ctx context.Context) (Tx, error)

	// WithTx executes fn within a transaction. If fn returns an error the
	// transaction is rolled back, otherwise it is committed.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	Close() error

	// Ping verifies the database connection is still alive.
	Ping(ctx context.Context) error
}

// Tx is a transactional store. It embeds the same repos but adds Commit/Rollback.
type Tx interface {
	Store
	Commit() error
	Rollback() error
}

type Tokens interface {
	// CreateToken inserts a token. The id and issued_at must already be set.
	CreateToken(ctx context.Context, t domain.Token) error

	// GetToken returns a token by id.
	GetToken(ctx context.Context, id string) (domain.Token, error)

	// IncrementUsedCount adds one to used_to_date in a single statement and
	// returns the new value.
	IncrementUsedCount(ctx context.Context, id string) (int, error)

	// ClaimUse increments used_to_date only while it is below max_uses.
	// Returns ErrExhausted when no use was left.
	ClaimUse(ctx context.Context, id string) (int, error)

	// SetExpiration overwrites expires_at.
	SetExpiration(ctx context.Context, id string, at time.Time) error
}

type UsageLogs interface {
	// CreateUsageLog appends a log row, plus its error row when l.Error is set.
	// Run it inside a transaction when both rows are written.
	CreateUsageLog(ctx context.Context, l domain.UsageLog) error

	// ListUsageLogs returns every attempt for a token, oldest first.
	ListUsageLogs(ctx context.Context, tokenID string) ([]domain.UsageLog, error)

	// CountSuccessfulUses counts log rows without an error row.
	CountSuccessfulUses(ctx context.Context, tokenID string) (int, error)

	// DeleteUsageLogsBefore is housekeeping, error rows cascade.
	DeleteUsageLogsBefore(ctx context.Context, before time.Time) (int64, error)
}

type Sessions interface {
	CreateSession(ctx context.Context, s domain.Session) error

	// GetSession returns a session that has not expired at now.
	GetSession(ctx context.Context, id string, now time.Time) (domain.Session, error)

	// SetSessionUser records the logged in user. An empty id logs out.
	SetSessionUser(ctx context.Context, id, userID string) error

	// SetSessionStash stores a raw token. An empty value clears it.
	SetSessionStash(ctx context.Context, id, stash string) error

	DeleteSession(ctx context.Context, id string) error

	// DeleteExpiredSessions is housekeeping.
	DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error)
}
