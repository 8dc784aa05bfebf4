package sqlite_test

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/aussiebroadwan/reqtoken/internal/reqtoken/domain"
	"github.com/aussiebroadwan/reqtoken/internal/reqtoken/store"
	"github.com/aussiebroadwan/reqtoken/internal/reqtoken/store/drivers/sqlite"
	"github.com/aussiebroadwan/reqtoken/pkg/idx"
	"github.com/stretchr/testify/require"
)

func newStore(t *testing.T) *sqlite.Store {
	t.Helper()

	s, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	require.NoError(t, s.ApplyMigrations())
	return s
}

func newToken(t *testing.T, s store.Store, mutate func(*domain.Token)) domain.Token {
	t.Helper()

	now := time.Now().UTC().Truncate(time.Microsecond)
	tok := domain.Token{
		ID:        idx.New().String(),
		Scope:     "foo",
		LoginMode: domain.LoginModeNone,
		MaxUses:   2,
		IssuedAt:  &now,
	}
	if mutate != nil {
		mutate(&tok)
	}
	require.NoError(t, s.Tokens().CreateToken(context.Background(), tok))
	return tok
}

func TestMigrationsAreIdempotent(t *testing.T) {
	s := newStore(t)
	require.NoError(t, s.ApplyMigrations())
	require.NoError(t, s.Ping(context.Background()))
}

func TestTokens(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	t.Run("create and get round trips every field", func(t *testing.T) {
		nbf := time.Now().UTC().Truncate(time.Microsecond)
		exp := nbf.Add(time.Hour)
		created := newToken(t, s, func(tok *domain.Token) {
			tok.UserID = "user-1"
			tok.LoginMode = domain.LoginModeRequest
			tok.NotBefore = &nbf
			tok.ExpiresAt = &exp
			tok.MaxUses = 7
			tok.Data = json.RawMessage(`{"invoice":42}`)
			tok.Stash = true
		})

		got, err := s.Tokens().GetToken(ctx, created.ID)
		require.NoError(t, err)
		require.Equal(t, created.ID, got.ID)
		require.Equal(t, "foo", got.Scope)
		require.Equal(t, "user-1", got.UserID)
		require.Equal(t, domain.LoginModeRequest, got.LoginMode)
		require.True(t, nbf.Equal(*got.NotBefore))
		require.True(t, exp.Equal(*got.ExpiresAt))
		require.True(t, created.IssuedAt.Equal(*got.IssuedAt))
		require.Equal(t, 7, got.MaxUses)
		require.Equal(t, 0, got.UsedToDate)
		require.JSONEq(t, `{"invoice":42}`, string(got.Data))
		require.True(t, got.Stash)
	})

	t.Run("optional fields stay empty", func(t *testing.T) {
		created := newToken(t, s, nil)

		got, err := s.Tokens().GetToken(ctx, created.ID)
		require.NoError(t, err)
		require.Empty(t, got.UserID)
		require.Nil(t, got.NotBefore)
		require.Nil(t, got.ExpiresAt)
		require.Nil(t, got.Data)
		require.False(t, got.Stash)
	})

	t.Run("missing token", func(t *testing.T) {
		_, err := s.Tokens().GetToken(ctx, idx.New().String())
		require.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("duplicate id", func(t *testing.T) {
		created := newToken(t, s, nil)
		err := s.Tokens().CreateToken(ctx, created)
		require.ErrorIs(t, err, store.ErrAlreadyExists)
	})

	t.Run("binding modes need a user at the schema level", func(t *testing.T) {
		now := time.Now()
		err := s.Tokens().CreateToken(ctx, domain.Token{
			ID: idx.New().String(), Scope: "foo", LoginMode: domain.LoginModeSession, MaxUses: 1, IssuedAt: &now,
		})
		require.Error(t, err)
	})

	t.Run("increment returns the new count", func(t *testing.T) {
		created := newToken(t, s, nil)

		n, err := s.Tokens().IncrementUsedCount(ctx, created.ID)
		require.NoError(t, err)
		require.Equal(t, 1, n)

		n, err = s.Tokens().IncrementUsedCount(ctx, created.ID)
		require.NoError(t, err)
		require.Equal(t, 2, n)

		// Plain increments are not capped.
		n, err = s.Tokens().IncrementUsedCount(ctx, created.ID)
		require.NoError(t, err)
		require.Equal(t, 3, n)

		_, err = s.Tokens().IncrementUsedCount(ctx, idx.New().String())
		require.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("claim use stops at the cap", func(t *testing.T) {
		created := newToken(t, s, nil)

		n, err := s.Tokens().ClaimUse(ctx, created.ID)
		require.NoError(t, err)
		require.Equal(t, 1, n)

		n, err = s.Tokens().ClaimUse(ctx, created.ID)
		require.NoError(t, err)
		require.Equal(t, 2, n)

		_, err = s.Tokens().ClaimUse(ctx, created.ID)
		require.ErrorIs(t, err, store.ErrExhausted)

		got, err := s.Tokens().GetToken(ctx, created.ID)
		require.NoError(t, err)
		require.Equal(t, 2, got.UsedToDate)
	})

	t.Run("set expiration", func(t *testing.T) {
		created := newToken(t, s, nil)
		at := time.Now().Add(-time.Microsecond)

		require.NoError(t, s.Tokens().SetExpiration(ctx, created.ID, at))

		got, err := s.Tokens().GetToken(ctx, created.ID)
		require.NoError(t, err)
		require.Equal(t, at.UnixMicro(), got.ExpiresAt.UnixMicro())

		require.ErrorIs(t, s.Tokens().SetExpiration(ctx, "nope", at), store.ErrNotFound)
	})
}

func TestConcurrentIncrementsAreNotLost(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	tok := newToken(t, s, func(tok *domain.Token) { tok.MaxUses = 100 })

	var wg sync.WaitGroup
	errs := make(chan error, 50)
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.Tokens().IncrementUsedCount(ctx, tok.ID)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}

	got, err := s.Tokens().GetToken(ctx, tok.ID)
	require.NoError(t, err)
	require.Equal(t, 50, got.UsedToDate)
}

func TestConcurrentClaimsNeverOvershoot(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	tok := newToken(t, s, func(tok *domain.Token) { tok.MaxUses = 1 })

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		claimed int
	)
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.Tokens().ClaimUse(ctx, tok.ID); err == nil {
				mu.Lock()
				claimed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	require.Equal(t, 1, claimed)
	got, err := s.Tokens().GetToken(ctx, tok.ID)
	require.NoError(t, err)
	require.Equal(t, 1, got.UsedToDate)
}

func TestUsageLogs(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	tok := newToken(t, s, nil)

	base := time.Now().UTC().Truncate(time.Microsecond)
	ok := domain.UsageLog{
		ID: idx.New().String(), TokenID: tok.ID, UserID: "user-1", ClientIP: "10.0.0.1",
		UserAgent: "curl/8", StatusCode: 200, Timestamp: base,
	}
	failed := domain.UsageLog{
		ID: idx.New().String(), TokenID: tok.ID, UserAgent: "unknown", StatusCode: 403,
		Timestamp: base.Add(time.Second),
		Error:     &domain.ErrorLog{Classification: domain.ClassScopeMismatch, Message: "scope mismatch"},
	}

	require.NoError(t, s.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.UsageLogs().CreateUsageLog(ctx, ok); err != nil {
			return err
		}
		return tx.UsageLogs().CreateUsageLog(ctx, failed)
	}))

	logs, err := s.UsageLogs().ListUsageLogs(ctx, tok.ID)
	require.NoError(t, err)
	require.Len(t, logs, 2)

	require.Equal(t, ok.ID, logs[0].ID)
	require.Equal(t, "user-1", logs[0].UserID)
	require.Equal(t, "10.0.0.1", logs[0].ClientIP)
	require.Equal(t, 200, logs[0].StatusCode)
	require.True(t, base.Equal(logs[0].Timestamp))
	require.True(t, logs[0].Succeeded())

	require.Equal(t, failed.ID, logs[1].ID)
	require.Empty(t, logs[1].UserID)
	require.Empty(t, logs[1].ClientIP)
	require.NotNil(t, logs[1].Error)
	require.Equal(t, domain.ClassScopeMismatch, logs[1].Error.Classification)

	n, err := s.UsageLogs().CountSuccessfulUses(ctx, tok.ID)
	require.NoError(t, err)
	require.Equal(t, 1, n)

	t.Run("log needs an existing token", func(t *testing.T) {
		err := s.UsageLogs().CreateUsageLog(ctx, domain.UsageLog{
			ID: idx.New().String(), TokenID: "missing", UserAgent: "x", StatusCode: 200, Timestamp: base,
		})
		require.Error(t, err)
	})

	t.Run("retention delete cascades to error rows", func(t *testing.T) {
		deleted, err := s.UsageLogs().DeleteUsageLogsBefore(ctx, base.Add(2*time.Second))
		require.NoError(t, err)
		require.EqualValues(t, 2, deleted)

		logs, err := s.UsageLogs().ListUsageLogs(ctx, tok.ID)
		require.NoError(t, err)
		require.Empty(t, logs)
	})
}

func TestWithTxRollsBack(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	tok := newToken(t, s, nil)

	err := s.WithTx(ctx, func(tx store.Tx) error {
		if _, err := tx.Tokens().IncrementUsedCount(ctx, tok.ID); err != nil {
			return err
		}
		return store.ErrExhausted
	})
	require.ErrorIs(t, err, store.ErrExhausted)

	got, err := s.Tokens().GetToken(ctx, tok.ID)
	require.NoError(t, err)
	require.Equal(t, 0, got.UsedToDate)
}

func TestSessions(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	now := time.Now().UTC().Truncate(time.Microsecond)

	sess := domain.Session{ID: "s-1", ExpiresAt: now.Add(time.Hour), CreatedAt: now, UpdatedAt: now}
	require.NoError(t, s.Sessions().CreateSession(ctx, sess))
	require.ErrorIs(t, s.Sessions().CreateSession(ctx, sess), store.ErrAlreadyExists)

	got, err := s.Sessions().GetSession(ctx, "s-1", now)
	require.NoError(t, err)
	require.Empty(t, got.UserID)
	require.Empty(t, got.Stash)
	require.True(t, sess.ExpiresAt.Equal(got.ExpiresAt))

	require.NoError(t, s.Sessions().SetSessionUser(ctx, "s-1", "user-1"))
	require.NoError(t, s.Sessions().SetSessionStash(ctx, "s-1", "a.b.c"))

	got, err = s.Sessions().GetSession(ctx, "s-1", now)
	require.NoError(t, err)
	require.Equal(t, "user-1", got.UserID)
	require.Equal(t, "a.b.c", got.Stash)

	require.NoError(t, s.Sessions().SetSessionStash(ctx, "s-1", ""))
	got, err = s.Sessions().GetSession(ctx, "s-1", now)
	require.NoError(t, err)
	require.Empty(t, got.Stash)

	require.ErrorIs(t, s.Sessions().SetSessionUser(ctx, "nope", "x"), store.ErrNotFound)

	t.Run("expired sessions are invisible and purged", func(t *testing.T) {
		_, err := s.Sessions().GetSession(ctx, "s-1", now.Add(2*time.Hour))
		require.ErrorIs(t, err, store.ErrNotFound)

		n, err := s.Sessions().DeleteExpiredSessions(ctx, now.Add(2*time.Hour))
		require.NoError(t, err)
		require.EqualValues(t, 1, n)
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, s.Sessions().CreateSession(ctx, domain.Session{ID: "s-2", ExpiresAt: now.Add(time.Hour), CreatedAt: now, UpdatedAt: now}))
		require.NoError(t, s.Sessions().DeleteSession(ctx, "s-2"))
		_, err := s.Sessions().GetSession(ctx, "s-2", now)
		require.ErrorIs(t, err, store.ErrNotFound)
	})
}
