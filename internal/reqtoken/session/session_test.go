package session_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/aussiebroadwan/reqtoken/internal/reqtoken/session"
	"github.com/aussiebroadwan/reqtoken/internal/reqtoken/store/drivers/sqlite"
	"github.com/aussiebroadwan/reqtoken/pkg/httpx"
	"github.com/stretchr/testify/require"
)

func newManager(t *testing.T) *session.Manager {
	t.Helper()

	s, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	require.NoError(t, s.ApplyMigrations())

	return &session.Manager{Store: s, TTL: time.Hour}
}

// serve runs fn inside the session middleware and returns the response.
func serve(m *session.Manager, cookie *http.Cookie, fn func(w http.ResponseWriter, r *http.Request)) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if cookie != nil {
		req.AddCookie(cookie)
	}
	rec := httptest.NewRecorder()
	m.Middleware(http.HandlerFunc(fn)).ServeHTTP(rec, req)
	return rec
}

func sessionCookie(rec *httptest.ResponseRecorder) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == session.CookieName {
			return c
		}
	}
	return nil
}

func TestNoSessionUntilWritten(t *testing.T) {
	m := newManager(t)

	rec := serve(m, nil, func(w http.ResponseWriter, r *http.Request) {
		require.Empty(t, m.ID(r.Context()))
		require.Empty(t, m.Stashed(r.Context()))
		require.NoError(t, m.ClearStash(r.Context()))
		require.True(t, httpx.IdentityFromContext(r.Context()).Anonymous())
	})
	require.Nil(t, sessionCookie(rec))
}

func TestPersistIdentity(t *testing.T) {
	m := newManager(t)

	rec := serve(m, nil, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, m.PersistIdentity(r.Context(), "alice"))
		require.NotEmpty(t, m.ID(r.Context()))
	})
	cookie := sessionCookie(rec)
	require.NotNil(t, cookie)
	require.True(t, cookie.HttpOnly)

	serve(m, cookie, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "alice", httpx.IdentityFromContext(r.Context()).UserID)
		require.Equal(t, cookie.Value, m.ID(r.Context()))
	})

	t.Run("login rotates the session id and keeps the stash", func(t *testing.T) {
		rec := serve(m, nil, func(w http.ResponseWriter, r *http.Request) {
			require.NoError(t, m.Stash(r.Context(), "a.b.c"))
		})
		anon := sessionCookie(rec)
		require.NotNil(t, anon)

		rec = serve(m, anon, func(w http.ResponseWriter, r *http.Request) {
			require.NoError(t, m.PersistIdentity(r.Context(), "bob"))
			require.NotEqual(t, anon.Value, m.ID(r.Context()))
			require.Equal(t, "a.b.c", m.Stashed(r.Context()))
		})
		rotated := sessionCookie(rec)
		require.NotNil(t, rotated)

		serve(m, anon, func(w http.ResponseWriter, r *http.Request) {
			require.Empty(t, m.ID(r.Context()))
			require.True(t, httpx.IdentityFromContext(r.Context()).Anonymous())
		})
		serve(m, rotated, func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, "bob", httpx.IdentityFromContext(r.Context()).UserID)
		})
	})
}

func TestStash(t *testing.T) {
	m := newManager(t)

	rec := serve(m, nil, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, m.Stash(r.Context(), "x.y.z"))
		require.Equal(t, "x.y.z", m.Stashed(r.Context()))
	})
	cookie := sessionCookie(rec)
	require.NotNil(t, cookie)

	serve(m, cookie, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "x.y.z", m.Stashed(r.Context()))
		require.True(t, httpx.IdentityFromContext(r.Context()).Anonymous())
		require.NoError(t, m.Stash(r.Context(), "1.2.3"))
	})

	serve(m, cookie, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "1.2.3", m.Stashed(r.Context()))
		require.NoError(t, m.ClearStash(r.Context()))
	})

	serve(m, cookie, func(w http.ResponseWriter, r *http.Request) {
		require.Empty(t, m.Stashed(r.Context()))
	})
}

func TestExpiredSessionIsIgnored(t *testing.T) {
	m := newManager(t)
	now := time.Now()
	m.Now = func() time.Time { return now }

	rec := serve(m, nil, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, m.PersistIdentity(r.Context(), "alice"))
	})
	cookie := sessionCookie(rec)

	m.Now = func() time.Time { return now.Add(2 * time.Hour) }
	serve(m, cookie, func(w http.ResponseWriter, r *http.Request) {
		require.True(t, httpx.IdentityFromContext(r.Context()).Anonymous())
	})
}

func TestExistingIdentityWins(t *testing.T) {
	m := newManager(t)

	rec := serve(m, nil, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, m.PersistIdentity(r.Context(), "alice"))
	})
	cookie := sessionCookie(rec)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookie)
	req = req.WithContext(httpx.WithIdentity(req.Context(), httpx.Identity{UserID: "carol"}))
	m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "carol", httpx.IdentityFromContext(r.Context()).UserID)
	})).ServeHTTP(httptest.NewRecorder(), req)
}

func TestWithoutMiddleware(t *testing.T) {
	m := newManager(t)
	require.ErrorIs(t, m.PersistIdentity(context.Background(), "alice"), session.ErrNoSession)
	require.ErrorIs(t, m.Stash(context.Background(), "x"), session.ErrNoSession)
	require.Empty(t, m.Stashed(context.Background()))
}
