// Package session keeps a small server-side session behind a cookie. It is
// the identity subsystem request tokens log users into and the place a
// validated token can be stashed for reuse.
package session

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/aussiebroadwan/reqtoken/internal/reqtoken/domain"
	"github.com/aussiebroadwan/reqtoken/internal/reqtoken/store"
	"github.com/aussiebroadwan/reqtoken/pkg/httpx"
	"github.com/aussiebroadwan/reqtoken/pkg/slogx"
	"github.com/google/uuid"
)

const (
	CookieName = "rt_session"
	DefaultTTL = 24 * time.Hour
)

var ErrNoSession = errors.New("session: middleware not installed")

type ctxKey struct{}

// handle is the per-request view of the session. The row is only created
// once something needs to be written.
type handle struct {
	w    http.ResponseWriter
	sess *domain.Session
}

// Manager loads and writes sessions.
type Manager struct {
	Store  store.Store
	TTL    time.Duration
	Secure bool // set the Secure flag on the cookie
	Now    func() time.Time
}

func (m *Manager) now() time.Time {
	if m.Now != nil {
		return m.Now()
	}
	return time.Now()
}

func (m *Manager) ttl() time.Duration {
	if m.TTL <= 0 {
		return DefaultTTL
	}
	return m.TTL
}

// Middleware loads the session named by the cookie. A session carrying a
// user makes that user the caller identity.
func (m *Manager) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		h := &handle{w: w}

		if c, err := r.Cookie(CookieName); err == nil && c.Value != "" {
			sess, err := m.Store.Sessions().GetSession(ctx, c.Value, m.now())
			switch {
			case err == nil:
				h.sess = &sess
			case errors.Is(err, store.ErrNotFound):
				// expired or unknown, a new one is created on demand
			default:
				slogx.FromContext(ctx).Error("failed to load session", slog.Any("error", err))
			}
		}

		ctx = context.WithValue(ctx, ctxKey{}, h)
		if h.sess != nil && h.sess.UserID != "" && httpx.IdentityFromContext(ctx).Anonymous() {
			ctx = httpx.WithIdentity(ctx, httpx.Identity{UserID: h.sess.UserID})
		}

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func fromContext(ctx context.Context) (*handle, error) {
	h, ok := ctx.Value(ctxKey{}).(*handle)
	if !ok {
		return nil, ErrNoSession
	}
	return h, nil
}

// ID returns the current session id, empty when there is none yet.
func (m *Manager) ID(ctx context.Context) string {
	h, err := fromContext(ctx)
	if err != nil || h.sess == nil {
		return ""
	}
	return h.sess.ID
}

// PersistIdentity logs userID into the session. The session id is rotated
// so an id handed out before login cannot be reused afterwards.
func (m *Manager) PersistIdentity(ctx context.Context, userID string) error {
	h, err := fromContext(ctx)
	if err != nil {
		return err
	}

	var stash string
	if h.sess != nil {
		stash = h.sess.Stash
		if err := m.Store.Sessions().DeleteSession(ctx, h.sess.ID); err != nil {
			return err
		}
		h.sess = nil
	}

	sess, err := m.create(ctx, h, userID, stash)
	if err != nil {
		return err
	}
	h.sess = &sess
	return nil
}

// Stash keeps raw in the session for reuse on later requests.
func (m *Manager) Stash(ctx context.Context, raw string) error {
	h, err := fromContext(ctx)
	if err != nil {
		return err
	}

	if h.sess == nil {
		sess, err := m.create(ctx, h, "", raw)
		if err != nil {
			return err
		}
		h.sess = &sess
		return nil
	}

	if err := m.Store.Sessions().SetSessionStash(ctx, h.sess.ID, raw); err != nil {
		return err
	}
	h.sess.Stash = raw
	return nil
}

// Stashed returns the stashed token, if any.
func (m *Manager) Stashed(ctx context.Context) string {
	h, err := fromContext(ctx)
	if err != nil || h.sess == nil {
		return ""
	}
	return h.sess.Stash
}

// ClearStash drops the stashed token.
func (m *Manager) ClearStash(ctx context.Context) error {
	h, err := fromContext(ctx)
	if err != nil || h.sess == nil || h.sess.Stash == "" {
		return err
	}

	if err := m.Store.Sessions().SetSessionStash(ctx, h.sess.ID, ""); err != nil {
		return err
	}
	h.sess.Stash = ""
	return nil
}

func (m *Manager) create(ctx context.Context, h *handle, userID, stash string) (domain.Session, error) {
	now := m.now().UTC()
	sess := domain.Session{
		ID:        uuid.NewString(),
		UserID:    userID,
		Stash:     stash,
		ExpiresAt: now.Add(m.ttl()),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := m.Store.Sessions().CreateSession(ctx, sess); err != nil {
		return domain.Session{}, err
	}

	http.SetCookie(h.w, &http.Cookie{
		Name:     CookieName,
		Value:    sess.ID,
		Path:     "/",
		Expires:  sess.ExpiresAt,
		HttpOnly: true,
		Secure:   m.Secure,
		SameSite: http.SameSiteLaxMode,
	})
	return sess, nil
}
