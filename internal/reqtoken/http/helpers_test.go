package http_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/aussiebroadwan/reqtoken/internal/reqtoken/domain"
	reqhttp "github.com/aussiebroadwan/reqtoken/internal/reqtoken/http"
	"github.com/aussiebroadwan/reqtoken/internal/reqtoken/service"
	"github.com/aussiebroadwan/reqtoken/internal/reqtoken/session"
	"github.com/aussiebroadwan/reqtoken/internal/reqtoken/store/drivers/sqlite"
	"github.com/aussiebroadwan/reqtoken/pkg/jwtx"
	"github.com/aussiebroadwan/reqtoken/pkg/slogx"
	"github.com/stretchr/testify/require"
)

const adminToken = "test-admin-token"

type harness struct {
	store    *sqlite.Store
	keys     *jwtx.KeySet
	tokens   *service.TokenService
	sessions *session.Manager
	pipeline *reqhttp.Pipeline
	router   *reqhttp.Router
}

func newHarness(t *testing.T, opts ...func(*reqhttp.Pipeline)) *harness {
	t.Helper()

	s, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	require.NoError(t, s.ApplyMigrations())

	keys := jwtx.NewKeySet()
	require.NoError(t, keys.Add("k1", []byte("http-test-shared-secret")))
	codec := jwtx.NewCodec(keys)

	tokens := &service.TokenService{
		Store:          s,
		Signer:         codec,
		DefaultMaxUses: 10,
		SessionExpiry:  10 * time.Minute,
		QueryArg:       "rt",
	}
	sessions := &session.Manager{Store: s, TTL: time.Hour}

	p := &reqhttp.Pipeline{
		Verifier: &service.Verifier{Codec: codec, Tokens: tokens},
		Binder:   &service.Binder{Persister: sessions},
		Recorder: &service.Recorder{Store: s, LogErrors: true},
		Tokens:   tokens,
		Session:  sessions,
		Denial:   reqhttp.NewDenialRenderer("", slogx.Discard()),
		QueryArg: "rt",
	}
	for _, opt := range opts {
		opt(p)
	}

	router := reqhttp.NewRouter(keys, "test", adminToken, s, slogx.Discard())
	router.TokenService = tokens
	router.Sessions = sessions
	router.Pipeline = p
	router.ApplyRoutes()

	return &harness{
		store:    s,
		keys:     keys,
		tokens:   tokens,
		sessions: sessions,
		pipeline: p,
		router:   router,
	}
}

// issue creates a token and returns it with its encoded form.
func (h *harness) issue(t *testing.T, p service.CreateParams) (domain.Token, string) {
	t.Helper()

	tok, err := h.tokens.Create(context.Background(), p)
	require.NoError(t, err)
	raw, err := h.tokens.Encode(tok)
	require.NoError(t, err)
	return tok, raw
}

type request struct {
	method  string
	target  string
	body    io.Reader
	header  map[string]string
	cookies []*http.Cookie
}

func (h *harness) do(req request) *httptest.ResponseRecorder {
	method := req.method
	if method == "" {
		method = http.MethodGet
	}
	r := httptest.NewRequest(method, req.target, req.body)
	for k, v := range req.header {
		r.Header.Set(k, v)
	}
	for _, c := range req.cookies {
		r.AddCookie(c)
	}

	rec := httptest.NewRecorder()
	h.router.ServeHTTP(rec, r)
	return rec
}

func (h *harness) logs(t *testing.T, id string) []domain.UsageLog {
	t.Helper()
	logs, err := h.store.UsageLogs().ListUsageLogs(context.Background(), id)
	require.NoError(t, err)
	return logs
}

func (h *harness) stored(t *testing.T, id string) domain.Token {
	t.Helper()
	tok, err := h.tokens.Lookup(context.Background(), id)
	require.NoError(t, err)
	return tok
}

func sessionCookie(rec *httptest.ResponseRecorder) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == session.CookieName {
			return c
		}
	}
	return nil
}

func withToken(path, raw string) string {
	return path + "?rt=" + raw
}

// login creates a session for userID and returns its cookie.
func (h *harness) login(t *testing.T, userID string) *http.Cookie {
	t.Helper()

	now := time.Now().UTC()
	sess := domain.Session{
		ID:        "sess-" + userID,
		UserID:    userID,
		ExpiresAt: now.Add(time.Hour),
		CreatedAt: now,
		UpdatedAt: now,
	}
	require.NoError(t, h.store.Sessions().CreateSession(context.Background(), sess))
	return &http.Cookie{Name: session.CookieName, Value: sess.ID}
}

// withSession runs r through the session middleware so handlers built
// outside the router still have a session to work with.
func (h *harness) withSession(r *http.Request) *http.Request {
	var out *http.Request
	h.sessions.Middleware(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		out = r
	})).ServeHTTP(httptest.NewRecorder(), r)
	return out
}
