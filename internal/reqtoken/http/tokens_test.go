package http_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/aussiebroadwan/reqtoken/internal/reqtoken/domain"
	"github.com/aussiebroadwan/reqtoken/pkg/reqtokensdk"
	"github.com/stretchr/testify/require"
)

func adminHeader() map[string]string {
	return map[string]string{
		"Authorization": "Bearer " + adminToken,
		"Content-Type":  "application/json",
	}
}

func (h *harness) create(t *testing.T, req reqtokensdk.CreateTokenRequest) reqtokensdk.CreateTokenResponse {
	t.Helper()

	body, err := json.Marshal(req)
	require.NoError(t, err)

	rec := h.do(request{method: http.MethodPost, target: "/v1/tokens", body: bytes.NewReader(body), header: adminHeader()})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[reqtokensdk.CreateTokenResponse](t, rec)
}

func TestAdminRequiresBearer(t *testing.T) {
	h := newHarness(t)

	rec := h.do(request{method: http.MethodPost, target: "/v1/tokens", body: bytes.NewReader([]byte(`{"scope":"x"}`))})
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = h.do(request{
		target: "/v1/tokens/01HZZZZZZZZZZZZZZZZZZZZZZZ",
		header: map[string]string{"Authorization": "Bearer wrong"},
	})
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAdminTokenLifecycle(t *testing.T) {
	h := newHarness(t)

	created := h.create(t, reqtokensdk.CreateTokenRequest{
		Scope:     "consume",
		UserID:    "alice",
		LoginMode: "r",
		MaxUses:   3,
		Data:      json.RawMessage(`{"order":7}`),
		URL:       "https://example.com/v1/consume?page=2&rt=stale",
	})
	require.NotEmpty(t, created.ID)
	require.NotEmpty(t, created.Token)

	var claims map[string]any
	require.NoError(t, json.Unmarshal(created.Claims, &claims))
	require.Equal(t, created.ID, claims["jti"])
	require.Equal(t, "consume", claims["sub"])
	require.Equal(t, "r", claims["mod"])
	require.Equal(t, "alice", claims["aud"])
	require.NotContains(t, claims, "data", "data is never signed")

	u, err := url.Parse(created.URL)
	require.NoError(t, err)
	require.Equal(t, "2", u.Query().Get("page"))
	require.Equal(t, created.Token, u.Query().Get("rt"))

	rec := h.do(request{target: "/v1/consume?rt=" + created.Token})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = h.do(request{target: "/v1/tokens/" + created.ID, header: adminHeader()})
	require.Equal(t, http.StatusOK, rec.Code)
	state := decode[reqtokensdk.TokenState](t, rec)
	require.Equal(t, "REQUEST", state.LoginMode)
	require.Equal(t, 1, state.UsedToDate)
	require.Equal(t, 1, state.SuccessfulUses)
	require.Equal(t, 2, state.RemainingUses)
	require.True(t, state.CurrentlyActive)
	require.JSONEq(t, `{"order":7}`, string(state.Data))

	rec = h.do(request{method: http.MethodPost, target: "/v1/tokens/" + created.ID + "/expire", header: adminHeader()})
	require.Equal(t, http.StatusOK, rec.Code)
	state = decode[reqtokensdk.TokenState](t, rec)
	require.False(t, state.CurrentlyActive)
	require.NotNil(t, state.ExpiresAt)
	require.True(t, state.ExpiresAt.Before(time.Now()))

	rec = h.do(request{target: "/v1/consume?rt=" + created.Token})
	require.Equal(t, http.StatusForbidden, rec.Code)

	rec = h.do(request{target: "/v1/tokens/" + created.ID + "/logs", header: adminHeader()})
	require.Equal(t, http.StatusOK, rec.Code)
	logs := decode[reqtokensdk.ListUsageLogsResponse](t, rec).Logs
	require.Len(t, logs, 2)
	require.Equal(t, "alice", logs[0].UserID)
	require.Nil(t, logs[0].Error)
	require.Equal(t, http.StatusForbidden, logs[1].StatusCode)
	require.NotNil(t, logs[1].Error)
	require.Equal(t, domain.ClassTokenRequired, logs[1].Error.Classification)
}

func TestAdminCreateValidation(t *testing.T) {
	h := newHarness(t)

	cases := map[string]string{
		"missing scope":      `{"user_id":"a"}`,
		"unknown login mode": `{"scope":"x","login_mode":"sometimes"}`,
		"login without user": `{"scope":"x","login_mode":"SESSION"}`,
		"negative max uses":  `{"scope":"x","max_uses":-1}`,
		"inverted window":    `{"scope":"x","not_before":"2030-01-02T00:00:00Z","expires_at":"2030-01-01T00:00:00Z"}`,
		"unknown field":      `{"scope":"x","colour":"blue"}`,
		"not json":           `scope=x`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			rec := h.do(request{method: http.MethodPost, target: "/v1/tokens", body: bytes.NewReader([]byte(body)), header: adminHeader()})
			require.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
			require.Equal(t, reqtokensdk.ErrorCodeInvalidRequest, decode[reqtokensdk.ErrorResponse](t, rec).Error)
		})
	}
}

func TestAdminSessionDefaultExpiry(t *testing.T) {
	h := newHarness(t)

	created := h.create(t, reqtokensdk.CreateTokenRequest{Scope: "x", UserID: "alice", LoginMode: "SESSION"})

	rec := h.do(request{target: "/v1/tokens/" + created.ID, header: adminHeader()})
	require.Equal(t, http.StatusOK, rec.Code)
	state := decode[reqtokensdk.TokenState](t, rec)
	require.NotNil(t, state.ExpiresAt)
	require.NotNil(t, state.IssuedAt)
	require.Equal(t, 10*time.Minute, state.ExpiresAt.Sub(*state.IssuedAt))
}

func TestAdminUnknownToken(t *testing.T) {
	h := newHarness(t)

	for _, target := range []string{
		"/v1/tokens/01HZZZZZZZZZZZZZZZZZZZZZZZ",
		"/v1/tokens/not-a-ulid/logs",
	} {
		rec := h.do(request{target: target, header: adminHeader()})
		require.Equal(t, http.StatusNotFound, rec.Code, target)
	}

	rec := h.do(request{method: http.MethodPost, target: "/v1/tokens/01HZZZZZZZZZZZZZZZZZZZZZZZ/expire", header: adminHeader()})
	require.Equal(t, http.StatusNotFound, rec.Code)
}
