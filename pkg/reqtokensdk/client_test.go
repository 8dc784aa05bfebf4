package reqtokensdk_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/aussiebroadwan/reqtoken/pkg/reqtokensdk"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateTokenSendsAdminBearer(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/tokens", r.URL.Path)
		assert.Equal(t, "Bearer secret-admin", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var req reqtokensdk.CreateTokenRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "consume", req.Scope)
		assert.Equal(t, 2, req.MaxUses)

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(reqtokensdk.CreateTokenResponse{ID: "01ABC", Token: "a.b.c"})
	}))
	t.Cleanup(srv.Close)

	client := reqtokensdk.NewSDKClient(srv.URL + "/").WithAdminToken("secret-admin")
	out, err := client.CreateToken(t.Context(), reqtokensdk.CreateTokenRequest{Scope: "consume", MaxUses: 2})
	require.NoError(t, err)
	require.Equal(t, "01ABC", out.ID)
	require.Equal(t, "a.b.c", out.Token)
}

func TestWithAdminTokenDoesNotMutateOriginal(t *testing.T) {
	t.Parallel()

	base := reqtokensdk.NewSDKClient("http://example.com")
	admin := base.WithAdminToken("x")
	require.Empty(t, base.AdminToken)
	require.Equal(t, "x", admin.AdminToken)
}

func TestJSONErrorsBecomeAPIErrors(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqtokensdk.ErrNotFound.WriteError(w)
	}))
	t.Cleanup(srv.Close)

	_, err := reqtokensdk.NewSDKClient(srv.URL).GetToken(t.Context(), "missing")
	var apiErr *reqtokensdk.APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, http.StatusNotFound, apiErr.StatusCode)
	require.Equal(t, reqtokensdk.ErrorCodeNotFound, apiErr.Code)
}

func TestPlainTextDenialBecomesForbidden(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "a.b.c", r.URL.Query().Get("rt"))
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte("Invalid URL token (code: abc)\n"))
	}))
	t.Cleanup(srv.Close)

	_, err := reqtokensdk.NewSDKClient(srv.URL).Consume(t.Context(), "a.b.c")
	var apiErr *reqtokensdk.APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, http.StatusForbidden, apiErr.StatusCode)
	require.Equal(t, reqtokensdk.ErrorCodeForbidden, apiErr.Code)
	require.Equal(t, "Invalid URL token (code: abc)", apiErr.Description)
}

func TestWhoAmIWithoutToken(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.URL.RawQuery)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{}`))
	}))
	t.Cleanup(srv.Close)

	out, err := reqtokensdk.NewSDKClient(srv.URL).WhoAmI(t.Context(), "")
	require.NoError(t, err)
	require.Empty(t, out.UserID)
}

func TestGetReadinessDegraded(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/readyz", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		_ = json.NewEncoder(w).Encode(reqtokensdk.HealthResponse{
			Status: "degraded",
			Checks: &reqtokensdk.HealthChecks{Database: "ok", Signer: "error: no signing secret loaded"},
		})
	}))
	t.Cleanup(srv.Close)

	health, err := reqtokensdk.NewSDKClient(srv.URL).GetReadiness(t.Context())
	require.NotNil(t, health)
	require.Equal(t, "degraded", health.Status)

	var notReady *reqtokensdk.NotReadyError
	require.ErrorAs(t, err, &notReady)
	require.Contains(t, err.Error(), "signer: error: no signing secret loaded")
	require.NotContains(t, err.Error(), "database")
}

func TestGetReadinessUnexpectedBody(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream unavailable", http.StatusServiceUnavailable)
	}))
	t.Cleanup(srv.Close)

	health, err := reqtokensdk.NewSDKClient(srv.URL).GetReadiness(t.Context())
	require.Nil(t, health)

	var apiErr *reqtokensdk.APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, http.StatusServiceUnavailable, apiErr.StatusCode)
	require.Equal(t, "upstream unavailable", apiErr.Description)
}
