package slogx_test

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/aussiebroadwan/reqtoken/pkg/slogx"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	require.Equal(t, slog.LevelDebug, slogx.ParseLevel("DEBUG"))
	require.Equal(t, slog.LevelWarn, slogx.ParseLevel("warning"))
	require.Equal(t, slog.LevelError, slogx.ParseLevel("error"))
	require.Equal(t, slog.LevelInfo, slogx.ParseLevel("nonsense"))
}

func TestHTTPMiddleware(t *testing.T) {
	var buf bytes.Buffer
	logger := slogx.New(slogx.Config{Service: "test", Output: &buf})

	var seenReqID string
	h := slogx.HTTPMiddleware(logger, "rt")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seenReqID = slogx.RequestIDFromContext(r.Context())
		require.NotSame(t, slog.Default(), slogx.FromContext(r.Context()))
		w.WriteHeader(http.StatusTeapot)
	}))

	req := httptest.NewRequest(http.MethodGet, "/v1/whoami?rt=secret&page=2", nil)
	req.Header.Set("X-Request-ID", "req-123")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, "req-123", seenReqID)
	require.Equal(t, "req-123", rec.Header().Get(slogx.RequestIDHeader))

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	require.Equal(t, "http_request", line["msg"])
	require.Equal(t, float64(http.StatusTeapot), line["status"])
	require.Equal(t, "/v1/whoami", line["path"])
	require.Equal(t, "page=2&rt=REDACTED", line["query"])
	require.NotContains(t, buf.String(), "secret")
}

func TestHTTPMiddlewareAssignsRequestID(t *testing.T) {
	logger := slogx.New(slogx.Config{Service: "test", Output: &bytes.Buffer{}})

	var seenReqID string
	h := slogx.HTTPMiddleware(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seenReqID = slogx.RequestIDFromContext(r.Context())
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/livez", nil))

	require.Len(t, seenReqID, 26)
	require.Equal(t, seenReqID, rec.Header().Get(slogx.RequestIDHeader))
}
