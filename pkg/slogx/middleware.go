package slogx

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/aussiebroadwan/reqtoken/pkg/idx"
)

// RequestIDHeader is read from incoming requests and echoed on responses so
// a denial code can be matched to its log lines.
const RequestIDHeader = "X-Request-ID"

const redacted = "REDACTED"

// HTTPMiddleware writes one http_request line per request and attaches a
// request scoped logger to the context. Query arguments named in redact are
// masked in the logged query, tokenised links must not end up in logs.
func HTTPMiddleware(base *slog.Logger, redact ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			reqID := r.Header.Get(RequestIDHeader)
			if reqID == "" {
				reqID = idx.New().String()
			}
			w.Header().Set(RequestIDHeader, reqID)

			logger := base.With(
				"req_id", reqID,
				"method", r.Method,
				"path", r.URL.Path,
				"remote_addr", r.RemoteAddr,
			)

			ctx := context.WithValue(WithContext(r.Context(), logger), reqIDKey{}, reqID)
			sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(sw, r.WithContext(ctx))

			attrs := []any{
				"status", sw.status,
				"duration_ms", time.Since(start).Milliseconds(),
				"user_agent", r.UserAgent(),
			}
			if q := redactQuery(r.URL.RawQuery, redact); q != "" {
				attrs = append(attrs, "query", q)
			}
			logger.Info("http_request", attrs...)
		})
	}
}

// redactQuery masks the values of the named arguments. Unparseable queries
// are dropped entirely since they cannot be masked reliably.
func redactQuery(raw string, names []string) string {
	if raw == "" {
		return ""
	}
	values, err := url.ParseQuery(raw)
	if err != nil {
		return ""
	}
	for _, name := range names {
		if vs, ok := values[name]; ok {
			for i := range vs {
				vs[i] = redacted
			}
		}
	}
	return values.Encode()
}

type statusWriter struct {
	http.ResponseWriter

	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Unwrap() http.ResponseWriter { return w.ResponseWriter }
