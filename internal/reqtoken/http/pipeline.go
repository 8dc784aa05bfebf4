package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"net/url"

	"github.com/aussiebroadwan/reqtoken/internal/reqtoken/domain"
	"github.com/aussiebroadwan/reqtoken/internal/reqtoken/service"
	"github.com/aussiebroadwan/reqtoken/pkg/httpx"
	"github.com/aussiebroadwan/reqtoken/pkg/jwtx"
	"github.com/aussiebroadwan/reqtoken/pkg/slogx"
)

// DefaultMaxBodyBytes bounds how much of a request body is searched for a token.
const DefaultMaxBodyBytes = 1 << 20

// Session is the per-client storage a validated token can be stashed in.
type Session interface {
	ID(ctx context.Context) string
	Stashed(ctx context.Context) string
	Stash(ctx context.Context, raw string) error
	ClearStash(ctx context.Context) error
}

// Pipeline wires token verification into HTTP handlers. Middleware runs the
// endpoint-independent checks on every request, Require enforces what a
// single endpoint declares.
type Pipeline struct {
	Verifier *service.Verifier
	Binder   *service.Binder
	Recorder *service.Recorder
	Tokens   *service.TokenService

	// Session is optional, without it nothing is stashed and SESSION mode
	// tokens cannot log anyone in.
	Session Session

	Denial *DenialRenderer

	// QueryArg is the query, form and JSON key carrying the token.
	QueryArg string

	// Strict claims a use atomically before the handler runs instead of
	// counting it afterwards.
	Strict bool

	MaxBodyBytes int64
}

func (p *Pipeline) queryArg() string {
	if p.QueryArg == "" {
		return service.DefaultQueryArg
	}
	return p.QueryArg
}

// Middleware extracts and verifies the request token. Failures are soft
// here: they are logged and the request continues as if no token had been
// sent. Endpoints decide with Require whether that is acceptable.
func (p *Pipeline) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, src := p.extract(r)
		if raw == "" {
			next.ServeHTTP(w, r)
			return
		}

		ctx := r.Context()
		log := slogx.FromContext(ctx)

		tok, err := p.Verifier.Verify(ctx, raw)
		if err != nil && !errors.Is(err, domain.ErrInvalidToken) {
			log.Error("failed to verify request token",
				slog.String("source", string(src)),
				slog.Any("error", err),
			)
			st := &tokenState{raw: raw, source: src, fault: err}
			next.ServeHTTP(w, r.WithContext(withState(ctx, st)))
			return
		}

		st := &tokenState{token: tok, resolved: tok.ID != "", raw: raw, source: src, err: err}
		ctx = withState(ctx, st)
		r = r.WithContext(ctx)

		if err == nil {
			next.ServeHTTP(w, r)
			return
		}

		log.Warn("request token ignored",
			slog.String("token_error", domain.Classify(err)),
			slog.String("source", string(src)),
			slog.String("token_id", tok.ID),
			slog.Any("error", err),
		)

		if src == SourceSession {
			if err := p.Session.ClearStash(ctx); err != nil {
				log.Error("failed to clear stashed request token", slog.Any("error", err))
			}
		}

		if !st.resolved {
			next.ServeHTTP(w, r)
			return
		}

		rec := httpx.NewStatusRecorder(w)
		next.ServeHTTP(rec, r)

		// A capability requiring the token may have escalated the failure.
		p.record(r, service.Attempt{
			Token:  tok,
			Meta:   service.MetaFromRequest(r, httpx.IdentityFromContext(r.Context()).UserID),
			Status: rec.Status(),
			Err:    st.err,
		})
	})
}

// extract looks for a token in the query string, then in the body of write
// requests, then in the session stash.
func (p *Pipeline) extract(r *http.Request) (string, Source) {
	arg := p.queryArg()

	if v := r.URL.Query().Get(arg); v != "" {
		return v, SourceQuery
	}

	switch r.Method {
	case http.MethodPost, http.MethodPut, http.MethodPatch:
		if v := p.fromBody(r, arg); v != "" {
			return v, SourceBody
		}
	}

	if p.Session != nil {
		// Anything stashed that does not even look like a token is left alone.
		if v := p.Session.Stashed(r.Context()); v != "" && jwtx.IsJWT(v) {
			return v, SourceSession
		}
	}

	return "", SourceNone
}

// fromBody reads the token from a JSON or form body and puts the body back
// for the handler.
func (p *Pipeline) fromBody(r *http.Request, arg string) string {
	if r.Body == nil || r.Body == http.NoBody {
		return ""
	}

	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil {
		return ""
	}
	if mediaType != "application/json" && mediaType != "application/x-www-form-urlencoded" {
		return ""
	}

	limit := p.MaxBodyBytes
	if limit <= 0 {
		limit = DefaultMaxBodyBytes
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, limit+1))
	r.Body = struct {
		io.Reader
		io.Closer
	}{io.MultiReader(bytes.NewReader(body), r.Body), r.Body}
	if err != nil || int64(len(body)) > limit {
		return ""
	}

	switch mediaType {
	case "application/json":
		var payload map[string]json.RawMessage
		if err := json.Unmarshal(body, &payload); err != nil {
			return ""
		}
		var v string
		if err := json.Unmarshal(payload[arg], &v); err != nil {
			return ""
		}
		return v
	default:
		values, err := url.ParseQuery(string(body))
		if err != nil {
			return ""
		}
		return values.Get(arg)
	}
}

func (p *Pipeline) record(r *http.Request, a service.Attempt) domain.Token {
	if p.Recorder == nil {
		return a.Token
	}
	// The recorder logs its own failures, the response is already out.
	tok, _ := p.Recorder.Record(r.Context(), a)
	return tok
}

// code is the support code shown on denial pages: the session id when there
// is one, else the request id.
func (p *Pipeline) code(ctx context.Context) string {
	if p.Session != nil {
		if id := p.Session.ID(ctx); id != "" {
			return id
		}
	}
	return slogx.RequestIDFromContext(ctx)
}
