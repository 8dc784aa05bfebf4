package http

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/aussiebroadwan/reqtoken/internal/reqtoken/domain"
	"github.com/aussiebroadwan/reqtoken/internal/reqtoken/service"
	"github.com/aussiebroadwan/reqtoken/pkg/httpx"
	"github.com/aussiebroadwan/reqtoken/pkg/reqtokensdk"
	"github.com/aussiebroadwan/reqtoken/pkg/slogx"
)

// Capability is what an endpoint accepts tokens for.
type Capability struct {
	// Scope must equal the token scope.
	Scope string

	// Required turns a missing or unusable token into a denial.
	Required bool
}

// Require wraps h so it only runs with a token issued for c.Scope, or with
// no token at all when c.Required is false. Middleware must run first.
func (p *Pipeline) Require(c Capability, h http.Handler) http.Handler {
	if c.Scope == "" {
		panic("reqtoken: capability scope cannot be empty")
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		log := slogx.FromContext(ctx)
		st := stateFrom(ctx)

		if st != nil && st.fault != nil {
			if !c.Required {
				h.ServeHTTP(w, r.WithContext(withState(ctx, nil)))
				return
			}
			reqtokensdk.ErrServerError.WriteError(w)
			return
		}

		// A stash is carried forward by the server, the caller never sent it
		// here. Another endpoint's stash is no token at all for this one.
		if st != nil && st.err == nil && st.source == SourceSession &&
			p.Verifier.CheckScope(st.token, c.Scope) != nil {
			st = nil
			ctx = withState(ctx, nil)
			r = r.WithContext(ctx)
		}

		if st == nil || st.err != nil {
			if !c.Required {
				h.ServeHTTP(w, r)
				return
			}

			err := domain.ErrTokenRequired
			if st != nil {
				// Middleware records the attempt against the resolved token
				// under this classification once the denial is written.
				err = fmt.Errorf("%w (%v)", domain.ErrTokenRequired, st.err)
				st.err = err
			}
			log.Warn("request token required",
				slog.String("token_error", domain.ClassTokenRequired),
				slog.String("scope", c.Scope),
			)
			p.Denial.Render(w, r, p.code(ctx), err)
			return
		}

		tok := st.token
		caller := httpx.IdentityFromContext(ctx).UserID

		if err := p.Verifier.CheckScope(tok, c.Scope); err != nil {
			p.fail(w, r, tok, caller, err)
			return
		}

		user, err := p.Binder.Bind(ctx, tok, caller)
		if err != nil {
			if errors.Is(err, domain.ErrInvalidToken) {
				p.fail(w, r, tok, caller, err)
				return
			}
			log.Error("failed to bind request token identity",
				slog.String("token_id", tok.ID),
				slog.Any("error", err),
			)
			httpx.WriteJSON(w, http.StatusInternalServerError, httpx.ErrorResponse{Error: "server_error"})
			return
		}

		if user != caller {
			ctx = httpx.WithIdentity(ctx, httpx.Identity{UserID: user})
			r = r.WithContext(ctx)
		}

		claimed := false
		if p.Strict {
			tok, err = p.Tokens.ClaimUse(ctx, tok)
			if err != nil {
				if errors.Is(err, domain.ErrInvalidToken) {
					p.fail(w, r, tok, user, err)
					return
				}
				log.Error("failed to claim request token use", slog.String("token_id", tok.ID), slog.Any("error", err))
				httpx.WriteJSON(w, http.StatusInternalServerError, httpx.ErrorResponse{Error: "server_error"})
				return
			}
			claimed = true
			st.token = tok
			st.claimed = true
		}

		if tok.Stash && st.source != SourceSession && p.Session != nil {
			if err := p.Session.Stash(ctx, st.raw); err != nil {
				log.Error("failed to stash request token", slog.String("token_id", tok.ID), slog.Any("error", err))
			}
		}

		rec := httpx.NewStatusRecorder(w)
		if err := serve(h, rec, r); err != nil {
			// The handler found the token unusable itself.
			if !rec.WroteHeader() {
				p.fail(rec, r, tok, user, err)
				return
			}
			log.Warn("request token rejected after response started",
				slog.String("token_error", domain.Classify(err)),
				slog.String("token_id", tok.ID),
			)
			p.record(r, service.Attempt{
				Token:  tok,
				Meta:   service.MetaFromRequest(r, user),
				Status: rec.Status(),
				Err:    err,
			})
			return
		}

		st.token = p.record(r, service.Attempt{
			Token:   tok,
			Meta:    service.MetaFromRequest(r, user),
			Status:  rec.Status(),
			Claimed: claimed,
		})
	})
}

// serve runs h and turns a panic carrying a token error into a returned
// error. Every other panic keeps unwinding.
func serve(h http.Handler, w http.ResponseWriter, r *http.Request) (err error) {
	defer func() {
		v := recover()
		if v == nil {
			return
		}
		if e, ok := v.(error); ok && errors.Is(e, domain.ErrInvalidToken) {
			err = e
			return
		}
		panic(v)
	}()

	h.ServeHTTP(w, r)
	return nil
}

// fail writes a denial for a hard failure and records it against tok.
func (p *Pipeline) fail(w http.ResponseWriter, r *http.Request, tok domain.Token, user string, err error) {
	slogx.FromContext(r.Context()).Warn("request token rejected",
		slog.String("token_error", domain.Classify(err)),
		slog.String("token_id", tok.ID),
		slog.Any("error", err),
	)

	p.Denial.Render(w, r, p.code(r.Context()), err)

	p.record(r, service.Attempt{
		Token:  tok,
		Meta:   service.MetaFromRequest(r, user),
		Status: http.StatusForbidden,
		Err:    err,
	})
}
