package http

import (
	"context"

	"github.com/aussiebroadwan/reqtoken/internal/reqtoken/domain"
)

// Source says where a raw token was found.
type Source string

const (
	SourceNone    Source = ""
	SourceQuery   Source = "query"
	SourceBody    Source = "body"
	SourceSession Source = "session"
)

// tokenState is what the middleware learnt about the request token. Exactly
// one of token and err is meaningful: a verified token, or the soft failure
// that made the request continue without one.
type tokenState struct {
	token    domain.Token
	resolved bool
	raw      string
	source   Source
	err      error

	// claimed is set once the use was counted ahead of the handler.
	claimed bool

	// fault is a verification failure that says nothing about the token,
	// a store outage for instance. Only endpoints requiring a token fail on it.
	fault error
}

type ctxKey struct{}

func withState(ctx context.Context, st *tokenState) context.Context {
	return context.WithValue(ctx, ctxKey{}, st)
}

func stateFrom(ctx context.Context) *tokenState {
	st, _ := ctx.Value(ctxKey{}).(*tokenState)
	return st
}

// TokenFromContext returns the verified request token, if the request
// carried one that passed every endpoint-independent check.
func TokenFromContext(ctx context.Context) (domain.Token, bool) {
	st := stateFrom(ctx)
	if st == nil || st.err != nil || !st.resolved {
		return domain.Token{}, false
	}
	return st.token, true
}

// RawTokenFromContext returns the encoded token for a verified request, so
// pages can carry it forward in links and forms.
func RawTokenFromContext(ctx context.Context) string {
	st := stateFrom(ctx)
	if st == nil || st.err != nil || st.fault != nil {
		return ""
	}
	return st.raw
}

// TokenErrorFromContext returns the soft failure of a token that was
// presented but could not be used.
func TokenErrorFromContext(ctx context.Context) error {
	if st := stateFrom(ctx); st != nil {
		return st.err
	}
	return nil
}
