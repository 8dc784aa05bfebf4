package httpx

import "context"

type ctxKey string

const (
	ctxKeyIdentity ctxKey = "identity"
)

// Identity is the caller identity the host attached to the request. The zero
// value is the anonymous caller.
type Identity struct {
	UserID string
}

// Anonymous reports whether no user is attached.
func (i Identity) Anonymous() bool { return i.UserID == "" }

// WithIdentity returns ctx with the caller identity replaced for the rest of
// the request.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, ctxKeyIdentity, id)
}

// IdentityFromContext returns the caller identity, anonymous if none was set.
func IdentityFromContext(ctx context.Context) Identity {
	if v, ok := ctx.Value(ctxKeyIdentity).(Identity); ok {
		return v
	}
	return Identity{}
}
