package httpx

import (
	"net/http"
	"strings"

	"github.com/aussiebroadwan/reqtoken/pkg/cryptox"
	"github.com/aussiebroadwan/reqtoken/pkg/slogx"
)

// RequireBearer only lets requests through that present the given static
// bearer credential. An empty credential disables the wrapped routes.
func RequireBearer(credential string) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if credential == "" {
				WriteJSON(w, http.StatusNotFound, ErrorResponse{
					Error:            "not_found",
					ErrorDescription: "admin API is disabled",
				})
				return
			}

			authz := r.Header.Get("Authorization")
			if authz == "" || !strings.HasPrefix(authz, "Bearer ") {
				writeBearerError(w, "missing bearer token")
				return
			}
			raw := strings.TrimSpace(strings.TrimPrefix(authz, "Bearer"))

			if !cryptox.Equal(raw, credential) {
				slogx.FromContext(r.Context()).Warn("admin bearer rejected")
				writeBearerError(w, "invalid bearer token")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RFC 6750-compliant error response for bearer auth.
func writeBearerError(w http.ResponseWriter, desc string) {
	w.Header().Set("WWW-Authenticate", `Bearer error="invalid_token", error_description="`+desc+`"`)
	w.WriteHeader(http.StatusUnauthorized)
}
