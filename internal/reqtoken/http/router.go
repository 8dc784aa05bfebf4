package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/aussiebroadwan/reqtoken/internal/reqtoken/service"
	"github.com/aussiebroadwan/reqtoken/internal/reqtoken/session"
	"github.com/aussiebroadwan/reqtoken/internal/reqtoken/store"
	"github.com/aussiebroadwan/reqtoken/pkg/cryptox"
	"github.com/aussiebroadwan/reqtoken/pkg/httpx"
	"github.com/aussiebroadwan/reqtoken/pkg/jwtx"
	"github.com/aussiebroadwan/reqtoken/pkg/slogx"

	_ "github.com/aussiebroadwan/reqtoken/api/reqtoken" // Swagger docs
	httpSwagger "github.com/swaggo/http-swagger"
)

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	keys         *jwtx.KeySet
	buildVersion string
	startTime    time.Time
	logger       *slog.Logger

	store      store.Store
	adminToken string

	TokenService *service.TokenService
	Sessions     *session.Manager
	Pipeline     *Pipeline
}

func NewRouter(
	keys *jwtx.KeySet,
	buildVersion, adminToken string,
	st store.Store,
	logger *slog.Logger,
) *Router {
	r := &Router{
		Mux:          http.NewServeMux(),
		keys:         keys,
		buildVersion: buildVersion,
		startTime:    time.Now(),
		store:        st,
		adminToken:   adminToken,
		logger:       logger,
	}

	return r
}

// ApplyRoutes registers every route. Sessions and Pipeline must be set first.
func (r *Router) ApplyRoutes() {
	// Order matters: the session sets the caller identity the token
	// pipeline binds against.
	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger, r.Pipeline.queryArg()),
		r.Sessions.Middleware,
		r.Pipeline.Middleware,
	}

	r.registerTokens()
	r.registerDemo()
	r.registerSystem()

	r.Mux.Handle("/swagger/", httpSwagger.Handler())
}

// ServeHTTP implements http.Handler for Router and applies the global middleware chain.
//
//	@title			Request Token Service API
//	@version		0.1.0
//	@description	Issues single or limited use tokens that are embedded in URLs and grant scoped access to an endpoint, optionally logging the bound user in.
//	@description
//	@description				Tokens are HS256 signed JWTs. The admin API is protected by a static bearer credential.
//
//	@contact.name				AussieBroadWAN Team
//	@contact.url				https://github.com/aussiebroadwan/reqtoken
//
//	@license.name				MIT
//	@license.url				https://opensource.org/licenses/MIT
//
//	@host						localhost:8080
//	@BasePath					/
//
//	@schemes					http https
//
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				Admin token. Format: "Bearer {token}".
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

func (r *Router) registerTokens() {
	h := &TokensHandler{TokenService: r.TokenService, Store: r.store}

	// One limiter for the whole admin API, checked before the credential so
	// guessing it is throttled too.
	limit := httpx.RateLimitByIP(httpx.AdminLimit)
	admin := func(fn http.HandlerFunc) http.Handler {
		return httpx.Chain(fn,
			limit,
			httpx.RequireBearer(r.adminToken),
		)
	}

	r.Mux.Handle("POST /v1/tokens", admin(h.HandleCreate))
	r.Mux.Handle("GET /v1/tokens/{id}", admin(h.HandleGet))
	r.Mux.Handle("POST /v1/tokens/{id}/expire", admin(h.HandleExpire))
	r.Mux.Handle("GET /v1/tokens/{id}/logs", admin(h.HandleLogs))
}

func (r *Router) registerDemo() {
	whoami := r.Pipeline.Require(Capability{Scope: ScopeWhoAmI}, http.HandlerFunc(HandleWhoAmI))
	consume := r.Pipeline.Require(Capability{Scope: ScopeConsume, Required: true}, http.HandlerFunc(HandleConsume))

	// Token links are limited per client and per presented token. whoami
	// is keyed by the session identity when there is one.
	perClient := httpx.RateLimitByIP(httpx.LinkLimit)
	perToken := httpx.RateLimitMiddleware(httpx.TokenLimit, presentedTokenKey)

	r.Mux.Handle("GET /v1/whoami", httpx.Chain(whoami, httpx.RateLimitByIdentity(httpx.LinkLimit), perToken))
	r.Mux.Handle("GET /v1/consume", httpx.Chain(consume, perClient, perToken))
	r.Mux.Handle("POST /v1/consume", httpx.Chain(consume, perClient, perToken))
}

// presentedTokenKey groups requests by the raw token they carry, valid or
// not. Requests without one are left to the other limiters.
func presentedTokenKey(req *http.Request) string {
	st := stateFrom(req.Context())
	if st == nil {
		return ""
	}
	return "token:" + cryptox.Fingerprint("reqtoken/ratelimit", []byte(st.raw))
}

func (r *Router) registerSystem() {
	r.Mux.Handle("GET /livez",
		httpx.Chain(LivezHandler(r.startTime, r.buildVersion),
			httpx.RateLimitByIP(httpx.PublicLimit),
		),
	)
	r.Mux.Handle("GET /readyz",
		httpx.Chain(ReadyzHandler(r.startTime, r.buildVersion, r.store, r.keys),
			httpx.RateLimitByIP(httpx.PublicLimit),
		),
	)
}
