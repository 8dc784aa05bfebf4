package httpx

import (
	"math"
	"net/http"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/aussiebroadwan/reqtoken/pkg/slogx"
	"golang.org/x/time/rate"
)

// RateLimitConfig is a token bucket refilled at RequestsPerWindow per Window.
type RateLimitConfig struct {
	RequestsPerWindow int
	Window            time.Duration
	Burst             int
}

func (c RateLimitConfig) limit() rate.Limit {
	return rate.Limit(float64(c.RequestsPerWindow) / c.Window.Seconds())
}

// Rate limit profiles, overridable through RATELIMIT_{ADMIN,LINK,TOKEN,PUBLIC}_*.
var (
	// AdminLimit guards the token issuing API.
	AdminLimit = RateLimitConfig{RequestsPerWindow: 20, Window: time.Minute, Burst: 20}

	// LinkLimit guards endpoints consuming request tokens, per client.
	// Tokenised links are often opened in bursts (mail scanners, double
	// clicks) so it is generous.
	LinkLimit = RateLimitConfig{RequestsPerWindow: 100, Window: time.Minute, Burst: 100}

	// TokenLimit bounds how fast a single token can be presented, whatever
	// the number of clients sharing it.
	TokenLimit = RateLimitConfig{RequestsPerWindow: 30, Window: time.Minute, Burst: 15}

	// PublicLimit for health checks and docs.
	PublicLimit = RateLimitConfig{RequestsPerWindow: 1000, Window: time.Minute, Burst: 1000}
)

func init() {
	AdminLimit = ParseRateLimitFromEnv("ADMIN", AdminLimit)
	LinkLimit = ParseRateLimitFromEnv("LINK", LinkLimit)
	TokenLimit = ParseRateLimitFromEnv("TOKEN", TokenLimit)
	PublicLimit = ParseRateLimitFromEnv("PUBLIC", PublicLimit)
}

// ParseRateLimitFromEnv reads RATELIMIT_{prefix}_REQUESTS, _WINDOW_SEC and
// _BURST, keeping the default for anything unset or invalid.
func ParseRateLimitFromEnv(prefix string, def RateLimitConfig) RateLimitConfig {
	positive := func(name string) (int, bool) {
		n, err := strconv.Atoi(os.Getenv("RATELIMIT_" + prefix + "_" + name))
		return n, err == nil && n > 0
	}

	cfg := def
	if n, ok := positive("REQUESTS"); ok {
		cfg.RequestsPerWindow = n
	}
	if n, ok := positive("WINDOW_SEC"); ok {
		cfg.Window = time.Duration(n) * time.Second
	}
	if n, ok := positive("BURST"); ok {
		cfg.Burst = n
	}
	return cfg
}

// KeyExtractor groups requests for rate limiting purposes. An empty key
// lets the request through unlimited.
type KeyExtractor func(*http.Request) string

// IPKeyExtractor groups by client IP (first X-Forwarded-For hop if present).
func IPKeyExtractor(r *http.Request) string { return ClientIP(r) }

// IdentityKeyExtractor groups by caller identity, falling back to client IP
// for anonymous callers.
func IdentityKeyExtractor(r *http.Request) string {
	if id := IdentityFromContext(r.Context()); !id.Anonymous() {
		return "user:" + id.UserID
	}
	return ClientIP(r)
}

// limiterIdleTTL is how long a key's bucket survives without traffic. A
// bucket idle this long has refilled for any sane profile.
const limiterIdleTTL = 10 * time.Minute

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// limiterSet holds one bucket per key and sweeps idle ones while allowing.
type limiterSet struct {
	cfg RateLimitConfig

	mu        sync.Mutex
	entries   map[string]*limiterEntry
	nextSweep time.Time
}

func newLimiterSet(cfg RateLimitConfig) *limiterSet {
	return &limiterSet{
		cfg:       cfg,
		entries:   make(map[string]*limiterEntry),
		nextSweep: time.Now().Add(limiterIdleTTL),
	}
}

// allow takes a token for key. When refused it also returns how long until
// one is available.
func (s *limiterSet) allow(key string, now time.Time) (bool, time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if now.After(s.nextSweep) {
		for k, e := range s.entries {
			if now.Sub(e.lastSeen) > limiterIdleTTL {
				delete(s.entries, k)
			}
		}
		s.nextSweep = now.Add(limiterIdleTTL)
	}

	e, ok := s.entries[key]
	if !ok {
		e = &limiterEntry{limiter: rate.NewLimiter(s.cfg.limit(), s.cfg.Burst)}
		s.entries[key] = e
	}
	e.lastSeen = now

	if e.limiter.AllowN(now, 1) {
		return true, 0
	}

	r := e.limiter.ReserveN(now, 1)
	delay := r.DelayFrom(now)
	r.CancelAt(now)
	return false, delay
}

// RateLimitMiddleware answers 429 with Retry-After once a key runs out of
// tokens.
func RateLimitMiddleware(cfg RateLimitConfig, keyOf KeyExtractor) Middleware {
	set := newLimiterSet(cfg)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := keyOf(r)
			if key == "" {
				next.ServeHTTP(w, r)
				return
			}

			ok, delay := set.allow(key, time.Now())
			if ok {
				next.ServeHTTP(w, r)
				return
			}

			retryAfter := max(int(math.Ceil(delay.Seconds())), 1)
			w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(cfg.RequestsPerWindow))
			w.Header().Set("X-RateLimit-Window", cfg.Window.String())

			slogx.FromContext(r.Context()).Warn("rate limit exceeded",
				"endpoint", r.URL.Path,
				"retry_after", retryAfter,
			)

			WriteJSON(w, http.StatusTooManyRequests, ErrorResponse{
				Error:            "rate_limit_exceeded",
				ErrorDescription: "Too many requests. Please try again later.",
			})
		})
	}
}

// RateLimitByIP limits by client address.
func RateLimitByIP(cfg RateLimitConfig) Middleware {
	return RateLimitMiddleware(cfg, IPKeyExtractor)
}

// RateLimitByIdentity limits by caller identity, anonymous callers by IP.
func RateLimitByIdentity(cfg RateLimitConfig) Middleware {
	return RateLimitMiddleware(cfg, IdentityKeyExtractor)
}
