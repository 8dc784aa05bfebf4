package reqtokensdk

import (
	"encoding/json"
	"time"

	"github.com/aussiebroadwan/reqtoken/pkg/httpx"
)

// ErrorResponse is the JSON error body returned by every API endpoint.
type ErrorResponse = httpx.ErrorResponse

// ============================================================================
// Token Types
// ============================================================================

// CreateTokenRequest is the body of POST /v1/tokens.
type CreateTokenRequest struct {
	// Scope names the endpoint capability the token unlocks
	Scope string `json:"scope"`

	// UserID binds the token to a user, required unless LoginMode is NONE
	UserID string `json:"user_id,omitempty"`

	// LoginMode is NONE, REQUEST or SESSION (or the first letter). Defaults to NONE
	LoginMode string `json:"login_mode,omitempty"`

	// NotBefore and ExpiresAt bound the validity window
	NotBefore *time.Time `json:"not_before,omitempty"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`

	// MaxUses caps successful uses, the server default applies when zero
	MaxUses int `json:"max_uses,omitempty"`

	// Data is opaque JSON handed to the endpoint
	Data json.RawMessage `json:"data,omitempty"`

	// Stash keeps the token in the caller's session after first use
	Stash bool `json:"stash,omitempty"`

	// URL, when set, is returned with the token added as a query argument
	URL string `json:"url,omitempty"`
}

// CreateTokenResponse is returned from POST /v1/tokens.
type CreateTokenResponse struct {
	ID     string          `json:"id"`
	Token  string          `json:"token"`
	Claims json.RawMessage `json:"claims"`
	URL    string          `json:"url,omitempty"`
}

// TokenState is the stored state of a token.
type TokenState struct {
	ID              string          `json:"id"`
	Scope           string          `json:"scope"`
	UserID          string          `json:"user_id,omitempty"`
	LoginMode       string          `json:"login_mode"`
	NotBefore       *time.Time      `json:"not_before,omitempty"`
	ExpiresAt       *time.Time      `json:"expires_at,omitempty"`
	IssuedAt        *time.Time      `json:"issued_at,omitempty"`
	MaxUses         int             `json:"max_uses"`
	UsedToDate      int             `json:"used_to_date"`
	SuccessfulUses  int             `json:"successful_uses"`
	RemainingUses   int             `json:"remaining_uses"`
	Data            json.RawMessage `json:"data,omitempty"`
	Stash           bool            `json:"stash"`
	CurrentlyActive bool            `json:"currently_active"`
}

// UsageLogEntry is one recorded attempt to use a token.
type UsageLogEntry struct {
	ID         string    `json:"id"`
	UserID     string    `json:"user_id,omitempty"`
	ClientIP   string    `json:"client_ip,omitempty"`
	UserAgent  string    `json:"user_agent"`
	StatusCode int       `json:"status_code"`
	Timestamp  time.Time `json:"timestamp"`

	// Error is set for failed attempts
	Error *UsageLogError `json:"error,omitempty"`
}

// UsageLogError is the classification of a failed attempt.
type UsageLogError struct {
	Classification string `json:"classification"`
	Message        string `json:"message"`
}

// ListUsageLogsResponse is returned from GET /v1/tokens/{id}/logs.
type ListUsageLogsResponse struct {
	Logs []UsageLogEntry `json:"logs"`
}

// ============================================================================
// Demo Endpoint Types
// ============================================================================

// WhoAmIResponse is returned from GET /v1/whoami.
type WhoAmIResponse struct {
	// UserID is the effective identity, empty for anonymous callers
	UserID string `json:"user_id,omitempty"`

	// TokenID is set when a valid token was presented
	TokenID string `json:"token_id,omitempty"`

	// TokenError is the classification of a token that was presented but
	// could not be used
	TokenError string `json:"token_error,omitempty"`

	Data json.RawMessage `json:"data,omitempty"`
}

// ConsumeResponse is returned from /v1/consume.
type ConsumeResponse struct {
	TokenID       string          `json:"token_id"`
	UserID        string          `json:"user_id,omitempty"`
	RemainingUses int             `json:"remaining_uses"`
	Data          json.RawMessage `json:"data,omitempty"`
}

// ============================================================================
// Health Types
// ============================================================================

// HealthResponse represents the response structure for health check endpoints.
// Used by both /livez and /readyz endpoints (readyz includes additional Checks field).
type HealthResponse struct {
	// Status indicates the overall health status (e.g., "ok")
	Status string `json:"status"`

	// Uptime is the service uptime duration as a string (e.g., "1h23m45s")
	Uptime string `json:"uptime,omitempty"`

	// Version is the service version string
	Version string `json:"version,omitempty"`

	// Checks contains readiness check results for critical dependencies (only for /readyz)
	Checks *HealthChecks `json:"checks,omitempty"`
}

// HealthChecks represents the status of critical service dependencies.
type HealthChecks struct {
	// Database indicates the database connection status
	Database string `json:"database"`

	// Signer indicates whether a signing secret is loaded
	Signer string `json:"signer"`
}
