package app

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/aussiebroadwan/reqtoken/internal/reqtoken/service"
)

const (
	UsageModeOptimistic = "optimistic"
	UsageModeStrict     = "strict"
)

type Config struct {
	Secret          string   // Required outside dev: shared secret request tokens are signed with
	PreviousSecrets []string // Optional: retired secrets still accepted when verifying
	AdminToken      string   // Optional: bearer credential for the admin API (disabled when empty)

	QueryArg       string        // Query, form and JSON key carrying tokens (default: rt)
	SessionExpiry  time.Duration // Lifetime of SESSION mode tokens created without expiry (default: 10m)
	DefaultMaxUses int           // Usage cap when none is given (default: 10)
	DenialTemplate string        // Optional: html/template file rendered for denials, hot reloaded
	LogErrors      bool          // Record soft failures with an error row (default: true)
	DisableLogs    bool          // Skip usage rows for successful uses, counters are still kept (default: false)
	UsageMode      string        // optimistic or strict (default: optimistic)
	LogRetention   time.Duration // Housekeeping deletes usage logs older than this, 0 keeps them (default: 0)

	DatabaseFile         string        // Path to SQLite database file (default: ./reqtoken.db)
	SessionTTL           time.Duration // Lifetime of the session cookie (default: 24h)
	SecureCookies        bool          // Set the Secure flag on the session cookie (default: true outside dev)
	Env                  string        // Environment (dev, staging, prod) (default: dev)
	LogLevel             string        // Log level (debug, info, warn, error) (default: info)
	LogFormat            string        // Log format (json, text) (default: json)
	Port                 int           // HTTP server port (default: 8080)
	ShutdownGracePeriod  time.Duration // Graceful shutdown timeout (default: 10s)
	HousekeepingInterval time.Duration // Housekeeping interval (default: 1h)
}

func LoadConfig() Config {
	env := getEnvOrDefault("ENV", "dev")

	cfg := Config{
		Secret:          os.Getenv("REQUEST_TOKEN_SECRET"),
		PreviousSecrets: getEnvListOrDefault("REQUEST_TOKEN_PREVIOUS_SECRETS", nil),
		AdminToken:      os.Getenv("ADMIN_TOKEN"),

		QueryArg:       getEnvOrDefault("REQUEST_TOKEN_QUERYSTRING_ARG", service.DefaultQueryArg),
		SessionExpiry:  getEnvDurationOrDefault("REQUEST_TOKEN_SESSION_EXPIRY", service.DefaultSessionExpiry), // bare integers are minutes
		DefaultMaxUses: getEnvIntOrDefault("REQUEST_TOKEN_DEFAULT_MAX_USES", service.DefaultMaxUses),
		DenialTemplate: os.Getenv("REQUEST_TOKEN_403_TEMPLATE"),
		LogErrors:      getEnvBoolOrDefault("REQUEST_TOKEN_LOG_ERRORS", true),
		DisableLogs:    getEnvBoolOrDefault("REQUEST_TOKEN_DISABLE_LOGS", false),
		UsageMode:      strings.ToLower(getEnvOrDefault("REQUEST_TOKEN_USAGE_MODE", UsageModeOptimistic)),
		LogRetention:   getEnvDurationOrDefault("REQUEST_TOKEN_LOG_RETENTION", 0),

		DatabaseFile:         getEnvOrDefault("DATABASE_FILE", "reqtoken.db"),
		SessionTTL:           getEnvDurationOrDefault("SESSION_TTL", 24*time.Hour),
		SecureCookies:        getEnvBoolOrDefault("SESSION_COOKIE_SECURE", env != "dev"),
		Env:                  env,
		LogLevel:             getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:            getEnvOrDefault("LOG_FORMAT", "json"),
		Port:                 getEnvIntOrDefault("PORT", 8080),
		ShutdownGracePeriod:  getEnvDurationOrDefault("SHUTDOWN_GRACE_PERIOD", 10*time.Second),
		HousekeepingInterval: getEnvDurationOrDefault("HOUSEKEEPING_INTERVAL", 1*time.Hour),
	}

	return cfg
}

var (
	ErrSecretRequired   = errors.New("REQUEST_TOKEN_SECRET is required outside dev")
	ErrInvalidUsageMode = errors.New("REQUEST_TOKEN_USAGE_MODE must be optimistic or strict")
)

// Validate reports settings the service cannot start with.
func (c Config) Validate() error {
	if c.Secret == "" && c.Env != "dev" {
		return ErrSecretRequired
	}
	if c.UsageMode != UsageModeOptimistic && c.UsageMode != UsageModeStrict {
		return fmt.Errorf("%w, got %q", ErrInvalidUsageMode, c.UsageMode)
	}
	if c.DefaultMaxUses <= 0 {
		return fmt.Errorf("REQUEST_TOKEN_DEFAULT_MAX_USES must be positive, got %d", c.DefaultMaxUses)
	}
	if c.SessionExpiry <= 0 {
		return fmt.Errorf("REQUEST_TOKEN_SESSION_EXPIRY must be positive, got %s", c.SessionExpiry)
	}
	if c.QueryArg == "" {
		return errors.New("REQUEST_TOKEN_QUERYSTRING_ARG cannot be empty")
	}
	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if intValue, err := strconv.Atoi(value); err == nil {
		return intValue
	}

	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if b, err := strconv.ParseBool(value); err == nil {
		return b
	}

	return defaultValue
}

func getEnvListOrDefault(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	// Try parsing as duration (e.g., "1h", "30m", "90s")
	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}

	// Bare integers are minutes
	if minutes, err := strconv.Atoi(value); err == nil {
		return time.Duration(minutes) * time.Minute
	}

	return defaultValue
}
