package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpapi "github.com/aussiebroadwan/reqtoken/internal/reqtoken/http"
	"github.com/aussiebroadwan/reqtoken/internal/reqtoken/service"
	"github.com/aussiebroadwan/reqtoken/internal/reqtoken/session"
	"github.com/aussiebroadwan/reqtoken/internal/reqtoken/store"
	"github.com/aussiebroadwan/reqtoken/internal/reqtoken/store/drivers/sqlite"
	"github.com/aussiebroadwan/reqtoken/pkg/jwtx"
	"github.com/aussiebroadwan/reqtoken/pkg/slogx"
)

const (
	// BuildVersion should be set at build time via ldflags.
	BuildVersion = "v0.1.0"
)

// Application encapsulates the request token service with all its dependencies
type Application struct {
	cfg    Config
	logger *slog.Logger

	// Core dependencies
	db    store.Store
	keys  *jwtx.KeySet
	codec *jwtx.Codec

	// Services
	tokenService        *service.TokenService
	verifier            *service.Verifier
	binder              *service.Binder
	recorder            *service.Recorder
	sessions            *session.Manager
	denial              *httpapi.DenialRenderer
	housekeepingService *service.HousekeepingService

	// Background work tied to the application lifetime
	ctx    context.Context
	cancel context.CancelFunc

	// HTTP server
	server *http.Server
	router *httpapi.Router
}

// New creates a new Application instance with all dependencies initialized
func New(cfg Config) (*Application, error) {
	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "reqtoken-service",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	keys, err := InitKeys(app.cfg, app.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize signing keys: %w", err)
	}
	app.keys = keys
	app.codec = jwtx.NewCodec(keys)

	if err := app.initDatabase(); err != nil {
		return nil, err
	}

	app.initServices()
	app.initHTTP()

	return app, nil
}

// Run starts the application and blocks until shutdown is requested
func (app *Application) Run() error {
	app.ctx, app.cancel = context.WithCancel(context.Background())

	app.housekeepingService.Start()

	if err := app.denial.Watch(app.ctx); err != nil {
		// Not fatal, the template loaded at startup keeps serving.
		app.logger.Warn("denial template watcher not started", "path", app.cfg.DenialTemplate, "error", err)
	}

	app.logger.Info("reqtoken service starting",
		"port", app.cfg.Port,
		"version", BuildVersion,
		"usage_mode", app.cfg.UsageMode,
	)

	// Start server in a goroutine
	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- app.server.ListenAndServe()
	}()

	// Setup signal handling for graceful shutdown
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	// Block until we receive a shutdown signal or server error
	select {
	case err := <-serverErrors:
		if err != nil && err != http.ErrServerClosed {
			app.cancel()
			return fmt.Errorf("server failed: %w", err)
		}
	case sig := <-shutdown:
		app.logger.Info("shutdown signal received", "signal", sig)

		if err := app.Shutdown(); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
	}

	return nil
}

// Shutdown gracefully shuts down the application
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down reqtoken service...")

	// Give outstanding requests a deadline for completion
	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
	}

	if app.cancel != nil {
		app.cancel()
	}

	app.housekeepingService.Stop()

	if err := app.db.Close(); err != nil {
		app.logger.Error("error closing database", "error", err)
		return err
	}

	app.logger.Info("reqtoken service stopped")
	return nil
}

// Handler exposes the routed handler, mainly for tests.
func (app *Application) Handler() http.Handler {
	return app.router
}

// initDatabase initializes the database and applies migrations
func (app *Application) initDatabase() error {
	db, err := sqlite.NewStore(app.cfg.DatabaseFile)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	app.db = db

	if err := db.ApplyMigrations(); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to apply database migrations: %w", err)
	}

	app.logger.Info("database migrations applied successfully", "file", app.cfg.DatabaseFile)
	return nil
}

// initServices initializes all business logic services
func (app *Application) initServices() {
	app.tokenService = &service.TokenService{
		Store:          app.db,
		Signer:         app.codec,
		DefaultMaxUses: app.cfg.DefaultMaxUses,
		SessionExpiry:  app.cfg.SessionExpiry,
		QueryArg:       app.cfg.QueryArg,
	}

	app.sessions = &session.Manager{
		Store:  app.db,
		TTL:    app.cfg.SessionTTL,
		Secure: app.cfg.SecureCookies,
	}

	app.verifier = &service.Verifier{
		Codec:  app.codec,
		Tokens: app.tokenService,
	}
	app.binder = &service.Binder{Persister: app.sessions}
	app.recorder = &service.Recorder{
		Store:       app.db,
		DisableLogs: app.cfg.DisableLogs,
		LogErrors:   app.cfg.LogErrors,
	}

	app.denial = httpapi.NewDenialRenderer(app.cfg.DenialTemplate, app.logger)

	app.housekeepingService = service.NewHousekeepingService(
		app.db,
		app.logger,
		app.cfg.HousekeepingInterval,
		app.cfg.LogRetention,
	)
}

// initHTTP initializes the HTTP router and server
func (app *Application) initHTTP() {
	router := httpapi.NewRouter(
		app.keys,
		BuildVersion,
		app.cfg.AdminToken,
		app.db,
		app.logger,
	)

	if app.cfg.AdminToken == "" {
		app.logger.Warn("ADMIN_TOKEN not set, token admin API is disabled")
	}

	// Wire services to router
	router.TokenService = app.tokenService
	router.Sessions = app.sessions
	router.Pipeline = &httpapi.Pipeline{
		Verifier: app.verifier,
		Binder:   app.binder,
		Recorder: app.recorder,
		Tokens:   app.tokenService,
		Session:  app.sessions,
		Denial:   app.denial,
		QueryArg: app.cfg.QueryArg,
		Strict:   app.cfg.UsageMode == UsageModeStrict,
	}
	router.ApplyRoutes()

	app.router = router

	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
	}
}
