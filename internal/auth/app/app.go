// Package app wires configuration, storage, services and the HTTP server
// into a runnable application.
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

	"github.com/redis/go-redis/v9"

	httpapi "github.com/pallidlabs/authgate/internal/auth/http"
	"github.com/pallidlabs/authgate/internal/auth/service"
	"github.com/pallidlabs/authgate/internal/auth/store"
	"github.com/pallidlabs/authgate/internal/auth/store/drivers/sqlite"
	"github.com/pallidlabs/authgate/pkg/jwtx"
	"github.com/pallidlabs/authgate/pkg/ratelimit"
	"github.com/pallidlabs/authgate/pkg/slogx"
)

const (
	// BuildVersion should be set at build time via ldflags. Later problem
	BuildVersion = "v0.1.0"
)

// Application encapsulates the service with all its dependencies.
type Application struct {
	cfg    Config
	logger *slog.Logger

	db    store.Store
	codec *jwtx.Codec

	authService         *service.AuthService
	userService         *service.UserService
	housekeepingService *service.HousekeepingService

	limiter       *ratelimit.Limiter
	janitorCancel context.CancelFunc

	server *http.Server
	router *httpapi.Router
}

// New creates an Application with all dependencies initialized.
func New(cfg Config) (*Application, error) {
	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "authgate",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
	}

	key, err := cfg.SigningKey()
	if err != nil {
		return nil, err
	}
	app.codec = jwtx.NewCodec(key, cfg.Issuer, cfg.AccessTTL, cfg.RefreshTTL)

	if err := app.initDatabase(); err != nil {
		return nil, err
	}

	app.initRateLimiter()
	app.initServices()
	app.initHTTP()

	return app, nil
}

// Run starts the application and blocks until shutdown is requested.
func (app *Application) Run() error {
	app.housekeepingService.Start()

	app.logger.Info("authgate starting", "port", app.cfg.Port, "version", BuildVersion)

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- app.server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if err != nil && err != http.ErrServerClosed {
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

// Shutdown gracefully shuts down the application.
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down authgate...")

	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
	}

	app.housekeepingService.Stop()

	if app.janitorCancel != nil {
		app.janitorCancel()
	}

	if err := app.db.Close(); err != nil {
		app.logger.Error("error closing database", "error", err)
		return err
	}

	app.logger.Info("authgate stopped")
	return nil
}

// initDatabase opens the SQLite store and applies migrations.
func (app *Application) initDatabase() error {
	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL", app.cfg.DatabaseFile)
	db, err := sqlite.NewStore(dsn)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	app.db = db

	if err := db.ApplyMigrations(); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to apply database migrations: %w", err)
	}

	app.logger.Info("database migrations applied successfully")
	return nil
}

// initRateLimiter picks the counter store: Redis when configured (shared
// budget across replicas), in-process counters otherwise.
func (app *Application) initRateLimiter() {
	var counters ratelimit.CounterStore

	if app.cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: app.cfg.RedisAddr})
		counters = ratelimit.NewRedisStore(rdb)
		app.logger.Info("rate limit counters on redis", "addr", app.cfg.RedisAddr)
	} else {
		mem := ratelimit.NewMemoryStore()
		ctx, cancel := context.WithCancel(context.Background())
		mem.StartJanitor(ctx, 5*time.Minute)
		app.janitorCancel = cancel
		counters = mem
		app.logger.Info("rate limit counters in memory")
	}

	app.limiter = &ratelimit.Limiter{
		Store:  counters,
		Limit:  app.cfg.RateLimitRequests,
		Window: app.cfg.RateLimitWindow,
	}
}

// initServices initializes the business logic services.
func (app *Application) initServices() {
	app.authService = &service.AuthService{
		Store:            app.db,
		Codec:            app.codec,
		AuthorizationKey: app.cfg.AuthorizationKey,
	}

	app.userService = &service.UserService{Store: app.db}

	app.housekeepingService = service.NewHousekeepingService(
		app.db,
		app.logger,
		app.cfg.HousekeepingInterval,
		0,
	)
}

// initHTTP initializes the HTTP router and server.
func (app *Application) initHTTP() {
	router := httpapi.NewRouter(
		app.codec,
		app.db.Tokens(),
		app.limiter,
		BuildVersion,
		app.db,
		app.logger,
	)

	router.AuthService = app.authService
	router.UserService = app.userService
	router.ApplyRoutes()

	app.router = router

	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
	}
}
