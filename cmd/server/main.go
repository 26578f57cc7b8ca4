// Command server runs the stat tracker HTTP API.
package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	_ "github.com/lib/pq"

	app "github.com/hooptrack/backend/internal/app"
	"github.com/hooptrack/backend/internal/app/cache"
	"github.com/hooptrack/backend/internal/app/httpapi"
	"github.com/hooptrack/backend/internal/app/live"
	"github.com/hooptrack/backend/internal/app/metrics"
	gamessvc "github.com/hooptrack/backend/internal/app/services/games"
	"github.com/hooptrack/backend/internal/app/storage/postgres"
	"github.com/hooptrack/backend/internal/config"
	"github.com/hooptrack/backend/internal/middleware"
	"github.com/hooptrack/backend/internal/platform/migrations"
	"github.com/hooptrack/backend/pkg/logger"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "server: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log := logger.New(logger.LoggingConfig{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	}).WithField("component", "server")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	stores, cleanup, err := buildStores(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer cleanup()

	hub := live.NewHub(log)
	notifiers := []gamessvc.Notifier{hub}
	if gameCache := buildCache(cfg, log); gameCache != nil {
		notifiers = append(notifiers, gameCache)
	}

	application, err := app.New(cfg, stores, app.Options{Notifiers: notifiers}, log)
	if err != nil {
		return fmt.Errorf("build application: %w", err)
	}

	handler := buildHandler(cfg, application, hub, log)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Infof("listening on %s", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// buildStores selects postgres when a DSN is configured, otherwise the
// in-memory store that app.New defaults to.
func buildStores(ctx context.Context, cfg *config.Config, log *logger.Logger) (app.Stores, func(), error) {
	if cfg.Database.DSN == "" {
		log.Warn("no database configured, using in-memory store")
		return app.Stores{}, func() {}, nil
	}

	db, err := sql.Open("postgres", cfg.Database.DSN)
	if err != nil {
		return app.Stores{}, nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.Database.ConnMaxLifetime)

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return app.Stores{}, nil, fmt.Errorf("ping database: %w", err)
	}
	if err := migrations.Apply(ctx, db); err != nil {
		db.Close()
		return app.Stores{}, nil, fmt.Errorf("apply migrations: %w", err)
	}

	store := postgres.New(db)
	log.Info("connected to postgres")
	return app.Stores{
		Users:      store,
		Players:    store,
		Teams:      store,
		Games:      store,
		Highlights: store,
	}, func() { db.Close() }, nil
}

// buildCache returns a redis-backed game snapshot cache, or nil when redis is
// not configured.
func buildCache(cfg *config.Config, log *logger.Logger) *cache.GameCache {
	if cfg.Redis.Addr == "" {
		return nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	log.Infof("game snapshot cache enabled at %s", cfg.Redis.Addr)
	return cache.New(client, log)
}

func buildHandler(cfg *config.Config, application *app.Application, hub *live.Hub, log *logger.Logger) http.Handler {
	authn := middleware.NewAuthMiddleware(cfg.Auth.JWTSecret, log, []string{
		"/auth/register",
		"/auth/login",
		"/auth/google",
		"/subscriptions/webhook",
		"/health",
		"/metrics",
	}, func(r *http.Request) bool {
		// Websocket clients authenticate via query token on the live endpoint.
		return strings.HasPrefix(r.URL.Path, "/games/") && strings.HasSuffix(r.URL.Path, "/live")
	})

	limiter := middleware.NewRateLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst, log)
	limiter.StartCleanup(10 * time.Minute)

	cors := middleware.NewCORSMiddleware(cfg.CORSOrigins)

	var handler http.Handler = httpapi.NewHandler(application, hub)
	handler = metrics.InstrumentHandler(handler)
	handler = limiter.Handler(handler)
	handler = authn.Handler(handler)
	handler = cors.Handler(handler)
	handler = middleware.RequestLogger(log)(handler)
	return handler
}
