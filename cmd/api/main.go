package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"shopprotect/internal/audit"
	"shopprotect/internal/auth"
	"shopprotect/internal/httpapi"
	"shopprotect/internal/logger"
	"shopprotect/internal/metrics"
	"shopprotect/internal/relay"
	"shopprotect/internal/session"
	"shopprotect/internal/webhook"
	"shopprotect/pkg/config"
	"shopprotect/pkg/db"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		// No logger yet; the level itself comes from config.
		logger.New(logger.Config{}).Fatal("config", zap.Error(err))
	}
	log := logger.New(logger.Config{Env: cfg.AppEnv, Level: cfg.LogLevel})
	defer func() { _ = log.Sync() }()

	for _, w := range cfg.Warnings() {
		log.Warn(w)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var pool *pgxpool.Pool
	if cfg.Sessions.Store == "postgres" || cfg.DatabaseURL != "" {
		pool, err = db.Open(ctx, cfg)
		if err != nil {
			log.Fatal("db open", zap.Error(err))
		}
		defer pool.Close()

		if cfg.MigrationsPath != "" {
			if err := db.Migrate(cfg.MigrationsPath, cfg); err != nil {
				log.Fatal("migrate", zap.Error(err))
			}
		}
	}

	sessions, err := session.Open(ctx, cfg.Sessions, pool)
	if err != nil {
		log.Fatal("session store", zap.Error(err))
	}
	if c, ok := sessions.(interface{ Close() error }); ok {
		defer func() { _ = c.Close() }()
	}

	var recorder audit.Recorder = audit.Discard{}
	if pool != nil {
		recorder = audit.NewRepository(pool)
	}

	var cleanup webhook.Cleanup
	if pool != nil && cfg.Sessions.Store == "postgres" {
		cleanup = webhook.TxCleanup{Pool: pool}
	}

	m, err := metrics.New()
	if err != nil {
		log.Fatal("metrics", zap.Error(err))
	}

	hooks := auth.Hooks{
		Webhooks:   auth.Webhooks,
		AppURL:     cfg.Shopify.AppURL,
		APIVersion: cfg.Shopify.APIVersion,
		Relay:      relay.New(cfg, log.Named("relay"), m),
		Logger:     log.Named("auth"),
	}

	router := httpapi.NewRouter(httpapi.Dependencies{
		Cfg:       cfg,
		Sessions:  sessions,
		Audit:     recorder,
		AfterAuth: hooks.AfterAuth,
		Cleanup:   cleanup,
		Metrics:   m,
		Logger:    log,
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("http listening", zap.String("addr", cfg.HTTPAddr), zap.String("session_store", cfg.Sessions.Store))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("http serve", zap.Error(err))
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn("http shutdown", zap.Error(err))
	}
}
