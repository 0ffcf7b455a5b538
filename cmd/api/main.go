package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/packrat-app/packrat/internal/config"
	"github.com/packrat-app/packrat/internal/db"
	"github.com/packrat-app/packrat/internal/handlers"
	"github.com/packrat-app/packrat/internal/middleware"
	"github.com/packrat-app/packrat/internal/repo"
	"github.com/packrat-app/packrat/internal/retention"
	"github.com/packrat-app/packrat/internal/watch"
)

func main() {
	cfg := config.Load()

	// Structured logging; "json" for log shippers, text for dev terminals.
	var handler slog.Handler
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stderr, nil)
	} else {
		handler = slog.NewTextHandler(os.Stderr, nil)
	}
	logger := slog.New(handler)
	slog.SetDefault(logger)

	if cfg.Env == "prod" && cfg.JWTSecret == "supersecretkey" {
		logger.Error("JWT_SECRET must be set in prod")
		os.Exit(1)
	}

	database, err := db.Connect(cfg.DBHost, cfg.DBPort, cfg.DBName, cfg.DBUser, cfg.DBPass)
	if err != nil {
		logger.Error("database connect failed", "error", err)
		os.Exit(1)
	}
	defer database.Close()
	database.SetMaxOpenConns(cfg.DBMaxOpenConns)
	database.SetMaxIdleConns(cfg.DBMaxIdleConns)

	if err := db.Run(cfg.DatabaseURL()); err != nil {
		logger.Error("migrations failed", "error", err)
		os.Exit(1)
	}
	logger.Info("database ready")

	assetRepo := repo.NewAssetRepo(database)
	userRepo := repo.NewUserRepo(database)
	auditRepo := repo.NewAuditRepo(database)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// The hub is fed by the asset_events Postgres channel, so watchers see
	// mutations from every server process, not just this one.
	hub := watch.NewHub(assetRepo, logger)
	go func() {
		if err := hub.Listen(ctx, cfg.DatabaseURL()); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("watch listener stopped", "error", err)
		}
	}()

	go retention.Run(ctx, auditRepo, cfg.AuditRetentionDays, logger)

	authHandler := &handlers.AuthHandler{
		UserRepo:    userRepo,
		Secret:      []byte(cfg.JWTSecret),
		ExpireHours: cfg.JWTExpireHours,
	}
	assetHandler := &handlers.AssetHandler{Repo: assetRepo, Audit: auditRepo}
	watchHandler := &handlers.WatchHandler{Hub: hub}
	auditHandler := &handlers.AuditHandler{Repo: auditRepo}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestLog)
	r.Use(middleware.Prometheus)
	r.Use(middleware.SecurityHeaders(cfg.TLSCertFile != "" && cfg.TLSKeyFile != ""))
	r.Use(middleware.CORS(cfg.CORSAllowedOrigins))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())

	authLimiter := middleware.AuthRateLimiter()
	r.Group(func(r chi.Router) {
		r.Use(authLimiter.Middleware)
		r.Use(middleware.MaxBytes(middleware.DefaultMaxBodyBytes))
		r.Post("/auth/register", authHandler.Register)
		r.Post("/auth/login", authHandler.Login)
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.JWT([]byte(cfg.JWTSecret)))
		r.Use(middleware.MaxBytes(middleware.DefaultMaxBodyBytes))

		r.Get("/auth/me", authHandler.Me)

		r.Get("/assets", assetHandler.ListAssets)
		r.Post("/assets", assetHandler.CreateAsset)
		r.Get("/assets/events", watchHandler.WatchCollection)
		r.Get("/assets/{id}", assetHandler.GetAsset)
		r.Patch("/assets/{id}", assetHandler.UpdateAsset)
		r.Delete("/assets/{id}", assetHandler.DeleteAsset)
		r.Get("/assets/{id}/events", watchHandler.WatchDocument)

		r.Get("/audit", auditHandler.ListAudit)
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("shutdown failed", "error", err)
		}
	}()

	logger.Info("starting server", "port", cfg.Port, "env", cfg.Env)
	if cfg.TLSCertFile != "" && cfg.TLSKeyFile != "" {
		err = srv.ListenAndServeTLS(cfg.TLSCertFile, cfg.TLSKeyFile)
	} else {
		err = srv.ListenAndServe()
	}
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server stopped", "error", err)
		os.Exit(1)
	}
}
