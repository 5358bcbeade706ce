package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"

	"github.com/castellanosdev/taller-ordenes/backend/internal/auth"
	"github.com/castellanosdev/taller-ordenes/backend/internal/config"
	"github.com/castellanosdev/taller-ordenes/backend/internal/health"
	"github.com/castellanosdev/taller-ordenes/backend/internal/images"
	"github.com/castellanosdev/taller-ordenes/backend/internal/logger"
	appmw "github.com/castellanosdev/taller-ordenes/backend/internal/middleware"
	"github.com/castellanosdev/taller-ordenes/backend/internal/metrics"
	"github.com/castellanosdev/taller-ordenes/backend/internal/orders"
	"github.com/castellanosdev/taller-ordenes/backend/internal/repository"
	"github.com/castellanosdev/taller-ordenes/backend/internal/storage"
)

const version = "1.0.0"

func main() {
	cfg := config.Load()

	log := logger.New(logger.DefaultConfig())
	slog.SetDefault(log)

	// Two handles to the same database: pgxpool for the auth
	// repositories, sqlx for the order and image ones.
	dbPool, err := setupDatabase(cfg, log)
	if err != nil {
		log.Error("failed to connect to database", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer dbPool.Close()

	sqlxDB, err := sqlx.Connect("pgx", cfg.Database.DSN())
	if err != nil {
		log.Error("failed to open sqlx connection", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer sqlxDB.Close()

	store, err := buildStore(cfg)
	if err != nil {
		log.Error("failed to initialize storage backend", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Repositories
	userRepo := repository.NewUserRepository(dbPool)
	sessionRepo := repository.NewSessionRepository(dbPool)
	orderRepo := repository.NewOrderRepo(sqlxDB)
	imageRepo := repository.NewImageRepo(sqlxDB)

	// Services
	authService := auth.NewService(userRepo, sessionRepo, auth.Config{
		SessionDuration:       cfg.Auth.SessionDuration,
		RememberTokenDuration: cfg.Auth.RememberTokenDuration,
	}, log)

	baseURL := cfg.Server.PublicBaseURL
	if baseURL == "" {
		baseURL = "http://" + cfg.Server.Host + ":" + cfg.Server.Port
	}
	imageService := images.NewService(imageRepo, store, baseURL, log)
	orderService := orders.NewService(orderRepo, imageService, log)

	// Handlers and middleware
	cookies := auth.NewCookieWriter(cfg.Auth.SecureCookies, cfg.Auth.SessionDuration, cfg.Auth.RememberTokenDuration)
	authHandler := auth.NewHandler(authService, cookies)
	orderHandler := orders.NewHandler(orderService, log)
	imageHandler := images.NewHandler(imageService, log)

	gate := appmw.NewGate(authService, cookies, cfg.Server.LoginPath, cfg.Server.HomePath)
	loginLimiter := appmw.LoginRateLimit(5, time.Minute)
	logging := appmw.NewLoggingMiddleware(log)

	healthHandler := health.NewHandler(health.Config{
		DBPool:  dbPool,
		Version: version,
		Timeout: 5 * time.Second,
	})

	dbStats := metrics.NewDBStatsCollector(dbPool, sqlxDB.DB, log)
	dbStats.Start(15 * time.Second)
	defer dbStats.Stop()

	// Router
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(60 * time.Second))
	r.Use(logging.Handler)
	r.Use(metrics.Middleware)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{baseURL, "http://localhost:3000"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-CSRF-Token"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Probes and metrics
	r.Get("/health", healthHandler.Health)
	r.Get("/health/ready", healthHandler.Readiness)
	r.Get("/health/live", healthHandler.Liveness)
	r.Method("GET", "/metrics", metrics.Handler())

	// API
	r.Route("/api/v1", func(r chi.Router) {
		auth.RegisterRoutes(r, authHandler, gate.API(), loginLimiter)
	})
	orders.RegisterRoutes(r, orderHandler, gate.API())
	images.RegisterRoutes(r, imageHandler, gate.API())
	images.RegisterPublicRoutes(r, imageHandler)

	// Pages: the login page bounces authenticated visitors to the
	// dashboard; every other page bounces anonymous visitors to login.
	pages := http.FileServer(http.Dir(cfg.Server.StaticDir))
	r.Group(func(r chi.Router) {
		r.Use(gate.Page(true))
		r.Get("/", pages.ServeHTTP)
	})
	r.Group(func(r chi.Router) {
		r.Use(gate.Page(false))
		r.Get("/dashboard/*", pages.ServeHTTP)
	})

	addr := cfg.Server.Host + ":" + cfg.Server.Port
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("starting server", slog.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server failed", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server")
	healthHandler.SetReady(false)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error("server forced to shutdown", slog.String("error", err.Error()))
		os.Exit(1)
	}

	log.Info("server exited")
}

// buildStore selects the storage backend for image binaries
func buildStore(cfg *config.Config) (storage.Store, error) {
	switch cfg.Uploads.Backend {
	case "s3":
		return storage.NewS3Store(&cfg.Uploads)
	case "local", "":
		return storage.NewLocalStore(cfg.Uploads.Root)
	default:
		return nil, fmt.Errorf("unknown uploads backend %q", cfg.Uploads.Backend)
	}
}

// setupDatabase creates and configures the database connection pool
func setupDatabase(cfg *config.Config, log *slog.Logger) (*pgxpool.Pool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	poolConfig, err := pgxpool.ParseConfig(cfg.Database.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", err)
	}

	poolConfig.MaxConns = 25
	poolConfig.MinConns = 2
	poolConfig.MaxConnLifetime = 5 * time.Minute
	poolConfig.MaxConnIdleTime = 1 * time.Minute
	poolConfig.HealthCheckPeriod = 30 * time.Second

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create database pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	log.Info("connected to database",
		slog.String("name", cfg.Database.DBName),
		slog.String("host", cfg.Database.Host),
		slog.String("port", cfg.Database.Port),
	)
	return pool, nil
}
