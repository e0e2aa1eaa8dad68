package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alexedwards/argon2id"
	"github.com/go-chi/chi/v5"

	"github.com/diagnosis/accounts-api/internal/http/handlers"
	"github.com/diagnosis/accounts-api/internal/repo/postgres"
	"github.com/diagnosis/accounts-api/internal/service"
	"github.com/diagnosis/accounts-api/internal/storage"
	"github.com/diagnosis/accounts-api/internal/validate"
	"github.com/diagnosis/accounts-api/pkg/auth"
	"github.com/diagnosis/accounts-api/pkg/config"
	"github.com/diagnosis/accounts-api/pkg/database"
	"github.com/diagnosis/accounts-api/pkg/logger"
	mw "github.com/diagnosis/accounts-api/pkg/middleware"
)

const serviceName = "accounts-api"

func main() {
	cfg := config.Load()
	ctx := context.Background()

	// Connect to database
	pool, err := database.Connect(ctx, cfg.Database)
	if err != nil {
		logger.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	db := database.SQLDB(pool)
	defer db.Close()

	if cfg.Database.AutoMigrate {
		if err := database.Migrate(ctx, db); err != nil {
			logger.Error("Failed to run migrations", "error", err)
			os.Exit(1)
		}
	}

	checks := map[string]handlers.Checker{
		"postgres": pool.Ping,
	}

	if cfg.Redis.URL != "" {
		rdb, err := database.ConnectRedis(ctx, cfg.Redis)
		if err != nil {
			logger.Error("Failed to connect to redis", "error", err)
			os.Exit(1)
		}
		defer rdb.Close()
		checks["redis"] = database.RedisPinger(rdb)
	}

	var store storage.Storage
	r2, err := storage.NewR2(ctx, cfg.Storage)
	switch {
	case errors.Is(err, storage.ErrNotConfigured):
		logger.Warn("R2 storage not configured; presign and upload are disabled")
	case err != nil:
		logger.Error("Failed to create R2 client", "error", err)
		os.Exit(1)
	default:
		store = r2
	}

	hasher := auth.NewHasher(auth.WithParams(argon2id.Params{
		Memory:      uint32(cfg.Auth.HashMemoryKiB),
		Iterations:  uint32(cfg.Auth.HashIterations),
		Parallelism: uint8(cfg.Auth.HashParallelism),
		SaltLength:  auth.SaltLength,
		KeyLength:   argon2id.DefaultParams.KeyLength,
	}))

	tokens, err := auth.NewTokenIssuer(cfg.Auth.JWTSecret, cfg.Auth.JWTIssuer, cfg.Auth.AccessTokenTTL)
	if err != nil {
		logger.Error("Failed to create token issuer", "error", err)
		os.Exit(1)
	}

	// Initialize repositories
	userRepo := postgres.NewUserRepository(db)
	fileRepo := postgres.NewFileRepository(db)

	// Initialize services
	v := validate.New()
	userService := service.NewUserService(userRepo, hasher, tokens, v)
	fileService := service.NewFileService(fileRepo, store, v, cfg.Storage.PresignTTL)

	// Initialize handlers
	h := handlers.New(userService, fileService, tokens, userRepo, handlers.Options{
		RequireVerified: cfg.Auth.RequireVerified,
		UploadMaxBytes:  cfg.Upload.MaxBytes,
		Checks:          checks,
	})

	// Setup router
	r := chi.NewRouter()

	// Middleware
	r.Use(mw.RequestID)
	r.Use(mw.ServiceName(serviceName))
	r.Use(mw.Logging)
	r.Use(mw.Recoverer)
	r.Use(mw.CORS(cfg.Server.AllowedOrigins))
	r.Use(mw.Health)

	r.Mount("/", h.Routes())

	// Start server
	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		logger.Info("Shutting down accounts service...")

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Accounts service shutdown error", "error", err)
		}
	}()

	logger.Info("Starting accounts service", "port", cfg.Server.Port)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Accounts service error", "error", err)
		os.Exit(1)
	}
}
