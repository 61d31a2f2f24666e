package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/ymori/authkit/internal/background"
	"github.com/ymori/authkit/internal/config"
	"github.com/ymori/authkit/internal/database"
	"github.com/ymori/authkit/internal/handlers"
	"github.com/ymori/authkit/internal/lockout"
	"github.com/ymori/authkit/internal/metrics"
	"github.com/ymori/authkit/internal/middleware"
	"github.com/ymori/authkit/internal/ratelimit"
	"github.com/ymori/authkit/internal/repositories"
	"github.com/ymori/authkit/internal/routes"
	"github.com/ymori/authkit/internal/services"
	"github.com/ymori/authkit/internal/token"
	pkgauth "github.com/ymori/authkit/pkg/auth"
	pkghttp "github.com/ymori/authkit/pkg/http"
	pkglogger "github.com/ymori/authkit/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: parseLogLevel(cfg.Server.LogLevel),
	}))
	slog.SetDefault(logger)
	logger.Info("configuration loaded", slog.String("env", cfg.Server.Env))

	if cfg.Database.RunMigrations {
		if err := database.Migrate(&cfg.Database, logger); err != nil {
			logger.Error("failed to run migrations", slog.Any("error", err))
			os.Exit(1)
		}
	}

	db, err := database.NewConnection(&cfg.Database, logger)
	if err != nil {
		logger.Error("failed to connect to database", slog.Any("error", err))
		os.Exit(1)
	}
	defer db.Close()

	userRepo := repositories.NewUserRepository(db)
	sessionRepo := repositories.NewSessionRepository(db)
	attemptRepo := repositories.NewLoginAttemptRepository(db)

	hasher := pkgauth.NewHasher(func() int { return cfg.Auth.BcryptCost })
	auditLogger := pkglogger.NewAuditLogger(logger)

	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	guard := lockout.NewGuard(attemptRepo, lockout.Config{
		Enabled:         cfg.Auth.LockoutEnabled,
		Threshold:       cfg.Auth.LockoutThreshold,
		LockoutDuration: cfg.Auth.LockoutDuration,
		LookbackWindow:  cfg.Auth.LockoutLookback,
	}, logger)

	limiterCfg := ratelimit.Config{
		Enabled: cfg.Auth.RateLimitEnabled,
		Window:  cfg.Auth.RateLimitWindow,
		Max:     cfg.Auth.RateLimitMax,
	}

	// A redis address switches the sign-in limiter to the shared
	// sliding window; otherwise each instance keeps its own.
	var limiter ratelimit.KeyLimiter
	var limiterCleaner background.LimiterCleaner
	if cfg.Redis.Addr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		limiter = ratelimit.NewRedisLimiter(client, limiterCfg)
		logger.Info("using redis rate limiter", slog.String("addr", cfg.Redis.Addr))
	} else {
		memLimiter := ratelimit.New(limiterCfg)
		limiter = memLimiter
		limiterCleaner = memLimiter
	}

	issuer, err := token.NewIssuer(sessionRepo, hasher, pkgauth.GenerateToken, token.Config{
		AccessTokenTTL: cfg.Auth.AccessTokenTTL,
		ResetTokenTTL:  cfg.Auth.ResetTokenTTL,
	}, logger)
	if err != nil {
		logger.Error("failed to initialize token issuer", slog.Any("error", err))
		os.Exit(1)
	}

	var notifier services.LockoutNotifier
	if cfg.Email.Enabled {
		emailService, err := services.NewAWSSESEmailService(cfg.Email.AWSRegion, cfg.Email.FromAddress, logger)
		if err != nil {
			logger.Error("failed to initialize email service", slog.Any("error", err))
			os.Exit(1)
		}
		notifier = emailService
	}

	authService := services.NewAuthService(
		userRepo, limiter, guard, issuer, hasher, notifier,
		collector, logger, auditLogger,
	)
	userService := services.NewUserService(userRepo, hasher, logger)

	ipConfig := &pkghttp.IPConfig{TrustedProxies: cfg.Server.TrustedProxies}
	authHandler := handlers.NewAuthHandler(authService, ipConfig)
	userHandler := handlers.NewUserHandler(userService)

	cleanupManager := background.NewCleanupManager(
		guard, sessionRepo, limiterCleaner, collector, logger,
		cfg.Auth.CleanupInterval, cfg.Auth.AttemptRetentionDays,
	)

	router := chi.NewRouter()
	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.RealIP)
	router.Use(middleware.SecurityHeaders(middleware.SecurityHeadersConfig{Env: cfg.Server.Env}))
	router.Use(middleware.CORS(middleware.NewCORSConfig(cfg.Server.AllowedOrigins)))
	router.Use(middleware.SecureLogger(logger))
	router.Use(chimiddleware.Recoverer)
	router.Use(chimiddleware.Timeout(60 * time.Second))

	routes.RegisterRoutes(router, authHandler, userHandler, db, registry)

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	cleanupCtx, cleanupCancel := context.WithCancel(context.Background())
	defer cleanupCancel()
	go cleanupManager.Start(cleanupCtx)

	go func() {
		logger.Info("starting server", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", slog.Any("error", err))
			os.Exit(1)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info("shutdown signal received")

	cleanupCancel()
	cleanupManager.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("server stopped gracefully")
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
