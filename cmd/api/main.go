package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cardmint/cardmint/internal/auth"
	"github.com/cardmint/cardmint/internal/background"
	"github.com/cardmint/cardmint/internal/config"
	"github.com/cardmint/cardmint/internal/database"
	"github.com/cardmint/cardmint/internal/handlers"
	middlewareCustom "github.com/cardmint/cardmint/internal/middleware"
	"github.com/cardmint/cardmint/internal/repositories"
	"github.com/cardmint/cardmint/internal/routes"
	"github.com/cardmint/cardmint/internal/services"
	"github.com/cardmint/cardmint/migrations"
	pkghttp "github.com/cardmint/cardmint/pkg/http"
	pkglogger "github.com/cardmint/cardmint/pkg/logger"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("configuration loaded", slog.String("env", cfg.Server.Env))

	// Apply migrations before opening the pool
	if err := database.RunMigrations(cfg.Database.DSN(), migrations.FS); err != nil {
		logger.Error("failed to run migrations", slog.Any("error", err))
		os.Exit(1)
	}

	// Initialize database
	db, err := database.NewConnection(&cfg.Database, logger)
	if err != nil {
		logger.Error("failed to connect to database", slog.Any("error", err))
		os.Exit(1)
	}
	defer db.Close()

	// Initialize repositories
	accountRepo := repositories.NewAccountRepository(db)
	otpRepo := repositories.NewOTPRepository(db)
	blockRepo := repositories.NewBlockRepository(db)
	subscriptionRepo := repositories.NewSubscriptionRepository(db)
	notificationRepo := repositories.NewNotificationRepository(db)

	// Notification provider + outbox
	notifier, err := services.NewNotifier(&cfg.Notify, logger)
	if err != nil {
		logger.Error("failed to initialize notifier", slog.Any("error", err))
		os.Exit(1)
	}
	notificationService := services.NewNotificationService(notificationRepo, logger)

	// Initialize services
	auditLogger := pkglogger.NewAuditLogger(logger)
	otpService := services.NewOTPService(otpRepo, notificationService, logger, auditLogger, cfg.OTP.Expiry)
	accountService := services.NewAccountService(accountRepo, notificationService, logger, auditLogger, cfg.Admin.Email)
	blockService := services.NewBlockService(blockRepo, logger, auditLogger)
	subscriptionService := services.NewSubscriptionService(subscriptionRepo, notificationService, logger, auditLogger, cfg.Admin.Email)

	// Initialize token manager
	tokenManager := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.SessionTokenExpiry)

	// Initialize handlers
	identityHandler := handlers.NewIdentityHandler(otpService, accountService, blockService, tokenManager)
	blockHandler := handlers.NewBlockHandler(blockService, cfg.Admin.Email)
	subscriptionsHandler := handlers.NewSubscriptionsHandler(subscriptionService)

	// Bootstrap the superadmin account so it exists before first login
	bootstrapCtx, bootstrapCancel := context.WithTimeout(context.Background(), 10*time.Second)
	if _, err := accountService.CreateOrUpdate(bootstrapCtx, cfg.Admin.Email); err != nil {
		logger.Error("failed to ensure admin account", slog.Any("error", err))
	}
	bootstrapCancel()

	// Background workers
	cleanupManager := background.NewCleanupManager(otpService, logger, cfg.OTP.CleanupInterval, cfg.OTP.PruneAfter)
	dispatcher := background.NewDispatcher(notificationRepo, notifier, logger, cfg.Notify.DispatchInterval, cfg.Notify.MaxAttempts)

	// Setup CORS middleware
	corsConfig := middlewareCustom.DefaultCORSConfig(cfg.Server.Env)
	corsConfig.AllowedOrigins = cfg.Server.AllowedOrigins

	// Setup router
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middlewareCustom.SecurityHeaders(middlewareCustom.SecurityHeadersConfig{Env: cfg.Server.Env}))
	router.Use(middlewareCustom.CORS(corsConfig))
	router.Use(middlewareCustom.SecureLogger(logger, &pkghttp.IPConfig{TrustedProxies: cfg.Server.TrustedProxies}))
	router.Use(middleware.Recoverer)
	router.Use(middleware.Timeout(60 * time.Second))

	// Register routes
	routes.RegisterRoutes(router, identityHandler, blockHandler, subscriptionsHandler)

	// Health check with database
	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := db.HealthCheck(ctx); err != nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"status":"unhealthy","database":"down"}`))
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy","database":"up"}`))
	})

	// Create server
	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start background workers
	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()

	go cleanupManager.Start(workerCtx)
	go dispatcher.Start(workerCtx)

	// Start server
	go func() {
		logger.Info("starting server", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", slog.Any("error", err))
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info("shutdown signal received")

	workerCancel()
	cleanupManager.Stop()
	dispatcher.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("server stopped gracefully")
}
