package main

import (
	"context"
	"errors"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/edusupervise/supervision-engine/pkg/audit"
	"github.com/edusupervise/supervision-engine/pkg/auth"
	"github.com/edusupervise/supervision-engine/pkg/config"
	"github.com/edusupervise/supervision-engine/pkg/database"
	"github.com/edusupervise/supervision-engine/pkg/email"
	"github.com/edusupervise/supervision-engine/pkg/handlers"
	"github.com/edusupervise/supervision-engine/pkg/logging"
	"github.com/edusupervise/supervision-engine/pkg/middleware"
	"github.com/edusupervise/supervision-engine/pkg/repositories"
	"github.com/edusupervise/supervision-engine/pkg/services"
	"github.com/edusupervise/supervision-engine/pkg/storage"
	"github.com/edusupervise/supervision-engine/pkg/validation"
)

// Version is set at build time via ldflags
var Version = "dev"

func main() {
	// Load configuration
	cfg, err := config.Load(Version)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := newLogger(cfg)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Configuration loaded",
		zap.String("env", cfg.Env),
		zap.String("base_url", cfg.BaseURL),
		zap.String("database", logging.SanitizeConnectionString(cfg.Database.ConnectionString())),
		zap.String("email_provider", cfg.Email.Provider),
		zap.String("upload_dir", cfg.Storage.UploadDir))

	ctx := context.Background()

	db, err := database.NewConnection(ctx, &database.Config{
		URL:             cfg.Database.ConnectionString(),
		MaxConnections:  cfg.Database.MaxConnections,
		MaxConnLifetime: cfg.Database.MaxConnLifetime,
		MaxConnIdleTime: cfg.Database.MaxConnIdleTime,
		TimeZone:        cfg.Database.TimeZone,
	}, logger)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.String("error", logging.SanitizeError(err)))
	}
	defer db.Close()

	if err := db.Migrate(logger); err != nil {
		logger.Fatal("Failed to run migrations", zap.Error(err))
	}

	// Repositories
	userRepo := repositories.NewUserRepository()
	schoolRepo := repositories.NewSchoolRepository()
	groupRepo := repositories.NewNetworkGroupRepository()
	policyRepo := repositories.NewPolicyRepository()
	supervisionRepo := repositories.NewSupervisionRepository()
	ackRepo := repositories.NewAcknowledgementRepository()
	improvementRepo := repositories.NewImprovementRepository()
	activityRepo := repositories.NewActivityLogRepository()
	settingsRepo := repositories.NewSettingsRepository()
	statsRepo := repositories.NewStatsRepository(db)

	// Outbound dependencies
	mailer, err := email.NewSender(cfg.Email, logger)
	if err != nil {
		logger.Fatal("Failed to configure email", zap.Error(err))
	}
	fileStore := storage.NewLocalStore(cfg.Storage.UploadDir, cfg.Storage.PublicPrefix, cfg.Storage.MaxFileBytes, logger)

	// Services
	activityService := services.NewActivityLogService(activityRepo, logger)
	userService := services.NewUserService(userRepo, activityService, database.InTx, logger)
	schoolService := services.NewSchoolService(schoolRepo, userRepo, database.InTx, logger)
	groupService := services.NewNetworkGroupService(groupRepo, logger)
	policyService := services.NewPolicyService(policyRepo, logger)
	supervisionService := services.NewSupervisionService(
		supervisionRepo, ackRepo, schoolRepo, userRepo, policyRepo,
		activityService, mailer, cfg.BaseURL, logger,
	)
	improvementService := services.NewImprovementService(improvementRepo, schoolRepo, activityService, logger)
	statsService := services.NewStatsService(statsRepo, schoolRepo, supervisionRepo, logger)
	settingsService := services.NewSettingsService(settingsRepo, logger)
	reportService := services.NewReportService(supervisionService, logger)
	uploadService := services.NewUploadService(fileStore, cfg.Storage.MaxFileBytes, logger)

	// Authentication
	sessions := auth.NewSessionStore(auth.SessionOptions{
		Secret:     cfg.Session.Secret,
		CookieName: cfg.Session.CookieName,
		MaxAge:     cfg.Session.MaxAge,
		Secure:     auth.SecureCookies(cfg.BaseURL, cfg.Session.Secure),
	})
	tokens := auth.NewTokenIssuer(cfg.Session.Secret, cfg.Session.TokenTTL)
	auditor := audit.NewSecurityAuditor(logger)
	authMiddleware := auth.NewMiddleware(auth.NewAuthService(sessions, tokens, logger), userRepo, auditor, logger)
	scope := handlers.ScopeMiddleware(database.WithScopeContext(db, logger))

	validator := validation.New()
	errs := handlers.NewErrorWriter(auditor, logger)
	importService := services.NewImportService(schoolService, groupService, policyService, activityService, validator, logger)

	mux := http.NewServeMux()

	// Register handlers
	handlers.NewHealthHandler(cfg, db, logger).RegisterRoutes(mux)
	handlers.NewAuthHandler(userService, sessions, tokens, auditor, validator, errs, logger).RegisterRoutes(mux, authMiddleware, scope)
	handlers.NewUserHandler(userService, validator, errs, logger).RegisterRoutes(mux, authMiddleware, scope)
	handlers.NewSchoolHandler(schoolService, validator, errs, logger).RegisterRoutes(mux, authMiddleware, scope)
	handlers.NewNetworkGroupHandler(groupService, validator, errs, logger).RegisterRoutes(mux, authMiddleware, scope)
	handlers.NewPolicyHandler(policyService, validator, errs, logger).RegisterRoutes(mux, authMiddleware, scope)
	handlers.NewSupervisionHandler(supervisionService, validator, errs, logger).RegisterRoutes(mux, authMiddleware, scope)
	handlers.NewImprovementHandler(improvementService, validator, errs, logger).RegisterRoutes(mux, authMiddleware, scope)
	handlers.NewUploadHandler(uploadService, cfg.Storage.MaxFileBytes, errs, logger).RegisterRoutes(mux, authMiddleware, scope)
	handlers.NewImportHandler(importService, cfg.Storage.MaxFileBytes, errs, logger).RegisterRoutes(mux, authMiddleware, scope)
	handlers.NewStatsHandler(statsService, errs, logger).RegisterRoutes(mux, authMiddleware, scope)
	handlers.NewReportHandler(reportService, errs, logger).RegisterRoutes(mux, authMiddleware, scope)
	handlers.NewSettingsHandler(settingsService, errs, logger).RegisterRoutes(mux, authMiddleware, scope)
	handlers.NewActivityLogHandler(activityService, errs, logger).RegisterRoutes(mux, authMiddleware, scope)

	// Serve uploaded attachments
	prefix := "/" + strings.Trim(cfg.Storage.PublicPrefix, "/") + "/"
	mux.Handle("GET "+prefix, http.StripPrefix(prefix, http.FileServer(http.Dir(cfg.Storage.UploadDir))))

	server := &http.Server{
		Addr:              net.JoinHostPort(cfg.BindAddr, cfg.Port),
		Handler:           middleware.RequestInfo(middleware.RequestLogger(logger)(mux)),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("Starting supervision-engine",
			zap.String("addr", server.Addr),
			zap.String("version", cfg.Version))
		serverErrors <- server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Server failed", zap.Error(err))
		}

	case sig := <-shutdown:
		logger.Info("Shutting down", zap.String("signal", sig.String()))

		// give outstanding requests a deadline for completion
		ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			logger.Error("Could not stop server gracefully", zap.Error(err))
			if err := server.Close(); err != nil {
				logger.Error("Could not force stop server", zap.Error(err))
			}
		}
	}
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	if cfg.IsLocal() {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
