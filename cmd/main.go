package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"accounts/api/handler"
	apiMiddleware "accounts/api/middleware"
	"accounts/api/routes"
	"accounts/config"
	"accounts/internal/repository"
	"accounts/internal/service"
	"accounts/internal/utils"
	"accounts/internal/validation"

	"github.com/labstack/echo/v4"
	echoMiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetOutput(os.Stdout)

	cfg, err := config.Load()
	if err != nil {
		logger.WithError(err).Fatal("invalid configuration")
	}
	if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		logger.SetLevel(level)
	} else {
		logger.WithField("level", cfg.LogLevel).Warn("unknown LOG_LEVEL, using info")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := config.ConnectWithRetry(ctx, cfg, 10, logger)
	if err != nil {
		logger.WithError(err).Fatal("database unavailable")
	}
	if err := config.Migrate(ctx, db); err != nil {
		logger.WithError(err).Fatal("migrations failed")
	}

	userRepo := repository.NewUserRepository(db)
	roleRepo := repository.NewRoleRepository(db)
	securityRepo := repository.NewSecurityLogRepository(db)

	roleGraph := service.NewRoleGraph(roleRepo)
	if err := roleGraph.SetupDefaults(ctx); err != nil {
		logger.WithError(err).Error("seeding default roles failed")
	}

	validate := validation.New()
	audit := service.NewSecurityAudit(securityRepo, logger)
	credentials := service.NewCredentialStore(service.BcryptPasswordHasher{Cost: cfg.BcryptCost}, cfg.RecoveryKeyCount)
	tokens := service.NewTokenService(&utils.JWTManager{
		Secret:         cfg.JWTSecret,
		Issuer:         cfg.JWTIssuer,
		AccessTokenTTL: service.AccessTokenTTL,
	})
	tracker := service.NewSecurityTracker(
		userRepo,
		credentials,
		service.NewTOTPProvider(cfg.MFAIssuer),
		audit,
		service.RealClock{},
		service.AuthConfig{
			LockoutThreshold: cfg.LockoutThreshold,
			LockoutDuration:  cfg.LockoutDuration,
			ResetTokenTTL:    cfg.ResetTokenTTL,
			RecoveryKeyCount: cfg.RecoveryKeyCount,
			MFAIssuer:        cfg.MFAIssuer,
		},
	)

	var mailer service.EmailSender
	if sender := service.NewResendEmailSender(cfg.ResendAPIKey, cfg.EmailFrom, cfg.AppBaseURL); sender != nil {
		mailer = sender
	} else {
		logger.Warn("RESEND_API_KEY or EMAIL_FROM not set, password reset mail is disabled")
	}

	authService, err := service.NewAuthService(userRepo, roleGraph, credentials, tokens, tracker, mailer, validate, audit, logger)
	if err != nil {
		logger.WithError(err).Fatal("auth service")
	}
	profileService := service.NewProfileService(userRepo, validate, audit)

	app := echo.New()
	app.IPExtractor = echo.ExtractIPDirect()
	app.HideBanner = true
	app.HidePort = true
	app.Use(echoMiddleware.Recover())
	app.Use(echoMiddleware.RequestLoggerWithConfig(echoMiddleware.RequestLoggerConfig{
		LogStatus:   true,
		LogMethod:   true,
		LogURI:      true,
		LogRemoteIP: true,
		LogLatency:  true,
		LogError:    true,
		HandleError: true,
		LogValuesFunc: func(c echo.Context, v echoMiddleware.RequestLoggerValues) error {
			entry := logger.WithFields(logrus.Fields{
				"status":  v.Status,
				"method":  v.Method,
				"uri":     v.URI,
				"ip":      v.RemoteIP,
				"latency": v.Latency.String(),
			})
			if v.Error != nil {
				entry.WithError(v.Error).Error("request")
				return nil
			}
			entry.Info("request")
			return nil
		},
	}))
	app.Use(echoMiddleware.CORS())
	app.Use(echoMiddleware.BodyLimit("10M"))
	app.Use(echoMiddleware.ContextTimeout(cfg.RequestTimeout))

	router := routes.NewRouter(
		app,
		handler.NewAuthHandler(authService, logger),
		handler.NewProfileHandler(profileService, logger),
		handler.NewAdminHandler(authService, roleGraph, logger),
		&handler.HealthHandler{Ping: pinger(db), Logger: logger},
		apiMiddleware.AuthMiddleware{Auth: authService},
		authService,
	)
	router.RegisterRoutes()

	server := &http.Server{
		Addr:              cfg.Addr(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.WithFields(logrus.Fields{"addr": cfg.Addr(), "env": cfg.Environment}).Info("server started")
		if err := app.StartServer(server); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Fatal("server stopped")
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := app.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("graceful shutdown failed")
	}
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}

func pinger(db *gorm.DB) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		return sqlDB.PingContext(ctx)
	}
}
