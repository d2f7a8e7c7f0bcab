package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-evaluation-api/internal/config"
	"github.com/noah-isme/gema-evaluation-api/internal/database"
	"github.com/noah-isme/gema-evaluation-api/internal/events"
	"github.com/noah-isme/gema-evaluation-api/internal/handler"
	"github.com/noah-isme/gema-evaluation-api/internal/middleware"
	"github.com/noah-isme/gema-evaluation-api/internal/repository"
	"github.com/noah-isme/gema-evaluation-api/internal/router"
	"github.com/noah-isme/gema-evaluation-api/internal/service"
)

func main() {
	logger := zerolog.New(os.Stdout).With().Timestamp().Str("service", "evaluation-api").Logger()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load configuration")
	}

	connectCtx, cancelConnect := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancelConnect()

	db, err := database.ConnectPostgres(connectCtx, cfg.DatabaseURL, cfg.PoolOptions())
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	if cfg.AutoMigrate {
		if err := database.Migrate(db); err != nil {
			logger.Fatal().Err(err).Msg("failed to migrate database")
		}
	}

	redisClient, err := database.ConnectRedis(connectCtx, cfg.RedisURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to redis")
	}
	defer redisClient.Close()

	var publisher events.Publisher = events.NoopPublisher{}
	if cfg.NATSURL != "" {
		conn, err := database.ConnectNATS(cfg.NATSURL, cfg.AppName)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect to nats")
		}
		publisher = events.NewNATSPublisher(conn, cfg.EventSubjectBase, logger)
	} else {
		logger.Warn().Msg("nats url not configured, session events are not published")
	}
	defer publisher.Close()

	validate := validator.New(validator.WithRequiredStructEnabled())

	sessionRepo := repository.NewEvaluationSessionRepository(db)
	submissionRepo := repository.NewEvaluationSubmissionRepository(db)
	catalogRepo := repository.NewEvaluationCatalogRepository(db)
	directoryRepo := repository.NewCourseDirectoryRepository(db)
	activityRepo := repository.NewActivityLogRepository(db)

	activityService := service.NewActivityService(activityRepo, logger)
	catalogService := service.NewCatalogService(catalogRepo, redisClient, cfg.CatalogCacheTTL, logger)
	sessionService := service.NewSessionService(sessionRepo, directoryRepo, activityService, publisher, validate, logger)
	analyticsService := service.NewAnalyticsService(submissionRepo, directoryRepo, catalogService, redisClient, cfg.AnalyticsCacheTTL, logger)
	submissionService := service.NewSubmissionService(submissionRepo, sessionRepo, directoryRepo, catalogService, analyticsService, validate, logger)
	wizardService := service.NewWizardService(redisClient, cfg.WizardDraftTTL, sessionRepo, catalogService, submissionService, validate, logger)
	seedService := service.NewSeedService(catalogRepo, catalogService, activityService, cfg.SeedEnabled, cfg.SeedToken, logger)

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
	})

	middleware.Register(app, middleware.Config{Logger: &logger, AllowOrigins: cfg.CORSAllowOrigins})
	router.Register(app, cfg, router.Dependencies{
		CatalogHandler:    handler.NewEvaluationCatalogHandler(catalogService, logger),
		SessionHandler:    handler.NewEvaluationSessionHandler(sessionService, submissionService, logger),
		SubmissionHandler: handler.NewEvaluationSubmissionHandler(submissionService, wizardService, logger),
		AnalyticsHandler:  handler.NewEvaluationAnalyticsHandler(analyticsService, logger),
		ActivityHandler:   handler.NewAdminActivityHandler(activityService, logger),
		SeedHandler:       handler.NewSeedHandler(seedService, logger),
		HealthProbes: map[string]handler.HealthProbe{
			"postgres": database.PingPostgres(db),
			"redis":    database.PingRedis(redisClient),
		},
		JWTMiddleware:    middleware.JWTProtected(cfg.JWTSecret),
		RateLimitStorage: middleware.NewRedisStorage(redisClient, "gema:ratelimit:"),
	})

	go func() {
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			logger.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	waitForShutdown(app, logger)
}

func waitForShutdown(app *fiber.App, logger zerolog.Logger) {
	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-shutdownCtx.Done()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}

	logger.Info().Msg("server stopped")
}
