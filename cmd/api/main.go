package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-lms-api/internal/config"
	"github.com/noah-isme/gema-lms-api/internal/database"
	"github.com/noah-isme/gema-lms-api/internal/handler"
	"github.com/noah-isme/gema-lms-api/internal/middleware"
	"github.com/noah-isme/gema-lms-api/internal/repository"
	"github.com/noah-isme/gema-lms-api/internal/router"
	"github.com/noah-isme/gema-lms-api/internal/service"
	"github.com/noah-isme/gema-lms-api/internal/utils"
)

func main() {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load configuration")
	}
	logger = logger.With().Str("service", cfg.AppName).Str("env", cfg.AppEnv).Logger()

	db, err := database.ConnectPostgres(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	if err := database.Migrate(db); err != nil {
		logger.Fatal().Err(err).Msg("failed to migrate database")
	}

	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient, err = database.ConnectRedis(cfg.RedisURL, 2*time.Second)
		if err != nil {
			logger.Warn().Err(err).Msg("redis unavailable, gradebook cache disabled")
			redisClient = nil
		} else {
			defer redisClient.Close()
		}
	}

	var publisher service.EventPublisher
	if cfg.NATSURL != "" {
		conn, err := database.ConnectNATS(cfg.NATSURL, cfg.AppName, logger)
		if err != nil {
			logger.Warn().Err(err).Msg("nats unavailable, lifecycle events disabled")
		} else {
			defer conn.Drain()
			publisher = service.NewNATSPublisher(conn, cfg.EventSubject)
		}
	}

	validate := utils.NewValidator()
	store := repository.NewStore(db)

	gradebookService := service.NewGradebookService(store, redisClient, cfg.GradebookCacheTTL, logger)
	courseService := service.NewCourseService(store, validate, publisher, logger)
	assignmentService := service.NewAssignmentService(store, validate, publisher, logger,
		service.WithCourseGradebookInvalidator(gradebookService),
	)
	submissionService := service.NewSubmissionService(store, validate, publisher, logger,
		service.WithGradebookInvalidator(gradebookService),
		service.WithMaxFeedbackLength(cfg.MaxFeedbackLength),
	)
	enrollmentService := service.NewEnrollmentService(store, publisher, logger)
	metadataService := service.NewMetadataService(store, validate, logger)
	activityService := service.NewActivityService(store.Activity, logger)
	seedService := service.NewSeedService(store.Metadata, validate, cfg.SeedEnabled, cfg.SeedToken, logger)

	if cfg.AutoCloseEnabled {
		sweeper := service.NewDeadlineSweeper(store, assignmentService, cfg.AutoCloseGrace, logger)
		scheduler, err := sweeper.Start(cfg.AutoCloseSchedule)
		if err != nil {
			logger.Fatal().Err(err).Str("schedule", cfg.AutoCloseSchedule).Msg("invalid auto-close schedule")
		}
		defer scheduler.Stop()
	}

	probes := map[string]handler.HealthProbe{
		"database": func() error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.Ping()
		},
	}
	if redisClient != nil {
		probes["redis"] = func() error {
			ctx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			return redisClient.Ping(ctx).Err()
		}
	}

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
	})

	middleware.Register(app, middleware.Config{Logger: &logger, CORSOrigins: cfg.CORSOrigins})
	router.Register(app, cfg, router.Dependencies{
		CourseHandler:     handler.NewCourseHandler(courseService, logger),
		AssignmentHandler: handler.NewAssignmentHandler(assignmentService, logger),
		SubmissionHandler: handler.NewSubmissionHandler(submissionService, logger),
		EnrollmentHandler: handler.NewEnrollmentHandler(enrollmentService, logger),
		GradebookHandler:  handler.NewGradebookHandler(gradebookService, logger),
		MetadataHandler:   handler.NewMetadataHandler(metadataService, logger),
		ActivityHandler:   handler.NewActivityHandler(activityService, logger),
		SeedHandler:       handler.NewSeedHandler(seedService, logger),
		HealthProbes:      probes,
		JWTMiddleware:     middleware.JWTProtected(cfg.JWTSecret),
		ExposeMetrics:     true,
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
