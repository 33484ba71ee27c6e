package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/codelab-portal/internal/backend"
	"github.com/noah-isme/codelab-portal/internal/config"
	"github.com/noah-isme/codelab-portal/internal/database"
	"github.com/noah-isme/codelab-portal/internal/events"
	"github.com/noah-isme/codelab-portal/internal/handler"
	"github.com/noah-isme/codelab-portal/internal/middleware"
	"github.com/noah-isme/codelab-portal/internal/observability"
	"github.com/noah-isme/codelab-portal/internal/repository"
	"github.com/noah-isme/codelab-portal/internal/router"
	"github.com/noah-isme/codelab-portal/internal/service"
	"github.com/noah-isme/codelab-portal/internal/session"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Str("service", cfg.AppName).Logger()
	if cfg.IsProduction() {
		logger = logger.Level(zerolog.InfoLevel)
	}
	observability.RegisterMetrics()

	db, err := database.ConnectPostgres(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	redisClient, err := database.ConnectRedis(context.Background(), cfg.RedisURL, cfg.AppName)
	if err != nil {
		log.Fatalf("failed to connect to redis: %v", err)
	}
	defer redisClient.Close()

	natsConn, err := database.ConnectNATS(cfg.NATSURL, cfg.AppName)
	if err != nil {
		log.Fatalf("failed to connect to nats: %v", err)
	}
	if natsConn != nil {
		defer natsConn.Close()
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	bus := events.NewBus(redisClient, cfg.EventsChannel, natsConn, logger)
	store := session.NewStore(redisClient, cfg.SessionTTL)
	issuer := session.NewIssuer(cfg.SessionSecret, cfg.SessionTTL, cfg.AppName)
	gateway := backend.NewClient(cfg.BackendURL,
		backend.WithTimeout(cfg.BackendTimeout),
		backend.WithLogger(logger),
	)

	validate := validator.New(validator.WithRequiredStructEnabled())

	activityRepo := repository.NewActivityLogRepository(db)
	activityService := service.NewActivityService(activityRepo, logger)

	authService := service.NewAuthService(gateway, store, issuer, validate, activityService, cfg.DefaultTeacherID, logger)
	learningService := service.NewLearningService(gateway, logger)
	workspaceService := service.NewWorkspaceService(gateway, activityService, bus, cfg.WorkspaceIdleTTL, logger)
	dashboardService := service.NewDashboardService(gateway, redisClient, cfg.DashboardCacheTTL, cfg.FanOutConcurrency, logger)
	adminClassService := service.NewAdminClassService(gateway, validate, activityService, cfg.FanOutConcurrency, logger)
	adminExerciseService := service.NewAdminExerciseService(gateway, validate, activityService, bus, logger)

	store.OnDelete(workspaceService.Drop)
	workspaceService.Start(ctx)
	dashboardService.Start(ctx, bus)

	authHandler := handler.NewAuthHandler(authService, logger)
	learningHandler := handler.NewLearningHandler(learningService, logger)
	workspaceHandler := handler.NewWorkspaceHandler(workspaceService, validate, logger)
	adminDashboardHandler := handler.NewAdminDashboardHandler(dashboardService, logger)
	adminClassHandler := handler.NewAdminClassHandler(adminClassService, logger)
	adminExerciseHandler := handler.NewAdminExerciseHandler(adminExerciseService, logger)
	adminActivityHandler := handler.NewAdminActivityHandler(activityService, logger)

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
		BodyLimit:    cfg.UploadMaxMB * 1024 * 1024,
	})

	middleware.Register(app, middleware.Config{
		Logger:       &logger,
		AllowOrigins: cfg.CORSAllowedOrigins,
		AccessLog:    !cfg.IsProduction(),
	})
	router.Register(app, cfg, router.Dependencies{
		AuthHandler:           authHandler,
		LearningHandler:       learningHandler,
		WorkspaceHandler:      workspaceHandler,
		AdminDashboardHandler: adminDashboardHandler,
		AdminClassHandler:     adminClassHandler,
		AdminExerciseHandler:  adminExerciseHandler,
		AdminActivityHandler:  adminActivityHandler,
		SessionMiddleware:     middleware.SessionProtected(issuer, store),
		RunLimiter:            middleware.RateLimit("run", cfg.RunRateLimit, cfg.RunRateWindow),
		HealthProbes: []handler.HealthProbe{
			{Name: "redis", Check: func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }},
			{Name: "database", Check: func(ctx context.Context) error {
				sqlDB, err := db.DB()
				if err != nil {
					return err
				}
				return sqlDB.PingContext(ctx)
			}},
		},
	})

	go func() {
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	waitForShutdown(app, cancel)
}

func waitForShutdown(app *fiber.App, stopWorkers context.CancelFunc) {
	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-shutdownCtx.Done()
	stopWorkers()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}

	log.Println("server stopped")
}
