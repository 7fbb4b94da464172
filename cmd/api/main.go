package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/campus-portal-api/internal/config"
	"github.com/noah-isme/campus-portal-api/internal/database"
	"github.com/noah-isme/campus-portal-api/internal/handler"
	"github.com/noah-isme/campus-portal-api/internal/middleware"
	"github.com/noah-isme/campus-portal-api/internal/repository"
	"github.com/noah-isme/campus-portal-api/internal/router"
	"github.com/noah-isme/campus-portal-api/internal/service"
	"github.com/noah-isme/campus-portal-api/internal/utils"
	cloud "github.com/noah-isme/campus-portal-api/pkg/cloudinary"
)

func main() {
	logger := zerolog.New(os.Stdout).With().Timestamp().Str("service", "campus-portal-api").Logger()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load configuration")
	}
	logger = logger.With().Str("env", cfg.AppEnv).Logger()

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.ConnectPostgres(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	if err := database.Migrate(db); err != nil {
		logger.Fatal().Err(err).Msg("failed to migrate database")
	}

	redisClient, err := database.ConnectRedis(rootCtx, cfg.RedisURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to redis")
	}
	if redisClient != nil {
		defer redisClient.Close()
	} else {
		logger.Warn().Msg("redis not configured; caches, locks and cross-node fan-out disabled")
	}

	natsConn, err := database.ConnectNATS(cfg.NATSURL, cfg.AppName)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to nats")
	}
	if natsConn != nil {
		defer natsConn.Drain()
	}

	validate := utils.NewValidator()

	profileRepo := repository.NewProfileRepository(db)
	communityRepo := repository.NewCommunityRepository(db)
	gatewayRepo := repository.NewPaymentGatewayRepository(db)
	eventRepo := repository.NewEventRepository(db)
	walletRepo := repository.NewWalletRepository(db)
	settingRepo := repository.NewSettingRepository(db)
	blogRepo := repository.NewBlogRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	activityRepo := repository.NewActivityLogRepository(db)
	analyticsRepo := repository.NewAdminAnalyticsRepository(db)
	uploadRepo := repository.NewUploadRepository(db)
	locks := repository.NewKeyLock(redisClient, cfg.RealtimeChannel+":lock", 5*time.Second)

	activityService := service.NewActivityService(activityRepo, validate, logger)
	notificationService := service.NewNotificationService(notificationRepo, redisClient, cfg.RealtimeChannel, natsConn, validate, logger)
	liveFeedService := service.NewLiveFeedService(redisClient, cfg.RealtimeChannel, natsConn, cfg.SSEKeepAlive, logger)
	profileService := service.NewProfileService(profileRepo, logger)
	communityService := service.NewCommunityService(communityRepo, profileRepo, service.CommunityDeps{
		Notifier: notificationService,
		Feed:     liveFeedService,
		Activity: activityService,
		Lock:     locks,
	}, validate, logger)
	gatewayService := service.NewGatewayService(gatewayRepo, activityService, locks, cfg.FunctionsBaseURL, validate, logger)
	settingService := service.NewSettingService(settingRepo, activityService, cfg.EventCreationFee, validate, logger)
	walletService := service.NewWalletService(walletRepo, activityService, validate, logger)
	eventService := service.NewEventService(eventRepo, walletRepo, settingService, validate, logger)
	blogService := service.NewBlogService(blogRepo, redisClient, cfg.BlogCacheTTL, activityService, validate, logger)
	analyticsService := service.NewAdminAnalyticsService(analyticsRepo, gatewayRepo, redisClient, cfg.AnalyticsCacheTTL, logger)

	notificationService.Start(rootCtx)
	liveFeedService.Start(rootCtx)

	var uploadHandler *handler.UploadHandler
	cloudCfg := cloud.Config{
		CloudName: cfg.CloudinaryCloudName,
		APIKey:    cfg.CloudinaryAPIKey,
		APISecret: cfg.CloudinaryAPISecret,
		Folder:    cfg.CloudinaryUploadFolder,
	}
	if cloudCfg.Configured() {
		storage, err := cloud.New(cloudCfg, logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to create cloudinary client")
		}
		uploadService := service.NewUploadService(storage, uploadRepo, cfg.UploadMaxMB, logger)
		uploadHandler = handler.NewUploadHandler(uploadService, logger)
	} else {
		logger.Warn().Msg("cloudinary not configured; image uploads disabled")
	}

	healthChecks := map[string]handler.Pinger{
		"postgres": func(ctx context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		},
	}
	if redisClient != nil {
		healthChecks["redis"] = func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		}
	}

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
		BodyLimit:    (cfg.UploadMaxMB + 1) * 1024 * 1024,
	})

	middleware.Register(app, middleware.Config{Logger: &logger, AllowOrigins: cfg.CORSAllowOrigins})
	router.Register(app, cfg, router.Dependencies{
		CommunityHandler: handler.NewCommunityHandler(communityService, liveFeedService, validate, handler.CommunityLimits{
			PostsPerMinute:     cfg.PostsPerMinute,
			ReactionsPerMinute: cfg.ReactionsPerMinute,
			Store:              database.NewRedisStorage(redisClient, cfg.RealtimeChannel+":ratelimit:"),
		}, logger),
		PaymentGatewayHandler: handler.NewPaymentGatewayHandler(gatewayService, logger),
		EventHandler:          handler.NewEventHandler(eventService, validate, logger),
		WalletHandler:         handler.NewWalletHandler(walletService, logger),
		SettingHandler:        handler.NewSettingHandler(settingService, logger),
		BlogHandler:           handler.NewBlogHandler(blogService, logger),
		AnalyticsHandler:      handler.NewAdminAnalyticsHandler(analyticsService, logger),
		ActivityHandler:       handler.NewAdminActivityHandler(activityService, logger),
		NotificationHandler:   handler.NewNotificationHandler(notificationService, logger, cfg.SSEKeepAlive),
		UploadHandler:         uploadHandler,
		ProfileHandler:        handler.NewProfileHandler(profileService, logger),
		HealthChecks:          healthChecks,
		JWTMiddleware:         middleware.JWTProtected(cfg.JWTSecret),
		OptionalJWT:           middleware.JWTOptional(cfg.JWTSecret),
		WebsocketJWT:          middleware.JWTQueryFallback(cfg.JWTSecret),
	})

	go func() {
		logger.Info().Str("addr", cfg.HTTPAddress()).Msg("http server listening")
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			logger.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	waitForShutdown(rootCtx, app, logger)
}

func waitForShutdown(ctx context.Context, app *fiber.App, logger zerolog.Logger) {
	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}

	logger.Info().Msg("server stopped")
}
