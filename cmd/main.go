package main

import (
	"context"

	"go.uber.org/zap"

	"github.com/rryowa/authsessions/internal/api"
	"github.com/rryowa/authsessions/internal/controller"
	"github.com/rryowa/authsessions/internal/migrations"
	"github.com/rryowa/authsessions/internal/service"
	"github.com/rryowa/authsessions/internal/storage"
	"github.com/rryowa/authsessions/internal/storage/memory"
	"github.com/rryowa/authsessions/internal/storage/postgres"
	"github.com/rryowa/authsessions/internal/storage/redis"
	"github.com/rryowa/authsessions/internal/util"
)

func main() {
	ctx := context.Background()
	logger := util.NewZapLogger()
	defer func() { _ = logger.Sync() }()

	serverConfig, err := util.NewServerConfig()
	if err != nil {
		logger.Fatal(zap.Error(err))
	}
	tokenConfig, err := util.NewTokenConfig()
	if err != nil {
		logger.Fatal(zap.Error(err))
	}
	dbConfig, err := util.NewDBConfig()
	if err != nil {
		logger.Fatal(zap.Error(err))
	}
	redisConfig, err := util.NewRedisConfig()
	if err != nil {
		logger.Fatal(zap.Error(err))
	}

	var (
		store        storage.Storage
		cleanupFuncs []func()
	)
	switch dbConfig.Driver {
	case util.StorageDriverMemory:
		logger.Warn("using in-memory storage, sessions will not survive a restart")
		store = memory.NewStorage(logger)
	default:
		db, dbCleanup, err := util.NewDBConnection(ctx, logger, dbConfig)
		if err != nil {
			logger.Fatal(zap.Error(err))
		}
		cleanupFuncs = append(cleanupFuncs, dbCleanup)
		if err := migrations.RunMigrations(db, logger); err != nil {
			logger.Fatal(zap.Error(err))
		}
		store = postgres.NewStorage(db)
	}

	var throttle *service.LoginThrottle
	if redisConfig.Addr != "" {
		rateLimiterConfig, err := util.NewRateLimiterConfig()
		if err != nil {
			logger.Fatal(zap.Error(err))
		}
		redisClient, redisCleanup, err := util.NewRedisClient(ctx, logger, redisConfig)
		if err != nil {
			logger.Fatal(zap.Error(err))
		}
		cleanupFuncs = append(cleanupFuncs, redisCleanup)
		throttle = service.NewLoginThrottle(redis.NewAttemptStorage(redisClient), rateLimiterConfig, logger)
	} else {
		logger.Info("REDIS_ADDR is not set, login throttling disabled")
	}

	tokenService, err := service.NewTokenService(tokenConfig)
	if err != nil {
		logger.Fatal(zap.Error(err))
	}
	refreshManager, err := service.NewRefreshTokenManager(tokenConfig)
	if err != nil {
		logger.Fatal(zap.Error(err))
	}
	webhookService := service.NewWebhookService(logger, util.GetWebhookURL())

	authService, err := service.NewAuthService(
		tokenConfig,
		store,
		service.NewPasswordHasher(service.DefaultArgon2Params),
		tokenService,
		refreshManager,
		throttle,
		webhookService,
		logger,
	)
	if err != nil {
		logger.Fatal(zap.Error(err))
	}

	controller := controller.NewController(logger, authService)

	apiServer, err := api.NewAPI(controller, authService, serverConfig, logger, cleanupFuncs)
	if err != nil {
		logger.Fatal(zap.Error(err))
	}
	apiServer.Run(ctx)
}
