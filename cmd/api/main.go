package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"vortexboard/configs"
	v1 "vortexboard/internal/api/v1"
	"vortexboard/internal/api/v1/handlers"
	"vortexboard/internal/config"
	"vortexboard/internal/repository"
	"vortexboard/pkg/database"
	"vortexboard/pkg/logger"
	"vortexboard/pkg/mailer"
	"vortexboard/pkg/tracing"
)

const shutdownTimeout = 15 * time.Second

func main() {
	// Load config
	cfg, err := configs.LoadConfig()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	// Inisialisasi logger
	if err := logger.InitLoggers(cfg.LogDir); err != nil {
		log.Fatalf("Failed to init loggers: %v", err)
	}
	defer logger.SyncLoggers()
	logger.SystemLogger.Info("Starting application", zap.String("env", cfg.AppEnv), zap.String("time", time.Now().Format(time.RFC3339)))

	if err := run(cfg); err != nil {
		logger.ErrorLogger.Error("Application stopped with error", zap.Error(err))
		logger.SyncLoggers()
		os.Exit(1)
	}
}

func run(cfg configs.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := tracing.Setup(ctx, "vortexboard", cfg.OTelEndpoint)
	if err != nil {
		return err
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(sctx); err != nil {
			logger.ErrorLogger.Error("Error flushing traces", zap.Error(err))
		}
	}()

	// Inisialisasi database
	mongoClient, db, err := database.ConnectMongo(ctx, cfg)
	if err != nil {
		return err
	}
	logger.SystemLogger.Info("Database Connected", zap.String("db", cfg.MongoDB))

	// ----- Inisialisasi repository ----- //
	err = repository.EnsureIndexes(ctx, db, repository.Retention{
		Activity:      cfg.ActivityRetention,
		Notifications: cfg.NotificationRetention,
	})
	if err != nil {
		return err
	}
	stores := repository.NewMongoStores(db)

	// Redis hanya untuk cache; tanpa Redis API tetap jalan.
	redisClient, err := database.ConnectRedis(ctx, cfg)
	if err != nil {
		logger.SystemLogger.Warn("Redis unavailable, task cache disabled", zap.Error(err))
	} else {
		stores.Tasks = repository.NewCachedTaskStore(stores.Tasks, redisClient, cfg.CacheTTL)
	}

	if cfg.AdminEmail != "" {
		if err := repository.SeedAdmin(ctx, stores.Users, cfg.AdminName, cfg.AdminEmail, cfg.AdminPassword); err != nil {
			return err
		}
	}

	mail, err := mailer.New(cfg.SMTP)
	if err != nil {
		return err
	}

	deps := config.New(cfg, stores, mail)
	deps.Mongo, deps.DB, deps.Redis = mongoClient, db, redisClient
	deps.Start()

	app := v1.NewApp(handlers.New(deps))

	serveErr := make(chan error, 1)
	go func() {
		logger.SystemLogger.Info("Application ready", zap.String("addr", cfg.Addr()))
		serveErr <- app.Listen(cfg.Addr())
	}()

	select {
	case err = <-serveErr:
		logger.ErrorLogger.Error("Application failed to start", zap.Error(err))
	case <-ctx.Done():
		logger.SystemLogger.Info("Shutdown signal received")
	}

	sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if serr := app.ShutdownWithContext(sctx); serr != nil {
		logger.ErrorLogger.Error("Error shutting down server", zap.Error(serr))
	}
	if cerr := deps.Close(sctx); cerr != nil {
		err = errors.Join(err, cerr)
	}
	logger.SystemLogger.Info("Application stopped")
	return err
}
