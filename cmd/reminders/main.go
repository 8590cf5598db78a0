// Command reminders sends due-date reminders once and exits. Run it from
// cron or a scheduled job; the API itself has no scheduler.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"vortexboard/configs"
	"vortexboard/internal/activity"
	"vortexboard/internal/repository"
	"vortexboard/pkg/database"
	"vortexboard/pkg/logger"
	"vortexboard/pkg/mailer"
)

func main() {
	within := flag.Duration("within", 24*time.Hour, "remind about tasks due within this window")
	flag.Parse()

	cfg, err := configs.LoadConfig()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	if err := logger.InitLoggers(cfg.LogDir); err != nil {
		log.Fatalf("Failed to init loggers: %v", err)
	}
	defer logger.SyncLoggers()

	if err := run(cfg, *within); err != nil {
		logger.ErrorLogger.Error("Reminder run failed", zap.Error(err))
		logger.SyncLoggers()
		os.Exit(1)
	}
}

func run(cfg configs.Config, within time.Duration) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client, db, err := database.ConnectMongo(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = client.Disconnect(context.Background()) }()

	mail, err := mailer.New(cfg.SMTP)
	if err != nil {
		return err
	}
	stores := repository.NewMongoStores(db)
	dispatcher := activity.NewDispatcher(activity.DispatcherConfig{
		Workers: cfg.DispatchWorkers,
		Buffer:  cfg.DispatchBuffer,
	})
	// tanpa hub: user yang online menerima notifikasi saat membuka daftar
	notifier := activity.NewNotifier(stores.Notifications, stores.Users, nil, mail, dispatcher)

	res, runErr := activity.NewReminders(stores.Tasks, stores.Boards, notifier).Run(ctx, within)

	drainCtx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	if err := dispatcher.Close(drainCtx); err != nil {
		return err
	}
	if runErr != nil {
		return runErr
	}
	logger.SystemLogger.Info("Reminder run finished", zap.Int("overdue", res.Overdue), zap.Int("due_soon", res.DueSoon))
	return nil
}
