package config

import (
	"context"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/go-redis/redis/v8"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"

	"vortexboard/configs"
	"vortexboard/internal/activity"
	"vortexboard/internal/analytics"
	"vortexboard/internal/repository"
	"vortexboard/internal/websocket"
	"vortexboard/pkg/auth"
	"vortexboard/pkg/logger"
	"vortexboard/pkg/mailer"
)

// Dependencies dibangun sekali di main lalu diteruskan ke handler.
type Dependencies struct {
	Config configs.Config

	Mongo *mongo.Client
	DB    *mongo.Database
	Redis *redis.Client

	Stores     repository.Stores
	Tokens     *auth.TokenManager
	Validate   *validator.Validate
	Mailer     mailer.Mailer
	Hub        *websocket.Hub
	Dispatcher *activity.Dispatcher
	Recorder   *activity.Recorder
	Notifier   *activity.Notifier
	Reporter   *analytics.Reporter

	hubRunning bool
}

// NewValidator returns a validator that reports json field names.
func NewValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// New merakit service layer di atas stores dan mailer yang diberikan.
func New(cfg configs.Config, stores repository.Stores, mail mailer.Mailer) *Dependencies {
	if mail == nil {
		mail = mailer.NopMailer{}
	}
	hub := websocket.NewHub()
	dispatcher := activity.NewDispatcher(activity.DispatcherConfig{
		Workers: cfg.DispatchWorkers,
		Buffer:  cfg.DispatchBuffer,
	})

	return &Dependencies{
		Config:     cfg,
		Stores:     stores,
		Tokens:     auth.NewTokenManager(cfg.JWTSecret, cfg.JWTExpire),
		Validate:   NewValidator(),
		Mailer:     mail,
		Hub:        hub,
		Dispatcher: dispatcher,
		Recorder:   activity.NewRecorder(stores.Activity, dispatcher),
		Notifier:   activity.NewNotifier(stores.Notifications, stores.Users, hub, mail, dispatcher),
		Reporter:   analytics.NewReporter(stores),
	}
}

// Start menjalankan loop hub websocket.
func (d *Dependencies) Start() {
	if d.hubRunning {
		return
	}
	d.hubRunning = true
	go d.Hub.Run()
}

// Ping checks the primary database; without a Mongo client it always succeeds.
func (d *Dependencies) Ping(ctx context.Context) error {
	if d.Mongo == nil {
		return nil
	}
	return d.Mongo.Ping(ctx, readpref.Primary())
}

// Close drains background jobs, stops the hub and disconnects the stores.
func (d *Dependencies) Close(ctx context.Context) error {
	var firstErr error
	if err := d.Dispatcher.Close(ctx); err != nil {
		logger.ErrorLogger.Error("Error draining dispatcher", zap.Error(err))
		firstErr = err
	}
	if d.hubRunning {
		d.Hub.Stop()
	}
	if d.Redis != nil {
		if err := d.Redis.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("close redis: %w", err)
		}
	}
	if d.Mongo != nil {
		if err := d.Mongo.Disconnect(ctx); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("disconnect mongo: %w", err)
		}
	}
	return firstErr
}
