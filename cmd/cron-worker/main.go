package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/sparkmeet/sparkmeet-backend/internal/cron"
	"github.com/sparkmeet/sparkmeet-backend/internal/delivery"
	"github.com/sparkmeet/sparkmeet-backend/internal/notifications"
	"github.com/sparkmeet/sparkmeet-backend/internal/preferences"
	"github.com/sparkmeet/sparkmeet-backend/internal/users"
	"github.com/sparkmeet/sparkmeet-backend/pkg/config"
	"github.com/sparkmeet/sparkmeet-backend/pkg/db"
	"github.com/sparkmeet/sparkmeet-backend/pkg/email"
	"github.com/sparkmeet/sparkmeet-backend/pkg/logger"
	"github.com/sparkmeet/sparkmeet-backend/pkg/metrics"
	"github.com/sparkmeet/sparkmeet-backend/pkg/migrate"
	"github.com/sparkmeet/sparkmeet-backend/pkg/outbox"
	"github.com/sparkmeet/sparkmeet-backend/pkg/push"
	"github.com/sparkmeet/sparkmeet-backend/pkg/redis"
)

const lockKeyFormat = "sm:cron-worker:lock:%s"

func main() {
	ctx := context.Background()
	logg := logger.New(logger.Options{ServiceName: "cron-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(ctx, ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	requireResource(ctx, logg, "config", err)

	logg = logger.New(logger.Options{
		ServiceName: "cron-worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(ctx, cfg.DB, logg)
	requireResource(ctx, logg, "database", err)
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(ctx, "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		logg.Error(ctx, "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	requireResource(ctx, logg, "redis", err)
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(ctx, "error closing redis", err)
		}
	}()

	notificationRepo := notifications.NewRepository(dbClient.DB())
	userRepo := users.NewRepository(dbClient.DB())
	outboxRepo := outbox.NewRepository(dbClient.DB())

	preferencesService, err := preferences.NewService(preferences.NewRepository(dbClient.DB()), cfg.Delivery)
	requireResource(ctx, logg, "preferences service", err)

	// The deferred-delivery job drains through the same dispatcher the
	// streaming worker uses, so quiet-hours flushes hit every channel.
	senders := []delivery.Sender{delivery.NewInAppSender()}
	if cfg.Push.Endpoint != "" {
		pushClient, err := push.NewClient(cfg.Push)
		requireResource(ctx, logg, "push client", err)
		senders = append(senders, delivery.NewPushSender(pushClient))
	}
	if cfg.Email.SMTPHost != "" {
		emailClient, err := email.NewClient(cfg.Email)
		requireResource(ctx, logg, "email client", err)
		senders = append(senders, delivery.NewEmailSender(emailClient))
	}

	dispatcher, err := delivery.NewDispatcher(
		delivery.NewAttemptRepository(dbClient.DB()),
		senders,
		metrics.NewDispatchMetrics(prometheus.DefaultRegisterer),
		cfg.Delivery,
		logg,
	)
	requireResource(ctx, logg, "channel dispatcher", err)

	deliveryService, err := delivery.NewService(
		notificationRepo,
		userRepo,
		preferencesService,
		dispatcher,
		redisClient,
		cfg.Delivery,
		logg,
	)
	requireResource(ctx, logg, "delivery service", err)

	deferredJob, err := cron.NewDeferredDeliveryJob(cron.DeferredDeliveryJobParams{
		Logger:    logg,
		Deliverer: deliveryService,
	})
	requireResource(ctx, logg, "deferred delivery job", err)

	cleanupJob, err := cron.NewNotificationCleanupJob(cron.NotificationCleanupJobParams{
		Logger:     logg,
		Repository: notificationRepo,
		Retention:  cfg.Cron.NotificationRetention,
	})
	requireResource(ctx, logg, "notification cleanup job", err)

	retentionJob, err := cron.NewOutboxRetentionJob(cron.OutboxRetentionJobParams{
		Logger:     logg,
		Repository: outboxRepo,
		Retention:  cfg.Cron.OutboxRetention,
	})
	requireResource(ctx, logg, "outbox retention job", err)

	lock, err := cron.NewRedisLock(redisClient, lockKey(cfg.App.Env), 0)
	requireResource(ctx, logg, "cron lock", err)

	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: cron.NewRegistry(deferredJob, cleanupJob, retentionJob),
		Lock:     lock,
		Metrics:  metrics.NewCronJobMetrics(prometheus.DefaultRegisterer),
		Interval: cfg.Cron.Interval,
	})
	requireResource(ctx, logg, "cron service", err)

	runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	runCtx = logg.WithFields(runCtx, map[string]any{
		"env": cfg.App.Env,
	})
	logg.Info(runCtx, "starting cron worker")

	if err := service.Run(runCtx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(runCtx, "cron worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(runCtx, "cron worker shutting down gracefully")
}

func lockKey(env string) string {
	if env == "" {
		env = "local"
	}
	return fmt.Sprintf(lockKeyFormat, env)
}

func requireResource(ctx context.Context, logg *logger.Logger, resource string, err error) {
	if err == nil {
		return
	}
	logg.Error(ctx, fmt.Sprintf("resource not working: %s", resource), err)
	os.Exit(1)
}
