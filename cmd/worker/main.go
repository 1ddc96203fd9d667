package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/sparkmeet/sparkmeet-backend/internal/delivery"
	"github.com/sparkmeet/sparkmeet-backend/internal/notifications"
	"github.com/sparkmeet/sparkmeet-backend/internal/preferences"
	"github.com/sparkmeet/sparkmeet-backend/internal/users"
	"github.com/sparkmeet/sparkmeet-backend/pkg/config"
	"github.com/sparkmeet/sparkmeet-backend/pkg/db"
	"github.com/sparkmeet/sparkmeet-backend/pkg/email"
	"github.com/sparkmeet/sparkmeet-backend/pkg/logger"
	"github.com/sparkmeet/sparkmeet-backend/pkg/metrics"
	"github.com/sparkmeet/sparkmeet-backend/pkg/outbox/idempotency"
	"github.com/sparkmeet/sparkmeet-backend/pkg/pubsub"
	"github.com/sparkmeet/sparkmeet-backend/pkg/push"
	"github.com/sparkmeet/sparkmeet-backend/pkg/redis"
)

func main() {
	ctx := context.Background()
	logg := logger.New(logger.Options{ServiceName: "delivery-worker"})

	_ = godotenv.Load()

	cfg, err := config.Load()
	requireResource(ctx, logg, "config", err)

	logg = logger.New(logger.Options{
		ServiceName: "delivery-worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(ctx, cfg.DB, logg)
	requireResource(ctx, logg, "database", err)
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(ctx, "failed to close database", err)
		}
	}()

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	requireResource(ctx, logg, "redis", err)
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(ctx, "failed to close redis client", err)
		}
	}()

	pubsubClient, err := pubsub.NewClient(ctx, cfg.GCP, cfg.PubSub, logg)
	requireResource(ctx, logg, "pubsub", err)
	defer func() {
		if err := pubsubClient.Close(); err != nil {
			logg.Error(ctx, "failed to close pubsub client", err)
		}
	}()

	subscription := pubsubClient.DomainSubscription()
	if subscription == nil {
		requireResource(ctx, logg, "domain subscription", errors.New("subscription not configured"))
	}

	manager, err := idempotency.NewManager(redisClient, cfg.Eventing.OutboxIdempotencyTTL)
	requireResource(ctx, logg, "idempotency manager", err)

	userRepo := users.NewRepository(dbClient.DB())
	notificationRepo := notifications.NewRepository(dbClient.DB())

	preferencesService, err := preferences.NewService(preferences.NewRepository(dbClient.DB()), cfg.Delivery)
	requireResource(ctx, logg, "preferences service", err)

	senders := []delivery.Sender{delivery.NewInAppSender()}
	if cfg.Push.Endpoint != "" {
		pushClient, err := push.NewClient(cfg.Push)
		requireResource(ctx, logg, "push client", err)
		senders = append(senders, delivery.NewPushSender(pushClient))
	} else {
		logg.Warn(ctx, "push endpoint not configured, push channel disabled")
	}
	if cfg.Email.SMTPHost != "" {
		emailClient, err := email.NewClient(cfg.Email)
		requireResource(ctx, logg, "email client", err)
		senders = append(senders, delivery.NewEmailSender(emailClient))
	} else {
		logg.Warn(ctx, "smtp host not configured, email channel disabled")
	}

	dispatchMetrics := metrics.NewDispatchMetrics(prometheus.DefaultRegisterer)
	dispatcher, err := delivery.NewDispatcher(
		delivery.NewAttemptRepository(dbClient.DB()),
		senders,
		dispatchMetrics,
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

	consumer, err := delivery.NewConsumer(deliveryService, subscription, manager, logg)
	requireResource(ctx, logg, "delivery consumer", err)

	runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	runCtx = logg.WithFields(runCtx, map[string]any{
		"env": cfg.App.Env,
	})
	logg.Info(runCtx, "delivery worker ready")

	if err := consumer.Run(runCtx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(runCtx, "delivery worker failed", err)
		os.Exit(1)
	}
}

func requireResource(ctx context.Context, logg *logger.Logger, resource string, err error) {
	if err == nil {
		return
	}
	logg.Error(ctx, fmt.Sprintf("resource not working: %s", resource), err)
	os.Exit(1)
}
