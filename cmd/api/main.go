package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"

	"github.com/sparkmeet/sparkmeet-backend/api/routes"
	"github.com/sparkmeet/sparkmeet-backend/internal/discovery"
	"github.com/sparkmeet/sparkmeet-backend/internal/matches"
	"github.com/sparkmeet/sparkmeet-backend/internal/notifications"
	"github.com/sparkmeet/sparkmeet-backend/internal/preferences"
	"github.com/sparkmeet/sparkmeet-backend/internal/swipes"
	"github.com/sparkmeet/sparkmeet-backend/internal/users"
	"github.com/sparkmeet/sparkmeet-backend/pkg/config"
	"github.com/sparkmeet/sparkmeet-backend/pkg/db"
	"github.com/sparkmeet/sparkmeet-backend/pkg/logger"
	"github.com/sparkmeet/sparkmeet-backend/pkg/migrate"
	"github.com/sparkmeet/sparkmeet-backend/pkg/outbox"
	"github.com/sparkmeet/sparkmeet-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	userRepo := users.NewRepository(dbClient.DB())
	outboxService := outbox.NewService(outbox.NewRepository(dbClient.DB()), logg)

	discoveryService, err := discovery.NewService(userRepo, cfg.Discovery, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create discovery service", err)
		os.Exit(1)
	}

	matchRepo := matches.NewRepository(dbClient.DB())
	matchesService, err := matches.NewService(matchRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create matches service", err)
		os.Exit(1)
	}

	swipesService, err := swipes.NewService(
		dbClient.DB(),
		swipes.NewRepository(dbClient.DB()),
		matchRepo,
		userRepo,
		redisClient,
		outboxService,
		cfg.Swipes,
		logg,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create swipes service", err)
		os.Exit(1)
	}

	notificationsService, err := notifications.NewService(notifications.NewRepository(dbClient.DB()), redisClient)
	if err != nil {
		logg.Error(context.Background(), "failed to create notifications service", err)
		os.Exit(1)
	}

	preferencesService, err := preferences.NewService(preferences.NewRepository(dbClient.DB()), cfg.Delivery)
	if err != nil {
		logg.Error(context.Background(), "failed to create preferences service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	id := os.Getenv("DYNO")
	if id == "" {
		id = "local"
	}
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": id,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(
			cfg,
			logg,
			dbClient,
			redisClient,
			discoveryService,
			swipesService,
			matchesService,
			notificationsService,
			preferencesService,
		),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
