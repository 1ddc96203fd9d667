package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sparkmeet/sparkmeet-backend/api/controllers"
	"github.com/sparkmeet/sparkmeet-backend/api/middleware"
	"github.com/sparkmeet/sparkmeet-backend/internal/discovery"
	"github.com/sparkmeet/sparkmeet-backend/internal/matches"
	"github.com/sparkmeet/sparkmeet-backend/internal/notifications"
	"github.com/sparkmeet/sparkmeet-backend/internal/preferences"
	"github.com/sparkmeet/sparkmeet-backend/internal/swipes"
	"github.com/sparkmeet/sparkmeet-backend/pkg/config"
	"github.com/sparkmeet/sparkmeet-backend/pkg/db"
	"github.com/sparkmeet/sparkmeet-backend/pkg/logger"
	"github.com/sparkmeet/sparkmeet-backend/pkg/redis"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient *redis.Client,
	discoveryService discovery.Service,
	swipesService swipes.Service,
	matchesService matches.Service,
	notificationsService notifications.Service,
	preferencesService preferences.Service,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	apiPolicy := middleware.NewRateLimitPolicy(
		"api",
		cfg.RateLimit.Window,
		cfg.RateLimit.UserLimit,
		cfg.RateLimit.IPLimit,
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, redisClient))
	})

	r.Route("/api/public", func(r chi.Router) {
		r.Get("/ping", controllers.PublicPing())
		r.Post("/validate", controllers.PublicValidate(logg))
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.RateLimit(apiPolicy, redisClient, logg))
		r.Use(middleware.Idempotency(redisClient, logg))

		r.Get("/ping", controllers.PrivatePing())

		r.Route("/v1/discovery", func(r chi.Router) {
			r.Get("/", controllers.Discover(discoveryService, logg))
		})

		r.Route("/v1/swipes", func(r chi.Router) {
			r.Post("/", controllers.RecordSwipe(swipesService, logg))
		})

		r.Route("/v1/matches", func(r chi.Router) {
			r.Get("/", controllers.ListMatches(matchesService, logg))
		})

		r.Route("/v1/notifications", func(r chi.Router) {
			r.Get("/", controllers.ListNotifications(notificationsService, logg))
			r.Get("/unread-count", controllers.UnreadNotificationCount(notificationsService, logg))
			r.Get("/{notificationId}/group", controllers.ListNotificationGroup(notificationsService, logg))
			r.Post("/{notificationId}/read", controllers.MarkNotificationRead(notificationsService, logg))
			r.Post("/read-all", controllers.MarkAllNotificationsRead(notificationsService, logg))
			r.Delete("/{notificationId}", controllers.DeleteNotification(notificationsService, logg))
		})

		r.Route("/v1/preferences", func(r chi.Router) {
			r.Get("/", controllers.GetPreferences(preferencesService, logg))
			r.Put("/", controllers.UpdatePreferences(preferencesService, logg))
		})
	})

	return r
}
