package routes

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"

	"github.com/sparkmeet/sparkmeet-backend/internal/discovery"
	"github.com/sparkmeet/sparkmeet-backend/internal/matches"
	"github.com/sparkmeet/sparkmeet-backend/internal/notifications"
	"github.com/sparkmeet/sparkmeet-backend/internal/preferences"
	"github.com/sparkmeet/sparkmeet-backend/internal/swipes"
	pkgAuth "github.com/sparkmeet/sparkmeet-backend/pkg/auth"
	"github.com/sparkmeet/sparkmeet-backend/pkg/config"
	"github.com/sparkmeet/sparkmeet-backend/pkg/db/models"
	"github.com/sparkmeet/sparkmeet-backend/pkg/enums"
	"github.com/sparkmeet/sparkmeet-backend/pkg/logger"
	"github.com/sparkmeet/sparkmeet-backend/pkg/redis"
)

type stubPinger struct{}

func (stubPinger) Ping(context.Context) error {
	return nil
}

type stubDiscoveryService struct{}

func (stubDiscoveryService) RankCandidates(ctx context.Context, viewerID uuid.UUID, limit, offset int) ([]discovery.RankedCandidate, error) {
	return []discovery.RankedCandidate{}, nil
}

type stubSwipesService struct{}

func (stubSwipesService) RecordSwipe(ctx context.Context, actorID, targetID uuid.UUID, decision enums.SwipeDecision) (*swipes.SwipeResult, error) {
	return &swipes.SwipeResult{Status: enums.SwipeStatusLiked}, nil
}

type stubMatchesService struct{}

func (stubMatchesService) List(ctx context.Context, params matches.ListParams) (*matches.ListResult, error) {
	return &matches.ListResult{}, nil
}

type stubNotificationsService struct{}

func (stubNotificationsService) List(ctx context.Context, params notifications.ListParams) (*notifications.ListResult, error) {
	return &notifications.ListResult{}, nil
}

func (stubNotificationsService) UnreadCount(ctx context.Context, userID uuid.UUID) (int64, error) {
	return 0, nil
}

func (stubNotificationsService) ListGroup(ctx context.Context, userID, notificationID uuid.UUID) ([]models.Notification, error) {
	return nil, nil
}

func (stubNotificationsService) MarkRead(ctx context.Context, userID, notificationID uuid.UUID) error {
	return nil
}

func (stubNotificationsService) MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error) {
	return 0, nil
}

func (stubNotificationsService) Delete(ctx context.Context, userID, notificationID uuid.UUID) error {
	return nil
}

type stubPreferencesService struct{}

func (stubPreferencesService) Get(ctx context.Context, userID uuid.UUID) (*preferences.PreferencesDTO, error) {
	return &preferences.PreferencesDTO{}, nil
}

func (stubPreferencesService) Update(ctx context.Context, userID uuid.UUID, params preferences.UpdateParams) (*preferences.PreferencesDTO, error) {
	return &preferences.PreferencesDTO{}, nil
}

func (stubPreferencesService) Resolve(ctx context.Context, userID uuid.UUID) (*models.NotificationPreference, error) {
	return nil, nil
}

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Env: "test", Port: "0"},
		JWT: config.JWTConfig{Secret: "secret", Issuer: "issuer", ExpirationMinutes: 60},
		RateLimit: config.RateLimitConfig{
			Window:    time.Minute,
			UserLimit: 100,
			IPLimit:   100,
		},
	}
}

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()

	mr := miniredis.RunT(t)
	redisClient, err := redis.New(context.Background(), config.RedisConfig{
		URL: "redis://" + mr.Addr(),
	}, nil)
	if err != nil {
		t.Fatalf("redis client: %v", err)
	}

	logg := logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
	return NewRouter(
		testConfig(),
		logg,
		stubPinger{},
		redisClient,
		stubDiscoveryService{},
		stubSwipesService{},
		stubMatchesService{},
		stubNotificationsService{},
		stubPreferencesService{},
	)
}

func mintToken(t *testing.T, userID uuid.UUID) string {
	t.Helper()
	token, err := pkgAuth.MintAccessToken(testConfig().JWT, time.Now(), pkgAuth.AccessTokenPayload{UserID: userID})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return token
}

func TestHealthEndpoints(t *testing.T) {
	router := newTestRouter(t)

	for _, path := range []string{"/health/live", "/health/ready"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		resp := httptest.NewRecorder()
		router.ServeHTTP(resp, req)
		if resp.Code != http.StatusOK {
			t.Fatalf("%s: expected 200 got %d", path, resp.Code)
		}
	}
}

func TestPublicPingNeedsNoAuth(t *testing.T) {
	router := newTestRouter(t)
	req := httptest.NewRequest(http.MethodGet, "/api/public/ping", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
}

func TestPrivateGroupRejectsMissingJWT(t *testing.T) {
	router := newTestRouter(t)

	for _, target := range []string{
		"/api/v1/discovery",
		"/api/v1/matches",
		"/api/v1/notifications",
		"/api/v1/preferences",
	} {
		req := httptest.NewRequest(http.MethodGet, target, nil)
		resp := httptest.NewRecorder()
		router.ServeHTTP(resp, req)
		if resp.Code != http.StatusUnauthorized {
			t.Fatalf("%s: expected 401 got %d", target, resp.Code)
		}
	}
}

func TestPrivateGroupSucceedsWithJWT(t *testing.T) {
	router := newTestRouter(t)
	token := mintToken(t, uuid.New())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/discovery", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
}

func TestSwipeRequiresIdempotencyKey(t *testing.T) {
	router := newTestRouter(t)
	token := mintToken(t, uuid.New())

	body := `{"target_id":"` + uuid.NewString() + `","decision":"like"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/swipes", strings.NewReader(body))
	req.Header.Set("Authorization", "Bearer "+token)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestSwipeAcceptsIdempotencyKey(t *testing.T) {
	router := newTestRouter(t)
	token := mintToken(t, uuid.New())

	body := `{"target_id":"` + uuid.NewString() + `","decision":"like"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/swipes", strings.NewReader(body))
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Idempotency-Key", uuid.NewString())
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
}
