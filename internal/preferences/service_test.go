package preferences

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/sparkmeet/sparkmeet-backend/pkg/config"
	"github.com/sparkmeet/sparkmeet-backend/pkg/db/models"
	pkgerrors "github.com/sparkmeet/sparkmeet-backend/pkg/errors"
)

type fakePrefRepo struct {
	rows map[uuid.UUID]*models.NotificationPreference
}

func newFakePrefRepo() *fakePrefRepo {
	return &fakePrefRepo{rows: map[uuid.UUID]*models.NotificationPreference{}}
}

func (f *fakePrefRepo) Get(ctx context.Context, userID uuid.UUID) (*models.NotificationPreference, error) {
	return f.rows[userID], nil
}

func (f *fakePrefRepo) Upsert(ctx context.Context, pref *models.NotificationPreference) error {
	f.rows[pref.UserID] = pref
	return nil
}

func newPrefService(t *testing.T) (Service, *fakePrefRepo) {
	t.Helper()
	repo := newFakePrefRepo()
	svc, err := NewService(repo, config.DeliveryConfig{
		DefaultQuietStartMinute: 1320,
		DefaultQuietEndMinute:   480,
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc, repo
}

func intPtr(v int) *int { return &v }

func TestGetReturnsDefaultsWhenUnset(t *testing.T) {
	svc, _ := newPrefService(t)
	userID := uuid.New()

	dto, err := svc.Get(context.Background(), userID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !dto.PushEnabled || !dto.EmailEnabled || !dto.InAppEnabled {
		t.Fatalf("expected all channels enabled by default, got %+v", dto)
	}
	if !dto.MatchEnabled || !dto.MessageEnabled || !dto.LikeEnabled || !dto.SystemEnabled {
		t.Fatalf("expected all types enabled by default, got %+v", dto)
	}
	if dto.QuietStartMinute == nil || *dto.QuietStartMinute != 1320 {
		t.Fatalf("expected default quiet start 1320, got %v", dto.QuietStartMinute)
	}
	if dto.QuietEndMinute == nil || *dto.QuietEndMinute != 480 {
		t.Fatalf("expected default quiet end 480, got %v", dto.QuietEndMinute)
	}
	if !dto.DigestOptIn {
		t.Fatal("expected digest opt-in by default")
	}
}

func TestUpdateRoundTrips(t *testing.T) {
	svc, repo := newPrefService(t)
	userID := uuid.New()

	dto, err := svc.Update(context.Background(), userID, UpdateParams{
		PushEnabled:      false,
		EmailEnabled:     true,
		InAppEnabled:     true,
		MatchEnabled:     true,
		MessageEnabled:   false,
		LikeEnabled:      true,
		SystemEnabled:    true,
		QuietStartMinute: intPtr(1380),
		QuietEndMinute:   intPtr(420),
		DigestOptIn:      false,
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if dto.PushEnabled || dto.MessageEnabled || dto.DigestOptIn {
		t.Fatalf("disabled flags not persisted: %+v", dto)
	}
	if *dto.QuietStartMinute != 1380 || *dto.QuietEndMinute != 420 {
		t.Fatalf("quiet window not persisted: %+v", dto)
	}
	if repo.rows[userID] == nil {
		t.Fatal("expected a stored row")
	}
}

func TestUpdateRejectsPartialQuietWindow(t *testing.T) {
	svc, _ := newPrefService(t)

	_, err := svc.Update(context.Background(), uuid.New(), UpdateParams{
		QuietStartMinute: intPtr(1320),
	})
	appErr := pkgerrors.As(err)
	if appErr == nil || appErr.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestUpdateRejectsOutOfRangeMinutes(t *testing.T) {
	svc, _ := newPrefService(t)

	for _, window := range [][2]int{{-1, 480}, {1320, 1440}, {2000, 2100}} {
		_, err := svc.Update(context.Background(), uuid.New(), UpdateParams{
			QuietStartMinute: intPtr(window[0]),
			QuietEndMinute:   intPtr(window[1]),
		})
		appErr := pkgerrors.As(err)
		if appErr == nil || appErr.Code() != pkgerrors.CodeValidation {
			t.Fatalf("window %v: expected validation error, got %v", window, err)
		}
	}
}

func TestResolveFillsMissingQuietWindow(t *testing.T) {
	svc, repo := newPrefService(t)
	userID := uuid.New()
	repo.rows[userID] = &models.NotificationPreference{
		UserID:      userID,
		PushEnabled: true,
	}

	pref, err := svc.Resolve(context.Background(), userID)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if pref.QuietStartMinute == nil || *pref.QuietStartMinute != 1320 {
		t.Fatalf("expected default quiet start, got %v", pref.QuietStartMinute)
	}
	if pref.QuietEndMinute == nil || *pref.QuietEndMinute != 480 {
		t.Fatalf("expected default quiet end, got %v", pref.QuietEndMinute)
	}
}
