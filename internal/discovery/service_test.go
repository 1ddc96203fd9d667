package discovery

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/sparkmeet/sparkmeet-backend/pkg/config"
	"github.com/sparkmeet/sparkmeet-backend/pkg/db/models"
	pkgerrors "github.com/sparkmeet/sparkmeet-backend/pkg/errors"
)

type fakeDirectory struct {
	viewer     *models.User
	candidates []models.User
	blocked    []uuid.UUID
}

func (f *fakeDirectory) FindActiveByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return f.viewer, nil
}

func (f *fakeDirectory) ListCandidates(ctx context.Context, viewerID uuid.UUID, gender string, limit int) ([]models.User, error) {
	return f.candidates, nil
}

func (f *fakeDirectory) BlockedUserIDs(ctx context.Context, viewerID uuid.UUID) ([]uuid.UUID, error) {
	return f.blocked, nil
}

func discoveryConfig() config.DiscoveryConfig {
	return config.DiscoveryConfig{
		AgeToleranceYears: 5,
		DefaultLimit:      25,
		MaxLimit:          100,
	}
}

func rankerWith(dir Directory) *service {
	svc, _ := NewService(dir, discoveryConfig(), nil)
	impl := svc.(*service)
	impl.now = func() time.Time { return scoreNow }
	return impl
}

func directoryUser(id uuid.UUID, age int, interests []string) models.User {
	return models.User{
		ID:               id,
		Gender:           "man",
		GenderPreference: "woman",
		BirthDate:        scoreNow.AddDate(-age, 0, 0),
		Interests:        pq.StringArray(interests),
		PreferredAgeMin:  18,
		PreferredAgeMax:  99,
		MaxDistanceKM:    50,
		LastActiveAt:     scoreNow.Add(-time.Hour),
	}
}

func TestRankCandidatesOrdersByScore(t *testing.T) {
	viewerID := uuid.New()
	viewer := directoryUser(viewerID, 30, []string{"hiking", "jazz"})
	viewer.Gender = "woman"
	viewer.GenderPreference = "man"

	strong := directoryUser(uuid.New(), 30, []string{"hiking", "jazz"})
	weak := directoryUser(uuid.New(), 30, []string{"chess"})

	dir := &fakeDirectory{
		viewer:     &viewer,
		candidates: []models.User{weak, strong},
	}
	svc := rankerWith(dir)

	ranked, err := svc.RankCandidates(context.Background(), viewerID, 10, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(ranked) != 2 {
		t.Fatalf("expected 2 candidates, got %d", len(ranked))
	}
	if ranked[0].CandidateID != strong.ID {
		t.Fatalf("expected strong candidate first, got %s", ranked[0].CandidateID)
	}
	if ranked[0].Score <= ranked[1].Score {
		t.Fatalf("expected descending scores, got %v then %v", ranked[0].Score, ranked[1].Score)
	}
}

func TestRankCandidatesTieBreaks(t *testing.T) {
	viewerID := uuid.New()
	viewer := directoryUser(viewerID, 30, []string{"hiking"})
	viewer.Gender = "woman"
	viewer.GenderPreference = "man"

	older := directoryUser(uuid.New(), 30, []string{"hiking"})
	older.LastActiveAt = scoreNow.Add(-48 * time.Hour)
	recent := directoryUser(uuid.New(), 30, []string{"hiking"})
	recent.LastActiveAt = scoreNow.Add(-time.Minute)

	dir := &fakeDirectory{
		viewer:     &viewer,
		candidates: []models.User{older, recent},
	}
	svc := rankerWith(dir)

	ranked, err := svc.RankCandidates(context.Background(), viewerID, 10, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(ranked) != 2 {
		t.Fatalf("expected 2 candidates, got %d", len(ranked))
	}
	if ranked[0].CandidateID != recent.ID {
		t.Fatalf("equal scores should order by recent activity, got %s first", ranked[0].CandidateID)
	}
}

func TestRankCandidatesFiltersBlockedAndGender(t *testing.T) {
	viewerID := uuid.New()
	viewer := directoryUser(viewerID, 30, []string{"hiking"})
	viewer.Gender = "woman"
	viewer.GenderPreference = "man"

	blocked := directoryUser(uuid.New(), 30, []string{"hiking"})
	mismatched := directoryUser(uuid.New(), 30, []string{"hiking"})
	mismatched.GenderPreference = "man"
	kept := directoryUser(uuid.New(), 30, []string{"hiking"})

	dir := &fakeDirectory{
		viewer:     &viewer,
		candidates: []models.User{blocked, mismatched, kept},
		blocked:    []uuid.UUID{blocked.ID},
	}
	svc := rankerWith(dir)

	ranked, err := svc.RankCandidates(context.Background(), viewerID, 10, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(ranked) != 1 {
		t.Fatalf("expected 1 candidate after filtering, got %d", len(ranked))
	}
	if ranked[0].CandidateID != kept.ID {
		t.Fatalf("unexpected surviving candidate %s", ranked[0].CandidateID)
	}
}

func TestRankCandidatesOffsetBeyondEnd(t *testing.T) {
	viewerID := uuid.New()
	viewer := directoryUser(viewerID, 30, nil)
	viewer.Gender = "woman"
	viewer.GenderPreference = "man"

	dir := &fakeDirectory{
		viewer:     &viewer,
		candidates: []models.User{directoryUser(uuid.New(), 30, nil)},
	}
	svc := rankerWith(dir)

	ranked, err := svc.RankCandidates(context.Background(), viewerID, 10, 50)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(ranked) != 0 {
		t.Fatalf("expected empty page past the end, got %d", len(ranked))
	}
}

func TestRankCandidatesViewerMissing(t *testing.T) {
	dir := &fakeDirectory{}
	svc := rankerWith(dir)

	_, err := svc.RankCandidates(context.Background(), uuid.New(), 10, 0)
	if err == nil {
		t.Fatal("expected error for unknown viewer")
	}
	if pkgerrors.As(err).Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}
