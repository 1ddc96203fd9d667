package discovery

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/sparkmeet/sparkmeet-backend/pkg/config"
	"github.com/sparkmeet/sparkmeet-backend/pkg/db/models"
	pkgerrors "github.com/sparkmeet/sparkmeet-backend/pkg/errors"
	"github.com/sparkmeet/sparkmeet-backend/pkg/logger"
)

// candidatePoolSize bounds how many directory rows one ranking pass loads.
const candidatePoolSize = 500

// Directory is the read surface the ranker needs from the user replica.
type Directory interface {
	FindActiveByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	ListCandidates(ctx context.Context, viewerID uuid.UUID, gender string, limit int) ([]models.User, error)
	BlockedUserIDs(ctx context.Context, viewerID uuid.UUID) ([]uuid.UUID, error)
}

// Service ranks discovery candidates for a viewer.
type Service interface {
	RankCandidates(ctx context.Context, viewerID uuid.UUID, limit, offset int) ([]RankedCandidate, error)
}

// RankedCandidate pairs a candidate with their compatibility score.
type RankedCandidate struct {
	CandidateID  uuid.UUID `json:"candidate_id"`
	DisplayName  string    `json:"display_name"`
	Age          int       `json:"age"`
	DistanceKM   float64   `json:"distance_km"`
	Score        float64   `json:"score"`
	LastActiveAt time.Time `json:"-"`
}

type service struct {
	directory Directory
	cfg       config.DiscoveryConfig
	logg      *logger.Logger
	now       func() time.Time
}

// NewService wires the discovery ranker.
func NewService(directory Directory, cfg config.DiscoveryConfig, logg *logger.Logger) (Service, error) {
	if directory == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "user directory required")
	}
	return &service{
		directory: directory,
		cfg:       cfg,
		logg:      logg,
		now:       time.Now,
	}, nil
}

func (s *service) RankCandidates(ctx context.Context, viewerID uuid.UUID, limit, offset int) ([]RankedCandidate, error) {
	if viewerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "viewer id required")
	}
	if limit <= 0 {
		limit = s.cfg.DefaultLimit
	}
	if limit > s.cfg.MaxLimit {
		limit = s.cfg.MaxLimit
	}
	if offset < 0 {
		offset = 0
	}

	viewer, err := s.directory.FindActiveByID(ctx, viewerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load viewer")
	}
	if viewer == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "viewer not found")
	}

	pool, err := s.directory.ListCandidates(ctx, viewerID, viewer.GenderPreference, candidatePoolSize)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list candidates")
	}

	blockedIDs, err := s.directory.BlockedUserIDs(ctx, viewerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load blocks")
	}
	blocked := make(map[uuid.UUID]struct{}, len(blockedIDs))
	for _, id := range blockedIDs {
		blocked[id] = struct{}{}
	}

	now := s.now()
	ranked := make([]RankedCandidate, 0, len(pool))
	for i := range pool {
		candidate := &pool[i]
		if candidate.ID == viewerID {
			continue
		}
		if _, isBlocked := blocked[candidate.ID]; isBlocked {
			continue
		}
		if !mutualGenderFit(viewer, candidate) {
			continue
		}
		ranked = append(ranked, RankedCandidate{
			CandidateID:  candidate.ID,
			DisplayName:  candidate.DisplayName,
			Age:          candidate.Age(now),
			DistanceKM:   haversineKM(viewer.Latitude, viewer.Longitude, candidate.Latitude, candidate.Longitude),
			Score:        Score(viewer, candidate, now, s.cfg.AgeToleranceYears),
			LastActiveAt: candidate.LastActiveAt,
		})
	}

	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Score != ranked[j].Score {
			return ranked[i].Score > ranked[j].Score
		}
		if !ranked[i].LastActiveAt.Equal(ranked[j].LastActiveAt) {
			return ranked[i].LastActiveAt.After(ranked[j].LastActiveAt)
		}
		return ranked[i].CandidateID.String() < ranked[j].CandidateID.String()
	})

	if offset >= len(ranked) {
		return []RankedCandidate{}, nil
	}
	end := offset + limit
	if end > len(ranked) {
		end = len(ranked)
	}
	return ranked[offset:end], nil
}
