package swipes

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/sparkmeet/sparkmeet-backend/internal/matches"
	"github.com/sparkmeet/sparkmeet-backend/pkg/config"
	dbpkg "github.com/sparkmeet/sparkmeet-backend/pkg/db"
	"github.com/sparkmeet/sparkmeet-backend/pkg/db/models"
	"github.com/sparkmeet/sparkmeet-backend/pkg/enums"
	pkgerrors "github.com/sparkmeet/sparkmeet-backend/pkg/errors"
	"github.com/sparkmeet/sparkmeet-backend/pkg/logger"
	"github.com/sparkmeet/sparkmeet-backend/pkg/outbox"
	"github.com/sparkmeet/sparkmeet-backend/pkg/outbox/payloads"
)

// Directory is the read surface the ledger needs from the user replica.
type Directory interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	FindActiveByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	IsBlockedEither(ctx context.Context, a, b uuid.UUID) (bool, error)
}

// QuotaCounter tracks per-user daily like counters.
type QuotaCounter interface {
	IncrDailyQuota(ctx context.Context, userID, localDate string, ttl time.Duration) (int64, error)
	DailyQuotaUsed(ctx context.Context, userID, localDate string) (int64, error)
}

// Emitter writes domain events into the transactional outbox.
type Emitter interface {
	EmitIfNotExists(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Service records swipes and detects matches.
type Service interface {
	RecordSwipe(ctx context.Context, actorID, targetID uuid.UUID, decision enums.SwipeDecision) (*SwipeResult, error)
}

// SwipeResult is the caller-visible outcome.
type SwipeResult struct {
	Status  enums.SwipeStatus `json:"status"`
	MatchID *uuid.UUID        `json:"match_id,omitempty"`
	Replay  bool              `json:"-"`
}

type service struct {
	db        *gorm.DB
	repo      Repository
	matchRepo matches.Repository
	directory Directory
	quota     QuotaCounter
	emitter   Emitter
	cfg       config.SwipesConfig
	logg      *logger.Logger
	now       func() time.Time
}

// NewService wires the swipe ledger dependencies.
func NewService(
	db *gorm.DB,
	repo Repository,
	matchRepo matches.Repository,
	directory Directory,
	quota QuotaCounter,
	emitter Emitter,
	cfg config.SwipesConfig,
	logg *logger.Logger,
) (Service, error) {
	if db == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "database required")
	}
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "swipe repository required")
	}
	if matchRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "match repository required")
	}
	if directory == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "user directory required")
	}
	if emitter == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "outbox emitter required")
	}
	return &service{
		db:        db,
		repo:      repo,
		matchRepo: matchRepo,
		directory: directory,
		quota:     quota,
		emitter:   emitter,
		cfg:       cfg,
		logg:      logg,
		now:       time.Now,
	}, nil
}

func (s *service) RecordSwipe(ctx context.Context, actorID, targetID uuid.UUID, decision enums.SwipeDecision) (*SwipeResult, error) {
	if actorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "actor id required")
	}
	if !decision.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid swipe decision")
	}
	if targetID == uuid.Nil || targetID == actorID {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cannot swipe on yourself")
	}

	actor, err := s.directory.FindByID(ctx, actorID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load actor")
	}
	if actor == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "actor not found")
	}

	target, err := s.directory.FindActiveByID(ctx, targetID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load target")
	}
	if target == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "target not found")
	}

	blocked, err := s.directory.IsBlockedEither(ctx, actorID, targetID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check blocks")
	}
	if blocked {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "target unavailable")
	}

	// The ledger is immutable: a repeated pair replays the stored outcome.
	existing, err := s.repo.Get(ctx, actorID, targetID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check existing swipe")
	}
	if existing != nil {
		return s.replay(ctx, existing)
	}

	now := s.now()
	if decision.IsPositive() && !actor.Premium {
		used, err := s.quotaUsed(ctx, actor, now)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read quota")
		}
		if used >= int64(s.cfg.DailyLikeQuota) {
			return nil, pkgerrors.New(pkgerrors.CodeRateLimit, "daily like quota exceeded")
		}
	}

	result := &SwipeResult{Status: enums.SwipeStatusPassed}
	if decision.IsPositive() {
		result.Status = enums.SwipeStatusLiked
	}

	txErr := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if decision.IsPositive() {
			// Holds until commit so a concurrent reciprocal like must see
			// this row before running its own reciprocal check.
			if err := s.repo.WithTx(tx).LockPair(ctx, actorID, targetID); err != nil {
				return err
			}
		}
		swipe := &models.SwipeAction{
			ActorID:   actorID,
			TargetID:  targetID,
			Decision:  decision,
			CreatedAt: now,
		}
		if err := s.repo.WithTx(tx).Insert(ctx, swipe); err != nil {
			return err
		}
		if !decision.IsPositive() {
			return nil
		}

		reciprocal, err := s.repo.WithTx(tx).HasPositive(ctx, targetID, actorID)
		if err != nil {
			return err
		}
		if reciprocal {
			match, _, err := s.matchRepo.WithTx(tx).CreateIfAbsent(ctx, actorID, targetID)
			if err != nil {
				return err
			}
			if err := s.emitter.EmitIfNotExists(ctx, tx, outbox.DomainEvent{
				EventType:     enums.EventMatchFormed,
				AggregateType: enums.AggregateMatch,
				AggregateID:   match.ID,
				Actor:         &outbox.ActorRef{UserID: actorID},
				Data: payloads.MatchFormedEvent{
					MatchID:   match.ID,
					UserA:     match.UserA,
					UserB:     match.UserB,
					MatchedAt: match.CreatedAt,
				},
				Version:    1,
				OccurredAt: now,
			}); err != nil {
				return err
			}
			result.Status = enums.SwipeStatusMatched
			result.MatchID = &match.ID
			return nil
		}

		return s.emitter.EmitIfNotExists(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventLikeReceived,
			AggregateType: enums.AggregateSwipe,
			AggregateID:   swipeAggregateID(actorID, targetID),
			Actor:         &outbox.ActorRef{UserID: actorID},
			Data: payloads.LikeReceivedEvent{
				ActorID:  actorID,
				TargetID: targetID,
				Decision: decision,
				SwipedAt: now,
			},
			Version:    1,
			OccurredAt: now,
		})
	})
	if txErr != nil {
		// A concurrent duplicate lost the insert race; replay the winner.
		if dbpkg.IsUniqueViolation(txErr, "") {
			winner, err := s.repo.Get(ctx, actorID, targetID)
			if err != nil {
				return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload swipe")
			}
			if winner != nil {
				return s.replay(ctx, winner)
			}
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, txErr, "record swipe")
	}

	if decision.IsPositive() && !actor.Premium && s.quota != nil {
		localDate, ttl := quotaWindow(actor, now)
		if _, err := s.quota.IncrDailyQuota(ctx, actorID.String(), localDate, ttl); err != nil && s.logg != nil {
			s.logg.Error(ctx, "quota counter increment failed", err)
		}
	}

	return result, nil
}

// replay rebuilds the original outcome of an already-recorded swipe.
func (s *service) replay(ctx context.Context, swipe *models.SwipeAction) (*SwipeResult, error) {
	result := &SwipeResult{Replay: true, Status: enums.SwipeStatusPassed}
	if !swipe.Decision.IsPositive() {
		return result, nil
	}
	result.Status = enums.SwipeStatusLiked

	match, err := s.matchRepo.FindByPair(ctx, swipe.ActorID, swipe.TargetID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load match")
	}
	if match != nil {
		result.Status = enums.SwipeStatusMatched
		result.MatchID = &match.ID
	}
	return result, nil
}

// quotaUsed reads the counter cache and falls back to the ledger when the
// cache is unavailable.
func (s *service) quotaUsed(ctx context.Context, actor *models.User, now time.Time) (int64, error) {
	midnight := localMidnight(actor, now)
	if s.quota != nil {
		localDate, _ := quotaWindow(actor, now)
		used, err := s.quota.DailyQuotaUsed(ctx, actor.ID.String(), localDate)
		if err == nil {
			return used, nil
		}
		if s.logg != nil {
			s.logg.Error(ctx, "quota counter read failed, falling back to ledger", err)
		}
	}
	return s.repo.CountPositiveSince(ctx, actor.ID, midnight)
}

// quotaWindow returns the actor-local date bucket and the TTL remaining
// until their next local midnight.
func quotaWindow(actor *models.User, now time.Time) (string, time.Duration) {
	local := now.In(actor.Location())
	next := localMidnight(actor, now).AddDate(0, 0, 1)
	return local.Format("2006-01-02"), next.Sub(now)
}

// localMidnight returns the start of the actor's current local day.
func localMidnight(actor *models.User, now time.Time) time.Time {
	local := now.In(actor.Location())
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, local.Location())
}

// swipeAggregateID derives a stable id for the (actor, target) pair so the
// outbox unique guard deduplicates like_received emission.
func swipeAggregateID(actorID, targetID uuid.UUID) uuid.UUID {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte("swipe:"+actorID.String()+":"+targetID.String()))
}
