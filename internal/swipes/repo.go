package swipes

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/sparkmeet/sparkmeet-backend/pkg/db/models"
	"github.com/sparkmeet/sparkmeet-backend/pkg/enums"
)

// Repository exposes persistence helpers for the swipe ledger.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	LockPair(ctx context.Context, x, y uuid.UUID) error
	Insert(ctx context.Context, swipe *models.SwipeAction) error
	Get(ctx context.Context, actorID, targetID uuid.UUID) (*models.SwipeAction, error)
	HasPositive(ctx context.Context, actorID, targetID uuid.UUID) (bool, error)
	CountPositiveSince(ctx context.Context, actorID uuid.UUID, since time.Time) (int64, error)
}

type repositoryImpl struct {
	db *gorm.DB
}

// NewRepository returns a swipe repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{db: db}
}

func (r *repositoryImpl) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repositoryImpl{db: tx}
}

// LockPair takes a transaction-scoped advisory lock on the canonicalized
// pair. Under READ COMMITTED two concurrent reciprocal likes can each count
// zero reciprocal rows before the other commits, leaving no match at all;
// the lock serializes the check-and-insert and releases at transaction end.
// Dialects without advisory locks serialize writers on their own.
func (r *repositoryImpl) LockPair(ctx context.Context, x, y uuid.UUID) error {
	if r.db.Dialector.Name() != "postgres" {
		return nil
	}
	userA, userB := models.CanonicalPair(x, y)
	return r.db.WithContext(ctx).
		Exec("SELECT pg_advisory_xact_lock(hashtextextended(?, 0))",
			userA.String()+":"+userB.String()).Error
}

// Insert appends a ledger row. The composite primary key surfaces duplicate
// pairs as a unique violation; callers treat that as a replay, not an error.
func (r *repositoryImpl) Insert(ctx context.Context, swipe *models.SwipeAction) error {
	return r.db.WithContext(ctx).Create(swipe).Error
}

func (r *repositoryImpl) Get(ctx context.Context, actorID, targetID uuid.UUID) (*models.SwipeAction, error) {
	var swipe models.SwipeAction
	err := r.db.WithContext(ctx).
		Where("actor_id = ? AND target_id = ?", actorID, targetID).
		First(&swipe).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &swipe, nil
}

// HasPositive reports whether actor has an existing like or super like
// toward target.
func (r *repositoryImpl) HasPositive(ctx context.Context, actorID, targetID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.SwipeAction{}).
		Where("actor_id = ? AND target_id = ? AND decision IN ?",
			actorID, targetID,
			[]enums.SwipeDecision{enums.SwipeDecisionLike, enums.SwipeDecisionSuperLike}).
		Count(&count).Error
	return count > 0, err
}

// CountPositiveSince counts the actor's likes and super likes created at or
// after the cutoff. Used as the quota fallback when the counter cache is
// unavailable.
func (r *repositoryImpl) CountPositiveSince(ctx context.Context, actorID uuid.UUID, since time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.SwipeAction{}).
		Where("actor_id = ? AND decision IN ? AND created_at >= ?",
			actorID,
			[]enums.SwipeDecision{enums.SwipeDecisionLike, enums.SwipeDecisionSuperLike},
			since).
		Count(&count).Error
	return count, err
}
