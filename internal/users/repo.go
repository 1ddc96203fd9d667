package users

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/sparkmeet/sparkmeet-backend/pkg/db/models"
)

// Repository exposes directory reads over the replicated user table.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a users repo bound to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// FindByID loads a user by their UUID. Returns nil when no row exists.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}

// FindActiveByID loads a user only when their profile is active.
func (r *Repository) FindActiveByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).
		Where("id = ? AND is_active = TRUE", id).
		First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}

// ListCandidates returns active users of the requested gender, excluding the
// viewer and anyone the viewer already swiped on. Scoring and the remaining
// hard filters run in memory on this pool.
func (r *Repository) ListCandidates(ctx context.Context, viewerID uuid.UUID, gender string, limit int) ([]models.User, error) {
	query := r.db.WithContext(ctx).
		Where("id <> ? AND is_active = TRUE", viewerID).
		Where("id NOT IN (?)", r.db.Model(&models.SwipeAction{}).
			Select("target_id").
			Where("actor_id = ?", viewerID))
	if gender != "" && gender != "any" {
		query = query.Where("gender = ?", gender)
	}

	var candidates []models.User
	err := query.Order("last_active_at DESC").Limit(limit).Find(&candidates).Error
	return candidates, err
}

// IsBlockedEither reports whether either user has blocked the other.
func (r *Repository) IsBlockedEither(ctx context.Context, a, b uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.UserBlock{}).
		Where("(blocker_id = ? AND blocked_id = ?) OR (blocker_id = ? AND blocked_id = ?)", a, b, b, a).
		Count(&count).Error
	return count > 0, err
}

// BlockedUserIDs returns every user id involved in a block with the viewer,
// in either direction.
func (r *Repository) BlockedUserIDs(ctx context.Context, viewerID uuid.UUID) ([]uuid.UUID, error) {
	var blocks []models.UserBlock
	err := r.db.WithContext(ctx).
		Where("blocker_id = ? OR blocked_id = ?", viewerID, viewerID).
		Find(&blocks).Error
	if err != nil {
		return nil, err
	}
	ids := make([]uuid.UUID, 0, len(blocks))
	for _, b := range blocks {
		if b.BlockerID == viewerID {
			ids = append(ids, b.BlockedID)
		} else {
			ids = append(ids, b.BlockerID)
		}
	}
	return ids, nil
}

// UpdateLastActive refreshes the user's last_active_at timestamp.
func (r *Repository) UpdateLastActive(ctx context.Context, id uuid.UUID, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", id).
		UpdateColumn("last_active_at", at).Error
}
