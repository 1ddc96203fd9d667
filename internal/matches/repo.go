package matches

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/sparkmeet/sparkmeet-backend/pkg/db/models"
	"github.com/sparkmeet/sparkmeet-backend/pkg/pagination"
)

// Repository exposes persistence helpers for matches.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateIfAbsent(ctx context.Context, x, y uuid.UUID) (*models.Match, bool, error)
	FindByPair(ctx context.Context, x, y uuid.UUID) (*models.Match, error)
	ListForUser(ctx context.Context, userID uuid.UUID, limit int, cursor *pagination.Cursor) ([]models.Match, *pagination.Cursor, error)
}

type repositoryImpl struct {
	db *gorm.DB
}

// NewRepository returns a matches repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{db: db}
}

func (r *repositoryImpl) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repositoryImpl{db: tx}
}

// CreateIfAbsent inserts the canonicalized pair, relying on ux_matches_pair
// for exactly-once semantics under concurrent reciprocal swipes. The bool is
// true when this call created the row; a conflict falls back to re-reading
// the winner's row.
func (r *repositoryImpl) CreateIfAbsent(ctx context.Context, x, y uuid.UUID) (*models.Match, bool, error) {
	userA, userB := models.CanonicalPair(x, y)
	match := &models.Match{ID: uuid.New(), UserA: userA, UserB: userB}

	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(match)
	if result.Error != nil {
		return nil, false, result.Error
	}
	if result.RowsAffected > 0 {
		return match, true, nil
	}

	existing, err := r.FindByPair(ctx, userA, userB)
	if err != nil {
		return nil, false, err
	}
	if existing == nil {
		return nil, false, errors.New("match row vanished after conflict")
	}
	return existing, false, nil
}

func (r *repositoryImpl) FindByPair(ctx context.Context, x, y uuid.UUID) (*models.Match, error) {
	userA, userB := models.CanonicalPair(x, y)
	var match models.Match
	err := r.db.WithContext(ctx).
		Where("user_a = ? AND user_b = ?", userA, userB).
		First(&match).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &match, nil
}

func (r *repositoryImpl) ListForUser(ctx context.Context, userID uuid.UUID, limit int, cursor *pagination.Cursor) ([]models.Match, *pagination.Cursor, error) {
	buffered := pagination.LimitWithBuffer(limit)
	normalized := pagination.NormalizeLimit(limit)
	query := r.db.WithContext(ctx).
		Model(&models.Match{}).
		Where("user_a = ? OR user_b = ?", userID, userID)
	if cursor != nil {
		// The cursor names the first row of the requested page.
		query = query.Where("(created_at, id) <= (?, ?)", cursor.CreatedAt, cursor.ID)
	}

	var rows []models.Match
	if err := query.Order("created_at DESC, id DESC").Limit(buffered).Find(&rows).Error; err != nil {
		return nil, nil, err
	}

	if len(rows) > normalized {
		next := rows[normalized]
		rows = rows[:normalized]
		return rows, &pagination.Cursor{CreatedAt: next.CreatedAt, ID: next.ID}, nil
	}
	return rows, nil, nil
}
