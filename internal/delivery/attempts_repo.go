package delivery

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/sparkmeet/sparkmeet-backend/pkg/db/models"
	"github.com/sparkmeet/sparkmeet-backend/pkg/enums"
)

// AttemptRepository is the append-only ledger of channel sends.
type AttemptRepository interface {
	Record(ctx context.Context, attempt *models.DeliveryAttempt) error
	HasDelivered(ctx context.Context, notificationID uuid.UUID, channel enums.Channel, contentHash string) (bool, error)
	CountForChannel(ctx context.Context, notificationID uuid.UUID, channel enums.Channel) (int, error)
	ListForNotification(ctx context.Context, notificationID uuid.UUID) ([]models.DeliveryAttempt, error)
}

type attemptRepositoryImpl struct {
	db *gorm.DB
}

func NewAttemptRepository(db *gorm.DB) AttemptRepository {
	return &attemptRepositoryImpl{db: db}
}

func (r *attemptRepositoryImpl) Record(ctx context.Context, attempt *models.DeliveryAttempt) error {
	return r.db.WithContext(ctx).Create(attempt).Error
}

// HasDelivered reports whether this channel already accepted this exact
// content. A hash mismatch means the notification was regrouped since the
// last send and must go out again.
func (r *attemptRepositoryImpl) HasDelivered(ctx context.Context, notificationID uuid.UUID, channel enums.Channel, contentHash string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.DeliveryAttempt{}).
		Where("notification_id = ? AND channel = ? AND content_hash = ? AND outcome = ?",
			notificationID, channel, contentHash, enums.DeliveryOutcomeDelivered).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *attemptRepositoryImpl) CountForChannel(ctx context.Context, notificationID uuid.UUID, channel enums.Channel) (int, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.DeliveryAttempt{}).
		Where("notification_id = ? AND channel = ?", notificationID, channel).
		Count(&count).Error
	if err != nil {
		return 0, err
	}
	return int(count), nil
}

func (r *attemptRepositoryImpl) ListForNotification(ctx context.Context, notificationID uuid.UUID) ([]models.DeliveryAttempt, error) {
	var attempts []models.DeliveryAttempt
	err := r.db.WithContext(ctx).
		Where("notification_id = ?", notificationID).
		Order("channel ASC, attempt_number ASC").
		Find(&attempts).Error
	if err != nil {
		return nil, err
	}
	return attempts, nil
}
