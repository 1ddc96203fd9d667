package notifications

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/sparkmeet/sparkmeet-backend/pkg/db/models"
	"github.com/sparkmeet/sparkmeet-backend/pkg/enums"
	"github.com/sparkmeet/sparkmeet-backend/pkg/pagination"
)

// Repository exposes persistence helpers for notifications.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, notification *models.Notification) error
	GetByID(ctx context.Context, userID, notificationID uuid.UUID) (*models.Notification, error)
	List(ctx context.Context, params listNotificationsParams) ([]models.Notification, *pagination.Cursor, error)
	ListGroupMembers(ctx context.Context, userID, summaryID uuid.UUID) ([]models.Notification, error)
	MarkRead(ctx context.Context, userID, notificationID uuid.UUID, now time.Time) (notificationMarkResult, error)
	MarkAllRead(ctx context.Context, userID uuid.UUID, now time.Time) (int64, error)
	Delete(ctx context.Context, userID, notificationID uuid.UUID) (bool, error)
	CountUnread(ctx context.Context, userID uuid.UUID) (int64, error)

	ListDue(ctx context.Context, now time.Time, limit int) ([]models.Notification, error)
	SetState(ctx context.Context, notificationID uuid.UUID, from []enums.NotificationState, to enums.NotificationState, now time.Time) (bool, error)
	FindOpenGroup(ctx context.Context, userID uuid.UUID, groupKey string, openedAfter time.Time) (*models.Notification, error)
	IncrementGroup(ctx context.Context, notificationID uuid.UUID) error
	Defer(ctx context.Context, notificationID uuid.UUID, until time.Time) error
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

type repositoryImpl struct {
	db *gorm.DB
}

// NewRepository returns a notifications repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{db: db}
}

type listNotificationsParams struct {
	UserID     uuid.UUID
	Limit      int
	Cursor     *pagination.Cursor
	UnreadOnly bool
}

type notificationMarkResult struct {
	Updated bool
	Found   bool
}

func (r *repositoryImpl) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repositoryImpl{db: tx}
}

func (r *repositoryImpl) Create(ctx context.Context, notification *models.Notification) error {
	return r.db.WithContext(ctx).Create(notification).Error
}

func (r *repositoryImpl) GetByID(ctx context.Context, userID, notificationID uuid.UUID) (*models.Notification, error) {
	var row models.Notification
	err := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", notificationID, userID).
		First(&row).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}

// priorityRank sorts the high band ahead of normal. The enum is text, so a
// bare priority DESC would order 'normal' before 'high'.
const priorityRank = "CASE WHEN priority = 'high' THEN 0 ELSE 1 END"

func (r *repositoryImpl) List(ctx context.Context, params listNotificationsParams) ([]models.Notification, *pagination.Cursor, error) {
	limit := pagination.LimitWithBuffer(params.Limit)
	normalized := pagination.NormalizeLimit(params.Limit)
	query := r.db.WithContext(ctx).Model(&models.Notification{}).
		Where("user_id = ?", params.UserID).
		Where("summary_id IS NULL")
	if params.UnreadOnly {
		query = query.Where("read_at IS NULL")
	}
	if params.Cursor != nil {
		rank := 1
		if params.Cursor.Priority == string(enums.NotificationPriorityHigh) {
			rank = 0
		}
		// The cursor names the first row of the requested page: later
		// priority bands entirely, or the same band at or past the cursor.
		query = query.Where(
			"("+priorityRank+") > ? OR (("+priorityRank+") = ? AND (created_at, id) <= (?, ?))",
			rank, rank, params.Cursor.CreatedAt, params.Cursor.ID)
	}

	var notifications []models.Notification
	if err := query.Order(priorityRank + " ASC, created_at DESC, id DESC").Limit(limit).Find(&notifications).Error; err != nil {
		return nil, nil, err
	}

	if len(notifications) > normalized {
		next := notifications[normalized]
		notifications = notifications[:normalized]
		return notifications, &pagination.Cursor{
			CreatedAt: next.CreatedAt,
			ID:        next.ID,
			Priority:  string(next.Priority),
		}, nil
	}
	return notifications, nil, nil
}

// ListGroupMembers returns the individual events a summary collapsed,
// oldest first. Expanding a summary with no members yields an empty slice;
// the summary row itself carries the first event's content.
func (r *repositoryImpl) ListGroupMembers(ctx context.Context, userID, summaryID uuid.UUID) ([]models.Notification, error) {
	var rows []models.Notification
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND summary_id = ?", userID, summaryID).
		Order("created_at ASC, id ASC").
		Find(&rows).Error
	return rows, err
}

func (r *repositoryImpl) MarkRead(ctx context.Context, userID, notificationID uuid.UUID, now time.Time) (notificationMarkResult, error) {
	// read_at IS NULL keeps the transition one-way: replays hit zero rows.
	result := r.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("id = ? AND user_id = ? AND read_at IS NULL", notificationID, userID).
		UpdateColumns(map[string]any{
			"read_at": now,
			"state":   enums.NotificationStateRead,
		})
	if result.Error != nil {
		return notificationMarkResult{}, result.Error
	}

	mark := notificationMarkResult{Updated: result.RowsAffected > 0}
	if result.RowsAffected > 0 {
		// Reading a summary reads its collapsed members too.
		if err := r.db.WithContext(ctx).
			Model(&models.Notification{}).
			Where("summary_id = ? AND user_id = ? AND read_at IS NULL", notificationID, userID).
			UpdateColumns(map[string]any{
				"read_at": now,
				"state":   enums.NotificationStateRead,
			}).Error; err != nil {
			return notificationMarkResult{}, err
		}
		mark.Found = true
		return mark, nil
	}

	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("id = ? AND user_id = ?", notificationID, userID).
		Count(&count).Error; err != nil {
		return notificationMarkResult{}, err
	}
	mark.Found = count > 0
	return mark, nil
}

func (r *repositoryImpl) MarkAllRead(ctx context.Context, userID uuid.UUID, now time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("user_id = ? AND read_at IS NULL", userID).
		UpdateColumns(map[string]any{
			"read_at": now,
			"state":   enums.NotificationStateRead,
		})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

func (r *repositoryImpl) Delete(ctx context.Context, userID, notificationID uuid.UUID) (bool, error) {
	result := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", notificationID, userID).
		Delete(&models.Notification{})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// CountUnread excludes member rows: the summary already stands in for them
// on the badge.
func (r *repositoryImpl) CountUnread(ctx context.Context, userID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("user_id = ? AND read_at IS NULL AND summary_id IS NULL", userID).
		Count(&count).Error
	return count, err
}

func (r *repositoryImpl) ListDue(ctx context.Context, now time.Time, limit int) ([]models.Notification, error) {
	var rows []models.Notification
	err := r.db.WithContext(ctx).
		Where("state IN ? AND (deliver_after IS NULL OR deliver_after <= ?)",
			[]enums.NotificationState{enums.NotificationStatePending, enums.NotificationStateDeferred}, now).
		Order("created_at ASC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

func (r *repositoryImpl) SetState(ctx context.Context, notificationID uuid.UUID, from []enums.NotificationState, to enums.NotificationState, now time.Time) (bool, error) {
	updates := map[string]any{"state": to}
	if to == enums.NotificationStateDelivered {
		updates["delivered_at"] = now
	}
	result := r.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("id = ? AND state IN ?", notificationID, from).
		UpdateColumns(updates)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repositoryImpl) FindOpenGroup(ctx context.Context, userID uuid.UUID, groupKey string, openedAfter time.Time) (*models.Notification, error) {
	var row models.Notification
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND group_key = ? AND state IN ? AND read_at IS NULL AND created_at > ?",
			userID, groupKey,
			[]enums.NotificationState{
				enums.NotificationStatePending,
				enums.NotificationStateDeferred,
				enums.NotificationStateDelivered,
			},
			openedAfter).
		Order("created_at ASC").
		First(&row).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}

func (r *repositoryImpl) IncrementGroup(ctx context.Context, notificationID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("id = ?", notificationID).
		UpdateColumn("group_count", gorm.Expr("group_count + 1")).Error
}

// Defer parks the notification until the given instant. Delivered rows are
// eligible too: a regrouped summary returns to the queue for its final send.
func (r *repositoryImpl) Defer(ctx context.Context, notificationID uuid.UUID, until time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("id = ? AND state IN ?", notificationID,
			[]enums.NotificationState{
				enums.NotificationStatePending,
				enums.NotificationStateDeferred,
				enums.NotificationStateDelivered,
			}).
		UpdateColumns(map[string]any{
			"state":         enums.NotificationStateDeferred,
			"deliver_after": until,
		}).Error
}

func (r *repositoryImpl) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("created_at < ? AND read_at IS NOT NULL", cutoff).
		Delete(&models.Notification{})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}
