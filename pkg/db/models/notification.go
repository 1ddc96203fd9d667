package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/sparkmeet/sparkmeet-backend/pkg/enums"
)

// Notification is a single feed entry owned by the delivery pipeline until it
// reaches a terminal delivery state; read state is user-driven afterwards.
//
// GroupKey/GroupCount implement batching: a summary row carries the group key
// and the number of collapsed members, while absorbed events persist as
// feed-only member rows pointing back at the summary via SummaryID. Member
// rows never dispatch and stay out of the main feed; clients fetch them when
// expanding a summary.
type Notification struct {
	ID           uuid.UUID                  `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	UserID       uuid.UUID                  `gorm:"column:user_id;type:uuid;not null;index:idx_notifications_user_created,priority:1"`
	Type         enums.NotificationType     `gorm:"column:type;type:notification_type;not null"`
	Priority     enums.NotificationPriority `gorm:"column:priority;type:notification_priority;not null;default:'normal'"`
	Title        string                     `gorm:"type:text;not null"`
	Message      string                     `gorm:"type:text;not null"`
	GroupKey     *string                    `gorm:"column:group_key;type:text"`
	GroupCount   int                        `gorm:"column:group_count;not null;default:1"`
	SummaryID    *uuid.UUID                 `gorm:"column:summary_id;type:uuid;index:idx_notifications_summary"`
	State        enums.NotificationState    `gorm:"column:state;type:notification_state;not null;default:'pending'"`
	DeliverAfter *time.Time                 `gorm:"column:deliver_after;type:timestamptz"`
	DeliveredAt  *time.Time                 `gorm:"column:delivered_at;type:timestamptz"`
	ReadAt       *time.Time                 `gorm:"column:read_at;type:timestamptz"`
	CreatedAt    time.Time                  `gorm:"column:created_at;type:timestamptz;default:now();index:idx_notifications_user_created,priority:2,sort:desc"`
}
