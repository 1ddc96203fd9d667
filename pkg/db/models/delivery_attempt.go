package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/sparkmeet/sparkmeet-backend/pkg/enums"
)

// DeliveryAttempt is the append-only audit row for one channel send. The
// (notification, channel, attempt) key plus the content hash is what makes
// retried dispatches idempotent: a recorded success for the same content
// short-circuits any further attempt on that channel.
type DeliveryAttempt struct {
	NotificationID uuid.UUID             `gorm:"column:notification_id;type:uuid;primaryKey"`
	Channel        enums.Channel         `gorm:"column:channel;type:channel;primaryKey"`
	AttemptNumber  int                   `gorm:"column:attempt_number;primaryKey"`
	Outcome        enums.DeliveryOutcome `gorm:"column:outcome;type:delivery_outcome;not null"`
	ContentHash    string                `gorm:"column:content_hash;type:text;not null"`
	Error          *string               `gorm:"column:error;type:text"`
	CreatedAt      time.Time             `gorm:"column:created_at;autoCreateTime"`
}
