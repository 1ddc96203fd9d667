package models

import (
	"time"

	"github.com/google/uuid"
)

// NotificationPreference stores a user's delivery policy: channel and type
// toggles, the quiet-hours window and digest opt-in. Quiet minutes count from
// local midnight; a window with start > end wraps midnight (22:00-08:00).
type NotificationPreference struct {
	UserID uuid.UUID `gorm:"column:user_id;type:uuid;primaryKey"`

	PushEnabled  bool `gorm:"column:push_enabled;not null;default:true"`
	EmailEnabled bool `gorm:"column:email_enabled;not null;default:true"`
	InAppEnabled bool `gorm:"column:in_app_enabled;not null;default:true"`

	MatchEnabled   bool `gorm:"column:match_enabled;not null;default:true"`
	MessageEnabled bool `gorm:"column:message_enabled;not null;default:true"`
	LikeEnabled    bool `gorm:"column:like_enabled;not null;default:true"`
	SystemEnabled  bool `gorm:"column:system_enabled;not null;default:true"`

	QuietStartMinute *int `gorm:"column:quiet_start_minute"`
	QuietEndMinute   *int `gorm:"column:quiet_end_minute"`

	DigestOptIn bool `gorm:"column:digest_opt_in;not null;default:true"`

	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
