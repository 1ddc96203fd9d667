package models

import (
	"time"

	"github.com/google/uuid"
)

// UserBlock hides two users from each other. Enforcement is symmetric: a
// block in either direction excludes the pair from discovery and swipes.
type UserBlock struct {
	BlockerID uuid.UUID `gorm:"column:blocker_id;type:uuid;primaryKey"`
	BlockedID uuid.UUID `gorm:"column:blocked_id;type:uuid;primaryKey"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}
