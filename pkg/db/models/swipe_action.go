package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/sparkmeet/sparkmeet-backend/pkg/enums"
)

// SwipeAction records one user's decision about another.
//
// Composite PK (actor_id, target_id) makes the pair unique; rows are
// immutable after creation, so a retried swipe replays the stored decision
// instead of flipping it.
type SwipeAction struct {
	ActorID   uuid.UUID           `gorm:"column:actor_id;type:uuid;primaryKey"`
	TargetID  uuid.UUID           `gorm:"column:target_id;type:uuid;primaryKey;index:idx_swipe_target_decision,priority:1"`
	Decision  enums.SwipeDecision `gorm:"column:decision;type:swipe_decision;not null;index:idx_swipe_target_decision,priority:2"`
	CreatedAt time.Time           `gorm:"column:created_at;autoCreateTime"`
}
