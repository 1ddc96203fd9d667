package payloads

import (
	"time"

	"github.com/google/uuid"

	"github.com/sparkmeet/sparkmeet-backend/pkg/enums"
)

// MatchFormedEvent signals that two users liked each other and a match row
// was created. Emitted exactly once per match pair.
type MatchFormedEvent struct {
	MatchID   uuid.UUID `json:"match_id"`
	UserA     uuid.UUID `json:"user_a"`
	UserB     uuid.UUID `json:"user_b"`
	MatchedAt time.Time `json:"matched_at"`
}

// LikeReceivedEvent is emitted for each positive swipe so the recipient can
// be notified independently of whether a match formed.
type LikeReceivedEvent struct {
	ActorID  uuid.UUID           `json:"actor_id"`
	TargetID uuid.UUID           `json:"target_id"`
	Decision enums.SwipeDecision `json:"decision"`
	SwipedAt time.Time           `json:"swiped_at"`
}

// MessageSentEvent carries a chat message reference for notification fanout.
type MessageSentEvent struct {
	MessageID   uuid.UUID `json:"message_id"`
	MatchID     uuid.UUID `json:"match_id"`
	SenderID    uuid.UUID `json:"sender_id"`
	SenderName  string    `json:"sender_name,omitempty"`
	RecipientID uuid.UUID `json:"recipient_id"`
	Preview     string    `json:"preview,omitempty"`
	SentAt      time.Time `json:"sent_at"`
}

// NotificationRequestedEvent asks the delivery pipeline to create and route
// a notification for the recipient.
type NotificationRequestedEvent struct {
	RecipientID uuid.UUID                  `json:"recipient_id"`
	Type        enums.NotificationType     `json:"type"`
	Priority    enums.NotificationPriority `json:"priority"`
	Title       string                     `json:"title"`
	Message     string                     `json:"message"`
	GroupKey    string                     `json:"group_key,omitempty"`
	SourceID    *uuid.UUID                 `json:"source_id,omitempty"`
}
