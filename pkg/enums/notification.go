package enums

import "fmt"

// NotificationType maps to the notification_type enum in Postgres.
type NotificationType string

const (
	NotificationTypeMatch   NotificationType = "match"
	NotificationTypeMessage NotificationType = "message"
	NotificationTypeLike    NotificationType = "like"
	NotificationTypeSystem  NotificationType = "system"
)

var validNotificationTypes = []NotificationType{
	NotificationTypeMatch,
	NotificationTypeMessage,
	NotificationTypeLike,
	NotificationTypeSystem,
}

// IsValid checks whether the given type matches the canonical enum.
func (n NotificationType) IsValid() bool {
	for _, candidate := range validNotificationTypes {
		if candidate == n {
			return true
		}
	}
	return false
}

// ParseNotificationType converts raw strings into NotificationType.
func ParseNotificationType(value string) (NotificationType, error) {
	for _, candidate := range validNotificationTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid notification type %q", value)
}

// NotificationPriority maps to the notification_priority enum in Postgres.
// High-priority notifications bypass quiet hours and are never batched.
type NotificationPriority string

const (
	NotificationPriorityNormal NotificationPriority = "normal"
	NotificationPriorityHigh   NotificationPriority = "high"
)

// IsValid checks whether the value matches the canonical enum.
func (p NotificationPriority) IsValid() bool {
	return p == NotificationPriorityNormal || p == NotificationPriorityHigh
}

// NotificationState maps to the notification_state enum in Postgres.
//
// Transitions are monotonic: pending -> deferred -> delivered -> read, with
// failed reachable only from pending/deferred. The dispatch pipeline owns a
// notification exclusively until delivered; read is user-driven afterwards.
type NotificationState string

const (
	NotificationStatePending   NotificationState = "pending"
	NotificationStateDeferred  NotificationState = "deferred"
	NotificationStateDelivered NotificationState = "delivered"
	NotificationStateRead      NotificationState = "read"
	NotificationStateFailed    NotificationState = "failed"
)

var validNotificationStates = []NotificationState{
	NotificationStatePending,
	NotificationStateDeferred,
	NotificationStateDelivered,
	NotificationStateRead,
	NotificationStateFailed,
}

// IsValid checks whether the value matches the canonical enum.
func (s NotificationState) IsValid() bool {
	for _, candidate := range validNotificationStates {
		if candidate == s {
			return true
		}
	}
	return false
}
