package delivery

import (
	"time"

	"github.com/sparkmeet/sparkmeet-backend/pkg/db/models"
	"github.com/sparkmeet/sparkmeet-backend/pkg/enums"
)

const minutesPerDay = 24 * 60

// Action is the per-channel verdict of the preference filter.
type Action string

const (
	ActionDeliver  Action = "deliver"
	ActionDefer    Action = "defer"
	ActionSuppress Action = "suppress"
)

// Decision carries the action and, for a deferral, the earliest send time.
type Decision struct {
	Action     Action
	DeferUntil time.Time
}

// Decide applies the user's preference set to one (type, channel, priority)
// combination. Quiet hours are evaluated in the user's zone; the in-app feed
// is never deferred and high priority cuts through the quiet window.
func Decide(pref *models.NotificationPreference, loc *time.Location, notifType enums.NotificationType, priority enums.NotificationPriority, channel enums.Channel, now time.Time) Decision {
	if pref == nil || !typeEnabled(pref, notifType) || !channelEnabled(pref, channel) {
		return Decision{Action: ActionSuppress}
	}
	if channel == enums.ChannelInApp {
		return Decision{Action: ActionDeliver}
	}
	if priority == enums.NotificationPriorityHigh {
		return Decision{Action: ActionDeliver}
	}
	if pref.QuietStartMinute == nil || pref.QuietEndMinute == nil {
		return Decision{Action: ActionDeliver}
	}

	if loc == nil {
		loc = time.UTC
	}
	local := now.In(loc)
	minute := local.Hour()*60 + local.Minute()
	start, end := *pref.QuietStartMinute, *pref.QuietEndMinute
	if !inQuietWindow(minute, start, end) {
		return Decision{Action: ActionDeliver}
	}
	return Decision{Action: ActionDefer, DeferUntil: quietWindowEnd(local, minute, end)}
}

func typeEnabled(pref *models.NotificationPreference, notifType enums.NotificationType) bool {
	switch notifType {
	case enums.NotificationTypeMatch:
		return pref.MatchEnabled
	case enums.NotificationTypeMessage:
		return pref.MessageEnabled
	case enums.NotificationTypeLike:
		return pref.LikeEnabled
	case enums.NotificationTypeSystem:
		return pref.SystemEnabled
	default:
		return false
	}
}

func channelEnabled(pref *models.NotificationPreference, channel enums.Channel) bool {
	switch channel {
	case enums.ChannelPush:
		return pref.PushEnabled
	case enums.ChannelEmail:
		return pref.EmailEnabled
	case enums.ChannelInApp:
		return pref.InAppEnabled
	default:
		return false
	}
}

// inQuietWindow treats start > end as a window wrapping local midnight, so
// 1320-480 covers 22:00 through 08:00. start == end disables the window.
func inQuietWindow(minute, start, end int) bool {
	if start == end {
		return false
	}
	if start < end {
		return minute >= start && minute < end
	}
	return minute >= start || minute < end
}

// quietWindowEnd returns the next local instant the window closes, second
// precision truncated to the minute boundary.
func quietWindowEnd(local time.Time, minute, end int) time.Time {
	day := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, local.Location())
	until := day.Add(time.Duration(end) * time.Minute)
	if minute >= end {
		until = until.AddDate(0, 0, 1)
	}
	return until
}
