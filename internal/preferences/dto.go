package preferences

import (
	"github.com/google/uuid"

	"github.com/sparkmeet/sparkmeet-backend/pkg/db/models"
)

// PreferencesDTO is the API projection of a user's notification policy.
type PreferencesDTO struct {
	UserID uuid.UUID `json:"user_id"`

	PushEnabled  bool `json:"push_enabled"`
	EmailEnabled bool `json:"email_enabled"`
	InAppEnabled bool `json:"in_app_enabled"`

	MatchEnabled   bool `json:"match_enabled"`
	MessageEnabled bool `json:"message_enabled"`
	LikeEnabled    bool `json:"like_enabled"`
	SystemEnabled  bool `json:"system_enabled"`

	QuietStartMinute *int `json:"quiet_start_minute"`
	QuietEndMinute   *int `json:"quiet_end_minute"`

	DigestOptIn bool `json:"digest_opt_in"`
}

func FromModel(pref *models.NotificationPreference) *PreferencesDTO {
	if pref == nil {
		return nil
	}
	return &PreferencesDTO{
		UserID:           pref.UserID,
		PushEnabled:      pref.PushEnabled,
		EmailEnabled:     pref.EmailEnabled,
		InAppEnabled:     pref.InAppEnabled,
		MatchEnabled:     pref.MatchEnabled,
		MessageEnabled:   pref.MessageEnabled,
		LikeEnabled:      pref.LikeEnabled,
		SystemEnabled:    pref.SystemEnabled,
		QuietStartMinute: pref.QuietStartMinute,
		QuietEndMinute:   pref.QuietEndMinute,
		DigestOptIn:      pref.DigestOptIn,
	}
}
