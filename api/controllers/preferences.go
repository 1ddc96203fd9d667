package controllers

import (
	"net/http"

	"github.com/sparkmeet/sparkmeet-backend/api/responses"
	"github.com/sparkmeet/sparkmeet-backend/api/validators"
	"github.com/sparkmeet/sparkmeet-backend/internal/preferences"
	pkgerrors "github.com/sparkmeet/sparkmeet-backend/pkg/errors"
	"github.com/sparkmeet/sparkmeet-backend/pkg/logger"
)

// UpdatePreferencesBody is a full replacement of the caller's notification
// preference set. Omitted booleans default to false.
type UpdatePreferencesBody struct {
	PushEnabled  bool `json:"push_enabled"`
	EmailEnabled bool `json:"email_enabled"`
	InAppEnabled bool `json:"in_app_enabled"`

	MatchEnabled   bool `json:"match_enabled"`
	MessageEnabled bool `json:"message_enabled"`
	LikeEnabled    bool `json:"like_enabled"`
	SystemEnabled  bool `json:"system_enabled"`

	QuietStartMinute *int `json:"quiet_start_minute" validate:"omitempty,min=0,max=1439"`
	QuietEndMinute   *int `json:"quiet_end_minute" validate:"omitempty,min=0,max=1439"`

	DigestOptIn bool `json:"digest_opt_in"`
}

// GetPreferences returns the caller's effective notification preferences.
func GetPreferences(svc preferences.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "preferences service unavailable"))
			return
		}

		userID, err := currentUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		dto, err := svc.Get(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, dto)
	}
}

// UpdatePreferences replaces the caller's notification preferences.
func UpdatePreferences(svc preferences.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "preferences service unavailable"))
			return
		}

		userID, err := currentUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body UpdatePreferencesBody
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		dto, err := svc.Update(r.Context(), userID, preferences.UpdateParams{
			PushEnabled:      body.PushEnabled,
			EmailEnabled:     body.EmailEnabled,
			InAppEnabled:     body.InAppEnabled,
			MatchEnabled:     body.MatchEnabled,
			MessageEnabled:   body.MessageEnabled,
			LikeEnabled:      body.LikeEnabled,
			SystemEnabled:    body.SystemEnabled,
			QuietStartMinute: body.QuietStartMinute,
			QuietEndMinute:   body.QuietEndMinute,
			DigestOptIn:      body.DigestOptIn,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, dto)
	}
}
