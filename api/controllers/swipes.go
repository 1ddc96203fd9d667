package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/sparkmeet/sparkmeet-backend/api/responses"
	"github.com/sparkmeet/sparkmeet-backend/api/validators"
	"github.com/sparkmeet/sparkmeet-backend/internal/swipes"
	"github.com/sparkmeet/sparkmeet-backend/pkg/enums"
	pkgerrors "github.com/sparkmeet/sparkmeet-backend/pkg/errors"
	"github.com/sparkmeet/sparkmeet-backend/pkg/logger"
)

// RecordSwipeBody is the swipe submission payload.
type RecordSwipeBody struct {
	TargetID string `json:"target_id" validate:"required,uuid4"`
	Decision string `json:"decision" validate:"required,oneof=like pass super_like"`
}

// RecordSwipe persists a swipe decision and reports the outcome. Duplicate
// submissions replay the stored outcome with a success status.
func RecordSwipe(svc swipes.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "swipes service unavailable"))
			return
		}

		actorID, err := currentUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body RecordSwipeBody
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		targetID, err := uuid.Parse(body.TargetID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid target id"))
			return
		}

		decision, err := enums.ParseSwipeDecision(body.Decision)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid decision"))
			return
		}

		result, err := svc.RecordSwipe(r.Context(), actorID, targetID, decision)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}
