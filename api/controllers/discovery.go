package controllers

import (
	"net/http"

	"github.com/sparkmeet/sparkmeet-backend/api/responses"
	"github.com/sparkmeet/sparkmeet-backend/api/validators"
	"github.com/sparkmeet/sparkmeet-backend/internal/discovery"
	pkgerrors "github.com/sparkmeet/sparkmeet-backend/pkg/errors"
	"github.com/sparkmeet/sparkmeet-backend/pkg/logger"
)

// Discover ranks candidates for the caller by compatibility score.
func Discover(svc discovery.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "discovery service unavailable"))
			return
		}

		viewerID, err := currentUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", 20, 1, 100)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		offset, err := validators.ParseQueryInt(r, "offset", 0, 0, 10000)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		ranked, err := svc.RankCandidates(r.Context(), viewerID, limit, offset)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"candidates": ranked})
	}
}
