package matches

import (
	"context"
	"time"

	"github.com/google/uuid"

	pkgerrors "github.com/sparkmeet/sparkmeet-backend/pkg/errors"
	"github.com/sparkmeet/sparkmeet-backend/pkg/pagination"
)

// Service lists a user's matches.
type Service interface {
	List(ctx context.Context, params ListParams) (*ListResult, error)
}

// ListParams configures pagination for matches.
type ListParams struct {
	UserID uuid.UUID
	Limit  int
	Cursor string
}

// MatchView is the transport shape: the counterpart user plus when the match
// formed.
type MatchView struct {
	MatchID   uuid.UUID `json:"match_id"`
	PartnerID uuid.UUID `json:"partner_id"`
	MatchedAt time.Time `json:"matched_at"`
}

// ListResult wraps returned matches and the cursor for the next page.
type ListResult struct {
	Items  []MatchView `json:"items"`
	Cursor string      `json:"cursor"`
}

type service struct {
	repo Repository
}

// NewService wires the matches dependencies.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "matches repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) List(ctx context.Context, params ListParams) (*ListResult, error) {
	if params.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}

	var cursor *pagination.Cursor
	if params.Cursor != "" {
		parsed, err := pagination.ParseCursor(params.Cursor)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
		}
		cursor = parsed
	}

	rows, next, err := s.repo.ListForUser(ctx, params.UserID, params.Limit, cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list matches")
	}

	items := make([]MatchView, 0, len(rows))
	for _, row := range rows {
		items = append(items, MatchView{
			MatchID:   row.ID,
			PartnerID: row.Other(params.UserID),
			MatchedAt: row.CreatedAt,
		})
	}

	encoded := ""
	if next != nil {
		encoded = pagination.EncodeCursor(*next)
	}
	return &ListResult{Items: items, Cursor: encoded}, nil
}
