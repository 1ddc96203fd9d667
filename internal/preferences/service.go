package preferences

import (
	"context"

	"github.com/google/uuid"

	"github.com/sparkmeet/sparkmeet-backend/pkg/config"
	"github.com/sparkmeet/sparkmeet-backend/pkg/db/models"
	pkgerrors "github.com/sparkmeet/sparkmeet-backend/pkg/errors"
)

const minutesPerDay = 24 * 60

// Service exposes read and replace operations over a user's notification
// preferences, with defaults applied for users who never saved a row.
type Service interface {
	Get(ctx context.Context, userID uuid.UUID) (*PreferencesDTO, error)
	Update(ctx context.Context, userID uuid.UUID, params UpdateParams) (*PreferencesDTO, error)
	// Resolve returns the effective preference row used by delivery policy.
	Resolve(ctx context.Context, userID uuid.UUID) (*models.NotificationPreference, error)
}

// UpdateParams is a full replacement of the user's preference set.
type UpdateParams struct {
	PushEnabled  bool
	EmailEnabled bool
	InAppEnabled bool

	MatchEnabled   bool
	MessageEnabled bool
	LikeEnabled    bool
	SystemEnabled  bool

	QuietStartMinute *int
	QuietEndMinute   *int

	DigestOptIn bool
}

type service struct {
	repo Repository
	cfg  config.DeliveryConfig
}

func NewService(repo Repository, cfg config.DeliveryConfig) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "preference repository required")
	}
	return &service{repo: repo, cfg: cfg}, nil
}

func (s *service) Get(ctx context.Context, userID uuid.UUID) (*PreferencesDTO, error) {
	pref, err := s.Resolve(ctx, userID)
	if err != nil {
		return nil, err
	}
	return FromModel(pref), nil
}

func (s *service) Resolve(ctx context.Context, userID uuid.UUID) (*models.NotificationPreference, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	pref, err := s.repo.Get(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load preferences")
	}
	if pref == nil {
		return s.defaults(userID), nil
	}
	if pref.QuietStartMinute == nil || pref.QuietEndMinute == nil {
		start, end := s.cfg.DefaultQuietStartMinute, s.cfg.DefaultQuietEndMinute
		pref.QuietStartMinute, pref.QuietEndMinute = &start, &end
	}
	return pref, nil
}

func (s *service) Update(ctx context.Context, userID uuid.UUID, params UpdateParams) (*PreferencesDTO, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	if err := validateQuietWindow(params.QuietStartMinute, params.QuietEndMinute); err != nil {
		return nil, err
	}

	pref := &models.NotificationPreference{
		UserID:           userID,
		PushEnabled:      params.PushEnabled,
		EmailEnabled:     params.EmailEnabled,
		InAppEnabled:     params.InAppEnabled,
		MatchEnabled:     params.MatchEnabled,
		MessageEnabled:   params.MessageEnabled,
		LikeEnabled:      params.LikeEnabled,
		SystemEnabled:    params.SystemEnabled,
		QuietStartMinute: params.QuietStartMinute,
		QuietEndMinute:   params.QuietEndMinute,
		DigestOptIn:      params.DigestOptIn,
	}
	if err := s.repo.Upsert(ctx, pref); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save preferences")
	}
	return s.Get(ctx, userID)
}

// defaults is the policy applied before a user ever saves preferences:
// everything on, quiet hours from the operator defaults.
func (s *service) defaults(userID uuid.UUID) *models.NotificationPreference {
	start, end := s.cfg.DefaultQuietStartMinute, s.cfg.DefaultQuietEndMinute
	return &models.NotificationPreference{
		UserID:           userID,
		PushEnabled:      true,
		EmailEnabled:     true,
		InAppEnabled:     true,
		MatchEnabled:     true,
		MessageEnabled:   true,
		LikeEnabled:      true,
		SystemEnabled:    true,
		QuietStartMinute: &start,
		QuietEndMinute:   &end,
		DigestOptIn:      true,
	}
}

func validateQuietWindow(start, end *int) error {
	if (start == nil) != (end == nil) {
		return pkgerrors.New(pkgerrors.CodeValidation, "quiet window requires both start and end")
	}
	if start == nil {
		return nil
	}
	if *start < 0 || *start >= minutesPerDay || *end < 0 || *end >= minutesPerDay {
		return pkgerrors.New(pkgerrors.CodeValidation, "quiet minutes must be within 0-1439")
	}
	return nil
}
