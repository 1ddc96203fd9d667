package delivery

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/sparkmeet/sparkmeet-backend/pkg/config"
	"github.com/sparkmeet/sparkmeet-backend/pkg/db/models"
	"github.com/sparkmeet/sparkmeet-backend/pkg/enums"
	pkgerrors "github.com/sparkmeet/sparkmeet-backend/pkg/errors"
	"github.com/sparkmeet/sparkmeet-backend/pkg/logger"
)

// Store is the slice of the notification repository the pipeline writes
// through.
type Store interface {
	Create(ctx context.Context, notification *models.Notification) error
	GetByID(ctx context.Context, userID, notificationID uuid.UUID) (*models.Notification, error)
	ListDue(ctx context.Context, now time.Time, limit int) ([]models.Notification, error)
	SetState(ctx context.Context, notificationID uuid.UUID, from []enums.NotificationState, to enums.NotificationState, now time.Time) (bool, error)
	FindOpenGroup(ctx context.Context, userID uuid.UUID, groupKey string, openedAfter time.Time) (*models.Notification, error)
	IncrementGroup(ctx context.Context, notificationID uuid.UUID) error
	Defer(ctx context.Context, notificationID uuid.UUID, until time.Time) error
}

// UserDirectory resolves recipients.
type UserDirectory interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// PreferenceResolver returns a user's effective notification policy.
type PreferenceResolver interface {
	Resolve(ctx context.Context, userID uuid.UUID) (*models.NotificationPreference, error)
}

// ChannelDispatcher abstracts the fan-out for tests.
type ChannelDispatcher interface {
	Dispatch(ctx context.Context, user *models.User, notification *models.Notification, channels []enums.Channel) (bool, error)
}

// BadgeInvalidator drops the cached unread count when the feed changes.
type BadgeInvalidator interface {
	InvalidateBadge(ctx context.Context, userID string) error
}

// Request describes one notification to route through the pipeline.
type Request struct {
	UserID   uuid.UUID
	Type     enums.NotificationType
	Priority enums.NotificationPriority
	Title    string
	Message  string
	GroupKey *string
}

// Service routes notifications through preference filtering, batching and
// channel dispatch.
type Service interface {
	Notify(ctx context.Context, req Request) (*models.Notification, error)
	DeliverDue(ctx context.Context, now time.Time, limit int) (int, error)
}

type service struct {
	store      Store
	directory  UserDirectory
	prefs      PreferenceResolver
	dispatcher ChannelDispatcher
	badge      BadgeInvalidator
	cfg        config.DeliveryConfig
	logg       *logger.Logger
	now        func() time.Time
}

func NewService(store Store, directory UserDirectory, prefs PreferenceResolver, dispatcher ChannelDispatcher, badge BadgeInvalidator, cfg config.DeliveryConfig, logg *logger.Logger) (Service, error) {
	if store == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "notification store required")
	}
	if directory == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "user directory required")
	}
	if prefs == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "preference resolver required")
	}
	if dispatcher == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "dispatcher required")
	}
	return &service{
		store:      store,
		directory:  directory,
		prefs:      prefs,
		dispatcher: dispatcher,
		badge:      badge,
		cfg:        cfg,
		logg:       logg,
		now:        time.Now,
	}, nil
}

func (s *service) Notify(ctx context.Context, req Request) (*models.Notification, error) {
	if req.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "recipient required")
	}
	if !req.Type.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid notification type")
	}
	if req.Title == "" || req.Message == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "title and message required")
	}
	if req.Priority == "" {
		req.Priority = enums.NotificationPriorityNormal
	}

	user, err := s.directory.FindByID(ctx, req.UserID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load recipient")
	}
	if user == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "recipient not found")
	}

	pref, err := s.prefs.Resolve(ctx, req.UserID)
	if err != nil {
		return nil, err
	}
	if !typeEnabled(pref, req.Type) {
		// Type muted: nothing stored, nothing sent.
		return nil, nil
	}

	now := s.now()

	// High priority is never grouped, and users who opted out of digests
	// get every event as its own notification.
	if req.GroupKey != nil && req.Priority != enums.NotificationPriorityHigh && pref.DigestOptIn {
		summary, err := s.absorbIntoGroup(ctx, user, pref, req, now)
		if err != nil {
			return nil, err
		}
		if summary != nil {
			return summary, nil
		}
	}

	notification := &models.Notification{
		ID:         uuid.New(),
		UserID:     req.UserID,
		Type:       req.Type,
		Priority:   req.Priority,
		Title:      req.Title,
		Message:    req.Message,
		GroupCount: 1,
		State:      enums.NotificationStatePending,
		CreatedAt:  now,
	}
	if req.Priority != enums.NotificationPriorityHigh && pref.DigestOptIn {
		notification.GroupKey = req.GroupKey
	}

	deliverNow, deferUntil := s.routeChannels(pref, user, notification, now)
	if deliverNow == nil && deferUntil != nil {
		notification.State = enums.NotificationStateDeferred
		notification.DeliverAfter = deferUntil
	}

	if err := s.store.Create(ctx, notification); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store notification")
	}
	s.invalidateBadge(ctx, req.UserID)

	if len(deliverNow) > 0 {
		s.deliver(ctx, user, notification, deliverNow, deferUntil, now)
	} else if deferUntil == nil {
		// Feed-only: the stored row is the whole delivery.
		if _, err := s.store.SetState(ctx, notification.ID, []enums.NotificationState{enums.NotificationStatePending}, enums.NotificationStateDelivered, now); err != nil && s.logg != nil {
			s.logg.Error(ctx, "marking feed-only notification delivered failed", err)
		}
	}
	return notification, nil
}

// absorbIntoGroup folds the request into an open summary row inside the
// batch window. Returns nil when no summary exists yet.
func (s *service) absorbIntoGroup(ctx context.Context, user *models.User, pref *models.NotificationPreference, req Request, now time.Time) (*models.Notification, error) {
	window := s.cfg.BatchWindow
	if window <= 0 {
		window = 5 * time.Minute
	}
	open, err := s.store.FindOpenGroup(ctx, req.UserID, *req.GroupKey, now.Add(-window))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "find open group")
	}
	if open == nil {
		return nil, nil
	}

	if err := s.store.IncrementGroup(ctx, open.ID); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "grow group")
	}

	// The absorbed event survives as a feed-only member row so the summary
	// stays expandable to its individual events. Members never dispatch;
	// the summary owns the channel send.
	deliveredAt := now
	member := &models.Notification{
		ID:          uuid.New(),
		UserID:      req.UserID,
		Type:        req.Type,
		Priority:    req.Priority,
		Title:       req.Title,
		Message:     req.Message,
		GroupCount:  1,
		SummaryID:   &open.ID,
		State:       enums.NotificationStateDelivered,
		DeliveredAt: &deliveredAt,
		CreatedAt:   now,
	}
	if err := s.store.Create(ctx, member); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store group member")
	}

	summary, err := s.store.GetByID(ctx, req.UserID, open.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload group summary")
	}
	if summary == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "group summary vanished")
	}
	s.invalidateBadge(ctx, req.UserID)

	// The grown summary goes out once the batch window closes, with its
	// final count. The count change re-arms channels that already sent the
	// smaller summary. A quiet-hours deferral further out stays put.
	windowEnd := summary.CreatedAt.Add(window)
	if summary.DeliverAfter == nil || summary.DeliverAfter.Before(windowEnd) {
		if err := s.store.Defer(ctx, summary.ID, windowEnd); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "park group summary")
		}
		summary.State = enums.NotificationStateDeferred
		summary.DeliverAfter = &windowEnd
	}
	return summary, nil
}

// routeChannels splits the external channels into deliver-now and the
// earliest defer instant. Suppressed channels drop out entirely.
func (s *service) routeChannels(pref *models.NotificationPreference, user *models.User, notification *models.Notification, now time.Time) ([]enums.Channel, *time.Time) {
	var deliverNow []enums.Channel
	var deferUntil *time.Time

	loc := user.Location()
	for _, channel := range enums.SideChannels() {
		decision := Decide(pref, loc, notification.Type, notification.Priority, channel, now)
		switch decision.Action {
		case ActionDeliver:
			deliverNow = append(deliverNow, channel)
		case ActionDefer:
			if deferUntil == nil || decision.DeferUntil.Before(*deferUntil) {
				until := decision.DeferUntil
				deferUntil = &until
			}
		}
	}
	return deliverNow, deferUntil
}

func (s *service) deliver(ctx context.Context, user *models.User, notification *models.Notification, channels []enums.Channel, deferUntil *time.Time, now time.Time) {
	delivered, err := s.dispatcher.Dispatch(ctx, user, notification, channels)
	if err != nil && s.logg != nil {
		s.logg.Error(s.logg.WithNotificationID(ctx, notification.ID.String()), "channel dispatch failed", err)
	}

	open := []enums.NotificationState{enums.NotificationStatePending, enums.NotificationStateDeferred}
	switch {
	case delivered:
		if _, stateErr := s.store.SetState(ctx, notification.ID, open, enums.NotificationStateDelivered, now); stateErr != nil && s.logg != nil {
			s.logg.Error(ctx, "marking notification delivered failed", stateErr)
		}
	case deferUntil != nil:
		// Some channel is still waiting for the quiet window to close.
		if deferErr := s.store.Defer(ctx, notification.ID, *deferUntil); deferErr != nil && s.logg != nil {
			s.logg.Error(ctx, "deferring notification failed", deferErr)
		}
	case err != nil:
		if _, stateErr := s.store.SetState(ctx, notification.ID, open, enums.NotificationStateFailed, now); stateErr != nil && s.logg != nil {
			s.logg.Error(ctx, "marking notification failed failed", stateErr)
		}
	}
}

// DeliverDue drains deferred and stuck-pending notifications whose send
// time has arrived. Preferences are re-evaluated at send time.
func (s *service) DeliverDue(ctx context.Context, now time.Time, limit int) (int, error) {
	due, err := s.store.ListDue(ctx, now, limit)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list due notifications")
	}

	processed := 0
	for i := range due {
		notification := &due[i]
		if err := s.deliverOne(ctx, notification, now); err != nil {
			if s.logg != nil {
				s.logg.Error(s.logg.WithNotificationID(ctx, notification.ID.String()), "due delivery failed", err)
			}
			continue
		}
		processed++
	}
	return processed, nil
}

func (s *service) deliverOne(ctx context.Context, notification *models.Notification, now time.Time) error {
	user, err := s.directory.FindByID(ctx, notification.UserID)
	if err != nil {
		return err
	}
	open := []enums.NotificationState{enums.NotificationStatePending, enums.NotificationStateDeferred}
	if user == nil {
		_, err := s.store.SetState(ctx, notification.ID, open, enums.NotificationStateFailed, now)
		return err
	}

	pref, err := s.prefs.Resolve(ctx, notification.UserID)
	if err != nil {
		return err
	}

	deliverNow, deferUntil := s.routeChannels(pref, user, notification, now)
	if len(deliverNow) == 0 {
		if deferUntil != nil {
			return s.store.Defer(ctx, notification.ID, *deferUntil)
		}
		// Channels muted since scheduling; the feed row stands on its own.
		_, err := s.store.SetState(ctx, notification.ID, open, enums.NotificationStateDelivered, now)
		return err
	}

	s.deliver(ctx, user, notification, deliverNow, deferUntil, now)
	return nil
}

func (s *service) invalidateBadge(ctx context.Context, userID uuid.UUID) {
	if s.badge == nil {
		return
	}
	if err := s.badge.InvalidateBadge(ctx, userID.String()); err != nil && s.logg != nil {
		s.logg.Error(ctx, "badge invalidation failed", err)
	}
}
