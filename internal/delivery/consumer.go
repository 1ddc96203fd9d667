package delivery

import (
	"context"
	"encoding/json"
	"fmt"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"

	"github.com/sparkmeet/sparkmeet-backend/pkg/enums"
	pkgerrors "github.com/sparkmeet/sparkmeet-backend/pkg/errors"
	"github.com/sparkmeet/sparkmeet-backend/pkg/logger"
	"github.com/sparkmeet/sparkmeet-backend/pkg/outbox"
	"github.com/sparkmeet/sparkmeet-backend/pkg/outbox/payloads"
	"github.com/sparkmeet/sparkmeet-backend/pkg/outbox/registry"
)

const deliveryConsumer = "delivery-worker"

const (
	likesGroupKey    = "likes"
	messagesGroupFmt = "messages:%s"
	matchTitle       = "It's a match!"
	likeTitle        = "Someone likes you"
	messageTitleFmt  = "New message from %s"
)

type idempotencyChecker interface {
	CheckAndMarkProcessed(ctx context.Context, consumer string, eventID uuid.UUID) (bool, error)
	Delete(ctx context.Context, consumer string, eventID uuid.UUID) error
}

// Consumer turns domain events into notifications routed through the
// delivery pipeline.
type Consumer struct {
	svc          Service
	subscription *pubsub.Subscriber
	idempotency  idempotencyChecker
	decoders     *registry.DecoderRegistry
	logg         *logger.Logger
}

func NewConsumer(svc Service, subscription *pubsub.Subscriber, manager idempotencyChecker, logg *logger.Logger) (*Consumer, error) {
	if svc == nil {
		return nil, fmt.Errorf("delivery service required")
	}
	if subscription == nil {
		return nil, fmt.Errorf("domain subscription required")
	}
	if manager == nil {
		return nil, fmt.Errorf("idempotency manager required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Consumer{
		svc:          svc,
		subscription: subscription,
		idempotency:  manager,
		decoders:     newPayloadDecoders(),
		logg:         logg,
	}, nil
}

func newPayloadDecoders() *registry.DecoderRegistry {
	reg := registry.NewDecoderRegistry()
	reg.Register(enums.EventMatchFormed, 1, func(data json.RawMessage) (interface{}, error) {
		var payload payloads.MatchFormedEvent
		if err := json.Unmarshal(data, &payload); err != nil {
			return nil, err
		}
		return &payload, nil
	})
	reg.Register(enums.EventLikeReceived, 1, func(data json.RawMessage) (interface{}, error) {
		var payload payloads.LikeReceivedEvent
		if err := json.Unmarshal(data, &payload); err != nil {
			return nil, err
		}
		return &payload, nil
	})
	reg.Register(enums.EventMessageSent, 1, func(data json.RawMessage) (interface{}, error) {
		var payload payloads.MessageSentEvent
		if err := json.Unmarshal(data, &payload); err != nil {
			return nil, err
		}
		return &payload, nil
	})
	reg.Register(enums.EventNotificationRequested, 1, func(data json.RawMessage) (interface{}, error) {
		var payload payloads.NotificationRequestedEvent
		if err := json.Unmarshal(data, &payload); err != nil {
			return nil, err
		}
		return &payload, nil
	})
	return reg
}

// Run starts the consumer loop until the context is canceled.
func (c *Consumer) Run(ctx context.Context) error {
	return c.subscription.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		result := c.process(ctx, msg)
		if result.nack {
			msg.Nack()
			return
		}
		msg.Ack()
	})
}

type processResult struct {
	ack  bool
	nack bool
}

func (c *Consumer) process(ctx context.Context, msg *pubsub.Message) processResult {
	eventType := enums.OutboxEventType(msg.Attributes["event_type"])
	logCtx := c.logg.WithFields(ctx, map[string]any{
		"message_id": msg.ID,
		"event_type": string(eventType),
	})

	switch eventType {
	case enums.EventMatchFormed, enums.EventLikeReceived, enums.EventMessageSent, enums.EventNotificationRequested:
	default:
		c.logg.Info(logCtx, "skipping unhandled event")
		return processResult{ack: true}
	}

	var envelope outbox.PayloadEnvelope
	if err := json.Unmarshal(msg.Data, &envelope); err != nil {
		c.logg.Error(logCtx, "failed to decode envelope", err)
		return processResult{ack: true}
	}

	eventID, err := uuid.Parse(envelope.EventID)
	if err != nil {
		c.logg.Error(logCtx, "invalid event id", err)
		return processResult{ack: true}
	}

	version := envelope.Version
	if version <= 0 {
		version = 1
	}
	decoded, err := c.decoders.Decode(eventType, version, envelope.Data)
	if err != nil {
		c.logg.Error(logCtx, "failed to decode payload", err)
		return processResult{ack: true}
	}

	already, err := c.idempotency.CheckAndMarkProcessed(ctx, deliveryConsumer, eventID)
	if err != nil {
		c.logg.Error(logCtx, "idempotency check failed", err)
		return processResult{nack: true}
	}
	if already {
		c.logg.Info(logCtx, "event already processed")
		return processResult{ack: true}
	}

	if err := c.handle(ctx, decoded, logCtx); err != nil {
		if appErr := pkgerrors.As(err); appErr != nil && !pkgerrors.MetadataFor(appErr.Code()).Retryable {
			c.logg.Error(logCtx, "event dropped as non-retryable", err)
			return processResult{ack: true}
		}
		c.logg.Error(logCtx, "event handling failed", err)
		_ = c.idempotency.Delete(ctx, deliveryConsumer, eventID)
		return processResult{nack: true}
	}
	return processResult{ack: true}
}

func (c *Consumer) handle(ctx context.Context, decoded interface{}, logCtx context.Context) error {
	switch payload := decoded.(type) {
	case *payloads.MatchFormedEvent:
		return c.handleMatchFormed(ctx, payload, logCtx)
	case *payloads.LikeReceivedEvent:
		return c.handleLikeReceived(ctx, payload, logCtx)
	case *payloads.MessageSentEvent:
		return c.handleMessageSent(ctx, payload, logCtx)
	case *payloads.NotificationRequestedEvent:
		return c.handleNotificationRequested(ctx, payload, logCtx)
	default:
		return nil
	}
}

func (c *Consumer) handleMatchFormed(ctx context.Context, payload *payloads.MatchFormedEvent, logCtx context.Context) error {
	if payload.MatchID == uuid.Nil || payload.UserA == uuid.Nil || payload.UserB == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "match_formed payload incomplete")
	}
	logCtx = c.logg.WithMatchID(logCtx, payload.MatchID.String())

	// Both sides hear about the match; high priority cuts quiet hours.
	for _, userID := range []uuid.UUID{payload.UserA, payload.UserB} {
		_, err := c.svc.Notify(ctx, Request{
			UserID:   userID,
			Type:     enums.NotificationTypeMatch,
			Priority: enums.NotificationPriorityHigh,
			Title:    matchTitle,
			Message:  "You and your match can now message each other.",
		})
		if err != nil {
			if appErr := pkgerrors.As(err); appErr != nil && appErr.Code() == pkgerrors.CodeNotFound {
				c.logg.Info(logCtx, "match participant no longer exists")
				continue
			}
			return err
		}
	}
	c.logg.Info(logCtx, "match participants notified")
	return nil
}

func (c *Consumer) handleLikeReceived(ctx context.Context, payload *payloads.LikeReceivedEvent, logCtx context.Context) error {
	if payload.TargetID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "like_received payload incomplete")
	}

	groupKey := likesGroupKey
	req := Request{
		UserID:   payload.TargetID,
		Type:     enums.NotificationTypeLike,
		Priority: enums.NotificationPriorityNormal,
		Title:    likeTitle,
		Message:  "Open the app to see who.",
		GroupKey: &groupKey,
	}
	if payload.Decision == enums.SwipeDecisionSuperLike {
		// A super like rides the high-priority path: no batching, and it
		// cuts through quiet hours like a new match does.
		req.Priority = enums.NotificationPriorityHigh
		req.Message = "Someone really wants to meet you. Open the app to see who."
		req.GroupKey = nil
	}
	_, err := c.svc.Notify(ctx, req)
	if err != nil {
		if appErr := pkgerrors.As(err); appErr != nil && appErr.Code() == pkgerrors.CodeNotFound {
			c.logg.Info(logCtx, "like recipient no longer exists")
			return nil
		}
		return err
	}
	c.logg.Info(logCtx, "like recipient notified")
	return nil
}

func (c *Consumer) handleMessageSent(ctx context.Context, payload *payloads.MessageSentEvent, logCtx context.Context) error {
	if payload.RecipientID == uuid.Nil || payload.MatchID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "message_sent payload incomplete")
	}
	logCtx = c.logg.WithMatchID(logCtx, payload.MatchID.String())

	preview := payload.Preview
	if preview == "" {
		preview = "You have a new message."
	}
	groupKey := fmt.Sprintf(messagesGroupFmt, payload.MatchID)
	_, err := c.svc.Notify(ctx, Request{
		UserID:   payload.RecipientID,
		Type:     enums.NotificationTypeMessage,
		Priority: enums.NotificationPriorityNormal,
		Title:    fmt.Sprintf(messageTitleFmt, senderLabel(payload.SenderName)),
		Message:  preview,
		GroupKey: &groupKey,
	})
	if err != nil {
		if appErr := pkgerrors.As(err); appErr != nil && appErr.Code() == pkgerrors.CodeNotFound {
			c.logg.Info(logCtx, "message recipient no longer exists")
			return nil
		}
		return err
	}
	c.logg.Info(logCtx, "message recipient notified")
	return nil
}

func (c *Consumer) handleNotificationRequested(ctx context.Context, payload *payloads.NotificationRequestedEvent, logCtx context.Context) error {
	if payload.RecipientID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "notification_requested payload incomplete")
	}

	notifType := payload.Type
	if !notifType.IsValid() {
		notifType = enums.NotificationTypeSystem
	}
	priority := payload.Priority
	if !priority.IsValid() {
		priority = enums.NotificationPriorityNormal
	}
	var groupKey *string
	if payload.GroupKey != "" {
		groupKey = &payload.GroupKey
	}
	_, err := c.svc.Notify(ctx, Request{
		UserID:   payload.RecipientID,
		Type:     notifType,
		Priority: priority,
		Title:    payload.Title,
		Message:  payload.Message,
		GroupKey: groupKey,
	})
	if err != nil {
		if appErr := pkgerrors.As(err); appErr != nil && appErr.Code() == pkgerrors.CodeNotFound {
			c.logg.Info(logCtx, "requested recipient no longer exists")
			return nil
		}
		return err
	}
	c.logg.Info(logCtx, "requested notification routed")
	return nil
}

func senderLabel(name string) string {
	if name != "" {
		return name
	}
	return "your match"
}
