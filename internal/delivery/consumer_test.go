package delivery

import (
	"context"
	"encoding/json"
	"io"
	"testing"
	"time"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"

	"github.com/sparkmeet/sparkmeet-backend/pkg/db/models"
	"github.com/sparkmeet/sparkmeet-backend/pkg/enums"
	pkgerrors "github.com/sparkmeet/sparkmeet-backend/pkg/errors"
	"github.com/sparkmeet/sparkmeet-backend/pkg/logger"
	"github.com/sparkmeet/sparkmeet-backend/pkg/outbox"
	"github.com/sparkmeet/sparkmeet-backend/pkg/outbox/payloads"
)

type fakeNotifyService struct {
	requests []Request
	err      error
}

func (f *fakeNotifyService) Notify(ctx context.Context, req Request) (*models.Notification, error) {
	f.requests = append(f.requests, req)
	if f.err != nil {
		return nil, f.err
	}
	return &models.Notification{ID: uuid.New(), UserID: req.UserID}, nil
}

func (f *fakeNotifyService) DeliverDue(ctx context.Context, now time.Time, limit int) (int, error) {
	return 0, nil
}

type fakeIdempotency struct {
	check    func(ctx context.Context, consumer string, eventID uuid.UUID) (bool, error)
	deleteFn func(ctx context.Context, consumer string, eventID uuid.UUID) error
}

func (f fakeIdempotency) CheckAndMarkProcessed(ctx context.Context, consumer string, eventID uuid.UUID) (bool, error) {
	return f.check(ctx, consumer, eventID)
}

func (f fakeIdempotency) Delete(ctx context.Context, consumer string, eventID uuid.UUID) error {
	return f.deleteFn(ctx, consumer, eventID)
}

func passthroughIdempotency() fakeIdempotency {
	return fakeIdempotency{
		check: func(context.Context, string, uuid.UUID) (bool, error) {
			return false, nil
		},
		deleteFn: func(context.Context, string, uuid.UUID) error {
			return nil
		},
	}
}

func newTestConsumer(t *testing.T, svc Service, manager idempotencyChecker) *Consumer {
	t.Helper()
	return &Consumer{
		svc:         svc,
		idempotency: manager,
		decoders:    newPayloadDecoders(),
		logg:        logger.New(logger.Options{ServiceName: "test", Output: io.Discard}),
	}
}

func domainMessage(t *testing.T, eventType enums.OutboxEventType, data any) *pubsub.Message {
	t.Helper()
	raw, err := json.Marshal(data)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	envelope := outbox.PayloadEnvelope{
		Version:    1,
		EventID:    uuid.NewString(),
		OccurredAt: time.Now().UTC(),
		Data:       raw,
	}
	body, err := json.Marshal(envelope)
	if err != nil {
		t.Fatalf("marshal envelope: %v", err)
	}
	return &pubsub.Message{
		Data:       body,
		Attributes: map[string]string{"event_type": string(eventType)},
	}
}

func TestConsumerNotifiesBothSidesOfMatch(t *testing.T) {
	svc := &fakeNotifyService{}
	consumer := newTestConsumer(t, svc, passthroughIdempotency())

	userA := uuid.New()
	userB := uuid.New()
	msg := domainMessage(t, enums.EventMatchFormed, payloads.MatchFormedEvent{
		MatchID: uuid.New(),
		UserA:   userA,
		UserB:   userB,
	})

	result := consumer.process(context.Background(), msg)
	if !result.ack {
		t.Fatalf("expected ack, got %+v", result)
	}
	if len(svc.requests) != 2 {
		t.Fatalf("expected 2 notifications, got %d", len(svc.requests))
	}
	recipients := map[uuid.UUID]bool{svc.requests[0].UserID: true, svc.requests[1].UserID: true}
	if !recipients[userA] || !recipients[userB] {
		t.Fatalf("unexpected recipients: %v", recipients)
	}
	for _, req := range svc.requests {
		if req.Type != enums.NotificationTypeMatch {
			t.Fatalf("unexpected type %s", req.Type)
		}
		if req.Priority != enums.NotificationPriorityHigh {
			t.Fatalf("match notifications must be high priority, got %s", req.Priority)
		}
	}
}

func TestConsumerGroupsLikesUnderSharedKey(t *testing.T) {
	svc := &fakeNotifyService{}
	consumer := newTestConsumer(t, svc, passthroughIdempotency())

	msg := domainMessage(t, enums.EventLikeReceived, payloads.LikeReceivedEvent{
		ActorID:  uuid.New(),
		TargetID: uuid.New(),
		Decision: enums.SwipeDecisionLike,
	})

	if result := consumer.process(context.Background(), msg); !result.ack {
		t.Fatalf("expected ack, got %+v", result)
	}
	if len(svc.requests) != 1 {
		t.Fatalf("expected 1 notification, got %d", len(svc.requests))
	}
	req := svc.requests[0]
	if req.GroupKey == nil || *req.GroupKey != likesGroupKey {
		t.Fatalf("like notifications must share the likes group key")
	}
}

func TestConsumerSuperLikeIsHighPriorityAndUngrouped(t *testing.T) {
	svc := &fakeNotifyService{}
	consumer := newTestConsumer(t, svc, passthroughIdempotency())

	msg := domainMessage(t, enums.EventLikeReceived, payloads.LikeReceivedEvent{
		ActorID:  uuid.New(),
		TargetID: uuid.New(),
		Decision: enums.SwipeDecisionSuperLike,
	})

	if result := consumer.process(context.Background(), msg); !result.ack {
		t.Fatalf("expected ack, got %+v", result)
	}
	if len(svc.requests) != 1 {
		t.Fatalf("expected 1 notification, got %d", len(svc.requests))
	}
	req := svc.requests[0]
	if req.Priority != enums.NotificationPriorityHigh {
		t.Fatalf("super like must be high priority, got %q", req.Priority)
	}
	if req.GroupKey != nil {
		t.Fatalf("super like must not join the likes group, got %q", *req.GroupKey)
	}
}

func TestConsumerUsesSenderNameInMessageTitle(t *testing.T) {
	svc := &fakeNotifyService{}
	consumer := newTestConsumer(t, svc, passthroughIdempotency())

	msg := domainMessage(t, enums.EventMessageSent, payloads.MessageSentEvent{
		MessageID:   uuid.New(),
		MatchID:     uuid.New(),
		SenderID:    uuid.New(),
		SenderName:  "Dana",
		RecipientID: uuid.New(),
		Preview:     "hey!",
	})

	if result := consumer.process(context.Background(), msg); !result.ack {
		t.Fatalf("expected ack, got %+v", result)
	}
	if len(svc.requests) != 1 {
		t.Fatalf("expected 1 notification, got %d", len(svc.requests))
	}
	if svc.requests[0].Title != "New message from Dana" {
		t.Fatalf("unexpected title %q", svc.requests[0].Title)
	}
	if svc.requests[0].Message != "hey!" {
		t.Fatalf("preview should become the message body")
	}
}

func TestConsumerAcksUnhandledEvents(t *testing.T) {
	svc := &fakeNotifyService{}
	consumer := newTestConsumer(t, svc, passthroughIdempotency())

	msg := domainMessage(t, enums.OutboxEventType("profile_viewed"), map[string]string{})
	if result := consumer.process(context.Background(), msg); !result.ack {
		t.Fatalf("unhandled events must be acked")
	}
	if len(svc.requests) != 0 {
		t.Fatalf("unhandled events must not notify")
	}
}

func TestConsumerSkipsAlreadyProcessedEvents(t *testing.T) {
	svc := &fakeNotifyService{}
	manager := fakeIdempotency{
		check: func(context.Context, string, uuid.UUID) (bool, error) {
			return true, nil
		},
		deleteFn: func(context.Context, string, uuid.UUID) error {
			return nil
		},
	}
	consumer := newTestConsumer(t, svc, manager)

	msg := domainMessage(t, enums.EventMatchFormed, payloads.MatchFormedEvent{
		MatchID: uuid.New(), UserA: uuid.New(), UserB: uuid.New(),
	})
	if result := consumer.process(context.Background(), msg); !result.ack {
		t.Fatalf("duplicate events must be acked")
	}
	if len(svc.requests) != 0 {
		t.Fatalf("duplicate events must not notify")
	}
}

func TestConsumerReleasesIdempotencyOnRetryableFailure(t *testing.T) {
	svc := &fakeNotifyService{err: pkgerrors.New(pkgerrors.CodeDependency, "smtp down")}
	deleted := false
	manager := fakeIdempotency{
		check: func(context.Context, string, uuid.UUID) (bool, error) {
			return false, nil
		},
		deleteFn: func(context.Context, string, uuid.UUID) error {
			deleted = true
			return nil
		},
	}
	consumer := newTestConsumer(t, svc, manager)

	msg := domainMessage(t, enums.EventLikeReceived, payloads.LikeReceivedEvent{
		ActorID:  uuid.New(),
		TargetID: uuid.New(),
		Decision: enums.SwipeDecisionLike,
	})
	result := consumer.process(context.Background(), msg)
	if !result.nack {
		t.Fatalf("retryable failures must nack, got %+v", result)
	}
	if !deleted {
		t.Fatalf("idempotency key must be released so the retry is not dropped")
	}
}

func TestConsumerAcksMalformedPayload(t *testing.T) {
	svc := &fakeNotifyService{}
	consumer := newTestConsumer(t, svc, passthroughIdempotency())

	msg := domainMessage(t, enums.EventMatchFormed, map[string]any{"match_id": 42})
	if result := consumer.process(context.Background(), msg); !result.ack {
		t.Fatalf("undecodable payloads must be acked, not retried")
	}
	if len(svc.requests) != 0 {
		t.Fatalf("undecodable payloads must not notify")
	}
}

func TestConsumerAcksWhenPayloadFailsValidation(t *testing.T) {
	svc := &fakeNotifyService{}
	consumer := newTestConsumer(t, svc, passthroughIdempotency())

	msg := domainMessage(t, enums.EventLikeReceived, payloads.LikeReceivedEvent{
		ActorID: uuid.New(),
	})
	result := consumer.process(context.Background(), msg)
	if !result.ack {
		t.Fatalf("validation failures are non-retryable and must be acked")
	}
	if len(svc.requests) != 0 {
		t.Fatalf("invalid payloads must not notify")
	}
}
