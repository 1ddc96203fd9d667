package delivery

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/sparkmeet/sparkmeet-backend/pkg/config"
	"github.com/sparkmeet/sparkmeet-backend/pkg/db/models"
	"github.com/sparkmeet/sparkmeet-backend/pkg/enums"
)

type fakeAttempts struct {
	rows []models.DeliveryAttempt
}

func (f *fakeAttempts) Record(ctx context.Context, attempt *models.DeliveryAttempt) error {
	f.rows = append(f.rows, *attempt)
	return nil
}

func (f *fakeAttempts) HasDelivered(ctx context.Context, notificationID uuid.UUID, channel enums.Channel, contentHash string) (bool, error) {
	for _, row := range f.rows {
		if row.NotificationID == notificationID && row.Channel == channel &&
			row.ContentHash == contentHash && row.Outcome == enums.DeliveryOutcomeDelivered {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeAttempts) CountForChannel(ctx context.Context, notificationID uuid.UUID, channel enums.Channel) (int, error) {
	count := 0
	for _, row := range f.rows {
		if row.NotificationID == notificationID && row.Channel == channel {
			count++
		}
	}
	return count, nil
}

func (f *fakeAttempts) ListForNotification(ctx context.Context, notificationID uuid.UUID) ([]models.DeliveryAttempt, error) {
	var out []models.DeliveryAttempt
	for _, row := range f.rows {
		if row.NotificationID == notificationID {
			out = append(out, row)
		}
	}
	return out, nil
}

type scriptedSender struct {
	channel  enums.Channel
	failures int
	calls    int
}

func (s *scriptedSender) Channel() enums.Channel { return s.channel }

func (s *scriptedSender) Send(ctx context.Context, user *models.User, notification *models.Notification) error {
	s.calls++
	if s.calls <= s.failures {
		return errors.New("provider unavailable")
	}
	return nil
}

func newTestDispatcher(t *testing.T, attempts *fakeAttempts, senders ...Sender) *Dispatcher {
	t.Helper()
	d, err := NewDispatcher(attempts, senders, nil, config.DeliveryConfig{
		MaxChannelAttempts: 3,
		RetryBaseDelay:     time.Millisecond,
		SendTimeout:        time.Second,
	}, nil)
	if err != nil {
		t.Fatalf("new dispatcher: %v", err)
	}
	d.sleep = func(ctx context.Context, _ time.Duration) error { return nil }
	return d
}

func testNotification() *models.Notification {
	return &models.Notification{
		ID:         uuid.New(),
		UserID:     uuid.New(),
		Type:       enums.NotificationTypeLike,
		Title:      "Someone likes you",
		Message:    "Open the app to see who.",
		GroupCount: 1,
	}
}

func TestDispatchFirstTrySucceeds(t *testing.T) {
	attempts := &fakeAttempts{}
	sender := &scriptedSender{channel: enums.ChannelPush}
	d := newTestDispatcher(t, attempts, sender)
	n := testNotification()

	delivered, err := d.Dispatch(context.Background(), &models.User{ID: n.UserID}, n, []enums.Channel{enums.ChannelPush})
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if !delivered {
		t.Fatal("expected delivery")
	}
	if len(attempts.rows) != 1 || attempts.rows[0].Outcome != enums.DeliveryOutcomeDelivered {
		t.Fatalf("expected one delivered attempt, got %+v", attempts.rows)
	}
	if attempts.rows[0].AttemptNumber != 1 {
		t.Fatalf("expected attempt number 1, got %d", attempts.rows[0].AttemptNumber)
	}
}

func TestDispatchRetriesUntilSuccess(t *testing.T) {
	attempts := &fakeAttempts{}
	sender := &scriptedSender{channel: enums.ChannelPush, failures: 2}
	d := newTestDispatcher(t, attempts, sender)
	n := testNotification()

	delivered, err := d.Dispatch(context.Background(), &models.User{ID: n.UserID}, n, []enums.Channel{enums.ChannelPush})
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if !delivered {
		t.Fatal("expected delivery on third try")
	}
	if len(attempts.rows) != 3 {
		t.Fatalf("expected 3 attempt rows, got %d", len(attempts.rows))
	}
	for i, row := range attempts.rows {
		if row.AttemptNumber != i+1 {
			t.Fatalf("attempt %d numbered %d", i, row.AttemptNumber)
		}
	}
	if attempts.rows[2].Outcome != enums.DeliveryOutcomeDelivered {
		t.Fatalf("expected final attempt delivered, got %s", attempts.rows[2].Outcome)
	}
}

func TestDispatchStopsAfterMaxAttempts(t *testing.T) {
	attempts := &fakeAttempts{}
	sender := &scriptedSender{channel: enums.ChannelPush, failures: 10}
	d := newTestDispatcher(t, attempts, sender)
	n := testNotification()

	delivered, err := d.Dispatch(context.Background(), &models.User{ID: n.UserID}, n, []enums.Channel{enums.ChannelPush})
	if delivered {
		t.Fatal("expected failure")
	}
	if err == nil {
		t.Fatal("expected error after exhausting attempts")
	}
	if sender.calls != 3 {
		t.Fatalf("expected exactly 3 sends, got %d", sender.calls)
	}

	// A later dispatch must not restart the attempt budget.
	delivered, err = d.Dispatch(context.Background(), &models.User{ID: n.UserID}, n, []enums.Channel{enums.ChannelPush})
	if delivered || err == nil {
		t.Fatal("expected exhausted channel to stay failed")
	}
	if sender.calls != 3 {
		t.Fatalf("expected no further sends, got %d", sender.calls)
	}
}

func TestDispatchSkipsRecordedSuccess(t *testing.T) {
	attempts := &fakeAttempts{}
	sender := &scriptedSender{channel: enums.ChannelPush}
	d := newTestDispatcher(t, attempts, sender)
	n := testNotification()

	attempts.rows = append(attempts.rows, models.DeliveryAttempt{
		NotificationID: n.ID,
		Channel:        enums.ChannelPush,
		AttemptNumber:  1,
		Outcome:        enums.DeliveryOutcomeDelivered,
		ContentHash:    ContentHash(n),
	})

	delivered, err := d.Dispatch(context.Background(), &models.User{ID: n.UserID}, n, []enums.Channel{enums.ChannelPush})
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if !delivered {
		t.Fatal("recorded success counts as delivered")
	}
	if sender.calls != 0 {
		t.Fatalf("expected no sends, got %d", sender.calls)
	}
}

func TestDispatchContentChangeReArmsChannel(t *testing.T) {
	attempts := &fakeAttempts{}
	sender := &scriptedSender{channel: enums.ChannelPush}
	d := newTestDispatcher(t, attempts, sender)
	n := testNotification()

	staleHash := ContentHash(n)
	n.GroupCount = 3
	attempts.rows = append(attempts.rows, models.DeliveryAttempt{
		NotificationID: n.ID,
		Channel:        enums.ChannelPush,
		AttemptNumber:  1,
		Outcome:        enums.DeliveryOutcomeDelivered,
		ContentHash:    staleHash,
	})

	delivered, err := d.Dispatch(context.Background(), &models.User{ID: n.UserID}, n, []enums.Channel{enums.ChannelPush})
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if !delivered {
		t.Fatal("expected redelivery for changed content")
	}
	if sender.calls != 1 {
		t.Fatalf("expected one send for new content, got %d", sender.calls)
	}
}

func TestDispatchIsolatesChannelFailures(t *testing.T) {
	attempts := &fakeAttempts{}
	pushSender := &scriptedSender{channel: enums.ChannelPush, failures: 10}
	emailSender := &scriptedSender{channel: enums.ChannelEmail}
	d := newTestDispatcher(t, attempts, pushSender, emailSender)
	n := testNotification()

	delivered, err := d.Dispatch(context.Background(), &models.User{ID: n.UserID}, n,
		[]enums.Channel{enums.ChannelPush, enums.ChannelEmail})
	if !delivered {
		t.Fatal("email success must survive push failure")
	}
	if err == nil {
		t.Fatal("expected aggregated push error")
	}
	if emailSender.calls != 1 {
		t.Fatalf("expected one email send, got %d", emailSender.calls)
	}
}
