package delivery

import (
	"context"
	"fmt"

	"github.com/sparkmeet/sparkmeet-backend/pkg/db/models"
	"github.com/sparkmeet/sparkmeet-backend/pkg/email"
	"github.com/sparkmeet/sparkmeet-backend/pkg/enums"
	"github.com/sparkmeet/sparkmeet-backend/pkg/push"
)

type pushSender struct {
	client *push.Client
}

// NewPushSender adapts the push gateway client to the dispatcher.
func NewPushSender(client *push.Client) Sender {
	return &pushSender{client: client}
}

func (s *pushSender) Channel() enums.Channel { return enums.ChannelPush }

func (s *pushSender) Send(ctx context.Context, user *models.User, notification *models.Notification) error {
	return s.client.Send(ctx, user.ID, notification.Title, notification.Message, nil)
}

type emailSender struct {
	client *email.Client
}

// NewEmailSender adapts the SMTP client to the dispatcher.
func NewEmailSender(client *email.Client) Sender {
	return &emailSender{client: client}
}

func (s *emailSender) Channel() enums.Channel { return enums.ChannelEmail }

func (s *emailSender) Send(ctx context.Context, user *models.User, notification *models.Notification) error {
	if user.Email == "" {
		return fmt.Errorf("user %s has no email address", user.ID)
	}
	done := make(chan error, 1)
	go func() {
		done <- s.client.Send(user.Email, notification.Title, notification.Message)
	}()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-done:
		return err
	}
}

type inAppSender struct{}

// NewInAppSender returns the feed channel. The stored notification row is
// the delivery itself, so the send is a recorded no-op.
func NewInAppSender() Sender {
	return inAppSender{}
}

func (inAppSender) Channel() enums.Channel { return enums.ChannelInApp }

func (inAppSender) Send(ctx context.Context, user *models.User, notification *models.Notification) error {
	return nil
}
