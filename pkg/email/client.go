// Package email wraps the SMTP relay used by the email notification channel.
package email

import (
	mail "gopkg.in/mail.v2"

	"github.com/sparkmeet/sparkmeet-backend/pkg/config"
	pkgerrors "github.com/sparkmeet/sparkmeet-backend/pkg/errors"
)

type Client struct {
	dialer *mail.Dialer
	from   string
}

func NewClient(cfg config.EmailConfig) (*Client, error) {
	if cfg.SMTPHost == "" {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "smtp host required")
	}
	return &Client{
		dialer: mail.NewDialer(cfg.SMTPHost, cfg.SMTPPort, cfg.Username, cfg.Password),
		from:   cfg.From,
	}, nil
}

// Send delivers a plain-text message. The SMTP dial blocks; callers bound it
// with their own deadline.
func (c *Client) Send(to, subject, body string) error {
	msg := mail.NewMessage()
	msg.SetHeader("From", c.from)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/plain", body)
	return c.dialer.DialAndSend(msg)
}
