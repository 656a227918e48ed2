package mail

import (
	"context"

	"github.com/Skotchmaster/storefront/internal/logging"
)

type Mailer interface {
	Send(ctx context.Context, msg *Message) error
}

type Address struct {
	Name    string
	Address string
}

type Message struct {
	From    Address
	To      []Address
	Subject string
	HTML    string
	Text    string
}

// LogMailer writes messages to the request logger instead of delivering them.
// It is used when no SMTP host is configured.
type LogMailer struct{}

func (LogMailer) Send(ctx context.Context, msg *Message) error {
	to := make([]string, 0, len(msg.To))
	for _, a := range msg.To {
		to = append(to, a.Address)
	}
	logging.FromContext(ctx).Info("mail_not_sent", "reason", "smtp not configured", "to", to, "subject", msg.Subject, "text", msg.Text)
	return nil
}
