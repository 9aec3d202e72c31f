package notify

import (
	"context"
	"fmt"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

// SendGridChannel delivers email through the SendGrid v3 API.
type SendGridChannel struct {
	client *sendgrid.Client
	from   *mail.Email
}

// NewSendGridChannel creates an email channel. apiKey must be non-empty.
func NewSendGridChannel(apiKey, fromAddress, fromName string) (*SendGridChannel, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("sendgrid API key is empty")
	}
	if fromAddress == "" {
		return nil, fmt.Errorf("sender address is empty")
	}
	return &SendGridChannel{
		client: sendgrid.NewSendClient(apiKey),
		from:   mail.NewEmail(fromName, fromAddress),
	}, nil
}

func (c *SendGridChannel) Send(ctx context.Context, msg Message) error {
	if msg.To == "" {
		return fmt.Errorf("recipient is empty")
	}
	email := mail.NewSingleEmail(c.from, msg.Subject, mail.NewEmail(msg.Name, msg.To), msg.Text, msg.HTML)

	resp, err := c.client.SendWithContext(ctx, email)
	if err != nil {
		return fmt.Errorf("sendgrid send: %w", err)
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("sendgrid returned %d: %s", resp.StatusCode, resp.Body)
	}
	return nil
}
