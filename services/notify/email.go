package notify

import (
	"context"
	"fmt"
	"strings"
	"time"

	gomail "gopkg.in/mail.v2"

	"kleinwatch/dealwatcher/internal/fetcher"
	werrors "kleinwatch/dealwatcher/pkg/errors"
)

// EmailConfig holds SMTP configuration for the email channel
type EmailConfig struct {
	From        string
	To          string
	Host        string
	Port        int
	User        string
	Password    string
	UseStartTLS bool
	Timeout     time.Duration
}

// EmailChannel sends one digest email per run via SMTP
type EmailChannel struct {
	cfg EmailConfig
}

var _ Channel = (*EmailChannel)(nil)

// NewEmailChannel creates the email channel with the given SMTP
// configuration
func NewEmailChannel(cfg EmailConfig) *EmailChannel {
	return &EmailChannel{cfg: cfg}
}

// Name returns the channel name
func (c *EmailChannel) Name() string {
	return "email"
}

// Notify sends a single digest message covering all listings
func (c *EmailChannel) Notify(ctx context.Context, listings []fetcher.Listing) error {
	if len(listings) == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return werrors.NewNotify(c.Name(), "run cancelled", err)
	}

	m := gomail.NewMessage()
	m.SetHeader("From", c.cfg.From)
	m.SetHeader("To", c.cfg.To)
	m.SetHeader("Subject", Subject(len(listings)))
	m.SetBody("text/plain", Body(listings))

	dialer := gomail.NewDialer(c.cfg.Host, c.cfg.Port, c.cfg.User, c.cfg.Password)
	dialer.Timeout = c.cfg.Timeout
	if c.cfg.UseStartTLS {
		dialer.StartTLSPolicy = gomail.MandatoryStartTLS
	}

	if err := dialer.DialAndSend(m); err != nil {
		return werrors.NewNotify(c.Name(), "failed to send digest to "+c.cfg.To, err)
	}
	return nil
}

// Subject renders the digest subject line
func Subject(count int) string {
	return fmt.Sprintf("[kleinanzeigen] %d new listing(s)", count)
}

// Body renders the digest body, one block per listing
func Body(listings []fetcher.Listing) string {
	blocks := make([]string, 0, len(listings))
	for _, l := range listings {
		blocks = append(blocks, FormatListing(l))
	}
	return strings.Join(blocks, "\n\n")
}
