package notify

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"kleinwatch/dealwatcher/internal/fetcher"
	"kleinwatch/dealwatcher/logger"
	werrors "kleinwatch/dealwatcher/pkg/errors"
)

// NtfyConfig holds configuration for the push channel. Either URL or
// Topic must be set; Topic is resolved against the public ntfy.sh host.
type NtfyConfig struct {
	URL     string
	Topic   string
	Timeout time.Duration
}

// Endpoint returns the effective publish URL
func (c NtfyConfig) Endpoint() string {
	if c.URL != "" {
		return c.URL
	}
	return "https://ntfy.sh/" + c.Topic
}

// NtfyChannel sends one push notification per listing
type NtfyChannel struct {
	endpoint string
	timeout  time.Duration
	client   *http.Client
	log      *logger.Logger
}

var _ Channel = (*NtfyChannel)(nil)

// NewNtfyChannel creates the push channel
func NewNtfyChannel(cfg NtfyConfig) *NtfyChannel {
	return &NtfyChannel{
		endpoint: cfg.Endpoint(),
		timeout:  cfg.Timeout,
		client:   &http.Client{Timeout: cfg.Timeout},
		log:      logger.ForNotifier("ntfy"),
	}
}

// Name returns the channel name
func (c *NtfyChannel) Name() string {
	return "ntfy"
}

// Notify publishes one message per listing. A failure for one listing
// never blocks the rest; the error summarizes how many failed.
func (c *NtfyChannel) Notify(ctx context.Context, listings []fetcher.Listing) error {
	failed := 0
	for _, l := range listings {
		if err := c.publish(ctx, l); err != nil {
			c.log.Warn().
				Err(err).
				Str("url", l.URL).
				Msg("Failed to push listing")
			failed++
		}
	}

	if failed > 0 {
		return werrors.NewNotify(c.Name(), fmt.Sprintf("%d of %d pushes failed", failed, len(listings)), nil)
	}
	return nil
}

func (c *NtfyChannel) publish(ctx context.Context, l fetcher.Listing) error {
	sendCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(sendCtx, http.MethodPost, c.endpoint, strings.NewReader(l.URL))
	if err != nil {
		return err
	}
	req.Header.Set("Title", PushTitle(l))

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("ntfy returned status %d", resp.StatusCode)
	}
	return nil
}
