package notify

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"kleinwatch/dealwatcher/internal/fetcher"
	"kleinwatch/dealwatcher/logger"
	werrors "kleinwatch/dealwatcher/pkg/errors"
)

// pushTitleMaxLen bounds the ntfy title header
const pushTitleMaxLen = 80

// Channel delivers notifications for a batch of new listings
type Channel interface {
	// Notify dispatches the listings on this channel
	Notify(ctx context.Context, listings []fetcher.Listing) error

	// Name returns the channel name for logging
	Name() string
}

// Dispatcher fans a batch of listings out to all enabled channels. A
// failure on one channel never blocks the others.
type Dispatcher struct {
	channels []Channel
	log      *logger.Logger
}

// NewDispatcher creates a dispatcher over the given channels
func NewDispatcher(channels ...Channel) *Dispatcher {
	return &Dispatcher{
		channels: channels,
		log:      logger.ForNotifier("dispatcher"),
	}
}

// Channels returns the configured channel count
func (d *Dispatcher) Channels() int {
	return len(d.channels)
}

// Dispatch sends the listings to every channel and returns the URLs whose
// dispatch was attempted. Delivery failures are logged; the attempted URLs
// still count as notified so repeated runs stay quiet.
func (d *Dispatcher) Dispatch(ctx context.Context, listings []fetcher.Listing) []string {
	if len(listings) == 0 {
		return nil
	}

	for _, ch := range d.channels {
		if err := ch.Notify(ctx, listings); err != nil {
			d.log.Warn().
				Err(werrors.NewNotify(ch.Name(), "channel dispatch failed", err)).
				Str("channel", ch.Name()).
				Msg("Notification channel failed")
			continue
		}
		d.log.Info().
			Str("channel", ch.Name()).
			Int("listings", len(listings)).
			Msg("Notifications sent")
	}

	urls := make([]string, 0, len(listings))
	for _, l := range listings {
		urls = append(urls, l.URL)
	}
	return urls
}

// Close closes channels that hold connections
func (d *Dispatcher) Close() {
	for _, ch := range d.channels {
		if closer, ok := ch.(interface{ Close() error }); ok {
			if err := closer.Close(); err != nil {
				d.log.Warn().Err(err).Str("channel", ch.Name()).Msg("Failed to close channel")
			}
		}
	}
}

// FormatPrice renders a listing price, "?" when unknown
func FormatPrice(l fetcher.Listing) string {
	if l.Price == nil {
		return "?"
	}
	return strconv.FormatFloat(*l.Price, 'f', -1, 64)
}

// FormatListing renders one listing as a text block for emails and
// console output
func FormatListing(l fetcher.Listing) string {
	return fmt.Sprintf("[%s] %s € | %s\n%s\n%s", l.SourceTerm, FormatPrice(l), l.Title, l.Location, l.URL)
}

// PushTitle renders the short push notification title: price plus
// truncated listing title, bounded length, ASCII-sanitized because HTTP
// header values are Latin-1.
func PushTitle(l fetcher.Listing) string {
	title := fmt.Sprintf("%s € %s", FormatPrice(l), l.Title)

	runes := []rune(title)
	if len(runes) > pushTitleMaxLen {
		title = string(runes[:pushTitleMaxLen-3]) + "..."
	}

	var sb strings.Builder
	for _, r := range title {
		if r > 127 {
			sb.WriteByte('?')
			continue
		}
		sb.WriteRune(r)
	}
	return sb.String()
}
