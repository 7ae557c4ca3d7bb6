package matcher

import (
	"context"
	"time"

	"kleinwatch/dealwatcher/internal/fetcher"
	"kleinwatch/dealwatcher/internal/search"
	"kleinwatch/dealwatcher/logger"
)

// Options carries the run-wide filter settings
type Options struct {
	GlobalMin      *float64
	GlobalMax      *float64
	ExtraBlacklist []string
}

// Matcher aggregates listings across query specs: fetch per variant,
// filter by title and price, deduplicate by URL.
type Matcher struct {
	fetcher    fetcher.Fetcher
	fetchDelay time.Duration
	log        *logger.Logger
}

// New creates a matcher on top of a listing fetcher. fetchDelay is the
// polite pause between successive variant fetches.
func New(f fetcher.Fetcher, fetchDelay time.Duration) *Matcher {
	return &Matcher{
		fetcher:    f,
		fetchDelay: fetchDelay,
		log:        logger.ForMatcher(),
	}
}

// FindMatches runs the full aggregation. A fetch failure for one variant
// never aborts the run; it is logged, collected into the returned failure
// list, and that variant contributes zero listings.
//
// The result is deduplicated by URL across all specs, first-seen entry
// wins, in encounter order: spec order, then variant order, then
// fetch-result order.
func (m *Matcher) FindMatches(ctx context.Context, specs []search.QuerySpec, opts Options) ([]fetcher.Listing, []error) {
	var (
		merged   []fetcher.Listing
		failures []error
		first    = true
	)

	for _, spec := range specs {
		minPrice, maxPrice := spec.EffectiveBounds(opts.GlobalMin, opts.GlobalMax)

		for _, variant := range spec.Variants {
			if ctx.Err() != nil {
				m.log.Warn().Msg("Run cancelled, stopping fetches")
				return dedupeByURL(merged), failures
			}

			if !first {
				m.pause(ctx)
			}
			first = false

			listings, err := m.fetcher.FetchListings(ctx, variant)
			if err != nil {
				m.log.Warn().
					Err(err).
					Str("variant", variant).
					Msg("Fetch failed, variant contributes no listings")
				failures = append(failures, err)
				continue
			}

			for _, l := range listings {
				l.SourceTerm = variant

				if search.IsBlacklistedTitle(l.Title, variant, opts.ExtraBlacklist) {
					m.log.Debug().
						Str("title", l.Title).
						Str("variant", variant).
						Msg("Title blacklisted")
					continue
				}

				// An unknown price never excludes a listing
				if l.Price != nil {
					if minPrice != nil && *l.Price < *minPrice {
						continue
					}
					if maxPrice != nil && *l.Price > *maxPrice {
						continue
					}
				}

				merged = append(merged, l)
			}
		}
	}

	return dedupeByURL(merged), failures
}

// pause waits the fetch delay, or returns early on cancellation
func (m *Matcher) pause(ctx context.Context) {
	if m.fetchDelay <= 0 {
		return
	}
	timer := time.NewTimer(m.fetchDelay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}

// dedupeByURL drops later duplicates, keeping first-seen tagging
func dedupeByURL(listings []fetcher.Listing) []fetcher.Listing {
	seen := make(map[string]struct{}, len(listings))
	unique := make([]fetcher.Listing, 0, len(listings))
	for _, l := range listings {
		if _, ok := seen[l.URL]; ok {
			continue
		}
		seen[l.URL] = struct{}{}
		unique = append(unique, l)
	}
	return unique
}
