package worker

import (
	"context"
	"fmt"
	"io"

	"kleinwatch/dealwatcher/internal/fetcher"
	"kleinwatch/dealwatcher/internal/matcher"
	"kleinwatch/dealwatcher/internal/search"
	"kleinwatch/dealwatcher/logger"
	"kleinwatch/dealwatcher/services/notify"
	"kleinwatch/dealwatcher/services/seenstore"
)

// MatchFinder aggregates listings for a set of query specs
type MatchFinder interface {
	FindMatches(ctx context.Context, specs []search.QuerySpec, opts matcher.Options) ([]fetcher.Listing, []error)
}

// Dispatcher fans new listings out to the notification channels
type Dispatcher interface {
	Dispatch(ctx context.Context, listings []fetcher.Listing) []string
	Channels() int
}

// Compile-time wiring checks against the real implementations
var (
	_ MatchFinder = (*matcher.Matcher)(nil)
	_ Dispatcher  = (*notify.Dispatcher)(nil)
)

// Worker runs one watch cycle: match, seen-diff, notify, commit
type Worker struct {
	matcher    MatchFinder
	store      seenstore.Store
	dispatcher Dispatcher
	notify     bool
	out        io.Writer
	log        *logger.Logger
}

// NewWorker creates a worker. When notify is false the worker prints
// matches instead of dispatching them.
func NewWorker(m MatchFinder, store seenstore.Store, d Dispatcher, notifyEnabled bool, out io.Writer) *Worker {
	return &Worker{
		matcher:    m,
		store:      store,
		dispatcher: d,
		notify:     notifyEnabled,
		out:        out,
		log:        logger.ForWorker(),
	}
}

// RunOnce executes a single watch cycle. Recoverable failures are logged
// and never abort the cycle.
func (w *Worker) RunOnce(ctx context.Context, specs []search.QuerySpec, opts matcher.Options) error {
	matches, failures := w.matcher.FindMatches(ctx, specs, opts)
	if len(failures) > 0 {
		w.log.Warn().
			Int("failed_variants", len(failures)).
			Msg("Some variants contributed no listings")
	}

	if !w.notify {
		w.printListings(matches, opts)
		return nil
	}

	seen := w.store.Load()
	fresh := seenstore.FilterNew(matches, seen)
	if len(fresh) == 0 {
		w.log.Info().
			Int("matches", len(matches)).
			Msg("No new listings to notify")
		return nil
	}

	attempted := w.dispatcher.Dispatch(ctx, fresh)
	if len(attempted) > 0 {
		// A failed commit risks duplicate notifications on the next run;
		// the notifications already sent stand either way.
		if err := w.store.Commit(seen, attempted); err != nil {
			w.log.Error().
				Err(err).
				Msg("Failed to commit seen cache; listings may be notified again")
		}
	}

	w.log.Info().
		Int("matches", len(matches)).
		Int("new", len(fresh)).
		Int("channels", w.dispatcher.Channels()).
		Msg("Run complete")
	return nil
}

// printListings writes matches to the output in print-only mode
func (w *Worker) printListings(listings []fetcher.Listing, opts matcher.Options) {
	if len(listings) == 0 {
		fmt.Fprintf(w.out, "No listings %s found.\n", boundsPhrase(opts))
		return
	}

	fmt.Fprintf(w.out, "=== MATCHING LISTINGS %s ===\n\n", boundsPhrase(opts))
	for _, l := range listings {
		fmt.Fprintln(w.out, notify.FormatListing(l))
		fmt.Fprintln(w.out)
	}
}

func boundsPhrase(opts matcher.Options) string {
	switch {
	case opts.GlobalMin != nil && opts.GlobalMax != nil:
		return fmt.Sprintf("(%s-%s €)", formatBound(opts.GlobalMin), formatBound(opts.GlobalMax))
	case opts.GlobalMin != nil:
		return fmt.Sprintf("(>= %s €)", formatBound(opts.GlobalMin))
	case opts.GlobalMax != nil:
		return fmt.Sprintf("(<= %s €)", formatBound(opts.GlobalMax))
	default:
		return "(any price)"
	}
}

func formatBound(v *float64) string {
	return fmt.Sprintf("%g", *v)
}
