package fetcher

import "context"

// Listing represents one scraped classified-ad record
type Listing struct {
	Title      string   `json:"title"`
	Price      *float64 `json:"price,omitempty"`
	Location   string   `json:"location,omitempty"`
	URL        string   `json:"url"`
	SourceTerm string   `json:"source_term"`
}

// Fetcher is the contract every listing source implements. New sources
// plug in without touching the matcher.
type Fetcher interface {
	// FetchListings retrieves the current listings for one search variant
	FetchListings(ctx context.Context, variant string) ([]Listing, error)

	// Name returns the source name for logging and identification
	Name() string
}
