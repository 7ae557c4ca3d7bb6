package matcher

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kleinwatch/dealwatcher/internal/fetcher"
	"kleinwatch/dealwatcher/internal/search"
)

// MockFetcher implements the fetcher.Fetcher interface for testing
type MockFetcher struct {
	listings map[string][]fetcher.Listing
	errs     map[string]error
	calls    []string
}

var _ fetcher.Fetcher = (*MockFetcher)(nil)

func (m *MockFetcher) FetchListings(ctx context.Context, variant string) ([]fetcher.Listing, error) {
	m.calls = append(m.calls, variant)
	if err := m.errs[variant]; err != nil {
		return nil, err
	}
	return m.listings[variant], nil
}

func (m *MockFetcher) Name() string {
	return "mock"
}

func listing(title, url string, price *float64) fetcher.Listing {
	return fetcher.Listing{Title: title, URL: url, Price: price}
}

func ptr(v float64) *float64 {
	return &v
}

func mustParse(t *testing.T, token string) search.QuerySpec {
	t.Helper()
	spec, err := search.ParseTerm(token)
	require.NoError(t, err)
	return spec
}

func TestFindMatchesPriceFilter(t *testing.T) {
	mock := &MockFetcher{
		listings: map[string][]fetcher.Listing{
			"a": {
				listing("cheap", "https://l/1", ptr(90)),
				listing("mid", "https://l/2", ptr(150)),
				listing("unknown", "https://l/3", nil),
			},
		},
	}
	m := New(mock, 0)

	specs := []search.QuerySpec{mustParse(t, "a:100-300")}
	matches, failures := m.FindMatches(context.Background(), specs, Options{})

	assert.Empty(t, failures)
	require.Len(t, matches, 2)
	assert.Equal(t, "mid", matches[0].Title)
	assert.Equal(t, "unknown", matches[1].Title, "unknown price is always kept")
}

func TestFindMatchesGlobalBounds(t *testing.T) {
	mock := &MockFetcher{
		listings: map[string][]fetcher.Listing{
			"a": {
				listing("low", "https://l/1", ptr(50)),
				listing("high", "https://l/2", ptr(150)),
			},
		},
	}
	m := New(mock, 0)

	specs := []search.QuerySpec{mustParse(t, "a")}
	matches, _ := m.FindMatches(context.Background(), specs, Options{GlobalMax: ptr(100)})

	require.Len(t, matches, 1)
	assert.Equal(t, "low", matches[0].Title)
}

func TestFindMatchesDedupAcrossSpecs(t *testing.T) {
	mock := &MockFetcher{
		listings: map[string][]fetcher.Listing{
			"a": {listing("Ryzen 9 5900X", "https://l/same", ptr(200))},
			"b": {listing("Ryzen 9 5900X", "https://l/same", ptr(200))},
		},
	}
	m := New(mock, 0)

	specs := []search.QuerySpec{mustParse(t, "a"), mustParse(t, "b")}
	matches, _ := m.FindMatches(context.Background(), specs, Options{})

	require.Len(t, matches, 1)
	assert.Equal(t, "a", matches[0].SourceTerm, "first-seen tagging wins")
}

func TestFindMatchesVariantTaggingAndOrder(t *testing.T) {
	mock := &MockFetcher{
		listings: map[string][]fetcher.Listing{
			"a": {listing("one", "https://l/1", nil)},
			"b": {listing("two", "https://l/2", nil)},
			"c": {listing("three", "https://l/3", nil)},
		},
	}
	m := New(mock, 0)

	specs := []search.QuerySpec{mustParse(t, "a|b"), mustParse(t, "c")}
	matches, _ := m.FindMatches(context.Background(), specs, Options{})

	require.Len(t, matches, 3)
	assert.Equal(t, []string{"a", "b", "c"}, mock.calls)
	assert.Equal(t, "one", matches[0].Title)
	assert.Equal(t, "a", matches[0].SourceTerm)
	assert.Equal(t, "b", matches[1].SourceTerm)
	assert.Equal(t, "c", matches[2].SourceTerm)
}

func TestFindMatchesBlacklist(t *testing.T) {
	mock := &MockFetcher{
		listings: map[string][]fetcher.Listing{
			"ryzen 9 5900x": {
				listing("Komplett PC Ryzen 5900X", "https://l/1", ptr(500)),
				listing("Ryzen 9 5900X boxed", "https://l/2", ptr(250)),
			},
		},
	}
	m := New(mock, 0)

	specs := []search.QuerySpec{mustParse(t, "ryzen 9 5900x")}
	matches, _ := m.FindMatches(context.Background(), specs, Options{})

	require.Len(t, matches, 1)
	assert.Equal(t, "Ryzen 9 5900X boxed", matches[0].Title)
}

func TestFindMatchesFetchFailureIsPartial(t *testing.T) {
	mock := &MockFetcher{
		listings: map[string][]fetcher.Listing{
			"b": {listing("survivor", "https://l/2", nil)},
		},
		errs: map[string]error{
			"a": errors.New("network down"),
		},
	}
	m := New(mock, 0)

	specs := []search.QuerySpec{mustParse(t, "a|b")}
	matches, failures := m.FindMatches(context.Background(), specs, Options{})

	require.Len(t, failures, 1)
	require.Len(t, matches, 1)
	assert.Equal(t, "survivor", matches[0].Title)
}

func TestFindMatchesCancelledContext(t *testing.T) {
	mock := &MockFetcher{
		listings: map[string][]fetcher.Listing{
			"a": {listing("one", "https://l/1", nil)},
		},
	}
	m := New(mock, 0)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	matches, _ := m.FindMatches(ctx, []search.QuerySpec{mustParse(t, "a")}, Options{})
	assert.Empty(t, matches)
	assert.Empty(t, mock.calls)
}
