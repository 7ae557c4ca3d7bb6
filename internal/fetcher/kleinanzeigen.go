package fetcher

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"kleinwatch/dealwatcher/helpers"
	"kleinwatch/dealwatcher/logger"
	werrors "kleinwatch/dealwatcher/pkg/errors"
	"kleinwatch/dealwatcher/services/cache"
)

const kleinanzeigenCacheKey = "kleinanzeigen_rate_limited"

// Anchors whose text carries no letters are image counters, not titles
var letterRegex = regexp.MustCompile(`[A-Za-zÄÖÜäöüß]`)

// KleinanzeigenFetcher scrapes search result pages from kleinanzeigen.de
type KleinanzeigenFetcher struct {
	BaseURL   string
	Timeout   time.Duration
	BlockTime time.Duration
	CacheSvc  cache.CacheService

	// fetchFunc is swapped out in tests
	fetchFunc func(ctx context.Context, pageURL string, timeout time.Duration) (io.Reader, error)

	log *logger.Logger
}

var _ Fetcher = (*KleinanzeigenFetcher)(nil)

// NewKleinanzeigenFetcher creates a fetcher for kleinanzeigen.de search pages
func NewKleinanzeigenFetcher(baseURL string, timeout, blockTime time.Duration, cacheSvc cache.CacheService) *KleinanzeigenFetcher {
	return &KleinanzeigenFetcher{
		BaseURL:   strings.TrimRight(baseURL, "/"),
		Timeout:   timeout,
		BlockTime: blockTime,
		CacheSvc:  cacheSvc,
		fetchFunc: helpers.FetchWithRandomHeaders,
		log:       logger.ForFetcher("kleinanzeigen"),
	}
}

// Name returns the source name
func (f *KleinanzeigenFetcher) Name() string {
	return "kleinanzeigen"
}

// SearchURL builds the search result URL for one variant
func (f *KleinanzeigenFetcher) SearchURL(variant string) string {
	slug := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(variant)), " ", "-")
	return f.BaseURL + "/s-" + url.PathEscape(slug) + "/k0"
}

// FetchListings fetches and parses the search result page for a variant
func (f *KleinanzeigenFetcher) FetchListings(ctx context.Context, variant string) ([]Listing, error) {
	body, err := f.fetchWithBlock(ctx, f.SearchURL(variant))
	if err != nil {
		return nil, err
	}

	doc, err := goquery.NewDocumentFromReader(body)
	if err != nil {
		return nil, werrors.NewFetch(f.Name(), "failed to parse HTML", err)
	}

	var listings []Listing
	doc.Find("article.aditem, article.aditem-container, article").Each(func(i int, ad *goquery.Selection) {
		listing := f.processAd(ad, variant)
		if listing != nil {
			listings = append(listings, *listing)
		}
	})

	f.log.Debug().
		Str("variant", variant).
		Int("listings", len(listings)).
		Msg("Fetched search page")

	return listings, nil
}

// fetchWithBlock fetches a URL, honoring and recording rate-limit blocks
func (f *KleinanzeigenFetcher) fetchWithBlock(ctx context.Context, pageURL string) (io.Reader, error) {
	if f.CacheSvc != nil {
		if _, err := f.CacheSvc.Get(kleinanzeigenCacheKey); err == nil {
			return nil, werrors.NewRateLimit(f.Name(), f.BlockTime)
		}
	}

	body, err := f.fetchFunc(ctx, pageURL, f.Timeout)
	if err != nil {
		if helpers.IsRateLimited(err) {
			if f.CacheSvc != nil {
				blockSecs := fmt.Sprintf("%d", int(f.BlockTime/time.Second))
				if setErr := f.CacheSvc.Set(kleinanzeigenCacheKey, []byte(blockSecs), f.BlockTime); setErr != nil {
					f.log.Warn().Err(setErr).Msg("Failed to record rate-limit block")
				}
			}
			return nil, werrors.NewRateLimit(f.Name(), f.BlockTime)
		}
		return nil, werrors.NewFetch(f.Name(), "failed to fetch "+pageURL, err)
	}

	return body, nil
}

// processAd extracts one listing from an ad element, or nil when the
// element carries no usable title anchor
func (f *KleinanzeigenFetcher) processAd(ad *goquery.Selection, variant string) *Listing {
	var title, href string
	ad.Find("a[href]").EachWithBreak(func(i int, a *goquery.Selection) bool {
		h, _ := a.Attr("href")
		if !strings.Contains(h, "/s-anzeige/") {
			return true
		}
		text := strings.TrimSpace(a.Text())
		if text == "" || !letterRegex.MatchString(text) {
			return true
		}
		title = text
		href = h
		return false
	})

	if title == "" {
		return nil
	}

	if !strings.HasPrefix(href, "http") {
		href = f.BaseURL + href
	}

	priceText := strings.TrimSpace(ad.Find(".aditem-main--middle--price-shipping, .aditem-main--middle--price").First().Text())
	location := strings.TrimSpace(ad.Find(".aditem-main--top--left, .aditem-main--top").First().Text())

	return &Listing{
		Title:      title,
		Price:      ParsePriceText(priceText),
		Location:   location,
		URL:        href,
		SourceTerm: variant,
	}
}
