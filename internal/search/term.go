package search

import (
	"strconv"
	"strings"

	werrors "kleinwatch/dealwatcher/pkg/errors"
)

// QuerySpec is the parsed representation of one search-term token: the
// alternative phrasings searched for one logical item, plus optional
// per-term price bounds.
type QuerySpec struct {
	Variants []string
	MinPrice *float64
	MaxPrice *float64
}

// HasPrice reports whether the token carried its own price suffix
func (q QuerySpec) HasPrice() bool {
	return q.MinPrice != nil || q.MaxPrice != nil
}

// EffectiveBounds returns the price bounds that apply to this spec's
// listings. A per-term price suffix overrides the global bounds entirely;
// without one the spec inherits the globals.
func (q QuerySpec) EffectiveBounds(globalMin, globalMax *float64) (*float64, *float64) {
	if q.HasPrice() {
		return q.MinPrice, q.MaxPrice
	}
	return globalMin, globalMax
}

// ParseTerm parses one raw search-term token.
//
// Grammar: VARIANT('|'VARIANT)*(':'PRICE)? with PRICE = MIN or MIN'-'MAX.
// The price suffix binds to the last variant segment and applies to the
// whole spec. Decimal commas are accepted in prices.
func ParseTerm(raw string) (QuerySpec, error) {
	token := strings.TrimSpace(raw)
	if token == "" {
		return QuerySpec{}, werrors.NewParse(raw, "empty search term")
	}

	segments := strings.Split(token, "|")

	var minPrice, maxPrice *float64
	last := segments[len(segments)-1]
	if variant, priceStr, ok := strings.Cut(last, ":"); ok {
		segments[len(segments)-1] = variant

		priceStr = strings.TrimSpace(priceStr)
		if priceStr == "" {
			return QuerySpec{}, werrors.NewParse(raw, "missing price after ':'")
		}

		var err error
		minPrice, maxPrice, err = parsePriceBounds(raw, priceStr)
		if err != nil {
			return QuerySpec{}, err
		}
	}

	variants := make([]string, 0, len(segments))
	for _, seg := range segments {
		v := strings.TrimSpace(seg)
		if v == "" {
			return QuerySpec{}, werrors.NewParse(raw, "empty variant")
		}
		variants = append(variants, v)
	}

	return QuerySpec{
		Variants: variants,
		MinPrice: minPrice,
		MaxPrice: maxPrice,
	}, nil
}

// ParseTerms parses a sequence of tokens, failing on the first bad one
func ParseTerms(raws []string) ([]QuerySpec, error) {
	specs := make([]QuerySpec, 0, len(raws))
	for _, raw := range raws {
		spec, err := ParseTerm(raw)
		if err != nil {
			return nil, err
		}
		specs = append(specs, spec)
	}
	return specs, nil
}

func parsePriceBounds(raw, priceStr string) (*float64, *float64, error) {
	if lowStr, highStr, ok := strings.Cut(priceStr, "-"); ok {
		lowStr = strings.TrimSpace(lowStr)
		highStr = strings.TrimSpace(highStr)
		if lowStr == "" || highStr == "" {
			return nil, nil, werrors.NewParse(raw, "invalid price range '"+priceStr+"'")
		}

		low, err := parsePriceNumber(lowStr)
		if err != nil {
			return nil, nil, werrors.NewParse(raw, "invalid price range '"+priceStr+"'")
		}
		high, err := parsePriceNumber(highStr)
		if err != nil {
			return nil, nil, werrors.NewParse(raw, "invalid price range '"+priceStr+"'")
		}
		if high < low {
			return nil, nil, werrors.NewParse(raw, "invalid price range '"+priceStr+"': max < min")
		}
		return &low, &high, nil
	}

	low, err := parsePriceNumber(priceStr)
	if err != nil {
		return nil, nil, werrors.NewParse(raw, "invalid price '"+priceStr+"'")
	}
	return &low, nil, nil
}

func parsePriceNumber(s string) (float64, error) {
	val, err := strconv.ParseFloat(strings.Replace(s, ",", ".", 1), 64)
	if err != nil {
		return 0, err
	}
	if val < 0 {
		return 0, werrors.NewParse(s, "price must not be negative")
	}
	return val, nil
}
