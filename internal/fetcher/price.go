package fetcher

import (
	"regexp"
	"strconv"
	"strings"
)

// German-format amount: optional thousands dots, optional decimal comma
var priceValueRegex = regexp.MustCompile(`(\d{1,3}(?:\.\d{3})+|\d+)(?:,(\d{1,2}))?`)

// ParsePriceText extracts a numeric price from a listing's price text.
// Returns nil for give-away and swap offers and for anything that does
// not contain a number; an unknown price never excludes a listing.
func ParsePriceText(text string) *float64 {
	text = strings.TrimSpace(strings.ReplaceAll(text, " ", " "))
	if text == "" {
		return nil
	}

	lower := strings.ToLower(text)
	if strings.Contains(lower, "zu verschenken") || strings.Contains(lower, "tausch") {
		return nil
	}

	m := priceValueRegex.FindStringSubmatch(text)
	if m == nil {
		return nil
	}

	whole := strings.ReplaceAll(m[1], ".", "")
	if m[2] != "" {
		whole += "." + m[2]
	}

	val, err := strconv.ParseFloat(whole, 64)
	if err != nil {
		return nil
	}
	return &val
}
