package search

import "strings"

// defaultTitleBlacklist holds phrases that usually indicate a whole
// prebuilt PC, setup or bundle rather than a single item.
var defaultTitleBlacklist = []string{
	"gaming pc",
	"pc ",
	" setup",
	"bundle",
	"komplett",
	"rechner",
	"fertig",
	"wasserkühlung",
	"wasserkuehlung",
}

// IsBlacklistedTitle reports whether a listing title should be excluded
// for the given search term. Matching is case-insensitive substring
// matching over the built-in blacklist unioned with extra phrases.
//
// A phrase that appears in the search term itself is not applied to that
// term's listings: someone explicitly searching for "gaming pc" still
// sees results titled "gaming pc".
func IsBlacklistedTitle(title, searchTerm string, extra []string) bool {
	t := strings.ToLower(title)
	term := strings.ToLower(searchTerm)

	// Gaming rig heuristic: "gaming" together with "pc" or "setup" almost
	// always means a full machine.
	if strings.Contains(t, "gaming") && (strings.Contains(t, "pc") || strings.Contains(t, "setup")) {
		if !strings.Contains(term, "gaming") && !strings.Contains(term, "pc") && !strings.Contains(term, "setup") {
			return true
		}
	}

	for _, bad := range defaultTitleBlacklist {
		// Padded phrases like " setup" anchor the title match at a word
		// boundary, but the search term may start with the bare word.
		if strings.Contains(term, strings.TrimSpace(bad)) {
			continue
		}
		if strings.Contains(t, bad) {
			return true
		}
	}

	for _, bad := range extra {
		badLower := strings.ToLower(bad)
		if badLower == "" || strings.Contains(term, strings.TrimSpace(badLower)) {
			continue
		}
		if strings.Contains(t, badLower) {
			return true
		}
	}

	return false
}
