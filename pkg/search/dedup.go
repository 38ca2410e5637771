package search

import (
	"net/url"
	"strings"
	"unicode/utf8"
)

// minTitleLen guards title-based dedup against short, generic titles like
// "Home" or "News" collapsing unrelated results. Counted in runes, matching
// how plan titles are measured.
const minTitleLen = 10

// Dedupe removes results that share an exact URL, or an exact title longer
// than minTitleLen characters. Order-preserving, first occurrence wins, and
// idempotent. Applied once over the full accumulator before synthesis.
func Dedupe(results []Result) []Result {
	seenURL := make(map[string]bool, len(results))
	seenTitle := make(map[string]bool, len(results))

	deduped := make([]Result, 0, len(results))
	for _, r := range results {
		if r.URL != "" && seenURL[r.URL] {
			continue
		}
		longTitle := utf8.RuneCountInString(r.Title) > minTitleLen
		if longTitle && seenTitle[r.Title] {
			continue
		}
		if r.URL != "" {
			seenURL[r.URL] = true
		}
		if longTitle {
			seenTitle[r.Title] = true
		}
		deduped = append(deduped, r)
	}
	return deduped
}

// DedupeByDomain removes results that share an exact URL or a normalized
// hostname. Applied to raw provider batches before enrichment: two pages on
// the same domain are redundant breadth at that point, even when they are
// distinct documents. This is intentionally a different policy than Dedupe.
func DedupeByDomain(results []Result) []Result {
	seenURL := make(map[string]bool, len(results))
	seenDomain := make(map[string]bool, len(results))

	deduped := make([]Result, 0, len(results))
	for _, r := range results {
		if r.URL == "" || seenURL[r.URL] {
			continue
		}
		domain := NormalizeDomain(r.URL)
		if domain != "" && seenDomain[domain] {
			continue
		}
		seenURL[r.URL] = true
		if domain != "" {
			seenDomain[domain] = true
		}
		deduped = append(deduped, r)
	}
	return deduped
}

// NormalizeDomain returns the lowercased hostname without a leading "www.",
// or "" when the URL does not parse.
func NormalizeDomain(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Hostname() == "" {
		return ""
	}
	return strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
}
