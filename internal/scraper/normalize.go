package scraper

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	priceStripRe   = regexp.MustCompile(`[^0-9.]`)
	authorPrefixRe = regexp.MustCompile(`(?i)^by\s+`)
)

// ExternalID derives the natural key from a product URL: the last path
// segment with any query string or fragment stripped. An empty derivation
// falls back to the supplied token generator so ingestion always has a dedup
// key; the fallback is not stable across scrapes, but it only fires for URLs
// that carry no usable segment at all.
func ExternalID(rawURL string, fallback func() string) string {
	trimmed := rawURL
	if i := strings.IndexAny(trimmed, "?#"); i >= 0 {
		trimmed = trimmed[:i]
	}
	seg := trimmed[strings.LastIndex(trimmed, "/")+1:]
	if seg == "" {
		return fallback()
	}
	return seg
}

// ParsePrice extracts a non-negative decimal from raw price text. Every
// character that is not a digit or a decimal point is stripped before
// parsing; empty or unparsable text yields 0.
func ParsePrice(raw string) float64 {
	cleaned := priceStripRe.ReplaceAllString(raw, "")
	v, err := strconv.ParseFloat(cleaned, 64)
	if err != nil || v < 0 {
		return 0
	}
	return v
}

// CleanAuthor strips a case-insensitive leading "by " prefix from author text.
func CleanAuthor(raw string) string {
	return authorPrefixRe.ReplaceAllString(strings.TrimSpace(raw), "")
}
