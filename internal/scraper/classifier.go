package scraper

import (
	"net/url"
	"strings"
)

// PageKind is the traversal mode chosen for a target URL.
type PageKind int

const (
	// PageKindListing walks a category page and extracts each discovered
	// product link.
	PageKindListing PageKind = iota
	// PageKindProduct extracts a single product page.
	PageKindProduct
)

// ProductPathMarker is the path fragment that identifies product detail pages
// on the source site.
const ProductPathMarker = "/products/"

// Classify inspects a URL string and picks the traversal mode. Any URL whose
// path lacks the product marker is treated as a listing; that is the safe
// default, since a listing walk of a non-listing page simply discovers zero
// links. There is no error path.
func Classify(rawURL string) PageKind {
	path := rawURL
	if u, err := url.Parse(rawURL); err == nil && u.Path != "" {
		path = u.Path
	}
	if strings.Contains(path, ProductPathMarker) {
		return PageKindProduct
	}
	return PageKindListing
}
