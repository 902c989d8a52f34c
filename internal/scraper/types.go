package scraper

import "time"

// ScrapedItem is the normalized output of one extracted product page. It is
// transient: ingestion turns it into catalog rows keyed by ExternalID.
type ScrapedItem struct {
	// ExternalID is the stable natural key derived from the source URL. It
	// must be identical across repeated scrapes of the same page.
	ExternalID    string
	Title         string
	Author        string
	Price         float64
	ImageURL      string
	CategoryLabel string
	SourceURL     string
	Detail        *ItemDetail
}

// ItemDetail carries the free-form description and open spec map scraped from
// a product page.
type ItemDetail struct {
	Description string
	Specs       map[string]any
}

// Page is a rendered snapshot of a single URL.
type Page struct {
	URL       string
	FinalURL  string
	HTML      string
	FetchedAt time.Time
}
