package scraper

import "context"

// PageSource renders one URL at a time. An implementation owns a single
// underlying session (a browser, an HTTP client) and must not be shared by
// two in-flight scrape calls.
type PageSource interface {
	Render(ctx context.Context, url string) (Page, error)
	Close(ctx context.Context) error
}

// SourceFactory opens a fresh PageSource for one scrape call. The Scraper
// closes the source on every exit path.
type SourceFactory func(ctx context.Context) (PageSource, error)
