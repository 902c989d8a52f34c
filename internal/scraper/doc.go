// Package scraper implements the harvest pipeline: classify the target URL,
// render pages through a scoped page source, extract normalized items, and
// walk category listings with inter-request pacing.
//
// The pipeline is deliberately sequential. One Scrape call owns exactly one
// page source; the category walker visits product links one at a time with a
// randomized politeness delay so the source site never sees bursts. Per-page
// failures are isolated: a bad product page is logged and skipped, never
// aborting the rest of the batch. The only hard failure is a page source that
// cannot be opened at all.
package scraper
