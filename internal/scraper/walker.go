package scraper

import (
	"context"
	"math/rand"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
)

// pauseFunc sleeps for the given duration unless the context finishes first.
// Injectable so walker tests run without real delays.
type pauseFunc func(ctx context.Context, d time.Duration)

func timerPause(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}

// Walker discovers product links on a listing page and extracts each one
// sequentially with a randomized politeness delay between requests.
type Walker struct {
	extractor *Extractor
	cfg       Config
	pause     pauseFunc
	logger    *zap.Logger
}

// NewWalker builds a Walker around the shared extractor.
func NewWalker(extractor *Extractor, cfg Config, logger *zap.Logger) *Walker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Walker{
		extractor: extractor,
		cfg:       cfg.withDefaults(),
		pause:     timerPause,
		logger:    logger,
	}
}

// Walk renders listingURL, discovers up to LinkCap product links, and
// extracts each in document order. A listing that fails to render counts as
// having zero discoverable links. Per-link extraction failures are logged and
// skipped; one bad page never drops the rest of the batch. Walk never returns
// an error.
func (w *Walker) Walk(ctx context.Context, src PageSource, listingURL string) []ScrapedItem {
	page, err := src.Render(ctx, listingURL)
	if err != nil {
		w.logger.Warn("listing render failed, treating as empty",
			zap.String("url", listingURL), zap.Error(err))
		return nil
	}

	links := w.discoverLinks(page)
	w.logger.Info("discovered product links",
		zap.String("listing", listingURL), zap.Int("count", len(links)))

	items := make([]ScrapedItem, 0, len(links))
	for _, link := range links {
		w.pause(ctx, w.politenessDelay())
		if ctx.Err() != nil {
			return items
		}
		item, err := w.extractor.Extract(ctx, src, link)
		if err != nil {
			w.logger.Warn("product extraction failed, skipping",
				zap.String("url", link), zap.Error(err))
			continue
		}
		items = append(items, item)
	}
	return items
}

// discoverLinks collects anchors targeting product pages, resolved against
// the listing URL, deduplicated in document order, filtered by minimum
// length, and capped at LinkCap.
func (w *Walker) discoverLinks(page Page) []string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page.HTML))
	if err != nil {
		w.logger.Warn("listing parse failed", zap.String("url", page.URL), zap.Error(err))
		return nil
	}

	base, err := url.Parse(page.URL)
	if err != nil {
		base = nil
	}

	seen := make(map[string]struct{})
	var links []string
	doc.Find(`a[href*="` + ProductPathMarker + `"]`).EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		href, ok := sel.Attr("href")
		if !ok {
			return true
		}
		resolved := resolveHref(base, href)
		if len(resolved) <= w.cfg.MinLinkLength {
			return true
		}
		if _, dup := seen[resolved]; dup {
			return true
		}
		seen[resolved] = struct{}{}
		links = append(links, resolved)
		return len(links) < w.cfg.LinkCap
	})
	return links
}

func (w *Walker) politenessDelay() time.Duration {
	delay := w.cfg.DelayMin
	if w.cfg.DelayJitter > 0 {
		delay += time.Duration(rand.Int63n(int64(w.cfg.DelayJitter))) //nolint:gosec // pacing jitter, not crypto
	}
	return delay
}

func resolveHref(base *url.URL, href string) string {
	ref, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return ""
	}
	if base == nil {
		return ref.String()
	}
	return base.ResolveReference(ref).String()
}
