package scraper

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/shelfscout/shelfscout/internal/metrics"
)

// Scraper is the top-level harvest entry point. Each Scrape call opens its
// own page source through the factory and guarantees teardown on every exit
// path; a leaked browser session is the dominant resource-exhaustion risk.
type Scraper struct {
	open      SourceFactory
	extractor *Extractor
	walker    *Walker
	logger    *zap.Logger
}

// New builds a Scraper.
func New(open SourceFactory, extractor *Extractor, walker *Walker, logger *zap.Logger) *Scraper {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scraper{
		open:      open,
		extractor: extractor,
		walker:    walker,
		logger:    logger,
	}
}

// Scrape classifies rawURL and runs the matching traversal, returning the
// aggregated items in discovery order. A single-product extraction failure is
// absorbed: the call logs a warning and returns an empty sequence. A listing
// walk never fails. The one hard error is a page source that cannot be
// launched, reported as ErrSessionLaunch.
func (s *Scraper) Scrape(ctx context.Context, rawURL string) ([]ScrapedItem, error) {
	src, err := s.open(ctx)
	if err != nil {
		metrics.ObservePage(rawURL, "launch_failed")
		return nil, fmt.Errorf("%w: %v", ErrSessionLaunch, err)
	}
	defer func() {
		if cerr := src.Close(ctx); cerr != nil {
			s.logger.Warn("page source close failed", zap.Error(cerr))
		}
	}()

	switch Classify(rawURL) {
	case PageKindProduct:
		s.logger.Info("scraping single product", zap.String("url", rawURL))
		item, err := s.extractor.Extract(ctx, src, rawURL)
		if err != nil {
			s.logger.Warn("single product scrape failed",
				zap.String("url", rawURL), zap.Error(err))
			metrics.ObservePage(rawURL, "failed")
			return []ScrapedItem{}, nil
		}
		metrics.ObservePage(rawURL, "ok")
		return []ScrapedItem{item}, nil
	default:
		s.logger.Info("scraping category listing", zap.String("url", rawURL))
		items := s.walker.Walk(ctx, src, rawURL)
		metrics.ObservePage(rawURL, "ok")
		metrics.ObserveItems(len(items))
		return items, nil
	}
}
