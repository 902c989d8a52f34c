package scraper

import (
	"context"
	"fmt"
	"time"

	"github.com/gocolly/colly/v2"
	"go.uber.org/zap"
)

// StaticSource fetches pages over plain HTTP without executing JavaScript.
// It serves sites whose product markup is present in the initial response,
// and it is the fallback when no Chrome binary is available.
type StaticSource struct {
	base   *colly.Collector
	cfg    Config
	logger *zap.Logger
}

// NewStaticSource builds a StaticSource.
func NewStaticSource(cfg Config, logger *zap.Logger) *StaticSource {
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg = cfg.withDefaults()

	base := colly.NewCollector(
		colly.UserAgent(cfg.UserAgent),
		colly.AllowURLRevisit(),
	)
	base.SetRequestTimeout(cfg.NavigationTimeout)

	return &StaticSource{base: base, cfg: cfg, logger: logger}
}

// Render fetches rawURL with a collector cloned from the base so hooks from
// concurrent renders never interleave.
func (s *StaticSource) Render(ctx context.Context, rawURL string) (Page, error) {
	c := s.base.Clone()

	var page Page
	var fetchErr error
	c.OnResponse(func(resp *colly.Response) {
		page = Page{
			URL:       rawURL,
			FinalURL:  resp.Request.URL.String(),
			HTML:      string(resp.Body),
			FetchedAt: time.Now().UTC(),
		}
	})
	c.OnError(func(resp *colly.Response, err error) {
		fetchErr = err
	})

	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := c.Visit(rawURL); err != nil && fetchErr == nil {
			fetchErr = err
		}
		c.Wait()
	}()

	select {
	case <-ctx.Done():
		return Page{}, fmt.Errorf("fetch %s: %w", rawURL, ctx.Err())
	case <-done:
	}
	if fetchErr != nil {
		return Page{}, fmt.Errorf("fetch %s: %w", rawURL, fetchErr)
	}
	return page, nil
}

// Close is a no-op; colly collectors hold no long-lived resources.
func (s *StaticSource) Close(_ context.Context) error {
	return nil
}
