package scraper

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/shelfscout/shelfscout/internal/metrics"
)

func newTestScraper(src *fakeSource) *Scraper {
	metrics.Init()
	extractor := NewExtractor(staticFallback)
	walker := newTestWalker(Config{})
	open := func(context.Context) (PageSource, error) { return src, nil }
	return New(open, extractor, walker, zap.NewNop())
}

func TestScrapeSingleProduct(t *testing.T) {
	t.Parallel()

	src := &fakeSource{pages: map[string]string{
		productA: productHTML("Clean Code"),
	}}
	s := newTestScraper(src)

	items, err := s.Scrape(context.Background(), productA)
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.Equal(t, "Clean Code", items[0].Title)
	require.Equal(t, 1, src.closed)
}

func TestScrapeSingleProductFailureAbsorbed(t *testing.T) {
	t.Parallel()

	src := &fakeSource{errs: map[string]error{
		productA: errors.New("navigation timeout"),
	}}
	s := newTestScraper(src)

	items, err := s.Scrape(context.Background(), productA)
	require.NoError(t, err)
	require.NotNil(t, items)
	require.Empty(t, items)
	require.Equal(t, 1, src.closed)
}

func TestScrapeListing(t *testing.T) {
	t.Parallel()

	src := &fakeSource{pages: map[string]string{
		listingURL: listingHTML(productA, productB),
		productA:   productHTML("Clean Code"),
		productB:   productHTML("The Pragmatic Programmer"),
	}}
	s := newTestScraper(src)

	items, err := s.Scrape(context.Background(), listingURL)
	require.NoError(t, err)
	require.Len(t, items, 2)
	require.Equal(t, 1, src.closed)
}

func TestScrapeLaunchFailure(t *testing.T) {
	t.Parallel()

	metrics.Init()
	open := func(context.Context) (PageSource, error) {
		return nil, errors.New("chrome binary not found")
	}
	s := New(open, NewExtractor(staticFallback), newTestWalker(Config{}), zap.NewNop())

	_, err := s.Scrape(context.Background(), listingURL)
	require.ErrorIs(t, err, ErrSessionLaunch)
}
