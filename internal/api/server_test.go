package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/shelfscout/shelfscout/internal/catalog"
	catmem "github.com/shelfscout/shelfscout/internal/catalog/memory"
	"github.com/shelfscout/shelfscout/internal/config"
	idgen "github.com/shelfscout/shelfscout/internal/id/uuid"
	"github.com/shelfscout/shelfscout/internal/ingest"
	"github.com/shelfscout/shelfscout/internal/metrics"
	"github.com/shelfscout/shelfscout/internal/scraper"
)

type fixedClock struct{}

func (fixedClock) Now() time.Time { return time.Unix(1700000000, 0).UTC() }

// fakeScraper returns canned items, optionally blocking until released.
type fakeScraper struct {
	items   []scraper.ScrapedItem
	err     error
	started chan struct{}
	release chan struct{}
}

func (f *fakeScraper) Scrape(ctx context.Context, _ string) ([]scraper.ScrapedItem, error) {
	if f.started != nil {
		close(f.started)
	}
	if f.release != nil {
		select {
		case <-f.release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return f.items, f.err
}

// fakeIngestor reports every item persisted.
type fakeIngestor struct{}

func (fakeIngestor) IngestAll(_ context.Context, sourceURL string, items []scraper.ScrapedItem) (ingest.Report, error) {
	titles := make([]string, 0, len(items))
	for _, it := range items {
		titles = append(titles, it.Title)
	}
	return ingest.Report{
		SourceURL:  sourceURL,
		Discovered: len(items),
		Persisted:  len(items),
		Titles:     titles,
	}, nil
}

func testConfig() config.Config {
	return config.Config{
		Server: config.ServerConfig{
			Port:                  8080,
			RequestTimeoutSeconds: 10,
			ScrapeTimeoutSeconds:  10,
		},
		Scraper: config.ScraperConfig{
			DefaultURL:        "https://books.example.com/catalog",
			NavTimeoutSeconds: 45,
			LinkCap:           5,
		},
	}
}

func newTestServer(t *testing.T, sc Scraper, store catalog.Store, cfg config.Config) *httptest.Server {
	t.Helper()
	metrics.Init()
	srv := NewServer(sc, fakeIngestor{}, store, cfg, zap.NewNop())
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func newStore() catalog.Store {
	return catmem.New(idgen.New(), fixedClock{})
}

func postScrape(t *testing.T, ts *httptest.Server, body string) (*http.Response, scrapeEnvelope) {
	t.Helper()
	var reader *bytes.Reader
	if body == "" {
		reader = bytes.NewReader(nil)
	} else {
		reader = bytes.NewReader([]byte(body))
	}
	resp, err := http.Post(ts.URL+"/v1/scrape", "application/json", reader)
	require.NoError(t, err)
	var env scrapeEnvelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	require.NoError(t, resp.Body.Close())
	return resp, env
}

func TestHealthEndpoints(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t, &fakeScraper{}, newStore(), testConfig())

	for _, path := range []string{"/healthz", "/readyz"} {
		resp, err := http.Get(ts.URL + path)
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		require.NoError(t, resp.Body.Close())
	}
}

func TestScrapeSuccess(t *testing.T) {
	t.Parallel()

	sc := &fakeScraper{items: []scraper.ScrapedItem{
		{ExternalID: "clean-code", Title: "Clean Code"},
		{ExternalID: "dune", Title: "Dune"},
	}}
	ts := newTestServer(t, sc, newStore(), testConfig())

	resp, env := postScrape(t, ts, `{"url":"https://books.example.com/catalog"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.True(t, env.OK)
	require.Equal(t, 2, env.Count)
	require.Equal(t, []string{"Clean Code", "Dune"}, env.Items)
	require.Empty(t, env.Error)
}

func TestScrapeUsesDefaultURL(t *testing.T) {
	t.Parallel()

	sc := &fakeScraper{items: nil}
	ts := newTestServer(t, sc, newStore(), testConfig())

	resp, env := postScrape(t, ts, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.True(t, env.OK)
	require.Zero(t, env.Count)
	require.NotNil(t, env.Items)
}

func TestScrapeRequiresURLWhenNoDefault(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.Scraper.DefaultURL = ""
	ts := newTestServer(t, &fakeScraper{}, newStore(), cfg)

	resp, env := postScrape(t, ts, "")
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.False(t, env.OK)
	require.Contains(t, env.Error, "url is required")
}

func TestScrapeRejectsInvalidJSON(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t, &fakeScraper{}, newStore(), testConfig())

	resp, env := postScrape(t, ts, `{not json`)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.False(t, env.OK)
}

func TestScrapeLaunchFailureMapsToBadGateway(t *testing.T) {
	t.Parallel()

	sc := &fakeScraper{err: scraper.ErrSessionLaunch}
	ts := newTestServer(t, sc, newStore(), testConfig())

	resp, env := postScrape(t, ts, `{"url":"https://books.example.com/catalog"}`)
	require.Equal(t, http.StatusBadGateway, resp.StatusCode)
	require.False(t, env.OK)
	require.NotEmpty(t, env.Error)
}

func TestScrapeSingleFlight(t *testing.T) {
	t.Parallel()

	sc := &fakeScraper{
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
	ts := newTestServer(t, sc, newStore(), testConfig())

	done := make(chan struct{})
	go func() {
		defer close(done)
		resp, env := postScrape(t, ts, `{"url":"https://books.example.com/catalog"}`)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		require.True(t, env.OK)
	}()

	<-sc.started
	resp, env := postScrape(t, ts, `{"url":"https://books.example.com/catalog"}`)
	require.Equal(t, http.StatusConflict, resp.StatusCode)
	require.False(t, env.OK)
	require.Contains(t, env.Error, "already in progress")

	close(sc.release)
	<-done
}

func TestListProducts(t *testing.T) {
	t.Parallel()

	store := newStore()
	_, err := store.UpsertProduct(context.Background(), catalog.ProductFields{
		ExternalID: "clean-code", Title: "Clean Code", Author: "Robert C. Martin",
		Price: 32.99, CategoryLabel: "Book",
	})
	require.NoError(t, err)

	ts := newTestServer(t, &fakeScraper{}, store, testConfig())

	resp, err := http.Get(ts.URL + "/v1/products")
	require.NoError(t, err)
	defer func() { require.NoError(t, resp.Body.Close()) }()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Count    int               `json:"count"`
		Products []catalog.Product `json:"products"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Equal(t, 1, body.Count)
	require.Equal(t, "Clean Code", body.Products[0].Title)
}

func TestGetProduct(t *testing.T) {
	t.Parallel()

	store := newStore()
	created, err := store.UpsertProduct(context.Background(), catalog.ProductFields{
		ExternalID: "dune", Title: "Dune", Author: "Frank Herbert",
		Price: 9.99, CategoryLabel: "Book",
	})
	require.NoError(t, err)

	ts := newTestServer(t, &fakeScraper{}, store, testConfig())

	resp, err := http.Get(ts.URL + "/v1/products/dune")
	require.NoError(t, err)
	defer func() { require.NoError(t, resp.Body.Close()) }()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var got catalog.Product
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	require.Equal(t, created.ID, got.ID)

	missing, err := http.Get(ts.URL + "/v1/products/no-such-book")
	require.NoError(t, err)
	require.NoError(t, missing.Body.Close())
	require.Equal(t, http.StatusNotFound, missing.StatusCode)
}

func TestAPIKeyMiddleware(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.Auth.Enabled = true
	cfg.Auth.APIKey = "secret"
	ts := newTestServer(t, &fakeScraper{}, newStore(), cfg)

	resp, err := http.Get(ts.URL + "/v1/products")
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
	require.Equal(t, http.StatusForbidden, resp.StatusCode)

	req, err := http.NewRequest(http.MethodGet, ts.URL+"/v1/products", nil)
	require.NoError(t, err)
	req.Header.Set("X-API-Key", "secret")
	authed, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	require.NoError(t, authed.Body.Close())
	require.Equal(t, http.StatusOK, authed.StatusCode)
}

func TestRequestIDHeader(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t, &fakeScraper{}, newStore(), testConfig())

	resp, err := http.Get(ts.URL + "/healthz")
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
	require.NotEmpty(t, resp.Header.Get("X-Request-ID"))
}
