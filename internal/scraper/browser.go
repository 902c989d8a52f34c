package scraper

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
)

// BrowserSource renders pages in a headless Chrome session. One source owns
// one browser; each Render runs in a fresh tab so a wedged page cannot poison
// the next one.
type BrowserSource struct {
	cfg         Config
	logger      *zap.Logger
	allocCancel context.CancelFunc
	browserCtx  context.Context
	browserStop context.CancelFunc
}

// NewBrowserSource launches a headless Chrome and verifies it responds before
// returning. Launch failures surface to the caller; the scraper wraps them in
// ErrSessionLaunch.
func NewBrowserSource(ctx context.Context, cfg Config, logger *zap.Logger) (*BrowserSource, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg = cfg.withDefaults()

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", "new"),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
	)
	if cfg.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(cfg.UserAgent))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, opts...)
	browserCtx, browserStop := chromedp.NewContext(allocCtx)

	// Warm up the browser so a missing or broken Chrome binary fails here
	// rather than on the first Render.
	if err := chromedp.Run(browserCtx); err != nil {
		browserStop()
		allocCancel()
		return nil, fmt.Errorf("launch headless browser: %w", err)
	}

	logger.Info("headless browser ready")
	return &BrowserSource{
		cfg:         cfg,
		logger:      logger,
		allocCancel: allocCancel,
		browserCtx:  browserCtx,
		browserStop: browserStop,
	}, nil
}

// Render navigates a fresh tab to rawURL, waits for the body, and captures
// the post-JavaScript DOM. The navigation timeout bounds the whole render.
func (b *BrowserSource) Render(ctx context.Context, rawURL string) (Page, error) {
	tabCtx, tabCancel := chromedp.NewContext(b.browserCtx)
	defer tabCancel()
	tabCtx, timeoutCancel := context.WithTimeout(tabCtx, b.cfg.NavigationTimeout)
	defer timeoutCancel()
	stop := forwardCancel(ctx, tabCancel)
	defer stop()

	tasks := chromedp.Tasks{network.Enable()}
	if b.cfg.UserAgent != "" {
		tasks = append(tasks, emulation.SetUserAgentOverride(b.cfg.UserAgent))
	}

	var html, finalURL string
	tasks = append(tasks,
		chromedp.Navigate(rawURL),
		chromedp.WaitReady("body"),
		chromedp.Location(&finalURL),
		chromedp.OuterHTML("html", &html),
	)

	start := time.Now()
	if err := chromedp.Run(tabCtx, tasks); err != nil {
		return Page{}, fmt.Errorf("render %s: %w", rawURL, err)
	}
	b.logger.Debug("page rendered",
		zap.String("url", rawURL),
		zap.Duration("took", time.Since(start)))

	return Page{
		URL:       rawURL,
		FinalURL:  finalURL,
		HTML:      html,
		FetchedAt: time.Now().UTC(),
	}, nil
}

// Close tears down the browser and its allocator.
func (b *BrowserSource) Close(_ context.Context) error {
	b.browserStop()
	b.allocCancel()
	return nil
}

// forwardCancel propagates cancellation of the caller's context into a
// chromedp tab context, which otherwise only honors its own chain. The
// returned stop func releases the watcher goroutine.
func forwardCancel(ctx context.Context, cancel context.CancelFunc) func() {
	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			cancel()
		case <-done:
		}
	}()
	return func() { close(done) }
}
