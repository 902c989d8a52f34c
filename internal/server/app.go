// Package server assembles the application from configuration and runs it.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"cloud.google.com/go/pubsub"
	"cloud.google.com/go/storage"
	"go.uber.org/zap"

	"github.com/shelfscout/shelfscout/internal/api"
	"github.com/shelfscout/shelfscout/internal/catalog"
	catmem "github.com/shelfscout/shelfscout/internal/catalog/memory"
	catpg "github.com/shelfscout/shelfscout/internal/catalog/postgres"
	"github.com/shelfscout/shelfscout/internal/clock/system"
	"github.com/shelfscout/shelfscout/internal/config"
	"github.com/shelfscout/shelfscout/internal/hash/sha256"
	idgen "github.com/shelfscout/shelfscout/internal/id/uuid"
	"github.com/shelfscout/shelfscout/internal/ingest"
	"github.com/shelfscout/shelfscout/internal/logging"
	"github.com/shelfscout/shelfscout/internal/metrics"
	"github.com/shelfscout/shelfscout/internal/publish"
	pubmem "github.com/shelfscout/shelfscout/internal/publish/memory"
	pubgcp "github.com/shelfscout/shelfscout/internal/publish/pubsub"
	"github.com/shelfscout/shelfscout/internal/scraper"
	"github.com/shelfscout/shelfscout/internal/snapshot"
	snapgcs "github.com/shelfscout/shelfscout/internal/snapshot/gcs"
	snaplocal "github.com/shelfscout/shelfscout/internal/snapshot/local"
	snapmem "github.com/shelfscout/shelfscout/internal/snapshot/memory"
)

// App contains the application's dependencies.
type App struct {
	cfg          config.Config
	logger       *zap.Logger
	apiServer    *api.Server
	store        catalog.Store
	scraper      *scraper.Scraper
	ingestor     *ingest.Ingestor
	pubsubClient *pubsub.Client
	gcsClient    *storage.Client
}

// Build creates the application's dependencies from cfg.
func Build(ctx context.Context, cfg config.Config) (*App, error) {
	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		return nil, fmt.Errorf("logger init failed: %w", err)
	}
	zap.ReplaceGlobals(logger)
	metrics.Init()

	app := &App{cfg: cfg, logger: logger}
	logger.Info("building application dependencies",
		zap.Int("port", cfg.Server.Port),
		zap.Bool("headless", cfg.Scraper.Headless))

	if err := app.setupStore(ctx); err != nil {
		return nil, err
	}
	snapStore, err := app.setupSnapshots(ctx)
	if err != nil {
		return nil, err
	}
	publisher, err := app.setupPublisher(ctx)
	if err != nil {
		return nil, err
	}

	app.setupScraper(snapStore)
	app.ingestor = ingest.New(app.store, publisher, cfg.Publish.Topic, logger.Named("ingest"))
	app.apiServer = api.NewServer(app.scraper, app.ingestor, app.store, cfg, logger.Named("api"))

	return app, nil
}

// Run starts the HTTP server and blocks until the context is canceled or a
// termination signal arrives.
func (a *App) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", a.cfg.Server.Port),
		Handler:           a.apiServer.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		a.logger.Info("http server started", zap.Int("port", a.cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("http server error", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	a.logger.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("server shutdown error", zap.Error(err))
	}

	return a.Close()
}

// ScrapeOnce runs a single scrape-and-ingest batch outside the HTTP server,
// for CLI use.
func (a *App) ScrapeOnce(ctx context.Context, rawURL string) (ingest.Report, error) {
	if rawURL == "" {
		rawURL = a.cfg.Scraper.DefaultURL
	}
	ctx, cancel := context.WithTimeout(ctx, a.cfg.ScrapeTimeout())
	defer cancel()

	items, err := a.scraper.Scrape(ctx, rawURL)
	if err != nil {
		return ingest.Report{}, err
	}
	return a.ingestor.IngestAll(ctx, rawURL, items)
}

// Store exposes the catalog store for maintenance commands.
func (a *App) Store() catalog.Store {
	return a.store
}

// Close releases the application's resources.
func (a *App) Close() error {
	if a.store != nil {
		a.store.Close()
	}
	if a.pubsubClient != nil {
		if err := a.pubsubClient.Close(); err != nil {
			a.logger.Warn("pubsub client close failed", zap.Error(err))
		}
	}
	if a.gcsClient != nil {
		if err := a.gcsClient.Close(); err != nil {
			a.logger.Warn("gcs client close failed", zap.Error(err))
		}
	}
	if err := a.logger.Sync(); err != nil {
		a.logger.Warn("logger sync failed", zap.Error(err))
	}
	a.logger.Info("shutdown complete")
	return nil
}

func (a *App) setupStore(ctx context.Context) error {
	ids := idgen.New()
	clock := system.New()
	if a.cfg.DB.DSN == "" {
		a.logger.Info("using in-memory catalog store")
		a.store = catmem.New(ids, clock)
		return nil
	}
	a.logger.Info("using postgres catalog store")
	store, err := catpg.New(ctx, catpg.Config{
		DSN:      a.cfg.DB.DSN,
		MaxConns: a.cfg.DB.MaxConns,
		MinConns: a.cfg.DB.MinConns,
	}, ids, clock)
	if err != nil {
		return fmt.Errorf("postgres store init failed: %w", err)
	}
	a.store = store
	return nil
}

func (a *App) setupSnapshots(ctx context.Context) (snapshot.Store, error) {
	switch a.cfg.Snapshot.Provider {
	case "", "none":
		return nil, nil
	case "memory":
		a.logger.Info("using in-memory snapshot store")
		return snapmem.New(), nil
	case "local":
		a.logger.Info("using local snapshot store", zap.String("base_dir", a.cfg.Snapshot.BaseDir))
		return snaplocal.New(snaplocal.Config{BaseDir: a.cfg.Snapshot.BaseDir})
	case "gcs":
		a.logger.Info("using GCS snapshot store", zap.String("bucket", a.cfg.Snapshot.Bucket))
		client, err := storage.NewClient(ctx)
		if err != nil {
			return nil, fmt.Errorf("gcs client init failed: %w", err)
		}
		a.gcsClient = client
		return snapgcs.New(client, snapgcs.Config{Bucket: a.cfg.Snapshot.Bucket})
	default:
		return nil, fmt.Errorf("unknown snapshot provider %q", a.cfg.Snapshot.Provider)
	}
}

func (a *App) setupPublisher(ctx context.Context) (publish.Publisher, error) {
	switch a.cfg.Publish.Provider {
	case "", "none":
		return nil, nil
	case "memory":
		a.logger.Info("using in-memory publisher")
		return pubmem.New(), nil
	case "pubsub":
		a.logger.Info("using pubsub publisher",
			zap.String("project", a.cfg.Publish.ProjectID),
			zap.String("topic", a.cfg.Publish.Topic))
		client, err := pubsub.NewClient(ctx, a.cfg.Publish.ProjectID)
		if err != nil {
			return nil, fmt.Errorf("pubsub client init failed: %w", err)
		}
		a.pubsubClient = client
		return pubgcp.New(client), nil
	default:
		return nil, fmt.Errorf("unknown publish provider %q", a.cfg.Publish.Provider)
	}
}

func (a *App) setupScraper(snapStore snapshot.Store) {
	ua, nav, delayMin, delayJitter := a.cfg.ScraperSettings()
	scrapeCfg := scraper.Config{
		UserAgent:         ua,
		NavigationTimeout: nav,
		LinkCap:           a.cfg.Scraper.LinkCap,
		MinLinkLength:     a.cfg.Scraper.MinLinkLength,
		DelayMin:          delayMin,
		DelayJitter:       delayJitter,
	}

	ids := idgen.New()
	idFallback := func() string {
		id, err := ids.NewID()
		if err != nil {
			return "item"
		}
		return id
	}

	logger := a.logger.Named("scraper")
	factory := func(ctx context.Context) (scraper.PageSource, error) {
		var src scraper.PageSource
		if a.cfg.Scraper.Headless {
			browser, err := scraper.NewBrowserSource(ctx, scrapeCfg, logger)
			if err != nil {
				return nil, err
			}
			src = browser
		} else {
			src = scraper.NewStaticSource(scrapeCfg, logger)
		}
		if snapStore != nil {
			src = scraper.NewArchivingSource(src, snapStore, sha256.New(), a.cfg.Snapshot.Prefix, logger)
		}
		return src, nil
	}

	extractor := scraper.NewExtractor(idFallback)
	walker := scraper.NewWalker(extractor, scrapeCfg, logger)
	a.scraper = scraper.New(factory, extractor, walker, logger)
}
