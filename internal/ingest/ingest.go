// Package ingest persists scraped items into the catalog and reports on the
// batch.
package ingest

import (
	"context"

	"go.uber.org/zap"

	"github.com/shelfscout/shelfscout/internal/catalog"
	"github.com/shelfscout/shelfscout/internal/metrics"
	"github.com/shelfscout/shelfscout/internal/publish"
	"github.com/shelfscout/shelfscout/internal/scraper"
)

// Report summarizes one scrape-and-ingest batch.
type Report struct {
	SourceURL  string   `json:"source_url"`
	Discovered int      `json:"discovered"`
	Persisted  int      `json:"persisted"`
	Titles     []string `json:"titles"`
}

// Ingestor writes scraped items through the catalog store, product before
// detail, one item at a time.
type Ingestor struct {
	store     catalog.Store
	publisher publish.Publisher
	topic     string
	logger    *zap.Logger
}

// New builds an Ingestor. publisher may be nil; reports are then only logged.
func New(store catalog.Store, publisher publish.Publisher, topic string, logger *zap.Logger) *Ingestor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Ingestor{
		store:     store,
		publisher: publisher,
		topic:     topic,
		logger:    logger,
	}
}

// IngestAll upserts every item in order. An item whose product write fails is
// logged and left out of the persisted count; a detail write failure after a
// successful product write still counts the item, since the catalog row
// exists. The report is published after the whole batch has been attempted.
func (i *Ingestor) IngestAll(ctx context.Context, sourceURL string, items []scraper.ScrapedItem) (Report, error) {
	report := Report{
		SourceURL:  sourceURL,
		Discovered: len(items),
		Titles:     make([]string, 0, len(items)),
	}

	for _, item := range items {
		product, err := i.store.UpsertProduct(ctx, catalog.ProductFields{
			ExternalID:    item.ExternalID,
			Title:         item.Title,
			Author:        item.Author,
			Price:         item.Price,
			ImageURL:      item.ImageURL,
			CategoryLabel: item.CategoryLabel,
		})
		if err != nil {
			i.logger.Warn("product upsert failed, skipping item",
				zap.String("external_id", item.ExternalID), zap.Error(err))
			metrics.ObserveIngest("failed")
			continue
		}

		if item.Detail != nil {
			_, err := i.store.UpsertDetail(ctx, product.ID, catalog.DetailFields{
				Description: item.Detail.Description,
				Specs:       item.Detail.Specs,
			})
			if err != nil {
				i.logger.Warn("detail upsert failed",
					zap.String("external_id", item.ExternalID), zap.Error(err))
			}
		}

		report.Persisted++
		report.Titles = append(report.Titles, product.Title)
		metrics.ObserveIngest("persisted")
	}

	i.publishReport(ctx, report)
	return report, nil
}

func (i *Ingestor) publishReport(ctx context.Context, report Report) {
	if i.publisher == nil {
		return
	}
	id, err := i.publisher.Publish(ctx, i.topic, report)
	if err != nil {
		i.logger.Warn("ingest report publish failed", zap.Error(err))
		return
	}
	i.logger.Info("ingest report published",
		zap.String("message_id", id),
		zap.Int("persisted", report.Persisted))
}
