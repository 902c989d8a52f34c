// Package seed imports catalog rows from CSV files.
//
// The expected layout is a header row followed by one product per line.
// Recognized columns: product_id (or id), title, price, category (or name),
// image_url, author, description. Unknown columns are ignored.
package seed

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/shelfscout/shelfscout/internal/catalog"
	"github.com/shelfscout/shelfscout/internal/scraper"
)

const (
	defaultSeedTitle    = "Untitled Product"
	defaultSeedCategory = "Uncategorized"
)

// Importer loads CSV rows into the catalog store.
type Importer struct {
	store  catalog.Store
	logger *zap.Logger
}

// NewImporter builds an Importer.
func NewImporter(store catalog.Store, logger *zap.Logger) *Importer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Importer{store: store, logger: logger}
}

// Import reads CSV rows from r and upserts each as a product, returning the
// number of rows persisted. Rows that fail to persist are logged and skipped;
// a malformed CSV stream aborts the import.
func (i *Importer) Import(ctx context.Context, r io.Reader) (int, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err == io.EOF {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read csv header: %w", err)
	}
	cols := columnIndex(header)

	count := 0
	for line := 2; ; line++ {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return count, fmt.Errorf("read csv line %d: %w", line, err)
		}

		fields, description := rowToFields(cols, record)
		product, err := i.store.UpsertProduct(ctx, fields)
		if err != nil {
			i.logger.Warn("seed row failed, skipping",
				zap.Int("line", line),
				zap.String("external_id", fields.ExternalID),
				zap.Error(err))
			continue
		}
		if description != "" {
			if _, err := i.store.UpsertDetail(ctx, product.ID, catalog.DetailFields{
				Description: description,
				Specs:       map[string]any{},
			}); err != nil {
				i.logger.Warn("seed detail failed",
					zap.Int("line", line), zap.Error(err))
			}
		}
		count++
	}
	return count, nil
}

func columnIndex(header []string) map[string]int {
	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.ToLower(strings.TrimSpace(name))] = i
	}
	return cols
}

func rowToFields(cols map[string]int, record []string) (catalog.ProductFields, string) {
	get := func(names ...string) string {
		for _, name := range names {
			if idx, ok := cols[name]; ok && idx < len(record) {
				if v := strings.TrimSpace(record[idx]); v != "" {
					return v
				}
			}
		}
		return ""
	}

	externalID := get("product_id", "id")
	if externalID == "" {
		externalID = "csv-" + uuid.NewString()
	}
	title := get("title")
	if title == "" {
		title = defaultSeedTitle
	}
	category := get("category", "name")
	if category == "" {
		category = defaultSeedCategory
	}

	fields := catalog.ProductFields{
		ExternalID:    externalID,
		Title:         title,
		Author:        scraper.CleanAuthor(get("author")),
		Price:         scraper.ParsePrice(get("price")),
		ImageURL:      get("image_url"),
		CategoryLabel: category,
	}
	return fields, get("description")
}
