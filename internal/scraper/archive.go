package scraper

import (
	"context"
	"fmt"
	"path"
	"strings"

	"go.uber.org/zap"

	"github.com/shelfscout/shelfscout/internal/snapshot"
)

// hasher produces a stable hex digest of page content for snapshot keys.
type hasher interface {
	Hash(data []byte) (string, error)
}

// ArchivingSource decorates a PageSource, writing every successfully rendered
// page to a snapshot store. Archive failures are logged and swallowed; losing
// an audit copy must never fail the scrape itself.
type ArchivingSource struct {
	inner  PageSource
	store  snapshot.Store
	hash   hasher
	prefix string
	logger *zap.Logger
}

// NewArchivingSource wraps inner with snapshot archiving under prefix.
func NewArchivingSource(inner PageSource, store snapshot.Store, hash hasher, prefix string, logger *zap.Logger) *ArchivingSource {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ArchivingSource{
		inner:  inner,
		store:  store,
		hash:   hash,
		prefix: prefix,
		logger: logger,
	}
}

// Render delegates to the wrapped source and archives the result.
func (a *ArchivingSource) Render(ctx context.Context, rawURL string) (Page, error) {
	page, err := a.inner.Render(ctx, rawURL)
	if err != nil {
		return Page{}, err
	}
	a.archive(ctx, page)
	return page, nil
}

// Close delegates to the wrapped source.
func (a *ArchivingSource) Close(ctx context.Context) error {
	return a.inner.Close(ctx)
}

func (a *ArchivingSource) archive(ctx context.Context, page Page) {
	digest, err := a.hash.Hash([]byte(page.HTML))
	if err != nil {
		a.logger.Warn("snapshot digest failed", zap.String("url", page.URL), zap.Error(err))
		return
	}
	key := path.Join(a.prefix,
		page.FetchedAt.UTC().Format("2006/01/02"),
		fmt.Sprintf("%s.html", digest))
	uri, err := a.store.PutObject(ctx, key, "text/html; charset=utf-8", strings.NewReader(page.HTML))
	if err != nil {
		a.logger.Warn("snapshot write failed", zap.String("url", page.URL), zap.Error(err))
		return
	}
	a.logger.Debug("page snapshot archived",
		zap.String("url", page.URL), zap.String("snapshot", uri))
}
