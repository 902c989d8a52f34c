package scraper

import (
	"context"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Fallback selector chains per field; the first matching selector wins. The
// order tracks the source site's markup variants, newest first.
var (
	titleSelectors       = []string{"h1"}
	authorSelectors      = []string{".author", ".product-info__author"}
	priceSelectors       = []string{".price", ".product-price", ".current-price"}
	imageSelectors       = []string{`img[itemprop="image"]`}
	descriptionSelectors = []string{".description", `[itemprop="description"]`}
)

const (
	defaultTitle  = "Unknown Title"
	defaultAuthor = "Unknown Author"
	// DefaultCategoryLabel is applied to every item; the source exposes no
	// usable taxonomy on product pages.
	DefaultCategoryLabel = "Book"
)

// Extractor turns rendered product pages into normalized ScrapedItems.
type Extractor struct {
	idFallback func() string
}

// NewExtractor builds an Extractor. idFallback mints a placeholder external
// id for URLs that yield no usable path segment.
func NewExtractor(idFallback func() string) *Extractor {
	return &Extractor{idFallback: idFallback}
}

// Extract renders productURL through src and parses the item fields. Render
// and parse failures come back as *ExtractionError carrying the offending URL
// so callers can decide between skip and abort.
func (e *Extractor) Extract(ctx context.Context, src PageSource, productURL string) (ScrapedItem, error) {
	page, err := src.Render(ctx, productURL)
	if err != nil {
		return ScrapedItem{}, &ExtractionError{URL: productURL, Err: err}
	}
	item, err := e.Parse(page)
	if err != nil {
		return ScrapedItem{}, &ExtractionError{URL: productURL, Err: err}
	}
	return item, nil
}

// Parse applies the fallback selector chains to an already-rendered page. It
// is a pure function of the DOM snapshot, which keeps it testable without a
// browser.
func (e *Extractor) Parse(page Page) (ScrapedItem, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page.HTML))
	if err != nil {
		return ScrapedItem{}, fmt.Errorf("parse rendered html: %w", err)
	}

	item := ScrapedItem{
		ExternalID:    ExternalID(page.URL, e.idFallback),
		Title:         firstText(doc, titleSelectors, defaultTitle),
		Author:        CleanAuthor(firstText(doc, authorSelectors, defaultAuthor)),
		Price:         ParsePrice(firstText(doc, priceSelectors, "0")),
		ImageURL:      firstAttr(doc, imageSelectors, "src"),
		CategoryLabel: DefaultCategoryLabel,
		SourceURL:     page.URL,
		Detail: &ItemDetail{
			Description: firstText(doc, descriptionSelectors, ""),
			Specs:       map[string]any{},
		},
	}
	return item, nil
}

// firstText returns the trimmed text of the first selector with a match.
func firstText(doc *goquery.Document, selectors []string, fallback string) string {
	for _, sel := range selectors {
		node := doc.Find(sel).First()
		if node.Length() == 0 {
			continue
		}
		if text := strings.TrimSpace(node.Text()); text != "" {
			return text
		}
	}
	return fallback
}

// firstAttr returns the named attribute of the first selector with a match.
func firstAttr(doc *goquery.Document, selectors []string, attr string) string {
	for _, sel := range selectors {
		node := doc.Find(sel).First()
		if node.Length() == 0 {
			continue
		}
		if val, ok := node.Attr(attr); ok && strings.TrimSpace(val) != "" {
			return strings.TrimSpace(val)
		}
	}
	return ""
}
