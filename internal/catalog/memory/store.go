// Package memory provides an in-process catalog store for development and tests.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/shelfscout/shelfscout/internal/catalog"
)

// Store keeps the catalog in maps guarded by one mutex.
type Store struct {
	mu       sync.RWMutex
	ids      catalog.IDGenerator
	clock    catalog.Clock
	products map[string]*catalog.Product          // keyed by external id
	details  map[uuid.UUID]*catalog.ProductDetail // keyed by product id
}

// New creates an empty in-memory catalog store.
func New(ids catalog.IDGenerator, clock catalog.Clock) *Store {
	return &Store{
		ids:      ids,
		clock:    clock,
		products: make(map[string]*catalog.Product),
		details:  make(map[uuid.UUID]*catalog.ProductDetail),
	}
}

// UpsertProduct creates or overwrites the product for fields.ExternalID.
func (s *Store) UpsertProduct(_ context.Context, fields catalog.ProductFields) (catalog.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Now()
	if existing, ok := s.products[fields.ExternalID]; ok {
		existing.Title = fields.Title
		existing.Author = fields.Author
		existing.Price = fields.Price
		existing.ImageURL = fields.ImageURL
		existing.CategoryLabel = fields.CategoryLabel
		existing.UpdatedAt = now
		return *existing, nil
	}

	id, err := s.ids.NewRawID()
	if err != nil {
		return catalog.Product{}, err
	}
	p := &catalog.Product{
		ID:            id,
		ExternalID:    fields.ExternalID,
		Title:         fields.Title,
		Author:        fields.Author,
		Price:         fields.Price,
		ImageURL:      fields.ImageURL,
		CategoryLabel: fields.CategoryLabel,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	s.products[fields.ExternalID] = p
	return *p, nil
}

// UpsertDetail creates or overwrites the detail row for productID.
func (s *Store) UpsertDetail(_ context.Context, productID uuid.UUID, fields catalog.DetailFields) (catalog.ProductDetail, error) {
	if productID == uuid.Nil {
		return catalog.ProductDetail{}, fmt.Errorf("product id is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.details[productID]; ok {
		existing.Description = fields.Description
		existing.Specs = fields.Specs
		return *existing, nil
	}

	id, err := s.ids.NewRawID()
	if err != nil {
		return catalog.ProductDetail{}, err
	}
	d := &catalog.ProductDetail{
		ID:          id,
		ProductID:   productID,
		Description: fields.Description,
		Specs:       fields.Specs,
	}
	s.details[productID] = d
	return *d, nil
}

// GetProduct looks a product up by external id or surrogate id.
func (s *Store) GetProduct(_ context.Context, key string) (catalog.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, p := range s.products {
		if p.ExternalID == key || p.ID.String() == key {
			out := *p
			if d, ok := s.details[p.ID]; ok {
				detail := *d
				out.Detail = &detail
			}
			return out, nil
		}
	}
	return catalog.Product{}, catalog.ErrNotFound
}

// ListProducts returns the catalog newest-first.
func (s *Store) ListProducts(_ context.Context) ([]catalog.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]catalog.Product, 0, len(s.products))
	for _, p := range s.products {
		item := *p
		if d, ok := s.details[p.ID]; ok {
			detail := *d
			item.Detail = &detail
		}
		out = append(out, item)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ExternalID < out[j].ExternalID
	})
	return out, nil
}

// Close is a no-op.
func (s *Store) Close() {}
