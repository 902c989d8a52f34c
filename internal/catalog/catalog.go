// Package catalog defines the persisted book catalog model and its store
// contract.
//
// Products are keyed by a natural external id derived from the source URL.
// Repeat harvests of the same product update fields in place; the surrogate
// id and created_at never change once a row exists. Details hang off products
// one-to-one and follow the same create-or-merge rule.
package catalog

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a lookup matches no product.
var ErrNotFound = errors.New("product not found")

// Product is one catalog entry.
type Product struct {
	ID            uuid.UUID `json:"id"`
	ExternalID    string    `json:"external_id"`
	Title         string    `json:"title"`
	Author        string    `json:"author"`
	Price         float64   `json:"price"`
	ImageURL      string    `json:"image_url,omitempty"`
	CategoryLabel string    `json:"category_label"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`

	Detail *ProductDetail `json:"detail,omitempty"`
}

// ProductDetail carries the long-form fields for a product.
type ProductDetail struct {
	ID          uuid.UUID      `json:"id"`
	ProductID   uuid.UUID      `json:"product_id"`
	Description string         `json:"description,omitempty"`
	Specs       map[string]any `json:"specs"`
}

// ProductFields is the mutable slice of a product carried by one harvest.
type ProductFields struct {
	ExternalID    string
	Title         string
	Author        string
	Price         float64
	ImageURL      string
	CategoryLabel string
}

// DetailFields is the mutable slice of a product detail.
type DetailFields struct {
	Description string
	Specs       map[string]any
}

// Store persists the catalog.
type Store interface {
	// UpsertProduct creates the product for fields.ExternalID or overwrites
	// its mutable fields, returning the stored row either way.
	UpsertProduct(ctx context.Context, fields ProductFields) (Product, error)
	// UpsertDetail creates or overwrites the detail row for productID.
	UpsertDetail(ctx context.Context, productID uuid.UUID, fields DetailFields) (ProductDetail, error)
	// GetProduct looks a product up by external id or surrogate id.
	GetProduct(ctx context.Context, key string) (Product, error)
	// ListProducts returns the catalog newest-first.
	ListProducts(ctx context.Context) ([]Product, error)
	// Close releases store resources.
	Close()
}

// IDGenerator mints surrogate ids for new rows.
type IDGenerator interface {
	NewRawID() (uuid.UUID, error)
}

// Clock supplies row timestamps.
type Clock interface {
	Now() time.Time
}
