// Package postgres provides the Postgres-backed catalog store.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shelfscout/shelfscout/internal/catalog"
)

// Config controls the Postgres connection pool backing the catalog.
type Config struct {
	DSN             string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

// pgxPool is the slice of pgxpool.Pool the store needs; pgxmock satisfies it.
type pgxPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// Store persists the catalog in the products and product_details tables.
//
// Expected schema:
//
//	CREATE TABLE products (
//	    id UUID PRIMARY KEY,
//	    external_id TEXT NOT NULL UNIQUE,
//	    title TEXT NOT NULL,
//	    author TEXT NOT NULL,
//	    price DOUBLE PRECISION NOT NULL,
//	    image_url TEXT,
//	    category_label TEXT NOT NULL,
//	    created_at TIMESTAMPTZ NOT NULL,
//	    updated_at TIMESTAMPTZ NOT NULL
//	);
//	CREATE TABLE product_details (
//	    id UUID PRIMARY KEY,
//	    product_id UUID NOT NULL UNIQUE REFERENCES products(id) ON DELETE CASCADE,
//	    description TEXT,
//	    specs JSONB NOT NULL DEFAULT '{}'
//	);
type Store struct {
	pool  pgxPool
	ids   catalog.IDGenerator
	clock catalog.Clock
}

// New creates a Postgres-backed catalog store using the provided config.
func New(ctx context.Context, cfg Config, ids catalog.IDGenerator, clock catalog.Clock) (*Store, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("database.dsn is required")
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	// TODO: drive the schema through golang-migrate instead of assuming it
	// exists.
	return &Store{pool: pool, ids: ids, clock: clock}, nil
}

// NewWithPool constructs a store from an existing pool (primarily for testing).
func NewWithPool(pool pgxPool, ids catalog.IDGenerator, clock catalog.Clock) (*Store, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	return &Store{pool: pool, ids: ids, clock: clock}, nil
}

// Close releases the underlying pool resources.
func (s *Store) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// UpsertProduct creates the row for fields.ExternalID or overwrites its
// mutable columns. The lookup-then-branch shape keeps id and created_at
// immutable across repeat harvests.
func (s *Store) UpsertProduct(ctx context.Context, fields catalog.ProductFields) (catalog.Product, error) {
	if fields.ExternalID == "" {
		return catalog.Product{}, fmt.Errorf("external id is required")
	}

	now := s.clock.Now()
	var (
		existingID uuid.UUID
		createdAt  time.Time
	)
	err := s.pool.QueryRow(ctx,
		`SELECT id, created_at FROM products WHERE external_id = $1`,
		fields.ExternalID,
	).Scan(&existingID, &createdAt)

	switch {
	case errors.Is(err, pgx.ErrNoRows):
		id, idErr := s.ids.NewRawID()
		if idErr != nil {
			return catalog.Product{}, fmt.Errorf("mint product id: %w", idErr)
		}
		_, err = s.pool.Exec(ctx, `
INSERT INTO products (
	id, external_id, title, author, price, image_url, category_label, created_at, updated_at
) VALUES (
	$1,$2,$3,$4,$5,$6,$7,$8,$9
)`,
			id, fields.ExternalID, fields.Title, fields.Author, fields.Price,
			fields.ImageURL, fields.CategoryLabel, now, now,
		)
		if err != nil {
			return catalog.Product{}, fmt.Errorf("insert product: %w", err)
		}
		return productFromFields(id, fields, now, now), nil
	case err != nil:
		return catalog.Product{}, fmt.Errorf("lookup product: %w", err)
	}

	_, err = s.pool.Exec(ctx, `
UPDATE products
SET title = $1, author = $2, price = $3, image_url = $4, category_label = $5, updated_at = $6
WHERE id = $7`,
		fields.Title, fields.Author, fields.Price, fields.ImageURL,
		fields.CategoryLabel, now, existingID,
	)
	if err != nil {
		return catalog.Product{}, fmt.Errorf("update product: %w", err)
	}
	return productFromFields(existingID, fields, createdAt, now), nil
}

// UpsertDetail creates or overwrites the detail row for productID.
func (s *Store) UpsertDetail(ctx context.Context, productID uuid.UUID, fields catalog.DetailFields) (catalog.ProductDetail, error) {
	if productID == uuid.Nil {
		return catalog.ProductDetail{}, fmt.Errorf("product id is required")
	}
	specs := fields.Specs
	if specs == nil {
		specs = map[string]any{}
	}
	specsJSON, err := json.Marshal(specs)
	if err != nil {
		return catalog.ProductDetail{}, fmt.Errorf("marshal specs: %w", err)
	}

	var existingID uuid.UUID
	err = s.pool.QueryRow(ctx,
		`SELECT id FROM product_details WHERE product_id = $1`,
		productID,
	).Scan(&existingID)

	switch {
	case errors.Is(err, pgx.ErrNoRows):
		id, idErr := s.ids.NewRawID()
		if idErr != nil {
			return catalog.ProductDetail{}, fmt.Errorf("mint detail id: %w", idErr)
		}
		_, err = s.pool.Exec(ctx, `
INSERT INTO product_details (id, product_id, description, specs)
VALUES ($1,$2,$3,$4)`,
			id, productID, fields.Description, specsJSON,
		)
		if err != nil {
			return catalog.ProductDetail{}, fmt.Errorf("insert product detail: %w", err)
		}
		return catalog.ProductDetail{ID: id, ProductID: productID, Description: fields.Description, Specs: specs}, nil
	case err != nil:
		return catalog.ProductDetail{}, fmt.Errorf("lookup product detail: %w", err)
	}

	_, err = s.pool.Exec(ctx, `
UPDATE product_details
SET description = $1, specs = $2
WHERE id = $3`,
		fields.Description, specsJSON, existingID,
	)
	if err != nil {
		return catalog.ProductDetail{}, fmt.Errorf("update product detail: %w", err)
	}
	return catalog.ProductDetail{ID: existingID, ProductID: productID, Description: fields.Description, Specs: specs}, nil
}

// GetProduct looks a product up by external id or surrogate id.
func (s *Store) GetProduct(ctx context.Context, key string) (catalog.Product, error) {
	var p catalog.Product
	err := s.pool.QueryRow(ctx, `
SELECT id, external_id, title, author, price, COALESCE(image_url, ''), category_label, created_at, updated_at
FROM products
WHERE external_id = $1 OR id::text = $1`,
		key,
	).Scan(&p.ID, &p.ExternalID, &p.Title, &p.Author, &p.Price, &p.ImageURL,
		&p.CategoryLabel, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return catalog.Product{}, catalog.ErrNotFound
	}
	if err != nil {
		return catalog.Product{}, fmt.Errorf("select product: %w", err)
	}

	detail, err := s.detailFor(ctx, p.ID)
	if err != nil {
		return catalog.Product{}, err
	}
	p.Detail = detail
	return p, nil
}

// ListProducts returns the catalog newest-first, details included.
func (s *Store) ListProducts(ctx context.Context) ([]catalog.Product, error) {
	rows, err := s.pool.Query(ctx, `
SELECT id, external_id, title, author, price, COALESCE(image_url, ''), category_label, created_at, updated_at
FROM products
ORDER BY created_at DESC, external_id`)
	if err != nil {
		return nil, fmt.Errorf("select products: %w", err)
	}
	defer rows.Close()

	var products []catalog.Product
	var ids []uuid.UUID
	for rows.Next() {
		var p catalog.Product
		if err := rows.Scan(&p.ID, &p.ExternalID, &p.Title, &p.Author, &p.Price,
			&p.ImageURL, &p.CategoryLabel, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		products = append(products, p)
		ids = append(ids, p.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate products: %w", err)
	}
	if len(products) == 0 {
		return []catalog.Product{}, nil
	}

	details, err := s.detailsFor(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range products {
		if d, ok := details[products[i].ID]; ok {
			detail := d
			products[i].Detail = &detail
		}
	}
	return products, nil
}

func (s *Store) detailFor(ctx context.Context, productID uuid.UUID) (*catalog.ProductDetail, error) {
	var (
		d         catalog.ProductDetail
		specsJSON []byte
	)
	err := s.pool.QueryRow(ctx, `
SELECT id, product_id, COALESCE(description, ''), specs
FROM product_details
WHERE product_id = $1`,
		productID,
	).Scan(&d.ID, &d.ProductID, &d.Description, &specsJSON)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("select product detail: %w", err)
	}
	if err := json.Unmarshal(specsJSON, &d.Specs); err != nil {
		return nil, fmt.Errorf("unmarshal specs: %w", err)
	}
	return &d, nil
}

func (s *Store) detailsFor(ctx context.Context, productIDs []uuid.UUID) (map[uuid.UUID]catalog.ProductDetail, error) {
	rows, err := s.pool.Query(ctx, `
SELECT id, product_id, COALESCE(description, ''), specs
FROM product_details
WHERE product_id = ANY($1)`,
		productIDs,
	)
	if err != nil {
		return nil, fmt.Errorf("select product details: %w", err)
	}
	defer rows.Close()

	out := make(map[uuid.UUID]catalog.ProductDetail, len(productIDs))
	for rows.Next() {
		var (
			d         catalog.ProductDetail
			specsJSON []byte
		)
		if err := rows.Scan(&d.ID, &d.ProductID, &d.Description, &specsJSON); err != nil {
			return nil, fmt.Errorf("scan product detail: %w", err)
		}
		if err := json.Unmarshal(specsJSON, &d.Specs); err != nil {
			return nil, fmt.Errorf("unmarshal specs: %w", err)
		}
		out[d.ProductID] = d
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate product details: %w", err)
	}
	return out, nil
}

func productFromFields(id uuid.UUID, fields catalog.ProductFields, createdAt, updatedAt time.Time) catalog.Product {
	return catalog.Product{
		ID:            id,
		ExternalID:    fields.ExternalID,
		Title:         fields.Title,
		Author:        fields.Author,
		Price:         fields.Price,
		ImageURL:      fields.ImageURL,
		CategoryLabel: fields.CategoryLabel,
		CreatedAt:     createdAt,
		UpdatedAt:     updatedAt,
	}
}
