package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/require"

	"github.com/shelfscout/shelfscout/internal/catalog"
)

var (
	fixedTime = time.Unix(1700000000, 0).UTC()
	fixedID   = uuid.MustParse("0189c7e4-5a6b-7c8d-9e0f-112233445566")
)

type fixedIDs struct{}

func (fixedIDs) NewRawID() (uuid.UUID, error) { return fixedID, nil }

type fixedClock struct{}

func (fixedClock) Now() time.Time { return fixedTime }

func newMockStore(t *testing.T) (*Store, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)

	store, err := NewWithPool(mock, fixedIDs{}, fixedClock{})
	require.NoError(t, err)
	return store, mock
}

func cleanCode() catalog.ProductFields {
	return catalog.ProductFields{
		ExternalID:    "clean-code",
		Title:         "Clean Code",
		Author:        "Robert C. Martin",
		Price:         32.99,
		ImageURL:      "https://cdn.example.com/covers/clean-code.jpg",
		CategoryLabel: "Book",
	}
}

func TestUpsertProductInsertsWhenMissing(t *testing.T) {
	t.Parallel()

	store, mock := newMockStore(t)
	fields := cleanCode()

	mock.ExpectQuery("SELECT id, created_at FROM products").
		WithArgs(fields.ExternalID).
		WillReturnError(pgx.ErrNoRows)
	mock.ExpectExec("INSERT INTO products").
		WithArgs(fixedID, fields.ExternalID, fields.Title, fields.Author,
			fields.Price, fields.ImageURL, fields.CategoryLabel, fixedTime, fixedTime).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	p, err := store.UpsertProduct(context.Background(), fields)
	require.NoError(t, err)
	require.Equal(t, fixedID, p.ID)
	require.Equal(t, fixedTime, p.CreatedAt)
	require.Equal(t, fixedTime, p.UpdatedAt)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertProductUpdatesWhenPresent(t *testing.T) {
	t.Parallel()

	store, mock := newMockStore(t)
	fields := cleanCode()
	fields.Price = 27.50

	existingID := uuid.MustParse("0189c7e4-0000-7c8d-9e0f-112233445566")
	createdAt := fixedTime.Add(-24 * time.Hour)

	mock.ExpectQuery("SELECT id, created_at FROM products").
		WithArgs(fields.ExternalID).
		WillReturnRows(pgxmock.NewRows([]string{"id", "created_at"}).AddRow(existingID, createdAt))
	mock.ExpectExec("UPDATE products").
		WithArgs(fields.Title, fields.Author, fields.Price, fields.ImageURL,
			fields.CategoryLabel, fixedTime, existingID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	p, err := store.UpsertProduct(context.Background(), fields)
	require.NoError(t, err)
	require.Equal(t, existingID, p.ID)
	require.Equal(t, createdAt, p.CreatedAt)
	require.Equal(t, fixedTime, p.UpdatedAt)
	require.InDelta(t, 27.50, p.Price, 1e-9)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertProductRequiresExternalID(t *testing.T) {
	t.Parallel()

	store, _ := newMockStore(t)
	_, err := store.UpsertProduct(context.Background(), catalog.ProductFields{})
	require.Error(t, err)
}

func TestUpsertDetailInsertsWhenMissing(t *testing.T) {
	t.Parallel()

	store, mock := newMockStore(t)
	productID := uuid.MustParse("0189c7e4-1111-7c8d-9e0f-112233445566")

	mock.ExpectQuery("SELECT id FROM product_details").
		WithArgs(productID).
		WillReturnError(pgx.ErrNoRows)
	mock.ExpectExec("INSERT INTO product_details").
		WithArgs(fixedID, productID, "A classic.", []byte(`{"pages":464}`)).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	d, err := store.UpsertDetail(context.Background(), productID, catalog.DetailFields{
		Description: "A classic.",
		Specs:       map[string]any{"pages": 464},
	})
	require.NoError(t, err)
	require.Equal(t, fixedID, d.ID)
	require.Equal(t, productID, d.ProductID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertDetailUpdatesWhenPresent(t *testing.T) {
	t.Parallel()

	store, mock := newMockStore(t)
	productID := uuid.MustParse("0189c7e4-1111-7c8d-9e0f-112233445566")
	detailID := uuid.MustParse("0189c7e4-2222-7c8d-9e0f-112233445566")

	mock.ExpectQuery("SELECT id FROM product_details").
		WithArgs(productID).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(detailID))
	mock.ExpectExec("UPDATE product_details").
		WithArgs("Revised.", []byte(`{}`), detailID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	d, err := store.UpsertDetail(context.Background(), productID, catalog.DetailFields{
		Description: "Revised.",
	})
	require.NoError(t, err)
	require.Equal(t, detailID, d.ID)
	require.NotNil(t, d.Specs)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertDetailRequiresProductID(t *testing.T) {
	t.Parallel()

	store, _ := newMockStore(t)
	_, err := store.UpsertDetail(context.Background(), uuid.Nil, catalog.DetailFields{})
	require.Error(t, err)
}

func TestGetProductNotFound(t *testing.T) {
	t.Parallel()

	store, mock := newMockStore(t)

	mock.ExpectQuery("SELECT id, external_id, title").
		WithArgs("no-such-book").
		WillReturnError(pgx.ErrNoRows)

	_, err := store.GetProduct(context.Background(), "no-such-book")
	require.ErrorIs(t, err, catalog.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetProductWithDetail(t *testing.T) {
	t.Parallel()

	store, mock := newMockStore(t)
	productID := uuid.MustParse("0189c7e4-1111-7c8d-9e0f-112233445566")
	detailID := uuid.MustParse("0189c7e4-2222-7c8d-9e0f-112233445566")

	mock.ExpectQuery("SELECT id, external_id, title").
		WithArgs("clean-code").
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "external_id", "title", "author", "price", "image_url",
			"category_label", "created_at", "updated_at",
		}).AddRow(productID, "clean-code", "Clean Code", "Robert C. Martin",
			32.99, "", "Book", fixedTime, fixedTime))
	mock.ExpectQuery("SELECT id, product_id").
		WithArgs(productID).
		WillReturnRows(pgxmock.NewRows([]string{"id", "product_id", "description", "specs"}).
			AddRow(detailID, productID, "A classic.", []byte(`{"pages":464}`)))

	p, err := store.GetProduct(context.Background(), "clean-code")
	require.NoError(t, err)
	require.Equal(t, "Clean Code", p.Title)
	require.NotNil(t, p.Detail)
	require.Equal(t, "A classic.", p.Detail.Description)
	require.EqualValues(t, 464, p.Detail.Specs["pages"])
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListProductsEmpty(t *testing.T) {
	t.Parallel()

	store, mock := newMockStore(t)

	mock.ExpectQuery("SELECT id, external_id, title").
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "external_id", "title", "author", "price", "image_url",
			"category_label", "created_at", "updated_at",
		}))

	products, err := store.ListProducts(context.Background())
	require.NoError(t, err)
	require.Empty(t, products)
	require.NoError(t, mock.ExpectationsWereMet())
}
