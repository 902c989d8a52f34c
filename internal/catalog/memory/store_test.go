package memory

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/shelfscout/shelfscout/internal/catalog"
	idgen "github.com/shelfscout/shelfscout/internal/id/uuid"
)

// tickingClock returns strictly increasing times so ordering is observable.
type tickingClock struct {
	now time.Time
}

func (c *tickingClock) Now() time.Time {
	c.now = c.now.Add(time.Second)
	return c.now
}

func newTestStore() *Store {
	return New(idgen.New(), &tickingClock{now: time.Unix(1700000000, 0).UTC()})
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

func TestUpsertProductCreatesThenUpdates(t *testing.T) {
	t.Parallel()

	s := newTestStore()
	ctx := context.Background()

	created, err := s.UpsertProduct(ctx, cleanCode())
	require.NoError(t, err)
	require.NotEqual(t, uuid.Nil, created.ID)
	require.Equal(t, created.CreatedAt, created.UpdatedAt)

	changed := cleanCode()
	changed.Price = 27.50
	changed.Title = "Clean Code (2nd hand)"

	updated, err := s.UpsertProduct(ctx, changed)
	require.NoError(t, err)
	require.Equal(t, created.ID, updated.ID)
	require.Equal(t, created.CreatedAt, updated.CreatedAt)
	require.True(t, updated.UpdatedAt.After(created.UpdatedAt))
	require.InDelta(t, 27.50, updated.Price, 1e-9)
	require.Equal(t, "Clean Code (2nd hand)", updated.Title)

	all, err := s.ListProducts(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
}

func TestUpsertDetailCreatesThenUpdates(t *testing.T) {
	t.Parallel()

	s := newTestStore()
	ctx := context.Background()

	p, err := s.UpsertProduct(ctx, cleanCode())
	require.NoError(t, err)

	created, err := s.UpsertDetail(ctx, p.ID, catalog.DetailFields{
		Description: "A handbook of agile software craftsmanship.",
		Specs:       map[string]any{"pages": 464},
	})
	require.NoError(t, err)
	require.Equal(t, p.ID, created.ProductID)

	updated, err := s.UpsertDetail(ctx, p.ID, catalog.DetailFields{
		Description: "Revised description.",
		Specs:       map[string]any{"pages": 464, "format": "paperback"},
	})
	require.NoError(t, err)
	require.Equal(t, created.ID, updated.ID)
	require.Equal(t, "Revised description.", updated.Description)

	got, err := s.GetProduct(ctx, "clean-code")
	require.NoError(t, err)
	require.NotNil(t, got.Detail)
	require.Equal(t, "Revised description.", got.Detail.Description)
}

func TestUpsertDetailRequiresProductID(t *testing.T) {
	t.Parallel()

	s := newTestStore()
	_, err := s.UpsertDetail(context.Background(), uuid.Nil, catalog.DetailFields{})
	require.Error(t, err)
}

func TestGetProduct(t *testing.T) {
	t.Parallel()

	s := newTestStore()
	ctx := context.Background()

	p, err := s.UpsertProduct(ctx, cleanCode())
	require.NoError(t, err)

	byExternal, err := s.GetProduct(ctx, "clean-code")
	require.NoError(t, err)
	require.Equal(t, p.ID, byExternal.ID)

	bySurrogate, err := s.GetProduct(ctx, p.ID.String())
	require.NoError(t, err)
	require.Equal(t, p.ID, bySurrogate.ID)

	_, err = s.GetProduct(ctx, "no-such-book")
	require.ErrorIs(t, err, catalog.ErrNotFound)
}

func TestListProductsNewestFirst(t *testing.T) {
	t.Parallel()

	s := newTestStore()
	ctx := context.Background()

	first := cleanCode()
	second := cleanCode()
	second.ExternalID = "dune"
	second.Title = "Dune"

	_, err := s.UpsertProduct(ctx, first)
	require.NoError(t, err)
	_, err = s.UpsertProduct(ctx, second)
	require.NoError(t, err)

	all, err := s.ListProducts(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	require.Equal(t, "Dune", all[0].Title)
	require.Equal(t, "Clean Code", all[1].Title)
}
