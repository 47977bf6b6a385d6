package services

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/needus/ecommerce-backend/internal/models"
	"github.com/needus/ecommerce-backend/internal/repository/memory"
)

func TestGetDashboardStats(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	user := uuid.New()

	for _, name := range []string{"A", "B"} {
		product := models.Product{Name: name, Price: decimal.NewFromInt(1), BrandID: uuid.New(), CategoryID: uuid.New()}
		require.NoError(t, store.Products().Save(ctx, &product))
	}
	seedOrder(t, store, user, models.OrderStatusPending)
	seedOrder(t, store, user, models.OrderStatusDelivered)
	seedOrder(t, store, user, models.OrderStatusDelivered)

	stats, err := NewAdminService(store).GetDashboardStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.TotalProducts)
	assert.Equal(t, 1, stats.OrdersByStatus[models.OrderStatusPending])
	assert.Equal(t, 2, stats.OrdersByStatus[models.OrderStatusDelivered])
	assert.Equal(t, 0, stats.OrdersByStatus[models.OrderStatusCanceled])
	assert.Len(t, stats.PendingOrders, 1)
}

func TestGetProductHistory(t *testing.T) {
	store := memory.NewStore()
	ctx := WithActor(context.Background(), Actor{UserID: uuid.New()})
	catalog := NewCatalogService(store)
	brand, err := catalog.CreateBrand(ctx, &CatalogEntryRequest{Name: "B"})
	require.NoError(t, err)
	category, err := catalog.CreateCategory(ctx, &CatalogEntryRequest{Name: "C"})
	require.NoError(t, err)

	products := NewProductService(store, NewProductImageService(newFakeAttachments()), testConfig())
	product, err := products.CreateProduct(ctx, uuid.New(), &CreateProductRequest{
		Name:        "Lamp",
		Description: "Desk lamp",
		Price:       pricePtr("20"),
		Stock:       intPtr(1),
		BrandID:     brand.ID,
		CategoryID:  category.ID,
	})
	require.NoError(t, err)
	_, err = products.ToggleBlock(ctx, product.ID)
	require.NoError(t, err)

	history, err := NewAdminService(store).GetProductHistory(ctx, product.ID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "product.create", history[0].Action)
	assert.Equal(t, "product.toggle_block", history[1].Action)
	assert.Equal(t, "blocked", history[1].NewValues["status"])

	empty, err := NewAdminService(store).GetProductHistory(ctx, uuid.New())
	require.NoError(t, err)
	assert.Empty(t, empty)
}
