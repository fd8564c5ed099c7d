package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sodiqbhoy1/wears/app/models"
	"github.com/sodiqbhoy1/wears/internal/pkg/testutil"
)

func seedProduct(t *testing.T, repo ProductRepository, quantities ...int) *models.Product {
	t.Helper()
	p := &models.Product{Name: "Tee", BasePrice: 2500}
	sizes := []string{"S", "M", "L", "XL"}
	for i, q := range quantities {
		p.Variants = append(p.Variants, models.ProductVariant{Color: "black", Size: sizes[i%len(sizes)], Quantity: q, Price: 2500})
	}
	require.NoError(t, repo.Create(context.Background(), p))
	require.NotEmpty(t, p.UUID)
	return p
}

func TestProductRepository_DecrementVariantStock(t *testing.T) {
	repo := NewProductRepository(testutil.NewDB(t))
	ctx := context.Background()
	p := seedProduct(t, repo, 2)
	variantID := p.Variants[0].ID

	ok, err := repo.DecrementVariantStock(ctx, variantID, 2)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.DecrementVariantStock(ctx, variantID, 1)
	require.NoError(t, err)
	assert.False(t, ok, "decrement below zero must not apply")

	stored, err := repo.GetByUUID(ctx, p.UUID)
	require.NoError(t, err)
	assert.Equal(t, 0, stored.Variants[0].Quantity)
}

func TestProductRepository_DrainAndOutOfStock(t *testing.T) {
	repo := NewProductRepository(testutil.NewDB(t))
	ctx := context.Background()
	p := seedProduct(t, repo, 1, 0)

	flipped, err := repo.MarkOutOfStockIfDepleted(ctx, p.ID)
	require.NoError(t, err)
	assert.False(t, flipped)

	held, err := repo.DrainVariantStock(ctx, p.Variants[0].ID)
	require.NoError(t, err)
	assert.Equal(t, 1, held)

	flipped, err = repo.MarkOutOfStockIfDepleted(ctx, p.ID)
	require.NoError(t, err)
	assert.True(t, flipped)

	stored, err := repo.GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PRODUCT_STATUS_OUT_OF_STOCK, stored.Status)
	assert.False(t, stored.InStock())
}

func TestPaymentEventRepository_CreateIfNotExists(t *testing.T) {
	repo := NewPaymentEventRepository(testutil.NewDB(t))
	ctx := context.Background()

	event := &models.PaymentEvent{
		Provider:        models.PAYMENT_PROVIDER_PAYSTACK,
		ProviderEventID: "charge.success:PSK999",
		EventType:       "charge.success",
		Reference:       "PSK999",
		PayloadJSON:     `{"event":"charge.success"}`,
		SignatureValid:  true,
	}
	created, stored, err := repo.CreateIfNotExists(ctx, event)
	require.NoError(t, err)
	assert.True(t, created)
	require.NotNil(t, stored)

	again := *event
	again.ID = 0
	created, dup, err := repo.CreateIfNotExists(ctx, &again)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, stored.ID, dup.ID)

	require.NoError(t, repo.MarkProcessed(ctx, stored.ID, ""))
}
