package main

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Apurer/replenishment-engine/internal/domains/procurement/adapters/memory"
	"github.com/Apurer/replenishment-engine/internal/domains/procurement/application"
	"github.com/Apurer/replenishment-engine/internal/domains/procurement/domain"
)

func pendingOrder(productID, branchID int64) *domain.Order {
	return &domain.Order{
		Kind: domain.KindShortage, ProductID: productID, Quantity: 1, BasePrice: decimal.NewFromInt(10),
		DiscountPercent: decimal.Zero, OrderDate: time.Now(), BranchID: branchID, SupplierID: 1, Status: domain.StatusPending,
	}
}

func TestSweepBranches(t *testing.T) {
	ctx := context.Background()
	store := memory.NewOrderStore()
	for _, order := range []*domain.Order{pendingOrder(1, 1), pendingOrder(2, 1), pendingOrder(1, 2)} {
		_, err := store.Insert(ctx, order)
		require.NoError(t, err)
	}
	service := application.NewService(memory.NewOfferCatalog(), store)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	delivered, err := sweepBranches(ctx, service, []int64{1, 2, 3}, 2, logger)
	require.NoError(t, err)
	assert.Equal(t, int64(3), delivered)

	for _, branchID := range []int64{1, 2} {
		pending, err := store.HasPending(ctx, 1, branchID)
		require.NoError(t, err)
		assert.False(t, pending)
	}
}

func TestSweepBranchesReportsFailures(t *testing.T) {
	service := application.NewService(memory.NewOfferCatalog(), memory.NewOrderStore())
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	_, err := sweepBranches(context.Background(), service, []int64{1, 0}, 1, logger)
	require.Error(t, err)
}
