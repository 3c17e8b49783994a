//go:build integration

package postgres

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/Apurer/replenishment-engine/internal/domains/procurement/domain"
	"github.com/Apurer/replenishment-engine/internal/domains/procurement/ports"
	"github.com/Apurer/replenishment-engine/internal/platform/migrations"
)

func setupReplenishmentPostgres(t *testing.T) *gorm.DB {
	t.Helper()
	ctx := context.Background()

	pgContainer, err := tcpostgres.RunContainer(ctx,
		testcontainers.WithImage("postgres:15-alpine"),
		tcpostgres.WithDatabase("replenishment_test"),
		tcpostgres.WithUsername("test"),
		tcpostgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	require.NoError(t, err)

	dsn, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	require.NoError(t, migrations.Run(db))

	t.Cleanup(func() {
		if sqlDB, _ := db.DB(); sqlDB != nil {
			_ = sqlDB.Close()
		}
		_ = pgContainer.Terminate(ctx)
	})
	return db
}

func newPending(productID, branchID int64, at time.Time) *domain.Order {
	return &domain.Order{
		Kind:            domain.KindShortage,
		ProductID:       productID,
		Quantity:        3,
		BasePrice:       decimal.RequireFromString("70.00"),
		DiscountPercent: decimal.Zero,
		OrderDate:       at,
		BranchID:        branchID,
		SupplierID:      1,
		SupplierName:    "Acme",
		AgreementID:     10,
		Status:          domain.StatusPending,
	}
}

func TestOrderStore_InsertEnforcesSinglePending(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	store := NewOrderStore(setupReplenishmentPostgres(t))
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Microsecond)

	saved, err := store.Insert(ctx, newPending(1001, 1, now))
	require.NoError(t, err)
	assert.NotZero(t, saved.ID)
	assert.True(t, saved.BasePrice.Equal(decimal.NewFromInt(70)))

	_, err = store.Insert(ctx, newPending(1001, 1, now))
	require.ErrorIs(t, err, ports.ErrPendingOrderExists)

	// other branch is a different key.
	_, err = store.Insert(ctx, newPending(1001, 2, now))
	require.NoError(t, err)

	pending, err := store.HasPending(ctx, 1001, 1)
	require.NoError(t, err)
	assert.True(t, pending)

	pending, err = store.HasPending(ctx, 9999, 1)
	require.NoError(t, err)
	assert.False(t, pending)
}

func TestOrderStore_ConcurrentInsertsKeepSinglePending(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	store := NewOrderStore(setupReplenishmentPostgres(t))
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := store.Insert(ctx, newPending(42, 7, time.Now().UTC()))
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	succeeded := 0
	for err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		require.ErrorIs(t, err, ports.ErrPendingOrderExists)
	}
	assert.Equal(t, 1, succeeded)
}

func TestOrderStore_SweepAndReorder(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	store := NewOrderStore(setupReplenishmentPostgres(t))
	ctx := context.Background()
	day1 := time.Date(2024, 6, 10, 9, 0, 0, 0, time.UTC)
	sweepAt := day1.Add(10 * time.Hour)

	_, err := store.Insert(ctx, newPending(1, 1, day1))
	require.NoError(t, err)
	_, err = store.Insert(ctx, newPending(2, 1, day1))
	require.NoError(t, err)
	untouched, err := store.Insert(ctx, newPending(1, 2, day1))
	require.NoError(t, err)

	n, err := store.MarkAllPendingDelivered(ctx, 1, sweepAt)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	delivered, err := store.List(ctx, ports.OrderFilter{BranchID: 1, Status: domain.StatusDelivered})
	require.NoError(t, err)
	require.Len(t, delivered, 2)
	for _, o := range delivered {
		require.NotNil(t, o.CompletionDate)
		assert.True(t, o.CompletionDate.Equal(sweepAt))
	}

	other, err := store.GetByID(ctx, untouched.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPending, other.Status)

	day2 := day1.Add(24 * time.Hour)
	_, err = store.Insert(ctx, newPending(1, 1, day2))
	require.NoError(t, err)

	last, ok, err := store.LastOrderDate(ctx, 1, 1)
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, last.Equal(day2))

	_, ok, err = store.LastOrderDate(ctx, 77, 1)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = store.GetByID(ctx, 123456)
	assert.ErrorIs(t, err, ports.ErrNotFound)
}

func TestOfferCatalog_PutAndOffersFor(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	catalog := NewOfferCatalog(setupReplenishmentPostgres(t))
	ctx := context.Background()

	offer := domain.SupplierOffer{
		ProductID:     1001,
		SupplierID:    1,
		AgreementID:   10,
		SupplierName:  "Acme",
		BasePrice:     decimal.NewFromInt(70),
		UnitOfMeasure: "box",
		DeliveryDays:  domain.NewWeekdaySet(time.Monday, time.Thursday),
		DiscountTiers: []domain.DiscountTier{
			{MinQuantity: 10, DiscountPercent: decimal.NewFromInt(2)},
			{MinQuantity: 20, DiscountPercent: decimal.NewFromInt(5)},
		},
	}
	require.NoError(t, catalog.Put(ctx, offer))

	// upsert replaces price and tiers.
	offer.BasePrice = decimal.NewFromInt(72)
	offer.DiscountTiers = offer.DiscountTiers[:1]
	require.NoError(t, catalog.Put(ctx, offer))

	offers, err := catalog.OffersFor(ctx, 1001)
	require.NoError(t, err)
	require.Len(t, offers, 1)
	assert.True(t, offers[0].BasePrice.Equal(decimal.NewFromInt(72)))
	assert.Equal(t, offer.DeliveryDays, offers[0].DeliveryDays)
	require.Len(t, offers[0].DiscountTiers, 1)
	assert.Equal(t, int64(10), offers[0].DiscountTiers[0].MinQuantity)

	empty, err := catalog.OffersFor(ctx, 5555)
	require.NoError(t, err)
	assert.Empty(t, empty)
}
