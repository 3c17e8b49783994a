package api

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Apurer/replenishment-engine/internal/domains/procurement/domain"
)

const catalogSeed = `offers:
  - productId: 1001
    supplierId: 1
    agreementId: 10
    supplierName: Acme
    basePrice: "70.00"
    discountTiers:
      - minQuantity: 20
        discountPercent: "5"
`

func TestBuildPlannerInMemorySeedsCatalog(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte(catalogSeed), 0o600))
	t.Setenv("CATALOG_FILE", path)
	cfg, err := LoadConfig()
	require.NoError(t, err)

	planner, cleanup, err := BuildPlanner(context.Background(), cfg, nil)
	defer cleanup()
	require.NoError(t, err)
	assert.False(t, planner.Durable)

	result, err := planner.Service.PlanShortageOrders(context.Background(), domain.ShortageDemand{
		BranchID:   1,
		Quantities: map[int64]int64{1001: 25},
	})
	require.NoError(t, err)
	require.True(t, result.Placed)
	require.NotNil(t, result.Outcomes[0].Order)
	assert.Equal(t, "5", result.Outcomes[0].Order.DiscountPercent.String())
}

func TestBuildPlannerRejectsBrokenCatalog(t *testing.T) {
	clearEnv(t)
	t.Setenv("CATALOG_FILE", filepath.Join(t.TempDir(), "missing.yaml"))
	cfg, err := LoadConfig()
	require.NoError(t, err)

	_, cleanup, err := BuildPlanner(context.Background(), cfg, nil)
	defer cleanup()
	require.Error(t, err)
}

func TestLoadScheduleOptional(t *testing.T) {
	schedule, err := LoadSchedule(Config{})
	require.NoError(t, err)
	assert.Nil(t, schedule)
}
