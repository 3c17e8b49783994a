package yamlfile

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Apurer/replenishment-engine/internal/domains/procurement/domain"
)

const scheduleYAML = `
branches:
  - branchId: 2
    items:
      - productId: 1001
        quantity: 30
        days: [Monday, thu]
  - branchId: 1
    items:
      - productId: 2002
        quantity: 8
        days: [friday]
`

func TestParseSchedule(t *testing.T) {
	s, err := ParseSchedule([]byte(scheduleYAML))
	require.NoError(t, err)

	assert.Equal(t, []int64{1, 2}, s.Branches())

	entries := s.For(2)
	require.Len(t, entries, 1)
	assert.Equal(t, int64(1001), entries[0].ProductID)
	assert.Equal(t, int64(30), entries[0].Quantity)
	assert.True(t, entries[0].Days.Contains(time.Monday))
	assert.True(t, entries[0].Days.Contains(time.Thursday))
	assert.False(t, entries[0].Days.Contains(time.Friday))

	assert.Empty(t, s.For(99))

	demand := domain.PeriodicDemand{BranchID: 2, Schedule: s.For(2), Today: time.Thursday}
	assert.Len(t, demand.Lines(), 1)
}

func TestParseSchedule_Rejects(t *testing.T) {
	cases := map[string]string{
		"unknown weekday": "branches:\n  - branchId: 1\n    items:\n      - productId: 1\n        quantity: 1\n        days: [someday]\n",
		"bad branch":      "branches:\n  - branchId: 0\n",
		"duplicate":       "branches:\n  - branchId: 1\n  - branchId: 1\n",
		"unknown field":   "branches:\n  - branchId: 1\n    colour: red\n",
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseSchedule([]byte(doc))
			require.Error(t, err)
		})
	}

	_, err := ParseSchedule([]byte("branches:\n  - branchId: 1\n    items:\n      - productId: 1\n        days: [someday]\n"))
	require.ErrorIs(t, err, domain.ErrUnknownWeekday)
}

func TestParseSchedule_EmptyDocument(t *testing.T) {
	s, err := ParseSchedule(nil)
	require.NoError(t, err)
	assert.Empty(t, s.Branches())
}

const catalogYAML = `
offers:
  - productId: 1001
    supplierId: 1
    agreementId: 10
    supplierName: Acme
    basePrice: "70.00"
    unitOfMeasure: box
    deliveryDays: [mon, wed]
    discountTiers:
      - minQuantity: 20
        discountPercent: "5"
  - productId: 1001
    supplierId: 2
    agreementId: 11
    supplierName: Globex
    basePrice: "80"
`

func TestParseCatalog(t *testing.T) {
	offers, err := ParseCatalog([]byte(catalogYAML))
	require.NoError(t, err)
	require.Len(t, offers, 2)

	first := offers[0]
	assert.Equal(t, "Acme", first.SupplierName)
	assert.True(t, first.BasePrice.Equal(decimal.NewFromInt(70)))
	assert.Equal(t, domain.NewWeekdaySet(time.Monday, time.Wednesday), first.DeliveryDays)
	require.Len(t, first.DiscountTiers, 1)
	assert.True(t, first.DiscountTiers[0].DiscountPercent.Equal(decimal.NewFromInt(5)))
	assert.Empty(t, offers[1].DiscountTiers)
}

func TestParseCatalog_Rejects(t *testing.T) {
	_, err := ParseCatalog([]byte("offers:\n  - productId: 1\n    supplierId: 1\n    basePrice: cheap\n"))
	require.Error(t, err)

	_, err = ParseCatalog([]byte("offers:\n  - productId: 1\n    supplierId: 1\n    basePrice: \"-1\"\n"))
	require.ErrorIs(t, err, domain.ErrNegativePrice)

	dup := "offers:\n  - {productId: 1, supplierId: 1, basePrice: \"1\"}\n  - {productId: 1, supplierId: 1, basePrice: \"2\"}\n"
	_, err = ParseCatalog([]byte(dup))
	require.Error(t, err)
}

func TestLoadFromDisk(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "schedule.yaml")
	require.NoError(t, os.WriteFile(path, []byte(scheduleYAML), 0o600))

	s, err := LoadSchedule(path)
	require.NoError(t, err)
	assert.Len(t, s.Branches(), 2)

	_, err = LoadCatalog(filepath.Join(dir, "missing.yaml"))
	require.Error(t, err)
}
