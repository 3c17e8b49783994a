package mapper

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Apurer/replenishment-engine/internal/domains/procurement/domain"
	"github.com/Apurer/replenishment-engine/internal/domains/procurement/ports"
)

func TestToPeriodicDemand_DefaultsToTodayAndFallbackSchedule(t *testing.T) {
	wednesday := time.Date(2024, 6, 12, 8, 0, 0, 0, time.UTC)
	fallback := []domain.ScheduledDemand{{ProductID: 1, Quantity: 2, Days: domain.NewWeekdaySet(time.Wednesday)}}

	demand, err := ToPeriodicDemand(4, PeriodicRequest{}, fallback, wednesday)
	require.NoError(t, err)
	assert.Equal(t, time.Wednesday, demand.Today)
	assert.Equal(t, fallback, demand.Schedule)
	assert.Equal(t, int64(4), demand.BranchID)
}

func TestToPeriodicDemand_ExplicitScheduleAndWeekday(t *testing.T) {
	req := PeriodicRequest{
		Weekday:  "FRI",
		Schedule: []ScheduleItem{{ProductID: 9, Quantity: 3, Days: []string{"friday"}}},
	}
	demand, err := ToPeriodicDemand(1, req, nil, time.Now())
	require.NoError(t, err)
	assert.Equal(t, time.Friday, demand.Today)
	require.Len(t, demand.Lines(), 1)

	_, err = ToPeriodicDemand(1, PeriodicRequest{Weekday: "caturday"}, nil, time.Now())
	require.ErrorIs(t, err, domain.ErrUnknownWeekday)
}

func TestFromPlanResult_RendersPrices(t *testing.T) {
	order := &domain.Order{
		ID:              1,
		Kind:            domain.KindShortage,
		ProductID:       1001,
		BranchID:        1,
		Quantity:        25,
		BasePrice:       decimal.NewFromInt(70),
		DiscountPercent: decimal.NewFromInt(5),
		SupplierID:      1,
		Status:          domain.StatusPending,
	}
	resp := FromPlanResult(&ports.PlanResult{
		BranchID: 1,
		Placed:   true,
		Outcomes: []ports.LineOutcome{
			{ProductID: 1001, Quantity: 25, State: ports.LinePlaced, Order: order},
			{ProductID: 2002, Quantity: 1, State: ports.LineSkipped, Detail: "pending order already exists"},
		},
	})
	require.Len(t, resp.Outcomes, 2)
	require.NotNil(t, resp.Outcomes[0].Order)
	assert.Equal(t, "70.00", resp.Outcomes[0].Order.BasePrice)
	assert.Equal(t, "66.50", resp.Outcomes[0].Order.EffectivePrice)
	assert.Nil(t, resp.Outcomes[1].Order)
	assert.Equal(t, "SKIPPED", resp.Outcomes[1].State)

	assert.NotNil(t, FromPlanResult(nil).Outcomes)
}
