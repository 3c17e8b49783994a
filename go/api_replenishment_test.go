package replenishmentserver

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Apurer/replenishment-engine/internal/domains/procurement/adapters/http/mapper"
	"github.com/Apurer/replenishment-engine/internal/domains/procurement/adapters/memory"
	"github.com/Apurer/replenishment-engine/internal/domains/procurement/application"
	"github.com/Apurer/replenishment-engine/internal/domains/procurement/domain"
	"github.com/Apurer/replenishment-engine/internal/domains/procurement/ports"
	apierrors "github.com/Apurer/replenishment-engine/internal/shared/errors"
)

var monday = time.Date(2024, 6, 10, 9, 0, 0, 0, time.UTC)

type staticSchedule map[int64][]domain.ScheduledDemand

func (s staticSchedule) For(branchID int64) []domain.ScheduledDemand { return s[branchID] }

type failingInsertStore struct {
	*memory.OrderStore
	failFor int64
}

func (s failingInsertStore) Insert(ctx context.Context, order *domain.Order) (*domain.Order, error) {
	if order.ProductID == s.failFor {
		return nil, errors.New("disk full")
	}
	return s.OrderStore.Insert(ctx, order)
}

func testCatalog() *memory.OfferCatalog {
	return memory.NewOfferCatalog(
		domain.SupplierOffer{
			ProductID: 1001, SupplierID: 1, AgreementID: 10, SupplierName: "Acme",
			BasePrice: decimal.NewFromInt(70),
			DiscountTiers: []domain.DiscountTier{
				{MinQuantity: 10, DiscountPercent: decimal.NewFromInt(2)},
				{MinQuantity: 20, DiscountPercent: decimal.NewFromInt(5)},
			},
		},
		domain.SupplierOffer{ProductID: 1001, SupplierID: 2, AgreementID: 11, SupplierName: "Globex", BasePrice: decimal.NewFromInt(80)},
		domain.SupplierOffer{ProductID: 2002, SupplierID: 4, AgreementID: 12, SupplierName: "Initech", BasePrice: decimal.NewFromInt(12)},
	)
}

func newTestRouter(t *testing.T, store ports.OrderStore, opts ...APIOption) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	svc := application.NewService(testCatalog(), store, application.WithClock(func() time.Time { return monday }))
	opts = append([]APIOption{WithClock(func() time.Time { return monday })}, opts...)
	api := NewReplenishmentAPI(svc, nil, opts...)
	return NewRouterWithGinEngine(gin.New(), ApiHandleFunctions{ReplenishmentAPI: api})
}

func do(t *testing.T, router *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body == "" {
		reader = bytes.NewReader(nil)
	} else {
		reader = bytes.NewReader([]byte(body))
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestPlanShortageOrders_PlacesAndSkipsDuplicates(t *testing.T) {
	router := newTestRouter(t, memory.NewOrderStore())

	rec := do(t, router, http.MethodPost, "/v1/branches/1/shortage-orders", `{"quantities":{"1001":25,"2002":0}}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp mapper.PlanResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Placed)
	require.Len(t, resp.Outcomes, 2)
	assert.Equal(t, "PLACED", resp.Outcomes[0].State)
	require.NotNil(t, resp.Outcomes[0].Order)
	assert.Equal(t, "66.50", resp.Outcomes[0].Order.EffectivePrice)
	assert.Equal(t, "DISCARDED", resp.Outcomes[1].State)

	rec = do(t, router, http.MethodPost, "/v1/branches/1/shortage-orders", `{"quantities":{"1001":25}}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.False(t, resp.Placed)
	assert.Equal(t, "SKIPPED", resp.Outcomes[0].State)
}

func TestPlanShortageOrders_RejectsBadInput(t *testing.T) {
	router := newTestRouter(t, memory.NewOrderStore())

	rec := do(t, router, http.MethodPost, "/v1/branches/abc/shortage-orders", `{"quantities":{}}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, apierrors.ContentTypeProblemJSON, rec.Header().Get("Content-Type"))

	rec = do(t, router, http.MethodPost, "/v1/branches/1/shortage-orders", `{"quantities":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, router, http.MethodPost, "/v1/branches/0/shortage-orders", `{"quantities":{"1001":1}}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	var problem apierrors.ProblemDetail
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &problem))
	assert.Equal(t, apierrors.TypeValidation, problem.Type)
}

func TestPlanShortageOrders_PartialFailureIsMultiStatus(t *testing.T) {
	router := newTestRouter(t, failingInsertStore{OrderStore: memory.NewOrderStore(), failFor: 1001})

	rec := do(t, router, http.MethodPost, "/v1/branches/1/shortage-orders", `{"quantities":{"1001":3,"2002":8}}`)
	require.Equal(t, http.StatusMultiStatus, rec.Code, rec.Body.String())

	var resp mapper.PlanResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "FAILED", resp.Outcomes[0].State)
	assert.Equal(t, "PLACED", resp.Outcomes[1].State)
	require.NotNil(t, resp.Problem)
	assert.Equal(t, []any{float64(1001)}, resp.Problem.Extensions["failedProductIds"])
}

func TestPlanPeriodicOrders_UsesConfiguredScheduleAndToday(t *testing.T) {
	schedule := staticSchedule{1: {
		{ProductID: 1001, Quantity: 30, Days: domain.NewWeekdaySet(time.Monday)},
		{ProductID: 2002, Quantity: 5, Days: domain.NewWeekdaySet(time.Tuesday)},
	}}
	router := newTestRouter(t, memory.NewOrderStore(), WithSchedule(schedule))

	rec := do(t, router, http.MethodPost, "/v1/branches/1/periodic-orders", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp mapper.PlanResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Outcomes, 1)
	assert.Equal(t, int64(1001), resp.Outcomes[0].ProductID)
	assert.Equal(t, "PERIODIC", resp.Outcomes[0].Order.Kind)

	rec = do(t, router, http.MethodPost, "/v1/branches/1/periodic-orders", `{"weekday":"tue"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Outcomes, 1)
	assert.Equal(t, int64(2002), resp.Outcomes[0].ProductID)

	rec = do(t, router, http.MethodPost, "/v1/branches/1/periodic-orders", `{"weekday":"someday"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSweepPendingAndListOrders(t *testing.T) {
	router := newTestRouter(t, memory.NewOrderStore())

	rec := do(t, router, http.MethodPost, "/v1/branches/1/shortage-orders", `{"quantities":{"1001":3}}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, router, http.MethodGet, "/v1/branches/1/products/1001/pending", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var status mapper.PendingStatusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.True(t, status.Pending)
	require.NotNil(t, status.LastOrderDate)

	rec = do(t, router, http.MethodGet, "/v1/branches/1/orders?status=PENDING", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var views []mapper.OrderView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &views))
	require.Len(t, views, 1)
	assert.Equal(t, int64(3), views[0].NeededQuantity)
	assert.Nil(t, views[0].CurrentStock)

	rec = do(t, router, http.MethodPost, "/v1/branches/1/sweep", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var sweep mapper.SweepResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &sweep))
	assert.Equal(t, int64(1), sweep.Delivered)
	assert.True(t, sweep.CompletedAt.Equal(monday))

	rec = do(t, router, http.MethodGet, "/v1/branches/1/products/1001/pending", "")
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.False(t, status.Pending)

	rec = do(t, router, http.MethodGet, "/v1/branches/1/orders?status=SHIPPED", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHealthz(t *testing.T) {
	router := newTestRouter(t, memory.NewOrderStore())
	rec := do(t, router, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
}
