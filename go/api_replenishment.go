package replenishmentserver

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/oapi-codegen/runtime"

	"github.com/Apurer/replenishment-engine/internal/domains/procurement/adapters/http/mapper"
	"github.com/Apurer/replenishment-engine/internal/domains/procurement/domain"
	"github.com/Apurer/replenishment-engine/internal/domains/procurement/ports"
)

// ScheduleSource supplies the configured periodic schedule of a branch.
type ScheduleSource interface {
	For(branchID int64) []domain.ScheduledDemand
}

// ReplenishmentAPI wires HTTP transport with the planner and its workflows.
type ReplenishmentAPI struct {
	service   ports.Service
	workflows ports.WorkflowOrchestrator
	schedule  ScheduleSource
	now       func() time.Time
}

type APIOption func(*ReplenishmentAPI)

// WithSchedule sets the schedule used when a periodic request carries none.
func WithSchedule(schedule ScheduleSource) APIOption {
	return func(api *ReplenishmentAPI) {
		api.schedule = schedule
	}
}

// WithClock overrides the time source that resolves "today".
func WithClock(now func() time.Time) APIOption {
	return func(api *ReplenishmentAPI) {
		if now != nil {
			api.now = now
		}
	}
}

// NewReplenishmentAPI creates a ReplenishmentAPI backed by the provided service.
// workflows may be nil, in which case scheduled cycles run on the service directly.
func NewReplenishmentAPI(service ports.Service, workflows ports.WorkflowOrchestrator, opts ...APIOption) ReplenishmentAPI {
	api := ReplenishmentAPI{service: service, workflows: workflows, now: time.Now}
	for _, opt := range opts {
		if opt != nil {
			opt(&api)
		}
	}
	return api
}

// Post /v1/branches/:branchId/shortage-orders
// Places orders for the products a branch has run short of
func (api *ReplenishmentAPI) PlanShortageOrders(c *gin.Context) {
	branchID, ok := bindPathID(c, "branchId")
	if !ok {
		return
	}
	var payload mapper.ShortageRequest
	if err := c.ShouldBindJSON(&payload); err != nil {
		respondBadRequest(c, err)
		return
	}
	result, err := api.service.PlanShortageOrders(c.Request.Context(), mapper.ToShortageDemand(branchID, payload))
	respondPlan(c, result, err)
}

// Post /v1/branches/:branchId/periodic-orders
// Places the periodic orders scheduled for a weekday
func (api *ReplenishmentAPI) PlanPeriodicOrders(c *gin.Context) {
	branchID, ok := bindPathID(c, "branchId")
	if !ok {
		return
	}
	var payload mapper.PeriodicRequest
	if err := c.ShouldBindJSON(&payload); err != nil && !errors.Is(err, io.EOF) {
		respondBadRequest(c, err)
		return
	}
	var fallback []domain.ScheduledDemand
	if api.schedule != nil {
		fallback = api.schedule.For(branchID)
	}
	demand, err := mapper.ToPeriodicDemand(branchID, payload, fallback, api.now())
	if err != nil {
		respondBadRequest(c, err)
		return
	}
	result, err := api.planPeriodic(c.Request.Context(), demand)
	respondPlan(c, result, err)
}

func (api *ReplenishmentAPI) planPeriodic(ctx context.Context, demand domain.PeriodicDemand) (*ports.PlanResult, error) {
	if api.workflows != nil {
		return api.workflows.PlanPeriodic(ctx, demand)
	}
	return api.service.PlanPeriodicOrders(ctx, demand)
}

// Post /v1/branches/:branchId/sweep
// Marks every pending order of the branch as delivered
func (api *ReplenishmentAPI) SweepBranch(c *gin.Context) {
	branchID, ok := bindPathID(c, "branchId")
	if !ok {
		return
	}
	result, err := api.sweep(c.Request.Context(), branchID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, mapper.FromSweepResult(result))
}

func (api *ReplenishmentAPI) sweep(ctx context.Context, branchID int64) (*ports.SweepResult, error) {
	if api.workflows != nil {
		return api.workflows.SweepBranch(ctx, branchID)
	}
	return api.service.MarkAllPendingProcessed(ctx, branchID)
}

// Get /v1/branches/:branchId/products/:productId/pending
// Reports whether a product has a pending order at the branch
func (api *ReplenishmentAPI) GetPendingStatus(c *gin.Context) {
	branchID, ok := bindPathID(c, "branchId")
	if !ok {
		return
	}
	productID, ok := bindPathID(c, "productId")
	if !ok {
		return
	}
	status, err := api.service.PendingStatus(c.Request.Context(), productID, branchID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, mapper.FromPendingStatus(status))
}

// Get /v1/branches/:branchId/orders
// Lists the orders of a branch, optionally filtered by status and kind
func (api *ReplenishmentAPI) ListBranchOrders(c *gin.Context) {
	branchID, ok := bindPathID(c, "branchId")
	if !ok {
		return
	}
	filter := ports.OrderFilter{BranchID: branchID}
	var status, kind string
	if err := runtime.BindQueryParameter("form", true, false, "status", c.Request.URL.Query(), &status); err != nil {
		respondBadRequest(c, err)
		return
	}
	if err := runtime.BindQueryParameter("form", true, false, "kind", c.Request.URL.Query(), &kind); err != nil {
		respondBadRequest(c, err)
		return
	}
	filter.Status = domain.Status(status)
	filter.Kind = domain.Kind(kind)
	views, err := api.service.ListOrders(c.Request.Context(), filter)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, mapper.FromOrderViews(views))
}

func bindPathID(c *gin.Context, name string) (int64, bool) {
	var id int64
	err := runtime.BindStyledParameterWithOptions("simple", name, c.Param(name), &id,
		runtime.BindStyledParameterOptions{ParamLocation: runtime.ParamLocationPath, Explode: false, Required: true})
	if err != nil {
		respondBadRequest(c, err)
		return 0, false
	}
	return id, true
}
