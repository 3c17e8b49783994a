package mapper

import (
	"time"

	"github.com/Apurer/replenishment-engine/internal/domains/procurement/domain"
	"github.com/Apurer/replenishment-engine/internal/domains/procurement/ports"
	apierrors "github.com/Apurer/replenishment-engine/internal/shared/errors"
)

// ShortageRequest carries product id to needed quantity. JSON object keys
// are decimal product ids.
type ShortageRequest struct {
	Quantities map[int64]int64 `json:"quantities"`
}

// ScheduleItem is one periodic schedule entry on the wire.
type ScheduleItem struct {
	ProductID int64    `json:"productId"`
	Quantity  int64    `json:"quantity"`
	Days      []string `json:"days"`
}

// PeriodicRequest triggers periodic planning. An empty Weekday means today;
// an empty Schedule means the configured schedule of the branch.
type PeriodicRequest struct {
	Weekday  string         `json:"weekday,omitempty"`
	Schedule []ScheduleItem `json:"schedule,omitempty"`
}

// Order is the transport shape of a replenishment order.
type Order struct {
	ID              int64      `json:"id"`
	Kind            string     `json:"kind"`
	ProductID       int64      `json:"productId"`
	BranchID        int64      `json:"branchId"`
	Quantity        int64      `json:"quantity"`
	BasePrice       string     `json:"basePrice"`
	DiscountPercent string     `json:"discountPercent"`
	EffectivePrice  string     `json:"effectivePrice"`
	SupplierID      int64      `json:"supplierId"`
	SupplierName    string     `json:"supplierName,omitempty"`
	AgreementID     int64      `json:"agreementId,omitempty"`
	Status          string     `json:"status"`
	OrderDate       time.Time  `json:"orderDate"`
	CompletionDate  *time.Time `json:"completionDate,omitempty"`
}

type LineOutcome struct {
	ProductID int64  `json:"productId"`
	Quantity  int64  `json:"quantity"`
	State     string `json:"state"`
	Detail    string `json:"detail,omitempty"`
	Order     *Order `json:"order,omitempty"`
}

// PlanResponse lists every line outcome. Problem is set when some lines
// failed to persist.
type PlanResponse struct {
	BranchID int64                    `json:"branchId"`
	Placed   bool                     `json:"placed"`
	Outcomes []LineOutcome            `json:"outcomes"`
	Problem  *apierrors.ProblemDetail `json:"problem,omitempty"`
}

type SweepResponse struct {
	BranchID    int64     `json:"branchId"`
	Delivered   int64     `json:"delivered"`
	CompletedAt time.Time `json:"completedAt"`
}

type PendingStatusResponse struct {
	ProductID     int64      `json:"productId"`
	BranchID      int64      `json:"branchId"`
	Pending       bool       `json:"pending"`
	LastOrderDate *time.Time `json:"lastOrderDate,omitempty"`
}

// OrderView adds the planning context of an order. CurrentStock is omitted
// when unknown.
type OrderView struct {
	Order          Order  `json:"order"`
	NeededQuantity int64  `json:"neededQuantity"`
	CurrentStock   *int64 `json:"currentStock,omitempty"`
}

func ToShortageDemand(branchID int64, req ShortageRequest) domain.ShortageDemand {
	quantities := make(map[int64]int64, len(req.Quantities))
	for productID, qty := range req.Quantities {
		quantities[productID] = qty
	}
	return domain.ShortageDemand{BranchID: branchID, Quantities: quantities}
}

// ToPeriodicDemand resolves the weekday and schedule of a periodic request.
func ToPeriodicDemand(branchID int64, req PeriodicRequest, fallback []domain.ScheduledDemand, now time.Time) (domain.PeriodicDemand, error) {
	today := now.Weekday()
	if req.Weekday != "" {
		day, err := domain.ParseWeekday(req.Weekday)
		if err != nil {
			return domain.PeriodicDemand{}, err
		}
		today = day
	}
	schedule := fallback
	if len(req.Schedule) > 0 {
		schedule = make([]domain.ScheduledDemand, 0, len(req.Schedule))
		for _, item := range req.Schedule {
			days, err := domain.ParseWeekdaySet(item.Days)
			if err != nil {
				return domain.PeriodicDemand{}, err
			}
			schedule = append(schedule, domain.ScheduledDemand{ProductID: item.ProductID, Quantity: item.Quantity, Days: days})
		}
	}
	return domain.PeriodicDemand{BranchID: branchID, Schedule: schedule, Today: today}, nil
}

func FromDomainOrder(order *domain.Order) Order {
	if order == nil {
		return Order{}
	}
	return Order{
		ID:              order.ID,
		Kind:            string(order.Kind),
		ProductID:       order.ProductID,
		BranchID:        order.BranchID,
		Quantity:        order.Quantity,
		BasePrice:       order.BasePrice.StringFixed(2),
		DiscountPercent: order.DiscountPercent.String(),
		EffectivePrice:  order.EffectivePrice().StringFixed(2),
		SupplierID:      order.SupplierID,
		SupplierName:    order.SupplierName,
		AgreementID:     order.AgreementID,
		Status:          string(order.Status),
		OrderDate:       order.OrderDate,
		CompletionDate:  order.CompletionDate,
	}
}

func FromPlanResult(result *ports.PlanResult) PlanResponse {
	if result == nil {
		return PlanResponse{Outcomes: []LineOutcome{}}
	}
	resp := PlanResponse{BranchID: result.BranchID, Placed: result.Placed, Outcomes: make([]LineOutcome, 0, len(result.Outcomes))}
	for _, o := range result.Outcomes {
		line := LineOutcome{ProductID: o.ProductID, Quantity: o.Quantity, State: string(o.State), Detail: o.Detail}
		if o.Order != nil {
			order := FromDomainOrder(o.Order)
			line.Order = &order
		}
		resp.Outcomes = append(resp.Outcomes, line)
	}
	return resp
}

func FromSweepResult(result *ports.SweepResult) SweepResponse {
	if result == nil {
		return SweepResponse{}
	}
	return SweepResponse{BranchID: result.BranchID, Delivered: result.Delivered, CompletedAt: result.CompletedAt}
}

func FromPendingStatus(status *ports.PendingStatus) PendingStatusResponse {
	if status == nil {
		return PendingStatusResponse{}
	}
	return PendingStatusResponse{
		ProductID:     status.ProductID,
		BranchID:      status.BranchID,
		Pending:       status.Pending,
		LastOrderDate: status.LastOrderDate,
	}
}

func FromOrderViews(views []ports.OrderView) []OrderView {
	out := make([]OrderView, 0, len(views))
	for _, v := range views {
		out = append(out, OrderView{
			Order:          FromDomainOrder(v.Order),
			NeededQuantity: v.NeededQuantity,
			CurrentStock:   v.CurrentStock,
		})
	}
	return out
}
