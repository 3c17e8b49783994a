package ports

import (
	"context"
	"time"

	"github.com/Apurer/replenishment-engine/internal/domains/procurement/domain"
)

// LineState is the terminal state a demand line reached in the planner.
type LineState string

const (
	LinePlaced    LineState = "PLACED"
	LineSkipped   LineState = "SKIPPED"
	LineDiscarded LineState = "DISCARDED"
	LineFailed    LineState = "FAILED"
)

// LineOutcome reports what happened to one demand line.
type LineOutcome struct {
	ProductID int64         `json:"productId"`
	Quantity  int64         `json:"quantity"`
	State     LineState     `json:"state"`
	Reason    error         `json:"-"`
	Detail    string        `json:"detail,omitempty"`
	Order     *domain.Order `json:"order,omitempty"`
}

// PlanResult summarizes a planning batch. Placed is true when at least one
// order was created. FailedProductIDs lists the lines whose order could not
// be stored, in the order they were attempted.
type PlanResult struct {
	BranchID         int64         `json:"branchId"`
	Placed           bool          `json:"placed"`
	Outcomes         []LineOutcome `json:"outcomes"`
	FailedProductIDs []int64       `json:"failedProductIds,omitempty"`
}

// Count returns how many lines ended in state.
func (r *PlanResult) Count(state LineState) int {
	if r == nil {
		return 0
	}
	n := 0
	for _, o := range r.Outcomes {
		if o.State == state {
			n++
		}
	}
	return n
}

// SweepResult describes an end-of-day sweep.
type SweepResult struct {
	BranchID    int64     `json:"branchId"`
	Delivered   int64     `json:"delivered"`
	CompletedAt time.Time `json:"completedAt"`
}

// PendingStatus answers the duplicate guard queries for one product/branch.
type PendingStatus struct {
	ProductID     int64      `json:"productId"`
	BranchID      int64      `json:"branchId"`
	Pending       bool       `json:"pending"`
	LastOrderDate *time.Time `json:"lastOrderDate,omitempty"`
}

// OrderView is the read model handed to callers. NeededQuantity defaults to
// the ordered quantity; CurrentStock is nil when stock is unknown.
type OrderView struct {
	Order          *domain.Order `json:"order"`
	NeededQuantity int64         `json:"neededQuantity"`
	CurrentStock   *int64        `json:"currentStock,omitempty"`
}

// Service exposes replenishment planning use cases to adapters.
type Service interface {
	PlanShortageOrders(ctx context.Context, demand domain.ShortageDemand) (*PlanResult, error)
	PlanPeriodicOrders(ctx context.Context, demand domain.PeriodicDemand) (*PlanResult, error)
	MarkAllPendingProcessed(ctx context.Context, branchID int64) (*SweepResult, error)
	PendingStatus(ctx context.Context, productID, branchID int64) (*PendingStatus, error)
	ListOrders(ctx context.Context, filter OrderFilter) ([]OrderView, error)
}
