package application

import (
	"context"
	"time"

	"github.com/Apurer/replenishment-engine/internal/domains/procurement/ports"
)

// Guard answers duplicate-prevention queries over persisted order status.
type Guard struct {
	store ports.OrderStore
	now   func() time.Time
}

// NewGuard wires the guard; now defaults to time.Now.
func NewGuard(store ports.OrderStore, now func() time.Time) *Guard {
	if now == nil {
		now = time.Now
	}
	return &Guard{store: store, now: now}
}

// HasPendingOrder reports whether the product has a PENDING order at the branch.
func (g *Guard) HasPendingOrder(ctx context.Context, productID, branchID int64) (bool, error) {
	return g.store.HasPending(ctx, productID, branchID)
}

// MarkAllPendingProcessed closes the branch's processing cycle: every
// pending order becomes DELIVERED with the current time as completion date.
// It does not check physical delivery.
func (g *Guard) MarkAllPendingProcessed(ctx context.Context, branchID int64) (*ports.SweepResult, error) {
	at := g.now()
	n, err := g.store.MarkAllPendingDelivered(ctx, branchID, at)
	if err != nil {
		return nil, err
	}
	return &ports.SweepResult{BranchID: branchID, Delivered: n, CompletedAt: at}, nil
}

// LastOrderDate returns the most recent order date for the pair.
func (g *Guard) LastOrderDate(ctx context.Context, productID, branchID int64) (time.Time, bool, error) {
	return g.store.LastOrderDate(ctx, productID, branchID)
}
