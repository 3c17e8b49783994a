package ports

import (
	"context"
	"errors"
	"time"

	"github.com/Apurer/replenishment-engine/internal/domains/procurement/domain"
)

var (
	ErrNotFound = errors.New("order not found")
	// ErrPendingOrderExists is returned by OrderStore.Insert when the
	// product already has a pending order at the branch.
	ErrPendingOrderExists = errors.New("pending order already exists for product and branch")
)

// OrderFilter narrows List results. Zero values match everything.
type OrderFilter struct {
	BranchID  int64
	ProductID int64
	Status    domain.Status
	Kind      domain.Kind
}

// OrderStore persists replenishment orders.
type OrderStore interface {
	// Insert stores a new order and assigns its ID. Inserting a PENDING
	// order is an atomic guard-and-insert: if another PENDING order exists
	// for the same product and branch, ErrPendingOrderExists is returned
	// and nothing is written.
	Insert(ctx context.Context, order *domain.Order) (*domain.Order, error)
	Update(ctx context.Context, order *domain.Order) (*domain.Order, error)
	GetByID(ctx context.Context, id int64) (*domain.Order, error)
	List(ctx context.Context, filter OrderFilter) ([]*domain.Order, error)
	HasPending(ctx context.Context, productID, branchID int64) (bool, error)
	// MarkAllPendingDelivered transitions every pending order of the branch
	// in one all-or-nothing step and returns how many changed.
	MarkAllPendingDelivered(ctx context.Context, branchID int64, at time.Time) (int64, error)
	// LastOrderDate reports false when the pair has never been ordered.
	LastOrderDate(ctx context.Context, productID, branchID int64) (time.Time, bool, error)
}
