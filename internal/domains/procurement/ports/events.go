package ports

import (
	"context"
	"time"
)

// OrderPlaced is emitted after an order has been persisted.
type OrderPlaced struct {
	OrderID         int64     `json:"orderId"`
	Kind            string    `json:"kind"`
	ProductID       int64     `json:"productId"`
	BranchID        int64     `json:"branchId"`
	SupplierID      int64     `json:"supplierId"`
	SupplierName    string    `json:"supplierName"`
	Quantity        int64     `json:"quantity"`
	BasePrice       string    `json:"basePrice"`
	DiscountPercent string    `json:"discountPercent"`
	OrderDate       time.Time `json:"orderDate"`
}

// EventPublisher delivers order events to interested operators.
type EventPublisher interface {
	PublishOrderPlaced(ctx context.Context, event OrderPlaced) error
}
