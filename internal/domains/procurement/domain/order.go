package domain

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// Status enumerates order progression.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusDelivered Status = "DELIVERED"
)

// Kind distinguishes how an order came to exist. All kinds share one shape.
type Kind string

const (
	KindShortage Kind = "SHORTAGE"
	KindPeriodic Kind = "PERIODIC"
	KindOnTheWay Kind = "ON_THE_WAY"
)

var (
	ErrInvalidBranchID  = errors.New("branch id must be greater than zero")
	ErrInvalidStatus    = errors.New("order status is invalid")
	ErrInvalidKind      = errors.New("order kind is invalid")
	ErrAlreadyDelivered = errors.New("order already delivered")
	ErrMissingOrderDate = errors.New("order date is required")
	ErrInvalidDiscount  = errors.New("discount percent must be between 0 and 100")
	ErrMissingSupplier  = errors.New("order must reference a supplier")
)

// Order is a persisted replenishment order.
type Order struct {
	ID              int64
	Kind            Kind
	ProductID       int64
	Quantity        int64
	BasePrice       decimal.Decimal
	DiscountPercent decimal.Decimal
	OrderDate       time.Time
	BranchID        int64
	SupplierID      int64
	SupplierName    string
	AgreementID     int64
	Status          Status
	CompletionDate  *time.Time
}

// NewPendingOrder builds the order placed for a resolved request line.
func NewPendingOrder(kind Kind, line OrderRequestLine, offer ResolvedOffer, orderDate time.Time) (*Order, error) {
	order := &Order{
		Kind:            kind,
		ProductID:       line.ProductID,
		Quantity:        line.Quantity,
		BasePrice:       offer.UnitPrice,
		DiscountPercent: offer.DiscountPercent,
		OrderDate:       orderDate,
		BranchID:        line.BranchID,
		SupplierID:      offer.SupplierID,
		SupplierName:    offer.SupplierName,
		AgreementID:     offer.AgreementID,
		Status:          StatusPending,
	}
	if err := order.Validate(); err != nil {
		return nil, err
	}
	return order, nil
}

// Validate enforces invariants on the aggregate.
func (o *Order) Validate() error {
	if o.ProductID <= 0 {
		return ErrInvalidProductID
	}
	if o.BranchID <= 0 {
		return ErrInvalidBranchID
	}
	if o.Quantity <= 0 {
		return ErrInvalidQuantity
	}
	if o.SupplierID <= 0 {
		return ErrMissingSupplier
	}
	if o.BasePrice.IsNegative() {
		return ErrNegativePrice
	}
	if o.DiscountPercent.IsNegative() || o.DiscountPercent.GreaterThan(hundred) {
		return ErrInvalidDiscount
	}
	if o.OrderDate.IsZero() {
		return ErrMissingOrderDate
	}
	if !IsValidKind(o.Kind) {
		return ErrInvalidKind
	}
	if !IsValidStatus(o.Status) {
		return ErrInvalidStatus
	}
	return nil
}

// MarkDelivered performs the one-way PENDING to DELIVERED transition.
func (o *Order) MarkDelivered(at time.Time) error {
	if o.Status == StatusDelivered {
		return ErrAlreadyDelivered
	}
	o.Status = StatusDelivered
	completed := at
	o.CompletionDate = &completed
	return nil
}

func (o *Order) IsPending() bool { return o.Status == StatusPending }

// EffectivePrice is the unit price after discount.
func (o *Order) EffectivePrice() decimal.Decimal {
	return EffectivePrice(o.BasePrice, o.DiscountPercent)
}

func IsValidStatus(status Status) bool {
	switch status {
	case StatusPending, StatusDelivered:
		return true
	default:
		return false
	}
}

func IsValidKind(kind Kind) bool {
	switch kind {
	case KindShortage, KindPeriodic, KindOnTheWay:
		return true
	default:
		return false
	}
}
