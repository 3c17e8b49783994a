package domain

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	ErrInvalidProductID   = errors.New("product id must be greater than zero")
	ErrInvalidSupplierID  = errors.New("supplier id must be greater than zero")
	ErrNegativePrice      = errors.New("base price must not be negative")
	ErrInvalidTier        = errors.New("discount tier is invalid")
	ErrTiersNotIncreasing = errors.New("discount tiers must have strictly increasing minimum quantities")
)

var hundred = decimal.NewFromInt(100)

// DiscountTier grants DiscountPercent once the ordered quantity reaches MinQuantity.
type DiscountTier struct {
	MinQuantity     int64
	DiscountPercent decimal.Decimal
}

// SupplierOffer is a supplier's price and terms for a product under one agreement.
type SupplierOffer struct {
	ProductID     int64
	SupplierID    int64
	AgreementID   int64
	SupplierName  string
	BasePrice     decimal.Decimal
	UnitOfMeasure string
	DeliveryDays  WeekdaySet
	DiscountTiers []DiscountTier
}

// OfferKey identifies an offer; at most one offer exists per key.
type OfferKey struct {
	ProductID   int64
	SupplierID  int64
	AgreementID int64
}

func (o SupplierOffer) Key() OfferKey {
	return OfferKey{ProductID: o.ProductID, SupplierID: o.SupplierID, AgreementID: o.AgreementID}
}

// Validate enforces the offer invariants.
func (o SupplierOffer) Validate() error {
	if o.ProductID <= 0 {
		return ErrInvalidProductID
	}
	if o.SupplierID <= 0 {
		return ErrInvalidSupplierID
	}
	if o.BasePrice.IsNegative() {
		return ErrNegativePrice
	}
	var prev int64
	for i, tier := range o.DiscountTiers {
		if tier.MinQuantity <= 0 || tier.DiscountPercent.IsNegative() || tier.DiscountPercent.GreaterThan(hundred) {
			return fmt.Errorf("%w: tier %d (min %d, %s%%)", ErrInvalidTier, i, tier.MinQuantity, tier.DiscountPercent)
		}
		if i > 0 && tier.MinQuantity <= prev {
			return ErrTiersNotIncreasing
		}
		prev = tier.MinQuantity
	}
	return nil
}
