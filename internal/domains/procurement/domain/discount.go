package domain

import (
	"errors"

	"github.com/shopspring/decimal"
)

var ErrInvalidQuantity = errors.New("quantity must be greater than zero")

// ResolveDiscount returns the discount percent of the tier with the largest
// minimum quantity not exceeding quantity, or zero when no tier qualifies.
func ResolveDiscount(offer SupplierOffer, quantity int64) (decimal.Decimal, error) {
	if quantity <= 0 {
		return decimal.Zero, ErrInvalidQuantity
	}
	tier, ok := reachedTier(offer, quantity)
	if !ok {
		return decimal.Zero, nil
	}
	return tier.DiscountPercent, nil
}

// reachedTier picks the tier with the largest minimum quantity not exceeding
// quantity. A reached tier may carry a zero discount.
func reachedTier(offer SupplierOffer, quantity int64) (DiscountTier, bool) {
	var (
		best  DiscountTier
		found bool
	)
	for _, tier := range offer.DiscountTiers {
		if tier.MinQuantity <= quantity && (!found || tier.MinQuantity > best.MinQuantity) {
			best = tier
			found = true
		}
	}
	return best, found
}

// EffectivePrice applies discountPercent to basePrice.
func EffectivePrice(basePrice, discountPercent decimal.Decimal) decimal.Decimal {
	return basePrice.Mul(decimal.NewFromInt(1).Sub(discountPercent.Div(hundred)))
}
