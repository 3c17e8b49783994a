package domain

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

var ErrUnknownRankingPolicy = errors.New("unknown ranking policy")

// ResolvedOffer is the winning offer for a requested quantity. UnitPrice is
// the offer's base price; DiscountPercent is the tier applicable at the
// requested quantity.
type ResolvedOffer struct {
	ProductID       int64
	SupplierID      int64
	AgreementID     int64
	SupplierName    string
	UnitPrice       decimal.Decimal
	DiscountPercent decimal.Decimal
	EffectivePrice  decimal.Decimal
	DeliveryDays    WeekdaySet
	TierApplied     bool
}

// RankingPolicy orders candidate offers; Less reports whether a beats b.
type RankingPolicy interface {
	Name() string
	Less(a, b ResolvedOffer) bool
}

const (
	PolicyMinEffectivePrice = "min-effective-price"
	PolicyPreferTierMet     = "prefer-tier-met"
)

// MinEffectivePrice picks the lowest effective price, breaking exact ties by
// lower base price, then lower supplier id, then lower agreement id.
type MinEffectivePrice struct{}

func (MinEffectivePrice) Name() string { return PolicyMinEffectivePrice }

func (MinEffectivePrice) Less(a, b ResolvedOffer) bool {
	if c := a.EffectivePrice.Cmp(b.EffectivePrice); c != 0 {
		return c < 0
	}
	if c := a.UnitPrice.Cmp(b.UnitPrice); c != 0 {
		return c < 0
	}
	if a.SupplierID != b.SupplierID {
		return a.SupplierID < b.SupplierID
	}
	return a.AgreementID < b.AgreementID
}

// PreferTierMet favours offers whose discount tier fires at the requested
// quantity, even over a cheaper undiscounted offer. Within each group it
// falls back to MinEffectivePrice.
type PreferTierMet struct{}

func (PreferTierMet) Name() string { return PolicyPreferTierMet }

func (PreferTierMet) Less(a, b ResolvedOffer) bool {
	if a.TierApplied != b.TierApplied {
		return a.TierApplied
	}
	return MinEffectivePrice{}.Less(a, b)
}

// ParseRankingPolicy maps a configuration value to a policy. Empty selects
// MinEffectivePrice.
func ParseRankingPolicy(name string) (RankingPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", PolicyMinEffectivePrice:
		return MinEffectivePrice{}, nil
	case PolicyPreferTierMet:
		return PreferTierMet{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownRankingPolicy, name)
	}
}

// OfferRanker selects the best supplier offer for a quantity.
type OfferRanker struct {
	policy RankingPolicy
}

// NewOfferRanker uses MinEffectivePrice when policy is nil.
func NewOfferRanker(policy RankingPolicy) *OfferRanker {
	if policy == nil {
		policy = MinEffectivePrice{}
	}
	return &OfferRanker{policy: policy}
}

func (r *OfferRanker) Policy() RankingPolicy { return r.policy }

// Resolve prices a single offer at quantity.
func Resolve(offer SupplierOffer, quantity int64) (ResolvedOffer, error) {
	discount, err := ResolveDiscount(offer, quantity)
	if err != nil {
		return ResolvedOffer{}, err
	}
	_, tierMet := reachedTier(offer, quantity)
	return ResolvedOffer{
		ProductID:       offer.ProductID,
		SupplierID:      offer.SupplierID,
		AgreementID:     offer.AgreementID,
		SupplierName:    offer.SupplierName,
		UnitPrice:       offer.BasePrice,
		DiscountPercent: discount,
		EffectivePrice:  EffectivePrice(offer.BasePrice, discount),
		DeliveryDays:    offer.DeliveryDays,
		TierApplied:     tierMet,
	}, nil
}

// SelectBestOffer returns false when offers is empty, meaning no supplier
// can serve the product.
func (r *OfferRanker) SelectBestOffer(offers []SupplierOffer, quantity int64) (ResolvedOffer, bool, error) {
	if quantity <= 0 {
		return ResolvedOffer{}, false, ErrInvalidQuantity
	}
	var (
		best  ResolvedOffer
		found bool
	)
	for _, offer := range offers {
		candidate, err := Resolve(offer, quantity)
		if err != nil {
			return ResolvedOffer{}, false, err
		}
		if !found || r.policy.Less(candidate, best) {
			best = candidate
			found = true
		}
	}
	return best, found, nil
}
