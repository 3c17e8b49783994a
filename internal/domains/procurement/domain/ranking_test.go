package domain

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func offer(supplierID int64, price int64, minQty int64, pct int64) SupplierOffer {
	return SupplierOffer{
		ProductID:    1001,
		SupplierID:   supplierID,
		AgreementID:  supplierID * 10,
		SupplierName: "supplier",
		BasePrice:    decimal.NewFromInt(price),
		DiscountTiers: []DiscountTier{
			{MinQuantity: minQty, DiscountPercent: decimal.NewFromInt(pct)},
		},
	}
}

func referenceOffers() []SupplierOffer {
	return []SupplierOffer{
		offer(3, 100, 10, 20),
		offer(1, 70, 20, 5),
		offer(2, 80, 5, 10),
	}
}

func TestSelectBestOffer_SmallOrderPicksCheapestBase(t *testing.T) {
	ranker := NewOfferRanker(nil)

	best, ok, err := ranker.SelectBestOffer(referenceOffers(), 3)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, int64(1), best.SupplierID)
	require.True(t, best.UnitPrice.Equal(decimal.NewFromInt(70)))
	require.True(t, best.DiscountPercent.IsZero())
	require.True(t, best.EffectivePrice.Equal(decimal.NewFromInt(70)))
}

func TestSelectBestOffer_LargeOrderAppliesTiers(t *testing.T) {
	ranker := NewOfferRanker(nil)

	best, ok, err := ranker.SelectBestOffer(referenceOffers(), 25)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, int64(1), best.SupplierID)
	require.True(t, best.DiscountPercent.Equal(decimal.NewFromInt(5)))
	require.True(t, best.EffectivePrice.Equal(decimal.RequireFromString("66.5")))
	require.Equal(t, int64(10), best.AgreementID)
}

func TestSelectBestOffer_Empty(t *testing.T) {
	_, ok, err := NewOfferRanker(nil).SelectBestOffer(nil, 5)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestSelectBestOffer_InvalidQuantity(t *testing.T) {
	_, _, err := NewOfferRanker(nil).SelectBestOffer(referenceOffers(), 0)
	require.ErrorIs(t, err, ErrInvalidQuantity)
}

func TestSelectBestOffer_TieBreaks(t *testing.T) {
	ranker := NewOfferRanker(MinEffectivePrice{})

	// 100 at 10% and 90 at 0% both cost 90; the lower base price wins.
	offers := []SupplierOffer{offer(1, 100, 1, 10), offer(2, 90, 50, 10)}
	best, ok, err := ranker.SelectBestOffer(offers, 5)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, int64(2), best.SupplierID)

	// identical terms: lowest supplier id wins regardless of input order.
	offers = []SupplierOffer{offer(9, 50, 100, 10), offer(4, 50, 100, 10), offer(7, 50, 100, 10)}
	best, ok, err = ranker.SelectBestOffer(offers, 5)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, int64(4), best.SupplierID)
}

func TestSelectBestOffer_PreferTierMetPolicy(t *testing.T) {
	offers := referenceOffers()

	// at 6 units only the 80-priced supplier's tier fires (72 effective),
	// while the 70-priced offer is cheaper undiscounted.
	best, ok, err := NewOfferRanker(MinEffectivePrice{}).SelectBestOffer(offers, 6)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, int64(1), best.SupplierID)

	best, ok, err = NewOfferRanker(PreferTierMet{}).SelectBestOffer(offers, 6)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, int64(2), best.SupplierID)
	require.True(t, best.TierApplied)

	// with no tier met both policies agree.
	best, _, err = NewOfferRanker(PreferTierMet{}).SelectBestOffer(offers, 3)
	require.NoError(t, err)
	require.Equal(t, int64(1), best.SupplierID)
}

func TestSelectBestOffer_ZeroPercentTierStillCountsAsMet(t *testing.T) {
	offers := []SupplierOffer{
		offer(5, 90, 10, 0),
		offer(6, 60, 50, 15),
	}

	best, ok, err := NewOfferRanker(PreferTierMet{}).SelectBestOffer(offers, 12)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, int64(5), best.SupplierID)
	require.True(t, best.TierApplied)
	require.True(t, best.DiscountPercent.IsZero())

	best, _, err = NewOfferRanker(MinEffectivePrice{}).SelectBestOffer(offers, 12)
	require.NoError(t, err)
	require.Equal(t, int64(6), best.SupplierID)
	require.False(t, best.TierApplied)
}

func TestParseRankingPolicy(t *testing.T) {
	p, err := ParseRankingPolicy("")
	require.NoError(t, err)
	require.Equal(t, PolicyMinEffectivePrice, p.Name())

	p, err = ParseRankingPolicy(" Prefer-Tier-Met ")
	require.NoError(t, err)
	require.Equal(t, PolicyPreferTierMet, p.Name())

	_, err = ParseRankingPolicy("cheapest-ish")
	require.ErrorIs(t, err, ErrUnknownRankingPolicy)
}
