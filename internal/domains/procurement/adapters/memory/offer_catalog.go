package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/Apurer/replenishment-engine/internal/domains/procurement/domain"
	"github.com/Apurer/replenishment-engine/internal/domains/procurement/ports"
)

var _ ports.OfferCatalog = (*OfferCatalog)(nil)

// OfferCatalog keeps supplier offers in memory, keyed by product, supplier
// and agreement.
type OfferCatalog struct {
	mu     sync.RWMutex
	offers map[domain.OfferKey]domain.SupplierOffer
}

func NewOfferCatalog(offers ...domain.SupplierOffer) *OfferCatalog {
	c := &OfferCatalog{offers: map[domain.OfferKey]domain.SupplierOffer{}}
	for _, o := range offers {
		c.offers[o.Key()] = cloneOffer(o)
	}
	return c
}

// Put adds or replaces the offer with the same key.
func (c *OfferCatalog) Put(offer domain.SupplierOffer) error {
	if err := offer.Validate(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.offers[offer.Key()] = cloneOffer(offer)
	return nil
}

func (c *OfferCatalog) OffersFor(_ context.Context, productID int64) ([]domain.SupplierOffer, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var result []domain.SupplierOffer
	for key, offer := range c.offers {
		if key.ProductID == productID {
			result = append(result, cloneOffer(offer))
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].SupplierID != result[j].SupplierID {
			return result[i].SupplierID < result[j].SupplierID
		}
		return result[i].AgreementID < result[j].AgreementID
	})
	return result, nil
}

func cloneOffer(offer domain.SupplierOffer) domain.SupplierOffer {
	offer.DiscountTiers = append([]domain.DiscountTier(nil), offer.DiscountTiers...)
	return offer
}
