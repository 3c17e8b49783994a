package ports

import (
	"context"

	"github.com/Apurer/replenishment-engine/internal/domains/procurement/domain"
)

// OfferCatalog exposes the supplier offers for a product. An unknown product
// yields an empty slice, not an error.
type OfferCatalog interface {
	OffersFor(ctx context.Context, productID int64) ([]domain.SupplierOffer, error)
}
