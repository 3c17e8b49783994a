package yamlfile

import (
	"fmt"
	"os"

	"github.com/shopspring/decimal"

	"github.com/Apurer/replenishment-engine/internal/domains/procurement/domain"
)

type catalogDocument struct {
	Offers []offerDocument `yaml:"offers"`
}

type offerDocument struct {
	ProductID     int64          `yaml:"productId"`
	SupplierID    int64          `yaml:"supplierId"`
	AgreementID   int64          `yaml:"agreementId"`
	SupplierName  string         `yaml:"supplierName"`
	BasePrice     string         `yaml:"basePrice"`
	UnitOfMeasure string         `yaml:"unitOfMeasure"`
	DeliveryDays  []string       `yaml:"deliveryDays"`
	DiscountTiers []tierDocument `yaml:"discountTiers"`
}

type tierDocument struct {
	MinQuantity     int64  `yaml:"minQuantity"`
	DiscountPercent string `yaml:"discountPercent"`
}

// LoadCatalog reads supplier offers used to seed a catalog. Prices and
// percentages are quoted strings so they keep their exact decimal value.
func LoadCatalog(path string) ([]domain.SupplierOffer, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog file: %w", err)
	}
	return ParseCatalog(data)
}

func ParseCatalog(data []byte) ([]domain.SupplierOffer, error) {
	var doc catalogDocument
	if err := decodeStrict(data, &doc); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	offers := make([]domain.SupplierOffer, 0, len(doc.Offers))
	seen := make(map[domain.OfferKey]struct{}, len(doc.Offers))
	for i, o := range doc.Offers {
		offer, err := o.toDomain()
		if err != nil {
			return nil, fmt.Errorf("catalog offer %d: %w", i, err)
		}
		if err := offer.Validate(); err != nil {
			return nil, fmt.Errorf("catalog offer %d: %w", i, err)
		}
		if _, dup := seen[offer.Key()]; dup {
			return nil, fmt.Errorf("catalog offer %d: duplicate key %+v", i, offer.Key())
		}
		seen[offer.Key()] = struct{}{}
		offers = append(offers, offer)
	}
	return offers, nil
}

func (o offerDocument) toDomain() (domain.SupplierOffer, error) {
	price, err := decimal.NewFromString(o.BasePrice)
	if err != nil {
		return domain.SupplierOffer{}, fmt.Errorf("base price %q: %w", o.BasePrice, err)
	}
	days, err := domain.ParseWeekdaySet(o.DeliveryDays)
	if err != nil {
		return domain.SupplierOffer{}, err
	}
	tiers := make([]domain.DiscountTier, 0, len(o.DiscountTiers))
	for _, t := range o.DiscountTiers {
		pct, err := decimal.NewFromString(t.DiscountPercent)
		if err != nil {
			return domain.SupplierOffer{}, fmt.Errorf("discount percent %q: %w", t.DiscountPercent, err)
		}
		tiers = append(tiers, domain.DiscountTier{MinQuantity: t.MinQuantity, DiscountPercent: pct})
	}
	return domain.SupplierOffer{
		ProductID:     o.ProductID,
		SupplierID:    o.SupplierID,
		AgreementID:   o.AgreementID,
		SupplierName:  o.SupplierName,
		BasePrice:     price,
		UnitOfMeasure: o.UnitOfMeasure,
		DeliveryDays:  days,
		DiscountTiers: tiers,
	}, nil
}
