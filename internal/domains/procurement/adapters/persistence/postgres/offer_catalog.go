package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Apurer/replenishment-engine/internal/domains/procurement/domain"
	"github.com/Apurer/replenishment-engine/internal/domains/procurement/ports"
)

var _ ports.OfferCatalog = (*OfferCatalog)(nil)

// OfferCatalog reads supplier offers and their discount tiers from PostgreSQL.
type OfferCatalog struct {
	db *gorm.DB
}

func NewOfferCatalog(db *gorm.DB) *OfferCatalog {
	return &OfferCatalog{db: db}
}

type offerRecord struct {
	ID            int64           `gorm:"primaryKey;column:id;autoIncrement"`
	ProductID     int64           `gorm:"column:product_id;not null;uniqueIndex:uq_supplier_offers_key,priority:1"`
	SupplierID    int64           `gorm:"column:supplier_id;not null;uniqueIndex:uq_supplier_offers_key,priority:2"`
	AgreementID   int64           `gorm:"column:agreement_id;not null;uniqueIndex:uq_supplier_offers_key,priority:3"`
	SupplierName  string          `gorm:"column:supplier_name"`
	BasePrice     decimal.Decimal `gorm:"column:base_price;type:decimal(20,4);not null"`
	UnitOfMeasure string          `gorm:"column:unit_of_measure"`
	DeliveryDays  pq.StringArray  `gorm:"column:delivery_days;type:text[]"`
	Tiers         []tierRecord    `gorm:"foreignKey:OfferID;constraint:OnDelete:CASCADE"`
	CreatedAt     time.Time       `gorm:"column:created_at"`
	UpdatedAt     time.Time       `gorm:"column:updated_at"`
}

func (offerRecord) TableName() string { return "supplier_offers" }

type tierRecord struct {
	ID              int64           `gorm:"primaryKey;column:id;autoIncrement"`
	OfferID         int64           `gorm:"column:offer_id;not null;uniqueIndex:uq_offer_tiers_min,priority:1"`
	MinQuantity     int64           `gorm:"column:min_quantity;not null;uniqueIndex:uq_offer_tiers_min,priority:2"`
	DiscountPercent decimal.Decimal `gorm:"column:discount_percent;type:decimal(5,2);not null"`
}

func (tierRecord) TableName() string { return "supplier_offer_tiers" }

// OffersFor returns every offer for the product with tiers in ascending order.
func (c *OfferCatalog) OffersFor(ctx context.Context, productID int64) ([]domain.SupplierOffer, error) {
	if err := c.ensureDB(); err != nil {
		return nil, err
	}
	var records []offerRecord
	err := c.db.WithContext(ctx).
		Preload("Tiers", func(db *gorm.DB) *gorm.DB { return db.Order("min_quantity ASC") }).
		Where("product_id = ?", productID).
		Order("supplier_id ASC, agreement_id ASC").
		Find(&records).Error
	if err != nil {
		return nil, err
	}
	offers := make([]domain.SupplierOffer, 0, len(records))
	for _, rec := range records {
		offer, err := rec.toDomain()
		if err != nil {
			return nil, fmt.Errorf("offer %d: %w", rec.ID, err)
		}
		offers = append(offers, offer)
	}
	return offers, nil
}

// Put upserts an offer by its key and replaces its tiers.
func (c *OfferCatalog) Put(ctx context.Context, offer domain.SupplierOffer) error {
	if err := c.ensureDB(); err != nil {
		return err
	}
	if err := offer.Validate(); err != nil {
		return err
	}
	record := toOfferRecord(offer)
	return c.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Omit("Tiers").Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "product_id"}, {Name: "supplier_id"}, {Name: "agreement_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"supplier_name", "base_price", "unit_of_measure", "delivery_days", "updated_at"}),
		}).Create(&record).Error
		if err != nil {
			return err
		}
		var stored offerRecord
		if err := tx.Select("id").
			Where("product_id = ? AND supplier_id = ? AND agreement_id = ?", offer.ProductID, offer.SupplierID, offer.AgreementID).
			First(&stored).Error; err != nil {
			return err
		}
		if err := tx.Where("offer_id = ?", stored.ID).Delete(&tierRecord{}).Error; err != nil {
			return err
		}
		if len(record.Tiers) == 0 {
			return nil
		}
		for i := range record.Tiers {
			record.Tiers[i].OfferID = stored.ID
		}
		return tx.Create(&record.Tiers).Error
	})
}

func (c *OfferCatalog) ensureDB() error {
	if c == nil || c.db == nil {
		return errors.New("postgres offer catalog not configured")
	}
	return nil
}

func toOfferRecord(offer domain.SupplierOffer) offerRecord {
	tiers := make([]tierRecord, 0, len(offer.DiscountTiers))
	for _, t := range offer.DiscountTiers {
		tiers = append(tiers, tierRecord{MinQuantity: t.MinQuantity, DiscountPercent: t.DiscountPercent})
	}
	return offerRecord{
		ProductID:     offer.ProductID,
		SupplierID:    offer.SupplierID,
		AgreementID:   offer.AgreementID,
		SupplierName:  offer.SupplierName,
		BasePrice:     offer.BasePrice,
		UnitOfMeasure: offer.UnitOfMeasure,
		DeliveryDays:  pq.StringArray(offer.DeliveryDays.Names()),
		Tiers:         tiers,
	}
}

func (r offerRecord) toDomain() (domain.SupplierOffer, error) {
	days, err := domain.ParseWeekdaySet(r.DeliveryDays)
	if err != nil {
		return domain.SupplierOffer{}, err
	}
	tiers := make([]domain.DiscountTier, 0, len(r.Tiers))
	for _, t := range r.Tiers {
		tiers = append(tiers, domain.DiscountTier{MinQuantity: t.MinQuantity, DiscountPercent: t.DiscountPercent})
	}
	return domain.SupplierOffer{
		ProductID:     r.ProductID,
		SupplierID:    r.SupplierID,
		AgreementID:   r.AgreementID,
		SupplierName:  r.SupplierName,
		BasePrice:     r.BasePrice,
		UnitOfMeasure: r.UnitOfMeasure,
		DeliveryDays:  days,
		DiscountTiers: tiers,
	}, nil
}
