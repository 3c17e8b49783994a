package migrations

import (
	"time"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Run applies the replenishment schema.
func Run(db *gorm.DB) error {
	if db == nil {
		return nil
	}
	return db.AutoMigrate(
		&offerRecord{},
		&tierRecord{},
		&orderRecord{},
	)
}

// Offer schema mirrors the procurement offer catalog adapter.
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

// Order schema mirrors the procurement order store adapter. The partial
// unique index allows one PENDING order per product and branch.
type orderRecord struct {
	ID              int64           `gorm:"primaryKey;column:id;autoIncrement"`
	Kind            string          `gorm:"column:kind;type:varchar(16);not null"`
	ProductID       int64           `gorm:"column:product_id;not null;index:idx_replenishment_orders_pair,priority:1;uniqueIndex:uq_replenishment_orders_pending,priority:1,where:status = 'PENDING'"`
	BranchID        int64           `gorm:"column:branch_id;not null;index:idx_replenishment_orders_pair,priority:2;uniqueIndex:uq_replenishment_orders_pending,priority:2"`
	Quantity        int64           `gorm:"column:quantity;not null"`
	BasePrice       decimal.Decimal `gorm:"column:base_price;type:decimal(20,4);not null"`
	DiscountPercent decimal.Decimal `gorm:"column:discount_percent;type:decimal(5,2);not null"`
	OrderDate       time.Time       `gorm:"column:order_date;not null;index"`
	SupplierID      int64           `gorm:"column:supplier_id;not null"`
	SupplierName    string          `gorm:"column:supplier_name"`
	AgreementID     int64           `gorm:"column:agreement_id"`
	Status          string          `gorm:"column:status;type:varchar(16);not null;index"`
	CompletionDate  *time.Time      `gorm:"column:completion_date"`
	CreatedAt       time.Time       `gorm:"column:created_at"`
	UpdatedAt       time.Time       `gorm:"column:updated_at"`
}

func (orderRecord) TableName() string { return "replenishment_orders" }
