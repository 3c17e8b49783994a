package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/Apurer/replenishment-engine/internal/domains/procurement/domain"
	"github.com/Apurer/replenishment-engine/internal/domains/procurement/ports"
)

var _ ports.OrderStore = (*OrderStore)(nil)

const uniqueViolation = "23505"

// OrderStore persists replenishment orders in PostgreSQL using GORM. The
// partial unique index uq_replenishment_orders_pending enforces a single
// pending order per product and branch.
type OrderStore struct {
	db *gorm.DB
}

// NewOrderStore wires a PostgreSQL-backed store. Caller manages DB lifecycle
// and schema migrations.
func NewOrderStore(db *gorm.DB) *OrderStore {
	return &OrderStore{db: db}
}

// orderRecord maps the order aggregate to a relational table.
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

// Insert relies on the partial unique index for the guard-and-insert.
func (s *OrderStore) Insert(ctx context.Context, order *domain.Order) (*domain.Order, error) {
	if err := s.ensureDB(); err != nil {
		return nil, err
	}
	if order == nil {
		return nil, errors.New("order is nil")
	}
	if err := order.Validate(); err != nil {
		return nil, err
	}
	record := toRecord(order)
	if err := s.db.WithContext(ctx).Create(&record).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, ports.ErrPendingOrderExists
		}
		return nil, err
	}
	return record.toDomain(), nil
}

// Update overwrites the mutable columns of an existing order.
func (s *OrderStore) Update(ctx context.Context, order *domain.Order) (*domain.Order, error) {
	if err := s.ensureDB(); err != nil {
		return nil, err
	}
	if order == nil {
		return nil, errors.New("order is nil")
	}
	if err := order.Validate(); err != nil {
		return nil, err
	}
	record := toRecord(order)
	result := s.db.WithContext(ctx).
		Model(&orderRecord{}).
		Where("id = ?", order.ID).
		Updates(map[string]any{
			"kind":             record.Kind,
			"product_id":       record.ProductID,
			"branch_id":        record.BranchID,
			"quantity":         record.Quantity,
			"base_price":       record.BasePrice,
			"discount_percent": record.DiscountPercent,
			"order_date":       record.OrderDate,
			"supplier_id":      record.SupplierID,
			"supplier_name":    record.SupplierName,
			"agreement_id":     record.AgreementID,
			"status":           record.Status,
			"completion_date":  record.CompletionDate,
			"updated_at":       gorm.Expr("NOW()"),
		})
	if result.Error != nil {
		if isUniqueViolation(result.Error) {
			return nil, ports.ErrPendingOrderExists
		}
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, ports.ErrNotFound
	}
	return s.GetByID(ctx, order.ID)
}

// GetByID fetches an order by identifier.
func (s *OrderStore) GetByID(ctx context.Context, id int64) (*domain.Order, error) {
	if err := s.ensureDB(); err != nil {
		return nil, err
	}
	var record orderRecord
	if err := s.db.WithContext(ctx).First(&record, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ports.ErrNotFound
		}
		return nil, err
	}
	return record.toDomain(), nil
}

// List returns matching orders ordered by id.
func (s *OrderStore) List(ctx context.Context, filter ports.OrderFilter) ([]*domain.Order, error) {
	if err := s.ensureDB(); err != nil {
		return nil, err
	}
	query := s.db.WithContext(ctx).Model(&orderRecord{})
	if filter.BranchID != 0 {
		query = query.Where("branch_id = ?", filter.BranchID)
	}
	if filter.ProductID != 0 {
		query = query.Where("product_id = ?", filter.ProductID)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", string(filter.Status))
	}
	if filter.Kind != "" {
		query = query.Where("kind = ?", string(filter.Kind))
	}
	var records []orderRecord
	if err := query.Order("id ASC").Find(&records).Error; err != nil {
		return nil, err
	}
	orders := make([]*domain.Order, 0, len(records))
	for i := range records {
		orders = append(orders, records[i].toDomain())
	}
	return orders, nil
}

func (s *OrderStore) HasPending(ctx context.Context, productID, branchID int64) (bool, error) {
	if err := s.ensureDB(); err != nil {
		return false, err
	}
	var count int64
	err := s.db.WithContext(ctx).
		Model(&orderRecord{}).
		Where("product_id = ? AND branch_id = ? AND status = ?", productID, branchID, string(domain.StatusPending)).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// MarkAllPendingDelivered flips the branch's pending orders in a single
// statement inside a transaction.
func (s *OrderStore) MarkAllPendingDelivered(ctx context.Context, branchID int64, at time.Time) (int64, error) {
	if err := s.ensureDB(); err != nil {
		return 0, err
	}
	var affected int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&orderRecord{}).
			Where("branch_id = ? AND status = ?", branchID, string(domain.StatusPending)).
			Updates(map[string]any{
				"status":          string(domain.StatusDelivered),
				"completion_date": at,
				"updated_at":      gorm.Expr("NOW()"),
			})
		if result.Error != nil {
			return result.Error
		}
		affected = result.RowsAffected
		return nil
	})
	if err != nil {
		return 0, err
	}
	return affected, nil
}

func (s *OrderStore) LastOrderDate(ctx context.Context, productID, branchID int64) (time.Time, bool, error) {
	if err := s.ensureDB(); err != nil {
		return time.Time{}, false, err
	}
	var records []orderRecord
	err := s.db.WithContext(ctx).
		Select("order_date").
		Where("product_id = ? AND branch_id = ?", productID, branchID).
		Order("order_date DESC").
		Limit(1).
		Find(&records).Error
	if err != nil {
		return time.Time{}, false, err
	}
	if len(records) == 0 {
		return time.Time{}, false, nil
	}
	return records[0].OrderDate, true, nil
}

func (s *OrderStore) ensureDB() error {
	if s == nil || s.db == nil {
		return errors.New("postgres order store not configured")
	}
	return nil
}

func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

func toRecord(order *domain.Order) orderRecord {
	return orderRecord{
		ID:              order.ID,
		Kind:            string(order.Kind),
		ProductID:       order.ProductID,
		BranchID:        order.BranchID,
		Quantity:        order.Quantity,
		BasePrice:       order.BasePrice,
		DiscountPercent: order.DiscountPercent,
		OrderDate:       order.OrderDate,
		SupplierID:      order.SupplierID,
		SupplierName:    order.SupplierName,
		AgreementID:     order.AgreementID,
		Status:          string(order.Status),
		CompletionDate:  order.CompletionDate,
	}
}

func (r orderRecord) toDomain() *domain.Order {
	return &domain.Order{
		ID:              r.ID,
		Kind:            domain.Kind(r.Kind),
		ProductID:       r.ProductID,
		Quantity:        r.Quantity,
		BasePrice:       r.BasePrice,
		DiscountPercent: r.DiscountPercent,
		OrderDate:       r.OrderDate,
		BranchID:        r.BranchID,
		SupplierID:      r.SupplierID,
		SupplierName:    r.SupplierName,
		AgreementID:     r.AgreementID,
		Status:          domain.Status(r.Status),
		CompletionDate:  r.CompletionDate,
	}
}
