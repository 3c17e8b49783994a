package memory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/Apurer/replenishment-engine/internal/domains/procurement/domain"
	"github.com/Apurer/replenishment-engine/internal/domains/procurement/ports"
)

var _ ports.OrderStore = (*OrderStore)(nil)

type pairKey struct {
	productID int64
	branchID  int64
}

// OrderStore is an in-memory order persistence adapter. The pending index
// plays the role of the storage-level unique constraint.
type OrderStore struct {
	mu      sync.RWMutex
	orders  map[int64]*domain.Order
	pending map[pairKey]int64
	nextID  int64
}

func NewOrderStore() *OrderStore {
	return &OrderStore{
		orders:  map[int64]*domain.Order{},
		pending: map[pairKey]int64{},
	}
}

func (s *OrderStore) Insert(_ context.Context, order *domain.Order) (*domain.Order, error) {
	if order == nil {
		return nil, errors.New("order is nil")
	}
	clone := cloneOrder(order)
	if err := clone.Validate(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	key := pairKey{productID: clone.ProductID, branchID: clone.BranchID}
	if clone.IsPending() {
		if _, exists := s.pending[key]; exists {
			return nil, ports.ErrPendingOrderExists
		}
	}
	if clone.ID == 0 {
		s.nextID++
		clone.ID = s.nextID
	} else if _, exists := s.orders[clone.ID]; exists {
		return nil, errors.New("order id already used")
	} else if clone.ID > s.nextID {
		s.nextID = clone.ID
	}
	s.orders[clone.ID] = clone
	if clone.IsPending() {
		s.pending[key] = clone.ID
	}
	return cloneOrder(clone), nil
}

func (s *OrderStore) Update(_ context.Context, order *domain.Order) (*domain.Order, error) {
	if order == nil {
		return nil, errors.New("order is nil")
	}
	clone := cloneOrder(order)
	if err := clone.Validate(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.orders[clone.ID]
	if !ok {
		return nil, ports.ErrNotFound
	}
	key := pairKey{productID: clone.ProductID, branchID: clone.BranchID}
	if clone.IsPending() {
		if id, exists := s.pending[key]; exists && id != clone.ID {
			return nil, ports.ErrPendingOrderExists
		}
	}
	if existing.IsPending() {
		delete(s.pending, pairKey{productID: existing.ProductID, branchID: existing.BranchID})
	}
	s.orders[clone.ID] = clone
	if clone.IsPending() {
		s.pending[key] = clone.ID
	}
	return cloneOrder(clone), nil
}

func (s *OrderStore) GetByID(_ context.Context, id int64) (*domain.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	order, ok := s.orders[id]
	if !ok {
		return nil, ports.ErrNotFound
	}
	return cloneOrder(order), nil
}

// List returns matching orders sorted by ID.
func (s *OrderStore) List(_ context.Context, filter ports.OrderFilter) ([]*domain.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	list := make([]*domain.Order, 0, len(s.orders))
	for _, order := range s.orders {
		if matches(order, filter) {
			list = append(list, cloneOrder(order))
		}
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
	return list, nil
}

func (s *OrderStore) HasPending(_ context.Context, productID, branchID int64) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.pending[pairKey{productID: productID, branchID: branchID}]
	return ok, nil
}

func (s *OrderStore) MarkAllPendingDelivered(_ context.Context, branchID int64, at time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delivered := make(map[pairKey]*domain.Order)
	for key, id := range s.pending {
		if key.branchID != branchID {
			continue
		}
		order := cloneOrder(s.orders[id])
		if err := order.MarkDelivered(at); err != nil {
			return 0, fmt.Errorf("order %d: %w", id, err)
		}
		delivered[key] = order
	}
	// nothing is written until every transition succeeded
	for key, order := range delivered {
		s.orders[order.ID] = order
		delete(s.pending, key)
	}
	return int64(len(delivered)), nil
}

func (s *OrderStore) LastOrderDate(_ context.Context, productID, branchID int64) (time.Time, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var (
		last  time.Time
		found bool
	)
	for _, order := range s.orders {
		if order.ProductID != productID || order.BranchID != branchID {
			continue
		}
		if !found || order.OrderDate.After(last) {
			last = order.OrderDate
			found = true
		}
	}
	return last, found, nil
}

func matches(order *domain.Order, filter ports.OrderFilter) bool {
	if filter.BranchID != 0 && order.BranchID != filter.BranchID {
		return false
	}
	if filter.ProductID != 0 && order.ProductID != filter.ProductID {
		return false
	}
	if filter.Status != "" && order.Status != filter.Status {
		return false
	}
	if filter.Kind != "" && order.Kind != filter.Kind {
		return false
	}
	return true
}

func cloneOrder(order *domain.Order) *domain.Order {
	clone := *order
	if order.CompletionDate != nil {
		completed := *order.CompletionDate
		clone.CompletionDate = &completed
	}
	return &clone
}
