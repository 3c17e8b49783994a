package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Apurer/replenishment-engine/internal/domains/procurement/domain"
	"github.com/Apurer/replenishment-engine/internal/domains/procurement/ports"
)

// Service is the order planner: it turns demand into pending orders while
// keeping at most one pending order per product and branch.
type Service struct {
	catalog   ports.OfferCatalog
	store     ports.OrderStore
	guard     *Guard
	ranker    *domain.OfferRanker
	locker    ports.BranchLocker
	publisher ports.EventPublisher
	logger    *slog.Logger
	now       func() time.Time
}

type Option func(*Service)

// WithRankingPolicy swaps the offer selection policy.
func WithRankingPolicy(policy domain.RankingPolicy) Option {
	return func(s *Service) {
		s.ranker = domain.NewOfferRanker(policy)
	}
}

// WithBranchLocker serializes batches per branch.
func WithBranchLocker(locker ports.BranchLocker) Option {
	return func(s *Service) {
		if locker != nil {
			s.locker = locker
		}
	}
}

// WithEventPublisher announces placed orders.
func WithEventPublisher(publisher ports.EventPublisher) Option {
	return func(s *Service) {
		s.publisher = publisher
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithClock overrides the time source for deterministic testing.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// NewService wires the planner with its collaborators.
func NewService(catalog ports.OfferCatalog, store ports.OrderStore, opts ...Option) *Service {
	s := &Service{
		catalog: catalog,
		store:   store,
		ranker:  domain.NewOfferRanker(nil),
		locker:  noopLocker{},
		logger:  slog.Default(),
		now:     time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	s.guard = NewGuard(store, func() time.Time { return s.now() })
	return s
}

// Guard exposes the duplicate-prevention helpers used by the planner.
func (s *Service) Guard() *Guard { return s.guard }

// PlanShortageOrders places one order per product in the demand map that has
// a positive quantity, no pending order, and at least one supplier offer.
func (s *Service) PlanShortageOrders(ctx context.Context, demand domain.ShortageDemand) (*ports.PlanResult, error) {
	return s.plan(ctx, domain.KindShortage, demand.BranchID, demand.Lines())
}

// PlanPeriodicOrders plans the schedule entries that fire on demand.Today.
func (s *Service) PlanPeriodicOrders(ctx context.Context, demand domain.PeriodicDemand) (*ports.PlanResult, error) {
	return s.plan(ctx, domain.KindPeriodic, demand.BranchID, demand.Lines())
}

// MarkAllPendingProcessed runs the end-of-day sweep for a branch.
func (s *Service) MarkAllPendingProcessed(ctx context.Context, branchID int64) (*ports.SweepResult, error) {
	if branchID <= 0 {
		return nil, mapError(domain.ErrInvalidBranchID)
	}
	unlock, err := s.locker.Lock(ctx, branchID)
	if err != nil {
		return nil, fmt.Errorf("lock branch %d: %w", branchID, err)
	}
	defer unlock()
	return s.guard.MarkAllPendingProcessed(ctx, branchID)
}

// PendingStatus reports the guard state and last order date of a pair.
func (s *Service) PendingStatus(ctx context.Context, productID, branchID int64) (*ports.PendingStatus, error) {
	if productID <= 0 {
		return nil, mapError(domain.ErrInvalidProductID)
	}
	if branchID <= 0 {
		return nil, mapError(domain.ErrInvalidBranchID)
	}
	pending, err := s.guard.HasPendingOrder(ctx, productID, branchID)
	if err != nil {
		return nil, err
	}
	status := &ports.PendingStatus{ProductID: productID, BranchID: branchID, Pending: pending}
	last, ok, err := s.guard.LastOrderDate(ctx, productID, branchID)
	if err != nil {
		return nil, err
	}
	if ok {
		status.LastOrderDate = &last
	}
	return status, nil
}

// ListOrders returns read models for the matching orders.
func (s *Service) ListOrders(ctx context.Context, filter ports.OrderFilter) ([]ports.OrderView, error) {
	if filter.Status != "" && !domain.IsValidStatus(filter.Status) {
		return nil, mapError(domain.ErrInvalidStatus)
	}
	if filter.Kind != "" && !domain.IsValidKind(filter.Kind) {
		return nil, mapError(domain.ErrInvalidKind)
	}
	orders, err := s.store.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	views := make([]ports.OrderView, 0, len(orders))
	for _, order := range orders {
		views = append(views, ports.OrderView{Order: order, NeededQuantity: order.Quantity})
	}
	return views, nil
}

func (s *Service) plan(ctx context.Context, kind domain.Kind, branchID int64, lines []domain.OrderRequestLine) (*ports.PlanResult, error) {
	if branchID <= 0 {
		return nil, mapError(domain.ErrInvalidBranchID)
	}
	unlock, err := s.locker.Lock(ctx, branchID)
	if err != nil {
		return nil, fmt.Errorf("lock branch %d: %w", branchID, err)
	}
	defer unlock()

	result := &ports.PlanResult{BranchID: branchID, Outcomes: make([]ports.LineOutcome, 0, len(lines))}
	var failures []*LineError
	for _, line := range lines {
		outcome := s.planLine(ctx, kind, line)
		switch outcome.State {
		case ports.LinePlaced:
			result.Placed = true
		case ports.LineFailed:
			failures = append(failures, &LineError{ProductID: line.ProductID, Err: outcome.Reason})
		}
		result.Outcomes = append(result.Outcomes, outcome)
	}
	if len(failures) > 0 {
		batchErr := &BatchError{BranchID: branchID, Lines: failures}
		result.FailedProductIDs = batchErr.ProductIDs()
		return result, batchErr
	}
	return result, nil
}

func (s *Service) planLine(ctx context.Context, kind domain.Kind, line domain.OrderRequestLine) ports.LineOutcome {
	outcome := ports.LineOutcome{ProductID: line.ProductID, Quantity: line.Quantity}
	if line.Quantity <= 0 {
		return withReason(outcome, ports.LineDiscarded, domain.ErrInvalidQuantity)
	}
	pending, err := s.guard.HasPendingOrder(ctx, line.ProductID, line.BranchID)
	if err != nil {
		return withReason(outcome, ports.LineFailed, fmt.Errorf("check pending order: %w", err))
	}
	if pending {
		return withReason(outcome, ports.LineSkipped, ErrDuplicatePending)
	}
	offers, err := s.catalog.OffersFor(ctx, line.ProductID)
	if err != nil {
		return withReason(outcome, ports.LineFailed, fmt.Errorf("load offers: %w", err))
	}
	best, ok, err := s.ranker.SelectBestOffer(s.usableOffers(ctx, line.ProductID, offers), line.Quantity)
	if err != nil {
		return withReason(outcome, ports.LineFailed, err)
	}
	if !ok {
		return withReason(outcome, ports.LineSkipped, ErrNoOfferAvailable)
	}
	order, err := domain.NewPendingOrder(kind, line, best, s.now())
	if err != nil {
		return withReason(outcome, ports.LineFailed, fmt.Errorf("build order: %w", err))
	}
	saved, err := s.store.Insert(ctx, order)
	if err != nil {
		if errors.Is(err, ports.ErrPendingOrderExists) {
			return withReason(outcome, ports.LineSkipped, ErrDuplicatePending)
		}
		return withReason(outcome, ports.LineFailed, fmt.Errorf("persist order: %w", err))
	}
	s.publish(ctx, saved)
	outcome.State = ports.LinePlaced
	outcome.Order = saved
	return outcome
}

// usableOffers drops offers that break the catalog invariants so that one
// bad record cannot win the ranking.
func (s *Service) usableOffers(ctx context.Context, productID int64, offers []domain.SupplierOffer) []domain.SupplierOffer {
	usable := offers[:0:0]
	for _, offer := range offers {
		if offer.ProductID != productID {
			continue
		}
		if err := offer.Validate(); err != nil {
			s.logger.LogAttrs(ctx, slog.LevelWarn, "ignoring invalid supplier offer",
				slog.Int64("product.id", productID),
				slog.Int64("supplier.id", offer.SupplierID),
				slog.Int64("agreement.id", offer.AgreementID),
				slog.String("error", err.Error()))
			continue
		}
		usable = append(usable, offer)
	}
	return usable
}

func (s *Service) publish(ctx context.Context, order *domain.Order) {
	if s.publisher == nil || order == nil {
		return
	}
	event := ports.OrderPlaced{
		OrderID:         order.ID,
		Kind:            string(order.Kind),
		ProductID:       order.ProductID,
		BranchID:        order.BranchID,
		SupplierID:      order.SupplierID,
		SupplierName:    order.SupplierName,
		Quantity:        order.Quantity,
		BasePrice:       order.BasePrice.String(),
		DiscountPercent: order.DiscountPercent.String(),
		OrderDate:       order.OrderDate,
	}
	if err := s.publisher.PublishOrderPlaced(ctx, event); err != nil {
		s.logger.LogAttrs(ctx, slog.LevelWarn, "failed to publish order placed event",
			slog.Int64("order.id", order.ID),
			slog.Int64("product.id", order.ProductID),
			slog.String("error", err.Error()))
	}
}

func withReason(outcome ports.LineOutcome, state ports.LineState, reason error) ports.LineOutcome {
	outcome.State = state
	outcome.Reason = reason
	outcome.Detail = reason.Error()
	return outcome
}

type noopLocker struct{}

func (noopLocker) Lock(context.Context, int64) (func(), error) { return func() {}, nil }

var _ ports.Service = (*Service)(nil)
