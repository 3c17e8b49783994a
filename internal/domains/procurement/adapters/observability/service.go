package observability

import (
	"context"
	"io"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	nooptrace "go.opentelemetry.io/otel/trace/noop"

	"github.com/Apurer/replenishment-engine/internal/domains/procurement/domain"
	"github.com/Apurer/replenishment-engine/internal/domains/procurement/ports"
)

const tracerName = "github.com/Apurer/replenishment-engine/internal/domains/procurement/adapters/observability/service"

// Service decorates the planner with tracing, logging, and metrics.
type Service struct {
	inner   ports.Service
	tracer  trace.Tracer
	logger  *slog.Logger
	metrics serviceMetrics
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithTracer(tr trace.Tracer) Option {
	return func(s *Service) {
		s.tracer = tr
	}
}

func WithMeter(m metric.Meter) Option {
	return func(s *Service) {
		s.metrics = newServiceMetrics(m)
	}
}

// New wraps the planner service.
func New(inner ports.Service, opts ...Option) ports.Service {
	s := &Service{
		inner:   inner,
		tracer:  nooptrace.NewTracerProvider().Tracer(tracerName),
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		metrics: newServiceMetrics(nil),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	if s.tracer == nil {
		s.tracer = nooptrace.NewTracerProvider().Tracer(tracerName)
	}
	return s
}

func (s *Service) PlanShortageOrders(ctx context.Context, demand domain.ShortageDemand) (*ports.PlanResult, error) {
	ctx, span := s.tracer.Start(ctx, "PlannerService.PlanShortageOrders",
		trace.WithAttributes(attribute.Int64("branch.id", demand.BranchID), attribute.Int("demand.lines", len(demand.Quantities))))
	defer span.End()

	s.logInfo(ctx, "planning shortage orders", slog.Int64("branch.id", demand.BranchID), slog.Int("demand.lines", len(demand.Quantities)))
	result, err := s.inner.PlanShortageOrders(ctx, demand)
	s.recordPlan(ctx, span, domain.KindShortage, result)
	if err != nil {
		return result, s.handleError(ctx, span, err, "shortage planning failed", slog.Int64("branch.id", demand.BranchID))
	}
	return result, nil
}

func (s *Service) PlanPeriodicOrders(ctx context.Context, demand domain.PeriodicDemand) (*ports.PlanResult, error) {
	ctx, span := s.tracer.Start(ctx, "PlannerService.PlanPeriodicOrders",
		trace.WithAttributes(
			attribute.Int64("branch.id", demand.BranchID),
			attribute.String("schedule.weekday", demand.Today.String()),
			attribute.Int("schedule.entries", len(demand.Schedule))))
	defer span.End()

	s.logInfo(ctx, "planning periodic orders", slog.Int64("branch.id", demand.BranchID), slog.String("weekday", demand.Today.String()))
	result, err := s.inner.PlanPeriodicOrders(ctx, demand)
	s.recordPlan(ctx, span, domain.KindPeriodic, result)
	if err != nil {
		return result, s.handleError(ctx, span, err, "periodic planning failed", slog.Int64("branch.id", demand.BranchID))
	}
	return result, nil
}

func (s *Service) MarkAllPendingProcessed(ctx context.Context, branchID int64) (*ports.SweepResult, error) {
	ctx, span := s.tracer.Start(ctx, "PlannerService.MarkAllPendingProcessed", trace.WithAttributes(attribute.Int64("branch.id", branchID)))
	defer span.End()

	s.logInfo(ctx, "sweeping pending orders", slog.Int64("branch.id", branchID))
	result, err := s.inner.MarkAllPendingProcessed(ctx, branchID)
	if err != nil {
		return nil, s.handleError(ctx, span, err, "end-of-day sweep failed", slog.Int64("branch.id", branchID))
	}
	s.metrics.recordSwept(ctx, branchID, result.Delivered)
	span.SetAttributes(attribute.Int64("orders.delivered", result.Delivered))
	s.logInfo(ctx, "pending orders swept", slog.Int64("branch.id", branchID), slog.Int64("orders.delivered", result.Delivered))
	return result, nil
}

func (s *Service) PendingStatus(ctx context.Context, productID, branchID int64) (*ports.PendingStatus, error) {
	ctx, span := s.tracer.Start(ctx, "PlannerService.PendingStatus",
		trace.WithAttributes(attribute.Int64("product.id", productID), attribute.Int64("branch.id", branchID)))
	defer span.End()

	result, err := s.inner.PendingStatus(ctx, productID, branchID)
	if err != nil {
		return nil, s.handleError(ctx, span, err, "failed to check pending order",
			slog.Int64("product.id", productID), slog.Int64("branch.id", branchID))
	}
	span.SetAttributes(attribute.Bool("order.pending", result.Pending))
	return result, nil
}

func (s *Service) ListOrders(ctx context.Context, filter ports.OrderFilter) ([]ports.OrderView, error) {
	ctx, span := s.tracer.Start(ctx, "PlannerService.ListOrders",
		trace.WithAttributes(attribute.Int64("branch.id", filter.BranchID), attribute.String("order.status", string(filter.Status))))
	defer span.End()

	result, err := s.inner.ListOrders(ctx, filter)
	if err != nil {
		return nil, s.handleError(ctx, span, err, "failed to list orders", slog.Int64("branch.id", filter.BranchID))
	}
	span.SetAttributes(attribute.Int("orders.count", len(result)))
	return result, nil
}

func (s *Service) recordPlan(ctx context.Context, span trace.Span, kind domain.Kind, result *ports.PlanResult) {
	if result == nil {
		return
	}
	placed := result.Count(ports.LinePlaced)
	skipped := result.Count(ports.LineSkipped)
	discarded := result.Count(ports.LineDiscarded)
	failed := result.Count(ports.LineFailed)
	span.SetAttributes(
		attribute.Int("lines.placed", placed),
		attribute.Int("lines.skipped", skipped),
		attribute.Int("lines.discarded", discarded),
		attribute.Int("lines.failed", failed),
	)
	for _, o := range result.Outcomes {
		switch o.State {
		case ports.LinePlaced:
			s.metrics.recordPlaced(ctx, kind, result.BranchID)
		case ports.LineSkipped, ports.LineDiscarded:
			s.metrics.recordSkipped(ctx, o.State, result.BranchID)
		}
	}
	s.logInfo(ctx, "planning batch finished",
		slog.Int64("branch.id", result.BranchID),
		slog.String("order.kind", string(kind)),
		slog.Int("lines.placed", placed),
		slog.Int("lines.skipped", skipped),
		slog.Int("lines.discarded", discarded),
		slog.Int("lines.failed", failed))
}

func (s *Service) logInfo(ctx context.Context, msg string, attrs ...slog.Attr) {
	if s.logger == nil {
		return
	}
	s.logger.LogAttrs(ctx, slog.LevelInfo, msg, attrs...)
}

func (s *Service) logError(ctx context.Context, msg string, err error, attrs ...slog.Attr) {
	if s.logger == nil {
		return
	}
	if err != nil {
		attrs = append(attrs, slog.String("error", err.Error()))
	}
	s.logger.LogAttrs(ctx, slog.LevelError, msg, attrs...)
}

func (s *Service) handleError(ctx context.Context, span trace.Span, err error, msg string, attrs ...slog.Attr) error {
	if span != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	s.logError(ctx, msg, err, attrs...)
	return err
}

type serviceMetrics struct {
	ordersPlaced metric.Int64Counter
	linesSkipped metric.Int64Counter
	ordersSwept  metric.Int64Counter
}

func newServiceMetrics(m metric.Meter) serviceMetrics {
	if m == nil {
		return serviceMetrics{}
	}
	ordersPlaced, _ := m.Int64Counter("replenishment.orders_placed", metric.WithDescription("Number of replenishment orders placed"))
	linesSkipped, _ := m.Int64Counter("replenishment.lines_skipped", metric.WithDescription("Number of demand lines skipped or discarded"))
	ordersSwept, _ := m.Int64Counter("replenishment.orders_swept", metric.WithDescription("Number of pending orders marked delivered by the end-of-day sweep"))
	return serviceMetrics{ordersPlaced: ordersPlaced, linesSkipped: linesSkipped, ordersSwept: ordersSwept}
}

func (m serviceMetrics) recordPlaced(ctx context.Context, kind domain.Kind, branchID int64) {
	if m.ordersPlaced != nil {
		m.ordersPlaced.Add(ctx, 1, metric.WithAttributes(
			attribute.String("order.kind", string(kind)),
			attribute.Int64("branch.id", branchID)))
	}
}

func (m serviceMetrics) recordSkipped(ctx context.Context, state ports.LineState, branchID int64) {
	if m.linesSkipped != nil {
		m.linesSkipped.Add(ctx, 1, metric.WithAttributes(
			attribute.String("line.state", string(state)),
			attribute.Int64("branch.id", branchID)))
	}
}

func (m serviceMetrics) recordSwept(ctx context.Context, branchID, n int64) {
	if m.ordersSwept != nil && n > 0 {
		m.ordersSwept.Add(ctx, n, metric.WithAttributes(attribute.Int64("branch.id", branchID)))
	}
}

var _ ports.Service = (*Service)(nil)
