package workflows

import (
	"context"
	"errors"
	"fmt"
	"time"

	oteltrace "go.opentelemetry.io/otel/trace"
	enumspb "go.temporal.io/api/enums/v1"
	"go.temporal.io/sdk/client"

	"github.com/Apurer/replenishment-engine/internal/domains/procurement/application"
	"github.com/Apurer/replenishment-engine/internal/domains/procurement/domain"
	"github.com/Apurer/replenishment-engine/internal/domains/procurement/ports"
	replenishmentworkflows "github.com/Apurer/replenishment-engine/internal/platform/temporal/workflows/replenishment"
)

var (
	_ ports.WorkflowOrchestrator = (*TemporalWorkflows)(nil)
	_ ports.WorkflowOrchestrator = (*InlineWorkflows)(nil)
)

// TemporalWorkflows starts replenishment workflows on a Temporal cluster.
type TemporalWorkflows struct {
	client    client.Client
	taskQueue string
	now       func() time.Time
}

// NewTemporalWorkflows wires a Temporal client into the orchestrator.
func NewTemporalWorkflows(c client.Client) *TemporalWorkflows {
	return &TemporalWorkflows{client: c, taskQueue: replenishmentworkflows.TaskQueue, now: time.Now}
}

// PlanPeriodic starts, or joins while it is still running, the periodic
// planning run of the branch for today. Lines that stayed unstored come back
// as a *application.BatchError next to the result.
func (o *TemporalWorkflows) PlanPeriodic(ctx context.Context, demand domain.PeriodicDemand) (*ports.PlanResult, error) {
	if o == nil || o.client == nil {
		return nil, errors.New("temporal replenishment workflows not configured")
	}
	if demand.BranchID <= 0 {
		return nil, invalidBranch()
	}
	workflowID := replenishmentworkflows.PeriodicPlanningWorkflowID(
		demand.BranchID, replenishmentworkflows.BusinessDate(o.now()), demand.Today, demand.Schedule)
	input := replenishmentworkflows.PeriodicPlanningInput{Demand: demand, TraceID: workflowTraceID(ctx)}
	var result ports.PlanResult
	if err := o.execute(ctx, workflowID, replenishmentworkflows.PeriodicPlanningWorkflowName, input, &result); err != nil {
		return nil, err
	}
	return &result, application.BatchErrorFromResult(&result)
}

// SweepBranch starts, or joins while it is still running, the end-of-day
// sweep of the branch for today.
func (o *TemporalWorkflows) SweepBranch(ctx context.Context, branchID int64) (*ports.SweepResult, error) {
	if o == nil || o.client == nil {
		return nil, errors.New("temporal replenishment workflows not configured")
	}
	if branchID <= 0 {
		return nil, invalidBranch()
	}
	businessDate := replenishmentworkflows.BusinessDate(o.now())
	workflowID := replenishmentworkflows.EndOfDaySweepWorkflowID(branchID, businessDate)
	input := replenishmentworkflows.EndOfDaySweepInput{BranchID: branchID, BusinessDate: businessDate, TraceID: workflowTraceID(ctx)}
	var result ports.SweepResult
	if err := o.execute(ctx, workflowID, replenishmentworkflows.EndOfDaySweepWorkflowName, input, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// execute runs the workflow and waits for its result. An open run with the
// same id is joined; a closed one never answers for a new request.
func (o *TemporalWorkflows) execute(ctx context.Context, workflowID, workflowName string, input, out any) error {
	options := client.StartWorkflowOptions{
		ID:                                       workflowID,
		TaskQueue:                                o.taskQueue,
		WorkflowIDReusePolicy:                    enumspb.WORKFLOW_ID_REUSE_POLICY_ALLOW_DUPLICATE,
		WorkflowExecutionErrorWhenAlreadyStarted: false,
	}
	run, err := o.client.ExecuteWorkflow(ctx, options, workflowName, input)
	if err != nil {
		return err
	}
	return run.Get(ctx, out)
}

// InlineWorkflows executes the service directly without Temporal, useful for tests or dev fallbacks.
type InlineWorkflows struct {
	service ports.Service
}

func NewInlineWorkflows(service ports.Service) *InlineWorkflows {
	return &InlineWorkflows{service: service}
}

func (o *InlineWorkflows) PlanPeriodic(ctx context.Context, demand domain.PeriodicDemand) (*ports.PlanResult, error) {
	if o == nil || o.service == nil {
		return nil, errors.New("inline replenishment workflows not configured")
	}
	return o.service.PlanPeriodicOrders(ctx, demand)
}

func (o *InlineWorkflows) SweepBranch(ctx context.Context, branchID int64) (*ports.SweepResult, error) {
	if o == nil || o.service == nil {
		return nil, errors.New("inline replenishment workflows not configured")
	}
	return o.service.MarkAllPendingProcessed(ctx, branchID)
}

// invalidBranch rejects the request before a workflow is started, so callers
// see the same validation error as on the inline path.
func invalidBranch() error {
	return fmt.Errorf("%w: %w", application.ErrInvalidInput, domain.ErrInvalidBranchID)
}

func workflowTraceID(ctx context.Context) string {
	spanCtx := oteltrace.SpanFromContext(ctx).SpanContext()
	if !spanCtx.IsValid() {
		return ""
	}
	return spanCtx.TraceID().String()
}
