package sequences

import (
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/Apurer/replenishment-engine/internal/domains/procurement/domain"
	"github.com/Apurer/replenishment-engine/internal/domains/procurement/ports"
	replenishmentactivities "github.com/Apurer/replenishment-engine/internal/platform/temporal/activities/replenishment"
)

var planningOptions = workflow.ActivityOptions{
	StartToCloseTimeout: time.Minute,
	RetryPolicy: &temporal.RetryPolicy{
		InitialInterval:        2 * time.Second,
		BackoffCoefficient:     2.0,
		MaximumInterval:        30 * time.Second,
		MaximumAttempts:        5,
		NonRetryableErrorTypes: []string{replenishmentactivities.InvalidInputErrorType},
	},
}

const (
	// failedLineRounds bounds how often lines that could not be stored are planned again.
	failedLineRounds = 3
	failedLineDelay  = 30 * time.Second
)

var sweepOptions = workflow.ActivityOptions{
	StartToCloseTimeout: 30 * time.Second,
	RetryPolicy: &temporal.RetryPolicy{
		InitialInterval:        2 * time.Second,
		BackoffCoefficient:     2.0,
		MaximumInterval:        10 * time.Second,
		MaximumAttempts:        5,
		NonRetryableErrorTypes: []string{replenishmentactivities.InvalidInputErrorType},
	},
}

// RunPeriodicPlanningSequence plans the branch's periodic orders for the
// demand's weekday. Lines that could not be stored are planned again after a
// delay; whatever still fails after the last round stays in FailedProductIDs.
func RunPeriodicPlanningSequence(ctx workflow.Context, demand domain.PeriodicDemand) (*ports.PlanResult, error) {
	logger := workflow.GetLogger(ctx)
	logger.Info("periodic planning sequence started", "branchId", demand.BranchID, "weekday", demand.Today.String())
	ctx = workflow.WithActivityOptions(ctx, planningOptions)

	var result ports.PlanResult
	err := workflow.ExecuteActivity(ctx, replenishmentactivities.PlanPeriodicOrdersActivityName, demand).Get(ctx, &result)
	if err != nil {
		logger.Error("periodic planning sequence failed", "branchId", demand.BranchID, "error", err)
		return nil, err
	}

	delay := failedLineDelay
	for round := 1; round <= failedLineRounds && len(result.FailedProductIDs) > 0; round++ {
		logger.Warn("replanning failed lines", "branchId", demand.BranchID, "round", round, "productIds", result.FailedProductIDs)
		if err := workflow.Sleep(ctx, delay); err != nil {
			return nil, err
		}
		delay *= 2

		var retry ports.PlanResult
		err := workflow.ExecuteActivity(ctx, replenishmentactivities.PlanPeriodicOrdersActivityName,
			onlyProducts(demand, result.FailedProductIDs)).Get(ctx, &retry)
		if err != nil {
			logger.Error("replanning failed lines aborted", "branchId", demand.BranchID, "error", err)
			break
		}
		mergeRetry(&result, &retry)
	}
	logger.Info("periodic planning sequence completed",
		"branchId", demand.BranchID, "placed", result.Placed, "failedProductIds", result.FailedProductIDs)
	return &result, nil
}

// onlyProducts narrows the schedule to the given products.
func onlyProducts(demand domain.PeriodicDemand, productIDs []int64) domain.PeriodicDemand {
	keep := make(map[int64]bool, len(productIDs))
	for _, id := range productIDs {
		keep[id] = true
	}
	narrowed := demand
	narrowed.Schedule = nil
	for _, entry := range demand.Schedule {
		if keep[entry.ProductID] {
			narrowed.Schedule = append(narrowed.Schedule, entry)
		}
	}
	return narrowed
}

// mergeRetry replaces the outcomes of retried products with their new outcome.
func mergeRetry(result, retry *ports.PlanResult) {
	replanned := make(map[int64]ports.LineOutcome, len(retry.Outcomes))
	for _, o := range retry.Outcomes {
		replanned[o.ProductID] = o
	}
	for i, o := range result.Outcomes {
		if next, ok := replanned[o.ProductID]; ok && o.State == ports.LineFailed {
			result.Outcomes[i] = next
		}
	}
	result.Placed = result.Placed || retry.Placed
	result.FailedProductIDs = retry.FailedProductIDs
}

// RunEndOfDaySweepSequence closes the processing cycle of one branch.
func RunEndOfDaySweepSequence(ctx workflow.Context, branchID int64) (*ports.SweepResult, error) {
	logger := workflow.GetLogger(ctx)
	logger.Info("end-of-day sweep sequence started", "branchId", branchID)

	var result ports.SweepResult
	err := workflow.ExecuteActivity(workflow.WithActivityOptions(ctx, sweepOptions),
		replenishmentactivities.SweepBranchActivityName, branchID).Get(ctx, &result)
	if err != nil {
		logger.Error("end-of-day sweep sequence failed", "branchId", branchID, "error", err)
		return nil, err
	}
	logger.Info("end-of-day sweep sequence completed", "branchId", branchID, "delivered", result.Delivered)
	return &result, nil
}
