package replenishment

import (
	"context"
	"errors"

	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/temporal"

	"github.com/Apurer/replenishment-engine/internal/domains/procurement/application"
	"github.com/Apurer/replenishment-engine/internal/domains/procurement/domain"
	"github.com/Apurer/replenishment-engine/internal/domains/procurement/ports"
)

const (
	// PlanPeriodicOrdersActivityName plans the periodic orders of one branch and weekday.
	PlanPeriodicOrdersActivityName = "replenishment.activities.PlanPeriodicOrders"
	// SweepBranchActivityName marks every pending order of a branch as delivered.
	SweepBranchActivityName = "replenishment.activities.SweepBranch"

	// InvalidInputErrorType tags validation failures, which are never retried.
	InvalidInputErrorType = "InvalidInput"
)

// Activities groups the planner operations run by Temporal workers.
type Activities struct {
	service ports.Service
}

func NewActivities(service ports.Service) *Activities {
	return &Activities{service: service}
}

// PlanPeriodicOrders runs one periodic planning batch. A batch with failed
// lines still completes: the lines already committed are reported and the
// failed products are listed in FailedProductIDs for the caller to retry.
func (a *Activities) PlanPeriodicOrders(ctx context.Context, demand domain.PeriodicDemand) (*ports.PlanResult, error) {
	logger := activity.GetLogger(ctx)
	if a == nil || a.service == nil {
		logger.Error("periodic planning activity not initialized", "branchId", demand.BranchID)
		return nil, errors.New("periodic planning activity not initialized")
	}
	logger.Info("PlanPeriodicOrders activity started", "branchId", demand.BranchID, "weekday", demand.Today.String())
	result, err := a.service.PlanPeriodicOrders(ctx, demand)
	var batchErr *application.BatchError
	switch {
	case errors.As(err, &batchErr) && result != nil:
		result.FailedProductIDs = batchErr.ProductIDs()
		logger.Warn("PlanPeriodicOrders activity completed with failed lines",
			"branchId", demand.BranchID,
			"placed", result.Count(ports.LinePlaced),
			"failedProductIds", result.FailedProductIDs,
			"error", err)
		return result, nil
	case err != nil:
		logger.Error("PlanPeriodicOrders activity failed", "branchId", demand.BranchID, "error", err)
		return nil, classify(err)
	}
	logger.Info("PlanPeriodicOrders activity completed",
		"branchId", demand.BranchID,
		"placed", result.Count(ports.LinePlaced),
		"skipped", result.Count(ports.LineSkipped))
	return result, nil
}

// SweepBranch runs the end-of-day sweep of one branch.
func (a *Activities) SweepBranch(ctx context.Context, branchID int64) (*ports.SweepResult, error) {
	logger := activity.GetLogger(ctx)
	if a == nil || a.service == nil {
		logger.Error("sweep activity not initialized", "branchId", branchID)
		return nil, errors.New("sweep activity not initialized")
	}
	logger.Info("SweepBranch activity started", "branchId", branchID)
	result, err := a.service.MarkAllPendingProcessed(ctx, branchID)
	if err != nil {
		logger.Error("SweepBranch activity failed", "branchId", branchID, "error", err)
		return nil, classify(err)
	}
	logger.Info("SweepBranch activity completed", "branchId", branchID, "delivered", result.Delivered)
	return result, nil
}

// classify marks validation failures as non-retryable.
func classify(err error) error {
	if errors.Is(err, application.ErrInvalidInput) {
		return temporal.NewNonRetryableApplicationError(err.Error(), InvalidInputErrorType, err)
	}
	return err
}
