package ports

import (
	"context"

	"github.com/Apurer/replenishment-engine/internal/domains/procurement/domain"
)

// WorkflowOrchestrator runs the scheduled replenishment cycles, durably when
// a workflow engine is available.
type WorkflowOrchestrator interface {
	PlanPeriodic(ctx context.Context, demand domain.PeriodicDemand) (*PlanResult, error)
	SweepBranch(ctx context.Context, branchID int64) (*SweepResult, error)
}
