package replenishment

import (
	"fmt"
	"strconv"
	"time"

	"github.com/cespare/xxhash/v2"
	"go.temporal.io/sdk/workflow"

	"github.com/Apurer/replenishment-engine/internal/domains/procurement/domain"
	"github.com/Apurer/replenishment-engine/internal/domains/procurement/ports"
	"github.com/Apurer/replenishment-engine/internal/platform/temporal/sequences"
)

const (
	// TaskQueue is polled by the replenishment worker.
	TaskQueue = "replenishment-planning"

	PeriodicPlanningWorkflowName = "replenishment.workflows.PeriodicPlanning"
	EndOfDaySweepWorkflowName    = "replenishment.workflows.EndOfDaySweep"
)

// PeriodicPlanningInput is the payload of the periodic planning workflow.
type PeriodicPlanningInput struct {
	Demand  domain.PeriodicDemand `json:"demand"`
	TraceID string                `json:"traceId,omitempty"`
}

// EndOfDaySweepInput is the payload of the end-of-day sweep workflow.
type EndOfDaySweepInput struct {
	BranchID     int64  `json:"branchId"`
	BusinessDate string `json:"businessDate"`
	TraceID      string `json:"traceId,omitempty"`
}

func PeriodicPlanningWorkflow(ctx workflow.Context, input PeriodicPlanningInput) (*ports.PlanResult, error) {
	workflow.GetLogger(ctx).Info("periodic planning workflow started",
		"branchId", input.Demand.BranchID, "traceId", input.TraceID)
	return sequences.RunPeriodicPlanningSequence(ctx, input.Demand)
}

func EndOfDaySweepWorkflow(ctx workflow.Context, input EndOfDaySweepInput) (*ports.SweepResult, error) {
	workflow.GetLogger(ctx).Info("end-of-day sweep workflow started",
		"branchId", input.BranchID, "businessDate", input.BusinessDate, "traceId", input.TraceID)
	return sequences.RunEndOfDaySweepSequence(ctx, input.BranchID)
}

// BusinessDate renders the calendar day used in workflow ids.
func BusinessDate(t time.Time) string {
	return t.Format(time.DateOnly)
}

// PeriodicPlanningWorkflowID names the periodic run of a branch for one
// business date, weekday and schedule. Identical requests arriving while a
// run is open resolve to it; a different schedule gets its own run.
func PeriodicPlanningWorkflowID(branchID int64, businessDate string, weekday time.Weekday, schedule []domain.ScheduledDemand) string {
	return fmt.Sprintf("replenishment-periodic-%d-%s-%s-%s", branchID, businessDate, weekday, ScheduleDigest(schedule))
}

// ScheduleDigest fingerprints a schedule in its request order.
func ScheduleDigest(schedule []domain.ScheduledDemand) string {
	digest := xxhash.New()
	for _, entry := range schedule {
		_, _ = digest.WriteString(strconv.FormatInt(entry.ProductID, 10))
		_, _ = digest.WriteString(":")
		_, _ = digest.WriteString(strconv.FormatInt(entry.Quantity, 10))
		_, _ = digest.WriteString(":")
		_, _ = digest.WriteString(strconv.Itoa(int(entry.Days)))
		_, _ = digest.WriteString(";")
	}
	return strconv.FormatUint(digest.Sum64(), 16)
}

// EndOfDaySweepWorkflowID names the sweep of a branch for one business date.
// Only a sweep that is still running is joined; once it has closed the id is
// reused by the next sweep.
func EndOfDaySweepWorkflowID(branchID int64, businessDate string) string {
	return fmt.Sprintf("replenishment-sweep-%d-%s", branchID, businessDate)
}
