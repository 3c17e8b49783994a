package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"time"

	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/worker"
	"go.temporal.io/sdk/workflow"

	"github.com/Apurer/replenishment-engine/internal/app/api"
	platformobservability "github.com/Apurer/replenishment-engine/internal/platform/observability"
	replenishmentactivities "github.com/Apurer/replenishment-engine/internal/platform/temporal/activities/replenishment"
	replenishmentworkflows "github.com/Apurer/replenishment-engine/internal/platform/temporal/workflows/replenishment"
)

func main() {
	ctx := context.Background()
	cfg, err := api.LoadConfig()
	if err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}
	instruments, shutdown, err := platformobservability.Init(ctx, platformobservability.ProcessWorker)
	if err != nil {
		log.Fatalf("failed to initialize observability: %v", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(shutdownCtx); err != nil {
			instruments.Logger.Error("failed to shutdown observability", slog.String("error", err.Error()))
		}
	}()
	logger := instruments.Logger

	planner, cleanupPlanner, err := api.BuildPlanner(ctx, cfg, instruments)
	defer cleanupPlanner()
	if err != nil {
		logger.Error("failed to build order planner", slog.String("error", err.Error()))
		os.Exit(1)
	}
	if !planner.Durable {
		logger.Warn("worker running with an in-memory order store; orders are not shared with the API")
	}
	activities := replenishmentactivities.NewActivities(planner.Service)

	// The worker always needs Temporal, regardless of TEMPORAL_DISABLED.
	cfg.TemporalDisabled = false
	temporalClient, err := api.DialTemporal(cfg, instruments)
	if err != nil {
		logger.Error("failed to create Temporal client", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer temporalClient.Close()

	w := worker.New(temporalClient, replenishmentworkflows.TaskQueue, worker.Options{})
	w.RegisterWorkflowWithOptions(replenishmentworkflows.PeriodicPlanningWorkflow, workflow.RegisterOptions{Name: replenishmentworkflows.PeriodicPlanningWorkflowName})
	w.RegisterWorkflowWithOptions(replenishmentworkflows.EndOfDaySweepWorkflow, workflow.RegisterOptions{Name: replenishmentworkflows.EndOfDaySweepWorkflowName})
	w.RegisterActivityWithOptions(activities.PlanPeriodicOrders, activity.RegisterOptions{Name: replenishmentactivities.PlanPeriodicOrdersActivityName})
	w.RegisterActivityWithOptions(activities.SweepBranch, activity.RegisterOptions{Name: replenishmentactivities.SweepBranchActivityName})

	logger.Info("worker listening", slog.String("taskQueue", replenishmentworkflows.TaskQueue), slog.String("namespace", cfg.TemporalNamespace))
	if err := w.Run(worker.InterruptCh()); err != nil {
		logger.Error("Temporal worker exited with error", slog.String("error", err.Error()))
		return
	}
	logger.Info("Temporal worker stopped")
}
