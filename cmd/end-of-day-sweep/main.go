package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Apurer/replenishment-engine/internal/app/api"
	"github.com/Apurer/replenishment-engine/internal/domains/procurement/ports"
	platformobservability "github.com/Apurer/replenishment-engine/internal/platform/observability"
)

func main() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	cfg, err := api.LoadConfig()
	if err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}
	if len(cfg.SweepBranchIDs) == 0 {
		log.Fatal("BRANCH_IDS not set; nothing to sweep")
	}
	instruments, shutdown, err := platformobservability.Init(ctx, platformobservability.ProcessEndOfDaySweep)
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

	planner, cleanup, err := api.BuildPlanner(ctx, cfg, instruments)
	defer cleanup()
	if err != nil {
		log.Fatalf("failed to build order planner: %v", err)
	}
	if !planner.Durable {
		log.Fatal("POSTGRES_DSN not set or connection failed; cannot sweep pending orders")
	}

	delivered, err := sweepBranches(ctx, planner.Service, cfg.SweepBranchIDs, cfg.SweepConcurrency, logger)
	if err != nil {
		log.Fatalf("end-of-day sweep failed: %v", err)
	}
	logger.Info("end-of-day sweep completed", slog.Int("branches", len(cfg.SweepBranchIDs)), slog.Int64("delivered", delivered))
}

// sweepBranches closes the processing cycle of every branch, at most limit at
// a time. Each branch is swept atomically; a failing branch does not stop the
// others but fails the run.
func sweepBranches(ctx context.Context, service ports.Service, branchIDs []int64, limit int, logger *slog.Logger) (int64, error) {
	var (
		delivered atomic.Int64
		failed    atomic.Int64
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for _, branchID := range branchIDs {
		g.Go(func() error {
			result, err := service.MarkAllPendingProcessed(gctx, branchID)
			if err != nil {
				failed.Add(1)
				logger.Error("branch sweep failed", slog.Int64("branchId", branchID), slog.String("error", err.Error()))
				return nil
			}
			delivered.Add(result.Delivered)
			logger.Info("branch swept", slog.Int64("branchId", branchID), slog.Int64("delivered", result.Delivered))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return delivered.Load(), err
	}
	if n := failed.Load(); n > 0 {
		return delivered.Load(), fmt.Errorf("%d of %d branches failed", n, len(branchIDs))
	}
	return delivered.Load(), nil
}
