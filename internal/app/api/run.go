package api

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	replenishmentserver "github.com/Apurer/replenishment-engine/go"

	procurementworkflows "github.com/Apurer/replenishment-engine/internal/domains/procurement/adapters/workflows"
	"github.com/Apurer/replenishment-engine/internal/domains/procurement/ports"
	platformobservability "github.com/Apurer/replenishment-engine/internal/platform/observability"
)

// Run boots the replenishment HTTP API with observability, storage, and workflows wired.
func Run(ctx context.Context) error {
	cfg, err := LoadConfig()
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	instruments, shutdown, err := platformobservability.Init(ctx, platformobservability.ProcessAPI)
	if err != nil {
		return fmt.Errorf("failed to initialize observability: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(shutdownCtx); err != nil {
			instruments.Logger.Error("failed to shutdown observability", slog.String("error", err.Error()))
		}
	}()
	logger := instruments.Logger

	planner, cleanupPlanner, err := BuildPlanner(ctx, cfg, instruments)
	defer cleanupPlanner()
	if err != nil {
		return fmt.Errorf("failed to build order planner: %w", err)
	}

	var workflows ports.WorkflowOrchestrator = procurementworkflows.NewInlineWorkflows(planner.Service)
	if temporalClient, err := DialTemporal(cfg, instruments); err != nil {
		logger.Warn("Temporal workflows unavailable, running scheduled cycles inline", slog.String("error", err.Error()))
	} else {
		defer temporalClient.Close()
		workflows = procurementworkflows.NewTemporalWorkflows(temporalClient)
		logger.Info("Temporal workflows enabled", slog.String("namespace", cfg.TemporalNamespace))
		if !planner.Durable {
			logger.Warn("Temporal workers keep their own order store unless POSTGRES_DSN is shared")
		}
	}

	var apiOpts []replenishmentserver.APIOption
	schedule, err := LoadSchedule(cfg)
	if err != nil {
		return err
	}
	if schedule != nil {
		apiOpts = append(apiOpts, replenishmentserver.WithSchedule(schedule))
		logger.Info("periodic schedule loaded", slog.String("file", cfg.ScheduleFile), slog.Int("branches", len(schedule.Branches())))
	}

	handlers := replenishmentserver.ApiHandleFunctions{
		ReplenishmentAPI: replenishmentserver.NewReplenishmentAPI(planner.Service, workflows, apiOpts...),
	}

	engine := gin.New()
	engine.Use(gin.Recovery(), otelgin.Middleware(platformobservability.ProcessAPI.ServiceName()))
	router := replenishmentserver.NewRouterWithGinEngine(engine, handlers)
	addr := ":" + cfg.Port
	logger.Info("replenishment API listening", slog.String("addr", addr))
	if err := router.Run(addr); err != nil {
		logger.Error("replenishment API server exited", slog.String("addr", addr), slog.String("error", err.Error()))
		return err
	}
	return nil
}
