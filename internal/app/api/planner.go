package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"go.temporal.io/sdk/client"
	temporalotel "go.temporal.io/sdk/contrib/opentelemetry"
	workerlog "go.temporal.io/sdk/log"
	"gorm.io/gorm"

	procurementkafka "github.com/Apurer/replenishment-engine/internal/domains/procurement/adapters/kafka"
	"github.com/Apurer/replenishment-engine/internal/domains/procurement/adapters/memory"
	procurementobs "github.com/Apurer/replenishment-engine/internal/domains/procurement/adapters/observability"
	procurementpostgres "github.com/Apurer/replenishment-engine/internal/domains/procurement/adapters/persistence/postgres"
	procurementredis "github.com/Apurer/replenishment-engine/internal/domains/procurement/adapters/redis"
	"github.com/Apurer/replenishment-engine/internal/domains/procurement/adapters/yamlfile"
	"github.com/Apurer/replenishment-engine/internal/domains/procurement/application"
	"github.com/Apurer/replenishment-engine/internal/domains/procurement/domain"
	"github.com/Apurer/replenishment-engine/internal/domains/procurement/ports"
	"github.com/Apurer/replenishment-engine/internal/platform/migrations"
	platformobservability "github.com/Apurer/replenishment-engine/internal/platform/observability"
	platformpostgres "github.com/Apurer/replenishment-engine/internal/platform/postgres"
)

// Planner bundles the planner service with the storage it was built on.
type Planner struct {
	Service ports.Service
	// Durable is false when orders live in process memory only.
	Durable bool
}

// BuildPlanner wires storage, locking, event publishing and observability
// around the order planner. The returned cleanup releases every connection.
func BuildPlanner(ctx context.Context, cfg Config, instruments *platformobservability.Instruments) (*Planner, func(), error) {
	logger := effectiveLogger(instruments)
	var cleanups []func()
	cleanup := func() {
		for i := len(cleanups) - 1; i >= 0; i-- {
			cleanups[i]()
		}
	}

	store, catalog, durable, closeDB, err := buildStorage(ctx, cfg, logger)
	if err != nil {
		return nil, cleanup, err
	}
	cleanups = append(cleanups, closeDB)

	opts := []application.Option{
		application.WithRankingPolicy(cfg.RankingPolicy),
		application.WithLogger(logger),
	}

	if cfg.RedisAddr != "" {
		redisClient, err := procurementredis.Connect(ctx, cfg.RedisAddr)
		if err != nil {
			logger.Warn("redis unavailable, using in-process branch locks", slog.String("error", err.Error()))
			opts = append(opts, application.WithBranchLocker(memory.NewBranchLocker()))
		} else {
			cleanups = append(cleanups, func() { _ = redisClient.Close() })
			opts = append(opts, application.WithBranchLocker(procurementredis.NewBranchLocker(redisClient,
				procurementredis.WithTTL(cfg.BranchLockTTL),
				procurementredis.WithLogger(logger),
			)))
			logger.Info("branch locks configured with redis", slog.String("addr", cfg.RedisAddr))
		}
	} else {
		opts = append(opts, application.WithBranchLocker(memory.NewBranchLocker()))
	}

	if cfg.KafkaEnabled() {
		publisher := procurementkafka.NewPublisher(procurementkafka.NewWriter(cfg.KafkaBrokers, cfg.KafkaTopic))
		cleanups = append(cleanups, func() {
			if err := publisher.Close(); err != nil {
				logger.Warn("failed to close kafka writer", slog.String("error", err.Error()))
			}
		})
		opts = append(opts, application.WithEventPublisher(publisher))
		logger.Info("order events published to kafka", slog.String("topic", cfg.KafkaTopic))
	}

	core := application.NewService(catalog, store, opts...)
	service := procurementobs.New(
		core,
		procurementobs.WithLogger(logger),
		procurementobs.WithTracer(instruments.Tracer("internal.procurement.application")),
		procurementobs.WithMeter(instruments.Meter("internal.procurement.application")),
	)
	return &Planner{Service: service, Durable: durable}, cleanup, nil
}

func buildStorage(ctx context.Context, cfg Config, logger *slog.Logger) (ports.OrderStore, ports.OfferCatalog, bool, func(), error) {
	var db *gorm.DB
	closeDB := func() {}
	if cfg.PostgresDSN != "" {
		conn, err := platformpostgres.Connect(ctx, cfg.PostgresDSN)
		if err != nil {
			logger.Warn("failed to connect to postgres, using in-memory order store", slog.String("error", err.Error()))
		} else if err := migrations.Run(conn); err != nil {
			logger.Warn("failed to migrate postgres schema, using in-memory order store", slog.String("error", err.Error()))
		} else if sqlDB, err := conn.DB(); err != nil {
			logger.Warn("failed to unwrap postgres connection, using in-memory order store", slog.String("error", err.Error()))
		} else {
			db = conn
			closeDB = func() { _ = sqlDB.Close() }
		}
	} else {
		logger.Warn("POSTGRES_DSN not set, using in-memory order store")
	}

	offers, err := loadCatalogSeed(cfg.CatalogFile)
	if err != nil {
		closeDB()
		return nil, nil, false, func() {}, err
	}

	if db == nil {
		catalog := memory.NewOfferCatalog()
		for _, offer := range offers {
			if err := catalog.Put(offer); err != nil {
				return nil, nil, false, closeDB, fmt.Errorf("seed offer catalog: %w", err)
			}
		}
		return memory.NewOrderStore(), catalog, false, closeDB, nil
	}

	catalog := procurementpostgres.NewOfferCatalog(db)
	for _, offer := range offers {
		if err := catalog.Put(ctx, offer); err != nil {
			closeDB()
			return nil, nil, false, func() {}, fmt.Errorf("seed offer catalog: %w", err)
		}
	}
	logger.Info("order store configured with postgres", slog.Int("seededOffers", len(offers)))
	return procurementpostgres.NewOrderStore(db), catalog, true, closeDB, nil
}

func loadCatalogSeed(path string) ([]domain.SupplierOffer, error) {
	if path == "" {
		return nil, nil
	}
	offers, err := yamlfile.LoadCatalog(path)
	if err != nil {
		return nil, fmt.Errorf("load CATALOG_FILE: %w", err)
	}
	return offers, nil
}

// LoadSchedule reads the periodic schedule file; nil when none is configured.
func LoadSchedule(cfg Config) (*yamlfile.Schedule, error) {
	if cfg.ScheduleFile == "" {
		return nil, nil
	}
	schedule, err := yamlfile.LoadSchedule(cfg.ScheduleFile)
	if err != nil {
		return nil, fmt.Errorf("load SCHEDULE_FILE: %w", err)
	}
	return schedule, nil
}

// DialTemporal connects a traced Temporal client using the configured address and namespace.
func DialTemporal(cfg Config, instruments *platformobservability.Instruments) (client.Client, error) {
	if cfg.TemporalDisabled {
		return nil, errors.New("temporal disabled via TEMPORAL_DISABLED env")
	}
	tracingInterceptor, err := temporalotel.NewTracingInterceptor(temporalotel.TracerOptions{
		Tracer: instruments.Tracer("temporal-client"),
	})
	if err != nil {
		return nil, err
	}
	options := client.Options{
		HostPort:  cfg.TemporalAddress,
		Namespace: cfg.TemporalNamespace,
		Logger:    workerlog.NewStructuredLogger(effectiveLogger(instruments)),
	}
	options.Interceptors = append(options.Interceptors, tracingInterceptor)
	return client.Dial(options)
}

func effectiveLogger(instruments *platformobservability.Instruments) *slog.Logger {
	if instruments != nil && instruments.Logger != nil {
		return instruments.Logger
	}
	return slog.Default()
}
