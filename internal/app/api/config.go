package api

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.temporal.io/sdk/client"

	"github.com/Apurer/replenishment-engine/internal/domains/procurement/adapters/kafka"
	"github.com/Apurer/replenishment-engine/internal/domains/procurement/domain"
)

const defaultBranchLockTTL = 30 * time.Second

// Config carries environment-driven settings for the replenishment processes.
type Config struct {
	Port              string
	PostgresDSN       string
	TemporalAddress   string
	TemporalNamespace string
	TemporalDisabled  bool
	RedisAddr         string
	BranchLockTTL     time.Duration
	KafkaBrokers      []string
	KafkaTopic        string
	RankingPolicy     domain.RankingPolicy
	ScheduleFile      string
	CatalogFile       string
	SweepBranchIDs    []int64
	SweepConcurrency  int
}

// LoadConfig reads environment variables, applies defaults, and validates basic constraints.
// A .env file in the working directory is loaded first when present; real
// environment variables win over its entries.
func LoadConfig() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		Port:              envDefault("PORT", "8080"),
		PostgresDSN:       strings.TrimSpace(os.Getenv("POSTGRES_DSN")),
		TemporalAddress:   envDefault("TEMPORAL_ADDRESS", client.DefaultHostPort),
		TemporalNamespace: envDefault("TEMPORAL_NAMESPACE", client.DefaultNamespace),
		TemporalDisabled:  isTruthy(os.Getenv("TEMPORAL_DISABLED")),
		RedisAddr:         strings.TrimSpace(os.Getenv("REDIS_ADDR")),
		BranchLockTTL:     defaultBranchLockTTL,
		KafkaBrokers:      splitList(os.Getenv("KAFKA_BROKERS")),
		KafkaTopic:        envDefault("KAFKA_TOPIC", kafka.DefaultTopic),
		ScheduleFile:      strings.TrimSpace(os.Getenv("SCHEDULE_FILE")),
		CatalogFile:       strings.TrimSpace(os.Getenv("CATALOG_FILE")),
		SweepConcurrency:  4,
	}

	policy, err := domain.ParseRankingPolicy(strings.TrimSpace(os.Getenv("RANKING_POLICY")))
	if err != nil {
		return Config{}, fmt.Errorf("RANKING_POLICY: %w", err)
	}
	cfg.RankingPolicy = policy

	if raw := strings.TrimSpace(os.Getenv("BRANCH_LOCK_TTL_SECONDS")); raw != "" {
		seconds, err := strconv.Atoi(raw)
		if err != nil || seconds <= 0 {
			return Config{}, fmt.Errorf("BRANCH_LOCK_TTL_SECONDS must be a positive integer")
		}
		cfg.BranchLockTTL = time.Duration(seconds) * time.Second
	}
	if raw := strings.TrimSpace(os.Getenv("SWEEP_CONCURRENCY")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			return Config{}, fmt.Errorf("SWEEP_CONCURRENCY must be a positive integer")
		}
		cfg.SweepConcurrency = n
	}
	for _, raw := range splitList(os.Getenv("BRANCH_IDS")) {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			return Config{}, fmt.Errorf("BRANCH_IDS: invalid branch id %q", raw)
		}
		cfg.SweepBranchIDs = append(cfg.SweepBranchIDs, id)
	}
	return cfg, nil
}

// KafkaEnabled reports whether order events should be published to Kafka.
func (c Config) KafkaEnabled() bool {
	return len(c.KafkaBrokers) > 0
}

func envDefault(key, fallback string) string {
	if val := strings.TrimSpace(os.Getenv(key)); val != "" {
		return val
	}
	return fallback
}

func isTruthy(value string) bool {
	value = strings.TrimSpace(strings.ToLower(value))
	return value == "1" || value == "true" || value == "yes"
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
