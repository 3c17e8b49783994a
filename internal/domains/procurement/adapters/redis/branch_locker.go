package redis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/Apurer/replenishment-engine/internal/domains/procurement/ports"
)

var _ ports.BranchLocker = (*BranchLocker)(nil)

const (
	defaultTTL   = 30 * time.Second
	defaultRetry = 50 * time.Millisecond
	keyPrefix    = "replenishment:branch-lock:"
)

// releaseScript deletes the key only while it still holds our token.
var releaseScript = goredis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// BranchLocker serializes planning batches for a branch across processes
// with a Redis key per branch. Locks expire after the TTL so a crashed holder
// cannot block a branch forever.
type BranchLocker struct {
	client goredis.UniversalClient
	ttl    time.Duration
	retry  time.Duration
	logger *slog.Logger
}

type Option func(*BranchLocker)

func WithTTL(ttl time.Duration) Option {
	return func(l *BranchLocker) {
		if ttl > 0 {
			l.ttl = ttl
		}
	}
}

func WithRetryInterval(d time.Duration) Option {
	return func(l *BranchLocker) {
		if d > 0 {
			l.retry = d
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(l *BranchLocker) {
		if logger != nil {
			l.logger = logger
		}
	}
}

func NewBranchLocker(client goredis.UniversalClient, opts ...Option) *BranchLocker {
	l := &BranchLocker{client: client, ttl: defaultTTL, retry: defaultRetry, logger: slog.Default()}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Connect parses a redis:// URL or host:port address and verifies connectivity.
func Connect(ctx context.Context, addr string) (*goredis.Client, error) {
	opt, err := goredis.ParseURL(addr)
	if err != nil {
		opt = &goredis.Options{Addr: addr}
	}
	client := goredis.NewClient(opt)
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	return client, nil
}

// Lock polls SET NX until the key is acquired or ctx is done.
func (l *BranchLocker) Lock(ctx context.Context, branchID int64) (func(), error) {
	if l == nil || l.client == nil {
		return nil, errors.New("redis branch locker not configured")
	}
	key := fmt.Sprintf("%s%d", keyPrefix, branchID)
	token := uuid.NewString()

	ticker := time.NewTicker(l.retry)
	defer ticker.Stop()
	for {
		ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("acquire branch lock %d: %w", branchID, err)
		}
		if ok {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}

	released := false
	return func() {
		if released {
			return
		}
		released = true
		// release must run even if the caller's context is already cancelled.
		releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := releaseScript.Run(releaseCtx, l.client, []string{key}, token).Err(); err != nil && !errors.Is(err, goredis.Nil) {
			l.logger.Warn("failed to release branch lock",
				slog.Int64("branch_id", branchID),
				slog.String("error", err.Error()))
		}
	}, nil
}
