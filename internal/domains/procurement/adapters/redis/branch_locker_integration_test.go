//go:build integration

package redis

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func setupRedis(t *testing.T) string {
	t.Helper()
	ctx := context.Background()
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(30 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "6379")
	require.NoError(t, err)
	return fmt.Sprintf("%s:%s", host, port.Port())
}

func TestBranchLocker_SerializesAcrossClients(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	addr := setupRedis(t)
	ctx := context.Background()

	first, err := Connect(ctx, addr)
	require.NoError(t, err)
	defer first.Close()
	second, err := Connect(ctx, addr)
	require.NoError(t, err)
	defer second.Close()

	a := NewBranchLocker(first, WithRetryInterval(5*time.Millisecond))
	b := NewBranchLocker(second, WithRetryInterval(5*time.Millisecond))

	unlock, err := a.Lock(ctx, 1)
	require.NoError(t, err)

	unlockOther, err := b.Lock(ctx, 2)
	require.NoError(t, err)
	unlockOther()

	waitCtx, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
	defer cancel()
	_, err = b.Lock(waitCtx, 1)
	require.ErrorIs(t, err, context.DeadlineExceeded)

	unlock()
	unlock()

	again, err := b.Lock(ctx, 1)
	require.NoError(t, err)
	again()
}

func TestBranchLocker_ExpiredLockIsNotReleasedByStaleHolder(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	addr := setupRedis(t)
	ctx := context.Background()

	client, err := Connect(ctx, addr)
	require.NoError(t, err)
	defer client.Close()

	short := NewBranchLocker(client, WithTTL(100*time.Millisecond), WithRetryInterval(10*time.Millisecond))
	stale, err := short.Lock(ctx, 9)
	require.NoError(t, err)

	// the stale holder's key expires and another holder takes over.
	holder := NewBranchLocker(client, WithRetryInterval(10*time.Millisecond))
	current, err := holder.Lock(ctx, 9)
	require.NoError(t, err)

	stale()

	waitCtx, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
	defer cancel()
	_, err = holder.Lock(waitCtx, 9)
	require.ErrorIs(t, err, context.DeadlineExceeded)

	current()
}
