//go:build integration

package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func TestRedisStoreSlidingWindow(t *testing.T) {
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections"),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	endpoint, err := container.Endpoint(ctx, "")
	require.NoError(t, err)

	client := redis.NewClient(&redis.Options{Addr: endpoint})
	t.Cleanup(func() { _ = client.Close() })

	store := NewRedisStore(client)
	rule := Rule{MaxRequests: 3, Window: time.Second}
	now := time.Now()

	for i := 0; i < 3; i++ {
		ok, err := store.Take(ctx, "it:user", now.Add(time.Duration(i)*100*time.Millisecond), rule)
		require.NoError(t, err)
		assert.True(t, ok)
	}

	ok, err := store.Take(ctx, "it:user", now.Add(300*time.Millisecond), rule)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = store.Take(ctx, "it:user", now.Add(1100*time.Millisecond), rule)
	require.NoError(t, err)
	assert.True(t, ok)
}
