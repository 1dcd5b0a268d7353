package reconciler

import (
	"context"
	"testing"

	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// TestIdempotencyGuardIntegration exercises the guard against a real
// Redis container.
func TestIdempotencyGuardIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping Redis integration test in short mode")
	}

	ctx := context.Background()
	redisContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:latest",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections"),
		},
		Started: true,
	})
	if err != nil {
		t.Fatalf("Failed to start Redis container: %v", err)
	}
	defer redisContainer.Terminate(ctx)

	host, err := redisContainer.Host(ctx)
	require.NoError(t, err)

	port, err := redisContainer.MappedPort(ctx, "6379")
	require.NoError(t, err)

	client := redis.NewClient(&redis.Options{
		Addr: host + ":" + port.Port(),
	})
	defer client.Close()

	guard := NewRedisIdempotencyGuard(client)

	first, err := guard.FirstDelivery(ctx, "evt-integration-1")
	require.NoError(t, err)
	assert.True(t, first, "Expected first delivery to claim the event id")

	second, err := guard.FirstDelivery(ctx, "evt-integration-1")
	require.NoError(t, err)
	assert.False(t, second, "Expected re-delivery to be detected as duplicate")

	ttl, err := client.TTL(ctx, eventKeyPrefix+"evt-integration-1").Result()
	require.NoError(t, err)
	assert.Greater(t, ttl.Hours(), 23.0, "Expected the claim to carry the retention TTL")
}
