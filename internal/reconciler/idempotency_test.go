package reconciler

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestGuard(t *testing.T) (*RedisIdempotencyGuard, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisIdempotencyGuard(client), mr
}

func TestFirstDeliveryClaimsOnce(t *testing.T) {
	guard, _ := newTestGuard(t)
	ctx := context.Background()

	first, err := guard.FirstDelivery(ctx, "evt-1")
	require.NoError(t, err)
	assert.True(t, first)

	second, err := guard.FirstDelivery(ctx, "evt-1")
	require.NoError(t, err)
	assert.False(t, second)
}

func TestFirstDeliveryIsPerEvent(t *testing.T) {
	guard, _ := newTestGuard(t)
	ctx := context.Background()

	first, err := guard.FirstDelivery(ctx, "evt-1")
	require.NoError(t, err)
	assert.True(t, first)

	other, err := guard.FirstDelivery(ctx, "evt-2")
	require.NoError(t, err)
	assert.True(t, other)
}

func TestFirstDeliveryExpires(t *testing.T) {
	guard, mr := newTestGuard(t)
	guard.TTL = time.Minute
	ctx := context.Background()

	first, err := guard.FirstDelivery(ctx, "evt-1")
	require.NoError(t, err)
	assert.True(t, first)

	mr.FastForward(2 * time.Minute)

	again, err := guard.FirstDelivery(ctx, "evt-1")
	require.NoError(t, err)
	assert.True(t, again)
}
