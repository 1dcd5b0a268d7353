package reconciler

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"
)

const eventKeyPrefix = "payments:webhook_event:"

// defaultEventTTL bounds how long delivered event ids are remembered.
// The processor stops retrying well inside this window.
const defaultEventTTL = 24 * time.Hour

// RedisIdempotencyGuard remembers processor event ids so re-delivered
// webhooks skip their downstream effects.
type RedisIdempotencyGuard struct {
	Client *redis.Client
	TTL    time.Duration
}

func NewRedisIdempotencyGuard(client *redis.Client) *RedisIdempotencyGuard {
	return &RedisIdempotencyGuard{Client: client, TTL: defaultEventTTL}
}

// FirstDelivery atomically claims an event id. It returns true exactly
// once per id within the TTL window.
func (g *RedisIdempotencyGuard) FirstDelivery(ctx context.Context, eventID string) (bool, error) {
	ttl := g.TTL
	if ttl == 0 {
		ttl = defaultEventTTL
	}
	return g.Client.SetNX(ctx, eventKeyPrefix+eventID, time.Now().Unix(), ttl).Result()
}
