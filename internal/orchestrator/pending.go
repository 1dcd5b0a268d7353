package orchestrator

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
)

const pendingOrdersKey = "payments:pending_orders"

// PendingEntry is one tracked unsettled order.
type PendingEntry struct {
	OrderID        string
	ConektaOrderID string
	Deadline       time.Time
}

// RedisPendingTracker keeps unsettled orders in a sorted set scored by
// their expiry deadline. The reconciler removes entries as soon as a
// terminal webhook lands, so the sweeper only ever sees orders the
// processor went silent on.
type RedisPendingTracker struct {
	Client *redis.Client
}

func NewRedisPendingTracker(client *redis.Client) *RedisPendingTracker {
	return &RedisPendingTracker{Client: client}
}

func member(orderID, conektaOrderID string) string {
	return orderID + "|" + conektaOrderID
}

func (t *RedisPendingTracker) Track(ctx context.Context, orderID, conektaOrderID string, deadline time.Time) error {
	return t.Client.ZAdd(ctx, pendingOrdersKey, &redis.Z{
		Score:  float64(deadline.Unix()),
		Member: member(orderID, conektaOrderID),
	}).Err()
}

// Due returns entries whose deadline has passed, oldest first.
func (t *RedisPendingTracker) Due(ctx context.Context, now time.Time, limit int) ([]PendingEntry, error) {
	members, err := t.Client.ZRangeByScoreWithScores(ctx, pendingOrdersKey, &redis.ZRangeBy{
		Min:   "-inf",
		Max:   strconv.FormatInt(now.Unix(), 10),
		Count: int64(limit),
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read pending orders: %w", err)
	}

	entries := make([]PendingEntry, 0, len(members))
	for _, z := range members {
		raw, ok := z.Member.(string)
		if !ok {
			continue
		}
		orderID, conektaOrderID, found := strings.Cut(raw, "|")
		if !found {
			continue
		}
		entries = append(entries, PendingEntry{
			OrderID:        orderID,
			ConektaOrderID: conektaOrderID,
			Deadline:       time.Unix(int64(z.Score), 0),
		})
	}

	return entries, nil
}

func (t *RedisPendingTracker) Remove(ctx context.Context, orderID, conektaOrderID string) error {
	return t.Client.ZRem(ctx, pendingOrdersKey, member(orderID, conektaOrderID)).Err()
}

// RemoveByOrderID drops a tracked order when the caller does not know the
// processor order id (webhook metadata carries only the local id).
func (t *RedisPendingTracker) RemoveByOrderID(ctx context.Context, orderID string) error {
	members, err := t.Client.ZRange(ctx, pendingOrdersKey, 0, -1).Result()
	if err != nil {
		return err
	}
	for _, raw := range members {
		if strings.HasPrefix(raw, orderID+"|") {
			if err := t.Client.ZRem(ctx, pendingOrdersKey, raw).Err(); err != nil {
				return err
			}
		}
	}
	return nil
}
