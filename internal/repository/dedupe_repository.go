package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// DedupeRepository tracks reminder dispatch markers in Redis so the same
// reminder is sent at most once per entity, rule and evaluation day.
type DedupeRepository struct {
	client *redis.Client
	ttl    time.Duration
}

// NewDedupeRepository constructs a dedupe repository. The TTL bounds how long a
// dispatch marker survives; it must comfortably exceed one evaluation day.
func NewDedupeRepository(client *redis.Client, ttl time.Duration) *DedupeRepository {
	if ttl <= 0 {
		ttl = 48 * time.Hour
	}
	return &DedupeRepository{client: client, ttl: ttl}
}

func dedupeKey(entityID, ruleID string, day time.Time) string {
	return fmt.Sprintf("reminder:dedupe:%s:%s:%s", entityID, ruleID, day.UTC().Format("2006-01-02"))
}

// MarkDispatched records that a reminder fired for the given entity, rule and
// day. It returns true when this call created the marker and false when a
// marker already existed, meaning the reminder was dispatched earlier.
func (r *DedupeRepository) MarkDispatched(ctx context.Context, entityID, ruleID string, day time.Time) (bool, error) {
	if r.client == nil {
		// Without Redis every dispatch is treated as first, duplicates may occur.
		return true, nil
	}
	ok, err := r.client.SetNX(ctx, dedupeKey(entityID, ruleID, day), 1, r.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("mark reminder dispatched: %w", err)
	}
	return ok, nil
}

// ClearDispatched removes a dispatch marker, allowing the reminder to fire
// again. Used when delivery failed terminally and the reminder should retry on
// the next evaluation pass.
func (r *DedupeRepository) ClearDispatched(ctx context.Context, entityID, ruleID string, day time.Time) error {
	if r.client == nil {
		return nil
	}
	if err := r.client.Del(ctx, dedupeKey(entityID, ruleID, day)).Err(); err != nil {
		return fmt.Errorf("clear reminder marker: %w", err)
	}
	return nil
}
