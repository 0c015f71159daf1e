package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// EventCache remembers externally delivered event ids so verbatim webhook
// redeliveries can be short-circuited before touching the database. It is a
// best-effort optimisation: processing stays idempotent without it.
type EventCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewEventCache builds an EventCache with the given retention.
func NewEventCache(client *redis.Client, ttl time.Duration) *EventCache {
	return &EventCache{client: client, ttl: ttl}
}

// Seen reports whether the event id was already recorded.
func (c *EventCache) Seen(ctx context.Context, eventID string) bool {
	if c == nil || c.client == nil || eventID == "" {
		return false
	}
	n, err := c.client.Exists(ctx, c.key(eventID)).Result()
	if err != nil {
		return false
	}
	return n > 0
}

// Mark records the event id for the configured retention window.
func (c *EventCache) Mark(ctx context.Context, eventID string) {
	if c == nil || c.client == nil || eventID == "" {
		return
	}
	_ = c.client.Set(ctx, c.key(eventID), 1, c.ttl).Err()
}

func (c *EventCache) key(eventID string) string {
	return "webhook:event:" + eventID
}
