package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RosterCache handles Redis operations for batch rosters. Rosters change
// rarely during a live session, so a short TTL keeps join authorization off
// the primary store.
type RosterCache interface {
	Get(ctx context.Context, batchID string) ([]string, error)
	Set(ctx context.Context, batchID string, studentIDs []string) error
}

type rosterCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRosterCache creates a new roster cache.
func NewRosterCache(client *redis.Client) RosterCache {
	return &rosterCache{
		client: client,
		ttl:    5 * time.Minute,
	}
}

func (c *rosterCache) key(batchID string) string {
	return fmt.Sprintf("batch:%s:roster", batchID)
}

// Get returns the cached roster, or nil on a miss.
func (c *rosterCache) Get(ctx context.Context, batchID string) ([]string, error) {
	data, err := c.client.Get(ctx, c.key(batchID)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var ids []string
	if err := json.Unmarshal([]byte(data), &ids); err != nil {
		return nil, err
	}
	if ids == nil {
		ids = []string{}
	}
	return ids, nil
}

func (c *rosterCache) Set(ctx context.Context, batchID string, studentIDs []string) error {
	if studentIDs == nil {
		studentIDs = []string{}
	}
	data, err := json.Marshal(studentIDs)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, c.key(batchID), data, c.ttl).Err()
}
