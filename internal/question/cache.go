package question

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const defaultRenderTTL = 5 * time.Minute

// Cache provides Redis-backed storage of rendered views to offload repeated
// rendering on the problem page. Rendering is deterministic per (user,
// question), so expiry can never change what a user sees mid round-trip.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

var _ RenderCache = (*Cache)(nil)

func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = defaultRenderTTL
	}
	return &Cache{client: client, ttl: ttl}
}

func (c *Cache) key(userID, questionID uuid.UUID) string {
	return strings.Join([]string{"render", userID.String(), questionID.String()}, ":")
}

func (c *Cache) Get(ctx context.Context, userID, questionID uuid.UUID) (*Rendered, error) {
	data, err := c.client.Get(ctx, c.key(userID, questionID)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, err
	}
	var rendered Rendered
	if err := json.Unmarshal(data, &rendered); err != nil {
		return nil, err
	}
	return &rendered, nil
}

func (c *Cache) Set(ctx context.Context, userID, questionID uuid.UUID, rendered Rendered) error {
	data, err := json.Marshal(rendered)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, c.key(userID, questionID), data, c.ttl).Err()
}
