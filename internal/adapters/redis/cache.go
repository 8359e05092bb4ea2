package redis

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

type Cache struct {
	client *redis.Client
}

func NewCache(client *redis.Client) *Cache {
	return &Cache{client: client}
}

func (c *Cache) Client() *redis.Client {
	return c.client
}

// SetConfirmLock takes a short-lived lock around sale confirmation so two
// in-flight confirms for one reservation collapse to a single writer. The
// unique constraint on sales remains the authority; this only cheapens the
// losing path.
func (c *Cache) SetConfirmLock(ctx context.Context, reservationID string, ttl time.Duration) (bool, error) {
	res := c.client.SetNX(ctx, "confirm:"+reservationID, "1", ttl)
	return res.Val(), res.Err()
}

func (c *Cache) ReleaseConfirmLock(ctx context.Context, reservationID string) error {
	return c.client.Del(ctx, "confirm:"+reservationID).Err()
}
