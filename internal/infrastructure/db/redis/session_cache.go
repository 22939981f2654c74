package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const sessionKeyPrefix = "session:"

// SessionCache persists a client's encoded session in Redis so several
// processes acting for the same client share it.
// Key format: session:<client_id>
type SessionCache struct {
	client *redis.Client
	key    string
	ttl    time.Duration
}

// NewSessionCache returns a SessionCache for clientID. A ttl <= 0 keeps the
// record until it is cleared.
func NewSessionCache(client *redis.Client, clientID string, ttl time.Duration) *SessionCache {
	return &SessionCache{client: client, key: sessionKeyPrefix + clientID, ttl: ttl}
}

// Load returns nil, nil when nothing is stored.
func (c *SessionCache) Load(ctx context.Context) ([]byte, error) {
	data, err := c.client.Get(ctx, c.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	return data, nil
}

func (c *SessionCache) Save(ctx context.Context, data []byte) error {
	if err := c.client.Set(ctx, c.key, data, c.ttl).Err(); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

func (c *SessionCache) Clear(ctx context.Context) error {
	if err := c.client.Del(ctx, c.key).Err(); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}
