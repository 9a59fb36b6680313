package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/bookloft/bookloft/internal/model"
)

// sessionPrefix is the Redis key prefix for login sessions.
const sessionPrefix = "session:"

// SetSession stores a login session under the given token with a TTL.
// Expiry is enforced by Redis; there is no separate reaper.
func (c *Cache) SetSession(ctx context.Context, token string, sess *model.Session, ttl time.Duration) error {
	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}

	return c.client.Set(ctx, sessionPrefix+token, data, ttl).Err()
}

// GetSession retrieves the session for a token.
// Returns nil if the token is unknown or expired (a miss, not an error).
// Sessions live only in Redis, so a transport error is surfaced rather
// than folded into a miss.
func (c *Cache) GetSession(ctx context.Context, token string) (*model.Session, error) {
	data, err := c.client.Get(ctx, sessionPrefix+token).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}

	var sess model.Session
	if err := json.Unmarshal(data, &sess); err != nil {
		// Corrupted entry - treat as miss
		return nil, nil //nolint:nilerr
	}

	return &sess, nil
}

// DeleteSession revokes a session token.
func (c *Cache) DeleteSession(ctx context.Context, token string) error {
	return c.client.Del(ctx, sessionPrefix+token).Err()
}
