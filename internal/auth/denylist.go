package auth

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

const denylistPrefix = "auth:revoked:"

// Denylist stores revoked token ids (jti) in Redis until their natural expiry.
type Denylist struct {
	client *redis.Client
}

// NewDenylist creates a Redis-backed token denylist.
func NewDenylist(client *redis.Client) *Denylist {
	return &Denylist{client: client}
}

// Revoke marks a token id as revoked for ttl (the token's remaining lifetime).
func (d *Denylist) Revoke(ctx context.Context, jti string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil // already expired, nothing to deny
	}
	return d.client.Set(ctx, denylistPrefix+jti, "1", ttl).Err()
}

// IsRevoked reports whether the token id has been revoked.
func (d *Denylist) IsRevoked(ctx context.Context, jti string) (bool, error) {
	n, err := d.client.Exists(ctx, denylistPrefix+jti).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
