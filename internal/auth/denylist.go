package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Denylist tracks revoked token IDs in Redis until their natural expiry.
type Denylist struct {
	client *redis.Client
}

// NewDenylist constructs a Denylist on the given client.
func NewDenylist(client *redis.Client) *Denylist {
	return &Denylist{client: client}
}

func denyKey(tokenID string) string {
	return "taskway:revoked:" + tokenID
}

// Revoke marks a token ID revoked until expiresAt. Already-expired tokens
// need no record.
func (d *Denylist) Revoke(ctx context.Context, tokenID string, expiresAt time.Time) error {
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return nil
	}
	if err := d.client.Set(ctx, denyKey(tokenID), "1", ttl).Err(); err != nil {
		return fmt.Errorf("auth: revoke token: %w", err)
	}
	return nil
}

// IsRevoked reports whether the token ID has been revoked.
func (d *Denylist) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	n, err := d.client.Exists(ctx, denyKey(tokenID)).Result()
	if err != nil {
		return false, fmt.Errorf("auth: check revocation: %w", err)
	}
	return n > 0, nil
}
