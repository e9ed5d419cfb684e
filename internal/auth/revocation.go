// AngelaMos | 2026
// revocation.go

package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Revocations tracks access tokens that were logged out before expiry.
type Revocations interface {
	Revoke(ctx context.Context, jti string, expiresAt time.Time) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

type redisRevocations struct {
	client *redis.Client
}

func NewRedisRevocations(client *redis.Client) Revocations {
	return &redisRevocations{client: client}
}

func blacklistKey(jti string) string {
	return "blacklist:" + jti
}

// Revoke keeps the entry only as long as the token could still be used.
func (r *redisRevocations) Revoke(
	ctx context.Context,
	jti string,
	expiresAt time.Time,
) error {
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return nil
	}

	if err := r.client.Set(ctx, blacklistKey(jti), "1", ttl).Err(); err != nil {
		return fmt.Errorf("blacklist token: %w", err)
	}

	return nil
}

func (r *redisRevocations) IsRevoked(
	ctx context.Context,
	jti string,
) (bool, error) {
	exists, err := r.client.Exists(ctx, blacklistKey(jti)).Result()
	if err != nil {
		return false, fmt.Errorf("check blacklist: %w", err)
	}

	return exists > 0, nil
}
