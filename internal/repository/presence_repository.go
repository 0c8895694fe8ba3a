package repository

import (
	"context"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

const presenceKeyPrefix = "presence:user:"

// PresenceRepository mirrors login presence outside the user store.
type PresenceRepository interface {
	MarkOnline(ctx context.Context, userID string, ttl time.Duration) error
}

type presenceRepository struct {
	client *goredis.Client
	now    func() time.Time
}

// NewPresenceRepository returns a Redis-backed implementation.
func NewPresenceRepository(client *goredis.Client) PresenceRepository {
	return &presenceRepository{client: client, now: time.Now}
}

// MarkOnline records the login time under a key that expires with the session token.
func (r *presenceRepository) MarkOnline(ctx context.Context, userID string, ttl time.Duration) error {
	return r.client.Set(ctx, presenceKeyPrefix+userID, r.now().UTC().Format(time.RFC3339), ttl).Err()
}
