package invitation

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/nowlisten/nowlisten/internal/platform/cache"
	"github.com/nowlisten/nowlisten/internal/shared"
)

const quotaNamespace = "invitation-quota"

// RedisThrottle caps how many invitations one membership may send per hour.
type RedisThrottle struct {
	client redis.Cmdable
	limit  int64
	now    func() time.Time
}

// NewRedisThrottle constructs a throttle allowing limit invitations per inviter per hour.
// A non-positive limit disables the check.
func NewRedisThrottle(client redis.Cmdable, limit int) *RedisThrottle {
	return &RedisThrottle{client: client, limit: int64(limit), now: time.Now}
}

// Allow counts one invitation and fails with RateLimited once the hourly quota is spent.
// Redis failures are returned as is; the service logs them and lets the invitation through.
func (t *RedisThrottle) Allow(ctx context.Context, workspaceID, memberID string) error {
	if t == nil || t.limit <= 0 {
		return nil
	}
	hour := t.now().UTC().Truncate(time.Hour).Unix()
	key := cache.Key(quotaNamespace, workspaceID, memberID, fmt.Sprint(hour))
	n, err := cache.Incr(ctx, t.client, key, time.Hour)
	if err != nil {
		return err
	}
	if n > t.limit {
		return shared.RateLimited(
			fmt.Sprintf("member %s sent %d invitations this hour in %s", memberID, n, workspaceID),
			"Too many invitations, try again later",
		)
	}
	return nil
}
