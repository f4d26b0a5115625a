package access

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	apperrors "yt-download-bot/internal/common/errors"
	"yt-download-bot/internal/common/logger"
	rplatform "yt-download-bot/internal/platform/redis"
)

// CachedChecker remembers positive membership results in Redis for ttl.
// Negative results are never cached so a fresh subscription is seen immediately.
type CachedChecker struct {
	next MembershipChecker
	rdb  *rplatform.Client
	ttl  time.Duration
}

func NewCachedChecker(next MembershipChecker, rdb *rplatform.Client, ttl time.Duration) *CachedChecker {
	return &CachedChecker{next: next, rdb: rdb, ttl: ttl}
}

func memberKey(channel string, userID int64) string {
	return fmt.Sprintf("member:%s:%d", channel, userID)
}

func (c *CachedChecker) IsMember(ctx context.Context, channel string, userID int64) (bool, error) {
	key := memberKey(channel, userID)
	if _, err := c.rdb.Get(ctx, key).Result(); err == nil {
		return true, nil
	} else if !errors.Is(err, redis.Nil) {
		logger.Warn().Err(apperrors.NewCacheError("get membership", err)).Str("key", key).Msg("Membership cache read failed")
	}

	ok, err := c.next.IsMember(ctx, channel, userID)
	if err != nil || !ok {
		return ok, err
	}
	if err := c.rdb.Set(ctx, key, 1, c.ttl).Err(); err != nil {
		logger.Warn().Err(apperrors.NewCacheError("set membership", err)).Str("key", key).Msg("Membership cache write failed")
	}
	return true, nil
}
