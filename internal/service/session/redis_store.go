package session

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	apperrors "yt-download-bot/internal/common/errors"
	rplatform "yt-download-bot/internal/platform/redis"
)

// RedisStore keeps sessions in Redis so they survive restarts.
// Non-idle states expire after ttl.
type RedisStore struct {
	rdb *rplatform.Client
	ttl time.Duration
}

func NewRedisStore(rdb *rplatform.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{rdb: rdb, ttl: ttl}
}

func sessionKey(chatID int64) string { return fmt.Sprintf("session:%d:state", chatID) }

func (s *RedisStore) Get(ctx context.Context, chatID int64) (State, error) {
	v, err := s.rdb.Get(ctx, sessionKey(chatID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return StateIdle, nil
		}
		return StateIdle, apperrors.NewCacheError("get session", err)
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return StateIdle, apperrors.NewCacheError("parse session", err)
	}
	return State(n), nil
}

func (s *RedisStore) Set(ctx context.Context, chatID int64, state State) error {
	key := sessionKey(chatID)
	var err error
	if state == StateIdle {
		err = s.rdb.Del(ctx, key).Err()
	} else {
		err = s.rdb.Set(ctx, key, int(state), s.ttl).Err()
	}
	if err != nil {
		return apperrors.NewCacheError("set session", err)
	}
	return nil
}
