package session

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps sessions in a sorted set scored by expiry, so sessions
// survive restarts and are shared between instances.
type RedisStore struct {
	rdb *redis.Client
	key string
}

// NewRedisStore returns a store using key as the sorted set name.
func NewRedisStore(rdb *redis.Client, key string) *RedisStore {
	if key == "" {
		key = "latke:sessions"
	}
	return &RedisStore{rdb: rdb, key: key}
}

func (r *RedisStore) Touch(ctx context.Context, id string, expires time.Time) (bool, error) {
	added, err := r.rdb.ZAdd(ctx, r.key, redis.Z{Score: float64(expires.Unix()), Member: id}).Result()
	if err != nil {
		return false, err
	}
	return added == 1, nil
}

func (r *RedisStore) Remove(ctx context.Context, id string) (bool, error) {
	n, err := r.rdb.ZRem(ctx, r.key, id).Result()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (r *RedisStore) Expired(ctx context.Context, now time.Time) ([]Session, error) {
	members, err := r.rdb.ZRangeByScoreWithScores(ctx, r.key, &redis.ZRangeBy{
		Min: "-inf",
		Max: strconv.FormatInt(now.Unix(), 10),
	}).Result()
	if err != nil {
		return nil, err
	}
	var out []Session
	for _, z := range members {
		id, ok := z.Member.(string)
		if !ok {
			continue
		}
		// only the instance that removes the member reports it
		n, err := r.rdb.ZRem(ctx, r.key, id).Result()
		if err != nil {
			return out, err
		}
		if n == 1 {
			out = append(out, Session{ID: id, Expires: time.Unix(int64(z.Score), 0)})
		}
	}
	return out, nil
}
