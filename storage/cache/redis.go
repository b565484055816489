// Package cache keeps the per-user pending counts in redis.
package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/pkg/errors"

	"github.com/xronos/xronos/core"
	"github.com/xronos/xronos/core/access"
	"github.com/xronos/xronos/core/event"
)

const pendingKeyPrefix = "xronos:pending:"

func NewRedisClient(conf *core.Config) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     conf.Redis.Addr,
		Password: conf.Redis.Password,
		DB:       conf.Redis.DB,
	})
}

// Ping checks the connection, waiting a bit longer between each attempt.
func Ping(ctx context.Context, client *redis.Client) error {
	var err error
	for attempts := 1; attempts <= 10; attempts++ {
		if err = client.Ping(ctx).Err(); err == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return errors.Wrap(ctx.Err(), "redis ping cancelled")
		case <-time.After(time.Duration(attempts) * 100 * time.Millisecond):
		}
	}
	return errors.Wrap(err, "redis ping timeout")
}

type PendingCache struct {
	client *redis.Client
	ttl    time.Duration
}

var _ access.PendingCache = (*PendingCache)(nil) // interface compliance check

func NewPendingCache(client *redis.Client, ttl time.Duration) *PendingCache {
	return &PendingCache{client: client, ttl: ttl}
}

func pendingKey(userID string) string { return pendingKeyPrefix + userID }

func (pc *PendingCache) Get(ctx context.Context, userID string) (event.Pending, bool, error) {
	val, err := pc.client.Get(ctx, pendingKey(userID)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return event.Pending{}, false, nil
		}
		return event.Pending{}, false, errors.Wrap(err, "reading pending counts")
	}
	var p event.Pending
	if err = json.Unmarshal(val, &p); err != nil {
		return event.Pending{}, false, errors.Wrap(err, "decoding pending counts")
	}
	return p, true, nil
}

func (pc *PendingCache) Set(ctx context.Context, userID string, p event.Pending) error {
	val, err := json.Marshal(p)
	if err != nil {
		return errors.Wrap(err, "encoding pending counts")
	}
	return errors.Wrap(pc.client.Set(ctx, pendingKey(userID), val, pc.ttl).Err(), "storing pending counts")
}

// Invalidate forgets the counts of the given users; nothing happens for an empty list.
func (pc *PendingCache) Invalidate(ctx context.Context, userIDs ...string) error {
	if len(userIDs) == 0 {
		return nil
	}
	keys := make([]string, 0, len(userIDs))
	for _, id := range userIDs {
		keys = append(keys, pendingKey(id))
	}
	return errors.Wrap(pc.client.Del(ctx, keys...).Err(), "invalidating pending counts")
}
