package registry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const DefaultRedisPrefix = "docpager:refresh"

var ErrRedisUnavailable = errors.New("redis unavailable")

// Redis keeps one Redis set per user under "<prefix>:<userID>". Set commands
// are atomic, so no client-side locking is needed.
type Redis struct {
	redis  redis.UniversalClient
	prefix string
	ttl    time.Duration
}

var _ Registry = (*Redis)(nil)

// NewRedis returns a registry on top of client. A positive ttl is renewed
// on every registration, so a user set expires ttl after its last login.
func NewRedis(client redis.UniversalClient, prefix string, ttl time.Duration) *Redis {
	if prefix == "" {
		prefix = DefaultRedisPrefix
	}

	return &Redis{redis: client, prefix: prefix, ttl: ttl}
}

func (r *Redis) key(userID string) string {
	return r.prefix + ":" + userID
}

func (r *Redis) Register(ctx context.Context, userID, token string) error {
	if err := validate(userID); err != nil {
		return err
	}

	_, err := r.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.SAdd(ctx, r.key(userID), token)
		if r.ttl > 0 {
			pipe.Expire(ctx, r.key(userID), r.ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	return nil
}

func (r *Redis) Tokens(ctx context.Context, userID string) (TokenSet, error) {
	if err := validate(userID); err != nil {
		return nil, err
	}

	members, err := r.redis.SMembers(ctx, r.key(userID)).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	return NewTokenSet(members...), nil
}

func (r *Redis) Contains(ctx context.Context, userID, token string) (bool, error) {
	if err := validate(userID); err != nil {
		return false, err
	}

	ok, err := r.redis.SIsMember(ctx, r.key(userID), token).Result()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	return ok, nil
}

func (r *Redis) Revoke(ctx context.Context, userID, token string) (bool, error) {
	if err := validate(userID); err != nil {
		return false, err
	}

	n, err := r.redis.SRem(ctx, r.key(userID), token).Result()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	return n > 0, nil
}

func (r *Redis) Clear(ctx context.Context, userID string) error {
	if err := validate(userID); err != nil {
		return err
	}

	if err := r.redis.Del(ctx, r.key(userID)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	return nil
}

// Reset deletes every user set under the prefix. Sets registered while the
// scan is running may survive.
func (r *Redis) Reset(ctx context.Context) error {
	var cursor uint64
	for {
		keys, next, err := r.redis.Scan(ctx, cursor, r.prefix+":*", 1000).Result()
		if err != nil {
			return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
		}
		if len(keys) > 0 {
			// one DEL per key keeps cluster slots apart
			pipe := r.redis.Pipeline()
			for _, key := range keys {
				pipe.Del(ctx, key)
			}
			if _, err = pipe.Exec(ctx); err != nil {
				return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
			}
		}

		cursor = next
		if cursor == 0 {
			return nil
		}
	}
}
