package captcha

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrTokenConsumed covers every failed lookup: unknown, expired, or already
// used tokens are indistinguishable to the caller so answers cannot be probed.
var ErrTokenConsumed = errors.New("captcha token unknown, expired, or already consumed")

// Store persists outstanding challenges keyed by token.
type Store interface {
	Put(ctx context.Context, ch Challenge) error
	// Consume removes the challenge and returns its stored answer. A token can
	// be consumed at most once; every later call fails with ErrTokenConsumed.
	Consume(ctx context.Context, token string) (Challenge, error)
}

const redisKeyPrefix = "captcha:v1:"

// RedisStore keeps challenges in Redis. Expiry is delegated to key TTLs, so
// expired challenges are garbage-collected by Redis itself.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore builds a Redis-backed challenge store.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Put(ctx context.Context, ch Challenge) error {
	ttl := time.Until(ch.ExpiresAt)
	if ttl <= 0 {
		return errors.New("challenge already expired")
	}
	value := string(ch.Kind) + "|" + ch.Answer
	return s.client.Set(ctx, redisKeyPrefix+ch.Token, value, ttl).Err()
}

func (s *RedisStore) Consume(ctx context.Context, token string) (Challenge, error) {
	// GETDEL is the atomic consume-once: concurrent calls for the same token
	// see at most one success.
	value, err := s.client.GetDel(ctx, redisKeyPrefix+token).Result()
	if err == redis.Nil {
		return Challenge{}, ErrTokenConsumed
	}
	if err != nil {
		return Challenge{}, err
	}
	kind, answer, ok := splitStored(value)
	if !ok {
		return Challenge{}, ErrTokenConsumed
	}
	return Challenge{Token: token, Kind: kind, Answer: answer}, nil
}

func splitStored(value string) (Kind, string, bool) {
	for i := 0; i < len(value); i++ {
		if value[i] == '|' {
			return Kind(value[:i]), value[i+1:], true
		}
	}
	return "", "", false
}
