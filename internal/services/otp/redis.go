// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package otp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultRedisPrefix namespaces code keys.
const DefaultRedisPrefix = "otp"

// maxRetries bounds optimistic-lock retries on concurrent access to one key.
const maxRetries = 4

var errRedisUnavailable = errors.New("otp redis unavailable")

// RedisStore is a Store shared by every instance pointing at the same redis.
type RedisStore struct {
	client *redis.Client
	prefix string
	length  int
	retries int
	now     func() time.Time
}

// NewRedisStore returns a RedisStore using client. An empty prefix selects
// DefaultRedisPrefix.
func NewRedisStore(client *redis.Client, prefix string, length int) *RedisStore {
	if prefix == "" {
		prefix = DefaultRedisPrefix
	}
	return &RedisStore{
		client:  client,
		prefix:  prefix,
		length:  length,
		retries: maxRetries,
		now:     time.Now,
	}
}

// SetClock replaces the time source used for expiry checks.
func (s *RedisStore) SetClock(now func() time.Time) {
	s.now = now
}

func (s *RedisStore) key(key string) string {
	return s.prefix + ":" + key
}

// Issue stores a fresh code for key, replacing any pending one. The redis TTL
// matches the code's lifetime.
func (s *RedisStore) Issue(ctx context.Context, key string, purpose Purpose, ttl time.Duration) (string, error) {
	e, err := newEntry(s.length, purpose, ttl, s.now())
	if err != nil {
		return "", err
	}

	data, err := json.Marshal(e)
	if err != nil {
		return "", fmt.Errorf("failed to encode code: %w", err)
	}

	if err := s.client.Set(ctx, s.key(key), data, e.ExpiresAt.Sub(e.IssuedAt)).Err(); err != nil {
		return "", fmt.Errorf("%w: %v", errRedisUnavailable, err)
	}
	return e.Code, nil
}

// Verify consumes the pending code for key inside a WATCH transaction so a
// concurrent Issue for the same key either lands before the read or aborts
// this attempt.
func (s *RedisStore) Verify(ctx context.Context, key, code string, purpose Purpose) (bool, error) {
	k := s.key(key)

	for range s.retries {
		var matched bool

		err := s.client.Watch(ctx, func(tx *redis.Tx) error {
			data, err := tx.Get(ctx, k).Bytes()
			if err != nil {
				return err
			}

			var e entry
			if err := json.Unmarshal(data, &e); err != nil {
				return fmt.Errorf("failed to decode code: %w", err)
			}

			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Del(ctx, k)
				return nil
			})
			if err != nil {
				return err
			}

			matched = e.check(code, purpose, s.now())
			return nil
		}, k)

		switch {
		case errors.Is(err, redis.TxFailedErr):
			continue
		case errors.Is(err, redis.Nil):
			return false, nil
		case err != nil:
			return false, fmt.Errorf("%w: %v", errRedisUnavailable, err)
		}
		return matched, nil
	}

	return false, fmt.Errorf("%w: too many concurrent updates", errRedisUnavailable)
}
