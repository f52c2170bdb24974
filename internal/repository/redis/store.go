package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"salesdesk/pkg/errors"
)

const maxUpdateRetries = 5

// jsonStore keeps JSON values under a key prefix with a sliding TTL
type jsonStore[T any] struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
	fresh  func() T
}

func (s *jsonStore[T]) key(key string) string {
	return s.prefix + key
}

// unavailable marks a client-side failure as retryable
func unavailable(err error, format string, args ...interface{}) error {
	return errors.Wrapf(fmt.Errorf("%w: %w", errors.ErrUnavailable, err), format, args...)
}

func (s *jsonStore[T]) get(ctx context.Context, key string) (T, error) {
	var zero T

	data, err := s.client.Get(ctx, s.key(key)).Bytes()
	if err == redis.Nil {
		return zero, errors.Wrapf(errors.ErrNotFound, "%s not found for key=%s", s.prefix, key)
	}
	if err != nil {
		return zero, unavailable(err, "failed to get %s from redis: key=%s", s.prefix, key)
	}

	value := s.fresh()
	if err := json.Unmarshal(data, value); err != nil {
		return zero, errors.Wrapf(err, "failed to unmarshal %s: key=%s", s.prefix, key)
	}
	return value, nil
}

func (s *jsonStore[T]) put(ctx context.Context, key string, value T) error {
	data, err := json.Marshal(value)
	if err != nil {
		return errors.Wrapf(err, "failed to marshal %s: key=%s", s.prefix, key)
	}
	if err := s.client.Set(ctx, s.key(key), data, s.ttl).Err(); err != nil {
		return unavailable(err, "failed to save %s to redis: key=%s", s.prefix, key)
	}
	return nil
}

// update is an optimistic read-modify-write; retried when another writer
// touches the key between WATCH and EXEC
func (s *jsonStore[T]) update(ctx context.Context, key string, fn func(T) error) (T, error) {
	var (
		zero   T
		result T
		rkey   = s.key(key)
	)

	watched := false
	txf := func(tx *redis.Tx) error {
		watched = true
		value := s.fresh()
		data, err := tx.Get(ctx, rkey).Bytes()
		switch {
		case err == redis.Nil:
		case err != nil:
			return unavailable(err, "failed to get %s from redis: key=%s", s.prefix, key)
		default:
			if err := json.Unmarshal(data, value); err != nil {
				return errors.Wrapf(err, "failed to unmarshal %s: key=%s", s.prefix, key)
			}
		}

		if err := fn(value); err != nil {
			return err
		}

		out, err := json.Marshal(value)
		if err != nil {
			return errors.Wrapf(err, "failed to marshal %s: key=%s", s.prefix, key)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, rkey, out, s.ttl)
			return nil
		})
		switch {
		case err == nil:
			result = value
		case err != redis.TxFailedErr:
			err = unavailable(err, "failed to save %s to redis: key=%s", s.prefix, key)
		}
		return err
	}

	for i := 0; i < maxUpdateRetries; i++ {
		watched = false
		err := s.client.Watch(ctx, txf, rkey)
		if err == nil {
			return result, nil
		}
		if err == redis.TxFailedErr {
			continue
		}
		if !watched {
			return zero, unavailable(err, "failed to watch %s: key=%s", s.prefix, key)
		}
		return zero, err
	}

	return zero, errors.Wrapf(errors.ErrUnavailable, "%s update contended: key=%s", s.prefix, key)
}

// count scans keys under the prefix
func (s *jsonStore[T]) count(ctx context.Context) (int, error) {
	var (
		cursor uint64
		total  int
	)
	for {
		keys, next, err := s.client.Scan(ctx, cursor, s.prefix+"*", 500).Result()
		if err != nil {
			return 0, unavailable(err, "failed to scan %s keys", s.prefix)
		}
		total += len(keys)
		if next == 0 {
			return total, nil
		}
		cursor = next
	}
}
