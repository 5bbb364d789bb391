// Package redisstore keeps fleet collections and dispatch locks in Redis so
// several service instances can share one fleet.
package redisstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"cabdispatch/internal/repository"
)

var ErrTooManyConflicts = errors.New("redisstore: update kept conflicting with concurrent writers")

// Store saves each collection as one string key, <prefix>:<name>.
type Store struct {
	client     *redis.Client
	prefix     string
	maxRetries int
}

// NewStore keeps every collection under prefix. Update gives up with
// ErrTooManyConflicts after maxRetries conflicting attempts.
func NewStore(client *redis.Client, prefix string, maxRetries int) *Store {
	if maxRetries <= 0 {
		maxRetries = 1
	}
	return &Store{client: client, prefix: prefix, maxRetries: maxRetries}
}

func (s *Store) key(name string) string {
	return s.prefix + ":" + name
}

func (s *Store) Load(ctx context.Context, name string) ([]byte, error) {
	data, err := s.client.Get(ctx, s.key(name)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redisstore: load %s: %w", name, err)
	}
	return data, nil
}

func (s *Store) Save(ctx context.Context, name string, data []byte) error {
	if err := s.client.Set(ctx, s.key(name), data, 0).Err(); err != nil {
		return fmt.Errorf("redisstore: save %s: %w", name, err)
	}
	return nil
}

// Update WATCHes every key, runs fn on the current values and writes the
// result in one MULTI/EXEC. If another client touched a watched key the EXEC
// is discarded and the whole read-modify-write is retried.
func (s *Store) Update(ctx context.Context, names []string, fn repository.TxFunc) error {
	keys := make([]string, len(names))
	for i, name := range names {
		keys[i] = s.key(name)
	}

	txf := func(tx *redis.Tx) error {
		values, err := tx.MGet(ctx, keys...).Result()
		if err != nil {
			return fmt.Errorf("redisstore: read %v: %w", names, err)
		}

		current := make(map[string][]byte, len(names))
		for i, name := range names {
			if str, ok := values[i].(string); ok {
				current[name] = []byte(str)
			} else {
				current[name] = nil
			}
		}

		next, err := fn(current)
		if err != nil {
			return err
		}
		if err := repository.CheckTxResult(names, next); err != nil {
			return err
		}
		if len(next) == 0 {
			return nil
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			for name, data := range next {
				pipe.Set(ctx, s.key(name), data, 0)
			}
			return nil
		})
		return err
	}

	for attempt := 0; attempt < s.maxRetries; attempt++ {
		err := s.client.Watch(ctx, txf, keys...)
		if err == nil {
			return nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return err
	}
	return ErrTooManyConflicts
}

func (s *Store) Close() error {
	return s.client.Close()
}
