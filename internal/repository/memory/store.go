// Package memory holds the single-process implementations of the repository
// ports: a map-backed RecordStore and a TTL LockManager. They are used by
// tests and by the default "memory" store driver.
package memory

import (
	"bytes"
	"context"
	"sync"

	"cabdispatch/internal/repository"
)

// Store keeps every collection as a byte slice in a map. One mutex serializes
// all writers, which makes Update trivially atomic.
type Store struct {
	mu          sync.RWMutex
	collections map[string][]byte
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{
		collections: make(map[string][]byte),
	}
}

func (s *Store) Load(ctx context.Context, name string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	return bytes.Clone(s.collections[name]), nil
}

func (s *Store) Save(ctx context.Context, name string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.collections[name] = bytes.Clone(data)
	return nil
}

func (s *Store) Update(ctx context.Context, names []string, fn repository.TxFunc) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	current := make(map[string][]byte, len(names))
	for _, name := range names {
		current[name] = bytes.Clone(s.collections[name])
	}

	next, err := fn(current)
	if err != nil {
		return err
	}
	if err := repository.CheckTxResult(names, next); err != nil {
		return err
	}
	for name, data := range next {
		s.collections[name] = bytes.Clone(data)
	}
	return nil
}

func (s *Store) Close() error {
	return nil
}
