package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
)

var (
	// ErrNotFound indicates nothing has been stored under the key yet.
	ErrNotFound = errors.New("key not found")
	// ErrInvalidKey indicates an empty or unusable key.
	ErrInvalidKey = errors.New("storage key must be a non-empty name without path separators")
)

// Storage is the flat key-value store snapshots are written to.
type Storage interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
}

// MemoryStorage keeps values in-memory and guards access with a RWMutex.
type MemoryStorage struct {
	mu     sync.RWMutex
	values map[string][]byte
}

// NewMemoryStorage initialises an empty in-memory store.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		values: make(map[string][]byte),
	}
}

// Get returns a defensive copy of the value stored under key.
func (s *MemoryStorage) Get(ctx context.Context, key string) ([]byte, error) {
	if err := validateKey(key); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	value, ok := s.values[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	return clone(value), nil
}

// Set stores a copy of value under key, replacing any previous value.
func (s *MemoryStorage) Set(ctx context.Context, key string, value []byte) error {
	if err := validateKey(key); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	s.values[key] = clone(value)
	s.mu.Unlock()

	return nil
}

func clone(src []byte) []byte {
	out := make([]byte, len(src))
	copy(out, src)
	return out
}

func validateKey(key string) error {
	if strings.TrimSpace(key) == "" || strings.ContainsAny(key, `/\`) || key == "." || key == ".." {
		return fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return nil
}
