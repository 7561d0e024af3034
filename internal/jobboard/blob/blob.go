// Package blob holds uploaded documents behind opaque references.
package blob

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	e "github.com/gartstein/jobboard/internal/jobboard/errors"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const keyPrefix = "blob:"

// Store is the blob store contract consumed by the resume registry.
type Store interface {
	Store(ctx context.Context, data []byte, contentType string) (string, error)
	Retrieve(ctx context.Context, ref string) ([]byte, error)
	Delete(ctx context.Context, ref string) error
}

// RedisStore keeps each blob in a hash with its content type.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore connects to the Redis URL and verifies the connection.
func NewRedisStore(ctx context.Context, url string) (*RedisStore, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return &RedisStore{client: client}, nil
}

// NewRedisStoreFromClient wraps an existing client.
func NewRedisStoreFromClient(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Store(ctx context.Context, data []byte, contentType string) (string, error) {
	ref := keyPrefix + uuid.NewString()
	if err := s.client.HSet(ctx, ref, "content_type", contentType, "data", data).Err(); err != nil {
		return "", fmt.Errorf("failed to store blob: %w", transient(err))
	}
	return ref, nil
}

func (s *RedisStore) Retrieve(ctx context.Context, ref string) ([]byte, error) {
	if !strings.HasPrefix(ref, keyPrefix) {
		return nil, e.ErrNotFound
	}
	data, err := s.client.HGet(ctx, ref, "data").Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, e.ErrNotFound
		}
		return nil, fmt.Errorf("failed to retrieve blob: %w", transient(err))
	}
	return data, nil
}

func (s *RedisStore) Delete(ctx context.Context, ref string) error {
	if err := s.client.Del(ctx, ref).Err(); err != nil {
		return fmt.Errorf("failed to delete blob: %w", transient(err))
	}
	return nil
}

func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}

// transient marks deadline and connectivity failures as retryable.
func transient(err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%w: %v", e.ErrTransient, err)
	}
	return err
}

// MemoryStore is an in-process Store for tests and local runs.
type MemoryStore struct {
	mu    sync.RWMutex
	blobs map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{blobs: make(map[string][]byte)}
}

func (s *MemoryStore) Store(ctx context.Context, data []byte, _ string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", transient(err)
	}
	ref := keyPrefix + uuid.NewString()
	s.mu.Lock()
	s.blobs[ref] = append([]byte(nil), data...)
	s.mu.Unlock()
	return ref, nil
}

func (s *MemoryStore) Retrieve(ctx context.Context, ref string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, transient(err)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.blobs[ref]
	if !ok {
		return nil, e.ErrNotFound
	}
	return append([]byte(nil), data...), nil
}

func (s *MemoryStore) Delete(_ context.Context, ref string) error {
	s.mu.Lock()
	delete(s.blobs, ref)
	s.mu.Unlock()
	return nil
}

// Len reports the number of stored blobs.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.blobs)
}
