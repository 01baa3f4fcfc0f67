// Package blob implements the Redis-backed store used to pass large scan
// outputs between workflow steps by reference. Activities exchange UUID keys;
// payloads never enter workflow history.
package blob

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/resilmesh/casm/pkg/config"
	"github.com/resilmesh/casm/pkg/faults"
)

// DefaultTTL keeps blobs alive comfortably past the longest workflow budget.
const DefaultTTL = 24 * time.Hour

// Store wraps a Redis client with key generation and TTL handling.
type Store struct {
	client *redis.Client
	ttl    time.Duration
}

// New creates a Store from the Redis configuration.
func New(cfg config.RedisConfig) *Store {
	return &Store{
		client: redis.NewClient(&redis.Options{
			Addr:     cfg.Addr(),
			Username: cfg.Username,
			Password: cfg.Password,
			DB:       0,
		}),
		ttl: DefaultTTL,
	}
}

// NewWithClient wraps an existing Redis client. Used by tests.
func NewWithClient(client *redis.Client) *Store {
	return &Store{client: client, ttl: DefaultTTL}
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	return s.client.Close()
}

// Put stores data under a fresh key derived from the given prefix and
// returns the key.
func (s *Store) Put(ctx context.Context, prefix string, data []byte) (string, error) {
	key := NewKey(prefix)
	if err := s.client.Set(ctx, key, data, s.ttl).Err(); err != nil {
		return "", faults.Wrap(faults.TransientNetwork, err, "storing blob %q", key)
	}
	return key, nil
}

// PutText stores a string blob under a fresh key.
func (s *Store) PutText(ctx context.Context, prefix, data string) (string, error) {
	return s.Put(ctx, prefix, []byte(data))
}

// Get retrieves the blob stored under key.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := s.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, faults.New(faults.BadInput, "no blob stored under key %q", key)
	}
	if err != nil {
		return nil, faults.Wrap(faults.TransientNetwork, err, "loading blob %q", key)
	}
	return data, nil
}

// GetText retrieves a string blob stored under key.
func (s *Store) GetText(ctx context.Context, key string) (string, error) {
	data, err := s.Get(ctx, key)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// NewKey builds a blob key with the tool name as prefix, so keys read as
// "httpx-6f1c...".
func NewKey(prefix string) string {
	if prefix == "" {
		return uuid.NewString()
	}
	return fmt.Sprintf("%s-%s", prefix, uuid.NewString())
}
