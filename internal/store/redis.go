// internal/store/redis.go
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	custom_errors "github-dashboard/internal/errors"
	"github-dashboard/internal/model"
)

// RedisConfig holds the connection settings for the redis backend.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// RedisBackend stores the cache record as a JSON string without expiry.
// Staleness is decided by the dashboard, not by a TTL.
type RedisBackend struct {
	client *redis.Client
}

// NewRedisBackend connects to redis and checks the connection with a ping.
func NewRedisBackend(ctx context.Context, cfg RedisConfig) (*RedisBackend, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.Addr, err)
	}

	return &RedisBackend{client: client}, nil
}

func (b *RedisBackend) Load(ctx context.Context, key string) (*model.CacheRecord, error) {
	payload, err := b.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, &custom_errors.StorageError{Op: "load", Err: err}
	}

	rec, err := decodeRecord(payload)
	if err != nil {
		return nil, &custom_errors.StorageError{Op: "load", Err: err}
	}
	return rec, nil
}

func (b *RedisBackend) Save(ctx context.Context, key string, record model.CacheRecord) error {
	payload, err := encodeRecord(record)
	if err != nil {
		return &custom_errors.StorageError{Op: "save", Err: err}
	}
	if err := b.client.Set(ctx, key, payload, 0).Err(); err != nil {
		return &custom_errors.StorageError{Op: "save", Err: err}
	}
	return nil
}

// Close closes the redis client.
func (b *RedisBackend) Close() error {
	return b.client.Close()
}
