package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-redis/redis/v8"
	"github.com/mcsmartbytes/job-sense/internal/config"
	"go.uber.org/zap"
)

// RedisStorage implements Storage on Redis string values
type RedisStorage struct {
	client *redis.Client
	prefix string
	logger *zap.Logger
}

// NewRedisStorage connects to Redis and verifies the connection with PING
func NewRedisStorage(ctx context.Context, cfg *config.StorageConfig, logger *zap.Logger) (*RedisStorage, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	logger.Info("Redis storage initialized",
		zap.String("addr", cfg.RedisAddr),
		zap.Int("db", cfg.RedisDB),
	)
	return NewRedisStorageWithClient(client, cfg.RedisKeyPrefix, logger), nil
}

// NewRedisStorageWithClient wraps an existing client
func NewRedisStorageWithClient(client *redis.Client, prefix string, logger *zap.Logger) *RedisStorage {
	return &RedisStorage{client: client, prefix: prefix, logger: logger}
}

func (s *RedisStorage) key(key string) (string, error) {
	key, err := cleanKey(key)
	if err != nil {
		return "", err
	}
	return s.prefix + key, nil
}

// Put stores data under key without expiry; contentType is not retained
func (s *RedisStorage) Put(ctx context.Context, key, contentType string, data []byte) error {
	k, err := s.key(key)
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, k, data, 0).Err(); err != nil {
		return fmt.Errorf("failed to set redis key: %w", err)
	}
	return nil
}

func (s *RedisStorage) Get(ctx context.Context, key string) ([]byte, error) {
	k, err := s.key(key)
	if err != nil {
		return nil, err
	}
	data, err := s.client.Get(ctx, k).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get redis key: %w", err)
	}
	return data, nil
}

func (s *RedisStorage) Delete(ctx context.Context, key string) error {
	k, err := s.key(key)
	if err != nil {
		return err
	}
	if err := s.client.Del(ctx, k).Err(); err != nil {
		return fmt.Errorf("failed to delete redis key: %w", err)
	}
	return nil
}

// Close releases the connection pool
func (s *RedisStorage) Close() error {
	return s.client.Close()
}
