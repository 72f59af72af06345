package cache

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"dietflow/internal/infrastructure/config"
	"dietflow/internal/pkg/common"

	"github.com/go-redis/redis/v8"
)

const redisKeyPrefix = "dietflow:source:"

// RedisStore Redis 快取
type RedisStore struct {
	client *redis.Client
	config *config.CacheConfig
	hits   atomic.Int64
	misses atomic.Int64
	errors atomic.Int64
}

// NewRedisStore 創建 Redis 快取並測試連線
func NewRedisStore(cfg *config.CacheConfig) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	// 測試連接
	if err := client.Ping(context.Background()).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisStore{
		client: client,
		config: cfg,
	}, nil
}

// Get 獲取緩存
func (s *RedisStore) Get(ctx context.Context, key string) (string, error) {
	val, err := s.client.Get(ctx, s.generateKey(key)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			s.misses.Add(1)
			common.LogCacheMiss("redis", key)
			return "", common.ErrCacheMiss
		}
		s.errors.Add(1)
		return "", fmt.Errorf("failed to get cache: %w", err)
	}

	s.hits.Add(1)
	common.LogCacheHit("redis", key)
	return val, nil
}

// Set 設置緩存
func (s *RedisStore) Set(ctx context.Context, key, value string) error {
	if err := s.client.Set(ctx, s.generateKey(key), value, s.config.TTL).Err(); err != nil {
		s.errors.Add(1)
		return fmt.Errorf("failed to set cache: %w", err)
	}
	return nil
}

// generateKey 生成緩存鍵
func (s *RedisStore) generateKey(key string) string {
	return redisKeyPrefix + hashKey(key)
}

// Stats 獲取緩存統計信息
func (s *RedisStore) Stats() map[string]interface{} {
	hits, misses := s.hits.Load(), s.misses.Load()
	return map[string]interface{}{
		"backend":   config.CacheBackendRedis,
		"addr":      s.config.RedisAddr,
		"hits":      hits,
		"misses":    misses,
		"errors":    s.errors.Load(),
		"hit_ratio": hitRatio(hits, misses),
	}
}

// Close 關閉連線
func (s *RedisStore) Close() error {
	return s.client.Close()
}
