// Package cache 提供資料來源回應的快取，支援行程內記憶體與 Redis 兩種後端。
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"dietflow/internal/infrastructure/config"
	"dietflow/internal/pkg/common"
)

// Store 快取介面
// Get 在未命中時回傳 common.ErrCacheMiss。
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Stats() map[string]interface{}
	Close() error
}

// New 依設定建立快取，停用時回傳 nil
func New(cfg *config.CacheConfig) (Store, error) {
	if cfg == nil || !cfg.Enabled {
		common.LogInfo("Cache disabled")
		return nil, nil
	}

	switch cfg.Backend {
	case config.CacheBackendRedis:
		return NewRedisStore(cfg)
	case config.CacheBackendMemory, "":
		return NewManager(cfg), nil
	default:
		return nil, fmt.Errorf("unknown cache backend: %q", cfg.Backend)
	}
}

// hashKey 計算鍵的 SHA-256 哈希值
func hashKey(key string) string {
	hash := sha256.Sum256([]byte(key))
	return hex.EncodeToString(hash[:])
}

func hitRatio(hits, misses int64) float64 {
	if hits+misses == 0 {
		return 0
	}
	return float64(hits) / float64(hits+misses)
}
