package cache

import (
	"context"
	"encoding/json"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"go.uber.org/zap"

	"github.com/kapu/reader-sim-go/pkg/errors"
)

// MemoryStore keeps JSON-encoded values in process memory. Values are stored
// encoded so callers never share mutable state through the cache.
type MemoryStore struct {
	cache  *gocache.Cache
	logger *zap.Logger
}

func NewMemoryStore(defaultTTL, cleanup time.Duration, logger *zap.Logger) *MemoryStore {
	return &MemoryStore{
		cache:  gocache.New(defaultTTL, cleanup),
		logger: logger,
	}
}

func (m *MemoryStore) Get(_ context.Context, key string, dest any) (bool, error) {
	raw, ok := m.cache.Get(key)
	if !ok {
		return false, nil
	}

	data, ok := raw.([]byte)
	if !ok {
		m.cache.Delete(key)
		return false, nil
	}
	if dest != nil {
		if err := json.Unmarshal(data, dest); err != nil {
			m.logger.Error("Cache unmarshal failed", zap.String("key", key), zap.Error(err))
			return false, errors.NewCacheError("unmarshal failed", "get", key, err)
		}
	}
	return true, nil
}

func (m *MemoryStore) Set(_ context.Context, key string, value any, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return errors.NewCacheError("marshal failed", "set", key, err)
	}
	if ttl <= 0 {
		ttl = gocache.DefaultExpiration
	}
	m.cache.Set(key, data, ttl)
	return nil
}

func (m *MemoryStore) Del(_ context.Context, key string) error {
	m.cache.Delete(key)
	return nil
}

func (m *MemoryStore) Len() int {
	return m.cache.ItemCount()
}

func (m *MemoryStore) Close() error {
	m.cache.Flush()
	return nil
}
