package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/allegro/bigcache/v3"
	lru "github.com/hashicorp/golang-lru/v2"
)

// ManagerConfig contains in-memory cache configuration.
type ManagerConfig struct {
	PayloadCacheSizeMB int
	PayloadTTL         time.Duration
	QueryCacheSize     int
}

// Manager holds the in-memory caches fronting the persisted store: encoded
// tile responses and bbox query results.
type Manager struct {
	payloads *bigcache.BigCache
	queries  *lru.Cache[string, []byte]
}

// NewManager creates a new cache manager.
func NewManager(cfg ManagerConfig) (*Manager, error) {
	payloadConfig := bigcache.Config{
		Shards:             1024,
		LifeWindow:         cfg.PayloadTTL,
		CleanWindow:        cfg.PayloadTTL / 2,
		MaxEntriesInWindow: 100000,
		MaxEntrySize:       256 * 1024, // 256KB per encoded tile
		HardMaxCacheSize:   cfg.PayloadCacheSizeMB,
		Verbose:            false,
	}

	payloads, err := bigcache.New(context.Background(), payloadConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create payload cache: %w", err)
	}

	queries, err := lru.New[string, []byte](cfg.QueryCacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create query cache: %w", err)
	}

	return &Manager{payloads: payloads, queries: queries}, nil
}

// GetPayload retrieves an encoded tile response from cache.
func (m *Manager) GetPayload(key string) ([]byte, bool) {
	data, err := m.payloads.Get(key)
	if err != nil {
		return nil, false
	}
	return data, true
}

// SetPayload stores an encoded tile response in cache.
func (m *Manager) SetPayload(key string, data []byte) error {
	return m.payloads.Set(key, data)
}

// GetQuery retrieves a bbox query result from cache.
func (m *Manager) GetQuery(key string) ([]byte, bool) {
	return m.queries.Get(key)
}

// SetQuery stores a bbox query result in cache.
func (m *Manager) SetQuery(key string, data []byte) {
	m.queries.Add(key, data)
}

// Stats returns cache statistics.
func (m *Manager) Stats() map[string]interface{} {
	return map[string]interface{}{
		"payload_cache_len": m.payloads.Len(),
		"payload_cache_cap": m.payloads.Capacity(),
		"query_cache_len":   m.queries.Len(),
	}
}

// Close closes the cache manager.
func (m *Manager) Close() error {
	return m.payloads.Close()
}
