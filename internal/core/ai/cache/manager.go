package cache

import (
	"context"
	"sync"
	"time"

	"horeca-ingredients/internal/pkg/common"

	"go.uber.org/zap"
)

// MemoryStore 行程內快取，支援 TTL 與 LRU 淘汰
type MemoryStore struct {
	mu      sync.Mutex
	maxSize int
	entries map[string]memoryEntry
	stats   Stats
	stop    chan struct{}
	once    sync.Once
}

type memoryEntry struct {
	value       []byte
	expiresAt   time.Time
	lastAccess  time.Time
	accessCount int
}

// Stats 快取統計
type Stats struct {
	Size      int   `json:"size"`
	Hits      int64 `json:"hits"`
	Misses    int64 `json:"misses"`
	Evictions int64 `json:"evictions"`
}

// NewMemoryStore 建立記憶體快取；cleanupInterval > 0 時啟動背景清理
func NewMemoryStore(maxSize int, cleanupInterval time.Duration) *MemoryStore {
	if maxSize <= 0 {
		maxSize = 500
	}
	m := &MemoryStore{
		maxSize: maxSize,
		entries: make(map[string]memoryEntry),
		stop:    make(chan struct{}),
	}
	if cleanupInterval > 0 {
		go m.startCleanup(cleanupInterval)
	}

	common.LogInfo("快取管理員已初始化",
		zap.Int("最大容量", maxSize),
		zap.Duration("清理間隔", cleanupInterval),
	)
	return m
}

// Get 取得快取值，不存在或過期回傳 ErrMiss
func (m *MemoryStore) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.entries[key]
	if !ok {
		m.stats.Misses++
		return nil, ErrMiss
	}
	if time.Now().After(entry.expiresAt) {
		delete(m.entries, key)
		m.stats.Evictions++
		m.stats.Misses++
		return nil, ErrMiss
	}

	entry.lastAccess = time.Now()
	entry.accessCount++
	m.entries[key] = entry
	m.stats.Hits++
	return entry.value, nil
}

// Set 寫入快取，容量不足時先清理過期項目再淘汰最少使用者
func (m *MemoryStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.entries[key]; !exists && len(m.entries) >= m.maxSize {
		if m.cleanup() == 0 {
			m.evictLRU()
		}
	}

	now := time.Now()
	m.entries[key] = memoryEntry{
		value:      value,
		expiresAt:  now.Add(ttl),
		lastAccess: now,
	}
	return nil
}

// Ping 記憶體快取永遠可用
func (m *MemoryStore) Ping(context.Context) error { return nil }

// Stats 取得統計
func (m *MemoryStore) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.stats
	s.Size = len(m.entries)
	return s
}

func (m *MemoryStore) startCleanup(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-m.stop:
			return
		case <-ticker.C:
			m.mu.Lock()
			n := m.cleanup()
			m.mu.Unlock()
			if n > 0 {
				common.LogDebug("Cleaned up expired cache entries", zap.Int("count", n))
			}
		}
	}
}

// cleanup 清理過期項目，呼叫者需持有鎖
func (m *MemoryStore) cleanup() int {
	now := time.Now()
	count := 0
	for key, entry := range m.entries {
		if now.After(entry.expiresAt) {
			delete(m.entries, key)
			count++
		}
	}
	m.stats.Evictions += int64(count)
	return count
}

// evictLRU 淘汰存取次數最少、最久未使用的項目，呼叫者需持有鎖
func (m *MemoryStore) evictLRU() {
	var oldestKey string
	var oldestAccess time.Time
	lowest := 0

	for key, entry := range m.entries {
		if oldestKey == "" ||
			entry.accessCount < lowest ||
			(entry.accessCount == lowest && entry.lastAccess.Before(oldestAccess)) {
			oldestKey = key
			oldestAccess = entry.lastAccess
			lowest = entry.accessCount
		}
	}

	if oldestKey != "" {
		delete(m.entries, oldestKey)
		m.stats.Evictions++
		common.LogDebug("快取已淘汰(LRU)", zap.String("鍵", oldestKey))
	}
}

// Close 停止背景清理並清空快取
func (m *MemoryStore) Close() error {
	m.once.Do(func() { close(m.stop) })

	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = make(map[string]memoryEntry)
	common.LogInfo("快取管理員已關閉",
		zap.Int64("命中次數", m.stats.Hits),
		zap.Int64("未命中次數", m.stats.Misses),
		zap.Int64("淘汰次數", m.stats.Evictions),
	)
	return nil
}
