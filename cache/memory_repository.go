package cache

import (
	"sort"
	"sync"
)

type memoryRepository struct {
	mu    sync.RWMutex
	items map[string]string
	quota int
	size  int
}

// NewMemoryRepository initializes an in-memory repository. A positive quota caps the
// total bytes of keys and values, writes beyond it fail with ErrQuotaExceeded.
func NewMemoryRepository(quota int) *memoryRepository {
	return &memoryRepository{
		items: make(map[string]string),
		quota: quota,
	}
}

func (m *memoryRepository) Get(key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.items[key]
	return v, ok, nil
}

func (m *memoryRepository) Set(key string, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	size := m.size + len(key) + len(value)
	if old, ok := m.items[key]; ok {
		size -= len(key) + len(old)
	}
	if m.quota > 0 && size > m.quota {
		return ErrQuotaExceeded
	}
	m.items[key] = value
	m.size = size
	return nil
}

func (m *memoryRepository) Remove(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if old, ok := m.items[key]; ok {
		m.size -= len(key) + len(old)
		delete(m.items, key)
	}
	return nil
}

func (m *memoryRepository) Keys() ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	keys := make([]string, 0, len(m.items))
	for k := range m.items {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}
