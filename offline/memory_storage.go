package offline

import (
	"context"
	"sync"
)

type memoryStorage struct {
	mu      sync.RWMutex
	order   []string
	buckets map[string]map[string]*Response
}

// NewMemoryStorage initializes a storage that lives as long as the process
func NewMemoryStorage() *memoryStorage {
	return &memoryStorage{
		buckets: map[string]map[string]*Response{},
	}
}

func (m *memoryStorage) Open(ctx context.Context, bucket string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.open(bucket)
	return nil
}

func (m *memoryStorage) open(bucket string) map[string]*Response {
	b, ok := m.buckets[bucket]
	if !ok {
		b = map[string]*Response{}
		m.buckets[bucket] = b
		m.order = append(m.order, bucket)
	}
	return b
}

func (m *memoryStorage) Names(ctx context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]string(nil), m.order...), nil
}

func (m *memoryStorage) Delete(ctx context.Context, bucket string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.buckets[bucket]; !ok {
		return nil
	}
	delete(m.buckets, bucket)
	for i, name := range m.order {
		if name == bucket {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	return nil
}

func (m *memoryStorage) Put(ctx context.Context, bucket string, key string, r *Response) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.open(bucket)[key] = clone(r)
	return nil
}

func (m *memoryStorage) Match(ctx context.Context, bucket string, key string) (*Response, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.buckets[bucket][key]
	if !ok {
		return nil, false, nil
	}
	return clone(r), true, nil
}

func (m *memoryStorage) MatchAny(ctx context.Context, key string) (*Response, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, name := range m.order {
		if r, ok := m.buckets[name][key]; ok {
			return clone(r), true, nil
		}
	}
	return nil, false, nil
}

// clone keeps stored responses immune to callers mutating what they got back
func clone(r *Response) *Response {
	c := *r
	c.Header = r.Header.Clone()
	c.Body = append([]byte(nil), r.Body...)
	return &c
}
