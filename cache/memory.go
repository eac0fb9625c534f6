package cache

import (
	"context"
	"sort"
	"strings"
	"sync"
)

// Memory implements Backend in process memory.
type Memory struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewMemory creates a new in-memory backend
func NewMemory() *Memory {
	return &Memory{
		data: make(map[string][]byte),
	}
}

func (m *Memory) Write(ctx context.Context, key string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	buf := make([]byte, len(data))
	copy(buf, data)
	m.data[key] = buf
	return nil
}

func (m *Memory) Read(ctx context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	data, ok := m.data[key]
	if !ok {
		return nil, ErrNotFound
	}
	buf := make([]byte, len(data))
	copy(buf, data)
	return buf, nil
}

func (m *Memory) List(ctx context.Context, prefix string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	keys := make([]string, 0)
	for key := range m.data {
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

func (m *Memory) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.data, key)
	return nil
}

func (m *Memory) Exists(ctx context.Context, key string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	_, ok := m.data[key]
	return ok, nil
}
