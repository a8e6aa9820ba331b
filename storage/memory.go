package storage

import (
	"context"
	"sync"
)

var _ Area = (*MemoryArea)(nil)

// MemoryArea is the volatile area: its contents disappear with the process.
type MemoryArea struct {
	values map[string]string
	lock   sync.RWMutex
}

func NewMemoryArea() *MemoryArea {
	return &MemoryArea{
		values: make(map[string]string),
	}
}

func (m *MemoryArea) Get(_ context.Context, key string) (string, bool, error) {
	m.lock.RLock()
	defer m.lock.RUnlock()

	v, ok := m.values[key]
	return v, ok, nil
}

func (m *MemoryArea) Set(_ context.Context, key, value string) error {
	m.lock.Lock()
	defer m.lock.Unlock()

	m.values[key] = value
	return nil
}

func (m *MemoryArea) Remove(_ context.Context, key string) error {
	m.lock.Lock()
	defer m.lock.Unlock()

	delete(m.values, key)
	return nil
}

// Len returns the number of stored keys.
func (m *MemoryArea) Len() int {
	m.lock.RLock()
	defer m.lock.RUnlock()
	return len(m.values)
}
