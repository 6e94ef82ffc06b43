package cache

import (
	"context"
	"sort"
	"sync"
)

var _ Storage = (*Memory)(nil)

// Memory keeps caches in process memory.
type Memory struct {
	lock   sync.RWMutex
	caches map[string]map[string]*Entry
}

func NewMemory() *Memory {
	return &Memory{caches: make(map[string]map[string]*Entry)}
}

func (m *Memory) Get(_ context.Context, cacheName, key string) (*Entry, error) {
	m.lock.RLock()
	defer m.lock.RUnlock()
	return m.caches[cacheName][key].Clone(), nil
}

func (m *Memory) Put(_ context.Context, cacheName, key string, entry *Entry) error {
	m.lock.Lock()
	defer m.lock.Unlock()
	c, ok := m.caches[cacheName]
	if !ok {
		c = make(map[string]*Entry)
		m.caches[cacheName] = c
	}
	c[key] = entry.Clone()
	return nil
}

func (m *Memory) Keys(_ context.Context, cacheName string) ([]string, error) {
	m.lock.RLock()
	defer m.lock.RUnlock()
	keys := make([]string, 0, len(m.caches[cacheName]))
	for k := range m.caches[cacheName] {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}

func (m *Memory) Delete(_ context.Context, cacheName string) error {
	m.lock.Lock()
	defer m.lock.Unlock()
	delete(m.caches, cacheName)
	return nil
}

func (m *Memory) Names(_ context.Context) ([]string, error) {
	m.lock.RLock()
	defer m.lock.RUnlock()
	names := make([]string, 0, len(m.caches))
	for n := range m.caches {
		names = append(names, n)
	}
	sort.Strings(names)
	return names, nil
}
