// internal/cache/cache.go
package cache

import (
	"context"
	"sync"
	"time"
)

// Cache is the injected key-value cache consumed by the external card
// data and price clients. Callers never touch a provider-level
// singleton; everything flows through this interface.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Expire(ctx context.Context, key string) error
}

type memoryEntry struct {
	value     []byte
	expiresAt time.Time
}

// Memory is a process-local TTL cache, used in development and tests.
type Memory struct {
	mtx   sync.Mutex
	store map[string]memoryEntry
}

func NewMemory() *Memory {
	return &Memory{store: make(map[string]memoryEntry)}
}

func (m *Memory) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mtx.Lock()
	defer m.mtx.Unlock()

	entry, ok := m.store[key]
	if !ok {
		return nil, false, nil
	}
	if time.Now().After(entry.expiresAt) {
		delete(m.store, key)
		return nil, false, nil
	}
	return entry.value, true, nil
}

func (m *Memory) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	m.mtx.Lock()
	defer m.mtx.Unlock()

	m.store[key] = memoryEntry{
		value:     value,
		expiresAt: time.Now().Add(ttl),
	}
	return nil
}

func (m *Memory) Expire(_ context.Context, key string) error {
	m.mtx.Lock()
	defer m.mtx.Unlock()

	delete(m.store, key)
	return nil
}
