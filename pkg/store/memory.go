package store

import (
	"sync"
	"time"
)

// Memory is the in-process Store implementation. Reads and writes are
// guarded by one mutex; expiry is lazy, so an entry past its deadline
// lingers until the next Get or Set touches its key.
type Memory struct {
	now func() time.Time

	mu      sync.Mutex
	entries map[string]entry
}

type entry struct {
	value     []byte
	expiresAt time.Time // zero means no expiry
}

// MemoryOption customizes a Memory store.
type MemoryOption func(*Memory)

// WithClock overrides the time source. Tests use it to step past TTLs
// without sleeping.
func WithClock(now func() time.Time) MemoryOption {
	return func(m *Memory) {
		if now != nil {
			m.now = now
		}
	}
}

// NewMemory constructs an empty in-memory expiring store.
func NewMemory(opts ...MemoryOption) *Memory {
	m := &Memory{
		now:     time.Now,
		entries: make(map[string]entry),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(m)
		}
	}
	return m
}

func (m *Memory) Set(key string, value []byte, ttl time.Duration) {
	stored := entry{value: append([]byte(nil), value...)}
	if ttl > 0 {
		stored.expiresAt = m.now().Add(ttl)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = stored
}

func (m *Memory) Get(key string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored, ok := m.entries[key]
	if !ok {
		return nil, false
	}
	if !stored.expiresAt.IsZero() && !m.now().Before(stored.expiresAt) {
		delete(m.entries, key)
		return nil, false
	}

	return append([]byte(nil), stored.value...), true
}

func (m *Memory) Delete(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, key)
}

// Len reports the number of entries currently held, including entries whose
// TTL has elapsed but which no read has dropped yet.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}
