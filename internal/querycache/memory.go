package querycache

import (
	"context"
	"sort"
	"sync"
	"time"
)

type memoryItem struct {
	value     []byte
	expiresAt time.Time
	storedAt  time.Time
}

type memoryCounter struct {
	value   int64
	touched time.Time
}

// MemoryStore keeps entries in process. Expired entries are dropped on read
// and swept whenever the store reaches its entry limit; if the sweep frees
// nothing the oldest quarter is evicted.
//
// Counters are bounded the same way. A dropped counter does not go back to
// zero: missing counters read as floor, which is raised past every value
// that was dropped, so an entry stamped with an old version can never match
// again.
type MemoryStore struct {
	mu          sync.Mutex
	items       map[string]memoryItem
	counters    map[string]memoryCounter
	floor       int64
	maxEntries  int
	maxCounters int
	now         func() time.Time
}

const (
	defaultMaxEntries  = 4096
	defaultMaxCounters = 4096
)

type MemoryOption func(*MemoryStore)

// WithMaxEntries caps the number of cached entries.
func WithMaxEntries(n int) MemoryOption {
	return func(m *MemoryStore) {
		if n > 0 {
			m.maxEntries = n
		}
	}
}

// WithMaxCounters caps the number of version counters.
func WithMaxCounters(n int) MemoryOption {
	return func(m *MemoryStore) {
		if n > 0 {
			m.maxCounters = n
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) MemoryOption {
	return func(m *MemoryStore) {
		m.now = now
	}
}

func NewMemoryStore(opts ...MemoryOption) *MemoryStore {
	m := &MemoryStore{
		items:       make(map[string]memoryItem),
		counters:    make(map[string]memoryCounter),
		maxEntries:  defaultMaxEntries,
		maxCounters: defaultMaxCounters,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *MemoryStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	item, ok := m.items[key]
	if !ok {
		return nil, false, nil
	}
	if !item.expiresAt.IsZero() && m.now().After(item.expiresAt) {
		delete(m.items, key)
		return nil, false, nil
	}
	return item.value, true, nil
}

func (m *MemoryStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.items[key]; !exists && len(m.items) >= m.maxEntries {
		m.sweep()
		if len(m.items) >= m.maxEntries {
			m.evictOldest()
		}
	}

	now := m.now()
	item := memoryItem{value: value, storedAt: now}
	if ttl > 0 {
		item.expiresAt = now.Add(ttl)
	}
	m.items[key] = item
	return nil
}

func (m *MemoryStore) Incr(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.counters[key]
	if !ok {
		if len(m.counters) >= m.maxCounters {
			m.pruneCounters()
		}
		c.value = m.floor
	}
	c.value++
	c.touched = m.now()
	m.counters[key] = c
	return nil
}

func (m *MemoryStore) Counters(_ context.Context, keys ...string) ([]int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]int64, len(keys))
	for i, k := range keys {
		if c, ok := m.counters[k]; ok {
			out[i] = c.value
			continue
		}
		out[i] = m.floor
	}
	return out, nil
}

func (m *MemoryStore) Ping(context.Context) error {
	return nil
}

func (m *MemoryStore) Close() error {
	return nil
}

func (m *MemoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.items)
}

// CounterLen reports how many version counters are held.
func (m *MemoryStore) CounterLen() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.counters)
}

func (m *MemoryStore) sweep() {
	now := m.now()
	for k, item := range m.items {
		if !item.expiresAt.IsZero() && now.After(item.expiresAt) {
			delete(m.items, k)
		}
	}
}

func (m *MemoryStore) evictOldest() {
	keys := make([]string, 0, len(m.items))
	for k := range m.items {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		return m.items[keys[i]].storedAt.Before(m.items[keys[j]].storedAt)
	})

	n := len(keys) / 4
	if n == 0 {
		n = 1
	}
	for _, k := range keys[:n] {
		delete(m.items, k)
	}
}

// pruneCounters drops the least recently bumped half of the counters and
// raises floor above every dropped value.
func (m *MemoryStore) pruneCounters() {
	keys := make([]string, 0, len(m.counters))
	for k := range m.counters {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		return m.counters[keys[i]].touched.Before(m.counters[keys[j]].touched)
	})

	n := len(keys) / 2
	if n == 0 {
		n = 1
	}
	for _, k := range keys[:n] {
		if v := m.counters[k].value; v > m.floor {
			m.floor = v
		}
		delete(m.counters, k)
	}
}
