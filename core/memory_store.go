package core

import (
	"context"
	"path"
	"strconv"
	"sync"
	"time"
)

// maxBufferedReports bounds the in-memory report list.
const maxBufferedReports = 1000

// MemoryStore is an in-process implementation of Store and ReportSink.
// It honors TTL semantics well enough for development and tests; production
// deployments use RedisStore.
type MemoryStore struct {
	mu      sync.Mutex
	store   map[string]memoryEntry
	reports []Report
	now     func() time.Time
}

type memoryEntry struct {
	value     string
	expiresAt time.Time
}

// NewMemoryStore creates a new in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		store: make(map[string]memoryEntry),
		now:   time.Now,
	}
}

// live returns the entry if present and unexpired, deleting it lazily
// otherwise. Callers must hold the lock.
func (m *MemoryStore) live(key string) (memoryEntry, bool) {
	entry, exists := m.store[key]
	if !exists {
		return memoryEntry{}, false
	}
	if !entry.expiresAt.IsZero() && m.now().After(entry.expiresAt) {
		delete(m.store, key)
		return memoryEntry{}, false
	}
	return entry, true
}

// Get retrieves a value. A missing or expired key yields "" with no error.
func (m *MemoryStore) Get(ctx context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.live(key)
	if !ok {
		return "", nil
	}
	return entry.value, nil
}

// Set stores a value with optional TTL (0 means no expiry).
func (m *MemoryStore) Set(ctx context.Context, key string, value string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry := memoryEntry{value: value}
	if ttl > 0 {
		entry.expiresAt = m.now().Add(ttl)
	}
	m.store[key] = entry
	return nil
}

// Incr atomically increments a counter, creating it at 1. Incrementing an
// existing key keeps its expiry, matching the store contract.
func (m *MemoryStore) Incr(ctx context.Context, key string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.live(key)
	if !ok {
		m.store[key] = memoryEntry{value: "1"}
		return 1, nil
	}

	n, err := strconv.ParseInt(entry.value, 10, 64)
	if err != nil {
		n = 0
	}
	n++
	entry.value = strconv.FormatInt(n, 10)
	m.store[key] = entry
	return n, nil
}

// Expire sets a TTL on an existing key; missing keys are ignored.
func (m *MemoryStore) Expire(ctx context.Context, key string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.live(key)
	if !ok {
		return nil
	}
	entry.expiresAt = m.now().Add(ttl)
	m.store[key] = entry
	return nil
}

// TTL reports the remaining lifetime of a key: -1 for keys without expiry,
// -2 for missing keys (Redis convention, scaled to durations).
func (m *MemoryStore) TTL(ctx context.Context, key string) (time.Duration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.live(key)
	if !ok {
		return -2 * time.Second, nil
	}
	if entry.expiresAt.IsZero() {
		return -1 * time.Second, nil
	}
	return entry.expiresAt.Sub(m.now()), nil
}

// Keys lists unexpired keys matching a glob pattern.
func (m *MemoryStore) Keys(ctx context.Context, pattern string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]string, 0)
	for key := range m.store {
		if _, ok := m.live(key); !ok {
			continue
		}
		if matched, err := path.Match(pattern, key); err == nil && matched {
			out = append(out, key)
		}
	}
	return out, nil
}

// SaveReport appends the report to a bounded in-memory list.
func (m *MemoryStore) SaveReport(ctx context.Context, report Report) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.reports = append(m.reports, report)
	if len(m.reports) > maxBufferedReports {
		m.reports = m.reports[len(m.reports)-maxBufferedReports:]
	}
	return nil
}

// Reports returns a copy of the buffered reports.
func (m *MemoryStore) Reports() []Report {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]Report, len(m.reports))
	copy(out, m.reports)
	return out
}
