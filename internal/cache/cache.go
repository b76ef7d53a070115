// Package cache holds the event-list cache: listing pages keyed by filter
// set and page, expiring after a TTL, and dropped as a whole whenever an
// event's linkage changes.
package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Mateusbmelzi/hub-entidades/internal/model"
)

// EventListCache stores encoded event pages.  Implementations must be safe
// for concurrent use.  A miss is (nil, false, nil).
//
// Readers take the Epoch before loading the page from the store and hand
// it to Set.  A page loaded before an Invalidate then never becomes
// visible after it.
type EventListCache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Epoch(ctx context.Context) (int64, error)
	Set(ctx context.Context, epoch int64, key string, val []byte) error
	// Invalidate drops every cached page and advances the epoch.
	Invalidate(ctx context.Context) error
}

// EventKey derives the cache key for a (normalised) filter.
func EventKey(f model.EventFilter) string {
	f = f.Normalize()
	org := "*"
	if f.OrganizationID != nil {
		org = f.OrganizationID.String()
	}
	return fmt.Sprintf("events:org=%s:page=%d:size=%d", org, f.Page, f.PageSize)
}

// Nop never stores anything.
type Nop struct{}

func (Nop) Get(context.Context, string) ([]byte, bool, error) { return nil, false, nil }
func (Nop) Epoch(context.Context) (int64, error) { return 0, nil }
func (Nop) Set(context.Context, int64, string, []byte) error { return nil }
func (Nop) Invalidate(context.Context) error { return nil }

type memEntry struct {
	val     []byte
	expires time.Time
}

// Memory is an in-process EventListCache.
type Memory struct {
	ttl time.Duration
	now func() time.Time

	mu      sync.Mutex
	epoch   int64
	entries map[string]memEntry
}

// NewMemory returns a cache whose entries live for ttl.
func NewMemory(ttl time.Duration) *Memory {
	return &Memory{ttl: ttl, now: time.Now, entries: map[string]memEntry{}}
}

func (m *Memory) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[key]
	if !ok {
		return nil, false, nil
	}
	if !m.now().Before(e.expires) {
		delete(m.entries, key)
		return nil, false, nil
	}
	return append([]byte(nil), e.val...), true, nil
}

func (m *Memory) Epoch(context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.epoch, nil
}

// Set stores val unless the cache was invalidated since epoch was taken.
func (m *Memory) Set(_ context.Context, epoch int64, key string, val []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if epoch != m.epoch {
		return nil
	}
	m.entries[key] = memEntry{val: append([]byte(nil), val...), expires: m.now().Add(m.ttl)}
	return nil
}

func (m *Memory) Invalidate(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.epoch++
	m.entries = map[string]memEntry{}
	return nil
}

// Len returns the number of stored entries, expired ones included.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}
