// internal/store/memory.go
//
// In-memory session store.
// The terminal keeps no durable state: a visitor's attempts, hints and captured
// chunks live here until the process restarts or the record goes idle.
//
// Characteristics:
//   - Records keyed by session ID in a map.
//   - Concurrency-safe via RWMutex (concurrent reads allowed, writes exclusive).
//   - Get/Update hand out copies; mutation only happens inside Update.

package store

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrNotFound is returned by Get for unknown session IDs.
var ErrNotFound = errors.New("store: session not found")

// Store defines the session persistence interface.
type Store interface {
	// Get returns a copy of the record for id.
	Get(ctx context.Context, id string) (Record, error)

	// Update applies fn to the record for id under the store lock, creating
	// the record when missing, and returns the stored result. If fn fails the
	// record is left unchanged.
	Update(ctx context.Context, id string, fn func(*Record) error) (Record, error)

	// Sweep drops records not updated since before cutoff and reports how many.
	Sweep(ctx context.Context, cutoff time.Time) int

	// Len reports how many records are held.
	Len() int
}

type memory struct {
	mu      sync.RWMutex       // guards records
	records map[string]*Record // keyed by Record.ID
	now     func() time.Time
}

// NewMemoryStore constructs an empty in-memory Store.
func NewMemoryStore() Store {
	return &memory{records: make(map[string]*Record), now: time.Now}
}

func (m *memory) Get(ctx context.Context, id string) (Record, error) {
	if err := ctx.Err(); err != nil {
		return Record{}, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if r, ok := m.records[id]; ok {
		return r.clone(), nil
	}
	return Record{}, ErrNotFound
}

func (m *memory) Update(ctx context.Context, id string, fn func(*Record) error) (Record, error) {
	if err := ctx.Err(); err != nil {
		return Record{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	cur, ok := m.records[id]
	if !ok {
		cur = &Record{ID: id, Captured: []string{}, CreatedAt: now}
	}
	next := cur.clone()
	if err := fn(&next); err != nil {
		return cur.clone(), err
	}
	next.ID = id
	next.UpdatedAt = now
	m.records[id] = &next
	return next.clone(), nil
}

func (m *memory) Sweep(ctx context.Context, cutoff time.Time) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for id, r := range m.records {
		if r.UpdatedAt.Before(cutoff) {
			delete(m.records, id)
			n++
		}
	}
	return n
}

func (m *memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.records)
}
