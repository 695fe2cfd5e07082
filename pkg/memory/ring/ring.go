package ring

import (
	"sync"

	"mcp-agent/pkg/models"
)

// Store is a bounded, insertion-ordered record of settled tasks. Once the
// store is full the oldest entry is evicted before the new one is inserted.
// Safe for concurrent use.
type Store struct {
	mu       sync.Mutex
	capacity int
	entries  []models.MemoryEntry
}

// New creates a Store holding at most capacity entries. A capacity below one
// is raised to one.
func New(capacity int) *Store {
	if capacity < 1 {
		capacity = 1
	}
	return &Store{
		capacity: capacity,
		entries:  make([]models.MemoryEntry, 0, capacity),
	}
}

// Record appends an entry, evicting the oldest one if the store is full.
func (s *Store) Record(e models.MemoryEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.entries) == s.capacity {
		copy(s.entries, s.entries[1:])
		s.entries = s.entries[:len(s.entries)-1]
	}
	s.entries = append(s.entries, e)
}

// Recent returns up to n entries, most recent first.
func (s *Store) Recent(n int) []models.MemoryEntry {
	s.mu.Lock()
	defer s.mu.Unlock()

	if n > len(s.entries) {
		n = len(s.entries)
	}
	out := make([]models.MemoryEntry, 0, n)
	for i := len(s.entries) - 1; i >= len(s.entries)-n; i-- {
		out = append(out, s.entries[i])
	}
	return out
}

// Size returns the number of entries currently held.
func (s *Store) Size() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Capacity returns the fixed capacity of the store.
func (s *Store) Capacity() int {
	return s.capacity
}
