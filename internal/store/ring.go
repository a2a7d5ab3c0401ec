// Package store provides the bounded in-memory window of recent
// transactions.
package store

import (
	"sync"
	"time"

	"github.com/opensource-finance/kestrel/internal/domain"
)

// Ring is a bounded, insertion-ordered buffer of recent transactions.
// Newest entries sit at the front; once capacity is exceeded the oldest
// insertion is evicted, regardless of its timestamp contents. Ingest is
// the only mutator. Queries return snapshot copies, so a reader never
// observes a half-applied insert and never evicts anything.
type Ring struct {
	mu       sync.RWMutex
	capacity int
	entries  []*domain.Transaction
}

// DefaultCapacity matches the reference window of recent transactions.
const DefaultCapacity = 20

// NewRing creates a ring store with the given capacity.
func NewRing(capacity int) *Ring {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Ring{
		capacity: capacity,
		entries:  make([]*domain.Transaction, 0, capacity),
	}
}

// Ingest inserts a transaction at the front, evicting the oldest entry
// once capacity is exceeded.
func (r *Ring) Ingest(tx *domain.Transaction) {
	if tx == nil {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.entries = append(r.entries, nil)
	copy(r.entries[1:], r.entries)
	r.entries[0] = tx

	if len(r.entries) > r.capacity {
		r.entries = r.entries[:r.capacity]
	}
}

// Query returns, in store order, every transaction whose timestamp is
// at or after now-since. A zero duration means no time filter.
func (r *Ring) Query(since time.Duration) []*domain.Transaction {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if since <= 0 {
		out := make([]*domain.Transaction, len(r.entries))
		copy(out, r.entries)
		return out
	}

	cutoff := time.Now().Add(-since)
	out := make([]*domain.Transaction, 0, len(r.entries))
	for _, tx := range r.entries {
		if !tx.Timestamp.Before(cutoff) {
			out = append(out, tx)
		}
	}
	return out
}

// Len returns the current number of stored transactions.
func (r *Ring) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// Capacity returns the configured bound.
func (r *Ring) Capacity() int {
	return r.capacity
}
