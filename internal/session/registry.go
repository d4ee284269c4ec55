// Package session provides the session registry: shared mutable state
// mapping opaque session IDs to live persona sessions, with TTL-based
// eviction that also tears down the backing vector collection.
//
// The registry is an explicit store behind an interface so it can be backed
// by the in-process map here, a cache, or a networked store without
// changing callers.
package session

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/scrypster/reverie/internal/vectorindex"
	"github.com/scrypster/reverie/pkg/types"
)

// ErrNotFound indicates the session ID is unknown or already evicted.
var ErrNotFound = errors.New("session not found")

// Registry is the session store. Update serializes mutations per session:
// concurrent chat requests for the same session contend on that session's
// lock only, never across sessions.
type Registry interface {
	// Get returns a snapshot pointer to the session. Callers must not
	// mutate it; use Update for mutations.
	Get(id string) (*types.Session, error)

	// Put registers or replaces a session.
	Put(session *types.Session)

	// Update runs fn with exclusive access to the session.
	Update(id string, fn func(*types.Session) error) error

	// Delete removes the session and deletes its vector collection.
	// Deleting an unknown ID is a no-op.
	Delete(ctx context.Context, id string) error

	// Sweep evicts sessions idle past ttl, deleting each session's vector
	// collection exactly once. Returns the number of sessions evicted.
	Sweep(ctx context.Context, ttl time.Duration) int
}

// entry pairs a session with its per-session lock.
type entry struct {
	mu      sync.Mutex
	session *types.Session
}

// MemoryRegistry is the in-process Registry implementation.
type MemoryRegistry struct {
	mu      sync.RWMutex
	entries map[string]*entry
	index   vectorindex.Index
}

// NewMemoryRegistry creates a registry. The index is used to tear down
// collections when sessions are deleted or evicted.
func NewMemoryRegistry(index vectorindex.Index) *MemoryRegistry {
	return &MemoryRegistry{
		entries: make(map[string]*entry),
		index:   index,
	}
}

// Get returns the session for id.
func (r *MemoryRegistry) Get(id string) (*types.Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.entries[id]
	if !ok {
		return nil, ErrNotFound
	}
	return e.session, nil
}

// Put registers or replaces a session.
func (r *MemoryRegistry) Put(session *types.Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[session.ID] = &entry{session: session}
}

// Update runs fn with the session's lock held.
func (r *MemoryRegistry) Update(id string, fn func(*types.Session) error) error {
	r.mu.RLock()
	e, ok := r.entries[id]
	r.mu.RUnlock()
	if !ok {
		return ErrNotFound
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	return fn(e.session)
}

// Delete removes the session and deletes its collection. The entry is
// removed from the map before the collection delete so the collection is
// torn down at most once even under concurrent deletes.
func (r *MemoryRegistry) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	e, ok := r.entries[id]
	if ok {
		delete(r.entries, id)
	}
	r.mu.Unlock()

	if !ok {
		return nil
	}
	if err := r.index.DeleteCollection(ctx, e.session.CollectionRef); err != nil {
		return err
	}
	return nil
}

// Sweep evicts sessions idle past ttl. LastActivity is read under each
// entry's lock: a chat turn touching the session races the sweep otherwise.
func (r *MemoryRegistry) Sweep(ctx context.Context, ttl time.Duration) int {
	now := time.Now()

	type evictee struct {
		id, collection string
		idleSince      time.Time
	}

	r.mu.Lock()
	var evicted []evictee
	for id, e := range r.entries {
		e.mu.Lock()
		idle := e.session.IdleSince(now, ttl)
		lastActivity := e.session.LastActivity
		collection := e.session.CollectionRef
		e.mu.Unlock()
		if idle {
			evicted = append(evicted, evictee{id: id, collection: collection, idleSince: lastActivity})
			delete(r.entries, id)
		}
	}
	r.mu.Unlock()

	for _, s := range evicted {
		if err := r.index.DeleteCollection(ctx, s.collection); err != nil {
			log.Printf("session: failed to delete collection %s for evicted session %s: %v", s.collection, s.id, err)
		} else {
			log.Printf("session: evicted %s (idle since %s)", s.id, s.idleSince.Format(time.RFC3339))
		}
	}
	return len(evicted)
}

// StartSweeper launches the periodic eviction loop. It stops when ctx is
// cancelled.
func StartSweeper(ctx context.Context, registry Registry, interval, ttl time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n := registry.Sweep(ctx, ttl); n > 0 {
					log.Printf("session: sweep evicted %d sessions", n)
				}
			}
		}
	}()
}

// Compile-time assertion.
var _ Registry = (*MemoryRegistry)(nil)
