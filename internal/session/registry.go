package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dimasukma/backend-etalase/internal/cart"
	"github.com/dimasukma/backend-etalase/internal/events"
	"github.com/dimasukma/backend-etalase/internal/feedback"
	"github.com/dimasukma/backend-etalase/internal/obs"
)

// DefaultTTL is how long an idle cart session survives before eviction.
const DefaultTTL = 30 * time.Minute

// Entry bundles the per-session cart store and its guarded mutation engine.
type Entry struct {
	ID     string
	Store  *cart.Store
	Engine *feedback.Engine

	lastSeen time.Time
}

// Registry owns all live cart sessions. Sessions are created explicitly,
// touched on every lookup, and evicted after sitting idle past the TTL.
type Registry struct {
	mu      sync.Mutex
	entries map[string]*Entry

	ttl        time.Duration
	bus        *events.Bus
	displayFor time.Duration

	// Now is overridable in tests.
	Now func() time.Time
}

// NewRegistry constructs an empty registry. A non-positive ttl falls back to
// DefaultTTL. The bus may be nil when event emission is not wired.
func NewRegistry(ttl time.Duration, bus *events.Bus, displayFor time.Duration) *Registry {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Registry{
		entries:    make(map[string]*Entry),
		ttl:        ttl,
		bus:        bus,
		displayFor: displayFor,
		Now:        time.Now,
	}
}

// Create registers a new session with an empty cart and returns it.
func (r *Registry) Create() *Entry {
	store := cart.NewStore()
	engine := feedback.NewEngine(store, nil)
	engine.Events = r.bus
	if r.displayFor > 0 {
		engine.DisplayFor = r.displayFor
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	id := uuid.NewString()
	engine.SessionID = id
	entry := &Entry{ID: id, Store: store, Engine: engine, lastSeen: r.Now()}
	r.entries[id] = entry
	r.setGaugeLocked()
	return entry
}

// Get looks up a session by id, refreshing its idle deadline on hit.
func (r *Registry) Get(id string) (*Entry, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.entries[id]
	if !ok {
		return nil, false
	}
	entry.lastSeen = r.Now()
	return entry, true
}

// Delete removes a session immediately, regardless of idle time.
func (r *Registry) Delete(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entries, id)
	r.setGaugeLocked()
}

// Len reports the number of live sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// Sweep evicts sessions idle past the TTL and returns how many were removed.
func (r *Registry) Sweep() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	cutoff := r.Now().Add(-r.ttl)
	evicted := 0
	for id, entry := range r.entries {
		if entry.lastSeen.Before(cutoff) {
			delete(r.entries, id)
			evicted++
		}
	}
	if evicted > 0 {
		r.setGaugeLocked()
	}
	return evicted
}

// Run sweeps on the given interval until the context is cancelled.
func (r *Registry) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.Sweep()
		}
	}
}

func (r *Registry) setGaugeLocked() {
	if obs.ActiveCartSessions != nil {
		obs.ActiveCartSessions.Set(float64(len(r.entries)))
	}
}
