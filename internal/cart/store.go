package cart

import (
	"sync"

	"github.com/dimasukma/backend-etalase/internal/catalog"
)

// Store owns the cart state for one session. All mutation entry points apply
// the matching intent through the pure transition function and replace the
// held state; subscribers always observe a fully-updated snapshot.
type Store struct {
	mu    sync.Mutex
	state State

	nextSub int
	subs    map[int]func(State)
}

// NewStore constructs a store holding the empty cart.
func NewStore() *Store {
	return &Store{state: Empty(), subs: map[int]func(State){}}
}

// AddItem appends the product or increments its line quantity.
func (s *Store) AddItem(p catalog.Product) State {
	return s.apply(Add(p))
}

// RemoveItem deletes the line for the product id, if present.
func (s *Store) RemoveItem(productID int) State {
	return s.apply(Remove(productID))
}

// IncreaseQuantity increments an existing line; absent lines are a no-op.
func (s *Store) IncreaseQuantity(p catalog.Product) State {
	return s.apply(Increase(p))
}

// DecreaseQuantity decrements an existing line, removing it at quantity one.
func (s *Store) DecreaseQuantity(p catalog.Product) State {
	return s.apply(Decrease(p))
}

// ClearCart resets the cart to the empty state.
func (s *Store) ClearCart() State {
	return s.apply(Clear())
}

// Snapshot returns a consistent copy of the current state. The line slice is
// copied so callers can never observe a partially-applied mutation.
func (s *Store) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return snapshotLocked(s.state)
}

// ItemQuantity reports the held quantity for a product id, zero when absent.
func (s *Store) ItemQuantity(productID int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if idx := findLine(s.state.Items, productID); idx >= 0 {
		return s.state.Items[idx].Quantity
	}
	return 0
}

// Line returns the cart line for a product id and whether it exists.
func (s *Store) Line(productID int) (Line, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if idx := findLine(s.state.Items, productID); idx >= 0 {
		return s.state.Items[idx], true
	}
	return Line{}, false
}

// Subscribe registers a listener invoked with a snapshot after every
// mutation. The returned function removes the subscription.
func (s *Store) Subscribe(fn func(State)) func() {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

func (s *Store) apply(intent Intent) State {
	s.mu.Lock()
	s.state = Apply(s.state, intent)
	snap := snapshotLocked(s.state)
	listeners := make([]func(State), 0, len(s.subs))
	for _, fn := range s.subs {
		listeners = append(listeners, fn)
	}
	s.mu.Unlock()

	for _, fn := range listeners {
		fn(snap)
	}
	return snap
}

func snapshotLocked(state State) State {
	return State{
		Items:      cloneLines(state.Items),
		TotalItems: state.TotalItems,
		TotalPrice: state.TotalPrice,
	}
}
