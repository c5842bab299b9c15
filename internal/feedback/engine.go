package feedback

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dimasukma/backend-etalase/internal/cart"
	"github.com/dimasukma/backend-etalase/internal/catalog"
	"github.com/dimasukma/backend-etalase/internal/events"
	"github.com/dimasukma/backend-etalase/internal/obs"
)

// Kind classifies the outcome of a guarded mutation.
type Kind string

const (
	KindAdded   Kind = "added"
	KindRemoved Kind = "removed"
	KindUpdated Kind = "updated"
	KindError   Kind = "error"
)

// Validation rejection messages. The wording is part of the storefront's
// contract with its UI and is pinned by tests.
const (
	MsgOutOfStock      = "Product is out of stock"
	MsgStockLimit      = "Cannot add more items. Stock limit reached."
	MsgMinimumReached  = "Cannot decrease quantity. Minimum reached."
	MsgCartCleared     = "All items removed from cart"
	DefaultDisplayTime = 2 * time.Second
)

// Notification is the transient feedback triple shown by the UI. A new
// notification replaces any prior one; there is no identity beyond "current".
type Notification struct {
	Message string `json:"message"`
	Kind    Kind   `json:"kind"`
	Visible bool   `json:"visible"`
}

// Confirmer asks the user to approve a destructive action. Implementations
// must return true only on an explicit affirmative choice; cancellation is a
// normal false result, not an error.
type Confirmer interface {
	Confirm(ctx context.Context, title, message string) (bool, error)
}

// ConfirmerFunc adapts a function to the Confirmer interface.
type ConfirmerFunc func(ctx context.Context, title, message string) (bool, error)

// Confirm implements Confirmer.
func (f ConfirmerFunc) Confirm(ctx context.Context, title, message string) (bool, error) {
	return f(ctx, title, message)
}

// confirmerKey is the context key storing a request-scoped confirmer.
type confirmerKey struct{}

// WithConfirmer stores a confirmer on the context. A context-carried confirmer
// takes precedence over the engine's configured one, letting transport layers
// answer prompts per request without touching shared engine state.
func WithConfirmer(ctx context.Context, c Confirmer) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, confirmerKey{}, c)
}

// ConfirmerFromContext extracts a request-scoped confirmer if present.
func ConfirmerFromContext(ctx context.Context) Confirmer {
	if ctx == nil {
		return nil
	}
	if c, ok := ctx.Value(confirmerKey{}).(Confirmer); ok {
		return c
	}
	return nil
}

// Engine wraps a cart store's mutation entry points with stock validation,
// destructive-action confirmation, and transient feedback notifications.
// It holds no cart data of its own. Guarded mutations are serialized by the
// ops mutex so a validation read and its mutation form one atomic step even
// when concurrent requests share a session.
type Engine struct {
	Store      *cart.Store
	Confirm    Confirmer
	Events     *events.Bus
	SessionID  string
	DisplayFor time.Duration

	// Schedule runs fn after d and returns a cancel function. Tests inject a
	// manual scheduler; the default wraps time.AfterFunc.
	Schedule func(d time.Duration, fn func()) func()

	// ops serializes validate-and-mutate sequences; mu guards only the
	// notification state and may be taken while ops is held.
	ops    sync.Mutex
	mu     sync.Mutex
	gen    uint64
	note   Notification
	cancel func()
}

// NewEngine constructs an engine around the given store.
func NewEngine(store *cart.Store, confirm Confirmer) *Engine {
	return &Engine{Store: store, Confirm: confirm, DisplayFor: DefaultDisplayTime}
}

// Notification returns the current notification triple.
func (e *Engine) Notification() Notification {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.note
}

// Hide dismisses the current notification early.
func (e *Engine) Hide() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.hideLocked()
}

// AddItem validates stock limits and adds the product to the cart. A nil
// product is a no-op. Validation failures leave the store unmutated and
// surface as an error-classified notification.
func (e *Engine) AddItem(ctx context.Context, p *catalog.Product) Notification {
	if p == nil {
		return e.Notification()
	}
	e.ops.Lock()
	defer e.ops.Unlock()
	if p.Stock <= 0 {
		return e.reject(ctx, "add", MsgOutOfStock)
	}
	if e.Store.ItemQuantity(p.ID) >= p.Stock {
		return e.reject(ctx, "add", MsgStockLimit)
	}
	e.Store.AddItem(*p)
	e.countMutation("add", "ok")
	e.emit(ctx, events.TopicItemAdded, map[string]any{"productId": p.ID, "title": p.Title})
	return e.show(KindAdded, fmt.Sprintf("Added %s to cart", p.Title))
}

// IncreaseQuantity validates the stock limit and increments the line.
func (e *Engine) IncreaseQuantity(ctx context.Context, p *catalog.Product) Notification {
	if p == nil {
		return e.Notification()
	}
	e.ops.Lock()
	defer e.ops.Unlock()
	if e.Store.ItemQuantity(p.ID) >= p.Stock {
		return e.reject(ctx, "increase", MsgStockLimit)
	}
	e.Store.IncreaseQuantity(*p)
	e.countMutation("increase", "ok")
	e.emit(ctx, events.TopicQuantityIncreased, map[string]any{"productId": p.ID})
	return e.show(KindUpdated, fmt.Sprintf("Increased quantity of %s", p.Title))
}

// DecreaseQuantity validates the minimum and decrements the line, removing it
// at quantity one.
func (e *Engine) DecreaseQuantity(ctx context.Context, p *catalog.Product) Notification {
	if p == nil {
		return e.Notification()
	}
	e.ops.Lock()
	defer e.ops.Unlock()
	if e.Store.ItemQuantity(p.ID) <= 0 {
		return e.reject(ctx, "decrease", MsgMinimumReached)
	}
	e.Store.DecreaseQuantity(*p)
	e.countMutation("decrease", "ok")
	e.emit(ctx, events.TopicQuantityDecreased, map[string]any{"productId": p.ID})
	return e.show(KindUpdated, fmt.Sprintf("Decreased quantity of %s", p.Title))
}

// RemoveItem removes the line for the product id after user confirmation.
// Absent lines are removed idempotently without a prompt. The boolean result
// reports whether the removal happened; cancellation resolves false and never
// mutates the store.
func (e *Engine) RemoveItem(ctx context.Context, productID int) (bool, error) {
	e.ops.Lock()
	defer e.ops.Unlock()
	line, ok := e.Store.Line(productID)
	if !ok {
		e.Store.RemoveItem(productID)
		e.countMutation("remove", "noop")
		return true, nil
	}
	confirmed, err := e.confirm(ctx, "Remove Item", fmt.Sprintf("Remove %q from your cart?", line.Product.Title))
	if err != nil {
		return false, err
	}
	if !confirmed {
		e.countMutation("remove", "cancelled")
		return false, nil
	}
	e.Store.RemoveItem(productID)
	e.countMutation("remove", "ok")
	e.emit(ctx, events.TopicItemRemoved, map[string]any{"productId": productID, "title": line.Product.Title})
	e.show(KindRemoved, fmt.Sprintf("Removed %s from cart", line.Product.Title))
	return true, nil
}

// ClearCart empties the cart after user confirmation. An already-empty cart
// resolves true immediately with no prompt.
func (e *Engine) ClearCart(ctx context.Context) (bool, error) {
	e.ops.Lock()
	defer e.ops.Unlock()
	if len(e.Store.Snapshot().Items) == 0 {
		return true, nil
	}
	confirmed, err := e.confirm(ctx, "Clear Cart", "Are you sure you want to remove all items from your cart?")
	if err != nil {
		return false, err
	}
	if !confirmed {
		e.countMutation("clear", "cancelled")
		return false, nil
	}
	e.Store.ClearCart()
	e.countMutation("clear", "ok")
	e.emit(ctx, events.TopicCartCleared, nil)
	e.show(KindRemoved, MsgCartCleared)
	return true, nil
}

func (e *Engine) confirm(ctx context.Context, title, message string) (bool, error) {
	if c := ConfirmerFromContext(ctx); c != nil {
		return c.Confirm(ctx, title, message)
	}
	if e.Confirm == nil {
		return false, fmt.Errorf("feedback: confirmer not configured")
	}
	return e.Confirm.Confirm(ctx, title, message)
}

func (e *Engine) reject(ctx context.Context, op, message string) Notification {
	_ = ctx
	e.countMutation(op, "rejected")
	return e.show(KindError, message)
}

// show replaces the current notification and schedules its auto-dismiss. The
// generation counter ensures a timer from a replaced notification can never
// clear a newer one.
func (e *Engine) show(kind Kind, message string) Notification {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.cancel != nil {
		e.cancel()
		e.cancel = nil
	}
	e.gen++
	gen := e.gen
	e.note = Notification{Message: message, Kind: kind, Visible: true}

	if obs.FeedbackNotificationsTotal != nil {
		obs.FeedbackNotificationsTotal.WithLabelValues(string(kind)).Inc()
	}

	e.cancel = e.schedule(e.displayFor(), func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		if e.gen != gen {
			return
		}
		e.hideLocked()
	})
	return e.note
}

func (e *Engine) hideLocked() {
	if e.cancel != nil {
		e.cancel()
		e.cancel = nil
	}
	e.gen++
	e.note = Notification{}
}

func (e *Engine) schedule(d time.Duration, fn func()) func() {
	if e.Schedule != nil {
		return e.Schedule(d, fn)
	}
	timer := time.AfterFunc(d, fn)
	return func() { timer.Stop() }
}

func (e *Engine) displayFor() time.Duration {
	if e.DisplayFor <= 0 {
		return DefaultDisplayTime
	}
	return e.DisplayFor
}

func (e *Engine) emit(ctx context.Context, topic string, payload any) {
	if e.Events == nil {
		return
	}
	_, _ = e.Events.Emit(ctx, topic, e.SessionID, payload)
}

func (e *Engine) countMutation(op, result string) {
	if obs.CartMutationsTotal != nil {
		obs.CartMutationsTotal.WithLabelValues(op, result).Inc()
	}
}
