package cart

import (
	"github.com/dimasukma/backend-etalase/internal/catalog"
	"github.com/dimasukma/backend-etalase/internal/pricing"
)

// Line pairs a product with the quantity held in the cart. A line with a
// quantity below one never exists in a State; it is removed instead.
type Line struct {
	Product  catalog.Product `json:"product"`
	Quantity int             `json:"quantity"`
}

// State is the cart contents plus totals derived from the line sequence.
// TotalItems and TotalPrice are never patched incrementally; every transition
// recomputes them from the lines so the two can never disagree with a fold.
type State struct {
	Items      []Line  `json:"items"`
	TotalItems int     `json:"totalItems"`
	TotalPrice float64 `json:"totalPrice"`
}

// Empty returns the canonical empty state.
func Empty() State {
	return State{Items: []Line{}}
}

// Op identifies a requested state transition.
type Op int

const (
	// OpAdd appends a product or increments its existing line.
	OpAdd Op = iota + 1
	// OpRemove deletes the line for a product id.
	OpRemove
	// OpIncrease increments the quantity of an existing line.
	OpIncrease
	// OpDecrease decrements the quantity, removing the line at one.
	OpDecrease
	// OpClear resets the cart to the empty state.
	OpClear
)

// Intent is a single requested transition with its payload.
type Intent struct {
	Op        Op
	Product   catalog.Product
	ProductID int
}

// Add builds an add intent.
func Add(p catalog.Product) Intent { return Intent{Op: OpAdd, Product: p, ProductID: p.ID} }

// Remove builds a remove intent for a product id.
func Remove(productID int) Intent { return Intent{Op: OpRemove, ProductID: productID} }

// Increase builds a quantity-increment intent.
func Increase(p catalog.Product) Intent { return Intent{Op: OpIncrease, Product: p, ProductID: p.ID} }

// Decrease builds a quantity-decrement intent.
func Decrease(p catalog.Product) Intent { return Intent{Op: OpDecrease, Product: p, ProductID: p.ID} }

// Clear builds a clear intent.
func Clear() Intent { return Intent{Op: OpClear} }

// Apply is the pure transition function: it maps the current state and an
// intent to the next state without mutating its input. Stock limits are not
// enforced here; guarding is the feedback engine's responsibility.
func Apply(state State, intent Intent) State {
	switch intent.Op {
	case OpAdd:
		idx := findLine(state.Items, intent.Product.ID)
		var items []Line
		if idx >= 0 {
			items = cloneLines(state.Items)
			items[idx].Quantity++
		} else {
			items = append(cloneLines(state.Items), Line{Product: intent.Product, Quantity: 1})
		}
		return withTotals(items)

	case OpRemove:
		idx := findLine(state.Items, intent.ProductID)
		if idx < 0 {
			return state
		}
		items := make([]Line, 0, len(state.Items)-1)
		items = append(items, state.Items[:idx]...)
		items = append(items, state.Items[idx+1:]...)
		return withTotals(items)

	case OpIncrease:
		idx := findLine(state.Items, intent.Product.ID)
		if idx < 0 {
			return state
		}
		items := cloneLines(state.Items)
		items[idx].Quantity++
		return withTotals(items)

	case OpDecrease:
		idx := findLine(state.Items, intent.Product.ID)
		if idx < 0 {
			return state
		}
		if state.Items[idx].Quantity <= 1 {
			return Apply(state, Remove(intent.Product.ID))
		}
		items := cloneLines(state.Items)
		items[idx].Quantity--
		return withTotals(items)

	case OpClear:
		return Empty()

	default:
		return state
	}
}

// PricingLines converts cart lines into the pricing package's input shape.
func PricingLines(items []Line) []pricing.Line {
	lines := make([]pricing.Line, 0, len(items))
	for _, it := range items {
		lines = append(lines, pricing.Line{
			UnitPrice:       it.Product.Price,
			DiscountPercent: it.Product.DiscountPercentage,
			Quantity:        it.Quantity,
		})
	}
	return lines
}

// Summarize derives the cart summary from a state snapshot. It is recomputed
// on every call, never cached.
func Summarize(state State) pricing.Summary {
	return pricing.Summarize(PricingLines(state.Items))
}

func withTotals(items []Line) State {
	totalItems := 0
	for _, it := range items {
		totalItems += it.Quantity
	}
	return State{
		Items:      items,
		TotalItems: totalItems,
		TotalPrice: pricing.CartTotal(PricingLines(items)),
	}
}

func findLine(items []Line, productID int) int {
	for i, it := range items {
		if it.Product.ID == productID {
			return i
		}
	}
	return -1
}

func cloneLines(items []Line) []Line {
	out := make([]Line, len(items))
	copy(out, items)
	return out
}
