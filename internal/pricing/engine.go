package pricing

import (
	"github.com/shopspring/decimal"
)

// CurrencySymbol prefixes every formatted amount. The storefront is
// single-currency; locale-aware formatting is out of scope.
const CurrencySymbol = "$"

var hundred = decimal.NewFromInt(100)

// Line describes a cart line used for pricing calculation.
type Line struct {
	UnitPrice       float64
	DiscountPercent float64
	Quantity        int
}

// Summary aggregates computed pricing components for a cart.
type Summary struct {
	ItemCount     int     `json:"itemCount"`
	TotalItems    int     `json:"totalItems"`
	Subtotal      float64 `json:"subtotal"`
	TotalSavings  float64 `json:"totalSavings"`
	OriginalTotal float64 `json:"originalTotal"`
	FinalTotal    float64 `json:"finalTotal"`
}

// DiscountedUnitPrice applies the discount percentage to a unit price.
// A zero discount returns the price untouched so that undiscounted items
// never pick up a floating point deviation.
func DiscountedUnitPrice(price, discountPercent float64) float64 {
	if discountPercent == 0 {
		return price
	}
	return discountedUnit(price, discountPercent).InexactFloat64()
}

// LineTotal computes the discounted total for a line, rounded half-up at the
// cent. The discount is applied to the unit price before multiplying by the
// quantity so a line rounds exactly once.
func LineTotal(l Line) float64 {
	unit := discountedUnit(l.UnitPrice, l.DiscountPercent)
	return unit.Mul(decimal.NewFromInt(int64(l.Quantity))).Round(2).InexactFloat64()
}

// CartTotal sums the already-rounded line totals and rounds the result to two
// decimal places.
func CartTotal(lines []Line) float64 {
	total := decimal.Zero
	for _, l := range lines {
		total = total.Add(decimal.NewFromFloat(LineTotal(l)))
	}
	return total.Round(2).InexactFloat64()
}

// LineSavings returns the unrounded discount amount for a line. Lines without
// a discount save nothing.
func LineSavings(l Line) float64 {
	if l.DiscountPercent == 0 {
		return 0
	}
	price := decimal.NewFromFloat(l.UnitPrice)
	qty := decimal.NewFromInt(int64(l.Quantity))
	pct := decimal.NewFromFloat(l.DiscountPercent).Div(hundred)
	return price.Mul(qty).Mul(pct).InexactFloat64()
}

// CartSavings sums the per-line savings and rounds once at the cart level.
func CartSavings(lines []Line) float64 {
	total := decimal.Zero
	for _, l := range lines {
		if l.DiscountPercent == 0 {
			continue
		}
		price := decimal.NewFromFloat(l.UnitPrice)
		qty := decimal.NewFromInt(int64(l.Quantity))
		total = total.Add(price.Mul(qty).Mul(decimal.NewFromFloat(l.DiscountPercent).Div(hundred)))
	}
	return total.Round(2).InexactFloat64()
}

// FormatPrice renders an amount as a fixed two-decimal string with the
// currency symbol, e.g. 99.9 -> "$99.90".
func FormatPrice(amount float64) string {
	return CurrencySymbol + decimal.NewFromFloat(amount).StringFixed(2)
}

// FormatDiscountedPrice is a display helper combining DiscountedUnitPrice and
// FormatPrice, used for strike-through pricing on product detail payloads.
func FormatDiscountedPrice(price, discountPercent float64) string {
	return CurrencySymbol + discountedUnit(price, discountPercent).StringFixed(2)
}

// Summarize derives the summary for a set of cart lines. OriginalTotal is the
// sum of the already-rounded subtotal and savings rather than a recomputation
// from raw prices; carts with many fractional-cent discounts may therefore
// drift from a byte-exact recomputation by up to a cent per line. That is the
// storefront's historical behaviour and is pinned by tests.
func Summarize(lines []Line) Summary {
	totalItems := 0
	for _, l := range lines {
		totalItems += l.Quantity
	}
	subtotal := CartTotal(lines)
	savings := CartSavings(lines)
	original := decimal.NewFromFloat(subtotal).Add(decimal.NewFromFloat(savings)).InexactFloat64()
	return Summary{
		ItemCount:     len(lines),
		TotalItems:    totalItems,
		Subtotal:      subtotal,
		TotalSavings:  savings,
		OriginalTotal: original,
		FinalTotal:    subtotal,
	}
}

func discountedUnit(price, discountPercent float64) decimal.Decimal {
	unit := decimal.NewFromFloat(price)
	if discountPercent == 0 {
		return unit
	}
	factor := decimal.NewFromInt(1).Sub(decimal.NewFromFloat(discountPercent).Div(hundred))
	return unit.Mul(factor)
}
