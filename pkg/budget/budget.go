package budget

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Budget is a monthly funding allocation owned by a single user.
// SpentAmount tracks the sum of the budget-funded portions of all expenses
// attributed to this budget. It is only ever mutated through an atomic
// server-side increment, never through read-modify-write.
type Budget struct {
	ID      int
	Uid     string
	OwnerID int
	// OwnerName is the owner's display name, joined on read paths.
	OwnerName       string
	AllocatedAmount decimal.Decimal
	SpentAmount     decimal.Decimal
	Month           int
	Year            int
	CreatedAt       time.Time
}

// Remaining returns the headroom still fundable from this budget, floored at
// zero. Overspent budgets (allowed, see the ceiling decision in DESIGN.md)
// report zero headroom rather than a negative value.
func (b Budget) Remaining() decimal.Decimal {
	remaining := b.AllocatedAmount.Sub(b.SpentAmount)
	if remaining.IsNegative() {
		return decimal.Zero
	}
	return remaining
}

// EditPatch carries the optional fields of a budget edit. Nil means
// "leave unchanged".
type EditPatch struct {
	Amount  *decimal.Decimal
	Month   *int
	Year    *int
	OwnerID *int
}

// SearchFilters are ANDed together. Nil/zero values mean "no constraint".
type SearchFilters struct {
	UserName     string
	Month        int
	Year         int
	MinAllocated *decimal.Decimal
	MaxAllocated *decimal.Decimal
	MinSpent     *decimal.Decimal
	MaxSpent     *decimal.Decimal
}

// cacheKey serializes the filters deterministically for use in cache keys.
func (f SearchFilters) cacheKey() string {
	return fmt.Sprintf("%s:%d:%d:%s:%s:%s:%s",
		f.UserName, f.Month, f.Year,
		decimalKeyPart(f.MinAllocated), decimalKeyPart(f.MaxAllocated),
		decimalKeyPart(f.MinSpent), decimalKeyPart(f.MaxSpent),
	)
}

func decimalKeyPart(d *decimal.Decimal) string {
	if d == nil {
		return "-"
	}
	return d.String()
}

// PageResult is one page of budgets together with whole-collection totals,
// all computed by the store in a single pass.
type PageResult struct {
	Items          []Budget
	Total          int
	TotalAllocated decimal.Decimal
	TotalSpent     decimal.Decimal
}
