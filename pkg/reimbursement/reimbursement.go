package reimbursement

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Reimbursement is a request to pay back the reimbursable remainder of one
// expense. Exactly one reimbursement exists per expense. It moves between two
// states: pending (IsReimbursed=false) and paid (IsReimbursed=true with a
// ReimbursedAt timestamp). Paid records are frozen: their amount can no
// longer change, and only a revert by a superadmin moves them back.
type Reimbursement struct {
	ID            int
	Uid           string
	ExpenseID     int
	RequestedBy   int
	RequesterName string
	Amount        decimal.Decimal
	IsReimbursed  bool
	ReimbursedAt  *time.Time
	CreatedAt     time.Time
	// Joined from the referenced expense on read paths.
	ExpenseAmount     decimal.Decimal
	ExpenseDepartment string
}

// SearchFilters are ANDed together. Zero/nil values mean "no constraint".
// Location restricts to requesters whose location attribute matches exactly.
type SearchFilters struct {
	RequesterName string
	RequestedBy   int
	Location      string
	IsReimbursed  *bool
	Month         int
	Year          int
	MinAmount     *decimal.Decimal
	MaxAmount     *decimal.Decimal
}

// isListing reports whether the filters reduce to the plain listing, at most
// restricted by location. Those results cache under the list key class rather
// than the search one.
func (f SearchFilters) isListing() bool {
	return f.RequesterName == "" && f.RequestedBy == 0 && f.IsReimbursed == nil &&
		f.Month == 0 && f.Year == 0 && f.MinAmount == nil && f.MaxAmount == nil
}

func (f SearchFilters) cacheKey() string {
	return fmt.Sprintf("%s:%d:%s:%s:%d:%d:%s:%s",
		f.RequesterName, f.RequestedBy, f.Location,
		boolKeyPart(f.IsReimbursed), f.Month, f.Year,
		decimalKeyPart(f.MinAmount), decimalKeyPart(f.MaxAmount),
	)
}

func boolKeyPart(b *bool) string {
	if b == nil {
		return "-"
	}
	return fmt.Sprintf("%t", *b)
}

func decimalKeyPart(d *decimal.Decimal) string {
	if d == nil {
		return "-"
	}
	return d.String()
}

// Stats summarize the whole filtered set, not just the served page.
type Stats struct {
	Count         int
	TotalAmount   decimal.Decimal
	PaidCount     int
	PaidAmount    decimal.Decimal
	PendingCount  int
	PendingAmount decimal.Decimal
}

// PageResult is one page of reimbursements plus full-set stats.
type PageResult struct {
	Items []Reimbursement
	Total int
	Stats Stats
}
