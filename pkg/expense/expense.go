package expense

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Expense is a single spend record. Its amount is split at creation time into
// the portion funded from the owner's monthly budget (FromAllocation) and the
// portion that must be paid back separately (FromReimbursement). The two
// always sum exactly to Amount.
type Expense struct {
	ID        int
	Uid       string
	OwnerID   int
	OwnerName string
	Amount    decimal.Decimal
	// FromAllocation is debited from the matching budget's spent amount.
	FromAllocation decimal.Decimal
	// FromReimbursement is the reimbursable remainder.
	FromReimbursement decimal.Decimal
	Department        string
	SubDepartment     string
	Month             int
	Year              int
	IsApproved        bool
	IsReimbursed      bool
	// ProofRef points at an externally stored proof-of-payment document.
	ProofRef  string
	CreatedAt time.Time
}

// BudgetSnapshot is the state of the debited budget right after an expense
// was recorded. Remaining is the headroom still available, floored at zero.
type BudgetSnapshot struct {
	BudgetID  int
	Allocated decimal.Decimal
	Spent     decimal.Decimal
	Remaining decimal.Decimal
}

// CreateInput carries the caller-supplied fields of a new expense. The owner
// is always the acting user.
type CreateInput struct {
	Amount        decimal.Decimal
	Department    string
	SubDepartment string
	Month         int
	Year          int
	IsReimbursed  bool
	ProofRef      string
}

// UpdatePatch is a partial update. Nil means "leave unchanged".
type UpdatePatch struct {
	Department    *string
	SubDepartment *string
	IsApproved    *bool
	IsReimbursed  *bool
}

// SearchFilters are ANDed together. Zero/nil values mean "no constraint".
type SearchFilters struct {
	Payee        string
	Department   string
	Month        int
	Year         int
	IsApproved   *bool
	IsReimbursed *bool
	MinAmount    *decimal.Decimal
	MaxAmount    *decimal.Decimal
}

func (f SearchFilters) cacheKey() string {
	return fmt.Sprintf("%s:%s:%d:%d:%s:%s:%s:%s",
		f.Payee, f.Department, f.Month, f.Year,
		boolKeyPart(f.IsApproved), boolKeyPart(f.IsReimbursed),
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

// PageResult is one page of expenses plus totals over the whole filtered set.
type PageResult struct {
	Items []Expense
	Total int
	// TotalAmount sums Amount over the filtered set, TotalReimbursable sums
	// FromReimbursement.
	TotalAmount       decimal.Decimal
	TotalReimbursable decimal.Decimal
}
