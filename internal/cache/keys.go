package cache

import "fmt"

// Single-record keys are exact and deleted directly on writes. Listing and
// search keys embed the entity kind's generation ("g<n>" segment) so a single
// Invalidate call retires all of them at once.

func BudgetKey(id int) string {
	return fmt.Sprintf("budget:%d", id)
}

func BudgetListKey(gen uint64, page, limit int) string {
	return fmt.Sprintf("budgets:all:g%d:%d:%d", gen, page, limit)
}

func BudgetSearchKey(gen uint64, filters string, page, limit int) string {
	return fmt.Sprintf("budgets:search:g%d:%s:%d:%d", gen, filters, page, limit)
}

func ExpenseKey(id int) string {
	return fmt.Sprintf("expense:%d", id)
}

func ExpenseListKey(gen uint64, page, limit int) string {
	return fmt.Sprintf("expenses:all:g%d:%d:%d", gen, page, limit)
}

func ExpenseSearchKey(gen uint64, filters string, page, limit int) string {
	return fmt.Sprintf("expenses:search:g%d:%s:%d:%d", gen, filters, page, limit)
}

func ReimbursementKey(id int) string {
	return fmt.Sprintf("reimbursement:%d", id)
}

func ReimbursementListKey(gen uint64, location string, page, limit int) string {
	return fmt.Sprintf("reimbursements:all:g%d:%s:%d:%d", gen, location, page, limit)
}

func ReimbursementSearchKey(gen uint64, filters string, page, limit int) string {
	return fmt.Sprintf("reimbursements:search:g%d:%s:%d:%d", gen, filters, page, limit)
}
