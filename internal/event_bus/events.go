package event_bus

import "github.com/shopspring/decimal"

const (
	// EventReimbursementSettled is published after a reimbursement
	// transitions from pending to paid.
	EventReimbursementSettled EventType = "reimbursement.settled"
)

// ReimbursementSettled notifies the requester that their reimbursement has
// been paid out. Delivery is best-effort: the settlement transition is already
// committed when this event is published.
type ReimbursementSettled struct {
	ReimbursementId int
	ExpenseId       int
	RequestedBy     int
	Amount          decimal.Decimal
}
