package reimbursement

import (
	"context"

	"github.com/expentra/expentra/internal/event_bus"
	log "github.com/sirupsen/logrus"
)

// Notifier tells a requester their reimbursement was paid. Delivery is
// best-effort: implementations must not fail or block the settlement
// transition, which is already committed when they run.
type Notifier interface {
	NotifySettled(ctx context.Context, reimbursement Reimbursement)
}

// EventBusNotifier publishes settlement notifications on the application
// event bus, where the delivery channel subscribes.
type EventBusNotifier struct {
	bus *event_bus.EventBus
}

func NewEventBusNotifier(bus *event_bus.EventBus) *EventBusNotifier {
	return &EventBusNotifier{bus: bus}
}

func (n *EventBusNotifier) NotifySettled(ctx context.Context, reimbursement Reimbursement) {
	event := event_bus.NewEvent(ctx, event_bus.EventReimbursementSettled, event_bus.ReimbursementSettled{
		ReimbursementId: reimbursement.ID,
		ExpenseId:       reimbursement.ExpenseID,
		RequestedBy:     reimbursement.RequestedBy,
		Amount:          reimbursement.Amount,
	})
	if err := n.bus.Publish(event); err != nil {
		log.Warnf("settlement notification for reimbursement %d failed: %v", reimbursement.ID, err)
	}
}

// NoopNotifier drops notifications. Used in tests.
type NoopNotifier struct{}

func (NoopNotifier) NotifySettled(context.Context, Reimbursement) {}
