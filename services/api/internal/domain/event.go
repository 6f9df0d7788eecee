package domain

import "time"

type EventType string

const (
	EventOrderCreated   EventType = "order.created"
	EventOrderFunded    EventType = "order.funded"
	EventOrderStarted   EventType = "order.started"
	EventOrderCompleted EventType = "order.completed"
	EventOrderDisputed  EventType = "order.disputed"
	EventOrderRefunded  EventType = "order.refunded"
	EventOrderForced    EventType = "order.status_forced"
)

// EventTypeFor returns the event emitted after t commits.
func EventTypeFor(t Transition) EventType {
	switch t {
	case TransitionFund:
		return EventOrderFunded
	case TransitionStart:
		return EventOrderStarted
	case TransitionComplete:
		return EventOrderCompleted
	case TransitionDispute:
		return EventOrderDisputed
	case TransitionRefund:
		return EventOrderRefunded
	default:
		return ""
	}
}

// Event is a committed order change, published after the store commit.
type Event struct {
	ID          string    `json:"id"`
	Type        EventType `json:"type"`
	OrderID     string    `json:"order_id"`
	ActorID     string    `json:"actor_id"`
	From        Status    `json:"from,omitempty"`
	To          Status    `json:"to"`
	LedgerTxRef string    `json:"ledger_tx_ref,omitempty"`
	OccurredAt  time.Time `json:"occurred_at"`
}

// AuditEntry records an administrative override. It is written in the same
// store transaction as the status change.
type AuditEntry struct {
	ID         string
	OrderID    string
	ActorID    string
	Action     string
	From       Status
	To         Status
	RecordedAt time.Time
}
