// Package ledger talks to the escrow contract on the external ledger.
//
// The engine depends only on Client. Remote submits real transactions through
// a Submitter; Local is the explicit stand-in used when the ledger is not
// configured or unreachable at startup.
package ledger

import (
	"context"

	"github.com/shopspring/decimal"
)

// Event and attribute names emitted by the escrow contract.
const (
	EventOrderCreated = "order_created"
	AttrOrderID       = "order_id"
)

type Op string

const (
	OpCreateOrder   Op = "create_order"
	OpFundOrder     Op = "fund_order"
	OpStartOrder    Op = "start_order"
	OpCompleteOrder Op = "complete_order"
	OpDisputeOrder  Op = "dispute_order"
	OpRefundOrder   Op = "refund_order"
)

// Action is a contract state change that carries no payload besides the
// order id.
type Action string

const (
	ActionStart    Action = "start"
	ActionComplete Action = "complete"
	ActionDispute  Action = "dispute"
	ActionRefund   Action = "refund"
)

func (a Action) Op() Op {
	switch a {
	case ActionStart:
		return OpStartOrder
	case ActionComplete:
		return OpCompleteOrder
	case ActionDispute:
		return OpDisputeOrder
	case ActionRefund:
		return OpRefundOrder
	default:
		return ""
	}
}

// Call is one contract invocation.
type Call struct {
	Op           Op
	OrderID      string
	Counterparty string
	Details      string
	Amount       decimal.Decimal
}

type Event struct {
	Type       string
	Attributes map[string]string
}

// Receipt describes a confirmed transaction.
type Receipt struct {
	TxRef  string
	Height int64
	Events []Event
}

// Attribute returns the first value of key on an event of type typ.
func (r Receipt) Attribute(typ, key string) (string, bool) {
	for _, ev := range r.Events {
		if ev.Type != typ {
			continue
		}
		if v, ok := ev.Attributes[key]; ok {
			return v, true
		}
	}
	return "", false
}

// Submitter sends a call to the ledger and blocks until it is confirmed,
// rejected or ctx is done.
type Submitter interface {
	Submit(ctx context.Context, call Call) (Receipt, error)
}

// Mode reports whether operations reach the real ledger.
type Mode struct {
	Enabled bool   `json:"enabled"`
	Reason  string `json:"reason,omitempty"`
}

type CreateResult struct {
	OrderID string
	TxRef   string
}

// Client is the capability the order engine uses.
type Client interface {
	Mode() Mode
	CreateOrder(ctx context.Context, counterparty, details string) (CreateResult, error)
	FundOrder(ctx context.Context, orderID string, amount decimal.Decimal) (Receipt, error)
	AdvanceOrder(ctx context.Context, orderID string, action Action) (Receipt, error)
}
