package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/JunaidIslam2105/escrow-p2p-git/services/api/internal/domain"
)

const defaultSubmitTimeout = 30 * time.Second

// Remote is the Client used when the ledger is enabled. It never retries:
// a retried write could execute twice on the ledger.
type Remote struct {
	sub     Submitter
	timeout time.Duration
}

func NewRemote(sub Submitter, timeout time.Duration) *Remote {
	if timeout <= 0 {
		timeout = defaultSubmitTimeout
	}
	return &Remote{sub: sub, timeout: timeout}
}

func (r *Remote) Mode() Mode {
	return Mode{Enabled: true}
}

func (r *Remote) CreateOrder(ctx context.Context, counterparty, details string) (CreateResult, error) {
	rcpt, err := r.submit(ctx, Call{Op: OpCreateOrder, Counterparty: counterparty, Details: details})
	if err != nil {
		return CreateResult{}, err
	}
	id, ok := rcpt.Attribute(EventOrderCreated, AttrOrderID)
	if !ok || id == "" {
		return CreateResult{}, fmt.Errorf("%w: %w: tx %s confirmed without %s.%s",
			domain.ErrLedgerOperationFailed, domain.ErrLedgerEventMissing, rcpt.TxRef, EventOrderCreated, AttrOrderID)
	}
	return CreateResult{OrderID: id, TxRef: rcpt.TxRef}, nil
}

func (r *Remote) FundOrder(ctx context.Context, orderID string, amount decimal.Decimal) (Receipt, error) {
	return r.submit(ctx, Call{Op: OpFundOrder, OrderID: orderID, Amount: amount})
}

func (r *Remote) AdvanceOrder(ctx context.Context, orderID string, action Action) (Receipt, error) {
	op := action.Op()
	if op == "" {
		return Receipt{}, fmt.Errorf("%w: unknown action %q", domain.ErrLedgerOperationFailed, action)
	}
	return r.submit(ctx, Call{Op: op, OrderID: orderID})
}

func (r *Remote) submit(ctx context.Context, call Call) (Receipt, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	rcpt, err := r.sub.Submit(ctx, call)
	if err != nil {
		return Receipt{}, fmt.Errorf("%w: %s: %w", domain.ErrLedgerOperationFailed, call.Op, err)
	}
	return rcpt, nil
}
