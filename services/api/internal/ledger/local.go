package ledger

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Local stands in for the ledger when it is disabled. Order ids are
// time-ordered UUIDs generated in-process and no transaction reference is
// ever produced.
type Local struct {
	reason string
}

func NewLocal(reason string) *Local {
	return &Local{reason: reason}
}

func (l *Local) Mode() Mode {
	return Mode{Enabled: false, Reason: l.reason}
}

func (l *Local) CreateOrder(ctx context.Context, counterparty, details string) (CreateResult, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return CreateResult{}, fmt.Errorf("generate local order id: %w", err)
	}
	return CreateResult{OrderID: id.String()}, nil
}

func (l *Local) FundOrder(ctx context.Context, orderID string, amount decimal.Decimal) (Receipt, error) {
	return Receipt{}, nil
}

func (l *Local) AdvanceOrder(ctx context.Context, orderID string, action Action) (Receipt, error) {
	return Receipt{}, nil
}
