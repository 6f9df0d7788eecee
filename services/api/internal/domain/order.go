package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusCreated    Status = "created"
	StatusFunded     Status = "funded"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusDisputed   Status = "disputed"
	StatusRefunded   Status = "refunded"
)

var statuses = []Status{
	StatusCreated,
	StatusFunded,
	StatusInProgress,
	StatusCompleted,
	StatusDisputed,
	StatusRefunded,
}

// Statuses returns every known order status in lifecycle order.
func Statuses() []Status {
	out := make([]Status, len(statuses))
	copy(out, statuses)
	return out
}

// ParseStatus accepts the canonical snake_case names and the camelCase
// spelling used by older clients ("inProgress").
func ParseStatus(s string) (Status, bool) {
	normalized := strings.ToLower(strings.TrimSpace(s))
	if normalized == "inprogress" {
		normalized = string(StatusInProgress)
	}
	st := Status(normalized)
	return st, st.Valid()
}

func (s Status) Valid() bool {
	for _, known := range statuses {
		if s == known {
			return true
		}
	}
	return false
}

// Terminal reports whether no table transition leaves s. Disputed orders can
// still be refunded, so only completed and refunded are terminal.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusRefunded
}

// Order is the escrow agreement between a buyer and a seller.
type Order struct {
	ID               string
	Buyer            string
	Seller           string
	Status           Status
	Details          string
	FiatAmount       decimal.Decimal
	SettlementAmount decimal.Decimal
	ExchangeRate     decimal.Decimal
	// FundedAmount stays zero until the order is funded.
	FundedAmount decimal.Decimal
	LedgerTxRef  string
	CreatedAt    time.Time
	UpdatedAt    time.Time
	CompletedAt  *time.Time
}

type NewOrderParams struct {
	ID           string
	Buyer        string
	Seller       string
	Details      string
	FiatAmount   decimal.Decimal
	ExchangeRate decimal.Decimal
	LedgerTxRef  string
	CreatedAt    time.Time
}

// NewOrder builds an order in its initial status. The settlement amount is
// derived from the rate once and never recomputed.
func NewOrder(p NewOrderParams) Order {
	return Order{
		ID:               p.ID,
		Buyer:            p.Buyer,
		Seller:           p.Seller,
		Status:           StatusCreated,
		Details:          p.Details,
		FiatAmount:       p.FiatAmount,
		SettlementAmount: p.FiatAmount.Mul(p.ExchangeRate),
		ExchangeRate:     p.ExchangeRate,
		FundedAmount:     decimal.Zero,
		LedgerTxRef:      p.LedgerTxRef,
		CreatedAt:        p.CreatedAt,
		UpdatedAt:        p.CreatedAt,
	}
}

// OrderUpdate is the commit-point write for a transition. ExpectedStatus is
// the status observed when the transition was validated.
type OrderUpdate struct {
	ID             string
	ExpectedStatus Status
	Status         Status
	LedgerTxRef    string
	FundedAmount   *decimal.Decimal
	CompletedAt    *time.Time
	UpdatedAt      time.Time
}

// Apply returns o with u applied. An empty LedgerTxRef keeps the previous
// reference and CompletedAt is only ever set once.
func (o Order) Apply(u OrderUpdate) Order {
	o.Status = u.Status
	if u.LedgerTxRef != "" {
		o.LedgerTxRef = u.LedgerTxRef
	}
	if u.FundedAmount != nil {
		o.FundedAmount = *u.FundedAmount
	}
	if u.CompletedAt != nil && o.CompletedAt == nil {
		at := *u.CompletedAt
		o.CompletedAt = &at
	}
	if !u.UpdatedAt.IsZero() {
		o.UpdatedAt = u.UpdatedAt
	}
	return o
}

// OrderFilter scopes order listings. It is the single predicate every store
// applies, whatever the actor's role.
type OrderFilter struct {
	All    bool
	Buyer  string
	Seller string
	Limit  int
}

func (f OrderFilter) Matches(o Order) bool {
	if f.All {
		return true
	}
	if f.Buyer != "" && o.Buyer != f.Buyer {
		return false
	}
	if f.Seller != "" && o.Seller != f.Seller {
		return false
	}
	return f.Buyer != "" || f.Seller != ""
}
