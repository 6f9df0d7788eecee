package app

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/JunaidIslam2105/escrow-p2p-git/services/api/internal/domain"
	"github.com/JunaidIslam2105/escrow-p2p-git/services/api/internal/ledger"
)

type fakeOrderRepo struct {
	mu     sync.Mutex
	orders map[string]domain.Order

	commitErr error
	commits   int
}

func newFakeOrderRepo(orders ...domain.Order) *fakeOrderRepo {
	repo := &fakeOrderRepo{orders: make(map[string]domain.Order)}
	for _, o := range orders {
		repo.orders[o.ID] = o
	}
	return repo
}

// WithTx restores the previous orders when fn fails.
func (f *fakeOrderRepo) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	f.mu.Lock()
	snapshot := make(map[string]domain.Order, len(f.orders))
	for id, o := range f.orders {
		snapshot[id] = o
	}
	f.mu.Unlock()

	if err := fn(ctx); err != nil {
		f.mu.Lock()
		f.orders = snapshot
		f.mu.Unlock()
		return err
	}
	return nil
}

func (f *fakeOrderRepo) CreateOrder(_ context.Context, order domain.Order) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, exists := f.orders[order.ID]; exists {
		return domain.ErrDuplicateOrder
	}
	f.orders[order.ID] = order
	return nil
}

func (f *fakeOrderRepo) GetOrder(_ context.Context, id string) (domain.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	order, ok := f.orders[id]
	if !ok {
		return domain.Order{}, domain.ErrNotFound
	}
	return order, nil
}

func (f *fakeOrderRepo) CommitOrder(_ context.Context, u domain.OrderUpdate) (domain.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.commitErr != nil {
		return domain.Order{}, f.commitErr
	}
	order, ok := f.orders[u.ID]
	if !ok {
		return domain.Order{}, domain.ErrNotFound
	}
	if order.Status != u.ExpectedStatus {
		return domain.Order{}, domain.ErrConcurrentModification
	}
	order = order.Apply(u)
	f.orders[u.ID] = order
	f.commits++
	return order, nil
}

func (f *fakeOrderRepo) ListOrders(_ context.Context, filter domain.OrderFilter) ([]domain.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Order
	for _, o := range f.orders {
		if filter.Matches(o) {
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (f *fakeOrderRepo) get(id string) domain.Order {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.orders[id]
}

type fakeUsers struct {
	users map[string]domain.User
	err   error
}

func newFakeUsers(users ...domain.User) *fakeUsers {
	f := &fakeUsers{users: make(map[string]domain.User)}
	for _, u := range users {
		f.users[u.ID] = u
	}
	return f
}

func (f *fakeUsers) GetUser(_ context.Context, id string) (domain.User, error) {
	if f.err != nil {
		return domain.User{}, f.err
	}
	u, ok := f.users[id]
	if !ok {
		return domain.User{}, domain.ErrUserNotFound
	}
	return u, nil
}

func (f *fakeUsers) PutUser(_ context.Context, user domain.User) error {
	if f.err != nil {
		return f.err
	}
	f.users[user.ID] = user
	return nil
}

type fakeLedger struct {
	mu      sync.Mutex
	enabled bool
	calls   []string
	create  ledger.CreateResult
	txRef   string
	err     error

	// entered is signalled and release awaited on every fund call when set.
	entered chan struct{}
	release chan struct{}
}

func (f *fakeLedger) Mode() ledger.Mode {
	if f.enabled {
		return ledger.Mode{Enabled: true}
	}
	return ledger.Mode{Enabled: false, Reason: "test"}
}

func (f *fakeLedger) record(call string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
	return f.err
}

func (f *fakeLedger) CreateOrder(_ context.Context, counterparty, details string) (ledger.CreateResult, error) {
	if err := f.record("create"); err != nil {
		return ledger.CreateResult{}, err
	}
	return f.create, nil
}

func (f *fakeLedger) FundOrder(_ context.Context, orderID string, amount decimal.Decimal) (ledger.Receipt, error) {
	if f.entered != nil {
		f.entered <- struct{}{}
		<-f.release
	}
	if err := f.record("fund:" + amount.String()); err != nil {
		return ledger.Receipt{}, err
	}
	return ledger.Receipt{TxRef: f.txRef}, nil
}

func (f *fakeLedger) AdvanceOrder(_ context.Context, orderID string, action ledger.Action) (ledger.Receipt, error) {
	if err := f.record(string(action)); err != nil {
		return ledger.Receipt{}, err
	}
	return ledger.Receipt{TxRef: f.txRef}, nil
}

func (f *fakeLedger) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type fakeRates struct {
	rate  decimal.Decimal
	err   error
	calls int
}

func (f *fakeRates) Rate(context.Context) (decimal.Decimal, error) {
	f.calls++
	return f.rate, f.err
}

type fakeAuditor struct {
	entries []domain.AuditEntry
	err     error
}

func (f *fakeAuditor) RecordAudit(_ context.Context, entry domain.AuditEntry) error {
	if f.err != nil {
		return f.err
	}
	f.entries = append(f.entries, entry)
	return nil
}

type fakePublisher struct {
	mu     sync.Mutex
	events []domain.Event
	err    error
}

func (f *fakePublisher) Publish(_ context.Context, event domain.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.events = append(f.events, event)
	return nil
}

var errLedgerTimeout = errors.New("context deadline exceeded")
