// Package pebblestore is an embedded record store for single-node
// deployments. Values are JSON documents keyed by kind and id.
package pebblestore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/cockroachdb/pebble"
	"github.com/goccy/go-json"
	"github.com/shopspring/decimal"

	"github.com/JunaidIslam2105/escrow-p2p-git/services/api/internal/domain"
)

var (
	orderPrefix = []byte("order/")
	userPrefix  = []byte("user/")
	auditPrefix = []byte("audit/")
)

type batchKey struct{}

// Store implements the order, user and audit stores on Pebble. Writes are
// serialized by a store mutex; WithTx holds it for the whole callback and
// commits one indexed batch.
type Store struct {
	db *pebble.DB
	mu sync.Mutex
}

func Open(dir string) (*Store, error) {
	db, err := pebble.Open(filepath.Clean(dir), &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("pebble open: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := s.batchFromContext(ctx); ok {
		return fn(ctx)
	}
	return s.update(ctx, func(b *pebble.Batch) error {
		return fn(context.WithValue(ctx, batchKey{}, b))
	})
}

func (s *Store) batchFromContext(ctx context.Context) (*pebble.Batch, bool) {
	b, ok := ctx.Value(batchKey{}).(*pebble.Batch)
	return b, ok
}

// update runs fn against the ambient batch, or against a fresh indexed batch
// committed when fn succeeds.
func (s *Store) update(ctx context.Context, fn func(b *pebble.Batch) error) error {
	if b, ok := s.batchFromContext(ctx); ok {
		return fn(b)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	b := s.db.NewIndexedBatch()
	defer b.Close()
	if err := fn(b); err != nil {
		return err
	}
	if err := b.Commit(pebble.Sync); err != nil {
		return fmt.Errorf("pebble commit: %w", err)
	}
	return nil
}

// reader is satisfied by both *pebble.DB and an indexed *pebble.Batch.
type reader interface {
	Get(key []byte) ([]byte, io.Closer, error)
	NewIter(o *pebble.IterOptions) (*pebble.Iterator, error)
}

func (s *Store) reader(ctx context.Context) reader {
	if b, ok := s.batchFromContext(ctx); ok {
		return b
	}
	return s.db
}

func getJSON(r reader, key []byte, dst any) (bool, error) {
	v, closer, err := r.Get(key)
	if errors.Is(err, pebble.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	defer closer.Close()
	if err := json.Unmarshal(v, dst); err != nil {
		return false, fmt.Errorf("decode %s: %w", key, err)
	}
	return true, nil
}

func setJSON(b *pebble.Batch, key []byte, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return b.Set(key, raw, nil)
}

func scan(r reader, prefix []byte, fn func(value []byte) error) error {
	it, err := r.NewIter(&pebble.IterOptions{LowerBound: prefix, UpperBound: prefixEnd(prefix)})
	if err != nil {
		return err
	}
	defer it.Close()
	for it.First(); it.Valid(); it.Next() {
		if err := fn(append([]byte(nil), it.Value()...)); err != nil {
			return err
		}
	}
	return it.Error()
}

func prefixEnd(prefix []byte) []byte {
	end := append([]byte(nil), prefix...)
	for i := len(end) - 1; i >= 0; i-- {
		end[i]++
		if end[i] != 0 {
			return end[:i+1]
		}
	}
	return nil
}

func key(prefix []byte, parts ...string) []byte {
	k := append([]byte(nil), prefix...)
	for i, p := range parts {
		if i > 0 {
			k = append(k, '/')
		}
		k = append(k, p...)
	}
	return k
}

type orderRecord struct {
	ID               string          `json:"id"`
	Buyer            string          `json:"buyer"`
	Seller           string          `json:"seller"`
	Status           domain.Status   `json:"status"`
	Details          string          `json:"details"`
	FiatAmount       decimal.Decimal `json:"fiat_amount"`
	SettlementAmount decimal.Decimal `json:"settlement_amount"`
	ExchangeRate     decimal.Decimal `json:"exchange_rate"`
	FundedAmount     decimal.Decimal `json:"funded_amount"`
	LedgerTxRef      string          `json:"ledger_tx_ref,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
	CompletedAt      *time.Time      `json:"completed_at,omitempty"`
}

func toRecord(o domain.Order) orderRecord {
	return orderRecord(o)
}

func (r orderRecord) order() domain.Order {
	return domain.Order(r)
}

func (s *Store) CreateOrder(ctx context.Context, order domain.Order) error {
	return s.update(ctx, func(b *pebble.Batch) error {
		k := key(orderPrefix, order.ID)
		var existing orderRecord
		found, err := getJSON(b, k, &existing)
		if err != nil {
			return fmt.Errorf("create order: %w", err)
		}
		if found {
			return fmt.Errorf("%w: %s", domain.ErrDuplicateOrder, order.ID)
		}
		return setJSON(b, k, toRecord(order))
	})
}

func (s *Store) GetOrder(ctx context.Context, id string) (domain.Order, error) {
	var rec orderRecord
	found, err := getJSON(s.reader(ctx), key(orderPrefix, id), &rec)
	if err != nil {
		return domain.Order{}, fmt.Errorf("get order: %w", err)
	}
	if !found {
		return domain.Order{}, domain.ErrNotFound
	}
	return rec.order(), nil
}

func (s *Store) CommitOrder(ctx context.Context, u domain.OrderUpdate) (domain.Order, error) {
	var out domain.Order
	err := s.update(ctx, func(b *pebble.Batch) error {
		k := key(orderPrefix, u.ID)
		var rec orderRecord
		found, err := getJSON(b, k, &rec)
		if err != nil {
			return fmt.Errorf("commit order: %w", err)
		}
		if !found {
			return domain.ErrNotFound
		}
		if rec.Status != u.ExpectedStatus {
			return fmt.Errorf("%w: order %s is no longer %s", domain.ErrConcurrentModification, u.ID, u.ExpectedStatus)
		}
		out = rec.order().Apply(u)
		return setJSON(b, k, toRecord(out))
	})
	if err != nil {
		return domain.Order{}, err
	}
	return out, nil
}

func (s *Store) ListOrders(ctx context.Context, filter domain.OrderFilter) ([]domain.Order, error) {
	var orders []domain.Order
	err := scan(s.reader(ctx), orderPrefix, func(v []byte) error {
		var rec orderRecord
		if err := json.Unmarshal(v, &rec); err != nil {
			return fmt.Errorf("decode order: %w", err)
		}
		if o := rec.order(); filter.Matches(o) {
			orders = append(orders, o)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}

	sort.Slice(orders, func(i, j int) bool {
		if !orders[i].CreatedAt.Equal(orders[j].CreatedAt) {
			return orders[i].CreatedAt.After(orders[j].CreatedAt)
		}
		return orders[i].ID > orders[j].ID
	})
	if filter.Limit > 0 && len(orders) > filter.Limit {
		orders = orders[:filter.Limit]
	}
	return orders, nil
}

type userRecord struct {
	ID            string            `json:"id"`
	Role          domain.Role       `json:"role"`
	PayoutDetails map[string]string `json:"payout_details,omitempty"`
}

func (s *Store) GetUser(ctx context.Context, id string) (domain.User, error) {
	var rec userRecord
	found, err := getJSON(s.reader(ctx), key(userPrefix, id), &rec)
	if err != nil {
		return domain.User{}, fmt.Errorf("get user: %w", err)
	}
	if !found {
		return domain.User{}, domain.ErrUserNotFound
	}
	return domain.User(rec), nil
}

func (s *Store) PutUser(ctx context.Context, user domain.User) error {
	return s.update(ctx, func(b *pebble.Batch) error {
		return setJSON(b, key(userPrefix, user.ID), userRecord(user))
	})
}

type auditRecord struct {
	ID         string        `json:"id"`
	OrderID    string        `json:"order_id"`
	ActorID    string        `json:"actor_id"`
	Action     string        `json:"action"`
	From       domain.Status `json:"from"`
	To         domain.Status `json:"to"`
	RecordedAt time.Time     `json:"recorded_at"`
}

// RecordAudit appends an entry under the order's audit prefix. Entry ids are
// UUIDv7, so keys sort in recording order.
func (s *Store) RecordAudit(ctx context.Context, entry domain.AuditEntry) error {
	return s.update(ctx, func(b *pebble.Batch) error {
		var rec orderRecord
		found, err := getJSON(b, key(orderPrefix, entry.OrderID), &rec)
		if err != nil {
			return fmt.Errorf("record audit: %w", err)
		}
		if !found {
			return domain.ErrNotFound
		}
		return setJSON(b, key(auditPrefix, entry.OrderID, entry.ID), auditRecord(entry))
	})
}

func (s *Store) ListAudit(ctx context.Context, orderID string) ([]domain.AuditEntry, error) {
	var entries []domain.AuditEntry
	prefix := append(key(auditPrefix, orderID), '/')
	err := scan(s.reader(ctx), prefix, func(v []byte) error {
		var rec auditRecord
		if err := json.Unmarshal(v, &rec); err != nil {
			return fmt.Errorf("decode audit: %w", err)
		}
		entries = append(entries, domain.AuditEntry(rec))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list audit: %w", err)
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].RecordedAt.Before(entries[j].RecordedAt)
	})
	return entries, nil
}
