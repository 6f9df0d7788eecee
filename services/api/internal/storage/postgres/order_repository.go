package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/JunaidIslam2105/escrow-p2p-git/services/api/internal/domain"
)

const orderColumns = `id, buyer_id, seller_id, status, details,
	fiat_amount::text, settlement_amount::text, exchange_rate::text, funded_amount::text,
	ledger_tx_ref, created_at, updated_at, completed_at`

type OrderRepository struct {
	pool *pgxpool.Pool
}

func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

func (r *OrderRepository) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return withTx(ctx, r.pool, fn)
}

func (r *OrderRepository) CreateOrder(ctx context.Context, order domain.Order) error {
	const stmt = `
INSERT INTO orders (id, buyer_id, seller_id, status, details,
	fiat_amount, settlement_amount, exchange_rate, funded_amount,
	ledger_tx_ref, created_at, updated_at, completed_at)
VALUES ($1, $2, $3, $4, $5, $6::numeric, $7::numeric, $8::numeric, $9::numeric, $10, $11, $12, $13)`

	_, err := conn(ctx, r.pool).Exec(ctx, stmt,
		order.ID, order.Buyer, order.Seller, string(order.Status), order.Details,
		order.FiatAmount.String(), order.SettlementAmount.String(), order.ExchangeRate.String(), order.FundedAmount.String(),
		order.LedgerTxRef, order.CreatedAt, order.UpdatedAt, order.CompletedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %s", domain.ErrDuplicateOrder, order.ID)
		}
		return fmt.Errorf("create order: %w", err)
	}
	return nil
}

func (r *OrderRepository) GetOrder(ctx context.Context, id string) (domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`

	order, err := scanOrder(conn(ctx, r.pool).QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Order{}, domain.ErrNotFound
		}
		return domain.Order{}, fmt.Errorf("get order: %w", err)
	}
	return order, nil
}

// CommitOrder writes the update only while the row still has the expected
// status. COALESCE keeps the previous ledger reference and completion time
// when the update carries none.
func (r *OrderRepository) CommitOrder(ctx context.Context, u domain.OrderUpdate) (domain.Order, error) {
	query := `
UPDATE orders SET
	status = $3,
	ledger_tx_ref = COALESCE(NULLIF($4, ''), ledger_tx_ref),
	funded_amount = COALESCE($5::numeric, funded_amount),
	completed_at = COALESCE(completed_at, $6),
	updated_at = $7
WHERE id = $1 AND status = $2
RETURNING ` + orderColumns

	var funded *string
	if u.FundedAmount != nil {
		s := u.FundedAmount.String()
		funded = &s
	}

	order, err := scanOrder(conn(ctx, r.pool).QueryRow(ctx, query,
		u.ID, string(u.ExpectedStatus), string(u.Status), u.LedgerTxRef, funded, u.CompletedAt, u.UpdatedAt,
	))
	if err == nil {
		return order, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return domain.Order{}, fmt.Errorf("commit order: %w", err)
	}

	// No row matched: tell a missing order apart from a lost race.
	var exists bool
	if err := conn(ctx, r.pool).QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM orders WHERE id = $1)`, u.ID).Scan(&exists); err != nil {
		return domain.Order{}, fmt.Errorf("commit order: %w", err)
	}
	if !exists {
		return domain.Order{}, domain.ErrNotFound
	}
	return domain.Order{}, fmt.Errorf("%w: order %s is no longer %s", domain.ErrConcurrentModification, u.ID, u.ExpectedStatus)
}

func (r *OrderRepository) ListOrders(ctx context.Context, filter domain.OrderFilter) ([]domain.Order, error) {
	query := `SELECT ` + orderColumns + `
FROM orders
WHERE $1::boolean
	OR (($2::text = '' OR buyer_id = $2)
		AND ($3::text = '' OR seller_id = $3)
		AND ($2 <> '' OR $3 <> ''))
ORDER BY created_at DESC, id DESC
LIMIT NULLIF($4::int, 0)`

	rows, err := conn(ctx, r.pool).Query(ctx, query, filter.All, filter.Buyer, filter.Seller, filter.Limit)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	var orders []domain.Order
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		orders = append(orders, order)
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("iterate orders: %w", rows.Err())
	}
	return orders, nil
}

func scanOrder(row pgx.Row) (domain.Order, error) {
	var (
		o                              domain.Order
		status                         string
		fiat, settlement, rate, funded string
		createdAt, updatedAt           time.Time
		completedAt                    *time.Time
	)
	err := row.Scan(&o.ID, &o.Buyer, &o.Seller, &status, &o.Details,
		&fiat, &settlement, &rate, &funded,
		&o.LedgerTxRef, &createdAt, &updatedAt, &completedAt)
	if err != nil {
		return domain.Order{}, err
	}

	o.Status = domain.Status(status)
	o.CreatedAt = createdAt.UTC()
	o.UpdatedAt = updatedAt.UTC()
	if completedAt != nil {
		at := completedAt.UTC()
		o.CompletedAt = &at
	}
	for _, f := range []struct {
		dst *decimal.Decimal
		src string
	}{
		{&o.FiatAmount, fiat},
		{&o.SettlementAmount, settlement},
		{&o.ExchangeRate, rate},
		{&o.FundedAmount, funded},
	} {
		d, err := decimal.NewFromString(f.src)
		if err != nil {
			return domain.Order{}, fmt.Errorf("parse amount %q: %w", f.src, err)
		}
		*f.dst = d
	}
	return o, nil
}
