package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JunaidIslam2105/escrow-p2p-git/services/api/internal/domain"
)

// AuditRepository stores administrative overrides in order_audit.
type AuditRepository struct {
	pool *pgxpool.Pool
}

func NewAuditRepository(pool *pgxpool.Pool) *AuditRepository {
	return &AuditRepository{pool: pool}
}

func (r *AuditRepository) RecordAudit(ctx context.Context, entry domain.AuditEntry) error {
	const stmt = `
INSERT INTO order_audit (id, order_id, actor_id, action, from_status, to_status, recorded_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := conn(ctx, r.pool).Exec(ctx, stmt,
		entry.ID, entry.OrderID, entry.ActorID, entry.Action, string(entry.From), string(entry.To), entry.RecordedAt)
	if err != nil {
		if isForeignKeyViolation(err) {
			return domain.ErrNotFound
		}
		return fmt.Errorf("record audit: %w", err)
	}
	return nil
}

func (r *AuditRepository) ListAudit(ctx context.Context, orderID string) ([]domain.AuditEntry, error) {
	const query = `
SELECT id, order_id, actor_id, action, from_status, to_status, recorded_at
FROM order_audit
WHERE order_id = $1
ORDER BY recorded_at ASC, id ASC`

	rows, err := conn(ctx, r.pool).Query(ctx, query, orderID)
	if err != nil {
		return nil, fmt.Errorf("list audit: %w", err)
	}
	defer rows.Close()

	var entries []domain.AuditEntry
	for rows.Next() {
		var (
			e        domain.AuditEntry
			from, to string
		)
		if err := rows.Scan(&e.ID, &e.OrderID, &e.ActorID, &e.Action, &from, &to, &e.RecordedAt); err != nil {
			return nil, fmt.Errorf("scan audit: %w", err)
		}
		e.From = domain.Status(from)
		e.To = domain.Status(to)
		e.RecordedAt = e.RecordedAt.UTC()
		entries = append(entries, e)
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("iterate audit: %w", rows.Err())
	}
	return entries, nil
}
