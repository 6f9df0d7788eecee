package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/goccy/go-json"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JunaidIslam2105/escrow-p2p-git/services/api/internal/domain"
)

type UserRepository struct {
	pool *pgxpool.Pool
}

func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

func (r *UserRepository) GetUser(ctx context.Context, id string) (domain.User, error) {
	const query = `SELECT id, role, payout_details FROM users WHERE id = $1`

	var (
		u       domain.User
		role    string
		payload []byte
	)
	err := conn(ctx, r.pool).QueryRow(ctx, query, id).Scan(&u.ID, &role, &payload)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.User{}, domain.ErrUserNotFound
		}
		return domain.User{}, fmt.Errorf("get user: %w", err)
	}
	u.Role = domain.Role(role)
	if len(payload) > 0 {
		if err := json.Unmarshal(payload, &u.PayoutDetails); err != nil {
			return domain.User{}, fmt.Errorf("decode payout details: %w", err)
		}
	}
	return u, nil
}

// PutUser inserts the user or replaces its role and payout details.
func (r *UserRepository) PutUser(ctx context.Context, user domain.User) error {
	const stmt = `
INSERT INTO users (id, role, payout_details)
VALUES ($1, $2, $3::jsonb)
ON CONFLICT (id) DO UPDATE
SET role = EXCLUDED.role, payout_details = EXCLUDED.payout_details, updated_at = NOW()`

	details := user.PayoutDetails
	if details == nil {
		details = map[string]string{}
	}
	payload, err := json.Marshal(details)
	if err != nil {
		return fmt.Errorf("encode payout details: %w", err)
	}
	if _, err := conn(ctx, r.pool).Exec(ctx, stmt, user.ID, string(user.Role), string(payload)); err != nil {
		return fmt.Errorf("put user: %w", err)
	}
	return nil
}
