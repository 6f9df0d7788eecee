package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/JunaidIslam2105/escrow-p2p-git/services/api/internal/authz"
	"github.com/JunaidIslam2105/escrow-p2p-git/services/api/internal/clock"
	"github.com/JunaidIslam2105/escrow-p2p-git/services/api/internal/domain"
)

// Auditor persists administrative overrides. RecordAudit joins the store
// transaction carried by ctx.
type Auditor interface {
	RecordAudit(ctx context.Context, entry domain.AuditEntry) error
}

type AdminService struct {
	options
	orders OrderRepository
	users  UserDirectory
	audit  Auditor
	clock  clock.Clock
}

func NewAdminService(orders OrderRepository, users UserDirectory, audit Auditor, clk clock.Clock, opts ...Option) *AdminService {
	return &AdminService{
		options: newOptions(opts),
		orders:  orders,
		users:   users,
		audit:   audit,
		clock:   clk,
	}
}

// ForceStatus sets the order status directly, bypassing the transition
// table. Amounts and the ledger reference are never touched. The status
// change and its audit entry commit together or not at all.
func (s *AdminService) ForceStatus(ctx context.Context, actor *domain.Actor, orderID string, status domain.Status) (order domain.Order, err error) {
	defer func() { s.observe("force_status", err) }()

	if !authz.Allow(actor, domain.Order{}, domain.RelationIsAdmin) {
		return domain.Order{}, domain.ErrUnauthorized
	}
	if orderID == "" {
		return domain.Order{}, &domain.ValidationError{Field: "orderId", Reason: "is required"}
	}
	if !status.Valid() {
		return domain.Order{}, &domain.ValidationError{Field: "status", Reason: fmt.Sprintf("unknown status %q", status)}
	}

	now := s.clock.Now()
	var previous domain.Status

	err = s.orders.WithTx(ctx, func(txCtx context.Context) error {
		current, err := s.orders.GetOrder(txCtx, orderID)
		if err != nil {
			return err
		}
		previous = current.Status

		update := domain.OrderUpdate{
			ID:             current.ID,
			ExpectedStatus: current.Status,
			Status:         status,
			UpdatedAt:      now,
		}
		if status == domain.StatusCompleted && current.CompletedAt == nil {
			update.CompletedAt = &now
		}

		updated, err := s.orders.CommitOrder(txCtx, update)
		if err != nil {
			return err
		}
		if err := s.audit.RecordAudit(txCtx, domain.AuditEntry{
			ID:         newID(),
			OrderID:    current.ID,
			ActorID:    actor.ID,
			Action:     "force_status",
			From:       current.Status,
			To:         status,
			RecordedAt: now,
		}); err != nil {
			return fmt.Errorf("record audit: %w", err)
		}
		order = updated
		return nil
	})
	if err != nil {
		return domain.Order{}, err
	}

	s.logger.Warn().
		Bool("audit", true).
		Str("order_id", order.ID).
		Str("actor", actor.ID).
		Str("from", string(previous)).
		Str("to", string(order.Status)).
		Msg("order status forced by admin")
	s.publish(ctx, domain.Event{
		Type:        domain.EventOrderForced,
		OrderID:     order.ID,
		ActorID:     actor.ID,
		From:        previous,
		To:          order.Status,
		LedgerTxRef: order.LedgerTxRef,
		OccurredAt:  now,
	})
	return order, nil
}

type RegisterUserInput struct {
	ID            string
	Role          string
	PayoutDetails map[string]string
}

// RegisterUser creates or replaces a directory entry.
func (s *AdminService) RegisterUser(ctx context.Context, in RegisterUserInput) (domain.User, error) {
	id := strings.TrimSpace(in.ID)
	if id == "" {
		return domain.User{}, &domain.ValidationError{Field: "id", Reason: "is required"}
	}
	role, ok := domain.ParseRole(in.Role)
	if !ok {
		return domain.User{}, &domain.ValidationError{Field: "role", Reason: fmt.Sprintf("unknown role %q", in.Role)}
	}
	user := domain.User{ID: id, Role: role, PayoutDetails: in.PayoutDetails}
	if err := s.users.PutUser(ctx, user); err != nil {
		return domain.User{}, err
	}
	s.logger.Info().Str("user_id", id).Str("role", string(role)).Msg("user registered")
	return user, nil
}
