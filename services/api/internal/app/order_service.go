package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/JunaidIslam2105/escrow-p2p-git/services/api/internal/authz"
	"github.com/JunaidIslam2105/escrow-p2p-git/services/api/internal/clock"
	"github.com/JunaidIslam2105/escrow-p2p-git/services/api/internal/domain"
	"github.com/JunaidIslam2105/escrow-p2p-git/services/api/internal/ledger"
	"github.com/JunaidIslam2105/escrow-p2p-git/services/api/internal/rates"
)

const (
	defaultListLimit = 50
	maxListLimit     = 200
)

type OrderRepository interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
	CreateOrder(ctx context.Context, order domain.Order) error
	GetOrder(ctx context.Context, id string) (domain.Order, error)
	// CommitOrder applies u only if the stored status still equals
	// u.ExpectedStatus, and fails with ErrConcurrentModification otherwise.
	CommitOrder(ctx context.Context, u domain.OrderUpdate) (domain.Order, error)
	ListOrders(ctx context.Context, filter domain.OrderFilter) ([]domain.Order, error)
}

type UserDirectory interface {
	GetUser(ctx context.Context, id string) (domain.User, error)
	PutUser(ctx context.Context, user domain.User) error
}

// OrderService runs the escrow order lifecycle. The ledger call of a
// transition happens between the store read and the store commit, never
// inside a store transaction.
type OrderService struct {
	options
	repo     OrderRepository
	users    UserDirectory
	ledger   ledger.Client
	rates    rates.Provider
	clock    clock.Clock
	inflight *inflight
}

func NewOrderService(
	repo OrderRepository,
	users UserDirectory,
	ledgerClient ledger.Client,
	rateProvider rates.Provider,
	clk clock.Clock,
	opts ...Option,
) *OrderService {
	svc := &OrderService{
		options:  newOptions(opts),
		repo:     repo,
		users:    users,
		ledger:   ledgerClient,
		rates:    rateProvider,
		clock:    clk,
		inflight: newInflight(),
	}
	if ledgerClient.Mode().Enabled {
		svc.metrics.LedgerEnabled.Set(1)
	} else {
		svc.metrics.LedgerEnabled.Set(0)
	}
	return svc
}

// LedgerMode reports whether orders are written to the ledger.
func (s *OrderService) LedgerMode() ledger.Mode {
	return s.ledger.Mode()
}

type CreateOrderInput struct {
	SellerID   string
	Details    string
	FiatAmount decimal.Decimal
}

func (in CreateOrderInput) validate() error {
	if strings.TrimSpace(in.SellerID) == "" {
		return &domain.ValidationError{Field: "sellerId", Reason: "is required"}
	}
	if strings.TrimSpace(in.Details) == "" {
		return &domain.ValidationError{Field: "details", Reason: "is required"}
	}
	if !in.FiatAmount.IsPositive() {
		return &domain.ValidationError{Field: "fiatAmount", Reason: "must be positive"}
	}
	return nil
}

func (s *OrderService) CreateOrder(ctx context.Context, actor *domain.Actor, in CreateOrderInput) (order domain.Order, err error) {
	defer func() { s.observe("create", err) }()

	if err := in.validate(); err != nil {
		return domain.Order{}, err
	}
	if actor == nil || actor.ID == "" || actor.Role != domain.RoleBuyer {
		return domain.Order{}, domain.ErrUnauthorized
	}

	seller, err := s.users.GetUser(ctx, in.SellerID)
	if errors.Is(err, domain.ErrUserNotFound) {
		return domain.Order{}, domain.ErrSellerNotFound
	}
	if err != nil {
		return domain.Order{}, fmt.Errorf("lookup seller: %w", err)
	}
	if seller.Role != domain.RoleSeller {
		return domain.Order{}, domain.ErrSellerNotFound
	}

	rate, err := s.rates.Rate(ctx)
	if err != nil {
		return domain.Order{}, fmt.Errorf("exchange rate: %w", err)
	}

	created, err := s.createOnLedger(ctx, in.SellerID, in.Details)
	if err != nil {
		return domain.Order{}, err
	}

	order = domain.NewOrder(domain.NewOrderParams{
		ID:           created.OrderID,
		Buyer:        actor.ID,
		Seller:       in.SellerID,
		Details:      in.Details,
		FiatAmount:   in.FiatAmount,
		ExchangeRate: rate,
		LedgerTxRef:  created.TxRef,
		CreatedAt:    s.clock.Now(),
	})
	if err := s.repo.CreateOrder(ctx, order); err != nil {
		if created.TxRef != "" {
			s.logger.Error().Err(err).
				Str("order_id", order.ID).
				Str("tx_ref", created.TxRef).
				Msg("order created on ledger but not stored")
		}
		return domain.Order{}, err
	}

	s.logger.Info().
		Str("order_id", order.ID).
		Str("buyer", order.Buyer).
		Str("seller", order.Seller).
		Str("settlement_amount", order.SettlementAmount.String()).
		Bool("ledger", s.ledger.Mode().Enabled).
		Msg("order created")
	s.publish(ctx, domain.Event{
		Type:        domain.EventOrderCreated,
		OrderID:     order.ID,
		ActorID:     actor.ID,
		To:          order.Status,
		LedgerTxRef: order.LedgerTxRef,
		OccurredAt:  order.CreatedAt,
	})
	return order, nil
}

func (s *OrderService) createOnLedger(ctx context.Context, counterparty, details string) (ledger.CreateResult, error) {
	defer s.timeLedger(ledger.OpCreateOrder)()

	res, err := s.ledger.CreateOrder(ctx, counterparty, details)
	if err != nil {
		return ledger.CreateResult{}, ledgerError(err)
	}
	if res.OrderID == "" {
		return ledger.CreateResult{}, fmt.Errorf("%w: %w: empty order id", domain.ErrLedgerOperationFailed, domain.ErrLedgerEventMissing)
	}
	return res, nil
}

func (s *OrderService) GetOrder(ctx context.Context, actor *domain.Actor, id string) (domain.Order, error) {
	if id == "" {
		return domain.Order{}, &domain.ValidationError{Field: "orderId", Reason: "is required"}
	}
	order, err := s.repo.GetOrder(ctx, id)
	if err != nil {
		return domain.Order{}, err
	}
	if !authz.CanView(actor, order) {
		return domain.Order{}, domain.ErrUnauthorized
	}
	return order, nil
}

// ListOrders returns the orders visible to actor, newest first.
func (s *OrderService) ListOrders(ctx context.Context, actor *domain.Actor, limit int) ([]domain.Order, error) {
	filter, ok := authz.Scope(actor)
	if !ok {
		return nil, domain.ErrUnauthorized
	}
	switch {
	case limit <= 0:
		filter.Limit = defaultListLimit
	case limit > maxListLimit:
		filter.Limit = maxListLimit
	default:
		filter.Limit = limit
	}
	return s.repo.ListOrders(ctx, filter)
}

func ledgerError(err error) error {
	if errors.Is(err, domain.ErrLedgerOperationFailed) {
		return err
	}
	return fmt.Errorf("%w: %w", domain.ErrLedgerOperationFailed, err)
}
