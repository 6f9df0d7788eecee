package app

import (
	"context"
	"fmt"

	"github.com/JunaidIslam2105/escrow-p2p-git/services/api/internal/authz"
	"github.com/JunaidIslam2105/escrow-p2p-git/services/api/internal/domain"
	"github.com/JunaidIslam2105/escrow-p2p-git/services/api/internal/ledger"
)

func (s *OrderService) Fund(ctx context.Context, actor *domain.Actor, orderID string) (domain.Order, error) {
	return s.Transition(ctx, actor, orderID, domain.TransitionFund)
}

func (s *OrderService) Start(ctx context.Context, actor *domain.Actor, orderID string) (domain.Order, error) {
	return s.Transition(ctx, actor, orderID, domain.TransitionStart)
}

func (s *OrderService) Complete(ctx context.Context, actor *domain.Actor, orderID string) (domain.Order, error) {
	return s.Transition(ctx, actor, orderID, domain.TransitionComplete)
}

func (s *OrderService) Dispute(ctx context.Context, actor *domain.Actor, orderID string) (domain.Order, error) {
	return s.Transition(ctx, actor, orderID, domain.TransitionDispute)
}

func (s *OrderService) Refund(ctx context.Context, actor *domain.Actor, orderID string) (domain.Order, error) {
	return s.Transition(ctx, actor, orderID, domain.TransitionRefund)
}

// Transition runs t on the order: load, authorize, check the source status,
// call the ledger, then commit with a compare-and-swap on the status that was
// loaded. A second transition on the same order while one is in flight in
// this process fails immediately with ErrConcurrentModification.
func (s *OrderService) Transition(ctx context.Context, actor *domain.Actor, orderID string, t domain.Transition) (order domain.Order, err error) {
	defer func() { s.observe(string(t), err) }()

	if orderID == "" {
		return domain.Order{}, &domain.ValidationError{Field: "orderId", Reason: "is required"}
	}
	if !s.inflight.acquire(orderID) {
		return domain.Order{}, fmt.Errorf("%w: another transition on order %s is in progress", domain.ErrConcurrentModification, orderID)
	}
	defer s.inflight.release(orderID)

	current, err := s.repo.GetOrder(ctx, orderID)
	if err != nil {
		return domain.Order{}, err
	}
	if !authz.Allow(actor, current, t.Relation()) {
		return domain.Order{}, domain.ErrUnauthorized
	}
	next, err := t.Next(current.Status)
	if err != nil {
		return domain.Order{}, err
	}

	rcpt, err := s.callLedger(ctx, t, current)
	if err != nil {
		s.logger.Warn().Err(err).
			Str("order_id", orderID).
			Str("transition", string(t)).
			Msg("ledger call failed, order unchanged")
		return domain.Order{}, err
	}

	now := s.clock.Now()
	update := domain.OrderUpdate{
		ID:             current.ID,
		ExpectedStatus: current.Status,
		Status:         next,
		LedgerTxRef:    rcpt.TxRef,
		UpdatedAt:      now,
	}
	switch t {
	case domain.TransitionFund:
		amount := current.SettlementAmount
		update.FundedAmount = &amount
	case domain.TransitionComplete:
		update.CompletedAt = &now
	}

	order, err = s.repo.CommitOrder(ctx, update)
	if err != nil {
		if rcpt.TxRef != "" {
			s.logger.Error().Err(err).
				Str("order_id", orderID).
				Str("transition", string(t)).
				Str("tx_ref", rcpt.TxRef).
				Msg("ledger confirmed but commit failed")
		}
		return domain.Order{}, err
	}

	s.logger.Info().
		Str("order_id", order.ID).
		Str("transition", string(t)).
		Str("from", string(current.Status)).
		Str("to", string(order.Status)).
		Str("actor", actor.ID).
		Msg("order transitioned")
	s.publish(ctx, domain.Event{
		Type:        domain.EventTypeFor(t),
		OrderID:     order.ID,
		ActorID:     actor.ID,
		From:        current.Status,
		To:          order.Status,
		LedgerTxRef: rcpt.TxRef,
		OccurredAt:  now,
	})
	return order, nil
}

func (s *OrderService) callLedger(ctx context.Context, t domain.Transition, order domain.Order) (ledger.Receipt, error) {
	var (
		rcpt ledger.Receipt
		err  error
	)
	if t == domain.TransitionFund {
		defer s.timeLedger(ledger.OpFundOrder)()
		rcpt, err = s.ledger.FundOrder(ctx, order.ID, order.SettlementAmount)
	} else {
		action := ledger.Action(t)
		defer s.timeLedger(action.Op())()
		rcpt, err = s.ledger.AdvanceOrder(ctx, order.ID, action)
	}
	if err != nil {
		return ledger.Receipt{}, ledgerError(err)
	}
	return rcpt, nil
}
