package app

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/JunaidIslam2105/escrow-p2p-git/services/api/internal/domain"
	"github.com/JunaidIslam2105/escrow-p2p-git/services/api/internal/ledger"
	"github.com/JunaidIslam2105/escrow-p2p-git/services/api/internal/metrics"
)

// EventPublisher receives committed order changes. Publishing is best
// effort: a failure is logged and never undoes the commit.
type EventPublisher interface {
	Publish(ctx context.Context, event domain.Event) error
}

type options struct {
	publisher EventPublisher
	metrics   *metrics.Metrics
	logger    zerolog.Logger
}

type Option func(*options)

func WithPublisher(p EventPublisher) Option {
	return func(o *options) {
		if p != nil {
			o.publisher = p
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(o *options) {
		if m != nil {
			o.metrics = m
		}
	}
}

func WithLogger(l zerolog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

func newOptions(opts []Option) options {
	o := options{
		metrics: metrics.NopMetrics(),
		logger:  zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func (o options) publish(ctx context.Context, event domain.Event) {
	if o.publisher == nil {
		return
	}
	if event.ID == "" {
		event.ID = newID()
	}
	if err := o.publisher.Publish(context.WithoutCancel(ctx), event); err != nil {
		o.metrics.PublishFailures.Add(1)
		o.logger.Warn().Err(err).
			Str("order_id", event.OrderID).
			Str("event", string(event.Type)).
			Msg("publish order event")
	}
}

func (o options) observe(operation string, err error) {
	o.metrics.Transitions.With("transition", operation, "outcome", outcome(err)).Add(1)
}

func (o options) timeLedger(op ledger.Op) func() {
	start := time.Now()
	return func() {
		o.metrics.LedgerSubmitSeconds.With("op", string(op)).Observe(time.Since(start).Seconds())
	}
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, domain.ErrNotFound):
		return "not_found"
	case errors.Is(err, domain.ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, domain.ErrInvalidStateTransition):
		return "invalid_transition"
	case errors.Is(err, domain.ErrConcurrentModification):
		return "conflict"
	case errors.Is(err, domain.ErrLedgerOperationFailed):
		return "ledger_failed"
	case errors.Is(err, domain.ErrValidation), errors.Is(err, domain.ErrSellerNotFound):
		return "invalid"
	default:
		return "error"
	}
}
