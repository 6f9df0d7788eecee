package metrics

import (
	"testing"

	stdprometheus "github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

func TestPrometheusMetrics_Registered(t *testing.T) {
	m := PrometheusMetrics("escrow_test")
	m.Transitions.With("transition", "fund", "outcome", "ok").Add(1)
	m.LedgerSubmitSeconds.With("op", "fund_order").Observe(0.2)
	m.LedgerEnabled.Set(1)

	families, err := stdprometheus.DefaultGatherer.Gather()
	require.NoError(t, err)

	names := map[string]bool{}
	for _, f := range families {
		names[f.GetName()] = true
	}
	require.True(t, names["escrow_test_orders_transitions_total"])
	require.True(t, names["escrow_test_orders_ledger_submit_seconds"])
	require.True(t, names["escrow_test_orders_ledger_enabled"])
}

func TestNopMetrics(t *testing.T) {
	m := NopMetrics()
	m.Transitions.With("transition", "fund", "outcome", "ok").Add(1)
	m.LedgerSubmitSeconds.Observe(1)
	m.LedgerEnabled.Set(0)
	m.PublishFailures.Add(1)
}
