package http

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// OrderAPI is everything the order routes need from the engine.
type OrderAPI interface {
	OrderCollectionService
	OrderResourceService
	LedgerModeReporter
}

type RouterConfig struct {
	Orders      OrderAPI
	Admin       StatusForcer
	CORSOrigins []string
	RateLimiter *RateLimiter
	Logger      zerolog.Logger
	// Metrics serves /metrics when set.
	Metrics http.Handler
}

// NewRouter wires the routes and the middleware chain: request logging,
// CORS, actor resolution, then per-actor rate limiting.
func NewRouter(cfg RouterConfig) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/health", HandleHealth(cfg.Orders))
	if cfg.Metrics != nil {
		mux.Handle("/metrics", cfg.Metrics)
	}
	mux.Handle("/ledger", HandleLedgerMode(cfg.Orders))
	mux.Handle("/orders", RateLimit(cfg.RateLimiter, HandleOrders(cfg.Orders)))
	mux.Handle("/orders/", RateLimit(cfg.RateLimiter, HandleOrder(cfg.Orders, cfg.Admin)))
	mux.Handle("/", NotFound())

	return RequestLogger(CORS(cfg.CORSOrigins, WithActor(mux)), cfg.Logger)
}

// MetricsHandler exposes the default Prometheus registry.
func MetricsHandler() http.Handler {
	return promhttp.Handler()
}
