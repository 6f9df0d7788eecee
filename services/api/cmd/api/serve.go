package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sourcegraph/conc"
	"github.com/spf13/cobra"

	"github.com/JunaidIslam2105/escrow-p2p-git/services/api/internal/app"
	"github.com/JunaidIslam2105/escrow-p2p-git/services/api/internal/clock"
	"github.com/JunaidIslam2105/escrow-p2p-git/services/api/internal/config"
	"github.com/JunaidIslam2105/escrow-p2p-git/services/api/internal/events"
	"github.com/JunaidIslam2105/escrow-p2p-git/services/api/internal/ledger"
	"github.com/JunaidIslam2105/escrow-p2p-git/services/api/internal/metrics"
	"github.com/JunaidIslam2105/escrow-p2p-git/services/api/internal/rates"
	transporthttp "github.com/JunaidIslam2105/escrow-p2p-git/services/api/internal/transport/http"
)

const (
	metricsNamespace  = "escrow"
	readHeaderTimeout = 10 * time.Second
)

func newServeCommand(rt *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, rt)
		},
	}
}

type publisher interface {
	app.EventPublisher
	Close() error
}

func serve(ctx context.Context, rt *cli) error {
	cfg, logger := rt.cfg, rt.logger

	st, err := openStores(ctx, cfg.Storage, logger.With().Str("component", "storage").Logger())
	if err != nil {
		return err
	}
	defer st.close()

	ledgerClient := ledger.Dial(ctx, ledger.Config{
		Endpoint:      cfg.Ledger.Endpoint,
		Contract:      cfg.Ledger.Contract,
		SignerKey:     cfg.Ledger.SignerKey,
		SubmitTimeout: cfg.Ledger.SubmitTimeout,
		ProbeTimeout:  cfg.Ledger.ProbeTimeout,
	}, logger.With().Str("component", "ledger").Logger())

	rateProvider, err := newRateProvider(cfg.Rates)
	if err != nil {
		return err
	}

	pub, err := newPublisher(cfg.Events)
	if err != nil {
		return err
	}
	defer func() {
		if err := pub.Close(); err != nil {
			logger.Warn().Err(err).Msg("close event publisher")
		}
	}()

	opts := []app.Option{
		app.WithPublisher(pub),
		app.WithMetrics(metrics.PrometheusMetrics(metricsNamespace)),
		app.WithLogger(logger.With().Str("component", "orders").Logger()),
	}
	clk := clock.NewSystem()
	orders := app.NewOrderService(st.orders, st.users, ledgerClient, rateProvider, clk, opts...)
	admin := app.NewAdminService(st.orders, st.users, st.audit, clk, opts...)

	handler := transporthttp.NewRouter(transporthttp.RouterConfig{
		Orders:      orders,
		Admin:       admin,
		CORSOrigins: cfg.HTTP.CORSOrigins,
		RateLimiter: transporthttp.NewRateLimiter(cfg.HTTP.RateLimitRPS, cfg.HTTP.RateLimitBurst),
		Logger:      logger.With().Str("component", "http").Logger(),
		Metrics:     transporthttp.MetricsHandler(),
	})
	server := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           handler,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	var lifecycle conc.WaitGroup
	srvErr := make(chan error, 1)
	lifecycle.Go(func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			srvErr <- err
		}
	})
	logger.Info().
		Str("addr", cfg.HTTP.Addr).
		Str("storage", cfg.Storage.Driver).
		Bool("ledger", ledgerClient.Mode().Enabled).
		Msg("api listening")

	var runErr error
	select {
	case runErr = <-srvErr:
		logger.Error().Err(runErr).Msg("server error")
	case <-ctx.Done():
		logger.Info().Msg("shutdown signal received, stopping server")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error().Err(err).Msg("server shutdown")
	}
	lifecycle.Wait()
	logger.Info().Msg("server stopped")
	return runErr
}

func newRateProvider(cfg config.RatesConfig) (rates.Provider, error) {
	if cfg.Source == config.RatesSourceHTTP {
		return rates.NewHTTP(cfg.URL, cfg.Timeout), nil
	}
	rate, err := decimal.NewFromString(cfg.Static)
	if err != nil {
		return nil, fmt.Errorf("rates.static: %w", err)
	}
	return rates.NewStatic(rate)
}

func newPublisher(cfg config.EventsConfig) (publisher, error) {
	if cfg.Brokers == "" {
		return events.Nop{}, nil
	}
	return events.NewKafkaPublisher(cfg.Brokers, cfg.Topic)
}
