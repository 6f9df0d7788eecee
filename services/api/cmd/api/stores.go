package main

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/JunaidIslam2105/escrow-p2p-git/services/api/internal/app"
	"github.com/JunaidIslam2105/escrow-p2p-git/services/api/internal/config"
	"github.com/JunaidIslam2105/escrow-p2p-git/services/api/internal/storage/pebblestore"
	"github.com/JunaidIslam2105/escrow-p2p-git/services/api/internal/storage/postgres"
	"github.com/JunaidIslam2105/escrow-p2p-git/services/api/migrations"
)

const dbStartupTimeout = 30 * time.Second

type stores struct {
	orders app.OrderRepository
	users  app.UserDirectory
	audit  app.Auditor
	close  func()
}

// openStores connects the configured backend. Postgres migrations are applied
// before the repositories are returned.
func openStores(ctx context.Context, cfg config.StorageConfig, logger zerolog.Logger) (*stores, error) {
	switch cfg.Driver {
	case config.StorageDriverPebble:
		st, err := pebblestore.Open(cfg.PebbleDir)
		if err != nil {
			return nil, err
		}
		logger.Info().Str("dir", cfg.PebbleDir).Msg("using pebble store")
		return &stores{
			orders: st,
			users:  st,
			audit:  st,
			close: func() {
				if err := st.Close(); err != nil {
					logger.Warn().Err(err).Msg("close pebble store")
				}
			},
		}, nil
	default:
		pool, err := connectPostgres(ctx, cfg, logger)
		if err != nil {
			return nil, err
		}
		if err := migrations.Apply(ctx, cfg.DSN, logger); err != nil {
			pool.Close()
			return nil, err
		}
		return &stores{
			orders: postgres.NewOrderRepository(pool),
			users:  postgres.NewUserRepository(pool),
			audit:  postgres.NewAuditRepository(pool),
			close:  pool.Close,
		}, nil
	}
}

// connectPostgres waits for the database to answer, retrying with
// exponential backoff until dbStartupTimeout.
func connectPostgres(ctx context.Context, cfg config.StorageConfig, logger zerolog.Logger) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}

	ctx, cancel := context.WithTimeout(ctx, dbStartupTimeout)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect to db: %w", err)
	}

	b := backoff.NewExponentialBackOff()
	for {
		err := pool.Ping(ctx)
		if err == nil {
			logger.Info().Int32("max_conns", poolCfg.MaxConns).Msg("connected to postgres")
			return pool, nil
		}
		sleep := b.NextBackOff()
		if sleep == backoff.Stop {
			pool.Close()
			return nil, fmt.Errorf("db ping: %w", err)
		}
		logger.Warn().Err(err).Dur("retry_in", sleep).Msg("postgres not ready")
		select {
		case <-ctx.Done():
			pool.Close()
			return nil, fmt.Errorf("db ping: %w", err)
		case <-time.After(sleep):
		}
	}
}
