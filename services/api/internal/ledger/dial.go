package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/rs/zerolog"
	rpchttp "github.com/tendermint/tendermint/rpc/client/http"
)

const (
	defaultProbeTimeout = 10 * time.Second
	maxProbeInterval    = 2 * time.Second
)

type Config struct {
	Endpoint      string
	Contract      string
	SignerKey     string
	SubmitTimeout time.Duration
	ProbeTimeout  time.Duration
}

// Dial returns a Remote client when the ledger is fully configured and
// answers a status probe, and a Local client otherwise. It never fails:
// the reason for degrading is logged and reported by Mode.
func Dial(ctx context.Context, cfg Config, logger zerolog.Logger) Client {
	return dial(ctx, cfg, logger, func(endpoint string) (broadcaster, error) {
		return rpchttp.New(endpoint)
	})
}

func dial(ctx context.Context, cfg Config, logger zerolog.Logger, connect func(string) (broadcaster, error)) Client {
	degrade := func(reason string) Client {
		logger.Warn().Str("reason", reason).Msg("ledger disabled, using local order ids")
		return NewLocal(reason)
	}

	switch {
	case cfg.Endpoint == "":
		return degrade("ledger endpoint not configured")
	case cfg.Contract == "":
		return degrade("escrow contract address not configured")
	case cfg.SignerKey == "":
		return degrade("signer key not configured")
	}

	key, err := ParsePrivKey(cfg.SignerKey)
	if err != nil {
		return degrade(fmt.Sprintf("invalid signer key: %v", err))
	}

	client, err := connect(cfg.Endpoint)
	if err != nil {
		return degrade(fmt.Sprintf("connect %s: %v", cfg.Endpoint, err))
	}

	if err := probe(ctx, client, cfg.ProbeTimeout); err != nil {
		return degrade(fmt.Sprintf("probe %s: %v", cfg.Endpoint, err))
	}

	logger.Info().
		Str("endpoint", cfg.Endpoint).
		Str("contract", cfg.Contract).
		Msg("ledger enabled")
	return NewRemote(NewTendermintSubmitter(client, cfg.Contract, key), cfg.SubmitTimeout)
}

func probe(ctx context.Context, client broadcaster, timeout time.Duration) error {
	if timeout <= 0 {
		timeout = defaultProbeTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	backoffCfg := backoff.NewExponentialBackOff()
	backoffCfg.MaxInterval = maxProbeInterval

	for {
		_, err := client.Status(ctx)
		if err == nil {
			return nil
		}
		sleep := backoffCfg.NextBackOff()
		if sleep == backoff.Stop {
			return err
		}
		select {
		case <-ctx.Done():
			return err
		case <-time.After(sleep):
		}
	}
}
