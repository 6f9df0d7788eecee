package main

import (
	"context"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/JunaidIslam2105/escrow-p2p-git/services/api/internal/config"
	"github.com/JunaidIslam2105/escrow-p2p-git/services/api/internal/logging"
)

// cli is filled by the root command before any subcommand runs.
type cli struct {
	configPath string
	cfg        config.Config
	logger     zerolog.Logger
}

func newRootCommand(rt *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "api",
		Short:         "Escrow order service reconciled with an external ledger",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			envFile, envErr := config.LoadEnvFile()

			cfg, err := config.Load(rt.configPath)
			if err != nil {
				return err
			}
			logger, err := logging.New(cfg.Log.Format, cfg.Log.Level, os.Stdout)
			if err != nil {
				return err
			}
			rt.cfg = cfg
			rt.logger = logger.With().Str("service", "escrow-api").Logger()

			switch {
			case envErr != nil:
				rt.logger.Warn().Err(envErr).Msg("failed to load .env")
			case envFile != "":
				rt.logger.Debug().Str("path", envFile).Msg("loaded env file")
			}
			return nil
		},
	}
	cmd.PersistentFlags().StringVar(&rt.configPath, "config", "", "config file (yaml, toml or json)")

	cmd.AddCommand(
		newServeCommand(rt),
		newMigrateCommand(rt),
		newUsersCommand(rt),
	)
	return cmd
}

func main() {
	rt := &cli{logger: zerolog.New(os.Stderr)}
	if err := newRootCommand(rt).ExecuteContext(context.Background()); err != nil {
		rt.logger.Error().Err(err).Msg("command failed")
		os.Exit(1)
	}
}
