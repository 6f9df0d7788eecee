package main

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/JunaidIslam2105/escrow-p2p-git/services/api/internal/config"
	"github.com/JunaidIslam2105/escrow-p2p-git/services/api/migrations"
)

var errMigrationsNeedPostgres = errors.New("migrations apply to the postgres storage driver only")

func newMigrateCommand(rt *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			if rt.cfg.Storage.Driver != config.StorageDriverPostgres {
				return errMigrationsNeedPostgres
			}
			return migrations.Apply(cmd.Context(), rt.cfg.Storage.DSN, rt.logger)
		},
	}

	var steps int
	down := &cobra.Command{
		Use:   "down",
		Short: "Roll back the most recent migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			if rt.cfg.Storage.Driver != config.StorageDriverPostgres {
				return errMigrationsNeedPostgres
			}
			return migrations.Rollback(cmd.Context(), rt.cfg.Storage.DSN, steps, rt.logger)
		},
	}
	down.Flags().IntVar(&steps, "steps", 1, "number of migrations to roll back")
	cmd.AddCommand(down)
	return cmd
}
