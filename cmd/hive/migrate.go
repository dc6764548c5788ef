package main

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/Tushar4059x/the-hive-project/config"
)

var errMigrateNeedsPostgres = errors.New("migrate requires --store=postgres")

func newMigrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the PostgreSQL schema migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := loadConfig(cmd, cmd.ErrOrStderr())
			if err != nil {
				return err
			}

			if cfg.Store != config.StorePostgres {
				return errMigrateNeedsPostgres
			}

			return config.Migrate(cmd.Context(), cfg, logger)
		},
	}
}
