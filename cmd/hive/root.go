package main

import (
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/Tushar4059x/the-hive-project/config"
)

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "hive",
		Short: "The Hive agent event feed",
		Long: `The Hive stores status events posted by autonomous agents, replays recent
history to every new subscriber and streams live events as NDJSON.

Every flag can also be set as a HIVE_ environment variable, in .env,
or in a YAML config file (./.hive.yaml or --config).`,
		SilenceUsage: true,
		Version:      version,
	}

	config.BindFlags(root.PersistentFlags())

	root.AddCommand(
		newServeCommand(),
		newSimulateCommand(),
		newMigrateCommand(),
	)

	return root
}

// loadConfig resolves and validates the configuration and builds the process logger writing to w.
func loadConfig(cmd *cobra.Command, w io.Writer) (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(cmd.Flags())
	if err != nil {
		return nil, nil, err
	}

	if err = cfg.Validate(); err != nil {
		return nil, nil, err
	}

	logger, err := cfg.NewLogger(w)
	if err != nil {
		return nil, nil, err
	}

	if cfg.ConfigFile != "" {
		logger.Debug("hive: using config file", "path", cfg.ConfigFile)
	}

	return cfg, logger, nil
}
