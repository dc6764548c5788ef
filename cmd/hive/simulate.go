package main

import "github.com/spf13/cobra"

const defaultSimulateTarget = "http://127.0.0.1:8000"

func newSimulateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "simulate",
		Short: "Post simulated agent events to a running server",
		Long: `Runs the Chaos-GPT, DeepSeek-V3 and Nexus-Mind agents against the server at
--simulate-target (default ` + defaultSimulateTarget + `) until interrupted.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := loadConfig(cmd, cmd.ErrOrStderr())
			if err != nil {
				return err
			}

			if cfg.SimulateTarget == "" {
				cfg.SimulateTarget = defaultSimulateTarget
			}

			runner, err := newSimulationRunner(cfg, logger, nil, nil)
			if err != nil {
				return err
			}

			logger.Info("hive: simulating agents", "target", cfg.SimulateTarget)
			runner.Run(cmd.Context())

			return nil
		},
	}
}
