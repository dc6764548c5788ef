package main

import (
	"context"
	"log/slog"
	"net"

	"github.com/spf13/cobra"

	"github.com/Tushar4059x/the-hive-project/broadcast"
	"github.com/Tushar4059x/the-hive-project/config"
	"github.com/Tushar4059x/the-hive-project/eventstore"
	"github.com/Tushar4059x/the-hive-project/feed"
	"github.com/Tushar4059x/the-hive-project/feed/httpapi"
	"github.com/Tushar4059x/the-hive-project/simulation"
)

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := loadConfig(cmd, cmd.ErrOrStderr())
			if err != nil {
				return err
			}

			lis, err := net.Listen("tcp", cfg.HTTPAddr)
			if err != nil {
				return err
			}

			return runServer(cmd.Context(), cfg, logger, lis)
		},
	}
}

// runServer serves the API on lis until ctx is done, with the simulator attached when enabled.
func runServer(ctx context.Context, cfg *config.Config, logger *slog.Logger, lis net.Listener) error {
	obs := config.StoreObservability{Logger: logger}

	var (
		metrics    eventstore.MetricsCollector
		httpTracer []httpapi.Option
	)

	if cfg.Observability {
		providers, err := config.NewObservabilityProviders(ctx, cfg.OTLPEndpoint, version)
		if err != nil {
			return err
		}

		defer func() {
			if shutdownErr := providers.Shutdown(); shutdownErr != nil {
				logger.Warn("hive: shutting down telemetry failed", "error", shutdownErr.Error())
			}
		}()

		obs = providers.StoreObservability()
		obs.Logger = logger
		metrics = obs.Metrics
		httpTracer = append(httpTracer, httpapi.WithTracerProvider(providers.TracerProvider))
	}

	store, closeStore, err := config.OpenEventStore(ctx, cfg, obs)
	if err != nil {
		return err
	}
	defer closeStore()

	hubOptions := []broadcast.Option{
		broadcast.WithBufferSize(cfg.SubscriberBuffer),
		broadcast.WithOverflowPolicy(cfg.OverflowPolicyValue()),
		broadcast.WithLogger(logger),
	}
	if metrics != nil {
		hubOptions = append(hubOptions, broadcast.WithMetrics(metrics))
	}

	hub, err := broadcast.NewHub(hubOptions...)
	if err != nil {
		return err
	}
	defer hub.Close()

	feedOptions := []feed.Option{
		feed.WithHistorySize(cfg.HistorySize),
		feed.WithLogger(logger),
	}
	if metrics != nil {
		feedOptions = append(feedOptions, feed.WithMetrics(metrics))
	}

	service, err := feed.NewService(store, hub, feedOptions...)
	if err != nil {
		return err
	}

	if cfg.Simulate {
		runner, runnerErr := newSimulationRunner(cfg, logger, metrics, service)
		if runnerErr != nil {
			return runnerErr
		}

		simCtx, stopSimulation := context.WithCancel(ctx)
		simDone := make(chan struct{})

		go func() {
			defer close(simDone)
			runner.Run(simCtx)
		}()

		defer func() {
			stopSimulation()
			<-simDone
		}()
	}

	server := httpapi.New(service, append(httpTracer,
		httpapi.WithLogger(logger),
		httpapi.WithAgentSecret(cfg.AgentSecret),
	)...)

	logger.Info("hive: serving",
		"addr", lis.Addr().String(),
		"store", cfg.Store,
		"history_size", service.HistorySize(),
		"overflow_policy", cfg.OverflowPolicy,
		"simulate", cfg.Simulate,
	)

	return server.Serve(ctx, lis)
}

// newSimulationRunner targets cfg.SimulateTarget when set, else service in-process.
func newSimulationRunner(
	cfg *config.Config,
	logger *slog.Logger,
	metrics eventstore.MetricsCollector,
	service *feed.Service,
) (*simulation.Runner, error) {
	var (
		ingester simulation.Ingester
		err      error
	)

	if cfg.SimulateTarget != "" {
		httpOptions := []simulation.HTTPIngesterOption{}
		if cfg.AgentSecret != "" {
			httpOptions = append(httpOptions, simulation.WithAgentAuth(cfg.AgentSecret))
		}

		ingester, err = simulation.NewHTTPIngester(cfg.SimulateTarget, httpOptions...)
	} else {
		ingester, err = simulation.NewServiceIngester(service)
	}

	if err != nil {
		return nil, err
	}

	options := []simulation.RunnerOption{
		simulation.WithInterval(cfg.SimulateMinInterval, cfg.SimulateMaxInterval),
		simulation.WithRunnerLogger(logger),
	}
	if metrics != nil {
		options = append(options, simulation.WithRunnerMetrics(metrics))
	}

	return simulation.NewRunner(ingester, options...)
}
