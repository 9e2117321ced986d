package main

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/akun1993/Open-Log-Stream-Analysis-sub001/config"
	"github.com/akun1993/Open-Log-Stream-Analysis-sub001/element"
	"github.com/akun1993/Open-Log-Stream-Analysis-sub001/elementregistry"
	"github.com/akun1993/Open-Log-Stream-Analysis-sub001/errors"
	"github.com/akun1993/Open-Log-Stream-Analysis-sub001/health"
	natsinput "github.com/akun1993/Open-Log-Stream-Analysis-sub001/input/nats"
	"github.com/akun1993/Open-Log-Stream-Analysis-sub001/metric"
	"github.com/akun1993/Open-Log-Stream-Analysis-sub001/natsclient"
	natsoutput "github.com/akun1993/Open-Log-Stream-Analysis-sub001/output/nats"
	"github.com/akun1993/Open-Log-Stream-Analysis-sub001/pipeline"
)

func newRunCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the configured pipeline",
		Long: `Builds the pipeline from the configuration layers and runs it until every
source reaches end of stream or SIGINT/SIGTERM is received.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if len(opts.configs) == 0 {
				return errors.WrapInvalid(errors.ErrMissingConfig, "olsd", "run", "no configuration file given (-c)")
			}
			cfg, err := loadConfig(opts.configs)
			if err != nil {
				return err
			}
			logger := setupLogger(cmd.ErrOrStderr(), pick(opts.logLevel, cfg.Log.Level), pick(opts.logFormat, cfg.Log.Format))
			slog.SetDefault(logger)

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runPipeline(ctx, cfg, logger)
		},
	}
}

// runPipeline builds and runs cfg until ctx is done or every source finished
func runPipeline(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	logger.Info("Starting olsd",
		"version", Version,
		"build_time", BuildTime,
		"elements", len(cfg.Pipeline.Elements))

	var registry *metric.MetricsRegistry
	if cfg.Metrics.Enabled {
		registry = metric.NewMetricsRegistry()
	}
	rt := element.NewRuntime(element.WithLogger(logger), element.WithMetrics(registry))
	defer rt.Shutdown()

	monitor := health.NewMonitor()
	natsClient, err := connectNATS(ctx, cfg, rt, monitor, logger)
	if err != nil {
		return err
	}
	if natsClient != nil {
		defer func() {
			closeCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := natsClient.Close(closeCtx); err != nil {
				logger.Warn("Failed to close NATS connection", "error", err)
			}
		}()
	}

	if err := elementregistry.Register(rt, elementregistry.Dependencies{NATSClient: natsClient}); err != nil {
		return err
	}
	if err := cfg.ValidateElements(rt); err != nil {
		return err
	}

	p, err := pipeline.Build(rt, cfg.Pipeline)
	if err != nil {
		return err
	}
	defer p.Close()

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(runCtx)

	if registry != nil {
		srv := metric.NewServer(cfg.Metrics.Port, cfg.Metrics.Path, registry)
		srv.SetHealth(func() health.Status {
			monitor.Update("pipeline", p.Health())
			return monitor.AggregateHealth(appName)
		})
		g.Go(func() error { return srv.Start(gctx) })
		logger.Info("Serving metrics", "port", cfg.Metrics.Port, "path", cfg.Metrics.Path)
	}

	if err := p.Start(gctx); err != nil {
		cancel()
		_ = g.Wait()
		return err
	}

	g.Go(func() error {
		if err := p.Wait(gctx); err != nil {
			// Cancelled by a signal or a failing sibling.
			return nil
		}
		logger.Info("All sources reached end of stream")
		cancel()
		return nil
	})

	err = g.Wait()
	if ctx.Err() != nil {
		logger.Info("Received shutdown signal")
	}
	if stopErr := stopWithin(p, cfg.ShutdownTimeout.Std()); stopErr != nil {
		logger.Error("Graceful shutdown failed", "error", stopErr)
		if err == nil {
			err = stopErr
		}
	}
	logger.Info("olsd shutdown complete")
	return err
}

// stopWithin stops the pipeline, giving up after timeout
func stopWithin(p *pipeline.Pipeline, timeout time.Duration) error {
	done := make(chan struct{})
	go func() {
		p.Stop()
		close(done)
	}()
	if timeout <= 0 {
		<-done
		return nil
	}
	select {
	case <-done:
		return nil
	case <-time.After(timeout):
		return errors.WrapFatal(fmt.Errorf("pipeline did not stop within %s", timeout), "olsd", "stopWithin", "stop pipeline")
	}
}

// usesNATS reports whether any configured element talks to NATS
func usesNATS(cfg *config.Config) bool {
	for _, el := range cfg.Pipeline.Elements {
		if el.Type == natsinput.TypeID || el.Type == natsoutput.TypeID {
			return true
		}
	}
	return false
}

// connectNATS returns the shared client for NATS elements, or nil when the
// pipeline has none
func connectNATS(ctx context.Context, cfg *config.Config, rt *element.Runtime, monitor *health.Monitor, logger *slog.Logger) (*natsclient.Client, error) {
	if !usesNATS(cfg) || len(cfg.NATS.URLs) == 0 {
		return nil, nil
	}

	opts := []natsclient.ClientOption{
		natsclient.WithLogger(logger),
		natsclient.WithMetrics(rt.Metrics()),
		natsclient.WithName(appName),
		natsclient.WithMaxReconnects(cfg.NATS.MaxReconnects),
		natsclient.WithReconnectWait(cfg.NATS.ReconnectWait.Std()),
		natsclient.WithDisconnectCallback(func(err error) {
			monitor.Update("nats", health.FromError("nats", err))
		}),
		natsclient.WithReconnectCallback(func() {
			monitor.UpdateHealthy("nats", "reconnected")
		}),
	}
	switch {
	case cfg.NATS.CredentialsFile != "":
		opts = append(opts, natsclient.WithCredentialsFile(cfg.NATS.CredentialsFile))
	case cfg.NATS.Token != "":
		opts = append(opts, natsclient.WithToken(cfg.NATS.Token))
	case cfg.NATS.Username != "":
		opts = append(opts, natsclient.WithCredentials(cfg.NATS.Username, cfg.NATS.Password))
	}

	client, err := natsclient.NewClient(strings.Join(cfg.NATS.URLs, ","), opts...)
	if err != nil {
		return nil, err
	}
	logger.Info("Connecting to NATS", "urls", client.URL())
	connCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := client.Connect(connCtx); err != nil {
		return nil, errors.Wrap(err, "olsd", "connectNATS", "connect to NATS")
	}
	monitor.UpdateHealthy("nats", "connected")
	return client, nil
}
