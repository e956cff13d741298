package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/pilab-dev/requesttoken/codec"
	"github.com/pilab-dev/requesttoken/config"
	"github.com/pilab-dev/requesttoken/internal/metrics"
	"github.com/pilab-dev/requesttoken/log"
	"github.com/pilab-dev/requesttoken/tracing"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// AppName is the binary name used in help output.
const AppName = "reqtokenctl"

// app carries what PersistentPreRunE prepares for the subcommands.
type app struct {
	cfgFile  string
	cfg      *config.Config
	logger   log.Logger
	codec    *codec.TokenCodec
	tp       *sdktrace.TracerProvider
	registry *prometheus.Registry
}

// NewRootCommand builds the command tree. Each call returns an independent
// tree, which keeps flag state out of package globals.
func NewRootCommand() *cobra.Command {
	a := &app{codec: codec.New()}

	root := &cobra.Command{
		Use:           AppName,
		Short:         "reqtokenctl encodes, decodes and stores OAuth request tokens",
		Long:          `A command-line tool for working with the binary request-token format: build and inspect blobs, seal them for cookies, and park them in the configured store.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init(cmd)
		},
		PersistentPostRunE: func(cmd *cobra.Command, _ []string) error {
			return a.shutdown(cmd.Context())
		},
	}
	root.PersistentFlags().StringVar(&a.cfgFile, "config", "",
		"config file (default is ./reqtoken.yaml or $HOME/.reqtoken/reqtoken.yaml)")

	root.AddCommand(
		newEncodeCommand(a),
		newDecodeCommand(a),
		newInspectCommand(a),
		newStoreCommand(a),
	)
	return root
}

func (a *app) init(cmd *cobra.Command) error {
	cfg, err := config.LoadConfig(a.cfgFile)
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.logger = log.NewZerologAdapterWriter(cmd.ErrOrStderr(), log.ParseLevel(cfg.LogLevel), cfg.LogPretty)

	if cfg.TracingEnabled {
		tp, err := tracing.InitTracerProvider(cfg.OtelServiceName, cmd.ErrOrStderr())
		if err != nil {
			return fmt.Errorf("failed to initialize tracing: %w", err)
		}
		a.tp = tp
	}
	if cfg.MetricsEnabled {
		a.registry = prometheus.NewRegistry()
		metrics.Register(a.registry)
	}

	a.logger.Debug(cmd.Context(), "reqtokenctl starting", log.Fields{"command": cmd.Name(), "store_backend": string(cfg.StoreBackend)})
	return nil
}

func (a *app) shutdown(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if a.registry != nil {
		a.logMetrics(ctx)
	}
	if a.tp != nil {
		if err := a.tp.Shutdown(ctx); err != nil {
			a.logger.Error(ctx, "Error shutting down TracerProvider", err)
		}
	}
	return nil
}

// logMetrics writes the non-zero counters at info level; a CLI run is too
// short-lived for scraping.
func (a *app) logMetrics(ctx context.Context) {
	families, err := a.registry.Gather()
	if err != nil {
		a.logger.Warn(ctx, "failed to gather metrics", log.Fields{"error": err.Error()})
		return
	}
	for _, f := range families {
		for _, m := range f.GetMetric() {
			if m.GetCounter().GetValue() == 0 {
				continue
			}
			fields := log.Fields{"metric": f.GetName(), "value": m.GetCounter().GetValue()}
			for _, l := range m.GetLabel() {
				fields[l.GetName()] = l.GetValue()
			}
			a.logger.Info(ctx, "metric", fields)
		}
	}
}

// Execute runs the CLI and exits non-zero on failure.
func Execute() {
	root := NewRootCommand()
	if err := root.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
