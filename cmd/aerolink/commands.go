package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/devrev/aerolink/internal/client"
	"github.com/devrev/aerolink/internal/config"
	clienterrors "github.com/devrev/aerolink/internal/errors"
	"github.com/devrev/aerolink/internal/health"
	"github.com/devrev/aerolink/internal/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// Version is overridden at build time with -ldflags "-X main.Version=..."
var Version = "0.1.0-dev"

type globalOptions struct {
	logLevel    string
	configFile  string
	secretsFile string
}

func newRootCmd() *cobra.Command {
	opts := &globalOptions{}

	root := &cobra.Command{
		Use:   "aerolink",
		Short: "probe active/passive Aerospike clusters",
		Long: `Resolve client configuration from the environment, a secrets file or a
YAML file and check reachability of the active cluster, failing over to the
passive cluster when no active host answers.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	root.PersistentFlags().StringVar(&opts.configFile, "config", "", "YAML configuration file (overrides environment)")
	root.PersistentFlags().StringVar(&opts.secretsFile, "secrets-file", "", "KEY=VALUE file holding ACTIVE_*/PASSIVE_* credentials")

	root.AddCommand(
		newVersionCmd(),
		newEditionCmd(),
		newConnectCmd(opts),
		newPingCmd(opts),
		newServeCmd(opts),
	)
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), Version)
		},
	}
}

func newEditionCmd() *cobra.Command {
	var envKey string

	cmd := &cobra.Command{
		Use:   "edition",
		Short: "print the edition code (0 community, 1 enterprise, -1 invalid)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			edition, err := config.DetectEdition(envKey)
			if err != nil {
				fmt.Fprintln(cmd.OutOrStdout(), -1)
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), edition.Code())
			return nil
		},
	}
	cmd.Flags().StringVar(&envKey, "env-key", config.EditionEnvKey, "environment variable holding the edition")
	return cmd
}

func newConnectCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "connect",
		Short: "connect to the active cluster, failing over to passive",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := initLogger(opts.logLevel)
			if err != nil {
				return err
			}
			defer logger.Sync()

			m, err := newManager(opts, logger)
			if err != nil {
				return err
			}
			defer m.Close()

			session, err := m.Connect(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "connected %s %s session=%s\n", session.Role, session.Address(), session.ID)
			return nil
		},
	}
}

func newPingCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "ping",
		Short: "print 1 if any host answers the statistics probe, 0 otherwise",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := initLogger(opts.logLevel)
			if err != nil {
				return err
			}
			defer logger.Sync()

			m, err := newManager(opts, logger)
			if err != nil {
				return err
			}
			defer m.Close()

			ok, err := m.Ping(cmd.Context())
			if !ok {
				fmt.Fprintln(cmd.OutOrStdout(), 0)
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), 1)
			return nil
		},
	}
}

func newServeCmd(opts *globalOptions) *cobra.Command {
	var (
		addr         string
		readyTimeout time.Duration
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "serve health probes and metrics over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := initLogger(opts.logLevel)
			if err != nil {
				return err
			}
			defer logger.Sync()

			reg := prometheus.NewRegistry()
			reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

			m, err := newManager(opts, logger, client.WithMetrics(metrics.NewMetrics(reg)))
			if err != nil {
				return err
			}
			defer m.Close()

			server := &http.Server{
				Addr:         addr,
				Handler:      health.NewRouter(health.NewHealthCheck(m, readyTimeout, logger), reg),
				ReadTimeout:  5 * time.Second,
				WriteTimeout: readyTimeout + 5*time.Second,
				IdleTimeout:  60 * time.Second,
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			errCh := make(chan error, 1)
			go func() {
				logger.Info("Starting health server", zap.String("address", addr))
				errCh <- server.ListenAndServe()
			}()

			select {
			case err := <-errCh:
				if !errors.Is(err, http.ErrServerClosed) {
					return fmt.Errorf("health server: %w", err)
				}
				return nil
			case <-ctx.Done():
				logger.Info("Shutting down gracefully...")
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				return server.Shutdown(shutdownCtx)
			}
		},
	}
	cmd.Flags().StringVar(&addr, "addr", ":8080", "listen address")
	cmd.Flags().DurationVar(&readyTimeout, "ready-timeout", 10*time.Second, "upper bound on one readiness probe")
	return cmd
}

// loadConfig picks the configuration source from the global flags
func loadConfig(opts *globalOptions, logger *zap.Logger) (*config.Config, error) {
	switch {
	case opts.configFile != "":
		return config.LoadFile(opts.configFile, logger)
	case opts.secretsFile != "":
		return config.BuildFromSecretsFile(opts.secretsFile, logger)
	default:
		return config.BuildDefault(logger)
	}
}

func newManager(opts *globalOptions, logger *zap.Logger, managerOpts ...client.Option) (*client.Manager, error) {
	cfg, err := loadConfig(opts, logger)
	if err != nil {
		logger.Error("Failed to load configuration",
			zap.String("kind", clienterrors.GetCode(err).String()),
			zap.Stringer("grpc_code", clienterrors.Status(err).Code()),
			zap.Error(err))
		return nil, err
	}
	return client.NewManager(*cfg, logger, managerOpts...)
}

// initLogger initializes the zap logger
func initLogger(level string) (*zap.Logger, error) {
	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = lvl
	return cfg.Build()
}
