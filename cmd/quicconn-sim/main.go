// Command quicconn-sim runs a client and a server connection over loopback UDP.
// The client completes the handshake, sends a message, migrates to a new socket,
// sends the message again and closes the connection.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/quic-go/quicconn/internal/logutils"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

type options struct {
	configPath  string
	qlogDir     string
	metricsAddr string
	noMigration bool
}

func (o *options) load(cmd *cobra.Command) (*Config, error) {
	cfg, err := Load(o.configPath)
	if err != nil {
		return nil, err
	}
	flags := cmd.Flags()
	if flags.Changed("qlog-dir") {
		cfg.Qlog.Dir = o.qlogDir
	}
	if flags.Changed("metrics-addr") {
		cfg.Metrics.Addr = o.metricsAddr
	}
	if flags.Changed("no-migration") {
		cfg.Client.Migrate = !o.noMigration
	}
	return cfg, nil
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	cmd := &cobra.Command{
		Use:   "quicconn-sim",
		Short: "Run a QUIC connection over loopback UDP",
		Long: "quicconn-sim runs a client and a server connection through a handshake, a connection migration and a close.\n" +
			"Log levels are configured with " + logutils.EnvLogLevel + ".",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.load(cmd)
			if err != nil {
				return err
			}
			logger, err := logutils.NewLogger(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			return run(cmd.Context(), cfg, logger, cmd.OutOrStdout())
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "path to a YAML configuration file")
	cmd.Flags().StringVar(&opts.qlogDir, "qlog-dir", "", "write qlog files to this directory")
	cmd.Flags().StringVar(&opts.metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address")
	cmd.Flags().BoolVar(&opts.noMigration, "no-migration", false, "don't migrate the client connection")

	cmd.AddCommand(configCmd(opts))
	return cmd
}

func configCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration as YAML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := Load(opts.configPath)
			if err != nil {
				return err
			}
			return writeConfig(cmd.OutOrStdout(), cfg)
		},
	}
}

func writeConfig(w io.Writer, cfg *Config) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(cfg); err != nil {
		return err
	}
	return enc.Close()
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		stop()
		os.Exit(1)
	}
}
