package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kapu/reader-sim-go/internal/config"
	"github.com/kapu/reader-sim-go/internal/util"
)

var version = "1.0.0"

var logLevel string

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "readersim",
		Short: "Rewrite an article title and have a reader panel review every variant",
		Long: `readersim checks whether a title carries enough context, enriches it when it
does not, generates variants from several angles and asks each simulated
reader persona for a comment, tags, suggestions and a score.

Examples:
  # Review a title with two personas and print a table
  readersim run "Why rice still matters" --personas student,techie

  # Same run as markdown, four reviews in flight
  readersim run "Why rice still matters" --format markdown --concurrency 4

  # Serve the WebSocket API
  readersim serve`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	root.PersistentFlags().StringVar(&logLevel, "log-level", "", "override LOG_LEVEL (debug, info, warn, error)")

	root.AddCommand(newRunCmd())
	root.AddCommand(newServeCmd())
	root.AddCommand(newPersonasCmd())
	root.AddCommand(newPingCmd())
	root.AddCommand(newToolsCmd())
	root.AddCommand(newNewsCmd())
	root.AddCommand(newHistoryCmd())
	return root
}

// bootstrap loads configuration and builds the logger every command shares.
func bootstrap() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}

	logger, err := util.NewLogger(cfg.Logging.Level, cfg.Logging.File)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return cfg, logger, nil
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext(parent context.Context, logger *zap.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		defer signal.Stop(sigCh)
		select {
		case sig := <-sigCh:
			logger.Info("Received shutdown signal", zap.String("signal", sig.String()))
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx, cancel
}
