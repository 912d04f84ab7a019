package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kapu/reader-sim-go/internal/app"
)

func newServeCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the persona API and the WebSocket run stream",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := bootstrap()
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			if addr != "" {
				cfg.Server.Addr = addr
			}

			ctx, cancel := signalContext(cmd.Context(), logger)
			defer cancel()

			container, err := app.Build(ctx, cfg, logger, app.Options{})
			if err != nil {
				logger.Error("Failed to assemble application services", zap.Error(err))
				return err
			}
			defer container.Close()

			logger.Info("readersim server starting",
				zap.String("version", version),
				zap.String("addr", cfg.Server.Addr),
			)
			if err := container.NewServer().ListenAndServe(ctx, cfg.Server.Addr); err != nil {
				logger.Error("Server error", zap.Error(err))
				return err
			}
			logger.Info("Shutdown complete")
			return nil
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default: SERVER_ADDR)")
	return cmd
}
