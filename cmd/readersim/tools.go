package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kapu/reader-sim-go/internal/llm"
	"github.com/kapu/reader-sim-go/internal/mcp"
)

func newPingCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ping",
		Short: "Send a one-word completion to check the LLM endpoint and key",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := bootstrap()
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			mmCfg := llm.DefaultModelManagerConfig()
			mmCfg.Timeout = cfg.LLM.Timeout
			mmCfg.Retry.MaxAttempts = 1
			mm := llm.NewModelManager(mmCfg, logger)

			ctx, cancel := context.WithTimeout(cmd.Context(), cfg.LLM.Timeout)
			defer cancel()

			started := time.Now()
			if err := mm.Ping(ctx, cfg.DomainLLMConfig()); err != nil {
				return fmt.Errorf("%s %s: %w", cfg.LLM.Provider, cfg.LLM.Model, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s ok (%s)\n", cfg.LLM.Provider, cfg.LLM.Model, time.Since(started).Round(time.Millisecond))
			return nil
		},
	}
}

func newToolsCmd() *cobra.Command {
	var url string

	cmd := &cobra.Command{
		Use:   "tools",
		Short: "Probe the MCP service and report which features are usable",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := bootstrap()
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			if url == "" {
				url = cfg.MCP.URL
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), cfg.MCP.Timeout)
			defer cancel()

			ts := mcp.NewHTTPFactory(cfg.MCP.Timeout, logger)(url)
			status, tools, err := mcp.Probe(ctx, ts)
			if err != nil {
				return fmt.Errorf("probe %s: %w", url, err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "MCP service: %s\n", url)
			fmt.Fprintf(out, "  browser search: %s\n", onOff(status.BrowserSearch))
			fmt.Fprintf(out, "  database query: %s\n", onOff(status.DatabaseQuery))
			fmt.Fprintf(out, "\n%d tools:\n", len(tools))
			for _, t := range tools {
				fmt.Fprintf(out, "  %-32s %s\n", t.Name, firstLine(t.Description))
			}

			if status.DatabaseQuery == nil || !*status.DatabaseQuery {
				return nil
			}

			// Probe hangs up when done; databases need a fresh session.
			if err := ts.Connect(ctx); err != nil {
				return err
			}
			defer ts.Disconnect()

			names, err := mcp.ListDatabases(ctx, ts, tools)
			if err != nil {
				logger.Warn("Failed to list databases", zap.Error(err))
				return nil
			}
			fmt.Fprintf(out, "\ndatabases: %s\n", strings.Join(names.Names, ", "))
			return nil
		},
	}

	cmd.Flags().StringVar(&url, "url", "", "MCP service URL (default: MCP_URL)")
	return cmd
}

func onOff(v *bool) string {
	switch {
	case v == nil:
		return "unknown"
	case *v:
		return "available"
	default:
		return "unavailable"
	}
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
