package main

import (
	"context"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/kapu/reader-sim-go/internal/mcp"
	"github.com/kapu/reader-sim-go/internal/util"
	"github.com/kapu/reader-sim-go/pkg/errors"
)

func newNewsCmd() *cobra.Command {
	var (
		query     mcp.NewsQuery
		databases []string
		url       string
	)

	cmd := &cobra.Command{
		Use:   "news",
		Short: "List recent articles from the MCP database tools",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if _, err := query.Statement(time.Now()); err != nil {
				return err
			}

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
			result, err := queryNews(ctx, ts, cfg.Features.DatabaseQuery, query, databases, time.Now())
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "DATE\tTYPE\tTITLE\tTAGS\tURL")
			for _, row := range result.Rows {
				date := "-"
				if !row.CreatedAt.IsZero() {
					date = row.CreatedAt.Local().Format("2006-01-02 15:04")
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
					date, row.Type, util.TruncateString(row.Title, 60), strings.Join(row.Tags, ","), row.URL)
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "\n%d articles\n", len(result.Rows))
			return nil
		},
	}

	cmd.Flags().IntVar(&query.Days, "days", 7, "look back 1, 7 or 14 days")
	cmd.Flags().StringVar(&query.Search, "search", "", "match title or text")
	cmd.Flags().StringVar(&query.SQL, "sql", "", "run this SQL instead of the generated query")
	cmd.Flags().StringSliceVar(&databases, "databases", nil, "databases to query (default: all the server lists)")
	cmd.Flags().StringVar(&url, "url", "", "MCP service URL (default: MCP_URL)")
	return cmd
}

// queryNews checks that database queries are usable, then runs q. A nil
// feature flag means the server is probed first.
func queryNews(ctx context.Context, ts mcp.ToolService, feature *bool, q mcp.NewsQuery, databases []string, now time.Time) (*mcp.DatabaseResult, error) {
	if feature != nil && !*feature {
		return nil, errors.NewAppError("database query is disabled (FEATURE_DATABASE_QUERY=false)", errors.CodeMisconfigured, 0, nil)
	}

	sql, err := q.Statement(now)
	if err != nil {
		return nil, err
	}

	var tools []mcp.Tool
	if feature == nil {
		status, probed, err := mcp.Probe(ctx, ts)
		if err != nil {
			return nil, fmt.Errorf("probe MCP service: %w", err)
		}
		if !*status.DatabaseQuery {
			return nil, errors.NewAppError("MCP service offers no database tools", errors.CodeMisconfigured, 0, nil)
		}
		tools = probed
	}

	// Probe hangs up when done.
	if err := ts.Connect(ctx); err != nil {
		return nil, err
	}
	defer ts.Disconnect()

	if len(databases) == 0 {
		names, err := mcp.ListDatabases(ctx, ts, tools)
		if err != nil {
			return nil, err
		}
		databases = names.Names
	}

	return mcp.QueryDatabases(ctx, ts, databases, sql)
}
