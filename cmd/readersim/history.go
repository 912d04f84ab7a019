package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/kapu/reader-sim-go/internal/app"
	"github.com/kapu/reader-sim-go/internal/report"
)

func newHistoryCmd() *cobra.Command {
	var (
		limit  int
		runID  string
		format string
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List archived runs, or print one run's reviews",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := bootstrap()
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			container, err := app.Build(cmd.Context(), cfg, logger, app.Options{Archive: true})
			if err != nil {
				return err
			}
			defer container.Close()

			out := cmd.OutOrStdout()
			if runID != "" {
				outFormat, err := report.ParseFormat(format)
				if err != nil {
					return err
				}
				res, err := container.Archive.GetRun(cmd.Context(), runID)
				if err != nil {
					return err
				}
				return report.Write(out, outFormat, res)
			}

			runs, err := container.Archive.ListRuns(cmd.Context(), limit)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "RUN\tFINISHED\tMODEL\tLANG\tREVIEWS\tAVG\tTITLE")
			for _, r := range runs {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%.1f\t%s\n",
					r.ID, r.FinishedAt.Local().Format("2006-01-02 15:04"), r.Model, r.Language, r.Reviews, r.AverageScore, r.OriginalTitle)
			}
			return tw.Flush()
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of runs to list")
	cmd.Flags().StringVar(&runID, "run", "", "print the reviews of this run")
	cmd.Flags().StringVarP(&format, "format", "f", "text", "output format for --run: text, json or markdown")
	return cmd
}
