package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kapu/reader-sim-go/internal/app"
	"github.com/kapu/reader-sim-go/internal/domain"
	"github.com/kapu/reader-sim-go/internal/pipeline"
	"github.com/kapu/reader-sim-go/internal/report"
	"github.com/kapu/reader-sim-go/pkg/errors"
)

func newRunCmd() *cobra.Command {
	var (
		personaIDs  []string
		format      string
		concurrency int
		archiveRun  bool
		language    string
		quiet       bool
	)

	cmd := &cobra.Command{
		Use:   "run [title]",
		Short: "Generate title variants and collect reviews from the persona panel",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outFormat, err := report.ParseFormat(format)
			if err != nil {
				return err
			}

			cfg, logger, err := bootstrap()
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			ctx, cancel := signalContext(cmd.Context(), logger)
			defer cancel()

			container, err := app.Build(ctx, cfg, logger, app.Options{Concurrency: concurrency, Archive: archiveRun})
			if err != nil {
				return err
			}
			defer container.Close()

			llmCfg := cfg.DomainLLMConfig()
			if language != "" {
				llmCfg.Language = domain.ParseLanguage(language)
			}

			personas, err := container.Catalog.Select(personaIDs, llmCfg.Lang())
			if err != nil {
				return err
			}

			title := strings.Join(args, " ")
			res, err := container.Runner.Run(ctx, title, personas, llmCfg, pipeline.Callbacks{
				OnProgress: func(s domain.ProgressState) {
					if !quiet && s.Stage != domain.StageIdle {
						fmt.Fprintf(os.Stderr, "[%d/%d] %s\n", s.CurrentStep, s.TotalSteps, s.Description)
					}
				},
				OnEnrichedInfo: func(info string) {
					logger.Debug("Enriched info", zap.Int("runes", len([]rune(info))))
				},
			})
			if err != nil {
				if errors.Is(err, errors.ErrMisconfigured) {
					return fmt.Errorf("the LLM endpoint rejected the request; check LLM_API_KEY and LLM_API_URL and try again later")
				}
				return err
			}

			if container.Archive != nil {
				if err := container.Archive.SaveRun(ctx, res); err != nil {
					logger.Warn("Failed to archive run", zap.String("run_id", res.RunID), zap.Error(err))
				}
			}

			return report.Write(cmd.OutOrStdout(), outFormat, res)
		},
	}

	cmd.Flags().StringSliceVarP(&personaIDs, "personas", "p", nil, "persona ids to include (default: whole panel)")
	cmd.Flags().StringVarP(&format, "format", "f", "text", "output format: text, json or markdown")
	cmd.Flags().IntVarP(&concurrency, "concurrency", "c", 0, "reviews in flight (default: PIPELINE_CONCURRENCY)")
	cmd.Flags().BoolVar(&archiveRun, "archive", false, "store the run in Postgres")
	cmd.Flags().StringVarP(&language, "language", "l", "", "prompt language: en or zh (default: LANGUAGE)")
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "suppress progress lines")
	return cmd
}
