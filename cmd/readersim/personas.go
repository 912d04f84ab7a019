package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/kapu/reader-sim-go/internal/domain"
	"github.com/kapu/reader-sim-go/internal/persona"
)

func newPersonasCmd() *cobra.Command {
	var (
		category string
		search   string
		language string
		file     string
	)

	cmd := &cobra.Command{
		Use:   "personas",
		Short: "List the reader panel",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			catalog, err := persona.Load(file)
			if err != nil {
				return err
			}

			lang := domain.ParseLanguage(language)
			personas := catalog.ByCategory(category, lang)
			if search != "" {
				personas = catalog.Search(search, lang)
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tCATEGORY\tNAME\tCHARACTERISTICS")
			for _, p := range personas {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", p.ID, p.Category, p.Name, p.CharacteristicsText())
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "\n%d personas (categories: %s)\n", len(personas), strings.Join(catalog.Categories(), ", "))
			return nil
		},
	}

	cmd.Flags().StringVar(&category, "category", "", "only list this category")
	cmd.Flags().StringVar(&search, "search", "", "match name, description or characteristics")
	cmd.Flags().StringVarP(&language, "language", "l", "en", "en or zh")
	cmd.Flags().StringVar(&file, "file", "", "persona YAML file (default: built-in panel)")
	return cmd
}
