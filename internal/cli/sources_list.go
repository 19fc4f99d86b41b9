package cli

import (
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"salesetl/internal/extract"
)

var sourcesCmd = &cobra.Command{
	Use:   "sources",
	Short: "Manage and list data sources",
	Long: `Manage SalesETL data sources.

This command group helps you discover which sources exist in this build.
Sources are extracted during runs (see "salesetl run --help").

Examples:
  # List all registered sources
  salesetl sources list
`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

var sourcesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered sources",
	Long: `List all data sources currently registered in this build, sorted by name.

Examples:
  salesetl sources list
`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		bold := color.New(color.Bold)
		for _, s := range extract.Sources() {
			bold.Fprintln(cmd.OutOrStdout(), s)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(sourcesCmd)
	sourcesCmd.AddCommand(sourcesListCmd)
}
