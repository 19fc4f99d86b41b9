package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	buildVersion = "dev"
	buildCommit  = "unknown"
	buildDate    = "unknown"
)

var rootCmd = &cobra.Command{
	Use:   "salesetl",
	Short: "Extract, transform, and load e-commerce sales data",
	Long: `SalesETL ingests e-commerce sales data from multiple sources, validates and
transforms it, and loads the processed datasets and reports to disk.

Each source runs as an independent pipeline chain; one source's malformed
file never blocks ingestion of the others.

Examples:
	# Show available commands and global flags
	salesetl --help

	# Run the full pipeline over every source
	salesetl run --source all

	# Run one source over an explicit date window
	salesetl run --source csv --start-date 2026-01-01 --end-date 2026-01-31

	# List registered sources
	salesetl sources list

	# Print build info
	salesetl version

Output:
	By default, commands write human-readable output to stdout.
	The run command supports structured output via emitter flags (see
	"salesetl run --help").`,
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&cfg.Runtime.Verbose, "verbose", false, "Enable verbose logging (prints full error details)")
}

func SetBuildInfo(version, commit, date string) {
	if version != "" {
		buildVersion = version
	}
	if commit != "" {
		buildCommit = commit
	}
	if date != "" {
		buildDate = date
	}

	rootCmd.Version = fmt.Sprintf("%s (%s) %s", buildVersion, buildCommit, buildDate)
	rootCmd.SetVersionTemplate("{{.Version}}\n")
}

func BuildInfo() (version, commit, date string) {
	return buildVersion, buildCommit, buildDate
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
