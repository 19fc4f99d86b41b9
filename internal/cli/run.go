package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"salesetl/internal/config"
	"salesetl/internal/flags"
	"salesetl/internal/orchestrator"
	"salesetl/internal/output"
)

var cfg = config.New()

var configFile string

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the ETL pipeline",
	Long: `Run the ETL pipeline: extract sales data from the selected sources,
transform and validate it, compute metrics, and load the processed datasets
and reports to disk.

Each source runs as an independent chain of tasks
(extract -> transform -> validate -> compute_metrics -> load -> report).
A failed stage skips the rest of its chain; other chains continue. The
aggregation task merges whatever subset of sources loaded successfully.

Sources:
	Input file paths default into the data directory and can be overridden in
	the config file (see --config). FTP, email, and API credentials come from
	the environment: FTP_HOST, FTP_USER, FTP_PASSWORD, EMAIL_HOST, EMAIL_USER,
	EMAIL_PASSWORD, SALESETL_API_ENDPOINT, SALESETL_API_KEY.
	When a source is unavailable, --fallback decides: "sample" substitutes
	deterministic sample data, "error" fails the chain.

Output:
	Console output streams one line per settled task.
	Structured outputs can be written via:
	- --out / --out-format: write an aggregate JSON array or NDJSON stream to a file
	- --emit: write an additional structured stream to stdout (json or ndjson)
	- --report-file: write a Markdown run report
	- --no-console: suppress the console sink (use with --emit/--out)

	NDJSON mode emits one JSON object per line. Objects are lifecycle Events
	with a "type" field (run.started, source.started, task.result,
	source.finished, run.finished).

Exit codes:
	0 = run completed (individual chains may still have failed; see the summary)
	1 = every chain failed, or the run was canceled
	2 = fatal error (invalid config or graph; nothing ran)

Examples:
	# Full run over every source
	salesetl run --source all

	# One source, narrowed to a platform and segment
	salesetl run --source api --platform shopify --customer-segment VIP

	# Machine-readable event stream
	salesetl run --source all --no-console --emit ndjson

	# Business summary reports over the aggregated dataset
	salesetl run --source all --report
`,
	Run: func(cmd *cobra.Command, args []string) {
		if configFile != "" {
			fallbackFlag := cfg.Sources.Fallback
			if err := cfg.ApplyFile(configFile); err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(orchestrator.ExitFatal)
			}
			// Flags win over the config file where they overlap.
			if cmd.Flags().Changed(flags.FlagFallback) {
				cfg.Sources.Fallback = fallbackFlag
			}
		}

		if err := cfg.Validate(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(orchestrator.ExitFatal)
		}

		out, err := buildOutputManager(cfg)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(orchestrator.ExitFatal)
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		summary, runErr := orchestrator.New(cfg, out).Run(ctx)
		if closeErr := out.Close(); closeErr != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", closeErr)
		}

		if summary == nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", runErr)
			os.Exit(orchestrator.ExitFatal)
		}
		if runErr != nil {
			fmt.Fprintf(os.Stderr, "Error: run canceled: %v\n", runErr)
			os.Exit(orchestrator.ExitError)
		}
		os.Exit(summary.ExitCode())
	},
}

// buildOutputManager wires the sinks selected by the output config.
func buildOutputManager(cfg *config.Config) (*output.Manager, error) {
	m := output.NewManager()

	if !cfg.Output.NoConsole {
		if err := m.AddSink(output.NewConsoleSink(os.Stdout, "text", nil)); err != nil {
			return nil, err
		}
	}
	for _, format := range cfg.Output.Emit {
		sink, err := output.NewEmitSink(os.Stdout, format)
		if err != nil {
			return nil, err
		}
		if err := m.AddSink(sink); err != nil {
			return nil, err
		}
	}
	if cfg.Output.Out != "" {
		sink, err := output.NewFileSink(cfg.Output.Out, cfg.Output.OutFormat)
		if err != nil {
			return nil, err
		}
		if err := m.AddSink(sink); err != nil {
			return nil, err
		}
	}
	if cfg.Output.ReportFile != "" {
		sink, err := output.NewReportSink(cfg.Output.ReportFile)
		if err != nil {
			return nil, err
		}
		if err := m.AddSink(sink); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func init() {
	rootCmd.AddCommand(runCmd)

	// Filters
	runCmd.Flags().StringVar(&cfg.Filters.Source, flags.FlagSource, "all", "Source to run: csv|json|excel|pdf|db|xml|ftp|email|api|all (default: all)")
	runCmd.Flags().StringVar(&cfg.Filters.Platform, flags.FlagPlatform, "all", "Platform filter for the API source: shopify|amazon|ebay|etsy|all (default: all)")
	runCmd.Flags().StringVar(&cfg.Filters.StartDate, flags.FlagStartDate, "", "Start of the order date window as YYYY-MM-DD (default: 30 days before end)")
	runCmd.Flags().StringVar(&cfg.Filters.EndDate, flags.FlagEndDate, "", "End of the order date window as YYYY-MM-DD (default: today)")
	runCmd.Flags().StringVar(&cfg.Filters.ProductCategory, flags.FlagProductCategory, "", "Keep only orders in this product category")
	runCmd.Flags().StringVar(&cfg.Filters.CustomerSegment, flags.FlagCustomerSegment, "", "Keep only orders from this customer segment")

	// Sources
	runCmd.Flags().StringVar(&cfg.Sources.Fallback, flags.FlagFallback, "sample", "Missing-source policy: sample|error (default: sample)")
	runCmd.Flags().StringVar(&configFile, flags.FlagConfig, "", "YAML config file for source paths, load, and validation settings")

	// Output
	runCmd.Flags().BoolVar(&cfg.Output.SummaryReports, flags.FlagReport, false, "Generate business summary reports over the aggregated dataset")
	runCmd.Flags().StringVar(&cfg.Output.ReportFile, flags.FlagReportFile, "", "Write a Markdown run report to this path")
	runCmd.Flags().StringVar(&cfg.Output.Out, flags.FlagOut, "", "Write structured output to this path")
	runCmd.Flags().StringVar(&cfg.Output.OutFormat, flags.FlagOutFormat, "", "Structured output format for --out: json|ndjson (default: inferred from file extension)")
	runCmd.Flags().StringSliceVar(&cfg.Output.Emit, flags.FlagEmit, nil, "Emit additional structured stream to stdout: json|ndjson (repeatable; comma-separated accepted)")
	runCmd.Flags().BoolVar(&cfg.Output.NoConsole, flags.FlagNoConsole, false, "Suppress console output (use with --emit/--out/--report-file)")

	// Runtime
	runCmd.Flags().IntVar(&cfg.Runtime.Concurrency, flags.FlagConcurrency, 1, "Concurrent task workers (default: 1, deterministic order)")
	runCmd.Flags().DurationVar(&cfg.Runtime.TaskTimeout, flags.FlagTimeout, 0, "Per-task timeout (0 = no limit)")
}
