package flags

// Package flags defines canonical CLI flag names shared across the CLI and
// orchestrator. Keeping these as constants helps avoid drift between Cobra
// flag wiring and other code paths that need to reference flags.
// IMPORTANT: These are flag *names* without leading dashes.
// Example usage:
//
//	cmd.Flags().StringVar(&cfg.Filters.Source, flags.FlagSource, "all", "...")
//	arg := "--" + flags.FlagSource
const (
	// Filters
	FlagSource          = "source"
	FlagPlatform        = "platform"
	FlagStartDate       = "start-date"
	FlagEndDate         = "end-date"
	FlagProductCategory = "product-category"
	FlagCustomerSegment = "customer-segment"

	// Sources
	FlagFallback = "fallback"
	FlagConfig   = "config"

	// Output
	FlagReport     = "report"
	FlagReportFile = "report-file"
	FlagOut        = "out"
	FlagOutFormat  = "out-format"
	FlagEmit       = "emit"
	FlagNoConsole  = "no-console"

	// Runtime
	FlagConcurrency = "concurrency"
	FlagTimeout     = "timeout"
)
