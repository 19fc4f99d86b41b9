package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DateLayout is the wire format for all dates crossing the CLI and config
// boundary.
const DateLayout = "2006-01-02"

// KnownSources is the set of extractable data sources, plus "all".
var KnownSources = []string{"csv", "json", "excel", "pdf", "db", "xml", "ftp", "email", "api", "all"}

// KnownPlatforms is the set of marketplace platforms the API source can be
// narrowed to, plus "all".
var KnownPlatforms = []string{"shopify", "amazon", "ebay", "etsy", "all"}

type Config struct {
	// MAINTAINER NOTE: If you add/change/remove config fields that affect run
	// behavior, keep these in sync:
	// - CLI flags in internal/cli/run.go
	// - the config file schema documented in internal/flags/flags.go
	Sources    Sources    `yaml:"sources"`
	Filters    Filters    `yaml:"-"`
	Load       Load       `yaml:"load"`
	Validation Validation `yaml:"validation"`
	Output     Output     `yaml:"-"`
	Runtime    Runtime    `yaml:"-"`
}

type Sources struct {
	// DataDir is the root directory input files default into.
	DataDir string `yaml:"data_dir"`

	// OrdersCSV is the orders CSV export path.
	OrdersCSV string `yaml:"orders_csv"`

	// ProductsJSON is the orders/products JSON export path.
	ProductsJSON string `yaml:"products_json"`

	// CustomersExcel is the customers spreadsheet path.
	CustomersExcel string `yaml:"customers_excel"`

	// InvoicesPDF is the scanned invoices path.
	InvoicesPDF string `yaml:"invoices_pdf"`

	// InventoryXML is the inventory XML export path.
	InventoryXML string `yaml:"inventory_xml"`

	// HistoricalDB is the historical orders store, one JSON object per line.
	HistoricalDB string `yaml:"historical_db"`

	// FTP/Email credentials come from the environment (FTP_HOST, FTP_USER,
	// FTP_PASSWORD, EMAIL_HOST, EMAIL_USER, EMAIL_PASSWORD), never from the
	// config file.
	FTPHost       string `yaml:"-"`
	FTPUser       string `yaml:"-"`
	FTPPassword   string `yaml:"-"`
	EmailHost     string `yaml:"-"`
	EmailUser     string `yaml:"-"`
	EmailPassword string `yaml:"-"`

	// APIEndpoint is the sales API base URL (SALESETL_API_ENDPOINT).
	APIEndpoint string `yaml:"-"`

	// APIKey is the bearer token for the sales API (SALESETL_API_KEY).
	APIKey string `yaml:"-"`

	// Fallback controls what happens when a source is unavailable (see
	// --fallback). Allowed values: sample, error.
	Fallback string `yaml:"fallback"`
}

type Filters struct {
	// Source selects which source chains to run (see --source).
	// One of KnownSources; "all" runs every chain.
	Source string

	// Platform narrows API extraction to one platform (see --platform).
	// One of KnownPlatforms; "all" means no narrowing.
	Platform string

	// StartDate and EndDate bound the order date window as YYYY-MM-DD
	// (see --start-date, --end-date). If both are empty the window defaults
	// to the 30 days ending today.
	StartDate string
	EndDate   string

	// ProductCategory keeps only orders in this category (see --product-category).
	ProductCategory string

	// CustomerSegment keeps only orders from this segment (see --customer-segment).
	CustomerSegment string

	// Start and End are the parsed window bounds, populated by Validate.
	Start time.Time
	End   time.Time
}

type Load struct {
	// OutputDir is where loaded datasets are written (see --output-dir).
	OutputDir string `yaml:"output_dir"`

	// ReportDir is where markdown reports are written.
	ReportDir string `yaml:"report_dir"`

	// Formats lists the export formats for loaded datasets.
	// Allowed values: csv, json, ndjson.
	Formats []string `yaml:"formats"`
}

type Validation struct {
	// MaxMissingPct is the tolerated fraction of rows with missing required
	// fields before validation fails the chain. Range [0, 1].
	MaxMissingPct float64 `yaml:"max_missing_pct"`

	// MinOrderValue drops rows whose order total is below this bound.
	MinOrderValue float64 `yaml:"min_order_value"`

	// MaxOrderValue drops rows whose order total is above this bound.
	MaxOrderValue float64 `yaml:"max_order_value"`
}

type Output struct {
	// NoConsole suppresses the console sink (see --no-console).
	NoConsole bool

	// Emit writes an additional structured event stream to stdout (see --emit).
	// Allowed values: json, ndjson.
	Emit []string

	// Out writes structured output to this path (see --out).
	Out string

	// OutFormat selects the format for --out (see --out-format).
	// Allowed values: json, ndjson. If empty, it is inferred from the --out
	// file extension.
	OutFormat string

	// ReportFile writes a Markdown run report to this path (see --report-file).
	ReportFile string

	// SummaryReports generates the business summary reports after the run
	// (see --report): sales_summary, product_performance,
	// customer_segmentation.
	SummaryReports bool
}

type Runtime struct {
	// Concurrency controls how many tasks may run at once (see --concurrency).
	// Must be >= 1.
	Concurrency int

	// TaskTimeout bounds each task body (see --timeout). 0 means no limit.
	TaskTimeout time.Duration

	// Verbose enables more detailed diagnostics.
	Verbose bool
}

func New() *Config {
	return &Config{
		Sources: Sources{
			DataDir:       "data",
			FTPHost:       os.Getenv("FTP_HOST"),
			FTPUser:       os.Getenv("FTP_USER"),
			FTPPassword:   os.Getenv("FTP_PASSWORD"),
			EmailHost:     os.Getenv("EMAIL_HOST"),
			EmailUser:     os.Getenv("EMAIL_USER"),
			EmailPassword: os.Getenv("EMAIL_PASSWORD"),
			APIEndpoint:   os.Getenv("SALESETL_API_ENDPOINT"),
			APIKey:        os.Getenv("SALESETL_API_KEY"),
			Fallback:      "sample",
		},
		Filters: Filters{
			Source:   "all",
			Platform: "all",
		},
		Load: Load{
			OutputDir: filepath.Join("data", "processed"),
			ReportDir: filepath.Join("data", "reports"),
			Formats:   []string{"csv"},
		},
		Validation: Validation{
			MaxMissingPct: 0.1,
			MinOrderValue: 0.01,
			MaxOrderValue: 10000,
		},
		Runtime: Runtime{
			Concurrency: 1,
		},
	}
}

// ApplyFile overlays values from a YAML config file (see --config). Only the
// sources, load, and validation sections are file-configurable; run filters
// and output wiring stay on the command line.
func (c *Config) ApplyFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(raw, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) Validate() error {
	// Filter enum validation
	c.Filters.Source = normalizeEnumValue(c.Filters.Source)
	if c.Filters.Source == "" {
		c.Filters.Source = "all"
	}
	if !contains(KnownSources, c.Filters.Source) {
		return fmt.Errorf("unsupported --source: %s (must be one of: %s)", c.Filters.Source, strings.Join(KnownSources, ", "))
	}

	c.Filters.Platform = normalizeEnumValue(c.Filters.Platform)
	if c.Filters.Platform == "" {
		c.Filters.Platform = "all"
	}
	if !contains(KnownPlatforms, c.Filters.Platform) {
		return fmt.Errorf("unsupported --platform: %s (must be one of: %s)", c.Filters.Platform, strings.Join(KnownPlatforms, ", "))
	}

	// Date window. An empty window defaults to the 30 days ending today.
	end := time.Now().Truncate(24 * time.Hour)
	if c.Filters.EndDate != "" {
		parsed, err := time.Parse(DateLayout, c.Filters.EndDate)
		if err != nil {
			return fmt.Errorf("invalid --end-date %q: expected YYYY-MM-DD", c.Filters.EndDate)
		}
		end = parsed
	}
	start := end.AddDate(0, 0, -30)
	if c.Filters.StartDate != "" {
		parsed, err := time.Parse(DateLayout, c.Filters.StartDate)
		if err != nil {
			return fmt.Errorf("invalid --start-date %q: expected YYYY-MM-DD", c.Filters.StartDate)
		}
		start = parsed
	}
	if end.Before(start) {
		return fmt.Errorf("--end-date %s is before --start-date %s", end.Format(DateLayout), start.Format(DateLayout))
	}
	c.Filters.Start = start
	c.Filters.End = end

	// Source path defaults live under the data dir.
	if c.Sources.DataDir == "" {
		c.Sources.DataDir = "data"
	}
	c.Sources.OrdersCSV = defaultPath(c.Sources.OrdersCSV, c.Sources.DataDir, "orders.csv")
	c.Sources.ProductsJSON = defaultPath(c.Sources.ProductsJSON, c.Sources.DataDir, "products.json")
	c.Sources.CustomersExcel = defaultPath(c.Sources.CustomersExcel, c.Sources.DataDir, "customers.xlsx")
	c.Sources.InvoicesPDF = defaultPath(c.Sources.InvoicesPDF, c.Sources.DataDir, "invoices.pdf")
	c.Sources.InventoryXML = defaultPath(c.Sources.InventoryXML, c.Sources.DataDir, "inventory.xml")
	c.Sources.HistoricalDB = defaultPath(c.Sources.HistoricalDB, c.Sources.DataDir, "historical.ndjson")

	c.Sources.Fallback = normalizeEnumValue(c.Sources.Fallback)
	if c.Sources.Fallback == "" {
		c.Sources.Fallback = "sample"
	}
	if c.Sources.Fallback != "sample" && c.Sources.Fallback != "error" {
		return fmt.Errorf("unsupported --fallback: %s (must be one of: sample, error)", c.Sources.Fallback)
	}

	// Load validation
	if c.Load.OutputDir == "" {
		c.Load.OutputDir = filepath.Join(c.Sources.DataDir, "processed")
	}
	if c.Load.ReportDir == "" {
		c.Load.ReportDir = filepath.Join(c.Sources.DataDir, "reports")
	}
	if len(c.Load.Formats) == 0 {
		c.Load.Formats = []string{"csv"}
	}
	for i, f := range c.Load.Formats {
		v := normalizeEnumValue(f)
		if v != "csv" && v != "json" && v != "ndjson" {
			return fmt.Errorf("unsupported load format: %s (must be one of: csv, json, ndjson)", f)
		}
		c.Load.Formats[i] = v
	}

	// Validation thresholds
	if c.Validation.MaxMissingPct < 0 || c.Validation.MaxMissingPct > 1 {
		return errors.New("validation max_missing_pct must be within [0, 1]")
	}
	if c.Validation.MinOrderValue < 0 {
		return errors.New("validation min_order_value must be >= 0")
	}
	if c.Validation.MaxOrderValue <= c.Validation.MinOrderValue {
		return errors.New("validation max_order_value must be greater than min_order_value")
	}

	// Output validation
	for _, emit := range c.Output.Emit {
		v := normalizeEnumValue(emit)
		if v != "json" && v != "ndjson" {
			return fmt.Errorf("unsupported --emit value: %s (must be one of: json, ndjson)", emit)
		}
	}

	if c.Output.Out != "" {
		c.Output.OutFormat = normalizeEnumValue(c.Output.OutFormat)
		if c.Output.OutFormat == "" {
			ext := strings.ToLower(filepath.Ext(c.Output.Out))
			switch ext {
			case ".json":
				c.Output.OutFormat = "json"
			case ".ndjson":
				c.Output.OutFormat = "ndjson"
			default:
				if ext == "" {
					return errors.New("cannot infer output format from file extension (missing extension); use --out-format")
				}
				return fmt.Errorf("cannot infer output format from file extension %q; use --out-format", ext)
			}
		} else if c.Output.OutFormat != "json" && c.Output.OutFormat != "ndjson" {
			return fmt.Errorf("unsupported output format: %s", c.Output.OutFormat)
		}
	}

	// Runtime validation
	if c.Runtime.Concurrency <= 0 {
		return errors.New("--concurrency must be >= 1")
	}
	if c.Runtime.TaskTimeout < 0 {
		return errors.New("--timeout must be >= 0")
	}

	return nil
}

// ActiveSources resolves the source selector into the concrete sources to
// run, sorted for stable chain construction.
func (c *Config) ActiveSources() []string {
	if c.Filters.Source != "all" {
		return []string{c.Filters.Source}
	}
	out := make([]string, 0, len(KnownSources)-1)
	for _, s := range KnownSources {
		if s != "all" {
			out = append(out, s)
		}
	}
	sort.Strings(out)
	return out
}

func defaultPath(current, dir, name string) string {
	if current != "" {
		return current
	}
	return filepath.Join(dir, name)
}

func normalizeEnumValue(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}

func contains(values []string, v string) bool {
	for _, x := range values {
		if x == v {
			return true
		}
	}
	return false
}
