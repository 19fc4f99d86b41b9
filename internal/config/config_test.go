package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"
)

func TestValidate_Defaults(t *testing.T) {
	cfg := New()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() returned error: %v", err)
	}

	if cfg.Filters.Source != "all" || cfg.Filters.Platform != "all" {
		t.Fatalf("selector defaults: source=%s platform=%s", cfg.Filters.Source, cfg.Filters.Platform)
	}
	if !cfg.Filters.Start.Equal(cfg.Filters.End.AddDate(0, 0, -30)) {
		t.Fatalf("default window = %s..%s, want 30 days", cfg.Filters.Start, cfg.Filters.End)
	}
	if cfg.Sources.OrdersCSV != filepath.Join("data", "orders.csv") {
		t.Fatalf("OrdersCSV default = %s", cfg.Sources.OrdersCSV)
	}
	if !reflect.DeepEqual(cfg.Load.Formats, []string{"csv"}) {
		t.Fatalf("Formats default = %v", cfg.Load.Formats)
	}
}

func TestValidate_ParsesExplicitWindow(t *testing.T) {
	cfg := New()
	cfg.Filters.StartDate = "2026-01-01"
	cfg.Filters.EndDate = "2026-01-31"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() returned error: %v", err)
	}
	if cfg.Filters.Start.Format(DateLayout) != "2026-01-01" || cfg.Filters.End.Format(DateLayout) != "2026-01-31" {
		t.Fatalf("parsed window = %s..%s", cfg.Filters.Start, cfg.Filters.End)
	}
}

func TestValidate_Rejections(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown source", func(c *Config) { c.Filters.Source = "carrier-pigeon" }},
		{"unknown platform", func(c *Config) { c.Filters.Platform = "myspace" }},
		{"bad start date", func(c *Config) { c.Filters.StartDate = "01/02/2026" }},
		{"end before start", func(c *Config) {
			c.Filters.StartDate = "2026-02-01"
			c.Filters.EndDate = "2026-01-01"
		}},
		{"bad fallback", func(c *Config) { c.Sources.Fallback = "guess" }},
		{"bad load format", func(c *Config) { c.Load.Formats = []string{"xlsx"} }},
		{"missing pct out of range", func(c *Config) { c.Validation.MaxMissingPct = 1.5 }},
		{"inverted order value bounds", func(c *Config) {
			c.Validation.MinOrderValue = 100
			c.Validation.MaxOrderValue = 10
		}},
		{"bad emit", func(c *Config) { c.Output.Emit = []string{"yaml"} }},
		{"out without inferable format", func(c *Config) { c.Output.Out = "results.txt" }},
		{"zero concurrency", func(c *Config) { c.Runtime.Concurrency = 0 }},
		{"negative timeout", func(c *Config) { c.Runtime.TaskTimeout = -time.Second }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := New()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}

func TestValidate_InfersOutFormat(t *testing.T) {
	cfg := New()
	cfg.Output.Out = "results.ndjson"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() returned error: %v", err)
	}
	if cfg.Output.OutFormat != "ndjson" {
		t.Fatalf("OutFormat = %s, want ndjson", cfg.Output.OutFormat)
	}
}

func TestValidate_NormalizesEnumCase(t *testing.T) {
	cfg := New()
	cfg.Filters.Source = "  CSV "
	cfg.Filters.Platform = "Shopify"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() returned error: %v", err)
	}
	if cfg.Filters.Source != "csv" || cfg.Filters.Platform != "shopify" {
		t.Fatalf("normalized to source=%s platform=%s", cfg.Filters.Source, cfg.Filters.Platform)
	}
}

func TestActiveSources(t *testing.T) {
	cfg := New()
	cfg.Filters.Source = "csv"
	if got := cfg.ActiveSources(); !reflect.DeepEqual(got, []string{"csv"}) {
		t.Fatalf("ActiveSources = %v", got)
	}

	cfg.Filters.Source = "all"
	got := cfg.ActiveSources()
	if len(got) != len(KnownSources)-1 {
		t.Fatalf("ActiveSources(all) = %v", got)
	}
	for _, s := range got {
		if s == "all" {
			t.Fatalf("\"all\" must not appear in the expansion: %v", got)
		}
	}
}

func TestApplyFile_OverlaysYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "salesetl.yaml")
	content := `
sources:
  data_dir: /srv/etl
  orders_csv: /srv/etl/in/orders.csv
  fallback: error
load:
  output_dir: /srv/etl/out
  formats: [csv, ndjson]
validation:
  max_missing_pct: 0.25
  min_order_value: 1
  max_order_value: 5000
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg := New()
	if err := cfg.ApplyFile(path); err != nil {
		t.Fatalf("ApplyFile: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() returned error: %v", err)
	}

	if cfg.Sources.OrdersCSV != "/srv/etl/in/orders.csv" {
		t.Fatalf("OrdersCSV = %s", cfg.Sources.OrdersCSV)
	}
	if cfg.Sources.Fallback != "error" {
		t.Fatalf("Fallback = %s", cfg.Sources.Fallback)
	}
	// Unset paths still default, but into the file's data dir.
	if cfg.Sources.InventoryXML != filepath.Join("/srv/etl", "inventory.xml") {
		t.Fatalf("InventoryXML = %s", cfg.Sources.InventoryXML)
	}
	if !reflect.DeepEqual(cfg.Load.Formats, []string{"csv", "ndjson"}) {
		t.Fatalf("Formats = %v", cfg.Load.Formats)
	}
	if cfg.Validation.MaxMissingPct != 0.25 {
		t.Fatalf("MaxMissingPct = %v", cfg.Validation.MaxMissingPct)
	}
}

func TestApplyFile_MissingFile(t *testing.T) {
	cfg := New()
	if err := cfg.ApplyFile(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}
