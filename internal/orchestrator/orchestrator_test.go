package orchestrator

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"salesetl/internal/config"
	_ "salesetl/internal/extract/sources"
	"salesetl/internal/output"
	"salesetl/internal/pipeline"
)

type captureSink struct {
	writes []any
}

func (s *captureSink) Write(v any) error {
	s.writes = append(s.writes, v)
	return nil
}

func (s *captureSink) Close() error { return nil }

func (s *captureSink) events(eventType string) []output.Event {
	var out []output.Event
	for _, v := range s.writes {
		if e, ok := v.(output.Event); ok && e.Type == eventType {
			out = append(out, e)
		}
	}
	return out
}

func (s *captureSink) results() []output.Result {
	var out []output.Result
	for _, v := range s.writes {
		if r, ok := v.(output.Result); ok {
			out = append(out, r)
		}
	}
	return out
}

const ordersCSV = "order_id,order_date,customer_id,customer_segment,product_category,product_name,quantity,unit_price,discount\n" +
	"1001,2026-02-10,C0001,VIP,Books,Cookbook,2,24.99,0.1\n" +
	"1002,2026-02-11,C0002,New,Toys,Puzzle,1,9.99,0\n" +
	"1003,2026-02-12,C0003,VIP,Books,Novel,3,14.99,0.05\n"

func testConfig(t *testing.T, mutate func(*config.Config)) *config.Config {
	t.Helper()
	dir := t.TempDir()
	cfg := config.New()
	cfg.Sources.DataDir = dir
	cfg.Filters.StartDate = "2026-02-01"
	cfg.Filters.EndDate = "2026-02-28"
	if mutate != nil {
		mutate(cfg)
	}
	require.NoError(t, cfg.Validate())
	return cfg
}

func TestRun_SingleSourceCompletes(t *testing.T) {
	cfg := testConfig(t, func(c *config.Config) { c.Filters.Source = "csv" })
	require.NoError(t, os.WriteFile(cfg.Sources.OrdersCSV, []byte(ordersCSV), 0o644))

	sink := &captureSink{}
	out := output.NewManager()
	require.NoError(t, out.AddSink(sink))

	summary, err := New(cfg, out).Run(context.Background())
	require.NoError(t, err)
	require.NotNil(t, summary)

	assert.Equal(t, pipeline.RunCompleted, summary.Status)
	assert.Equal(t, ExitOK, summary.ExitCode())
	assert.Empty(t, summary.Failures)

	require.Len(t, summary.Runs, 1)
	run := summary.Runs[0]
	assert.Equal(t, "csv", run.Source)
	assert.Equal(t, pipeline.RunCompleted, run.Status)
	assert.NotEmpty(t, run.ID)
	assert.Len(t, run.Outcomes, len(stages))
	for _, oc := range run.Outcomes {
		assert.Equal(t, pipeline.StatusSucceeded, oc.Status, "%s/%s", oc.Source, oc.Stage)
	}

	// Loaded dataset and per-source report land on disk.
	_, err = os.Stat(filepath.Join(cfg.Load.OutputDir, "csv_orders.csv"))
	assert.NoError(t, err)
	_, err = os.Stat(filepath.Join(cfg.Load.ReportDir, "csv_report.md"))
	assert.NoError(t, err)

	// Lifecycle events bracket the task results.
	require.Len(t, sink.events("run.started"), 1)
	require.Len(t, sink.events("run.finished"), 1)
	finished := sink.events("run.finished")[0]
	assert.Equal(t, "COMPLETED", finished.Status)
	assert.Equal(t, ExitOK, finished.ExitCode)
	// 6 chain tasks + aggregate.
	assert.Len(t, sink.results(), len(stages)+1)
}

func TestRun_PartialFailureKeepsHealthyChains(t *testing.T) {
	cfg := testConfig(t, func(c *config.Config) {
		c.Filters.Source = "all"
		c.Sources.Fallback = "error"
		c.Runtime.Concurrency = 4
	})
	// Only csv and db have data; every other source fails at extract.
	require.NoError(t, os.WriteFile(cfg.Sources.OrdersCSV, []byte(ordersCSV), 0o644))
	db := `{"order_id":"9001","order_date":"2026-02-20","customer_id":"C9","customer_segment":"VIP","product_category":"Books","product_name":"Biography","quantity":1,"unit_price":20.0,"discount":0.0}` + "\n"
	require.NoError(t, os.WriteFile(cfg.Sources.HistoricalDB, []byte(db), 0o644))

	sink := &captureSink{}
	out := output.NewManager()
	require.NoError(t, out.AddSink(sink))

	summary, err := New(cfg, out).Run(context.Background())
	require.NoError(t, err, "chain failures must not fail the run")
	assert.Equal(t, pipeline.RunPartiallyFailed, summary.Status)
	assert.Equal(t, ExitOK, summary.ExitCode())

	bySource := map[string]*pipeline.PipelineRun{}
	for _, r := range summary.Runs {
		bySource[r.Source] = r
	}
	assert.Equal(t, pipeline.RunCompleted, bySource["csv"].Status)
	assert.Equal(t, pipeline.RunCompleted, bySource["db"].Status)
	assert.Equal(t, pipeline.RunFailed, bySource["xml"].Status)

	// A failed extract skips the rest of its chain.
	for _, oc := range bySource["xml"].Outcomes {
		switch oc.Stage {
		case "extract":
			assert.Equal(t, pipeline.StatusFailed, oc.Status)
			assert.Contains(t, oc.Error, "xml source unavailable")
		default:
			assert.Equal(t, pipeline.StatusSkipped, oc.Status, oc.Stage)
		}
	}

	// Failures enumerate (source, stage, error) triples for failed stages only.
	for _, f := range summary.Failures {
		assert.Equal(t, "extract", f.Stage)
		assert.NotEmpty(t, f.Error)
	}
	assert.Len(t, summary.Failures, len(config.KnownSources)-1-2)

	// The aggregate still ran over the healthy subset.
	_, err = os.Stat(filepath.Join(cfg.Load.OutputDir, "csv_orders.csv"))
	assert.NoError(t, err)
}

func TestRun_AllChainsFailing(t *testing.T) {
	cfg := testConfig(t, func(c *config.Config) {
		c.Filters.Source = "pdf"
		c.Sources.Fallback = "error"
	})

	summary, err := New(cfg, nil).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, pipeline.RunFailed, summary.Status)
	assert.Equal(t, ExitError, summary.ExitCode())
	require.Len(t, summary.Failures, 2, "extract failure plus empty aggregate: %+v", summary.Failures)
}

func TestRun_SummaryReports(t *testing.T) {
	cfg := testConfig(t, func(c *config.Config) {
		c.Filters.Source = "csv"
		c.Output.SummaryReports = true
	})
	require.NoError(t, os.WriteFile(cfg.Sources.OrdersCSV, []byte(ordersCSV), 0o644))

	summary, err := New(cfg, nil).Run(context.Background())
	require.NoError(t, err)
	require.Len(t, summary.ReportPaths, 3)
	for _, p := range summary.ReportPaths {
		raw, err := os.ReadFile(p)
		require.NoError(t, err)
		assert.NotEmpty(t, raw)
	}
}

func TestRun_SampleFallbackCompletesEverySource(t *testing.T) {
	// No input files at all: the sample policy keeps every chain alive.
	cfg := testConfig(t, func(c *config.Config) {
		c.Filters.Source = "all"
		c.Runtime.Concurrency = 8
	})

	summary, err := New(cfg, nil).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, pipeline.RunCompleted, summary.Status)
	for _, run := range summary.Runs {
		assert.Equal(t, pipeline.RunCompleted, run.Status, run.Source)
	}
	assert.Positive(t, summary.DurationMax)
}
