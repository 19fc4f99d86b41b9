// Package orchestrator drives a full ETL run: it builds the per-source task
// chains, executes them through the scheduler, and turns the results into
// output events, reports, and an exit code.
package orchestrator

import (
	"context"
	"fmt"

	hdrhistogram "github.com/HdrHistogram/hdrhistogram-go"

	"salesetl/internal/config"
	"salesetl/internal/load"
	"salesetl/internal/output"
	"salesetl/internal/pipeline"
)

// Exit codes for the run command.
const (
	ExitOK    = 0 // run completed, possibly with failed chains
	ExitError = 1 // every chain failed
	ExitFatal = 2 // config or graph construction error, nothing ran
)

// Failure is one (source, stage, error) triple from a run.
type Failure struct {
	Source string `json:"source"`
	Stage  string `json:"stage"`
	Error  string `json:"error"`
}

// RunSummary is the final account of one orchestrator run.
type RunSummary struct {
	Status      pipeline.RunStatus      `json:"status"`
	Runs        []*pipeline.PipelineRun `json:"runs"`
	Failures    []Failure               `json:"failures,omitempty"`
	ReportPaths []string                `json:"report_paths,omitempty"`

	// Task duration percentiles over executed task bodies, in milliseconds.
	DurationP50 int64 `json:"duration_p50_ms"`
	DurationP95 int64 `json:"duration_p95_ms"`
	DurationMax int64 `json:"duration_max_ms"`
}

// ExitCode maps the run status to the process exit code. A partially failed
// run still exits 0; the failures are in the summary and the report.
func (s *RunSummary) ExitCode() int {
	if s == nil || s.Status == pipeline.RunFailed {
		return ExitError
	}
	return ExitOK
}

// Orchestrator runs the ETL pipeline for the configured sources.
type Orchestrator struct {
	cfg *config.Config
	out *output.Manager
}

func New(cfg *config.Config, out *output.Manager) *Orchestrator {
	return &Orchestrator{cfg: cfg, out: out}
}

// Run executes every active source chain plus the aggregation task.
//
// A chain failure never aborts the run; it is recorded in the summary and the
// remaining chains continue. A non-nil error means either nothing ran (graph
// or config problem) or the run was canceled; in the latter case the partial
// summary is returned alongside the error.
func (o *Orchestrator) Run(ctx context.Context) (*RunSummary, error) {
	rc := &pipeline.RunContext{
		Config:          o.cfg,
		Source:          o.cfg.Filters.Source,
		Platform:        o.cfg.Filters.Platform,
		StartDate:       o.cfg.Filters.Start,
		EndDate:         o.cfg.Filters.End,
		ProductCategory: o.cfg.Filters.ProductCategory,
		CustomerSegment: o.cfg.Filters.CustomerSegment,
	}

	g, err := o.buildGraph(rc)
	if err != nil {
		return nil, err
	}
	sched, err := pipeline.NewScheduler(o.cfg.Runtime.Concurrency)
	if err != nil {
		return nil, err
	}

	sources := o.cfg.ActiveSources()
	o.emit(output.Event{Type: "run.started", Sources: len(sources), Tasks: g.Len()})

	runs := make(map[string]*pipeline.PipelineRun, len(sources))
	for _, source := range sources {
		runs[source] = pipeline.NewPipelineRun(source)
		runs[source].Begin()
	}

	results, execErr := sched.Execute(ctx, g, rc)
	if results == nil {
		return nil, execErr
	}

	hist := hdrhistogram.New(1, 3_600_000, 3)
	summary := &RunSummary{}

	completedSources := 0
	failedSources := 0
	for _, source := range sources {
		o.emit(output.Event{Type: "source.started", Source: source})

		var outcomes []pipeline.TaskOutcome
		succeeded, settled := 0, 0
		for _, stage := range stages {
			oc, ok := results.Outcomes[taskName(stage, source)]
			if !ok {
				continue
			}
			settled++
			outcome := pipeline.TaskOutcome{
				Task:     oc.Task,
				Source:   source,
				Stage:    stage,
				Status:   oc.Status,
				Duration: oc.Duration,
			}
			if oc.Err != nil {
				outcome.Error = oc.Err.Error()
			}
			outcomes = append(outcomes, outcome)

			switch oc.Status {
			case pipeline.StatusSucceeded:
				succeeded++
			case pipeline.StatusFailed:
				summary.Failures = append(summary.Failures, Failure{Source: source, Stage: stage, Error: outcome.Error})
			}
			if oc.Executed {
				ms := oc.Duration.Milliseconds()
				if ms < 1 {
					ms = 1
				}
				_ = hist.RecordValue(ms)
			}
			o.emit(resultFor(source, stage, oc))
		}

		status := pipeline.RunFailed
		switch {
		case settled > 0 && succeeded == settled:
			status = pipeline.RunCompleted
			completedSources++
		case succeeded > 0:
			status = pipeline.RunPartiallyFailed
		default:
			failedSources++
		}
		runs[source].Finalize(outcomes, status)
		summary.Runs = append(summary.Runs, runs[source])
		o.emit(output.Event{Type: "source.finished", Source: source, Status: string(status)})
	}

	if oc, ok := results.Outcomes[aggregateTask]; ok {
		if oc.Status == pipeline.StatusFailed {
			summary.Failures = append(summary.Failures, Failure{Source: "all", Stage: aggregateTask, Error: oc.Err.Error()})
		}
		if oc.Executed {
			ms := oc.Duration.Milliseconds()
			if ms < 1 {
				ms = 1
			}
			_ = hist.RecordValue(ms)
		}
		o.emit(resultFor("all", aggregateTask, oc))
	}

	switch {
	case completedSources == len(sources):
		summary.Status = pipeline.RunCompleted
	case failedSources == len(sources):
		summary.Status = pipeline.RunFailed
	default:
		summary.Status = pipeline.RunPartiallyFailed
	}

	if o.cfg.Output.SummaryReports {
		o.generateSummaryReports(results, summary)
	}

	if hist.TotalCount() > 0 {
		summary.DurationP50 = hist.ValueAtQuantile(50)
		summary.DurationP95 = hist.ValueAtQuantile(95)
		summary.DurationMax = hist.Max()
	}
	o.emit(output.Event{
		Type:        "run.finished",
		Status:      string(summary.Status),
		ExitCode:    summary.ExitCode(),
		Sources:     len(sources),
		Tasks:       len(results.Outcomes),
		DurationP50: summary.DurationP50,
		DurationP95: summary.DurationP95,
		DurationMax: summary.DurationMax,
	})

	return summary, execErr
}

// generateSummaryReports writes the business reports over the aggregated
// dataset. Report generation problems are recorded as failures but never
// change the run status: the pipeline itself already finished.
func (o *Orchestrator) generateSummaryReports(results *pipeline.Results, summary *RunSummary) {
	oc, ok := results.Outcomes[aggregateTask]
	if !ok || oc.Status != pipeline.StatusSucceeded {
		return
	}
	sd, ok := oc.Result.(*stageData)
	if !ok || sd.Data == nil {
		return
	}
	gen := load.ReportGenerator{Dir: o.cfg.Load.ReportDir}
	for _, kind := range load.SummaryKinds {
		path, err := gen.GenerateSummary(kind, sd.Data)
		if err != nil {
			summary.Failures = append(summary.Failures, Failure{Source: "all", Stage: "summary_report", Error: fmt.Sprintf("%s: %v", kind, err)})
			continue
		}
		summary.ReportPaths = append(summary.ReportPaths, path)
	}
}

// resultFor converts a scheduler outcome into the sink-facing record.
func resultFor(source, stage string, oc pipeline.Outcome) output.Result {
	r := output.Result{
		Task:       oc.Task,
		Source:     source,
		Stage:      stage,
		Status:     string(oc.Status),
		DurationMS: oc.Duration.Milliseconds(),
	}
	switch {
	case oc.Err != nil:
		r.Message = oc.Err.Error()
	default:
		if sd, ok := oc.Result.(*stageData); ok && sd.Data != nil {
			r.Message = fmt.Sprintf("%d rows", sd.Data.Len())
		}
	}
	return r
}

func (o *Orchestrator) emit(v any) {
	if o.out == nil {
		return
	}
	_ = o.out.Write(v)
}
