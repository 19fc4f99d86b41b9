package orchestrator

import (
	"context"
	"fmt"

	"salesetl/internal/dataset"
	"salesetl/internal/extract"
	"salesetl/internal/load"
	"salesetl/internal/pipeline"
	"salesetl/internal/transform"
	"salesetl/internal/validate"
)

// Stages, in chain order, for every source.
var stages = []string{"extract", "transform", "validate", "compute_metrics", "load", "report"}

// aggregateTask merges the loaded datasets of every source chain.
const aggregateTask = "aggregate"

// stageData is the payload passed down a source chain. Each stage fills in
// what it produced and forwards the rest unchanged.
type stageData struct {
	Data       *dataset.Table
	Metrics    *transform.Metrics
	Violations []validate.Violation
	Artifacts  []string
}

func taskName(stage, source string) string {
	return stage + "_" + source
}

// chainInput reads the upstream stage's payload out of the task inputs.
func chainInput(inputs pipeline.Inputs, dep string) (*stageData, error) {
	v, ok := inputs[dep]
	if !ok {
		return nil, fmt.Errorf("missing input from %s", dep)
	}
	sd, ok := v.(*stageData)
	if !ok {
		return nil, fmt.Errorf("unexpected input type %T from %s", v, dep)
	}
	return sd, nil
}

// buildGraph constructs one chain per active source plus the aggregation
// task. Task options (timeout) come from the run context's config.
func (o *Orchestrator) buildGraph(rc *pipeline.RunContext) (*pipeline.TaskGraph, error) {
	g := pipeline.NewTaskGraph()
	var opts []pipeline.TaskOption
	if d := rc.Config.Runtime.TaskTimeout; d > 0 {
		opts = append(opts, pipeline.WithTimeout(d))
	}

	var loadTasks []string
	for _, source := range rc.Config.ActiveSources() {
		source := source
		chain := []*pipeline.Task{
			pipeline.NewTask(taskName("extract", source), nil,
				o.stageBody(source, "extract", func(ctx context.Context, rc *pipeline.RunContext, _ *stageData) (*stageData, error) {
					ex, ok := extract.Lookup(source)
					if !ok {
						return nil, fmt.Errorf("no extractor registered for source %q", source)
					}
					t, err := ex.Extract(ctx, rc)
					if err != nil {
						return nil, err
					}
					return &stageData{Data: t}, nil
				}), opts...),

			pipeline.NewTask(taskName("transform", source), []string{taskName("extract", source)},
				o.stageBody(source, "transform", func(ctx context.Context, rc *pipeline.RunContext, in *stageData) (*stageData, error) {
					t, err := transform.SalesTransformer{}.Transform(in.Data)
					if err != nil {
						return nil, err
					}
					return &stageData{Data: t}, nil
				}), opts...),

			pipeline.NewTask(taskName("validate", source), []string{taskName("transform", source)},
				o.stageBody(source, "validate", func(ctx context.Context, rc *pipeline.RunContext, in *stageData) (*stageData, error) {
					cleaned, violations, err := validate.NewValidator(rc.Config.Validation).Validate(in.Data)
					if err != nil {
						return nil, err
					}
					return &stageData{Data: cleaned, Violations: violations}, nil
				}), opts...),

			pipeline.NewTask(taskName("compute_metrics", source), []string{taskName("validate", source)},
				o.stageBody(source, "compute_metrics", func(ctx context.Context, rc *pipeline.RunContext, in *stageData) (*stageData, error) {
					m, err := transform.MetricsCalculator{}.Calculate(in.Data)
					if err != nil {
						return nil, err
					}
					return &stageData{Data: in.Data, Metrics: m, Violations: in.Violations}, nil
				}), opts...),

			pipeline.NewTask(taskName("load", source), []string{taskName("compute_metrics", source)},
				o.stageBody(source, "load", func(ctx context.Context, rc *pipeline.RunContext, in *stageData) (*stageData, error) {
					paths, err := load.FileLoader{}.Load(ctx, in.Data, load.DestinationSpec{
						Dir:     rc.Config.Load.OutputDir,
						Name:    source + "_orders",
						Formats: rc.Config.Load.Formats,
					})
					if err != nil {
						return nil, err
					}
					out := *in
					out.Artifacts = paths
					return &out, nil
				}), opts...),

			pipeline.NewTask(taskName("report", source), []string{taskName("load", source)},
				o.stageBody(source, "report", func(ctx context.Context, rc *pipeline.RunContext, in *stageData) (*stageData, error) {
					gen := load.ReportGenerator{Dir: rc.Config.Load.ReportDir}
					path, err := gen.GenerateSource(source, in.Metrics, in.Violations)
					if err != nil {
						return nil, err
					}
					out := *in
					out.Artifacts = append(append([]string(nil), in.Artifacts...), path)
					return &out, nil
				}), opts...),
		}
		for _, t := range chain {
			if err := g.Add(t); err != nil {
				return nil, err
			}
		}
		loadTasks = append(loadTasks, taskName("load", source))
	}

	// The aggregation task waits for every load but tolerates failed chains:
	// it merges whatever subset actually loaded.
	agg := pipeline.NewTask(aggregateTask, loadTasks,
		func(ctx context.Context, rc *pipeline.RunContext, inputs pipeline.Inputs) (any, error) {
			var tables []*dataset.Table
			for _, dep := range loadTasks {
				if v, ok := inputs[dep]; ok {
					if sd, ok := v.(*stageData); ok {
						tables = append(tables, sd.Data)
					}
				}
			}
			if len(tables) == 0 {
				return nil, &pipeline.StageError{Source: "all", Stage: aggregateTask,
					Err: fmt.Errorf("no source chain produced a loaded dataset")}
			}
			return &stageData{Data: dataset.Merge(tables...)}, nil
		},
		append(opts, pipeline.WithToleratedFailures())...)
	if err := g.Add(agg); err != nil {
		return nil, err
	}
	return g, nil
}

// stageBody wraps a chain stage: it pulls the upstream payload out of the
// task inputs and tags failures with the (source, stage) pair.
func (o *Orchestrator) stageBody(source, stage string, fn func(context.Context, *pipeline.RunContext, *stageData) (*stageData, error)) pipeline.TaskFunc {
	return func(ctx context.Context, rc *pipeline.RunContext, inputs pipeline.Inputs) (any, error) {
		var in *stageData
		if stage != "extract" {
			prev := stages[stageIndex(stage)-1]
			var err error
			in, err = chainInput(inputs, taskName(prev, source))
			if err != nil {
				return nil, &pipeline.StageError{Source: source, Stage: stage, Err: err}
			}
		}
		out, err := fn(ctx, rc, in)
		if err != nil {
			return nil, &pipeline.StageError{Source: source, Stage: stage, Err: err}
		}
		return out, nil
	}
}

func stageIndex(stage string) int {
	for i, s := range stages {
		if s == stage {
			return i
		}
	}
	return -1
}
