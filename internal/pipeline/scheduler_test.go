package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// orderRecorder builds task bodies that log their own start order.
type orderRecorder struct {
	mu    sync.Mutex
	order []string
}

func (r *orderRecorder) body(name string, err error) TaskFunc {
	return func(ctx context.Context, rc *RunContext, in Inputs) (any, error) {
		r.mu.Lock()
		r.order = append(r.order, name)
		r.mu.Unlock()
		if err != nil {
			return nil, err
		}
		return name, nil
	}
}

func (r *orderRecorder) indexOf(name string) int {
	for i, n := range r.order {
		if n == name {
			return i
		}
	}
	return -1
}

func newScheduler(t *testing.T, workers int) *Scheduler {
	t.Helper()
	s, err := NewScheduler(workers)
	if err != nil {
		t.Fatalf("NewScheduler(%d): %v", workers, err)
	}
	return s
}

func TestScheduler_RejectsBadWorkerCount(t *testing.T) {
	for _, workers := range []int{0, -1} {
		if _, err := NewScheduler(workers); err == nil {
			t.Fatalf("NewScheduler(%d) must fail", workers)
		}
	}
}

func TestScheduler_RespectsDependencyOrder(t *testing.T) {
	// Diamond: extract -> {transform, validate} -> load.
	rec := &orderRecorder{}
	g := NewTaskGraph()
	mustAdd(t, g, NewTask("extract", nil, rec.body("extract", nil)))
	mustAdd(t, g, NewTask("transform", []string{"extract"}, rec.body("transform", nil)))
	mustAdd(t, g, NewTask("validate", []string{"extract"}, rec.body("validate", nil)))
	mustAdd(t, g, NewTask("load", []string{"transform", "validate"}, rec.body("load", nil)))

	results, err := newScheduler(t, 4).Execute(context.Background(), g, nil)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	for _, name := range []string{"extract", "transform", "validate", "load"} {
		if !results.Succeeded(name) {
			t.Fatalf("%s did not succeed: %+v", name, results.Outcomes[name])
		}
	}
	if rec.indexOf("extract") > rec.indexOf("transform") ||
		rec.indexOf("extract") > rec.indexOf("validate") ||
		rec.indexOf("transform") > rec.indexOf("load") ||
		rec.indexOf("validate") > rec.indexOf("load") {
		t.Fatalf("execution order violates dependencies: %v", rec.order)
	}
}

func TestScheduler_FailureSkipsDependentsOnly(t *testing.T) {
	boom := errors.New("malformed file")
	rec := &orderRecorder{}
	g := NewTaskGraph()
	// Failing chain.
	mustAdd(t, g, NewTask("extract_pdf", nil, rec.body("extract_pdf", boom)))
	mustAdd(t, g, NewTask("transform_pdf", []string{"extract_pdf"}, rec.body("transform_pdf", nil)))
	mustAdd(t, g, NewTask("load_pdf", []string{"transform_pdf"}, rec.body("load_pdf", nil)))
	// Healthy sibling chain.
	mustAdd(t, g, NewTask("extract_csv", nil, rec.body("extract_csv", nil)))
	mustAdd(t, g, NewTask("load_csv", []string{"extract_csv"}, rec.body("load_csv", nil)))

	results, err := newScheduler(t, 2).Execute(context.Background(), g, nil)
	if err != nil {
		t.Fatalf("a task failure must not fail Execute, got %v", err)
	}

	if got := results.Outcomes["extract_pdf"].Status; got != StatusFailed {
		t.Fatalf("extract_pdf status = %s, want FAILED", got)
	}
	for _, name := range []string{"transform_pdf", "load_pdf"} {
		oc := results.Outcomes[name]
		if oc.Status != StatusSkipped {
			t.Fatalf("%s status = %s, want SKIPPED", name, oc.Status)
		}
		if oc.Err == nil {
			t.Fatalf("%s must carry a skip reason", name)
		}
		if oc.Executed {
			t.Fatalf("%s body must not run", name)
		}
	}
	// The skip reason names the failed dependency.
	if got := results.Outcomes["transform_pdf"].Err.Error(); !errors.Is(results.Outcomes["transform_pdf"].Err, boom) && got == "" {
		t.Fatalf("skip reason should chain to the root failure, got %q", got)
	}

	for _, name := range []string{"extract_csv", "load_csv"} {
		if !results.Succeeded(name) {
			t.Fatalf("healthy chain task %s did not succeed", name)
		}
	}
}

func TestScheduler_TolerantTaskRunsOnPartialFailure(t *testing.T) {
	boom := errors.New("boom")
	var gotInputs Inputs
	g := NewTaskGraph()
	mustAdd(t, g, NewTask("load_csv", nil, func(ctx context.Context, rc *RunContext, in Inputs) (any, error) {
		return "csv-data", nil
	}))
	mustAdd(t, g, NewTask("load_pdf", nil, func(ctx context.Context, rc *RunContext, in Inputs) (any, error) {
		return nil, boom
	}))
	mustAdd(t, g, NewTask("aggregate", []string{"load_csv", "load_pdf"}, func(ctx context.Context, rc *RunContext, in Inputs) (any, error) {
		gotInputs = in
		return len(in), nil
	}, WithToleratedFailures()))

	results, err := newScheduler(t, 2).Execute(context.Background(), g, nil)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !results.Succeeded("aggregate") {
		t.Fatalf("tolerant task must run despite a failed dependency: %+v", results.Outcomes["aggregate"])
	}
	if _, ok := gotInputs["load_pdf"]; ok {
		t.Fatalf("failed dependency must be absent from inputs")
	}
	if v := gotInputs["load_csv"]; v != "csv-data" {
		t.Fatalf("inputs[load_csv] = %v, want csv-data", v)
	}
}

func TestScheduler_InputsCarryDependencyResults(t *testing.T) {
	g := NewTaskGraph()
	mustAdd(t, g, NewTask("extract", nil, func(ctx context.Context, rc *RunContext, in Inputs) (any, error) {
		return 7, nil
	}))
	mustAdd(t, g, NewTask("transform", []string{"extract"}, func(ctx context.Context, rc *RunContext, in Inputs) (any, error) {
		n, _ := in["extract"].(int)
		return n * 6, nil
	}))

	results, err := newScheduler(t, 1).Execute(context.Background(), g, nil)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if got := results.Outcomes["transform"].Result; got != 42 {
		t.Fatalf("transform result = %v, want 42", got)
	}
}

func TestScheduler_TargetsRunOnlyTheClosure(t *testing.T) {
	rec := &orderRecorder{}
	g := NewTaskGraph()
	mustAdd(t, g, NewTask("extract_csv", nil, rec.body("extract_csv", nil)))
	mustAdd(t, g, NewTask("transform_csv", []string{"extract_csv"}, rec.body("transform_csv", nil)))
	mustAdd(t, g, NewTask("extract_xml", nil, rec.body("extract_xml", nil)))

	results, err := newScheduler(t, 2).Execute(context.Background(), g, nil, "transform_csv")
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if len(results.Outcomes) != 2 {
		t.Fatalf("closure of transform_csv has 2 tasks, got %d", len(results.Outcomes))
	}
	if _, ok := results.Outcomes["extract_xml"]; ok {
		t.Fatalf("extract_xml is outside the target closure")
	}
	if rec.indexOf("extract_xml") != -1 {
		t.Fatalf("extract_xml body must not run")
	}
}

func TestScheduler_UnknownTargetFails(t *testing.T) {
	g := NewTaskGraph()
	mustAdd(t, g, NewTask("extract_csv", nil, noop))

	if _, err := newScheduler(t, 1).Execute(context.Background(), g, nil, "extract_nope"); err == nil {
		t.Fatalf("expected unknown target error")
	}
}

func TestScheduler_MemoizesAcrossExecuteCalls(t *testing.T) {
	var calls int32
	g := NewTaskGraph()
	mustAdd(t, g, NewTask("extract", nil, func(ctx context.Context, rc *RunContext, in Inputs) (any, error) {
		atomic.AddInt32(&calls, 1)
		return "table", nil
	}))
	mustAdd(t, g, NewTask("transform", []string{"extract"}, noop))
	mustAdd(t, g, NewTask("report", []string{"extract"}, noop))

	sched := newScheduler(t, 2)
	if _, err := sched.Execute(context.Background(), g, nil, "transform"); err != nil {
		t.Fatalf("first Execute: %v", err)
	}
	results, err := sched.Execute(context.Background(), g, nil, "report")
	if err != nil {
		t.Fatalf("second Execute: %v", err)
	}

	if atomic.LoadInt32(&calls) != 1 {
		t.Fatalf("extract ran %d times across executions, want 1", calls)
	}
	oc := results.Outcomes["extract"]
	if oc.Status != StatusSucceeded || oc.Result != "table" {
		t.Fatalf("memoized outcome = %+v", oc)
	}
	if oc.Executed {
		t.Fatalf("memoized task must not be marked executed in the second run")
	}
}

func TestScheduler_BoundsConcurrency(t *testing.T) {
	const workers = 4
	var running, peak int32
	g := NewTaskGraph()
	for i := 0; i < 100; i++ {
		mustAdd(t, g, NewTask(fmt.Sprintf("task_%03d", i), nil, func(ctx context.Context, rc *RunContext, in Inputs) (any, error) {
			now := atomic.AddInt32(&running, 1)
			for {
				old := atomic.LoadInt32(&peak)
				if now <= old || atomic.CompareAndSwapInt32(&peak, old, now) {
					break
				}
			}
			time.Sleep(time.Millisecond)
			atomic.AddInt32(&running, -1)
			return nil, nil
		}))
	}

	results, err := newScheduler(t, workers).Execute(context.Background(), g, nil)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if len(results.Outcomes) != 100 {
		t.Fatalf("settled %d tasks, want 100", len(results.Outcomes))
	}
	for name := range results.Outcomes {
		if !results.Succeeded(name) {
			t.Fatalf("%s did not succeed", name)
		}
	}
	if p := atomic.LoadInt32(&peak); p > workers {
		t.Fatalf("observed %d concurrent bodies, cap is %d", p, workers)
	}
}

func TestScheduler_SequentialModeIsDeterministic(t *testing.T) {
	build := func(rec *orderRecorder) *TaskGraph {
		g := NewTaskGraph()
		mustAdd(t, g, NewTask("extract", nil, rec.body("extract", nil)))
		mustAdd(t, g, NewTask("transform", []string{"extract"}, rec.body("transform", nil)))
		mustAdd(t, g, NewTask("validate", []string{"transform"}, rec.body("validate", nil)))
		mustAdd(t, g, NewTask("load", []string{"validate"}, rec.body("load", nil)))
		return g
	}

	var first []string
	for i := 0; i < 3; i++ {
		rec := &orderRecorder{}
		if _, err := newScheduler(t, 1).Execute(context.Background(), build(rec), nil); err != nil {
			t.Fatalf("Execute: %v", err)
		}
		if first == nil {
			first = rec.order
			continue
		}
		if len(rec.order) != len(first) {
			t.Fatalf("run %d order %v, want %v", i, rec.order, first)
		}
		for j := range first {
			if rec.order[j] != first[j] {
				t.Fatalf("run %d order %v, want %v", i, rec.order, first)
			}
		}
	}
}

func TestScheduler_CancellationSkipsUnstartedTasks(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	entered := make(chan struct{})
	release := make(chan struct{})

	g := NewTaskGraph()
	mustAdd(t, g, NewTask("slow", nil, func(ctx context.Context, rc *RunContext, in Inputs) (any, error) {
		close(entered)
		<-release
		return "finished", nil
	}))
	mustAdd(t, g, NewTask("after_slow", []string{"slow"}, noop))

	done := make(chan struct{})
	var results *Results
	var execErr error
	go func() {
		defer close(done)
		results, execErr = newScheduler(t, 1).Execute(ctx, g, nil)
	}()

	<-entered
	cancel()
	// The running body is never force-killed; let it finish.
	close(release)
	<-done

	if !errors.Is(execErr, context.Canceled) {
		t.Fatalf("Execute error = %v, want context.Canceled", execErr)
	}
	// The in-flight task ran to completion.
	oc, ok := results.Outcomes["slow"]
	if !ok || oc.Status != StatusSucceeded || oc.Result != "finished" {
		t.Fatalf("slow outcome = %+v, want SUCCEEDED", oc)
	}
	// The unstarted dependent was skipped and excluded from the results.
	if _, ok := results.Outcomes["after_slow"]; ok {
		t.Fatalf("canceled task must be excluded from results")
	}
	task, _ := g.Task("after_slow")
	if got := task.Status(); got != StatusSkipped {
		t.Fatalf("after_slow status = %s, want SKIPPED", got)
	}
}

func TestScheduler_NilArguments(t *testing.T) {
	g := NewTaskGraph()
	mustAdd(t, g, NewTask("a", nil, noop))
	sched := newScheduler(t, 1)

	if _, err := sched.Execute(nil, g, nil); err == nil { //nolint:staticcheck
		t.Fatalf("nil context must be rejected")
	}
	if _, err := sched.Execute(context.Background(), nil, nil); err == nil {
		t.Fatalf("nil graph must be rejected")
	}
}
