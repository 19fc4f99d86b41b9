package pipeline

import (
	"time"

	"github.com/google/uuid"
)

// RunStatus is the overall outcome of a pipeline run.
type RunStatus string

const (
	RunPending RunStatus = "PENDING"
	RunRunning RunStatus = "RUNNING"

	// RunCompleted: all chains succeeded.
	RunCompleted RunStatus = "COMPLETED"

	// RunPartiallyFailed: at least one chain failed or was skipped and at
	// least one succeeded. One source's malformed file must never block
	// ingestion of the others.
	RunPartiallyFailed RunStatus = "PARTIALLY_FAILED"

	// RunFailed: all chains failed.
	RunFailed RunStatus = "FAILED"
)

// TaskOutcome records one task's final state inside a PipelineRun, with the
// source and stage it belongs to.
type TaskOutcome struct {
	Task     string        `json:"task"`
	Source   string        `json:"source"`
	Stage    string        `json:"stage"`
	Status   Status        `json:"status"`
	Error    string        `json:"error,omitempty"`
	Duration time.Duration `json:"duration"`
}

// PipelineRun is the per-invocation record for one source's pipeline. It is
// created when the orchestrator begins the source's chain, finalized when the
// scheduler returns, and immutable thereafter.
type PipelineRun struct {
	ID        string        `json:"id"`
	Source    string        `json:"source"`
	StartedAt time.Time     `json:"started_at"`
	EndedAt   time.Time     `json:"ended_at"`
	Outcomes  []TaskOutcome `json:"outcomes"`
	Status    RunStatus     `json:"status"`

	finalized bool
}

func NewPipelineRun(source string) *PipelineRun {
	return &PipelineRun{
		ID:     uuid.NewString(),
		Source: source,
		Status: RunPending,
	}
}

// Begin marks the run started.
func (r *PipelineRun) Begin() {
	if r.finalized {
		return
	}
	r.StartedAt = time.Now()
	r.Status = RunRunning
}

// Finalize records the ordered task outcomes and the overall status. Further
// calls are no-ops.
func (r *PipelineRun) Finalize(outcomes []TaskOutcome, status RunStatus) {
	if r.finalized {
		return
	}
	r.EndedAt = time.Now()
	r.Outcomes = outcomes
	r.Status = status
	r.finalized = true
}

// Failures returns the outcomes for failed tasks.
func (r *PipelineRun) Failures() []TaskOutcome {
	var out []TaskOutcome
	for _, o := range r.Outcomes {
		if o.Status == StatusFailed {
			out = append(out, o)
		}
	}
	return out
}
