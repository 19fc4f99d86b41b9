package output

// Result is the sink-facing record for one settled pipeline task.
type Result struct {
	Task       string `json:"task"`
	Source     string `json:"source"`
	Stage      string `json:"stage"`
	Status     string `json:"status"`
	Message    string `json:"message,omitempty"`
	DurationMS int64  `json:"duration_ms,omitempty"`
}

// Event is a lifecycle record for NDJSON streaming output.
//
// In NDJSON mode, sinks emit Events (one JSON object per line), including:
// - run.started
// - source.started
// - task.result
// - source.finished
// - run.finished
//
// JSON mode remains an aggregate of Result values.
type Event struct {
	Type   string `json:"type"`
	Source string `json:"source,omitempty"`
	*Result
	Sources  int    `json:"sources,omitempty"`
	Tasks    int    `json:"tasks,omitempty"`
	Status   string `json:"run_status,omitempty"`
	ExitCode int    `json:"exit_code,omitempty"`

	// Task duration percentiles, run.finished only (milliseconds).
	DurationP50 int64 `json:"duration_p50_ms,omitempty"`
	DurationP95 int64 `json:"duration_p95_ms,omitempty"`
	DurationMax int64 `json:"duration_max_ms,omitempty"`
}

func eventFromResult(r Result) Event {
	return Event{Type: "task.result", Source: r.Source, Result: &r}
}
