package output

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"
)

// ReportSink aggregates task results and writes a Markdown run report on
// Close.
type ReportSink struct {
	path      string
	file      *os.File
	mu        sync.Mutex
	results   []Result
	sources   map[string]struct{}
	runStatus string
	exitCode  int
	p50, p95  int64
	max       int64
}

func NewReportSink(path string) (*ReportSink, error) {
	if path == "" {
		return nil, fmt.Errorf("report path required")
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create report file: %w", err)
	}

	return &ReportSink{
		path:    path,
		file:    f,
		sources: make(map[string]struct{}),
	}, nil
}

func (s *ReportSink) Write(v any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch t := v.(type) {
	case Result:
		s.results = append(s.results, t)
		if t.Source != "" {
			s.sources[t.Source] = struct{}{}
		}
	case Event:
		if t.Source != "" {
			s.sources[t.Source] = struct{}{}
		}
		if t.Type == "run.finished" {
			s.runStatus = t.Status
			s.exitCode = t.ExitCode
			s.p50, s.p95, s.max = t.DurationP50, t.DurationP95, t.DurationMax
		}
	}
	return nil
}

type sourceStats struct {
	Source    string
	Succeeded int
	Failed    int
	Skipped   int
}

func (s *ReportSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var sources []string
	for src := range s.sources {
		sources = append(sources, src)
	}
	sort.Strings(sources)

	perSource := make(map[string]*sourceStats)
	for _, src := range sources {
		perSource[src] = &sourceStats{Source: src}
	}
	var failures []Result
	for _, r := range s.results {
		st, ok := perSource[r.Source]
		if !ok {
			continue
		}
		switch r.Status {
		case "SUCCEEDED":
			st.Succeeded++
		case "FAILED":
			st.Failed++
			failures = append(failures, r)
		case "SKIPPED":
			st.Skipped++
		}
	}

	var b strings.Builder
	b.WriteString("# Sales ETL Run Report\n\n")
	if s.runStatus != "" {
		fmt.Fprintf(&b, "Run status: **%s** (exit code %d)\n\n", s.runStatus, s.exitCode)
	}

	b.WriteString("## Sources\n\n")
	b.WriteString("| Source | Succeeded | Failed | Skipped |\n")
	b.WriteString("|--------|-----------|--------|---------|\n")
	for _, src := range sources {
		st := perSource[src]
		fmt.Fprintf(&b, "| %s | %d | %d | %d |\n", st.Source, st.Succeeded, st.Failed, st.Skipped)
	}
	b.WriteString("\n")

	if len(failures) > 0 {
		b.WriteString("## Failures\n\n")
		b.WriteString("| Source | Stage | Error |\n")
		b.WriteString("|--------|-------|-------|\n")
		for _, f := range failures {
			fmt.Fprintf(&b, "| %s | %s | %s |\n", f.Source, f.Stage, strings.ReplaceAll(f.Message, "|", "\\|"))
		}
		b.WriteString("\n")
	}

	if s.max > 0 {
		b.WriteString("## Task timing\n\n")
		fmt.Fprintf(&b, "- p50: %dms\n- p95: %dms\n- max: %dms\n", s.p50, s.p95, s.max)
	}

	_, werr := s.file.WriteString(b.String())
	cerr := s.file.Close()
	if werr != nil {
		return werr
	}
	return cerr
}
