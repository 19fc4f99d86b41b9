package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/fatih/color"
)

var statusColors = map[string]*color.Color{
	"SUCCEEDED": color.New(color.FgGreen),
	"FAILED":    color.New(color.FgRed),
	"SKIPPED":   color.New(color.FgYellow),
}

type ConsoleSink struct {
	writer          io.Writer
	format          string // "text", "json", "ndjson"
	mu              sync.Mutex
	results         []Result // For JSON array output
	allowedStatuses map[string]bool
}

func NewConsoleSink(w io.Writer, format string, filterStatuses []string) *ConsoleSink {
	if w == nil {
		w = os.Stdout
	}
	if format == "" {
		format = "text"
	}

	s := &ConsoleSink{
		writer: w,
		format: format,
	}

	if len(filterStatuses) > 0 {
		s.allowedStatuses = make(map[string]bool)
		for _, st := range filterStatuses {
			s.allowedStatuses[strings.ToUpper(st)] = true
		}
	}

	return s
}

func (s *ConsoleSink) Write(v any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writeLocked(v)
}

func (s *ConsoleSink) writeLocked(v any) error {
	// Apply filtering if configured
	if len(s.allowedStatuses) > 0 {
		if r, ok := v.(Result); ok {
			if !s.allowedStatuses[r.Status] {
				return nil
			}
		}
	}

	switch s.format {
	case "json":
		r, ok := v.(Result)
		if !ok {
			// Ignore non-result events in JSON console mode.
			return nil
		}
		s.results = append(s.results, r)
		return nil
	case "ndjson":
		encoder := json.NewEncoder(s.writer)
		switch t := v.(type) {
		case Event:
			if err := encoder.Encode(t); err != nil {
				return err
			}
			return flushIfPossible(s.writer)
		case Result:
			if err := encoder.Encode(eventFromResult(t)); err != nil {
				return err
			}
			return flushIfPossible(s.writer)
		default:
			return nil
		}
	case "text":
		r, ok := v.(Result)
		if !ok {
			// Ignore lifecycle events in text mode.
			return nil
		}
		status := r.Status
		if c, ok := statusColors[status]; ok {
			status = c.Sprint(status)
		}
		if _, err := fmt.Fprintf(s.writer, "[%s] %s/%s", status, r.Source, r.Stage); err != nil {
			return err
		}
		if r.Message != "" {
			if _, err := fmt.Fprintf(s.writer, " - %s", r.Message); err != nil {
				return err
			}
		}
		if _, err := fmt.Fprintln(s.writer); err != nil {
			return err
		}
		return flushIfPossible(s.writer)
	default:
		return fmt.Errorf("unsupported console format: %s", s.format)
	}
}

func (s *ConsoleSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.format == "json" {
		encoder := json.NewEncoder(s.writer)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(s.results); err != nil {
			return err
		}
		return flushIfPossible(s.writer)
	}
	if s.format != "text" && s.format != "ndjson" {
		return fmt.Errorf("unsupported console format: %s", s.format)
	}
	return nil
}
