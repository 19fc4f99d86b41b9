package sources

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/ohler55/ojg/oj"

	"salesetl/internal/dataset"
	"salesetl/internal/extract"
	"salesetl/internal/pipeline"
)

func init() {
	extract.Register(&dbExtractor{})
}

// dbExtractor reads the historical orders store, an NDJSON file with one
// order object per line.
type dbExtractor struct{}

func (e *dbExtractor) Source() string { return "db" }

func (e *dbExtractor) Extract(ctx context.Context, rc *pipeline.RunContext) (*dataset.Table, error) {
	path := rc.Config.Sources.HistoricalDB
	f, err := os.Open(path)
	if err != nil {
		return fallback(e.Source(), rc, err)
	}
	defer f.Close()

	t := dataset.New(extract.OrderColumns...)
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" {
			continue
		}
		parsed, err := oj.ParseString(text)
		if err != nil {
			return nil, fmt.Errorf("parse %s line %d: %w", path, line, err)
		}
		m, ok := parsed.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("parse %s line %d: expected an object, got %T", path, line, parsed)
		}
		row, err := normalizeRow(m)
		if err != nil {
			return nil, fmt.Errorf("parse %s line %d: %w", path, line, err)
		}
		t.Append(row)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return extract.ApplyFilters(t, rc), nil
}
