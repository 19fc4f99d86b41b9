// Package load writes processed datasets and markdown reports to disk.
package load

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ohler55/ojg/oj"

	"salesetl/internal/dataset"
)

// DestinationSpec names where and how a dataset is written. One file per
// format, <Name>.<format>, under Dir.
type DestinationSpec struct {
	Dir     string
	Name    string
	Formats []string
}

// FileLoader exports tables as csv, json, or ndjson files.
type FileLoader struct{}

// Load writes the table to every format in the spec and returns the paths
// written. Partial output may remain on disk when an error is returned.
func (FileLoader) Load(ctx context.Context, t *dataset.Table, dst DestinationSpec) ([]string, error) {
	if t == nil {
		return nil, fmt.Errorf("nil input table")
	}
	if dst.Name == "" {
		return nil, fmt.Errorf("destination name is empty")
	}
	if err := os.MkdirAll(dst.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	var paths []string
	for _, format := range dst.Formats {
		if err := ctx.Err(); err != nil {
			return paths, err
		}
		path := filepath.Join(dst.Dir, dst.Name+"."+format)
		var err error
		switch format {
		case "csv":
			err = writeCSV(path, t)
		case "json":
			err = writeJSON(path, t)
		case "ndjson":
			err = writeNDJSON(path, t)
		default:
			err = fmt.Errorf("unsupported format: %s", format)
		}
		if err != nil {
			return paths, fmt.Errorf("write %s: %w", path, err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}

func writeCSV(path string, t *dataset.Table) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(t.Columns); err != nil {
		return err
	}
	record := make([]string, len(t.Columns))
	for _, r := range t.Rows {
		for i, col := range t.Columns {
			record[i] = dataset.CellString(r[col])
		}
		if err := w.Write(record); err != nil {
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return err
	}
	return f.Close()
}

func writeJSON(path string, t *dataset.Table) error {
	raw, err := oj.Marshal(exportRows(t), 2)
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(raw, '\n'), 0o644)
}

func writeNDJSON(path string, t *dataset.Table) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	for _, r := range exportRows(t) {
		raw, err := oj.Marshal(r)
		if err != nil {
			return err
		}
		if _, err := f.Write(append(raw, '\n')); err != nil {
			return err
		}
	}
	return f.Close()
}

// exportRows projects rows onto the declared columns with dates rendered in
// the wire layout, so the JSON exports round-trip through the db extractor.
func exportRows(t *dataset.Table) []map[string]any {
	out := make([]map[string]any, 0, len(t.Rows))
	for _, r := range t.Rows {
		m := make(map[string]any, len(t.Columns))
		for _, col := range t.Columns {
			v, ok := r[col]
			if !ok {
				continue
			}
			if ts, isTime := v.(time.Time); isTime {
				m[col] = ts.Format(dataset.DateLayout)
			} else {
				m[col] = v
			}
		}
		out = append(out, m)
	}
	return out
}
