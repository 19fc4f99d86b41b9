package sources

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"strconv"

	"salesetl/internal/dataset"
	"salesetl/internal/extract"
	"salesetl/internal/pipeline"
)

func init() {
	extract.Register(&csvExtractor{})
}

// csvExtractor reads the orders CSV export. The first record is the header;
// numeric and date columns are coerced into their canonical types.
type csvExtractor struct{}

func (e *csvExtractor) Source() string { return "csv" }

func (e *csvExtractor) Extract(ctx context.Context, rc *pipeline.RunContext) (*dataset.Table, error) {
	path := rc.Config.Sources.OrdersCSV
	f, err := os.Open(path)
	if err != nil {
		return fallback(e.Source(), rc, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("parse %s: missing header row", path)
	}

	header := records[0]
	t := dataset.New(header...)
	for i, record := range records[1:] {
		raw := make(map[string]any, len(header))
		for j, col := range header {
			if j >= len(record) {
				continue
			}
			raw[col] = coerceCSVCell(col, record[j])
		}
		row, err := normalizeRow(raw)
		if err != nil {
			return nil, fmt.Errorf("parse %s row %d: %w", path, i+2, err)
		}
		t.Append(row)
	}

	return extract.ApplyFilters(t, rc), nil
}

// coerceCSVCell turns known numeric columns into numbers; everything else
// stays a string (normalizeRow handles dates).
func coerceCSVCell(col, cell string) any {
	switch col {
	case "quantity":
		if n, err := strconv.Atoi(cell); err == nil {
			return n
		}
	case "unit_price", "discount":
		if f, err := strconv.ParseFloat(cell, 64); err == nil {
			return f
		}
	}
	return cell
}
