package sources

import (
	"context"
	"fmt"
	"os"

	"github.com/ohler55/ojg/oj"

	"salesetl/internal/dataset"
	"salesetl/internal/extract"
	"salesetl/internal/pipeline"
)

func init() {
	extract.Register(&jsonExtractor{})
}

// jsonExtractor reads the products/orders JSON export: either a top-level
// array of order objects, or an object with an "orders" array.
type jsonExtractor struct{}

func (e *jsonExtractor) Source() string { return "json" }

func (e *jsonExtractor) Extract(ctx context.Context, rc *pipeline.RunContext) (*dataset.Table, error) {
	path := rc.Config.Sources.ProductsJSON
	raw, err := os.ReadFile(path)
	if err != nil {
		return fallback(e.Source(), rc, err)
	}

	parsed, err := oj.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	t, err := tableFromJSON(parsed)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return extract.ApplyFilters(t, rc), nil
}

// tableFromJSON converts a decoded JSON document into an order table.
func tableFromJSON(doc any) (*dataset.Table, error) {
	var records []any
	switch d := doc.(type) {
	case []any:
		records = d
	case map[string]any:
		inner, ok := d["orders"].([]any)
		if !ok {
			return nil, fmt.Errorf("expected an array of orders or an object with an %q array", "orders")
		}
		records = inner
	default:
		return nil, fmt.Errorf("expected an array of orders, got %T", doc)
	}

	t := dataset.New(extract.OrderColumns...)
	for i, rec := range records {
		m, ok := rec.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("order %d: expected an object, got %T", i, rec)
		}
		row, err := normalizeRow(m)
		if err != nil {
			return nil, fmt.Errorf("order %d: %w", i, err)
		}
		t.Append(row)
	}
	return t, nil
}
