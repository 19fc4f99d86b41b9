package sources

import (
	"fmt"
	"time"

	"salesetl/internal/dataset"
	"salesetl/internal/extract"
	"salesetl/internal/pipeline"
)

// fallback serves sample data when the source is unavailable and policy
// allows it, otherwise surfaces the cause as the extract failure.
func fallback(source string, rc *pipeline.RunContext, cause error) (*dataset.Table, error) {
	if rc.Config.Sources.Fallback == "sample" {
		return extract.ApplyFilters(extract.SampleOrders(source, rc.EndDate), rc), nil
	}
	return nil, fmt.Errorf("%s source unavailable: %w", source, cause)
}

// normalizeRow coerces a decoded record into the canonical order row types:
// order_date becomes time.Time, quantity int, unit_price/discount float64.
func normalizeRow(m map[string]any) (dataset.Row, error) {
	row := make(dataset.Row, len(m))
	for k, v := range m {
		row[k] = v
	}

	if raw, ok := row["order_date"]; ok {
		switch d := raw.(type) {
		case time.Time:
		case string:
			parsed, err := time.Parse(dataset.DateLayout, d)
			if err != nil {
				return nil, fmt.Errorf("invalid order_date %q: expected YYYY-MM-DD", d)
			}
			row["order_date"] = parsed
		default:
			return nil, fmt.Errorf("invalid order_date type %T", raw)
		}
	}

	if raw, ok := row["quantity"]; ok {
		switch n := raw.(type) {
		case int:
		case int64:
			row["quantity"] = int(n)
		case float64:
			row["quantity"] = int(n)
		default:
			return nil, fmt.Errorf("invalid quantity type %T", raw)
		}
	}

	for _, col := range []string{"unit_price", "discount"} {
		raw, ok := row[col]
		if !ok {
			continue
		}
		switch n := raw.(type) {
		case float64:
		case int:
			row[col] = float64(n)
		case int64:
			row[col] = float64(n)
		default:
			return nil, fmt.Errorf("invalid %s type %T", col, raw)
		}
	}

	return row, nil
}
