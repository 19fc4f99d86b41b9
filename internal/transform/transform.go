// Package transform reshapes extracted order tables into the structured
// datasets the load and report stages consume.
package transform

import (
	"fmt"
	"math"

	"salesetl/internal/dataset"
)

// Transformer reshapes one table into another. Implementations must not
// mutate the input; Clone before rewriting cells.
type Transformer interface {
	Name() string
	Transform(t *dataset.Table) (*dataset.Table, error)
}

// SalesTransformer derives the analysis columns on the canonical order
// table: calendar breakdown of the order date, the discounted line total,
// and Unknown placeholders for missing categoricals.
type SalesTransformer struct{}

func (SalesTransformer) Name() string { return "sales" }

func (SalesTransformer) Transform(t *dataset.Table) (*dataset.Table, error) {
	if t == nil {
		return nil, fmt.Errorf("nil input table")
	}
	out := t.Clone()
	for _, col := range []string{"order_year", "order_month", "order_quarter", "total_price"} {
		if !out.HasColumn(col) {
			out.Columns = append(out.Columns, col)
		}
	}

	for i, r := range out.Rows {
		if ts, ok := dataset.RowTime(r, "order_date"); ok {
			r["order_date"] = ts
			r["order_year"] = ts.Year()
			r["order_month"] = int(ts.Month())
			r["order_quarter"] = (int(ts.Month())-1)/3 + 1
		} else {
			return nil, fmt.Errorf("row %d: missing or invalid order_date", i)
		}

		qty, _ := dataset.RowInt(r, "quantity")
		price, _ := dataset.RowFloat(r, "unit_price")
		discount, _ := dataset.RowFloat(r, "discount")
		if discount < 0 {
			discount = 0
		}
		if discount > 1 {
			discount = 1
		}
		r["discount"] = discount
		r["total_price"] = round2(float64(qty) * price * (1 - discount))

		for _, col := range []string{"product_category", "product_name", "customer_segment"} {
			if s, ok := dataset.RowString(r, col); !ok || s == "" {
				r[col] = "Unknown"
			}
		}
	}
	return out, nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
