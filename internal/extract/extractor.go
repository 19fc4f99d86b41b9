package extract

import (
	"context"

	"salesetl/internal/dataset"
	"salesetl/internal/pipeline"
)

// Extractor pulls order data for one source. Implementations apply the run's
// date/category/segment filters themselves so downstream stages see only
// in-range rows.
type Extractor interface {
	// Source returns the source identifier ("csv", "api", ...).
	Source() string

	// Extract returns the source's order rows, or an error when the source
	// is unavailable and the fallback policy forbids sample data.
	Extract(ctx context.Context, rc *pipeline.RunContext) (*dataset.Table, error)
}

// OrderColumns is the canonical column set every extractor produces.
// order_date cells are time.Time; quantity is int; unit_price and discount
// are float64.
var OrderColumns = []string{
	"order_id", "order_date", "customer_id", "customer_segment",
	"product_category", "product_name", "quantity", "unit_price", "discount",
}

// ApplyFilters narrows a raw order table to the run's date range and
// category/segment filters.
func ApplyFilters(t *dataset.Table, rc *pipeline.RunContext) *dataset.Table {
	t = t.FilterDateRange("order_date", rc.StartDate, rc.EndDate)
	t = t.FilterEqual("product_category", rc.ProductCategory)
	t = t.FilterEqual("customer_segment", rc.CustomerSegment)
	return t
}
