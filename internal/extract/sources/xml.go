package sources

import (
	"context"
	"encoding/xml"
	"fmt"
	"os"

	"salesetl/internal/dataset"
	"salesetl/internal/extract"
	"salesetl/internal/pipeline"
)

func init() {
	extract.Register(&xmlExtractor{})
}

// xmlExtractor reads the inventory XML export:
//
//	<orders>
//	  <order id="10001">
//	    <date>2026-01-15</date>
//	    ...
//	  </order>
//	</orders>
type xmlExtractor struct{}

type xmlOrder struct {
	ID              string  `xml:"id,attr"`
	Date            string  `xml:"date"`
	CustomerID      string  `xml:"customer_id"`
	CustomerSegment string  `xml:"customer_segment"`
	ProductCategory string  `xml:"product_category"`
	ProductName     string  `xml:"product_name"`
	Quantity        int     `xml:"quantity"`
	UnitPrice       float64 `xml:"unit_price"`
	Discount        float64 `xml:"discount"`
}

type xmlOrders struct {
	Orders []xmlOrder `xml:"order"`
}

func (e *xmlExtractor) Source() string { return "xml" }

func (e *xmlExtractor) Extract(ctx context.Context, rc *pipeline.RunContext) (*dataset.Table, error) {
	path := rc.Config.Sources.InventoryXML
	raw, err := os.ReadFile(path)
	if err != nil {
		return fallback(e.Source(), rc, err)
	}

	var doc xmlOrders
	if err := xml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	t := dataset.New(extract.OrderColumns...)
	for i, o := range doc.Orders {
		row, err := normalizeRow(map[string]any{
			"order_id":         o.ID,
			"order_date":       o.Date,
			"customer_id":      o.CustomerID,
			"customer_segment": o.CustomerSegment,
			"product_category": o.ProductCategory,
			"product_name":     o.ProductName,
			"quantity":         o.Quantity,
			"unit_price":       o.UnitPrice,
			"discount":         o.Discount,
		})
		if err != nil {
			return nil, fmt.Errorf("parse %s order %d: %w", path, i, err)
		}
		t.Append(row)
	}
	return extract.ApplyFilters(t, rc), nil
}
