package transform

import (
	"fmt"
	"sort"
	"time"

	"salesetl/internal/dataset"
)

// ProductTransformer rolls transformed orders up to one row per product:
// units sold and gross revenue, highest revenue first.
type ProductTransformer struct{}

func (ProductTransformer) Name() string { return "product" }

func (ProductTransformer) Transform(t *dataset.Table) (*dataset.Table, error) {
	if t == nil {
		return nil, fmt.Errorf("nil input table")
	}
	type acc struct {
		category string
		units    int
		revenue  float64
	}
	byProduct := make(map[string]*acc)
	for _, r := range t.Rows {
		name, _ := dataset.RowString(r, "product_name")
		a := byProduct[name]
		if a == nil {
			a = &acc{}
			byProduct[name] = a
		}
		if cat, ok := dataset.RowString(r, "product_category"); ok && a.category == "" {
			a.category = cat
		}
		qty, _ := dataset.RowInt(r, "quantity")
		total, _ := dataset.RowFloat(r, "total_price")
		a.units += qty
		a.revenue += total
	}

	out := dataset.New("product_name", "product_category", "units_sold", "gross_revenue")
	for name, a := range byProduct {
		out.Append(dataset.Row{
			"product_name":     name,
			"product_category": a.category,
			"units_sold":       a.units,
			"gross_revenue":    round2(a.revenue),
		})
	}
	sortByRevenue(out, "gross_revenue", "product_name")
	return out, nil
}

// CustomerTransformer rolls transformed orders up to one row per customer:
// order count, units, spend, and the first and last order dates.
type CustomerTransformer struct{}

func (CustomerTransformer) Name() string { return "customer" }

func (CustomerTransformer) Transform(t *dataset.Table) (*dataset.Table, error) {
	if t == nil {
		return nil, fmt.Errorf("nil input table")
	}
	type acc struct {
		segment     string
		orders      int
		units       int
		spend       float64
		first, last time.Time
	}
	byCustomer := make(map[string]*acc)
	for _, r := range t.Rows {
		id, _ := dataset.RowString(r, "customer_id")
		a := byCustomer[id]
		if a == nil {
			a = &acc{}
			byCustomer[id] = a
		}
		if seg, ok := dataset.RowString(r, "customer_segment"); ok && a.segment == "" {
			a.segment = seg
		}
		qty, _ := dataset.RowInt(r, "quantity")
		total, _ := dataset.RowFloat(r, "total_price")
		a.orders++
		a.units += qty
		a.spend += total
		if ts, ok := dataset.RowTime(r, "order_date"); ok {
			if a.first.IsZero() || ts.Before(a.first) {
				a.first = ts
			}
			if ts.After(a.last) {
				a.last = ts
			}
		}
	}

	out := dataset.New("customer_id", "customer_segment", "orders", "units", "total_spent", "first_order", "last_order")
	for id, a := range byCustomer {
		out.Append(dataset.Row{
			"customer_id":      id,
			"customer_segment": a.segment,
			"orders":           a.orders,
			"units":            a.units,
			"total_spent":      round2(a.spend),
			"first_order":      a.first,
			"last_order":       a.last,
		})
	}
	sortByRevenue(out, "total_spent", "customer_id")
	return out, nil
}

// sortByRevenue orders rows by a numeric column descending, breaking ties on
// a string column so output is deterministic.
func sortByRevenue(t *dataset.Table, valueCol, tieCol string) {
	sort.SliceStable(t.Rows, func(i, j int) bool {
		a, _ := dataset.RowFloat(t.Rows[i], valueCol)
		b, _ := dataset.RowFloat(t.Rows[j], valueCol)
		if a != b {
			return a > b
		}
		x, _ := dataset.RowString(t.Rows[i], tieCol)
		y, _ := dataset.RowString(t.Rows[j], tieCol)
		return x < y
	})
}
