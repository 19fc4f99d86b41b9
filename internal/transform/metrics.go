package transform

import (
	"fmt"
	"sort"

	"salesetl/internal/dataset"
)

// Metrics summarizes one transformed order table.
type Metrics struct {
	TotalRevenue      float64     `json:"total_revenue"`
	TotalOrders       int         `json:"total_orders"`
	TotalUnits        int         `json:"total_units"`
	AverageOrderValue float64     `json:"average_order_value"`
	ByCategory        []Breakdown `json:"by_category"`
	BySegment         []Breakdown `json:"by_segment"`
}

// Breakdown is one revenue slice, keyed by category or segment.
type Breakdown struct {
	Key     string  `json:"key"`
	Orders  int     `json:"orders"`
	Units   int     `json:"units"`
	Revenue float64 `json:"revenue"`
}

// MetricsCalculator computes run metrics from a transformed order table.
// It expects the columns SalesTransformer produces.
type MetricsCalculator struct{}

func (MetricsCalculator) Calculate(t *dataset.Table) (*Metrics, error) {
	if t == nil {
		return nil, fmt.Errorf("nil input table")
	}
	if !t.HasColumn("total_price") {
		return nil, fmt.Errorf("missing total_price column; input is not a transformed order table")
	}

	m := &Metrics{}
	orders := make(map[string]struct{})
	for _, r := range t.Rows {
		total, _ := dataset.RowFloat(r, "total_price")
		qty, _ := dataset.RowInt(r, "quantity")
		m.TotalRevenue += total
		m.TotalUnits += qty
		if id, ok := dataset.RowString(r, "order_id"); ok {
			orders[id] = struct{}{}
		}
	}
	m.TotalOrders = len(orders)
	m.TotalRevenue = round2(m.TotalRevenue)
	if m.TotalOrders > 0 {
		m.AverageOrderValue = round2(m.TotalRevenue / float64(m.TotalOrders))
	}
	m.ByCategory = breakdown(t, "product_category")
	m.BySegment = breakdown(t, "customer_segment")
	return m, nil
}

func breakdown(t *dataset.Table, column string) []Breakdown {
	type acc struct {
		orders  map[string]struct{}
		units   int
		revenue float64
	}
	byKey := make(map[string]*acc)
	for _, r := range t.Rows {
		key, _ := dataset.RowString(r, column)
		a := byKey[key]
		if a == nil {
			a = &acc{orders: make(map[string]struct{})}
			byKey[key] = a
		}
		if id, ok := dataset.RowString(r, "order_id"); ok {
			a.orders[id] = struct{}{}
		}
		qty, _ := dataset.RowInt(r, "quantity")
		total, _ := dataset.RowFloat(r, "total_price")
		a.units += qty
		a.revenue += total
	}

	out := make([]Breakdown, 0, len(byKey))
	for key, a := range byKey {
		out = append(out, Breakdown{
			Key:     key,
			Orders:  len(a.orders),
			Units:   a.units,
			Revenue: round2(a.revenue),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Revenue != out[j].Revenue {
			return out[i].Revenue > out[j].Revenue
		}
		return out[i].Key < out[j].Key
	})
	return out
}
