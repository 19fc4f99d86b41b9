package dataset

import (
	"fmt"
	"sort"
	"time"
)

// DateLayout is the wire format for dates throughout the pipeline (order
// dates, CLI filters, config defaults).
const DateLayout = "2006-01-02"

// Row is a single record keyed by column name.
type Row map[string]any

// Table is the tabular unit of exchange between pipeline stages.
//
// Columns carries a stable column order for export; Rows may hold values of
// any type, though extractors normalize dates to time.Time and monetary
// amounts to float64.
type Table struct {
	Columns []string
	Rows    []Row
}

func New(columns ...string) *Table {
	return &Table{Columns: columns}
}

func (t *Table) Append(r Row) {
	t.Rows = append(t.Rows, r)
}

func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

func (t *Table) Empty() bool {
	return t.Len() == 0
}

// HasColumn reports whether the table declares the named column.
func (t *Table) HasColumn(name string) bool {
	if t == nil {
		return false
	}
	for _, c := range t.Columns {
		if c == name {
			return true
		}
	}
	return false
}

// Clone returns a shallow-row copy: the row maps are copied, cell values are
// shared. Stages that rewrite cells must Clone first so upstream results stay
// immutable for sibling branches.
func (t *Table) Clone() *Table {
	if t == nil {
		return nil
	}
	out := &Table{Columns: append([]string(nil), t.Columns...)}
	out.Rows = make([]Row, 0, len(t.Rows))
	for _, r := range t.Rows {
		cp := make(Row, len(r))
		for k, v := range r {
			cp[k] = v
		}
		out.Rows = append(out.Rows, cp)
	}
	return out
}

// Filter returns a new table holding the rows for which keep returns true.
// Column order is preserved; rows are shared, not copied.
func (t *Table) Filter(keep func(Row) bool) *Table {
	out := &Table{Columns: append([]string(nil), t.Columns...)}
	for _, r := range t.Rows {
		if keep(r) {
			out.Rows = append(out.Rows, r)
		}
	}
	return out
}

// FilterDateRange keeps rows whose date column falls within [start, end].
// Zero bounds are open; rows without a parseable date are dropped.
func (t *Table) FilterDateRange(column string, start, end time.Time) *Table {
	return t.Filter(func(r Row) bool {
		ts, ok := RowTime(r, column)
		if !ok {
			return false
		}
		if !start.IsZero() && ts.Before(start) {
			return false
		}
		if !end.IsZero() && ts.After(end) {
			return false
		}
		return true
	})
}

// FilterEqual keeps rows whose column equals value (string comparison).
// An empty value matches everything.
func (t *Table) FilterEqual(column, value string) *Table {
	if value == "" {
		return t
	}
	return t.Filter(func(r Row) bool {
		s, ok := RowString(r, column)
		return ok && s == value
	})
}

// RowString reads a cell as a string.
func RowString(r Row, column string) (string, bool) {
	v, ok := r[column]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// RowFloat reads a cell as a float64, converting from the numeric types that
// extractors are allowed to produce.
func RowFloat(r Row, column string) (float64, bool) {
	v, ok := r[column]
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}

// RowInt reads a cell as an int.
func RowInt(r Row, column string) (int, bool) {
	v, ok := r[column]
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	default:
		return 0, false
	}
}

// RowTime reads a cell as a time.Time, accepting either a time.Time value or
// a string in DateLayout.
func RowTime(r Row, column string) (time.Time, bool) {
	v, ok := r[column]
	if !ok {
		return time.Time{}, false
	}
	switch ts := v.(type) {
	case time.Time:
		return ts, true
	case string:
		parsed, err := time.Parse(DateLayout, ts)
		if err != nil {
			return time.Time{}, false
		}
		return parsed, true
	default:
		return time.Time{}, false
	}
}

// CellString renders a cell for export. Dates use DateLayout; nil renders
// empty.
func CellString(v any) string {
	switch c := v.(type) {
	case nil:
		return ""
	case string:
		return c
	case time.Time:
		return c.Format(DateLayout)
	case float64:
		return fmt.Sprintf("%g", c)
	default:
		return fmt.Sprintf("%v", c)
	}
}

// Merge appends the rows of each table in order and unions their columns
// (first-seen order). Used by the aggregation task over per-source loads.
func Merge(tables ...*Table) *Table {
	out := &Table{}
	seen := make(map[string]struct{})
	for _, t := range tables {
		if t == nil {
			continue
		}
		for _, c := range t.Columns {
			if _, ok := seen[c]; ok {
				continue
			}
			seen[c] = struct{}{}
			out.Columns = append(out.Columns, c)
		}
		out.Rows = append(out.Rows, t.Rows...)
	}
	return out
}

// DistinctStrings returns the sorted distinct string values of a column.
func (t *Table) DistinctStrings(column string) []string {
	set := make(map[string]struct{})
	for _, r := range t.Rows {
		if s, ok := RowString(r, column); ok {
			set[s] = struct{}{}
		}
	}
	out := make([]string, 0, len(set))
	for s := range set {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}
