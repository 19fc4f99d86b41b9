// Package validate checks transformed order tables against the configured
// data-quality rules before they reach the load stage.
package validate

import (
	"fmt"
	"strings"

	"salesetl/internal/config"
	"salesetl/internal/dataset"
)

// requiredColumns must be present and non-empty on every row.
var requiredColumns = []string{"order_id", "order_date", "quantity", "unit_price", "total_price"}

// Violation is one recorded data-quality finding.
type Violation struct {
	Rule    string `json:"rule"`
	Column  string `json:"column,omitempty"`
	Count   int    `json:"count"`
	Message string `json:"message"`
}

// RuleViolationError is returned when validation fails the whole table, and
// carries every violation found, not just the fatal one.
type RuleViolationError struct {
	Violations []Violation
}

func (e *RuleViolationError) Error() string {
	if len(e.Violations) == 0 {
		return "validation failed"
	}
	msgs := make([]string, 0, len(e.Violations))
	for _, v := range e.Violations {
		msgs = append(msgs, v.Message)
	}
	return fmt.Sprintf("validation failed: %s", strings.Join(msgs, "; "))
}

// Validator applies the configured rules to one table.
//
// Row-level problems (negative amounts, out-of-range order totals, duplicate
// order lines) drop the offending rows and are reported as non-fatal
// violations. Missing required fields above the configured threshold fail
// the table outright.
type Validator struct {
	cfg config.Validation
}

func NewValidator(cfg config.Validation) *Validator {
	return &Validator{cfg: cfg}
}

// Validate returns the cleaned table plus the non-fatal violations recorded
// while cleaning. A *RuleViolationError means the table is unusable.
func (v *Validator) Validate(t *dataset.Table) (*dataset.Table, []Violation, error) {
	if t == nil {
		return nil, nil, fmt.Errorf("nil input table")
	}
	if t.Empty() {
		return nil, nil, &RuleViolationError{Violations: []Violation{{
			Rule:    "non_empty",
			Message: "no rows to validate",
		}}}
	}

	var violations []Violation

	// Fatal rule first: too many rows with missing required fields.
	missing := 0
	for _, r := range t.Rows {
		if missingRequired(r) {
			missing++
		}
	}
	if pct := float64(missing) / float64(t.Len()); pct > v.cfg.MaxMissingPct {
		violations = append(violations, Violation{
			Rule:    "max_missing_pct",
			Count:   missing,
			Message: fmt.Sprintf("%.1f%% of rows are missing required fields (threshold %.1f%%)", pct*100, v.cfg.MaxMissingPct*100),
		})
		return nil, nil, &RuleViolationError{Violations: violations}
	}

	missing = 0
	negative := 0
	outOfRange := 0
	duplicates := 0
	seen := make(map[string]struct{})

	out := t.Filter(func(r dataset.Row) bool {
		if missingRequired(r) {
			missing++
			return false
		}
		qty, _ := dataset.RowInt(r, "quantity")
		price, _ := dataset.RowFloat(r, "unit_price")
		total, _ := dataset.RowFloat(r, "total_price")
		if qty < 0 || price < 0 || total < 0 {
			negative++
			return false
		}
		if total < v.cfg.MinOrderValue || total > v.cfg.MaxOrderValue {
			outOfRange++
			return false
		}
		id, _ := dataset.RowString(r, "order_id")
		name, _ := dataset.RowString(r, "product_name")
		key := id + "\x00" + name
		if _, dup := seen[key]; dup {
			duplicates++
			return false
		}
		seen[key] = struct{}{}
		return true
	})

	if missing > 0 {
		violations = append(violations, Violation{
			Rule:    "required_fields",
			Count:   missing,
			Message: fmt.Sprintf("dropped %d rows with missing required fields", missing),
		})
	}
	if negative > 0 {
		violations = append(violations, Violation{
			Rule:    "non_negative",
			Count:   negative,
			Message: fmt.Sprintf("dropped %d rows with negative quantity or price", negative),
		})
	}
	if outOfRange > 0 {
		violations = append(violations, Violation{
			Rule:    "order_value_range",
			Count:   outOfRange,
			Message: fmt.Sprintf("dropped %d rows with order total outside [%.2f, %.2f]", outOfRange, v.cfg.MinOrderValue, v.cfg.MaxOrderValue),
		})
	}
	if duplicates > 0 {
		violations = append(violations, Violation{
			Rule:    "no_duplicates",
			Count:   duplicates,
			Message: fmt.Sprintf("dropped %d duplicate order lines", duplicates),
		})
	}

	if out.Empty() {
		violations = append(violations, Violation{
			Rule:    "non_empty",
			Message: "all rows were dropped during validation",
		})
		return nil, nil, &RuleViolationError{Violations: violations}
	}
	return out, violations, nil
}

func missingRequired(r dataset.Row) bool {
	for _, col := range requiredColumns {
		v, ok := r[col]
		if !ok || v == nil {
			return true
		}
		if s, isStr := v.(string); isStr && s == "" {
			return true
		}
	}
	return false
}
