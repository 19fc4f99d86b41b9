package validate

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"salesetl/internal/config"
	"salesetl/internal/dataset"
)

func rules() config.Validation {
	return config.Validation{MaxMissingPct: 0.5, MinOrderValue: 1, MaxOrderValue: 1000}
}

func goodRow(id string) dataset.Row {
	ts, _ := time.Parse(dataset.DateLayout, "2026-06-01")
	return dataset.Row{
		"order_id": id, "order_date": ts, "product_name": "Novel",
		"quantity": 1, "unit_price": 10.0, "total_price": 10.0,
	}
}

func TestValidate_CleanTablePasses(t *testing.T) {
	in := dataset.New("order_id", "order_date", "product_name", "quantity", "unit_price", "total_price")
	in.Append(goodRow("1"))
	in.Append(goodRow("2"))

	out, violations, err := NewValidator(rules()).Validate(in)
	require.NoError(t, err)
	assert.Empty(t, violations)
	assert.Equal(t, 2, out.Len())
}

func TestValidate_DropsBadRowsAndRecordsViolations(t *testing.T) {
	in := dataset.New("order_id", "order_date", "product_name", "quantity", "unit_price", "total_price")
	in.Append(goodRow("1"))

	negative := goodRow("2")
	negative["quantity"] = -1
	in.Append(negative)

	tooBig := goodRow("3")
	tooBig["total_price"] = 5000.0
	in.Append(tooBig)

	in.Append(goodRow("1")) // duplicate of order 1 / Novel

	out, violations, err := NewValidator(rules()).Validate(in)
	require.NoError(t, err)
	assert.Equal(t, 1, out.Len())

	byRule := map[string]Violation{}
	for _, v := range violations {
		byRule[v.Rule] = v
	}
	assert.Equal(t, 1, byRule["non_negative"].Count)
	assert.Equal(t, 1, byRule["order_value_range"].Count)
	assert.Equal(t, 1, byRule["no_duplicates"].Count)
}

func TestValidate_MissingFieldsAboveThresholdFails(t *testing.T) {
	in := dataset.New("order_id", "order_date", "product_name", "quantity", "unit_price", "total_price")
	in.Append(goodRow("1"))
	for i := 0; i < 3; i++ {
		r := goodRow("x")
		delete(r, "order_id")
		in.Append(r)
	}

	_, _, err := NewValidator(rules()).Validate(in)
	var rve *RuleViolationError
	require.ErrorAs(t, err, &rve)
	require.NotEmpty(t, rve.Violations)
	assert.Equal(t, "max_missing_pct", rve.Violations[0].Rule)
	assert.Contains(t, err.Error(), "missing required fields")
}

func TestValidate_MissingFieldsBelowThresholdAreDropped(t *testing.T) {
	cfg := rules()
	cfg.MaxMissingPct = 0.5
	in := dataset.New("order_id", "order_date", "product_name", "quantity", "unit_price", "total_price")
	in.Append(goodRow("1"))
	in.Append(goodRow("2"))
	bad := goodRow("3")
	bad["order_id"] = ""
	in.Append(bad)

	out, violations, err := NewValidator(cfg).Validate(in)
	require.NoError(t, err)
	assert.Equal(t, 2, out.Len())
	require.Len(t, violations, 1)
	assert.Equal(t, "required_fields", violations[0].Rule)
}

func TestValidate_EmptyTableFails(t *testing.T) {
	in := dataset.New("order_id")
	_, _, err := NewValidator(rules()).Validate(in)
	var rve *RuleViolationError
	require.ErrorAs(t, err, &rve)
}

func TestValidate_AllRowsDroppedFails(t *testing.T) {
	in := dataset.New("order_id", "order_date", "product_name", "quantity", "unit_price", "total_price")
	r := goodRow("1")
	r["total_price"] = 0.001 // below min order value
	in.Append(r)

	_, _, err := NewValidator(rules()).Validate(in)
	var rve *RuleViolationError
	require.ErrorAs(t, err, &rve)
	// The error carries the full violation list, not just the fatal one.
	found := false
	for _, v := range rve.Violations {
		if v.Rule == "order_value_range" {
			found = true
		}
	}
	assert.True(t, found, "violations = %+v", rve.Violations)
}

func TestValidate_NilTable(t *testing.T) {
	_, _, err := NewValidator(rules()).Validate(nil)
	require.Error(t, err)
	var rve *RuleViolationError
	assert.False(t, errors.As(err, &rve), "nil input is a programming error, not a rule violation")
}
