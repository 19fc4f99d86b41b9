package sources

import (
	"context"
	"errors"
	"os"

	"salesetl/internal/dataset"
	"salesetl/internal/extract"
	"salesetl/internal/pipeline"
)

func init() {
	extract.Register(&excelExtractor{})
}

// excelExtractor covers the customers spreadsheet export. There is no
// spreadsheet decoder wired in, so it always goes through the fallback
// policy; the stat keeps the missing-file error message accurate.
type excelExtractor struct{}

func (e *excelExtractor) Source() string { return "excel" }

func (e *excelExtractor) Extract(ctx context.Context, rc *pipeline.RunContext) (*dataset.Table, error) {
	path := rc.Config.Sources.CustomersExcel
	if _, err := os.Stat(path); err != nil {
		return fallback(e.Source(), rc, err)
	}
	return fallback(e.Source(), rc, errors.New("xlsx decoding not supported"))
}
