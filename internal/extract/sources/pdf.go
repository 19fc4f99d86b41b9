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
	extract.Register(&pdfExtractor{})
}

// pdfExtractor covers scanned invoice PDFs. Table extraction from PDF is
// out of reach without an OCR toolchain, so the fallback policy decides.
type pdfExtractor struct{}

func (e *pdfExtractor) Source() string { return "pdf" }

func (e *pdfExtractor) Extract(ctx context.Context, rc *pipeline.RunContext) (*dataset.Table, error) {
	path := rc.Config.Sources.InvoicesPDF
	if _, err := os.Stat(path); err != nil {
		return fallback(e.Source(), rc, err)
	}
	return fallback(e.Source(), rc, errors.New("pdf table extraction not supported"))
}
