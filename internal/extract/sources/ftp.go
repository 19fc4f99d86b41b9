package sources

import (
	"context"
	"errors"
	"fmt"

	"salesetl/internal/dataset"
	"salesetl/internal/extract"
	"salesetl/internal/pipeline"
)

func init() {
	extract.Register(&ftpExtractor{})
}

// ftpExtractor covers the partner FTP drop. Credentials come from the
// environment; without a configured host it falls back immediately.
type ftpExtractor struct{}

func (e *ftpExtractor) Source() string { return "ftp" }

func (e *ftpExtractor) Extract(ctx context.Context, rc *pipeline.RunContext) (*dataset.Table, error) {
	src := rc.Config.Sources
	if src.FTPHost == "" {
		return fallback(e.Source(), rc, errors.New("FTP_HOST not set"))
	}
	if src.FTPUser == "" || src.FTPPassword == "" {
		return fallback(e.Source(), rc, fmt.Errorf("incomplete credentials for %s", src.FTPHost))
	}
	return fallback(e.Source(), rc, fmt.Errorf("ftp transfer from %s not supported", src.FTPHost))
}
