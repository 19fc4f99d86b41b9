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
	extract.Register(&emailExtractor{})
}

// emailExtractor covers order confirmations arriving as mail attachments.
type emailExtractor struct{}

func (e *emailExtractor) Source() string { return "email" }

func (e *emailExtractor) Extract(ctx context.Context, rc *pipeline.RunContext) (*dataset.Table, error) {
	src := rc.Config.Sources
	if src.EmailHost == "" {
		return fallback(e.Source(), rc, errors.New("EMAIL_HOST not set"))
	}
	if src.EmailUser == "" || src.EmailPassword == "" {
		return fallback(e.Source(), rc, fmt.Errorf("incomplete credentials for %s", src.EmailHost))
	}
	return fallback(e.Source(), rc, fmt.Errorf("imap fetch from %s not supported", src.EmailHost))
}
