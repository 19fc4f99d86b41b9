package pipeline

import (
	"time"

	"salesetl/internal/config"
)

// RunContext is the shared, read-only configuration plus run parameters
// passed by reference to every task body. Bodies must not mutate it; it is
// safe for concurrent use across worker goroutines.
type RunContext struct {
	Config *config.Config

	// Source is the source selector for this run ("csv", "all", ...).
	Source string

	// Platform narrows API extraction to one e-commerce platform. Empty
	// means all platforms.
	Platform string

	StartDate time.Time
	EndDate   time.Time

	ProductCategory string
	CustomerSegment string
}
