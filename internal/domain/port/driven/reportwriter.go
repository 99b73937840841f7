package driven

import (
	"context"
	"time"
)

// ReportWriter defines the driven port for storing rendered reports.
type ReportWriter interface {
	// Write stores the Markdown document generated at generatedAt and returns
	// the location it was written to.
	Write(ctx context.Context, generatedAt time.Time, markdown string) (string, error)
}
