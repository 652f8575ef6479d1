package metrics

import (
	"time"

	"github.com/gnames/epidump/internal/ent/report"
)

// Metrics collects counters of an ingestion run.
type Metrics interface {
	// FileDone counts a processed file by its status.
	FileDone(dataset string, st report.Status, took time.Duration)

	// RowsLoaded adds committed rows.
	RowsLoaded(dataset string, n int)

	// RowsRejected adds rows that were prepared but not committed.
	RowsRejected(dataset string, n int)

	// Retry counts one more try of an operation.
	Retry(op string)

	// Write saves metrics in the text exposition format.
	Write(path string) error
}
