// Package report keeps the outcome of an ingestion run.
package report

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/gnames/gnfmt"
)

// Status is an outcome of processing a dataset or a file.
type Status string

const (
	Success Status = "success"
	Warning Status = "warning"
	Error   Status = "error"
)

// Result describes what happened to one dataset family or one file.
type Result struct {
	// Dataset is the dataset family name, or "overall_stats" for the
	// aggregate recalculation.
	Dataset string `json:"dataset"`

	// File is a base name of a file, empty for family-level results.
	File string `json:"file,omitempty"`

	Status Status `json:"status"`

	// Rows is the number of committed rows for a file.
	Rows int `json:"rows,omitempty"`

	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

// String returns a one-line description of the result.
func (r Result) String() string {
	name := r.Dataset
	if r.File != "" {
		name += "/" + r.File
	}
	switch {
	case r.Error != "":
		return fmt.Sprintf("%-7s %s: %s", r.Status, name, r.Error)
	case r.Message != "":
		return fmt.Sprintf("%-7s %s: %s", r.Status, name, r.Message)
	default:
		return fmt.Sprintf("%-7s %s: %s rows", r.Status, name,
			humanize.Comma(int64(r.Rows)))
	}
}

// Report is an ordered list of results.
type Report []Result

// Count returns the number of results with the given status.
func (rep Report) Count(st Status) int {
	var res int
	for _, r := range rep {
		if r.Status == st {
			res++
		}
	}
	return res
}

// Rows returns the sum of committed rows.
func (rep Report) Rows() int {
	var res int
	for _, r := range rep {
		res += r.Rows
	}
	return res
}

// JSON encodes the report.
func (rep Report) JSON(pretty bool) ([]byte, error) {
	enc := gnfmt.GNjson{Pretty: pretty}
	return enc.Encode(rep)
}
