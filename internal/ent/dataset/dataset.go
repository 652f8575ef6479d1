// Package dataset contains the shapes data takes on its way from a raw
// delimited file to a canonical daily observation.
package dataset

import (
	"strings"
	"time"
)

// UnknownLocation is the location name used when a dataset gives none.
const UnknownLocation = "Unknown"

// Table is a raw delimited file: a header and untyped rows.
type Table struct {
	// Header contains column names as they appear in the file.
	Header []string

	// Rows contain cells as strings. Rows can be shorter or longer than
	// the header.
	Rows [][]string
}

// Index returns the position of the column with exactly the given name,
// or -1.
func (t Table) Index(name string) int {
	for i, v := range t.Header {
		if v == name {
			return i
		}
	}
	return -1
}

// Cell returns a value of a row at the column index, or an empty string
// if the row is too short.
func Cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return row[idx]
}

// Record is a canonical daily observation for one location.
type Record struct {
	// Date is a calendar day at UTC midnight.
	Date time.Time

	// Location describes where the observation was made.
	Location LocationInput

	// LocationKey is the trimmed location cell, or UnknownLocation for a
	// blank one. It groups a location's series.
	LocationKey string

	Cases        int64
	Deaths       int64
	Recovered    int64
	Active       int64
	NewCases     int64
	NewDeaths    int64
	NewRecovered int64
}

// LocationInput is either a PlainName or a StructuredRow.
type LocationInput interface {
	isLocationInput()
}

// PlainName is a location given by its name only.
type PlainName string

func (PlainName) isLocationInput() {}

// StructuredRow is a whole dataset row keyed by column names. It is used
// when the location cell is blank, so region and ISO code can still be
// picked from other columns.
type StructuredRow map[string]string

func (StructuredRow) isLocationInput() {}

// Name returns the location name of the row or UnknownLocation.
func (r StructuredRow) Name() string {
	if v := r.first("location"); v != "" {
		return v
	}
	return UnknownLocation
}

// Region returns a region, state or province of the row.
func (r StructuredRow) Region() string {
	return r.first("region", "state", "province")
}

// ISOCode returns an ISO code of the row.
func (r StructuredRow) ISOCode() string {
	return r.first("iso_code", "iso", "code")
}

func (r StructuredRow) first(keys ...string) string {
	for _, k := range keys {
		if v := strings.TrimSpace(r[k]); v != "" {
			return v
		}
	}
	return ""
}
