// Package schema converts raw dataset tables of varying layouts into
// canonical daily records.
package schema

import (
	"fmt"
	"log/slog"
	"math"
	"slices"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/gnames/epidump/internal/ent/dataset"
)

// SchemaError means a file has no usable date or location column.
type SchemaError struct {
	File   string
	Reason string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("cannot normalize %s: %s", e.File, e.Reason)
}

// Normalize detects date, location and count columns of a table from the
// given dataset family and returns canonical records sorted by date.
// Only a missing date or location column is an error, other data problems
// are logged and degrade to dropped rows or zero values.
func Normalize(
	t dataset.Table,
	family string,
	file string,
) ([]dataset.Record, error) {
	t = dropDuplicates(t, file)
	t = applySpecialCases(t, family, file)

	dateIdx := findColumn(t.Header, "date")
	if dateIdx < 0 {
		return nil, &SchemaError{File: file, Reason: "no date column"}
	}
	locIdx := findColumn(t.Header, locationKeywords...)
	if locIdx < 0 {
		return nil, &SchemaError{File: file, Reason: "no location column"}
	}
	cols := resolveFields(t.Header, family)

	var badDates, garbled, negative int
	blank := make(map[string]bool, len(canonicalFields))
	for _, f := range canonicalFields {
		blank[f] = true
	}

	res := make([]dataset.Record, 0, len(t.Rows))
	for _, row := range t.Rows {
		date, ok := parseDate(dataset.Cell(row, dateIdx))
		if !ok {
			badDates++
			continue
		}

		vals := make(map[string]int64, len(canonicalFields))
		for _, f := range canonicalFields {
			idx := cols[f]
			if idx < 0 {
				continue
			}
			cell := dataset.Cell(row, idx)
			if strings.TrimSpace(cell) != "" {
				blank[f] = false
			}
			v, st := toCount(cell)
			switch st {
			case countGarbled:
				garbled++
			case countNegative:
				negative++
			}
			vals[f] = v
		}

		locCell := dataset.Cell(row, locIdx)
		res = append(res, dataset.Record{
			Date:         date,
			Location:     locationInput(t.Header, row, locCell),
			LocationKey:  locationKey(locCell),
			Cases:        vals[fCases],
			Deaths:       vals[fDeaths],
			Recovered:    vals[fRecovered],
			Active:       vals[fActive],
			NewCases:     vals[fNewCases],
			NewDeaths:    vals[fNewDeaths],
			NewRecovered: vals[fNewRecovered],
		})
	}

	if badDates > 0 {
		slog.Warn("Dropped rows with unparseable dates",
			"file", file, "rows", badDates)
	}
	if garbled > 0 {
		slog.Warn("Non-numeric values set to zero", "file", file, "cells", garbled)
	}
	if negative > 0 {
		slog.Warn("Negative values set to zero", "file", file, "cells", negative)
	}

	sort.SliceStable(res, func(i, j int) bool {
		return res[i].Date.Before(res[j].Date)
	})

	if cols[fActive] < 0 || blank[fActive] {
		deriveActive(res)
	}
	if cols[fNewCases] < 0 || blank[fNewCases] {
		deriveNew(res,
			func(r dataset.Record) int64 { return r.Cases },
			func(r *dataset.Record, v int64) { r.NewCases = v },
		)
	}
	if cols[fNewDeaths] < 0 || blank[fNewDeaths] {
		deriveNew(res,
			func(r dataset.Record) int64 { return r.Deaths },
			func(r *dataset.Record, v int64) { r.NewDeaths = v },
		)
	}
	return res, nil
}

func dropDuplicates(t dataset.Table, file string) dataset.Table {
	seen := make(map[string]struct{}, len(t.Rows))
	rows := make([][]string, 0, len(t.Rows))
	for _, row := range t.Rows {
		key := strings.Join(row, "\x1f")
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		rows = append(rows, row)
	}
	if dups := len(t.Rows) - len(rows); dups > 0 {
		slog.Info("Dropped duplicate rows", "file", file, "rows", dups)
	}
	return dataset.Table{Header: t.Header, Rows: rows}
}

func applySpecialCases(
	t dataset.Table,
	family, file string,
) dataset.Table {
	for _, sc := range specialCases {
		if sc.family != family {
			continue
		}
		if len(sc.files) > 0 && !slices.Contains(sc.files, file) {
			continue
		}
		if !hasAll(t, sc.needCols) {
			continue
		}
		if sc.noDateCol && findColumn(t.Header, "date") >= 0 {
			continue
		}
		slog.Debug("Setting constant column",
			"file", file, "column", sc.column, "value", sc.value)
		t = setColumn(t, sc.column, sc.value)
	}
	return t
}

func hasAll(t dataset.Table, cols []string) bool {
	for _, c := range cols {
		if t.Index(c) < 0 {
			return false
		}
	}
	return true
}

// setColumn overwrites a column with a constant, appending the column if
// it does not exist.
func setColumn(t dataset.Table, name, value string) dataset.Table {
	idx := t.Index(name)
	header := t.Header
	if idx < 0 {
		header = append(slices.Clone(t.Header), name)
		idx = len(header) - 1
	}
	rows := make([][]string, len(t.Rows))
	for i, row := range t.Rows {
		r := make([]string, max(len(row), idx+1))
		copy(r, row)
		r[idx] = value
		rows[i] = r
	}
	return dataset.Table{Header: header, Rows: rows}
}

// findColumn returns the first header that contains any of the keywords
// case-insensitively.
func findColumn(header []string, keywords ...string) int {
	for i, h := range header {
		lh := strings.ToLower(h)
		for _, kw := range keywords {
			if strings.Contains(lh, kw) {
				return i
			}
		}
	}
	return -1
}

// resolveFields finds a column index for every canonical field, -1 if a
// field is absent.
func resolveFields(header []string, family string) map[string]int {
	t := dataset.Table{Header: header}
	fields := fieldsFor(family)
	res := make(map[string]int, len(canonicalFields))
	for _, f := range canonicalFields {
		res[f] = -1
		for _, name := range fields[f] {
			if idx := t.Index(name); idx >= 0 {
				res[f] = idx
				break
			}
		}
		if res[f] < 0 {
			res[f] = t.Index(f)
		}
	}
	return res
}

// locationKey groups records the same way locations are stored.
func locationKey(cell string) string {
	res := strings.TrimSpace(cell)
	if res == "" {
		return dataset.UnknownLocation
	}
	return res
}

func locationInput(
	header, row []string,
	cell string,
) dataset.LocationInput {
	if strings.TrimSpace(cell) != "" {
		return dataset.PlainName(cell)
	}
	res := make(dataset.StructuredRow, len(header)+1)
	for i, h := range header {
		res[h] = dataset.Cell(row, i)
	}
	res["location"] = cell
	return res
}

func parseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, l := range dateLayouts {
		if d, err := time.Parse(l, s); err == nil {
			return dateOnly(d), true
		}
	}
	d, err := dateparse.ParseAny(s)
	if err != nil {
		return time.Time{}, false
	}
	return dateOnly(d), true
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

type countStatus int

const (
	countOK countStatus = iota
	countGarbled
	countNegative
)

// toCount converts a cell to a non-negative integer. Blank cells are
// zero without complaint.
func toCount(s string) (int64, countStatus) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	if s == "" {
		return 0, countOK
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, countGarbled
	}
	if f < 0 {
		return 0, countNegative
	}
	return int64(f), countOK
}

func deriveActive(recs []dataset.Record) {
	for i := range recs {
		r := &recs[i]
		r.Active = max(0, r.Cases-r.Deaths-r.Recovered)
	}
}

// deriveNew sets day-over-day differences of a cumulative series per
// location. The first observation of a location gets 0. Records must be
// sorted by date.
func deriveNew(
	recs []dataset.Record,
	get func(dataset.Record) int64,
	set func(*dataset.Record, int64),
) {
	prev := make(map[string]int64)
	for i := range recs {
		key := recs[i].LocationKey
		cur := get(recs[i])
		p, ok := prev[key]
		prev[key] = cur
		if !ok {
			set(&recs[i], 0)
			continue
		}
		set(&recs[i], max(0, cur-p))
	}
}
