// Package csvio reads delimited dataset files into tables.
package csvio

import (
	"encoding/csv"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/gnames/epidump/internal/ent/dataset"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// Read loads a CSV or TSV file. Files with .tsv extension are split by
// tabs, the rest by commas. A byte order mark is removed, cells and
// column names are trimmed.
func Read(path string) (dataset.Table, error) {
	var res dataset.Table
	f, err := os.Open(path)
	if err != nil {
		slog.Error("Cannot open file", "file", path, "error", err)
		return res, err
	}
	defer f.Close()

	return Parse(f, delimiter(path))
}

// Parse reads a table from a reader. Rows may have a different number of
// cells than the header.
func Parse(r io.Reader, delim rune) (dataset.Table, error) {
	var res dataset.Table
	dec := unicode.BOMOverride(unicode.UTF8.NewDecoder())
	cr := csv.NewReader(transform.NewReader(r, dec))
	cr.Comma = delim
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.ReuseRecord = false

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return res, nil
	}
	if err != nil {
		return res, err
	}
	res.Header = trim(header)

	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return res, err
		}
		if blank(row) {
			continue
		}
		res.Rows = append(res.Rows, trim(row))
	}
	return res, nil
}

func delimiter(path string) rune {
	if strings.EqualFold(filepath.Ext(path), ".tsv") {
		return '\t'
	}
	return ','
}

func trim(row []string) []string {
	for i := range row {
		row[i] = strings.TrimSpace(row[i])
	}
	return row
}

func blank(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
