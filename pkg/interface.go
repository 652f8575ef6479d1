package epidump

import (
	"github.com/gnames/epidump/internal/ent/aggregate"
	"github.com/gnames/epidump/internal/ent/dump"
	"github.com/gnames/epidump/internal/ent/report"
)

// EpiDump is an interface for loading epidemic datasets into a database.
type EpiDump interface {
	// Ingest loads the given dataset families, or all configured ones if
	// none are given, and recomputes aggregates afterwards. It never stops
	// on errors, they are recorded in the report.
	Ingest(families []string) report.Report

	// Recompute updates aggregates of every epidemic from daily stats.
	Recompute() ([]aggregate.Totals, error)

	// Overall returns stored aggregates of every epidemic.
	Overall() ([]aggregate.Totals, error)

	// Dump writes the content of the database to CSV files.
	Dump(dump.Dumper) error
}
