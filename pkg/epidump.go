package epidump

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/gnames/epidump/internal/ent/acquire"
	"github.com/gnames/epidump/internal/ent/aggregate"
	"github.com/gnames/epidump/internal/ent/dataset"
	"github.com/gnames/epidump/internal/ent/dump"
	"github.com/gnames/epidump/internal/ent/report"
	"github.com/gnames/epidump/internal/ent/retry"
	"github.com/gnames/epidump/internal/ent/schema"
	"github.com/gnames/epidump/internal/io/acquireio"
	"github.com/gnames/epidump/internal/io/csvio"
	"github.com/gnames/epidump/pkg/config"
	"github.com/gnames/epidump/pkg/ent/model"
)

// overallDataset names the result of the aggregate recalculation.
const overallDataset = "overall_stats"

// epidump is an implementation of EpiDump interface.
type epidump struct {
	cfg config.Config
	Components
}

// New creates a new instance of EpiDump.
func New(cfg config.Config, c Components) EpiDump {
	res := epidump{
		cfg:        cfg,
		Components: c,
	}
	return &res
}

// family is an acquired dataset family ready for loading.
type family struct {
	name       string
	epidemicID uint
	sourceID   uint
	files      []string
}

// Ingest loads dataset families one after another.
func (e *epidump) Ingest(families []string) report.Report {
	if len(families) == 0 {
		for _, v := range e.cfg.Datasets {
			families = append(families, v.Name)
		}
	}

	var res report.Report
	for _, name := range families {
		enter(statePending, name, "")
		ref, ok := e.cfg.DatasetRef(name)
		if !ok {
			slog.Error("Unknown dataset family", "dataset", name)
			enter(stateError, name, "")
			res = append(res, report.Result{
				Dataset: name,
				Status:  report.Error,
				Error:   fmt.Sprintf("unknown dataset family '%s'", name),
			})
			continue
		}
		res = append(res, e.ingestFamily(name, ref)...)
	}

	if _, err := e.Recalculator.RecomputeAll(); err != nil {
		res = append(res, report.Result{
			Dataset: overallDataset,
			Status:  report.Error,
			Error:   err.Error(),
		})
	}

	if e.Metrics != nil && e.cfg.MetricsFile != "" {
		if err := e.Metrics.Write(e.cfg.MetricsFile); err != nil {
			slog.Error("Cannot write metrics", "file", e.cfg.MetricsFile, "error", err)
		}
	}

	slog.Info("Ingestion finished",
		"rows", humanize.Comma(int64(res.Rows())),
		"success", res.Count(report.Success),
		"warning", res.Count(report.Warning),
		"error", res.Count(report.Error),
	)
	return res
}

// Recompute updates aggregates of every epidemic.
func (e *epidump) Recompute() ([]aggregate.Totals, error) {
	return e.Recalculator.RecomputeAll()
}

// Overall returns stored aggregates.
func (e *epidump) Overall() ([]aggregate.Totals, error) {
	return e.Recalculator.Overall()
}

// Dump writes the content of the database to CSV files.
func (e *epidump) Dump(d dump.Dumper) error {
	return d.Dump()
}

func (e *epidump) ingestFamily(name, ref string) []report.Result {
	p := retry.New(e.cfg.FamilyAttempts, e.cfg.BaseDelay, e.cfg.Multiplier)
	fam, err := retry.Do(p, "dataset", func() (family, error) {
		return e.prepare(name, ref)
	})
	if err != nil {
		slog.Error("Cannot acquire dataset", "dataset", name, "ref", ref, "error", err)
		enter(stateError, name, "")
		return []report.Result{{
			Dataset: name,
			Status:  report.Error,
			Error:   err.Error(),
		}}
	}

	if len(fam.files) == 0 {
		slog.Warn("No CSV files found", "dataset", name, "ref", ref)
		enter(stateDone, name, "")
		return []report.Result{{
			Dataset: name,
			Status:  report.Warning,
			Message: "no CSV files found",
		}}
	}

	res := make([]report.Result, 0, len(fam.files))
	for _, path := range fam.files {
		res = append(res, e.ingestFile(fam, path))
	}
	enter(stateDone, name, "")
	return res
}

// prepare acquires a dataset, registers its epidemic and source and finds
// its files.
func (e *epidump) prepare(name, ref string) (family, error) {
	res := family{name: name}

	enter(stateAcquiring, name, "")
	ds, err := e.Acquirer.Acquire(ref)
	if errors.Is(err, acquire.ErrNotFound) {
		return res, retry.Permanent(err)
	}
	if err != nil {
		return res, err
	}

	if res.sourceID, err = e.Catalog.SourceID(name, ref, ds.URL); err != nil {
		return res, err
	}
	if res.epidemicID, err = e.Catalog.EpidemicID(name); err != nil {
		return res, err
	}
	if e.cfg.Reset {
		if _, err = e.Catalog.Reset(res.epidemicID, res.sourceID); err != nil {
			return res, err
		}
	}

	enter(stateDiscovering, name, "")
	if res.files, err = acquireio.Files(ds.Dir); err != nil {
		return res, err
	}
	slog.Info("Found files", "dataset", name, "files", len(res.files))
	return res, nil
}

// loaded are numbers of prepared and committed rows of a file.
type loaded struct {
	prepared  int
	committed int
}

func (e *epidump) ingestFile(fam family, path string) report.Result {
	file := filepath.Base(path)
	res := report.Result{Dataset: fam.name, File: file}
	start := time.Now()

	p := retry.New(e.cfg.FileAttempts, e.cfg.BaseDelay, e.cfg.Multiplier)
	n, err := retry.Do(p, "file", func() (loaded, error) {
		return e.loadFile(fam, path)
	})

	switch {
	case err != nil:
		slog.Error("Cannot load file", "dataset", fam.name, "file", file, "error", err)
		enter(stateError, fam.name, file)
		res.Status = report.Error
		res.Error = err.Error()
	case n.prepared == 0:
		slog.Warn("No rows left after cleaning", "dataset", fam.name, "file", file)
		enter(stateDone, fam.name, file)
		res.Status = report.Warning
		res.Message = "no rows after cleaning"
	case n.committed < n.prepared:
		enter(stateDone, fam.name, file)
		res.Status = report.Warning
		res.Rows = n.committed
		res.Message = fmt.Sprintf("%s of %s rows committed",
			humanize.Comma(int64(n.committed)), humanize.Comma(int64(n.prepared)))
	default:
		enter(stateDone, fam.name, file)
		res.Status = report.Success
		res.Rows = n.committed
	}

	if e.Metrics != nil {
		e.Metrics.FileDone(fam.name, res.Status, time.Since(start))
		e.Metrics.RowsLoaded(fam.name, n.committed)
		e.Metrics.RowsRejected(fam.name, n.prepared-n.committed)
	}
	if err == nil {
		slog.Info("Loaded file",
			"dataset", fam.name,
			"file", file,
			"rows", humanize.Comma(int64(n.committed)),
			"took", time.Since(start).Round(time.Millisecond),
		)
	}
	return res
}

func (e *epidump) loadFile(fam family, path string) (loaded, error) {
	var res loaded
	file := filepath.Base(path)

	enter(stateReading, fam.name, file)
	// read and parse errors are not retried
	t, err := csvio.Read(path)
	if err != nil {
		return res, retry.Permanent(err)
	}

	enter(stateCleaning, fam.name, file)
	recs, err := schema.Normalize(t, fam.name, file)
	var se *schema.SchemaError
	if errors.As(err, &se) {
		return res, retry.Permanent(err)
	}
	if err != nil {
		return res, err
	}
	if len(recs) == 0 {
		return res, nil
	}

	enter(stateLoading, fam.name, file)
	// Records of unresolved locations keep location ID 0 and are
	// rejected by the upserter.
	failed := make(map[string]struct{})
	stats := make([]model.DailyStat, len(recs))
	for i, r := range recs {
		var locID uint
		if _, ok := failed[r.LocationKey]; !ok {
			locID, err = e.resolve(r.Location)
			if err != nil {
				slog.Warn("Skipping rows of unresolved location",
					"dataset", fam.name,
					"file", file,
					"location", r.LocationKey,
					"error", err,
				)
				failed[r.LocationKey] = struct{}{}
			}
		}
		stats[i] = dailyStat(fam, locID, r)
	}
	res.prepared = len(stats)

	res.committed, err = e.Upserter.Upsert(stats)
	return res, err
}

func (e *epidump) resolve(loc dataset.LocationInput) (uint, error) {
	switch l := loc.(type) {
	case dataset.PlainName:
		return e.Resolver.Resolve(string(l), "", "")
	case dataset.StructuredRow:
		return e.Resolver.Resolve(l.Name(), l.Region(), l.ISOCode())
	default:
		return e.Resolver.Resolve(dataset.UnknownLocation, "", "")
	}
}

func dailyStat(fam family, locID uint, r dataset.Record) model.DailyStat {
	return model.DailyStat{
		EpidemicID:   fam.epidemicID,
		SourceID:     fam.sourceID,
		LocationID:   locID,
		Date:         r.Date,
		Cases:        r.Cases,
		Deaths:       r.Deaths,
		Recovered:    r.Recovered,
		Active:       r.Active,
		NewCases:     r.NewCases,
		NewDeaths:    r.NewDeaths,
		NewRecovered: r.NewRecovered,
	}
}
