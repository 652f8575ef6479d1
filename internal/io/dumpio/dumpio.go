package dumpio

import (
	"database/sql"
	"encoding/csv"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/gnames/epidump/internal/ent/dump"
	"github.com/gnames/gnsys"
	"github.com/jinzhu/gorm"
)

const dateFormat = "2006-01-02"

type dumpio struct {
	dir string
	db  *gorm.DB
}

// New creates a Dumper that writes CSV files to the directory.
func New(db *gorm.DB, dir string) (dump.Dumper, error) {
	res := dumpio{dir: dir, db: db}

	err := gnsys.MakeDir(dir)
	if err != nil {
		slog.Error("Cannot create dump directory", "error", err)
		return nil, err
	}

	return &res, nil
}

// table describes how to dump one table.
type table struct {
	name   string
	header []string
	query  string
	// row scans the current row into CSV cells.
	row func(*sql.Rows) ([]string, error)
}

func (d *dumpio) Dump() error {
	slog.Info("Dumping database to CSV files", "dir", d.dir)

	tables := []table{
		{
			name:   "epidemics",
			header: []string{"id", "name", "total_cases", "total_deaths", "fatality_ratio"},
			query: `SELECT id, name, total_cases, total_deaths, fatality_ratio
			          FROM epidemics ORDER BY id`,
			row: epidemicRow,
		},
		{
			name:   "locations",
			header: []string{"id", "country", "region", "iso_code"},
			query:  `SELECT id, country, region, iso_code FROM locations ORDER BY id`,
			row:    locationRow,
		},
		{
			name:   "data_sources",
			header: []string{"id", "source_type", "reference", "url"},
			query:  `SELECT id, source_type, reference, url FROM data_sources ORDER BY id`,
			row:    sourceRow,
		},
		{
			name: "daily_stats",
			header: []string{"epidemic", "location", "source_id", "date",
				"cases", "deaths", "recovered", "active",
				"new_cases", "new_deaths", "new_recovered"},
			query: `SELECT e.name, l.country, ds.source_id, ds.date,
			               ds.cases, ds.deaths, ds.recovered, ds.active,
			               ds.new_cases, ds.new_deaths, ds.new_recovered
			          FROM daily_stats ds
			            JOIN epidemics e ON e.id = ds.epidemic_id
			            JOIN locations l ON l.id = ds.location_id
			          ORDER BY e.name, l.country, ds.date`,
			row: dailyRow,
		},
	}

	for _, t := range tables {
		if err := d.dumpTable(t); err != nil {
			slog.Error("Cannot dump table", "table", t.name, "error", err)
			return err
		}
	}

	slog.Info("CSV dump is created")
	return nil
}

func (d *dumpio) dumpTable(t table) error {
	rows, err := d.db.Raw(t.query).Rows()
	if err != nil {
		return err
	}
	defer rows.Close()

	file, err := os.Create(filepath.Join(d.dir, t.name+".csv"))
	if err != nil {
		return err
	}
	defer file.Close()

	w := csv.NewWriter(file)
	if err = w.Write(t.header); err != nil {
		return err
	}

	var count int64
	for rows.Next() {
		row, err := t.row(rows)
		if err != nil {
			return err
		}
		if err = w.Write(row); err != nil {
			return err
		}
		count++
		if count%100_000 == 0 {
			slog.Info("Dumping rows", "table", t.name, "rows", humanize.Comma(count))
		}
	}
	if err = rows.Err(); err != nil {
		return err
	}

	w.Flush()
	if err = w.Error(); err != nil {
		return err
	}
	slog.Info("Created CSV file", "file", t.name+".csv", "rows", humanize.Comma(count))
	return file.Sync()
}

func epidemicRow(rows *sql.Rows) ([]string, error) {
	var id, cases, deaths int64
	var name string
	var ratio float64
	if err := rows.Scan(&id, &name, &cases, &deaths, &ratio); err != nil {
		return nil, err
	}
	return []string{
		itoa(id), name, itoa(cases), itoa(deaths),
		strconv.FormatFloat(ratio, 'f', 4, 64),
	}, nil
}

func locationRow(rows *sql.Rows) ([]string, error) {
	var id int64
	var country string
	var region, iso sql.NullString
	if err := rows.Scan(&id, &country, &region, &iso); err != nil {
		return nil, err
	}
	return []string{itoa(id), country, region.String, iso.String}, nil
}

func sourceRow(rows *sql.Rows) ([]string, error) {
	var id int64
	var sourceType, url string
	var ref sql.NullString
	if err := rows.Scan(&id, &sourceType, &ref, &url); err != nil {
		return nil, err
	}
	return []string{itoa(id), sourceType, ref.String, url}, nil
}

func dailyRow(rows *sql.Rows) ([]string, error) {
	var epidemic, location string
	var sourceID int64
	var date time.Time
	var n [7]int64
	err := rows.Scan(&epidemic, &location, &sourceID, &date,
		&n[0], &n[1], &n[2], &n[3], &n[4], &n[5], &n[6])
	if err != nil {
		return nil, err
	}
	res := []string{epidemic, location, itoa(sourceID), date.Format(dateFormat)}
	for _, v := range n {
		res = append(res, itoa(v))
	}
	return res, nil
}

func itoa(i int64) string {
	return strconv.FormatInt(i, 10)
}
