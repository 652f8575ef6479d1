package dumpio_test

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"time"

	"github.com/jinzhu/gorm"
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	"github.com/gnames/epidump/internal/io/dbio"
	"github.com/gnames/epidump/internal/io/dumpio"
	"github.com/gnames/epidump/pkg/config"
	"github.com/gnames/epidump/pkg/ent/model"
)

var _ = Describe("Dumpio", func() {
	var db *gorm.DB
	var dir string

	BeforeEach(func() {
		var err error
		dir, err = os.MkdirTemp("", "dumpio")
		Expect(err).ToNot(HaveOccurred())

		cfg := config.New(
			config.OptDbDriver("sqlite"),
			config.OptSqlitePath(":memory:"),
		)
		db, err = dbio.OpenMigrated(cfg)
		Expect(err).ToNot(HaveOccurred())

		iso := "DEU"
		ep := model.Epidemic{Name: "mpox", TotalCases: 6, TotalDeaths: 1, FatalityRatio: 100.0 / 6}
		loc := model.Location{Country: "Germany", ISOCode: &iso}
		src := model.DataSource{SourceType: "mpox", Reference: "owner/mpox", URL: "https://example.org/mpox"}
		Expect(db.Create(&ep).Error).ToNot(HaveOccurred())
		Expect(db.Create(&loc).Error).ToNot(HaveOccurred())
		Expect(db.Create(&src).Error).ToNot(HaveOccurred())
		for i, cases := range []int64{1, 6} {
			st := model.DailyStat{
				EpidemicID: ep.ID,
				SourceID:   src.ID,
				LocationID: loc.ID,
				Date:       time.Date(2022, 5, 20+i, 0, 0, 0, 0, time.UTC),
				Cases:      cases,
				Deaths:     int64(i),
			}
			Expect(db.Create(&st).Error).ToNot(HaveOccurred())
		}
	})

	AfterEach(func() {
		Expect(db.Close()).To(Succeed())
		Expect(os.RemoveAll(dir)).To(Succeed())
	})

	read := func(name string) [][]string {
		f, err := os.Open(filepath.Join(dir, name))
		Expect(err).ToNot(HaveOccurred())
		defer f.Close()
		res, err := csv.NewReader(f).ReadAll()
		Expect(err).ToNot(HaveOccurred())
		return res
	}

	It("creates the dump directory", func() {
		sub := filepath.Join(dir, "nested", "dump")
		_, err := dumpio.New(db, sub)
		Expect(err).ToNot(HaveOccurred())
		Expect(sub).To(BeADirectory())
	})

	It("writes every table with a header", func() {
		d, err := dumpio.New(db, dir)
		Expect(err).ToNot(HaveOccurred())
		Expect(d.Dump()).To(Succeed())

		eps := read("epidemics.csv")
		Expect(eps).To(HaveLen(2))
		Expect(eps[0]).To(Equal([]string{"id", "name", "total_cases", "total_deaths", "fatality_ratio"}))
		Expect(eps[1]).To(Equal([]string{"1", "mpox", "6", "1", "16.6667"}))

		locs := read("locations.csv")
		Expect(locs[1]).To(Equal([]string{"1", "Germany", "", "DEU"}))

		srcs := read("data_sources.csv")
		Expect(srcs[1]).To(Equal([]string{"1", "mpox", "owner/mpox", "https://example.org/mpox"}))

		daily := read("daily_stats.csv")
		Expect(daily).To(HaveLen(3))
		Expect(daily[0][:4]).To(Equal([]string{"epidemic", "location", "source_id", "date"}))
		Expect(daily[1][:6]).To(Equal([]string{"mpox", "Germany", "1", "2022-05-20", "1", "0"}))
		Expect(daily[2][:6]).To(Equal([]string{"mpox", "Germany", "1", "2022-05-21", "6", "1"}))
	})
})
