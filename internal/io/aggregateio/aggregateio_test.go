package aggregateio_test

import (
	"time"

	"github.com/jinzhu/gorm"
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	"github.com/gnames/epidump/internal/ent/aggregate"
	"github.com/gnames/epidump/internal/ent/retry"
	"github.com/gnames/epidump/internal/io/aggregateio"
	"github.com/gnames/epidump/internal/io/dbio"
	"github.com/gnames/epidump/pkg/config"
	"github.com/gnames/epidump/pkg/ent/model"
)

var _ = Describe("Aggregateio", func() {
	var db *gorm.DB
	var agg aggregate.Recalculator
	var mpox, ebola model.Epidemic

	BeforeEach(func() {
		var err error
		cfg := config.New(
			config.OptDbDriver("sqlite"),
			config.OptSqlitePath(":memory:"),
		)
		db, err = dbio.OpenMigrated(cfg)
		Expect(err).ToNot(HaveOccurred())
		agg = aggregateio.New(db, retry.New(2, 0, 1))

		mpox = model.Epidemic{Name: "mpox"}
		ebola = model.Epidemic{Name: "ebola"}
		Expect(db.Create(&mpox).Error).ToNot(HaveOccurred())
		Expect(db.Create(&ebola).Error).ToNot(HaveOccurred())

		for i, v := range [][2]int64{{10, 1}, {30, 2}, {60, 0}} {
			st := model.DailyStat{
				EpidemicID: mpox.ID,
				SourceID:   1,
				LocationID: uint(i + 1),
				Date:       time.Date(2022, 5, 20, 0, 0, 0, 0, time.UTC),
				Cases:      v[0],
				Deaths:     v[1],
			}
			Expect(db.Create(&st).Error).ToNot(HaveOccurred())
		}
	})

	AfterEach(func() {
		Expect(db.Close()).To(Succeed())
	})

	It("sums daily stats of an epidemic", func() {
		res, err := agg.Recompute(mpox.ID)
		Expect(err).ToNot(HaveOccurred())
		Expect(res.Name).To(Equal("mpox"))
		Expect(res.TotalCases).To(Equal(int64(100)))
		Expect(res.TotalDeaths).To(Equal(int64(3)))
		Expect(res.FatalityRatio).To(BeNumerically("~", 3.0, 1e-9))

		var ov model.OverallStat
		Expect(db.Where("epidemic_id = ?", mpox.ID).First(&ov).Error).
			ToNot(HaveOccurred())
		Expect(ov.TotalCases).To(Equal(int64(100)))

		var ep model.Epidemic
		Expect(db.First(&ep, mpox.ID).Error).ToNot(HaveOccurred())
		Expect(ep.TotalCases).To(Equal(int64(100)))
		Expect(ep.TotalDeaths).To(Equal(int64(3)))
		Expect(ep.FatalityRatio).To(BeNumerically("~", 3.0, 1e-9))
	})

	It("gives zero ratio to an epidemic without cases", func() {
		res, err := agg.Recompute(ebola.ID)
		Expect(err).ToNot(HaveOccurred())
		Expect(res.TotalCases).To(Equal(int64(0)))
		Expect(res.FatalityRatio).To(Equal(0.0))
	})

	It("keeps one overall row per epidemic", func() {
		_, err := agg.RecomputeAll()
		Expect(err).ToNot(HaveOccurred())

		st := model.DailyStat{
			EpidemicID: mpox.ID, SourceID: 1, LocationID: 9,
			Date:  time.Date(2022, 5, 21, 0, 0, 0, 0, time.UTC),
			Cases: 100, Deaths: 7,
		}
		Expect(db.Create(&st).Error).ToNot(HaveOccurred())

		res, err := agg.RecomputeAll()
		Expect(err).ToNot(HaveOccurred())
		Expect(res).To(HaveLen(2))

		var count int
		db.Model(&model.OverallStat{}).Count(&count)
		Expect(count).To(Equal(2))

		all, err := agg.Overall()
		Expect(err).ToNot(HaveOccurred())
		Expect(all).To(HaveLen(2))
		Expect(all[0].Name).To(Equal("ebola"))
		Expect(all[1].Name).To(Equal("mpox"))
		Expect(all[1].TotalCases).To(Equal(int64(200)))
		Expect(all[1].TotalDeaths).To(Equal(int64(10)))
		Expect(all[1].FatalityRatio).To(BeNumerically("~", 5.0, 1e-9))
	})

	It("computes fatality ratio", func() {
		Expect(aggregate.FatalityRatio(0, 5)).To(Equal(0.0))
		Expect(aggregate.FatalityRatio(200, 10)).To(Equal(5.0))
	})
})
