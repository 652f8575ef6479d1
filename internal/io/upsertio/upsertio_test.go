package upsertio_test

import (
	"database/sql/driver"
	"time"

	"github.com/jinzhu/gorm"
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	"github.com/gnames/epidump/internal/ent/retry"
	"github.com/gnames/epidump/internal/io/dbio"
	"github.com/gnames/epidump/internal/io/upsertio"
	"github.com/gnames/epidump/pkg/config"
	"github.com/gnames/epidump/pkg/ent/model"
)

func day(d int) time.Time {
	return time.Date(2022, 5, d, 0, 0, 0, 0, time.UTC)
}

func stats() []model.DailyStat {
	return []model.DailyStat{
		{EpidemicID: 1, SourceID: 1, LocationID: 1, Date: day(20), Cases: 1},
		{EpidemicID: 1, SourceID: 1, LocationID: 1, Date: day(21), Cases: 6, NewCases: 5},
		{EpidemicID: 1, SourceID: 1, LocationID: 2, Date: day(21), Cases: 5},
	}
}

var _ = Describe("Upsertio", func() {
	var db *gorm.DB

	BeforeEach(func() {
		var err error
		cfg := config.New(
			config.OptDbDriver("sqlite"),
			config.OptSqlitePath(":memory:"),
		)
		db, err = dbio.OpenMigrated(cfg)
		Expect(err).ToNot(HaveOccurred())
	})

	AfterEach(func() {
		Expect(db.Close()).To(Succeed())
	})

	count := func() int {
		var res int
		Expect(db.Model(&model.DailyStat{}).Count(&res).Error).ToNot(HaveOccurred())
		return res
	}

	It("inserts new daily stats", func() {
		up := upsertio.New(db, 100, retry.New(2, 0, 1))
		n, err := up.Upsert(stats())
		Expect(err).ToNot(HaveOccurred())
		Expect(n).To(Equal(3))
		Expect(count()).To(Equal(3))
	})

	It("commits in batches", func() {
		up := upsertio.New(db, 2, retry.New(2, 0, 1))
		n, err := up.Upsert(stats())
		Expect(err).ToNot(HaveOccurred())
		Expect(n).To(Equal(3))
		Expect(count()).To(Equal(3))
	})

	It("is idempotent", func() {
		up := upsertio.New(db, 100, retry.New(2, 0, 1))
		_, err := up.Upsert(stats())
		Expect(err).ToNot(HaveOccurred())
		n, err := up.Upsert(stats())
		Expect(err).ToNot(HaveOccurred())
		Expect(n).To(Equal(3))
		Expect(count()).To(Equal(3))
	})

	It("updates numbers and source of an existing daily stat", func() {
		up := upsertio.New(db, 100, retry.New(2, 0, 1))
		_, err := up.Upsert(stats())
		Expect(err).ToNot(HaveOccurred())

		upd := stats()[1]
		upd.SourceID = 7
		upd.Cases = 60
		upd.Deaths = 3
		n, err := up.Upsert([]model.DailyStat{upd})
		Expect(err).ToNot(HaveOccurred())
		Expect(n).To(Equal(1))
		Expect(count()).To(Equal(3))

		var st model.DailyStat
		err = db.Where("location_id = ? AND date = ?", 1, day(21)).First(&st).Error
		Expect(err).ToNot(HaveOccurred())
		Expect(st.Cases).To(Equal(int64(60)))
		Expect(st.Deaths).To(Equal(int64(3)))
		Expect(st.SourceID).To(Equal(uint(7)))
		Expect(st.Date.Equal(day(21))).To(BeTrue())
	})

	It("skips records without references and keeps the rest", func() {
		data := stats()
		data[1].LocationID = 0
		up := upsertio.New(db, 100, retry.New(2, 0, 1))
		n, err := up.Upsert(data)
		Expect(err).ToNot(HaveOccurred())
		Expect(n).To(Equal(2))
		Expect(count()).To(Equal(2))
	})

	It("accepts an empty batch", func() {
		up := upsertio.New(db, 100, retry.New(2, 0, 1))
		n, err := up.Upsert(nil)
		Expect(err).ToNot(HaveOccurred())
		Expect(n).To(Equal(0))
	})

	Describe("recovery", func() {
		var retries int
		var p retry.Policy

		BeforeEach(func() {
			retries = 0
			p = retry.New(3, 0, 1)
			p.Notify = func(string, int, error, time.Duration) { retries++ }
		})

		// onSecond runs fn once, when the second record of stats() is
		// created.
		onSecond := func(cp *gorm.CallbackProcessor, fn func(*gorm.Scope)) {
			var done bool
			cp.Register("epidump:second_record", func(scope *gorm.Scope) {
				st, ok := scope.Value.(*model.DailyStat)
				if done || !ok || st.LocationID != 1 || !st.Date.Equal(day(21)) {
					return
				}
				done = true
				fn(scope)
			})
		}

		It("retries a transient error of one record", func() {
			onSecond(db.Callback().Create().Before("gorm:create"), func(scope *gorm.Scope) {
				scope.Err(driver.ErrBadConn)
			})

			n, err := upsertio.New(db, 100, p).Upsert(stats())
			Expect(err).ToNot(HaveOccurred())
			Expect(n).To(Equal(3))
			Expect(count()).To(Equal(3))
			Expect(retries).To(Equal(1))
		})

		It("starts a new transaction when the old one is lost", func() {
			onSecond(db.Callback().Create().After("gorm:create"), func(scope *gorm.Scope) {
				_, err := scope.SQLDB().Exec("ROLLBACK")
				Expect(err).ToNot(HaveOccurred())
			})

			n, err := upsertio.New(db, 100, p).Upsert(stats())
			Expect(err).ToNot(HaveOccurred())
			Expect(n).To(Equal(2))
			Expect(count()).To(Equal(2))

			// the first record went down with the lost transaction
			var first int
			db.Model(&model.DailyStat{}).
				Where("location_id = ? AND date = ?", 1, day(20)).Count(&first)
			Expect(first).To(Equal(0))
		})

		It("drops a batch that cannot be committed and goes on", func() {
			onSecond(db.Callback().Create().After("gorm:create"), func(scope *gorm.Scope) {
				// ends the transaction, so the commit of the batch fails
				_, err := scope.SQLDB().Exec("ROLLBACK")
				Expect(err).ToNot(HaveOccurred())
				_, err = scope.SQLDB().Exec("SAVEPOINT epidump_stat")
				Expect(err).ToNot(HaveOccurred())
			})

			n, err := upsertio.New(db, 2, p).Upsert(stats())
			Expect(err).ToNot(HaveOccurred())
			Expect(n).To(Equal(1))
			Expect(count()).To(Equal(1))

			var st model.DailyStat
			Expect(db.First(&st).Error).ToNot(HaveOccurred())
			Expect(st.LocationID).To(Equal(uint(2)))
		})
	})
})
