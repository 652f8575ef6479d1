package locateio_test

import (
	"database/sql/driver"
	"time"

	"github.com/jinzhu/gorm"
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	"github.com/gnames/epidump/internal/ent/dataset"
	"github.com/gnames/epidump/internal/ent/retry"
	"github.com/gnames/epidump/internal/io/dbio"
	"github.com/gnames/epidump/internal/io/locateio"
	"github.com/gnames/epidump/pkg/config"
	"github.com/gnames/epidump/pkg/ent/model"
)

var _ = Describe("Locateio", func() {
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

	It("returns the same location for the same name", func() {
		res := locateio.New(db, retry.New(2, 0, 1))
		id1, err := res.Resolve("France", "", "")
		Expect(err).ToNot(HaveOccurred())
		id2, err := res.Resolve("France", "Ile-de-France", "FRA")
		Expect(err).ToNot(HaveOccurred())
		Expect(id2).To(Equal(id1))

		// a new resolver has no cached ids
		id3, err := locateio.New(db, retry.New(2, 0, 1)).Resolve("France", "", "")
		Expect(err).ToNot(HaveOccurred())
		Expect(id3).To(Equal(id1))

		var count int
		db.Model(&model.Location{}).Count(&count)
		Expect(count).To(Equal(1))
	})

	It("stores region and ISO code of a new location", func() {
		res := locateio.New(db, retry.New(2, 0, 1))
		id, err := res.Resolve(" Canada ", "Ontario", "CAN")
		Expect(err).ToNot(HaveOccurred())

		var loc model.Location
		Expect(db.First(&loc, id).Error).ToNot(HaveOccurred())
		Expect(loc.Country).To(Equal("Canada"))
		Expect(*loc.Region).To(Equal("Ontario"))
		Expect(*loc.ISOCode).To(Equal("CAN"))
	})

	It("stores blank region and ISO code as NULL", func() {
		res := locateio.New(db, retry.New(2, 0, 1))
		id, err := res.Resolve("Peru", " ", "")
		Expect(err).ToNot(HaveOccurred())

		var loc model.Location
		Expect(db.First(&loc, id).Error).ToNot(HaveOccurred())
		Expect(loc.Region).To(BeNil())
		Expect(loc.ISOCode).To(BeNil())
	})

	It("uses Unknown for blank names", func() {
		res := locateio.New(db, retry.New(2, 0, 1))
		id1, err := res.Resolve("", "", "")
		Expect(err).ToNot(HaveOccurred())
		id2, err := res.Resolve(dataset.UnknownLocation, "", "")
		Expect(err).ToNot(HaveOccurred())
		Expect(id2).To(Equal(id1))
	})

	Describe("recovery", func() {
		var retries int
		var p retry.Policy

		BeforeEach(func() {
			retries = 0
			p = retry.New(3, 0, 1)
			p.Notify = func(string, int, error, time.Duration) { retries++ }
		})

		It("retries a transient storage error", func() {
			var failed bool
			db.Callback().Query().Before("gorm:query").Register("epidump:bad_conn",
				func(scope *gorm.Scope) {
					if !failed {
						failed = true
						scope.Err(driver.ErrBadConn)
					}
				})

			id, err := locateio.New(db, p).Resolve("Chile", "", "")
			Expect(err).ToNot(HaveOccurred())
			Expect(id).To(BeNumerically(">", 0))
			Expect(retries).To(Equal(1))
		})

		It("looks up a location inserted by somebody else", func() {
			var other uint
			db.Callback().Query().After("gorm:query").Register("epidump:other_writer",
				func(scope *gorm.Scope) {
					if other > 0 {
						return
					}
					loc := model.Location{Country: "Chile"}
					Expect(db.Create(&loc).Error).ToNot(HaveOccurred())
					other = loc.ID
				})

			id, err := locateio.New(db, p).Resolve("Chile", "", "")
			Expect(err).ToNot(HaveOccurred())
			Expect(id).To(Equal(other))
			Expect(retries).To(Equal(0))

			var count int
			db.Model(&model.Location{}).Count(&count)
			Expect(count).To(Equal(1))
		})

		It("gives up after the last attempt", func() {
			db.Callback().Query().Before("gorm:query").Register("epidump:bad_conn",
				func(scope *gorm.Scope) {
					scope.Err(driver.ErrBadConn)
				})

			_, err := locateio.New(db, p).Resolve("Chile", "", "")
			Expect(err).To(MatchError(driver.ErrBadConn))
			Expect(retries).To(Equal(2))
		})
	})
})
