package upsertio

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/gnames/epidump/internal/ent/retry"
	"github.com/gnames/epidump/internal/ent/upsert"
	"github.com/gnames/epidump/internal/io/dbio"
	"github.com/gnames/epidump/pkg/ent/model"
	"github.com/jinzhu/gorm"
)

const savepoint = "epidump_stat"

// errTxLost means the batch transaction cannot be used anymore.
var errTxLost = errors.New("transaction is lost")

type upsertio struct {
	db        *gorm.DB
	batchSize int
	policy    retry.Policy
}

// New returns an Upserter that commits every batchSize records.
func New(db *gorm.DB, batchSize int, p retry.Policy) upsert.Upserter {
	if batchSize < 1 {
		batchSize = 1
	}
	return &upsertio{db: db, batchSize: batchSize, policy: p}
}

// batch is an open transaction with records saved but not committed.
type batch struct {
	tx      *gorm.DB
	pending int
}

// Upsert saves daily stats in batches. Every record is saved inside a
// savepoint, so a failed record does not spoil the rest of the batch.
func (u *upsertio) Upsert(stats []model.DailyStat) (int, error) {
	b, err := u.begin()
	if err != nil {
		return 0, err
	}

	var committed, lost int
	for i := range stats {
		st := stats[i]
		st.ID = 0
		if st.EpidemicID == 0 || st.SourceID == 0 || st.LocationID == 0 {
			slog.Warn("Rejected daily stat without references",
				"epidemic_id", st.EpidemicID,
				"source_id", st.SourceID,
				"location_id", st.LocationID,
				"date", st.Date.Format("2006-01-02"),
			)
			continue
		}

		err = u.save(b, st)
		if errors.Is(err, errTxLost) {
			lost += u.discard(b)
			if b, err = u.begin(); err != nil {
				return committed, err
			}
			// one more chance in a fresh transaction
			err = u.save(b, st)
		}
		if err != nil {
			slog.Error("Cannot save daily stat",
				"epidemic_id", st.EpidemicID,
				"location_id", st.LocationID,
				"date", st.Date.Format("2006-01-02"),
				"error", err,
			)
			if errors.Is(err, errTxLost) {
				lost += u.discard(b)
				if b, err = u.begin(); err != nil {
					return committed, err
				}
			}
			continue
		}

		b.pending++
		if b.pending >= u.batchSize {
			n, l := u.commit(b)
			committed += n
			lost += l
			if b, err = u.begin(); err != nil {
				return committed, err
			}
		}
	}

	n, l := u.commit(b)
	committed += n
	lost += l
	if lost > 0 {
		slog.Warn("Some daily stats were not committed", "lost", lost)
	}
	return committed, nil
}

func (u *upsertio) begin() (*batch, error) {
	tx, err := retry.Do(u.policy, "begin", func() (*gorm.DB, error) {
		tx := u.db.Begin()
		if tx.Error != nil {
			return nil, dbio.Classify(tx.Error)
		}
		return tx, nil
	})
	if err != nil {
		slog.Error("Cannot start transaction", "error", err)
		return nil, err
	}
	return &batch{tx: tx}, nil
}

// commit returns the numbers of committed and lost records.
func (u *upsertio) commit(b *batch) (int, int) {
	err := b.tx.Commit().Error
	if err == nil {
		return b.pending, 0
	}
	slog.Error("Cannot commit daily stats", "records", b.pending, "error", err)
	return 0, u.discard(b)
}

// discard rolls the batch back and returns the number of lost records.
func (u *upsertio) discard(b *batch) int {
	_ = b.tx.Rollback()
	res := b.pending
	b.pending = 0
	return res
}

// save writes one record with retries of transient errors.
func (u *upsertio) save(b *batch, st model.DailyStat) error {
	return retry.Run(u.policy, "upsert", func() error {
		err := b.tx.Exec("SAVEPOINT " + savepoint).Error
		if err != nil {
			return retry.Permanent(fmt.Errorf("%w: %w", errTxLost, err))
		}

		if err = write(b.tx, st); err != nil {
			rbErr := b.tx.Exec("ROLLBACK TO SAVEPOINT " + savepoint).Error
			if rbErr != nil {
				return retry.Permanent(fmt.Errorf("%w: %w", errTxLost, rbErr))
			}
			_ = b.tx.Exec("RELEASE SAVEPOINT " + savepoint).Error
			return dbio.Classify(err)
		}

		err = b.tx.Exec("RELEASE SAVEPOINT " + savepoint).Error
		if err != nil {
			return retry.Permanent(fmt.Errorf("%w: %w", errTxLost, err))
		}
		return nil
	})
}

// write updates a daily stat with the same epidemic, location and date, or
// inserts a new one.
func write(tx *gorm.DB, st model.DailyStat) error {
	var cur model.DailyStat
	err := tx.
		Where("epidemic_id = ? AND location_id = ? AND date = ?",
			st.EpidemicID, st.LocationID, st.Date).
		First(&cur).Error
	if gorm.IsRecordNotFoundError(err) {
		return tx.Create(&st).Error
	}
	if err != nil {
		return err
	}

	return tx.Model(&cur).Updates(map[string]any{
		"source_id":     st.SourceID,
		"cases":         st.Cases,
		"deaths":        st.Deaths,
		"recovered":     st.Recovered,
		"active":        st.Active,
		"new_cases":     st.NewCases,
		"new_deaths":    st.NewDeaths,
		"new_recovered": st.NewRecovered,
	}).Error
}
