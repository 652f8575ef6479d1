package aggregateio

import (
	"log/slog"

	"github.com/gnames/epidump/internal/ent/aggregate"
	"github.com/gnames/epidump/internal/ent/retry"
	"github.com/gnames/epidump/internal/io/dbio"
	"github.com/gnames/epidump/pkg/ent/model"
	"github.com/jinzhu/gorm"
)

type aggregateio struct {
	db     *gorm.DB
	policy retry.Policy
}

// New returns a Recalculator that keeps aggregates in overall_stats and
// mirrors them to epidemics.
func New(db *gorm.DB, p retry.Policy) aggregate.Recalculator {
	return &aggregateio{db: db, policy: p}
}

type sums struct {
	Cases  int64
	Deaths int64
}

// Recompute sums daily stats of an epidemic and saves the result.
func (a *aggregateio) Recompute(epidemicID uint) (aggregate.Totals, error) {
	res, err := retry.Do(a.policy, "aggregate", func() (aggregate.Totals, error) {
		tx := a.db.Begin()
		if tx.Error != nil {
			return aggregate.Totals{}, dbio.Classify(tx.Error)
		}
		res, err := recompute(tx, epidemicID)
		if err != nil {
			tx.Rollback()
			return res, dbio.Classify(err)
		}
		if err = tx.Commit().Error; err != nil {
			tx.Rollback()
			return res, dbio.Classify(err)
		}
		return res, nil
	})
	if err != nil {
		slog.Error("Cannot recompute aggregates",
			"epidemic_id", epidemicID, "error", err)
		return res, err
	}
	slog.Info("Recomputed aggregates",
		"epidemic", res.Name,
		"cases", res.TotalCases,
		"deaths", res.TotalDeaths,
		"fatality_ratio", res.FatalityRatio,
	)
	return res, nil
}

func recompute(tx *gorm.DB, epidemicID uint) (aggregate.Totals, error) {
	res := aggregate.Totals{EpidemicID: epidemicID}

	var ep model.Epidemic
	if err := tx.First(&ep, epidemicID).Error; err != nil {
		return res, err
	}
	res.Name = ep.Name

	var s sums
	err := tx.Model(&model.DailyStat{}).
		Select("COALESCE(SUM(cases), 0) AS cases, COALESCE(SUM(deaths), 0) AS deaths").
		Where("epidemic_id = ?", epidemicID).
		Scan(&s).Error
	if err != nil {
		return res, err
	}
	res.TotalCases = s.Cases
	res.TotalDeaths = s.Deaths
	res.FatalityRatio = aggregate.FatalityRatio(s.Cases, s.Deaths)

	fields := map[string]any{
		"total_cases":    res.TotalCases,
		"total_deaths":   res.TotalDeaths,
		"fatality_ratio": res.FatalityRatio,
	}

	var ov model.OverallStat
	err = tx.Where("epidemic_id = ?", epidemicID).First(&ov).Error
	switch {
	case gorm.IsRecordNotFoundError(err):
		ov = model.OverallStat{
			EpidemicID:    epidemicID,
			TotalCases:    res.TotalCases,
			TotalDeaths:   res.TotalDeaths,
			FatalityRatio: res.FatalityRatio,
		}
		err = tx.Create(&ov).Error
	case err == nil:
		err = tx.Model(&ov).Updates(fields).Error
	}
	if err != nil {
		return res, err
	}

	err = tx.Model(&ep).Updates(fields).Error
	return res, err
}

// RecomputeAll recomputes aggregates of every epidemic ordered by ID.
func (a *aggregateio) RecomputeAll() ([]aggregate.Totals, error) {
	ids, err := retry.Do(a.policy, "epidemics", func() ([]uint, error) {
		var ids []uint
		err := a.db.Model(&model.Epidemic{}).Order("id").Pluck("id", &ids).Error
		return ids, dbio.Classify(err)
	})
	if err != nil {
		slog.Error("Cannot list epidemics", "error", err)
		return nil, err
	}

	res := make([]aggregate.Totals, 0, len(ids))
	for _, id := range ids {
		t, err := a.Recompute(id)
		if err != nil {
			return res, err
		}
		res = append(res, t)
	}
	return res, nil
}

// Overall returns stored aggregates ordered by epidemic name.
func (a *aggregateio) Overall() ([]aggregate.Totals, error) {
	return retry.Do(a.policy, "overall", func() ([]aggregate.Totals, error) {
		var res []aggregate.Totals
		err := a.db.Table("overall_stats").
			Select("overall_stats.epidemic_id, epidemics.name, " +
				"overall_stats.total_cases, overall_stats.total_deaths, " +
				"overall_stats.fatality_ratio").
			Joins("JOIN epidemics ON epidemics.id = overall_stats.epidemic_id").
			Order("epidemics.name").
			Scan(&res).Error
		return res, dbio.Classify(err)
	})
}
