package catalogio

import (
	"log/slog"

	"github.com/gnames/epidump/internal/ent/catalog"
	"github.com/gnames/epidump/internal/ent/retry"
	"github.com/gnames/epidump/internal/io/dbio"
	"github.com/gnames/epidump/pkg/ent/model"
	"github.com/jinzhu/gorm"
)

type catalogio struct {
	db     *gorm.DB
	policy retry.Policy
}

// New returns a Catalog that keeps epidemics and data sources in the
// database.
func New(db *gorm.DB, p retry.Policy) catalog.Catalog {
	return &catalogio{db: db, policy: p}
}

// EpidemicID returns the ID of an epidemic, creating it if needed.
func (c *catalogio) EpidemicID(name string) (uint, error) {
	return retry.Do(c.policy, "epidemic", func() (uint, error) {
		var ep model.Epidemic
		err := c.db.Where("name = ?", name).First(&ep).Error
		if err == nil {
			return ep.ID, nil
		}
		if !gorm.IsRecordNotFoundError(err) {
			return 0, dbio.Classify(err)
		}

		ep = model.Epidemic{Name: name}
		err = c.db.Create(&ep).Error
		if dbio.IsUniqueViolation(err) {
			// created by somebody else meanwhile, next try finds it
			return 0, err
		}
		if err != nil {
			return 0, dbio.Classify(err)
		}
		slog.Info("Created epidemic", "name", name, "id", ep.ID)
		return ep.ID, nil
	})
}

// SourceID returns the ID of a data source, creating it if needed.
func (c *catalogio) SourceID(sourceType, ref, url string) (uint, error) {
	return retry.Do(c.policy, "source", func() (uint, error) {
		var src model.DataSource
		err := c.db.Where("source_type = ?", sourceType).First(&src).Error
		if err == nil {
			return src.ID, nil
		}
		if !gorm.IsRecordNotFoundError(err) {
			return 0, dbio.Classify(err)
		}

		src = model.DataSource{SourceType: sourceType, Reference: ref, URL: url}
		err = c.db.Create(&src).Error
		if dbio.IsUniqueViolation(err) {
			return 0, err
		}
		if err != nil {
			return 0, dbio.Classify(err)
		}
		slog.Info("Created data source", "type", sourceType, "id", src.ID)
		return src.ID, nil
	})
}

// Reset deletes daily stats of the epidemic that came from the source.
func (c *catalogio) Reset(epidemicID, sourceID uint) (int64, error) {
	return retry.Do(c.policy, "reset", func() (int64, error) {
		res := c.db.
			Where("epidemic_id = ? AND source_id = ?", epidemicID, sourceID).
			Delete(&model.DailyStat{})
		if res.Error != nil {
			return 0, dbio.Classify(res.Error)
		}
		slog.Info("Removed daily stats",
			"epidemic_id", epidemicID, "source_id", sourceID, "rows", res.RowsAffected)
		return res.RowsAffected, nil
	})
}
