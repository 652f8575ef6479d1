package modelio

import (
	"github.com/gnames/epidump/pkg/ent/model"
	"github.com/jinzhu/gorm"
)

type modelio struct {
	db *gorm.DB
}

// New returns a new instance of Model
func New(db *gorm.DB) model.Model {
	res := modelio{db: db}
	return &res
}

// Migrate creates tables and indices in the database.
func (m *modelio) Migrate() error {
	res := m.db.AutoMigrate(
		&model.Epidemic{},
		&model.Location{},
		&model.DataSource{},
		&model.DailyStat{},
		&model.OverallStat{},
	)
	return res.Error
}
