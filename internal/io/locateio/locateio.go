package locateio

import (
	"log/slog"
	"strings"

	"github.com/gnames/epidump/internal/ent/dataset"
	"github.com/gnames/epidump/internal/ent/locate"
	"github.com/gnames/epidump/internal/ent/retry"
	"github.com/gnames/epidump/internal/io/dbio"
	"github.com/gnames/epidump/pkg/ent/model"
	"github.com/jinzhu/gorm"
)

type locateio struct {
	db     *gorm.DB
	policy retry.Policy
	// ids caches resolved locations of the run.
	ids map[string]uint
}

// New returns a Resolver that keeps locations in the database.
func New(db *gorm.DB, p retry.Policy) locate.Resolver {
	return &locateio{db: db, policy: p, ids: make(map[string]uint)}
}

// Resolve returns the ID of a location by its name, creating it if needed.
func (l *locateio) Resolve(name, region, isoCode string) (uint, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		name = dataset.UnknownLocation
	}
	if id, ok := l.ids[name]; ok {
		return id, nil
	}

	id, err := retry.Do(l.policy, "location", func() (uint, error) {
		id, err := l.find(name)
		if err != nil || id > 0 {
			return id, err
		}
		return l.create(name, region, isoCode)
	})
	if err != nil {
		slog.Error("Cannot resolve location", "location", name, "error", err)
		return 0, err
	}
	l.ids[name] = id
	return id, nil
}

func (l *locateio) find(name string) (uint, error) {
	var loc model.Location
	err := l.db.Where("country = ?", name).First(&loc).Error
	if gorm.IsRecordNotFoundError(err) {
		return 0, nil
	}
	if err != nil {
		return 0, dbio.Classify(err)
	}
	return loc.ID, nil
}

func (l *locateio) create(name, region, isoCode string) (uint, error) {
	loc := model.Location{
		Country: name,
		Region:  nullable(region),
		ISOCode: nullable(isoCode),
	}
	err := l.db.Create(&loc).Error
	if dbio.IsUniqueViolation(err) {
		// somebody inserted the same location, look it up
		return l.find(name)
	}
	if err != nil {
		return 0, dbio.Classify(err)
	}
	slog.Debug("Created location", "location", name, "id", loc.ID)
	return loc.ID, nil
}

func nullable(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
