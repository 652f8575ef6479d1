package model

import (
	"time"
)

// Model is the interface that wraps the Migrate method.
type Model interface {
	// Migrate creates or updates tables in the database.
	Migrate() error
}

// Epidemic is a tracked disease outbreak. It is created on first mention
// by a dataset family and is never deleted by the pipeline.
type Epidemic struct {
	ID uint `gorm:"primary_key"`

	// Name is a unique name, for datasets it is the family name.
	Name string `gorm:"type:varchar(255);not null;unique_index:idx_epidemic_name"`

	// Type is a kind of pathogen, for example "Coronavirus".
	Type string `gorm:"type:varchar(100)"`

	// Description is a free-form description of the epidemic.
	Description string `gorm:"type:text"`

	// StartDate is the first day of the epidemic.
	StartDate *time.Time `gorm:"type:date"`

	// EndDate is the last day of the epidemic, nil for ongoing ones.
	EndDate *time.Time `gorm:"type:date"`

	// TotalCases is derived from daily stats, do not edit it by hand.
	TotalCases int64 `gorm:"not null"`

	// TotalDeaths is derived from daily stats, do not edit it by hand.
	TotalDeaths int64 `gorm:"not null"`

	// FatalityRatio is deaths per 100 cases, derived from daily stats.
	FatalityRatio float64 `gorm:"not null"`
}

// Location is a country or another named place.
type Location struct {
	ID uint `gorm:"primary_key"`

	// Country is the unique name of the location.
	Country string `gorm:"type:varchar(150);not null;unique_index:idx_location_country"`

	// Region is an optional region, state or province.
	Region *string `gorm:"type:varchar(150)"`

	// ISOCode is an optional ISO code of the location.
	ISOCode *string `gorm:"column:iso_code;type:varchar(10)"`
}

// DataSource is an external dataset family.
type DataSource struct {
	ID uint `gorm:"primary_key"`

	// SourceType is the dataset family name, one row per family.
	SourceType string `gorm:"type:varchar(100);not null;unique_index:idx_source_type"`

	// Reference identifies the dataset at its provider.
	Reference string `gorm:"type:varchar(255)"`

	// URL is the web page of the dataset.
	URL string `gorm:"column:url;type:varchar(500);not null"`
}

// DailyStat is an observation of an epidemic at a location for one day.
// There is at most one DailyStat per epidemic, location and date, a later
// write from any source corrects the earlier one.
type DailyStat struct {
	ID         uint      `gorm:"primary_key"`
	EpidemicID uint      `gorm:"not null;unique_index:idx_unique_daily;index:idx_daily_epidemic"`
	SourceID   uint      `gorm:"not null"`
	LocationID uint      `gorm:"not null;unique_index:idx_unique_daily;index:idx_daily_loc"`
	Date       time.Time `gorm:"type:date;not null;unique_index:idx_unique_daily;index:idx_daily_date"`

	Cases        int64 `gorm:"not null"`
	Deaths       int64 `gorm:"not null"`
	Recovered    int64 `gorm:"not null"`
	Active       int64 `gorm:"not null"`
	NewCases     int64 `gorm:"not null"`
	NewDeaths    int64 `gorm:"not null"`
	NewRecovered int64 `gorm:"not null"`
}

// OverallStat keeps aggregates of one epidemic. It is fully derived from
// daily stats and recomputed on every run.
type OverallStat struct {
	ID            uint    `gorm:"primary_key"`
	EpidemicID    uint    `gorm:"not null;unique_index:idx_overall_epidemic"`
	TotalCases    int64   `gorm:"not null"`
	TotalDeaths   int64   `gorm:"not null"`
	FatalityRatio float64 `gorm:"not null"`
}
