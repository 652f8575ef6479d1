package upsert

import "github.com/gnames/epidump/pkg/ent/model"

// Upserter is the interface that wraps the Upsert method.
type Upserter interface {
	// Upsert inserts daily stats or updates existing ones that share
	// epidemic, location and date. It returns the number of committed
	// records.
	Upsert(stats []model.DailyStat) (int, error)
}
