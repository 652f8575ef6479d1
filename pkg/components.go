package epidump

import (
	"time"

	"github.com/gnames/epidump/internal/ent/acquire"
	"github.com/gnames/epidump/internal/ent/aggregate"
	"github.com/gnames/epidump/internal/ent/catalog"
	"github.com/gnames/epidump/internal/ent/kv"
	"github.com/gnames/epidump/internal/ent/locate"
	"github.com/gnames/epidump/internal/ent/metrics"
	"github.com/gnames/epidump/internal/ent/retry"
	"github.com/gnames/epidump/internal/ent/upsert"
	"github.com/gnames/epidump/internal/io/acquireio"
	"github.com/gnames/epidump/internal/io/aggregateio"
	"github.com/gnames/epidump/internal/io/catalogio"
	"github.com/gnames/epidump/internal/io/locateio"
	"github.com/gnames/epidump/internal/io/upsertio"
	"github.com/gnames/epidump/pkg/config"
	"github.com/jinzhu/gorm"
)

// Components are the parts of the pipeline. Metrics are optional.
type Components struct {
	Acquirer     acquire.Acquirer
	Catalog      catalog.Catalog
	Resolver     locate.Resolver
	Upserter     upsert.Upserter
	Recalculator aggregate.Recalculator
	Metrics      metrics.Metrics
}

// Policy creates a storage and network retry policy from the config.
// Retries are counted by metrics if they are given.
func Policy(cfg config.Config, m metrics.Metrics) retry.Policy {
	res := retry.New(cfg.MaxAttempts, cfg.BaseDelay, cfg.Multiplier)
	if m != nil {
		res.Notify = func(op string, _ int, _ error, _ time.Duration) {
			m.Retry(op)
		}
	}
	return res
}

// NewComponents creates database-backed components. The key-value store
// keeps download metadata and must be open, it can be nil for the local
// source.
func NewComponents(
	cfg config.Config,
	db *gorm.DB,
	store kv.KeyVal,
	m metrics.Metrics,
) (Components, error) {
	p := Policy(cfg, m)
	acq, err := acquireio.New(cfg, store, p)
	if err != nil {
		return Components{}, err
	}
	res := Components{
		Acquirer:     acq,
		Catalog:      catalogio.New(db, p),
		Resolver:     locateio.New(db, p),
		Upserter:     upsertio.New(db, cfg.BatchSize, p),
		Recalculator: aggregateio.New(db, p),
		Metrics:      m,
	}
	return res, nil
}
