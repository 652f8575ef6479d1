package cmd

import (
	"log/slog"
	"os"

	"github.com/gnames/epidump/internal/ent/kv"
	"github.com/gnames/epidump/internal/io/dbio"
	"github.com/gnames/epidump/internal/io/kvio"
	"github.com/gnames/epidump/internal/io/metricsio"
	epidump "github.com/gnames/epidump/pkg"
	"github.com/gnames/epidump/pkg/config"
	"github.com/jinzhu/gorm"
	"github.com/prometheus/client_golang/prometheus"
)

// session keeps resources of one command run.
type session struct {
	db    *gorm.DB
	store kv.KeyVal
	ed    epidump.EpiDump
}

// newSession opens the database and the download cache and creates the
// pipeline. It exits on errors.
func newSession(cfg config.Config) *session {
	db, err := dbio.OpenMigrated(cfg)
	if err != nil {
		slog.Error("Cannot open database", "error", err)
		os.Exit(1)
	}
	res := session{db: db}

	if cfg.Source != "local" {
		res.store, err = kvio.New(cfg.KVDir)
		if err == nil {
			err = res.store.Open()
		}
		if err != nil {
			slog.Error("Cannot open download cache", "dir", cfg.KVDir, "error", err)
			res.close()
			os.Exit(1)
		}
	}

	m := metricsio.New(prometheus.NewRegistry())
	comps, err := epidump.NewComponents(cfg, db, res.store, m)
	if err != nil {
		slog.Error("Cannot create pipeline", "error", err)
		res.close()
		os.Exit(1)
	}
	res.ed = epidump.New(cfg, comps)
	return &res
}

func (s *session) close() {
	if s.store != nil {
		if err := s.store.Close(); err != nil {
			slog.Warn("Cannot close download cache", "error", err)
		}
	}
	if err := s.db.Close(); err != nil {
		slog.Warn("Cannot close database", "error", err)
	}
}
