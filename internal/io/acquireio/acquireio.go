// Package acquireio makes datasets available as local directories with
// delimited files. Datasets come from Kaggle, from an S3-compatible
// storage or from a local directory.
package acquireio

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/gnames/epidump/internal/ent/acquire"
	"github.com/gnames/epidump/internal/ent/kv"
	"github.com/gnames/epidump/internal/ent/retry"
	"github.com/gnames/epidump/pkg/config"
	"github.com/gnames/gnfmt"
	"github.com/gnames/gnuuid"
)

// entry keeps what is known about the last download of a dataset.
type entry struct {
	ETag         string
	LastModified string
	Fetched      time.Time
}

// New creates an Acquirer for the source given in the config. The
// key-value store keeps download metadata and must be open.
func New(
	cfg config.Config,
	store kv.KeyVal,
	p retry.Policy,
) (acquire.Acquirer, error) {
	switch cfg.Source {
	case "kaggle":
		return newKaggle(cfg, store, p), nil
	case "s3":
		return newS3(cfg, store, p)
	case "local":
		return newLocal(cfg), nil
	default:
		return nil, fmt.Errorf("unknown dataset source '%s'", cfg.Source)
	}
}

// datasetDir returns a stable directory for the extracted dataset.
func datasetDir(root, ref string) string {
	return filepath.Join(root, gnuuid.New(ref).String())
}

func dirExists(dir string) bool {
	fi, err := os.Stat(dir)
	return err == nil && fi.IsDir()
}

// cached is a piece of a source that remembers downloads in a key-value
// store.
type cached struct {
	store kv.KeyVal
	enc   gnfmt.GNgob
}

func (c cached) get(ref string) entry {
	var res entry
	if c.store == nil {
		return res
	}
	val, err := c.store.GetValue([]byte(ref))
	if err != nil {
		slog.Warn("Cannot read download metadata", "ref", ref, "error", err)
		return res
	}
	if val == nil {
		return res
	}
	if err = c.enc.Decode(val, &res); err != nil {
		slog.Warn("Cannot decode download metadata", "ref", ref, "error", err)
		return entry{}
	}
	return res
}

func (c cached) set(ref string, e entry) {
	if c.store == nil {
		return
	}
	val, err := c.enc.Encode(e)
	if err == nil {
		err = c.store.SetValue([]byte(ref), val)
	}
	if err != nil {
		slog.Warn("Cannot save download metadata", "ref", ref, "error", err)
	}
}
