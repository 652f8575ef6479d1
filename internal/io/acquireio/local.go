package acquireio

import (
	"fmt"
	"path/filepath"

	"github.com/gnames/epidump/internal/ent/acquire"
	"github.com/gnames/epidump/pkg/config"
)

type local struct {
	dir string
}

func newLocal(cfg config.Config) *local {
	return &local{dir: cfg.LocalDir}
}

// Acquire finds an extracted dataset at <dir>/<ref>.
func (l *local) Acquire(ref string) (acquire.Dataset, error) {
	dir := filepath.Join(l.dir, filepath.FromSlash(ref))
	res := acquire.Dataset{Ref: ref, Dir: dir, URL: "file://" + dir}
	if !dirExists(dir) {
		return res, fmt.Errorf("%w: %s", acquire.ErrNotFound, dir)
	}
	return res, nil
}
