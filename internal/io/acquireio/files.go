package acquireio

import (
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
)

// Files returns paths of all .csv and .tsv files under the directory,
// sorted.
func Files(dir string) ([]string, error) {
	var res []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		switch strings.ToLower(filepath.Ext(path)) {
		case ".csv", ".tsv":
			res = append(res, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(res)
	return res, nil
}
