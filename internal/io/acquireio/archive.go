package acquireio

import (
	"archive/zip"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/gnames/gnsys"
)

// unzip extracts an archive into a clean directory.
func unzip(archive, dir string) error {
	zr, err := zip.OpenReader(archive)
	if err != nil {
		slog.Error("Cannot open archive", "file", archive, "error", err)
		return err
	}
	defer zr.Close()

	if err = gnsys.MakeDir(dir); err != nil {
		return err
	}
	if err = gnsys.CleanDir(dir); err != nil {
		return err
	}

	root := filepath.Clean(dir) + string(os.PathSeparator)
	for _, f := range zr.File {
		path := filepath.Join(dir, f.Name)
		if !strings.HasPrefix(path, root) {
			return fmt.Errorf("illegal path in archive: %s", f.Name)
		}
		if f.FileInfo().IsDir() {
			if err = gnsys.MakeDir(path); err != nil {
				return err
			}
			continue
		}
		if err = extract(f, path); err != nil {
			return err
		}
	}
	return nil
}

func extract(f *zip.File, path string) error {
	err := gnsys.MakeDir(filepath.Dir(path))
	if err != nil {
		return err
	}
	r, err := f.Open()
	if err != nil {
		return err
	}
	defer r.Close()

	w, err := os.Create(path)
	if err != nil {
		return err
	}
	if _, err = io.Copy(w, r); err != nil {
		w.Close()
		return err
	}
	return w.Close()
}
