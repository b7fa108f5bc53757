package fetcher

import (
	"archive/zip"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
)

// ExtractZIP unpacks every file of the archive under destDir and returns the
// extracted paths in name order. Entries escaping destDir are rejected.
func ExtractZIP(zipPath, destDir string) ([]string, error) {
	r, err := zip.OpenReader(zipPath)
	if err != nil {
		return nil, eris.Wrapf(err, "zip: open %s", zipPath)
	}
	defer r.Close() //nolint:errcheck

	root := filepath.Clean(destDir) + string(os.PathSeparator)
	var paths []string
	for _, f := range r.File {
		dest := filepath.Join(destDir, f.Name)
		if !strings.HasPrefix(filepath.Clean(dest)+string(os.PathSeparator), root) {
			return paths, eris.Errorf("zip: entry %q escapes destination (zip slip)", f.Name)
		}
		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(dest, 0o755); err != nil {
				return paths, eris.Wrap(err, "zip: create directory")
			}
			continue
		}
		if err := writeZIPEntry(f, dest); err != nil {
			return paths, err
		}
		paths = append(paths, dest)
	}
	sort.Strings(paths)
	return paths, nil
}

// ExtractZIPByExt extracts the archive and returns the first file, in name
// order, whose extension matches one of exts (case-insensitive). Shapefile
// sidecars (.shx, .dbf, .prj) land next to the .shp.
func ExtractZIPByExt(zipPath, destDir string, exts ...string) (string, error) {
	paths, err := ExtractZIP(zipPath, destDir)
	if err != nil {
		return "", err
	}
	for _, p := range paths {
		ext := filepath.Ext(p)
		for _, want := range exts {
			if strings.EqualFold(ext, want) {
				return p, nil
			}
		}
	}
	return "", eris.Errorf("zip: no %s file in %s", strings.Join(exts, "/"), filepath.Base(zipPath))
}

func writeZIPEntry(f *zip.File, dest string) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return eris.Wrap(err, "zip: create parent directory")
	}
	rc, err := f.Open()
	if err != nil {
		return eris.Wrapf(err, "zip: open entry %s", f.Name)
	}
	defer rc.Close() //nolint:errcheck

	out, err := os.Create(dest)
	if err != nil {
		return eris.Wrap(err, "zip: create file")
	}
	if _, err := io.Copy(out, rc); err != nil {
		out.Close() //nolint:errcheck,gosec
		return eris.Wrapf(err, "zip: write %s", f.Name)
	}
	return eris.Wrap(out.Close(), "zip: close file")
}
