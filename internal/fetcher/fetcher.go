// Package fetcher opens dataset sources from local paths or HTTP and parses
// CSV, JSON, XLSX and ZIP payloads.
package fetcher

import (
	"context"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
)

// Fetcher defines the interface for downloading remote data.
type Fetcher interface {
	// Download fetches the URL and returns the response body.
	Download(ctx context.Context, url string) (io.ReadCloser, error)

	// DownloadToFile fetches the URL and writes it to the given path. Returns bytes written.
	DownloadToFile(ctx context.Context, url string, path string) (int64, error)
}

// IsRemote reports whether source is an http(s) URL rather than a local path.
func IsRemote(source string) bool {
	s := strings.ToLower(strings.TrimSpace(source))
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

// Ext returns the lower-cased extension of a path or URL, ignoring any query string.
func Ext(source string) string {
	if IsRemote(source) {
		if i := strings.IndexAny(source, "?#"); i >= 0 {
			source = source[:i]
		}
		return strings.ToLower(path.Ext(source))
	}
	return strings.ToLower(filepath.Ext(source))
}

// Open returns a reader for a local path or a remote URL.
func Open(ctx context.Context, f Fetcher, source string) (io.ReadCloser, error) {
	if IsRemote(source) {
		if f == nil {
			return nil, eris.Errorf("fetcher: no http fetcher configured for %s", source)
		}
		return f.Download(ctx, source)
	}
	file, err := os.Open(source)
	if err != nil {
		return nil, eris.Wrapf(err, "fetcher: open %s", source)
	}
	return file, nil
}

// Localize returns a local file path for source. Remote sources are downloaded
// into dir, keeping their base name so the extension survives.
func Localize(ctx context.Context, f Fetcher, source, dir string) (string, error) {
	if !IsRemote(source) {
		return source, nil
	}
	if f == nil {
		return "", eris.Errorf("fetcher: no http fetcher configured for %s", source)
	}

	name := path.Base(strings.SplitN(source, "?", 2)[0])
	if name == "" || name == "/" || name == "." {
		name = "download"
	}
	dest := filepath.Join(dir, name)
	if _, err := f.DownloadToFile(ctx, source, dest); err != nil {
		return "", err
	}
	return dest, nil
}
