// Package fetcher materialises input datasets from local paths, HTTP, FTP
// and ZIP archives, and reads tabular CSV and XLSX files.
package fetcher

import (
	"context"
	"io"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// Fetcher downloads a remote file.
type Fetcher interface {
	// Download fetches the URL and returns the response body.
	Download(ctx context.Context, url string) (io.ReadCloser, error)

	// DownloadToFile fetches the URL and writes it to the given path. Returns bytes written.
	DownloadToFile(ctx context.Context, url string, path string) (int64, error)
}

// Materializer turns an input reference into a local path. Remote references
// are downloaded into TempDir and ZIP archives are extracted next to them.
type Materializer struct {
	HTTP    Fetcher
	FTP     Fetcher
	TempDir string
}

// NewMaterializer returns a Materializer using the given fetchers.
func NewMaterializer(httpFetcher, ftpFetcher Fetcher, tempDir string) *Materializer {
	if tempDir == "" {
		tempDir = os.TempDir()
	}
	return &Materializer{HTTP: httpFetcher, FTP: ftpFetcher, TempDir: tempDir}
}

// Materialize returns a local path for ref. Plain paths are returned as-is
// (after extraction when they are ZIP archives). An extracted archive yields
// its single file, or the extraction directory when it holds several.
func (m *Materializer) Materialize(ctx context.Context, ref string) (string, error) {
	local, err := m.fetch(ctx, ref)
	if err != nil {
		return "", err
	}
	if !strings.EqualFold(filepath.Ext(local), ".zip") {
		return local, nil
	}

	dest := filepath.Join(m.TempDir, strings.TrimSuffix(filepath.Base(local), filepath.Ext(local))+"-"+uuid.NewString()[:8])
	if err := os.MkdirAll(dest, 0o755); err != nil {
		return "", eris.Wrap(err, "fetcher: create extraction directory")
	}
	files, err := ExtractZIP(local, dest)
	if err != nil {
		return "", err
	}

	zap.L().Debug("fetcher: extracted archive",
		zap.String("archive", local),
		zap.Int("files", len(files)),
	)
	if len(files) == 1 {
		return files[0], nil
	}
	return dest, nil
}

// LocalPath returns the filesystem path behind ref and true when ref needs no
// download: bare paths, Windows drive letters and file:// URLs.
func LocalPath(ref string) (string, bool) {
	u, err := url.Parse(ref)
	if err != nil || u.Scheme == "" || len(u.Scheme) == 1 {
		return ref, true
	}
	if strings.EqualFold(u.Scheme, "file") {
		return u.Path, true
	}
	return "", false
}

func (m *Materializer) fetch(ctx context.Context, ref string) (string, error) {
	if ref == "" {
		return "", eris.New("fetcher: empty input reference")
	}

	if local, ok := LocalPath(ref); ok {
		return local, nil
	}

	u, err := url.Parse(ref)
	if err != nil {
		return "", eris.Wrapf(err, "fetcher: parse %s", ref)
	}

	var f Fetcher
	switch strings.ToLower(u.Scheme) {
	case "http", "https":
		f = m.HTTP
	case "ftp":
		f = m.FTP
	default:
		return "", eris.Errorf("fetcher: unsupported scheme %q", u.Scheme)
	}
	if f == nil {
		return "", eris.Errorf("fetcher: no fetcher configured for %s", u.Scheme)
	}

	if err := os.MkdirAll(m.TempDir, 0o755); err != nil {
		return "", eris.Wrap(err, "fetcher: create temp directory")
	}
	name := path.Base(u.Path)
	if name == "" || name == "/" || name == "." {
		name = "download"
	}
	dest := filepath.Join(m.TempDir, uuid.NewString()[:8]+"-"+name)

	n, err := f.DownloadToFile(ctx, ref, dest)
	if err != nil {
		return "", eris.Wrapf(err, "fetcher: download %s", ref)
	}
	zap.L().Info("fetcher: downloaded input",
		zap.String("component", "fetcher"),
		zap.String("url", ref),
		zap.String("path", dest),
		zap.Int64("bytes", n),
	)
	return dest, nil
}
