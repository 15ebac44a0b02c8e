// internal/testdata/testdata.go

// Package testdata retrieves sample DICOM series and imports them into the
// file index, so a report can be exercised without clinical data at hand.
package testdata

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/mrsinham/quantreport/internal/exporter"
	"github.com/mrsinham/quantreport/internal/index"
)

// VolumeKind selects the image volume archive of a collection.
const VolumeKind = "volume"

// importWorkers caps the parallel index inserts during an import.
const importWorkers = 4

// Collection describes one downloadable sample data set.
type Collection struct {
	Name string
	// SeriesUID identifies the image series the archive carries, used to
	// skip the download when the series is already indexed.
	SeriesUID string
	// Archives maps a data kind to its archive URL.
	Archives map[string]string
}

// Collections returns the built-in sample collections.
func Collections() []Collection {
	return []Collection{
		{
			Name:      "MRHead",
			SeriesUID: "2.16.840.1.113662.4.4168496325.1025306170.548651188813145058",
			Archives: map[string]string{
				VolumeKind: "https://github.com/QIICR/QuantitativeReporting/releases/download/test-data/MRHead.zip",
			},
		},
	}
}

// CollectionByName finds a built-in collection.
func CollectionByName(name string) (Collection, bool) {
	for _, c := range Collections() {
		if c.Name == name {
			return c, true
		}
	}
	return Collection{}, false
}

// Loader downloads collection archives into a cache directory and imports
// their DICOM files into the index.
type Loader struct {
	client   *resty.Client
	repo     index.Repository
	cacheDir string
	logger   *zap.Logger
}

// NewLoader creates a loader caching downloads under cacheDir.
func NewLoader(repo index.Repository, cacheDir string, logger *zap.Logger) *Loader {
	if logger == nil {
		logger = zap.NewNop()
	}

	client := resty.New().
		SetTimeout(5 * time.Minute).
		SetRetryCount(3).
		SetRetryWaitTime(1 * time.Second).
		SetRetryMaxWaitTime(5 * time.Second)

	return &Loader{
		client:   client,
		repo:     repo,
		cacheDir: cacheDir,
		logger:   logger,
	}
}

// Load makes the collection's files available through the index. The
// archive is downloaded and imported only when the series is not indexed
// yet.
func (l *Loader) Load(ctx context.Context, c Collection, kind string) ([]string, error) {
	if files, err := l.repo.FilesForSeries(ctx, c.SeriesUID); err == nil && len(files) > 0 {
		l.logger.Debug("Series already imported",
			zap.String("collection", c.Name),
			zap.String("series", c.SeriesUID))
		return files, nil
	}

	url, ok := c.Archives[kind]
	if !ok {
		return nil, fmt.Errorf("collection %s has no %q archive", c.Name, kind)
	}

	dataDir, err := l.fetchArchive(ctx, c.Name, kind, url)
	if err != nil {
		return nil, err
	}
	if err := l.importDirectory(ctx, dataDir); err != nil {
		return nil, err
	}

	files, err := l.repo.FilesForSeries(ctx, c.SeriesUID)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("archive of %s did not contain series %s", c.Name, c.SeriesUID)
	}
	return files, nil
}

// fetchArchive downloads one archive into the cache and extracts it.
func (l *Loader) fetchArchive(ctx context.Context, name, kind, url string) (string, error) {
	if err := os.MkdirAll(l.cacheDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create cache directory: %w", err)
	}

	zipPath := filepath.Join(l.cacheDir, fmt.Sprintf("%s-%s.zip", name, kind))
	resp, err := l.client.R().
		SetContext(ctx).
		SetOutput(zipPath).
		Get(url)
	if err != nil {
		return "", fmt.Errorf("failed to download %s: %w", url, err)
	}
	if !resp.IsSuccess() {
		return "", fmt.Errorf("failed to download %s: status %s", url, resp.Status())
	}
	l.logger.Info("Downloaded sample data",
		zap.String("collection", name),
		zap.String("url", url))

	dataDir := filepath.Join(l.cacheDir, name, kind)
	if err := unzip(zipPath, dataDir); err != nil {
		return "", fmt.Errorf("failed to extract %s: %w", zipPath, err)
	}
	return dataDir, nil
}

// importDirectory inserts every DICOM file under dir into the index.
func (l *Loader) importDirectory(ctx context.Context, dir string) error {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		found, err := exporter.SourceFiles(path)
		if err != nil {
			return err
		}
		files = append(files, found...)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to scan extracted archive: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(importWorkers)
	for _, file := range files {
		g.Go(func() error {
			if err := l.repo.Insert(gctx, file); err != nil {
				return fmt.Errorf("failed to import %s: %w", file, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	l.logger.Info("Imported sample data", zap.Int("files", len(files)))
	return nil
}

// unzip extracts an archive, refusing entries that escape dest.
func unzip(zipPath, dest string) error {
	r, err := zip.OpenReader(zipPath)
	if err != nil {
		return err
	}
	defer r.Close()

	dest = filepath.Clean(dest)
	if err := os.MkdirAll(dest, 0755); err != nil {
		return err
	}

	for _, f := range r.File {
		target := filepath.Join(dest, f.Name)
		if target != dest && !strings.HasPrefix(target, dest+string(os.PathSeparator)) {
			return fmt.Errorf("archive entry %q escapes extraction directory", f.Name)
		}

		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0755); err != nil {
				return err
			}
			continue
		}
		if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
			return err
		}
		if err := extractFile(f, target); err != nil {
			return fmt.Errorf("failed to extract %s: %w", f.Name, err)
		}
	}
	return nil
}

func extractFile(f *zip.File, target string) error {
	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer rc.Close()

	out, err := os.Create(target)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, rc); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
