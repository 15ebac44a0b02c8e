// internal/testdata/testdata_test.go
package testdata

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"go.uber.org/zap"

	"github.com/mrsinham/quantreport/internal/dicom/dicomtest"
	"github.com/mrsinham/quantreport/internal/index"
)

// buildArchive zips a few DICOM files of one series plus a stray text file.
func buildArchive(t *testing.T, seriesUID string, names ...string) []byte {
	t.Helper()
	dir := t.TempDir()

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	for i, name := range names {
		path := filepath.Join(dir, fmt.Sprintf("f%d.dcm", i))
		err := dicomtest.WriteSEG(path, dicomtest.SEGSpec{
			SOPInstanceUID:    fmt.Sprintf("%s.%d", seriesUID, i+1),
			SeriesInstanceUID: seriesUID,
		})
		if err != nil {
			t.Fatal(err)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			t.Fatal(err)
		}
		w, err := zw.Create(name)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := w.Write(data); err != nil {
			t.Fatal(err)
		}
	}

	w, err := zw.Create("volume/README.txt")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := w.Write([]byte("not dicom")); err != nil {
		t.Fatal(err)
	}

	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestLoader_Load(t *testing.T) {
	const seriesUID = "1.2.840.999.7"
	archive := buildArchive(t, seriesUID, "volume/img1.dcm", "volume/img2.dcm")

	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		_, _ = w.Write(archive)
	}))
	defer server.Close()

	c := Collection{
		Name:      "MRHead",
		SeriesUID: seriesUID,
		Archives:  map[string]string{VolumeKind: server.URL + "/MRHead.zip"},
	}
	repo := index.NewMemoryRepository()
	loader := NewLoader(repo, filepath.Join(t.TempDir(), "cache"), zap.NewNop())

	files, err := loader.Load(context.Background(), c, VolumeKind)
	if err != nil {
		t.Fatalf("failed to load collection: %v", err)
	}
	if len(files) != 2 {
		t.Fatalf("expected 2 imported files, got %v", files)
	}
	for _, f := range files {
		if _, err := os.Stat(f); err != nil {
			t.Errorf("expected extracted file %s: %v", f, err)
		}
	}
	if repo.Len() != 2 {
		t.Errorf("expected 2 indexed files, got %d", repo.Len())
	}
	if hits.Load() != 1 {
		t.Errorf("expected 1 download, got %d", hits.Load())
	}

	// A second load finds the series in the index and skips the download.
	again, err := loader.Load(context.Background(), c, VolumeKind)
	if err != nil {
		t.Fatalf("failed to reload collection: %v", err)
	}
	if len(again) != 2 {
		t.Errorf("expected same files on reload, got %v", again)
	}
	if hits.Load() != 1 {
		t.Errorf("expected no second download, got %d", hits.Load())
	}
}

func TestLoader_Load_UnknownKind(t *testing.T) {
	loader := NewLoader(index.NewMemoryRepository(), t.TempDir(), zap.NewNop())

	c := Collection{Name: "MRHead", SeriesUID: "1.2.3"}
	if _, err := loader.Load(context.Background(), c, "labelmap"); err == nil ||
		!strings.Contains(err.Error(), "labelmap") {
		t.Errorf("expected unknown kind error, got %v", err)
	}
}

func TestLoader_Load_DownloadError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer server.Close()

	c := Collection{
		Name:      "MRHead",
		SeriesUID: "1.2.3",
		Archives:  map[string]string{VolumeKind: server.URL + "/missing.zip"},
	}
	loader := NewLoader(index.NewMemoryRepository(), t.TempDir(), zap.NewNop())

	if _, err := loader.Load(context.Background(), c, VolumeKind); err == nil {
		t.Error("expected download error, got nil")
	}
}

func TestLoader_Load_SeriesMissingFromArchive(t *testing.T) {
	archive := buildArchive(t, "1.2.840.999.8", "volume/img1.dcm")

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(archive)
	}))
	defer server.Close()

	c := Collection{
		Name:      "MRHead",
		SeriesUID: "1.2.840.999.9", // not what the archive carries
		Archives:  map[string]string{VolumeKind: server.URL + "/MRHead.zip"},
	}
	loader := NewLoader(index.NewMemoryRepository(), t.TempDir(), zap.NewNop())

	if _, err := loader.Load(context.Background(), c, VolumeKind); err == nil ||
		!strings.Contains(err.Error(), "did not contain series") {
		t.Errorf("expected missing series error, got %v", err)
	}
}

func TestUnzip_RejectsEscapingEntry(t *testing.T) {
	dir := t.TempDir()

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("../evil.txt")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := w.Write([]byte("nope")); err != nil {
		t.Fatal(err)
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}

	zipPath := filepath.Join(dir, "evil.zip")
	if err := os.WriteFile(zipPath, buf.Bytes(), 0644); err != nil {
		t.Fatal(err)
	}

	if err := unzip(zipPath, filepath.Join(dir, "out")); err == nil ||
		!strings.Contains(err.Error(), "escapes") {
		t.Errorf("expected extraction to be refused, got %v", err)
	}
}

func TestCollectionByName(t *testing.T) {
	c, ok := CollectionByName("MRHead")
	if !ok || c.SeriesUID == "" || c.Archives[VolumeKind] == "" {
		t.Errorf("expected built-in MRHead collection, got %+v (ok=%v)", c, ok)
	}

	if _, ok := CollectionByName("CTChest"); ok {
		t.Error("expected unknown collection to be reported missing")
	}
}
