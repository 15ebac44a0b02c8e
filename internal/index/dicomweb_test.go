package index

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"go.uber.org/zap"
)

func TestDICOMWebRepository_Insert(t *testing.T) {
	var stored atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/studies" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
			http.NotFound(w, r)
			return
		}
		contentType := r.Header.Get("Content-Type")
		if !strings.HasPrefix(contentType, "multipart/related") || !strings.Contains(contentType, "boundary=") {
			t.Errorf("store request should be multipart/related, got %q", contentType)
		}
		body, err := io.ReadAll(r.Body)
		if err != nil || len(body) == 0 {
			t.Error("store request should carry the file bytes")
		}
		if !strings.Contains(string(body), "Content-Type: application/dicom") {
			t.Error("store request should carry an application/dicom part")
		}
		stored.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	repo := NewDICOMWebRepository(server.URL, zap.NewNop())
	ctx := context.Background()

	path := writeSEGFile(t, t.TempDir(), "seg.dcm", "1.2.3.1", "1.2.9.1")
	if err := repo.Insert(ctx, path); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	if stored.Load() != 1 {
		t.Errorf("server stored %d objects, want 1", stored.Load())
	}

	// Lookups on uploaded files answer from the local manifest.
	got, err := repo.FileForInstance(ctx, "1.2.3.1")
	if err != nil {
		t.Fatalf("FileForInstance failed: %v", err)
	}
	if got != path {
		t.Errorf("got %q, want %q", got, path)
	}
	series, err := repo.SeriesForFile(ctx, path)
	if err != nil {
		t.Fatalf("SeriesForFile failed: %v", err)
	}
	if series != "1.2.9.1" {
		t.Errorf("got series %q, want 1.2.9.1", series)
	}
}

func TestDICOMWebRepository_Insert_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "store failed", http.StatusBadRequest)
	}))
	defer server.Close()

	repo := NewDICOMWebRepository(server.URL, zap.NewNop())
	path := writeSEGFile(t, t.TempDir(), "seg.dcm", "1.2.3.1", "1.2.9.1")

	if err := repo.Insert(context.Background(), path); err == nil {
		t.Error("Insert should surface a server rejection")
	}
}

func TestDICOMWebRepository_RemoteLookups(t *testing.T) {
	const instanceJSON = `[{
		"00080018": {"Value": ["1.2.3.1"]},
		"0020000D": {"Value": ["1.2.8.1"]},
		"0020000E": {"Value": ["1.2.9.1"]}
	}]`

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/instances" {
			http.NotFound(w, r)
			return
		}
		q := r.URL.Query()
		if q.Get("SOPInstanceUID") == "1.2.3.1" || q.Get("SeriesInstanceUID") == "1.2.9.1" {
			w.Header().Set("Content-Type", "application/dicom+json")
			_, _ = w.Write([]byte(instanceJSON))
			return
		}
		w.Header().Set("Content-Type", "application/dicom+json")
		_, _ = w.Write([]byte("[]"))
	}))
	defer server.Close()

	repo := NewDICOMWebRepository(server.URL, zap.NewNop())
	ctx := context.Background()

	wantURI := server.URL + "/studies/1.2.8.1/series/1.2.9.1/instances/1.2.3.1"

	got, err := repo.FileForInstance(ctx, "1.2.3.1")
	if err != nil {
		t.Fatalf("FileForInstance failed: %v", err)
	}
	if got != wantURI {
		t.Errorf("got %q, want %q", got, wantURI)
	}

	files, err := repo.FilesForSeries(ctx, "1.2.9.1")
	if err != nil {
		t.Fatalf("FilesForSeries failed: %v", err)
	}
	if len(files) != 1 || files[0] != wantURI {
		t.Errorf("got files %v, want [%s]", files, wantURI)
	}

	if _, err := repo.FileForInstance(ctx, "1.2.3.9"); !errors.Is(err, ErrNotFound) {
		t.Errorf("got %v, want ErrNotFound", err)
	}
}
