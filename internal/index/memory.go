package index

import (
	"context"
	"sort"
	"sync"
)

// MemoryRepository keeps the index in process memory. It is the default
// backend and the one tests use.
type MemoryRepository struct {
	mu     sync.RWMutex
	byPath map[string]Record
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{byPath: make(map[string]Record)}
}

func (r *MemoryRepository) Insert(ctx context.Context, path string) error {
	rec, err := recordFromFile(path)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	// One instance lives at one location: drop any previous path holding
	// the same SOPInstanceUID.
	for p, existing := range r.byPath {
		if existing.SOPInstanceUID == rec.SOPInstanceUID && p != path {
			delete(r.byPath, p)
		}
	}
	r.byPath[path] = rec
	return nil
}

func (r *MemoryRepository) FileForInstance(ctx context.Context, sopInstanceUID string) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, rec := range r.byPath {
		if rec.SOPInstanceUID == sopInstanceUID {
			return rec.Path, nil
		}
	}
	return "", ErrNotFound
}

func (r *MemoryRepository) SeriesForFile(ctx context.Context, path string) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.byPath[path]
	if !ok {
		return "", ErrNotFound
	}
	return rec.SeriesInstanceUID, nil
}

func (r *MemoryRepository) FilesForSeries(ctx context.Context, seriesInstanceUID string) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var paths []string
	for _, rec := range r.byPath {
		if rec.SeriesInstanceUID == seriesInstanceUID {
			paths = append(paths, rec.Path)
		}
	}
	sort.Strings(paths)
	return paths, nil
}

// Len returns the number of indexed files.
func (r *MemoryRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byPath)
}
