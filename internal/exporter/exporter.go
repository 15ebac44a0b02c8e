// Package exporter emits the DICOM Segmentation object a report refers to
// and manages the temporary workspace the save pipeline runs in.
package exporter

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Metadata carries the content-identification attributes stamped onto the
// exported segmentation.
type Metadata struct {
	ContentCreatorName                  string
	SeriesNumber                        string
	InstanceNumber                      string
	ClinicalTrialSeriesID               string
	ClinicalTrialTimePointID            string
	ClinicalTrialCoordinatingCenterName string
}

// Request describes one export.
type Request struct {
	// OutputDirectory receives the exported file.
	OutputDirectory string
	// FileName is the name of the exported file within OutputDirectory.
	FileName string
	// SegmentIDs restricts the export to the named segments. Empty exports
	// every segment.
	SegmentIDs []string
	// Metadata is stamped onto the exported object.
	Metadata Metadata
}

// Exporter produces the segmentation object for a report.
type Exporter interface {
	Export(ctx context.Context, req Request) error
}

// MissingAttributesError reports required metadata the export cannot
// proceed without.
type MissingAttributesError struct {
	Attributes []string
}

func (e *MissingAttributesError) Error() string {
	return fmt.Sprintf("missing attributes: %s", strings.Join(e.Attributes, ", "))
}

// ErrEmptySegments means a requested segment has no encoded content.
var ErrEmptySegments = errors.New("empty segments found")

// ErrNoNonEmptySegments means nothing is left to export.
var ErrNoNonEmptySegments = errors.New("no non-empty segments found")

// requiredMetadata lists the attributes an export cannot omit.
func validateMetadata(md Metadata) error {
	var missing []string
	if md.ContentCreatorName == "" {
		missing = append(missing, "ContentCreatorName")
	}
	if md.SeriesNumber == "" {
		missing = append(missing, "SeriesNumber")
	}
	if md.InstanceNumber == "" {
		missing = append(missing, "InstanceNumber")
	}
	if len(missing) > 0 {
		return &MissingAttributesError{Attributes: missing}
	}
	return nil
}

// SourceFiles lists the DICOM files of a source image directory, sorted.
// Files are recognized by extension or by the DICM marker.
func SourceFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read source directory %s: %w", dir, err)
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if ext == ".dcm" || ext == ".ima" || hasDICMMarker(path) {
			files = append(files, path)
		}
	}
	sort.Strings(files)
	return files, nil
}

// hasDICMMarker reports whether the file carries the DICOM preamble magic.
func hasDICMMarker(path string) bool {
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	defer func() { _ = f.Close() }()

	marker := make([]byte, 4)
	if _, err := f.ReadAt(marker, 128); err != nil {
		return false
	}
	return string(marker) == "DICM"
}
