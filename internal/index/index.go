// Package index tracks where DICOM composite objects live so saved reports
// can be located again by instance or by series.
package index

import (
	"context"
	"errors"
	"fmt"

	"github.com/mrsinham/quantreport/internal/dicom"
)

// ErrNotFound is returned when no indexed object matches a lookup.
var ErrNotFound = errors.New("index: not found")

// Record describes one indexed composite object.
type Record struct {
	Path              string
	SOPInstanceUID    string
	SOPClassUID       string
	SeriesInstanceUID string
	StudyInstanceUID  string
	Modality          string
	PatientID         string
}

// Repository indexes composite objects by the identifiers read from their
// headers.
type Repository interface {
	// Insert parses the file at path and adds it to the index. Inserting
	// the same instance again updates its location.
	Insert(ctx context.Context, path string) error
	// FileForInstance returns the location of the instance with the given
	// SOPInstanceUID.
	FileForInstance(ctx context.Context, sopInstanceUID string) (string, error)
	// SeriesForFile returns the SeriesInstanceUID of the file at path.
	SeriesForFile(ctx context.Context, path string) (string, error)
	// FilesForSeries lists the locations of every instance of a series.
	FilesForSeries(ctx context.Context, seriesInstanceUID string) ([]string, error)
}

func recordFromFile(path string) (Record, error) {
	info, err := dicom.ReadSeriesInfo(path)
	if err != nil {
		return Record{}, fmt.Errorf("index %s: %w", path, err)
	}
	return Record{
		Path:              path,
		SOPInstanceUID:    info.SOPInstanceUID,
		SOPClassUID:       info.SOPClassUID,
		SeriesInstanceUID: info.SeriesInstanceUID,
		StudyInstanceUID:  info.StudyInstanceUID,
		Modality:          info.Modality,
		PatientID:         info.PatientID,
	}, nil
}
