package exporter

import (
	"context"
	"fmt"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/mrsinham/quantreport/internal/dicom"
)

// FileExporter re-emits an already-encoded segmentation object. Mask
// encoding itself stays outside this tool; the exporter filters the segment
// sequence down to the requested segments and stamps the report metadata
// onto the copy.
//
// A requested segment the source does not carry counts as empty. A request
// that leaves no segments at all fails with ErrNoNonEmptySegments.
type FileExporter struct {
	source string
	logger *zap.Logger
}

func NewFileExporter(sourcePath string, logger *zap.Logger) *FileExporter {
	return &FileExporter{source: sourcePath, logger: logger}
}

func (e *FileExporter) Export(ctx context.Context, req Request) error {
	if err := validateMetadata(req.Metadata); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	segments, err := dicom.ReadSegments(e.source)
	if err != nil {
		return err
	}
	if len(segments) == 0 {
		return ErrNoNonEmptySegments
	}

	var keep map[int]bool
	if len(req.SegmentIDs) > 0 {
		byLabel := make(map[string]int, len(segments))
		for _, seg := range segments {
			byLabel[seg.Label] = seg.Number
		}

		keep = make(map[int]bool, len(req.SegmentIDs))
		for _, id := range req.SegmentIDs {
			number, ok := byLabel[id]
			if !ok {
				return fmt.Errorf("segment %q: %w", id, ErrEmptySegments)
			}
			keep[number] = true
		}
		if len(keep) == 0 {
			return ErrNoNonEmptySegments
		}
	}

	dst := filepath.Join(req.OutputDirectory, req.FileName)
	err = dicom.RewriteSegmentation(e.source, dst, keep, dicom.SeriesAttributes{
		ContentCreatorName:                  req.Metadata.ContentCreatorName,
		SeriesNumber:                        req.Metadata.SeriesNumber,
		InstanceNumber:                      req.Metadata.InstanceNumber,
		ClinicalTrialSeriesID:               req.Metadata.ClinicalTrialSeriesID,
		ClinicalTrialTimePointID:            req.Metadata.ClinicalTrialTimePointID,
		ClinicalTrialCoordinatingCenterName: req.Metadata.ClinicalTrialCoordinatingCenterName,
	})
	if err != nil {
		return err
	}

	e.logger.Info("Exported segmentation",
		zap.String("source", e.source),
		zap.String("output", dst),
		zap.Int("segments", len(segments)),
		zap.Int("requested", len(req.SegmentIDs)),
	)
	return nil
}
