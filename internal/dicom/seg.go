package dicom

import (
	"fmt"

	"github.com/suyashkumar/dicom"
	"github.com/suyashkumar/dicom/pkg/tag"
)

// Segment is one per-segment description record from a SEG object's
// segment sequence.
type Segment struct {
	Number int
	Label  string
}

// ReadSegments reads the segment sequence of a DICOM Segmentation file and
// returns the segments in file order. The length of the result is the
// authoritative segment count of the export.
func ReadSegments(path string) ([]Segment, error) {
	ds, err := dicom.ParseFile(path, nil, dicom.SkipPixelData())
	if err != nil {
		return nil, fmt.Errorf("parse SEG %s: %w", path, err)
	}

	seqElem, err := ds.FindElementByTag(tag.SegmentSequence)
	if err != nil {
		return nil, fmt.Errorf("SEG %s has no segment sequence", path)
	}

	items := sequenceItems(seqElem)
	segments := make([]Segment, 0, len(items))
	for i, item := range items {
		elems := itemElements(item)
		number, ok := intValue(elems, tag.SegmentNumber)
		if !ok {
			return nil, fmt.Errorf("SEG %s: segment item %d has no segment number", path, i)
		}
		segments = append(segments, Segment{
			Number: number,
			Label:  stringValue(elems, tag.SegmentLabel),
		})
	}

	return segments, nil
}

// SeriesAttributes are the content-identification values stamped onto a
// rewritten segmentation. Empty fields are left as they are in the source.
type SeriesAttributes struct {
	ContentCreatorName                  string
	SeriesNumber                        string
	InstanceNumber                      string
	ClinicalTrialSeriesID               string
	ClinicalTrialTimePointID            string
	ClinicalTrialCoordinatingCenterName string
}

// RewriteSegmentation copies the segmentation at src to dst, keeping only
// the segments whose number is in keep (nil keeps all) and stamping the
// series attributes. Segment numbers are preserved, not renumbered.
func RewriteSegmentation(src, dst string, keep map[int]bool, attrs SeriesAttributes) error {
	ds, err := dicom.ParseFile(src, nil)
	if err != nil {
		return fmt.Errorf("parse SEG %s: %w", src, err)
	}

	seqElem, err := ds.FindElementByTag(tag.SegmentSequence)
	if err != nil {
		return fmt.Errorf("SEG %s has no segment sequence", src)
	}

	if keep != nil {
		items := sequenceItems(seqElem)
		kept := make([][]*dicom.Element, 0, len(items))
		for _, item := range items {
			elems := itemElements(item)
			number, ok := intValue(elems, tag.SegmentNumber)
			if !ok || keep[number] {
				kept = append(kept, elems)
			}
		}
		newSeq, err := dicom.NewElement(tag.SegmentSequence, kept)
		if err != nil {
			return fmt.Errorf("rebuild segment sequence: %w", err)
		}
		seqElem.Value = newSeq.Value
	}

	upsertString(&ds, tag.ContentCreatorName, attrs.ContentCreatorName)
	upsertString(&ds, tag.SeriesNumber, attrs.SeriesNumber)
	upsertString(&ds, tag.InstanceNumber, attrs.InstanceNumber)
	upsertString(&ds, tag.ClinicalTrialSeriesID, attrs.ClinicalTrialSeriesID)
	upsertString(&ds, tag.ClinicalTrialTimePointID, attrs.ClinicalTrialTimePointID)
	upsertString(&ds, tag.ClinicalTrialCoordinatingCenterName, attrs.ClinicalTrialCoordinatingCenterName)

	if err := writeDatasetToFile(dst, ds, dicom.SkipVRVerification(), dicom.SkipValueTypeVerification()); err != nil {
		return fmt.Errorf("write SEG %s: %w", dst, err)
	}
	return nil
}

// upsertString replaces the top-level element's value, adding the element
// when absent. Empty values are ignored.
func upsertString(ds *dicom.Dataset, t tag.Tag, value string) {
	if value == "" {
		return
	}
	newElem := mustNewElement(t, []string{value})
	if existing := findElement(ds.Elements, t); existing != nil {
		existing.Value = newElem.Value
		return
	}
	ds.Elements = append(ds.Elements, newElem)
}

// SeriesInfo holds the identifying UIDs of a DICOM file.
type SeriesInfo struct {
	SOPInstanceUID    string
	SOPClassUID       string
	SeriesInstanceUID string
	StudyInstanceUID  string
	SeriesDescription string
	Modality          string
	PatientID         string
}

// ReadSeriesInfo extracts the identifying UIDs from a DICOM file without
// decoding pixel data.
func ReadSeriesInfo(path string) (SeriesInfo, error) {
	ds, err := dicom.ParseFile(path, nil, dicom.SkipPixelData())
	if err != nil {
		return SeriesInfo{}, fmt.Errorf("parse %s: %w", path, err)
	}

	info := SeriesInfo{
		SOPInstanceUID:    stringValue(ds.Elements, tag.SOPInstanceUID),
		SOPClassUID:       stringValue(ds.Elements, tag.SOPClassUID),
		SeriesInstanceUID: stringValue(ds.Elements, tag.SeriesInstanceUID),
		StudyInstanceUID:  stringValue(ds.Elements, tag.StudyInstanceUID),
		SeriesDescription: stringValue(ds.Elements, tag.SeriesDescription),
		Modality:          stringValue(ds.Elements, tag.Modality),
		PatientID:         stringValue(ds.Elements, tag.PatientID),
	}
	if info.SOPInstanceUID == "" {
		return SeriesInfo{}, fmt.Errorf("%s has no SOPInstanceUID", path)
	}
	return info, nil
}
