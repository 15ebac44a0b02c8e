// Package dicomtest builds small DICOM files for tests: segmentation
// objects with a configurable segment list and structured reports shaped
// like the TID1500 output of the external encoder.
package dicomtest

import (
	"fmt"
	"os"

	"github.com/suyashkumar/dicom"
	"github.com/suyashkumar/dicom/pkg/tag"
)

const (
	transferSyntaxExplicitVRLittleEndian = "1.2.840.10008.1.2.1"
	implementationClassUID               = "1.2.826.0.1.3680043.8.498"

	segmentationStorageSOPClass    = "1.2.840.10008.5.1.4.1.1.66.4"
	comprehensiveSRStorageSOPClass = "1.2.840.10008.5.1.4.1.1.88.33"
)

// LeadingItems is the number of content items a report carries before the
// measurement-group container, matching the encoder's template layout.
const LeadingItems = 5

// Segment describes one entry of a segmentation object's segment sequence.
type Segment struct {
	Number int
	Label  string
}

// SEGSpec describes a segmentation fixture. Zero-valued identifiers are
// filled with fixed defaults so callers only set what a test inspects.
type SEGSpec struct {
	SOPInstanceUID    string
	SeriesInstanceUID string
	StudyInstanceUID  string
	SeriesDescription string
	PatientID         string
	Segments          []Segment

	// OmitSegmentSequence leaves the segment sequence out entirely.
	OmitSegmentSequence bool
	// OmitSegmentNumbers writes segment items without their number element.
	OmitSegmentNumbers bool
}

// WriteSEG writes a minimal segmentation object to path.
func WriteSEG(path string, spec SEGSpec) error {
	if spec.SOPInstanceUID == "" {
		spec.SOPInstanceUID = "1.2.826.0.1.3680043.8.498.10.1"
	}
	if spec.SeriesInstanceUID == "" {
		spec.SeriesInstanceUID = "1.2.826.0.1.3680043.8.498.10.2"
	}
	if spec.StudyInstanceUID == "" {
		spec.StudyInstanceUID = "1.2.826.0.1.3680043.8.498.10.3"
	}
	if spec.SeriesDescription == "" {
		spec.SeriesDescription = "Segmentation"
	}
	if spec.PatientID == "" {
		spec.PatientID = "PAT001"
	}

	ds := &dicom.Dataset{Elements: []*dicom.Element{
		mustNewElement(tag.TransferSyntaxUID, []string{transferSyntaxExplicitVRLittleEndian}),
		mustNewElement(tag.MediaStorageSOPClassUID, []string{segmentationStorageSOPClass}),
		mustNewElement(tag.MediaStorageSOPInstanceUID, []string{spec.SOPInstanceUID}),
		mustNewElement(tag.ImplementationClassUID, []string{implementationClassUID}),
		mustNewElement(tag.SOPClassUID, []string{segmentationStorageSOPClass}),
		mustNewElement(tag.SOPInstanceUID, []string{spec.SOPInstanceUID}),
		mustNewElement(tag.SeriesInstanceUID, []string{spec.SeriesInstanceUID}),
		mustNewElement(tag.StudyInstanceUID, []string{spec.StudyInstanceUID}),
		mustNewElement(tag.Modality, []string{"SEG"}),
		mustNewElement(tag.SeriesDescription, []string{spec.SeriesDescription}),
		mustNewElement(tag.PatientID, []string{spec.PatientID}),
	}}

	if !spec.OmitSegmentSequence {
		items := make([][]*dicom.Element, 0, len(spec.Segments))
		for _, seg := range spec.Segments {
			elems := []*dicom.Element{}
			if !spec.OmitSegmentNumbers {
				elems = append(elems, mustNewElement(tag.SegmentNumber, []int{seg.Number}))
			}
			elems = append(elems,
				mustNewElement(tag.SegmentLabel, []string{seg.Label}),
				mustNewElement(tag.SegmentAlgorithmType, []string{"MANUAL"}),
			)
			items = append(items, elems)
		}
		seqElem, err := dicom.NewElement(tag.SegmentSequence, items)
		if err != nil {
			return fmt.Errorf("create segment sequence: %w", err)
		}
		ds.Elements = append(ds.Elements, seqElem)
	}

	return writeDataset(path, *ds)
}

// SRGroup describes one per-segment measurement group of a report fixture.
type SRGroup struct {
	TrackingID string
	// ChildItems is the number of pre-existing content items in the
	// group's child content sequence. Zero leaves the group without one.
	ChildItems int
}

// SRSpec describes a structured-report fixture. The root content sequence
// holds LeadingItems filler items followed by the measurement-group
// container.
type SRSpec struct {
	SOPInstanceUID string
	LeadingItems   int
	Groups         []SRGroup

	// OmitRootContentSequence drops the root content sequence entirely.
	OmitRootContentSequence bool
	// OmitGroupSequence writes the container without its child content
	// sequence.
	OmitGroupSequence bool
}

// WriteSR writes a minimal TID1500-shaped structured report to path.
func WriteSR(path string, spec SRSpec) error {
	if spec.SOPInstanceUID == "" {
		spec.SOPInstanceUID = "1.2.826.0.1.3680043.8.498.20.1"
	}

	ds := &dicom.Dataset{Elements: []*dicom.Element{
		mustNewElement(tag.TransferSyntaxUID, []string{transferSyntaxExplicitVRLittleEndian}),
		mustNewElement(tag.MediaStorageSOPClassUID, []string{comprehensiveSRStorageSOPClass}),
		mustNewElement(tag.MediaStorageSOPInstanceUID, []string{spec.SOPInstanceUID}),
		mustNewElement(tag.ImplementationClassUID, []string{implementationClassUID}),
		mustNewElement(tag.SOPClassUID, []string{comprehensiveSRStorageSOPClass}),
		mustNewElement(tag.SOPInstanceUID, []string{spec.SOPInstanceUID}),
		mustNewElement(tag.Modality, []string{"SR"}),
		mustNewElement(tag.SeriesDescription, []string{"Measurement Report"}),
	}}

	if spec.OmitRootContentSequence {
		return writeDataset(path, *ds)
	}

	rootItems := make([][]*dicom.Element, 0, spec.LeadingItems+1)
	for i := 0; i < spec.LeadingItems; i++ {
		rootItems = append(rootItems, []*dicom.Element{
			mustNewElement(tag.RelationshipType, []string{"HAS OBS CONTEXT"}),
			mustNewElement(tag.ValueType, []string{"TEXT"}),
			mustNewElement(tag.TextValue, []string{fmt.Sprintf("context item %d", i)}),
		})
	}

	container := []*dicom.Element{
		mustNewElement(tag.RelationshipType, []string{"CONTAINS"}),
		mustNewElement(tag.ValueType, []string{"CONTAINER"}),
		mustNewElement(tag.ConceptNameCodeSequence, [][]*dicom.Element{{
			mustNewElement(tag.CodeValue, []string{"126010"}),
			mustNewElement(tag.CodingSchemeDesignator, []string{"DCM"}),
			mustNewElement(tag.CodeMeaning, []string{"Imaging Measurements"}),
		}}),
	}
	if !spec.OmitGroupSequence {
		groupItems := make([][]*dicom.Element, 0, len(spec.Groups))
		for _, g := range spec.Groups {
			groupItems = append(groupItems, groupElements(g))
		}
		seqElem, err := dicom.NewElement(tag.ContentSequence, groupItems)
		if err != nil {
			return fmt.Errorf("create measurement group sequence: %w", err)
		}
		container = append(container, seqElem)
	}
	rootItems = append(rootItems, container)

	rootSeq, err := dicom.NewElement(tag.ContentSequence, rootItems)
	if err != nil {
		return fmt.Errorf("create root content sequence: %w", err)
	}
	ds.Elements = append(ds.Elements, rootSeq)

	return writeDataset(path, *ds)
}

func groupElements(g SRGroup) []*dicom.Element {
	elems := []*dicom.Element{
		mustNewElement(tag.RelationshipType, []string{"CONTAINS"}),
		mustNewElement(tag.ValueType, []string{"CONTAINER"}),
		mustNewElement(tag.ConceptNameCodeSequence, [][]*dicom.Element{{
			mustNewElement(tag.CodeValue, []string{"125007"}),
			mustNewElement(tag.CodingSchemeDesignator, []string{"DCM"}),
			mustNewElement(tag.CodeMeaning, []string{"Measurement Group"}),
		}}),
	}
	if g.ChildItems > 0 {
		children := make([][]*dicom.Element, 0, g.ChildItems)
		children = append(children, []*dicom.Element{
			mustNewElement(tag.RelationshipType, []string{"HAS OBS CONTEXT"}),
			mustNewElement(tag.ValueType, []string{"TEXT"}),
			mustNewElement(tag.TextValue, []string{g.TrackingID}),
		})
		for i := 1; i < g.ChildItems; i++ {
			children = append(children, []*dicom.Element{
				mustNewElement(tag.RelationshipType, []string{"CONTAINS"}),
				mustNewElement(tag.ValueType, []string{"TEXT"}),
				mustNewElement(tag.TextValue, []string{fmt.Sprintf("measurement %d", i)}),
			})
		}
		elems = append(elems, mustNewElement(tag.ContentSequence, children))
	}
	return elems
}

func mustNewElement(t tag.Tag, value interface{}) *dicom.Element {
	elem, err := dicom.NewElement(t, value)
	if err != nil {
		panic(fmt.Sprintf("failed to create element for tag %v: %v", t, err))
	}
	return elem
}

func writeDataset(path string, ds dicom.Dataset) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	return dicom.Write(f, ds, dicom.SkipVRVerification(), dicom.SkipValueTypeVerification())
}
