package dicom

import (
	"fmt"

	"github.com/suyashkumar/dicom"
	"github.com/suyashkumar/dicom/pkg/tag"
)

// measurementGroupPosition is the index of the content item that holds the
// per-segment measurement groups within the root content sequence of a
// TID1500 report. The external encoder emits the template with this layout,
// one child group per referenced segment.
const measurementGroupPosition = 5

// MeasurementGroupCount returns how many per-segment measurement groups the
// SR file carries at the template position.
func MeasurementGroupCount(path string) (int, error) {
	ds, err := dicom.ParseFile(path, nil)
	if err != nil {
		return 0, fmt.Errorf("parse SR %s: %w", path, err)
	}
	groupsElem, err := measurementGroups(&ds)
	if err != nil {
		return 0, fmt.Errorf("SR %s: %w", path, err)
	}
	return len(sequenceItems(groupsElem)), nil
}

// InjectCharacteristics appends coded content items to the per-segment
// measurement groups of a TID1500 SR file and rewrites the file in place.
//
// groups are paired with the SR's measurement groups positionally, in
// document order: groups[i] is appended to the i-th measurement group. An
// empty slice leaves its group untouched. Pairing stops at the shorter of
// the two lists; callers are expected to have checked the segment count
// against their bookkeeping beforehand.
func InjectCharacteristics(path string, groups [][]CodedItem) error {
	ds, err := dicom.ParseFile(path, nil)
	if err != nil {
		return fmt.Errorf("parse SR %s: %w", path, err)
	}

	groupsElem, err := measurementGroups(&ds)
	if err != nil {
		return fmt.Errorf("SR %s: %w", path, err)
	}

	groupItems := sequenceItems(groupsElem)

	// Rebuild the measurement-group sequence with the coded items appended
	// to each group's child content sequence. Sequence items cannot be
	// extended in place, so the group list is reassembled and swapped into
	// the existing element.
	rebuilt := make([][]*dicom.Element, 0, len(groupItems))
	for i, item := range groupItems {
		elems := itemElements(item)
		if i < len(groups) && len(groups[i]) > 0 {
			withItems, err := appendCodedItems(elems, groups[i])
			if err != nil {
				return fmt.Errorf("SR %s: measurement group %d: %w", path, i, err)
			}
			elems = withItems
		}
		rebuilt = append(rebuilt, elems)
	}

	newSeq, err := dicom.NewElement(tag.ContentSequence, rebuilt)
	if err != nil {
		return fmt.Errorf("rebuild measurement groups: %w", err)
	}
	groupsElem.Value = newSeq.Value

	// External encoders emit private elements that fail strict VR checks on
	// rewrite, so both verifications are skipped.
	if err := writeDatasetToFile(path, ds, dicom.SkipVRVerification(), dicom.SkipValueTypeVerification()); err != nil {
		return fmt.Errorf("write SR %s: %w", path, err)
	}
	return nil
}

// measurementGroups locates the content sequence holding the per-segment
// measurement groups: the child content sequence of the content item at the
// fixed template position within the root content sequence.
func measurementGroups(ds *dicom.Dataset) (*dicom.Element, error) {
	rootSeq, err := ds.FindElementByTag(tag.ContentSequence)
	if err != nil {
		return nil, fmt.Errorf("no root content sequence")
	}

	rootItems := sequenceItems(rootSeq)
	if len(rootItems) <= measurementGroupPosition {
		return nil, fmt.Errorf("root content sequence has %d items, need at least %d",
			len(rootItems), measurementGroupPosition+1)
	}

	containerElems := itemElements(rootItems[measurementGroupPosition])
	groupsElem := findElement(containerElems, tag.ContentSequence)
	if groupsElem == nil {
		return nil, fmt.Errorf("content item %d has no child content sequence", measurementGroupPosition)
	}
	return groupsElem, nil
}

// appendCodedItems returns the group's element list with its child content
// sequence extended by the coded items. A group without a child content
// sequence gets one.
func appendCodedItems(groupElems []*dicom.Element, items []CodedItem) ([]*dicom.Element, error) {
	newItems := make([][]*dicom.Element, 0, len(items))
	for _, item := range items {
		newItems = append(newItems, codedItemElements(item))
	}

	childSeq := findElement(groupElems, tag.ContentSequence)
	if childSeq == nil {
		seqElem, err := dicom.NewElement(tag.ContentSequence, newItems)
		if err != nil {
			return nil, fmt.Errorf("create content sequence: %w", err)
		}
		out := make([]*dicom.Element, 0, len(groupElems)+1)
		out = append(out, groupElems...)
		out = append(out, seqElem)
		return out, nil
	}

	existing := sequenceItems(childSeq)
	merged := make([][]*dicom.Element, 0, len(existing)+len(newItems))
	for _, item := range existing {
		merged = append(merged, itemElements(item))
	}
	merged = append(merged, newItems...)

	seqElem, err := dicom.NewElement(tag.ContentSequence, merged)
	if err != nil {
		return nil, fmt.Errorf("extend content sequence: %w", err)
	}
	childSeq.Value = seqElem.Value
	return groupElems, nil
}
