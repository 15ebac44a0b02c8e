// Package dicom reads DICOM Segmentation objects and patches Structured
// Report content trees with coded characteristic items.
package dicom

import (
	"os"
	"strings"

	"github.com/suyashkumar/dicom"
	"github.com/suyashkumar/dicom/pkg/tag"
)

// mustNewElement creates a DICOM element and panics on error.
// Used only with known-valid tag/value pairs.
func mustNewElement(t tag.Tag, value interface{}) *dicom.Element {
	elem, err := dicom.NewElement(t, value)
	if err != nil {
		panic(err)
	}
	return elem
}

// writeDatasetToFile writes a DICOM dataset to a file
func writeDatasetToFile(filename string, ds dicom.Dataset, opts ...dicom.WriteOption) error {
	f, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	return dicom.Write(f, ds, opts...)
}

// findElement returns the first element with tag t in elems, or nil.
func findElement(elems []*dicom.Element, t tag.Tag) *dicom.Element {
	for _, elem := range elems {
		if elem.Tag == t {
			return elem
		}
	}
	return nil
}

// stringValue safely extracts the first string value of tag t from elems.
func stringValue(elems []*dicom.Element, t tag.Tag) string {
	elem := findElement(elems, t)
	if elem == nil {
		return ""
	}
	if strs, ok := elem.Value.GetValue().([]string); ok && len(strs) > 0 {
		return strs[0]
	}
	return strings.Trim(elem.Value.String(), " []")
}

// intValue safely extracts the first integer value of tag t from elems.
func intValue(elems []*dicom.Element, t tag.Tag) (int, bool) {
	elem := findElement(elems, t)
	if elem == nil {
		return 0, false
	}
	if ints, ok := elem.Value.GetValue().([]int); ok && len(ints) > 0 {
		return ints[0], true
	}
	return 0, false
}

// sequenceItems unwraps a sequence element into its items. Returns nil when
// the element is not a sequence.
func sequenceItems(elem *dicom.Element) []*dicom.SequenceItemValue {
	if elem == nil {
		return nil
	}
	items, ok := elem.Value.GetValue().([]*dicom.SequenceItemValue)
	if !ok {
		return nil
	}
	return items
}

// itemElements unwraps one sequence item into its element list.
func itemElements(item *dicom.SequenceItemValue) []*dicom.Element {
	elems, ok := item.GetValue().([]*dicom.Element)
	if !ok {
		return nil
	}
	return elems
}
