package dicom

import (
	"github.com/suyashkumar/dicom"
	"github.com/suyashkumar/dicom/pkg/tag"
)

// Code is a single coded entry as written into code sequences.
type Code struct {
	Value            string
	SchemeDesignator string
	Meaning          string
}

// CodedItem describes one coded content item: the concept name and the
// selected concept code. Injected items use relationship type CONTAINS and
// value type CODE, each code sequence holding exactly one code.
type CodedItem struct {
	Name Code
	Code Code
}

// codeElements builds the element list of a single code sequence item.
func codeElements(c Code) []*dicom.Element {
	return []*dicom.Element{
		mustNewElement(tag.CodeValue, []string{c.Value}),
		mustNewElement(tag.CodingSchemeDesignator, []string{c.SchemeDesignator}),
		mustNewElement(tag.CodeMeaning, []string{c.Meaning}),
	}
}

// codedItemElements builds the element list of one coded content item.
func codedItemElements(item CodedItem) []*dicom.Element {
	return []*dicom.Element{
		mustNewElement(tag.RelationshipType, []string{"CONTAINS"}),
		mustNewElement(tag.ValueType, []string{"CODE"}),
		mustNewElement(tag.ConceptNameCodeSequence, [][]*dicom.Element{codeElements(item.Name)}),
		mustNewElement(tag.ConceptCodeSequence, [][]*dicom.Element{codeElements(item.Code)}),
	}
}
