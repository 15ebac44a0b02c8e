package dicom

import (
	"path/filepath"
	"testing"

	"github.com/mrsinham/quantreport/internal/dicom/dicomtest"
	"github.com/suyashkumar/dicom"
	"github.com/suyashkumar/dicom/pkg/tag"
)

func writeReport(t *testing.T, spec dicomtest.SRSpec) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sr.dcm")
	if err := dicomtest.WriteSR(path, spec); err != nil {
		t.Fatalf("WriteSR failed: %v", err)
	}
	return path
}

// childValueTypes parses the report and returns the ValueType of every child
// content item, per measurement group in document order. A group without a
// child content sequence yields nil.
func childValueTypes(t *testing.T, path string) [][]string {
	t.Helper()
	ds, err := dicom.ParseFile(path, nil)
	if err != nil {
		t.Fatalf("reparse SR failed: %v", err)
	}
	groupsElem, err := measurementGroups(&ds)
	if err != nil {
		t.Fatalf("locate measurement groups failed: %v", err)
	}

	var out [][]string
	for _, item := range sequenceItems(groupsElem) {
		childSeq := findElement(itemElements(item), tag.ContentSequence)
		if childSeq == nil {
			out = append(out, nil)
			continue
		}
		var types []string
		for _, child := range sequenceItems(childSeq) {
			types = append(types, stringValue(itemElements(child), tag.ValueType))
		}
		out = append(out, types)
	}
	return out
}

// codeMeaning extracts the CodeMeaning of the single item of the code
// sequence identified by t within elems.
func codeMeaning(elems []*dicom.Element, seqTag tag.Tag) string {
	seq := findElement(elems, seqTag)
	if seq == nil {
		return ""
	}
	items := sequenceItems(seq)
	if len(items) == 0 {
		return ""
	}
	return stringValue(itemElements(items[0]), tag.CodeMeaning)
}

func TestMeasurementGroupCount(t *testing.T) {
	path := writeReport(t, dicomtest.SRSpec{
		LeadingItems: dicomtest.LeadingItems,
		Groups: []dicomtest.SRGroup{
			{TrackingID: "Segment 1", ChildItems: 2},
			{TrackingID: "Segment 2", ChildItems: 1},
			{TrackingID: "Segment 3", ChildItems: 1},
		},
	})

	n, err := MeasurementGroupCount(path)
	if err != nil {
		t.Fatalf("MeasurementGroupCount failed: %v", err)
	}
	if n != 3 {
		t.Errorf("got %d measurement groups, want 3", n)
	}
}

func TestMeasurementGroupCount_MissingFile(t *testing.T) {
	if _, err := MeasurementGroupCount(filepath.Join(t.TempDir(), "absent.dcm")); err == nil {
		t.Error("MeasurementGroupCount should have failed for a missing file")
	}
}

func TestInjectCharacteristics(t *testing.T) {
	path := writeReport(t, dicomtest.SRSpec{
		LeadingItems: dicomtest.LeadingItems,
		Groups: []dicomtest.SRGroup{
			{TrackingID: "Segment 1", ChildItems: 2},
			{TrackingID: "Segment 2"},
		},
	})

	groups := [][]CodedItem{
		{
			{
				Name: Code{Value: "RID5971", SchemeDesignator: "RadLex", Meaning: "Shape"},
				Code: Code{Value: "RID5799", SchemeDesignator: "RadLex", Meaning: "Round"},
			},
			{
				Name: Code{Value: "RID5972", SchemeDesignator: "RadLex", Meaning: "Margin"},
				Code: Code{Value: "RID5709", SchemeDesignator: "RadLex", Meaning: "Circumscribed margin"},
			},
		},
		{
			{
				Name: Code{Value: "RID5971", SchemeDesignator: "RadLex", Meaning: "Shape"},
				Code: Code{Value: "RID5800", SchemeDesignator: "RadLex", Meaning: "Irregular"},
			},
		},
	}
	if err := InjectCharacteristics(path, groups); err != nil {
		t.Fatalf("InjectCharacteristics failed: %v", err)
	}

	types := childValueTypes(t, path)
	if len(types) != 2 {
		t.Fatalf("got %d measurement groups after injection, want 2", len(types))
	}

	wantTypes := [][]string{
		{"TEXT", "TEXT", "CODE", "CODE"},
		{"CODE"},
	}
	for i, want := range wantTypes {
		if len(types[i]) != len(want) {
			t.Fatalf("group %d: got %d child items %v, want %d", i, len(types[i]), types[i], len(want))
		}
		for j, w := range want {
			if types[i][j] != w {
				t.Errorf("group %d child %d: got ValueType %q, want %q", i, j, types[i][j], w)
			}
		}
	}

	// The appended items must carry the concept name and the chosen code.
	ds, err := dicom.ParseFile(path, nil)
	if err != nil {
		t.Fatalf("reparse SR failed: %v", err)
	}
	groupsElem, err := measurementGroups(&ds)
	if err != nil {
		t.Fatalf("locate measurement groups failed: %v", err)
	}
	groupItems := sequenceItems(groupsElem)

	firstGroupChildren := sequenceItems(findElement(itemElements(groupItems[0]), tag.ContentSequence))
	injected := itemElements(firstGroupChildren[2])
	if got := codeMeaning(injected, tag.ConceptNameCodeSequence); got != "Shape" {
		t.Errorf("got concept name %q, want Shape", got)
	}
	if got := codeMeaning(injected, tag.ConceptCodeSequence); got != "Round" {
		t.Errorf("got concept code %q, want Round", got)
	}
	if got := stringValue(injected, tag.RelationshipType); got != "CONTAINS" {
		t.Errorf("got relationship type %q, want CONTAINS", got)
	}

	secondGroupChildren := sequenceItems(findElement(itemElements(groupItems[1]), tag.ContentSequence))
	injected = itemElements(secondGroupChildren[0])
	if got := codeMeaning(injected, tag.ConceptCodeSequence); got != "Irregular" {
		t.Errorf("got concept code %q, want Irregular", got)
	}

	// Content before the measurement groups stays untouched.
	rootSeq, err := ds.FindElementByTag(tag.ContentSequence)
	if err != nil {
		t.Fatalf("no root content sequence after injection: %v", err)
	}
	rootItems := sequenceItems(rootSeq)
	if len(rootItems) != dicomtest.LeadingItems+1 {
		t.Errorf("got %d root content items, want %d", len(rootItems), dicomtest.LeadingItems+1)
	}
	if got := stringValue(itemElements(rootItems[0]), tag.TextValue); got != "context item 0" {
		t.Errorf("got first context item text %q, want %q", got, "context item 0")
	}
}

func TestInjectCharacteristics_EmptyGroupUntouched(t *testing.T) {
	path := writeReport(t, dicomtest.SRSpec{
		LeadingItems: dicomtest.LeadingItems,
		Groups: []dicomtest.SRGroup{
			{TrackingID: "Segment 1", ChildItems: 1},
			{TrackingID: "Segment 2", ChildItems: 1},
		},
	})

	groups := [][]CodedItem{
		nil,
		{
			{
				Name: Code{Value: "RID5971", SchemeDesignator: "RadLex", Meaning: "Shape"},
				Code: Code{Value: "RID5799", SchemeDesignator: "RadLex", Meaning: "Round"},
			},
		},
	}
	if err := InjectCharacteristics(path, groups); err != nil {
		t.Fatalf("InjectCharacteristics failed: %v", err)
	}

	types := childValueTypes(t, path)
	if len(types[0]) != 1 || types[0][0] != "TEXT" {
		t.Errorf("group 0 should be untouched, got child types %v", types[0])
	}
	if len(types[1]) != 2 || types[1][1] != "CODE" {
		t.Errorf("group 1 should have one appended CODE item, got child types %v", types[1])
	}
}

func TestInjectCharacteristics_FewerGroupsThanReport(t *testing.T) {
	path := writeReport(t, dicomtest.SRSpec{
		LeadingItems: dicomtest.LeadingItems,
		Groups: []dicomtest.SRGroup{
			{TrackingID: "Segment 1", ChildItems: 1},
			{TrackingID: "Segment 2", ChildItems: 1},
			{TrackingID: "Segment 3", ChildItems: 1},
		},
	})

	groups := [][]CodedItem{
		{
			{
				Name: Code{Value: "RID5971", SchemeDesignator: "RadLex", Meaning: "Shape"},
				Code: Code{Value: "RID5799", SchemeDesignator: "RadLex", Meaning: "Round"},
			},
		},
	}
	if err := InjectCharacteristics(path, groups); err != nil {
		t.Fatalf("InjectCharacteristics failed: %v", err)
	}

	types := childValueTypes(t, path)
	if len(types) != 3 {
		t.Fatalf("got %d measurement groups, want 3", len(types))
	}
	if len(types[0]) != 2 {
		t.Errorf("group 0 should have the appended item, got child types %v", types[0])
	}
	for i := 1; i < 3; i++ {
		if len(types[i]) != 1 {
			t.Errorf("group %d should be untouched, got child types %v", i, types[i])
		}
	}
}

func TestInjectCharacteristics_Malformed(t *testing.T) {
	groups := [][]CodedItem{
		{
			{
				Name: Code{Value: "RID5971", SchemeDesignator: "RadLex", Meaning: "Shape"},
				Code: Code{Value: "RID5799", SchemeDesignator: "RadLex", Meaning: "Round"},
			},
		},
	}

	tests := []struct {
		name string
		spec dicomtest.SRSpec
	}{
		{
			name: "no root content sequence",
			spec: dicomtest.SRSpec{OmitRootContentSequence: true},
		},
		{
			name: "too few root content items",
			spec: dicomtest.SRSpec{
				LeadingItems: 2,
				Groups:       []dicomtest.SRGroup{{TrackingID: "Segment 1"}},
			},
		},
		{
			name: "container without group sequence",
			spec: dicomtest.SRSpec{
				LeadingItems:      dicomtest.LeadingItems,
				OmitGroupSequence: true,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeReport(t, tt.spec)
			if err := InjectCharacteristics(path, groups); err == nil {
				t.Error("InjectCharacteristics should have failed")
			}
		})
	}
}
