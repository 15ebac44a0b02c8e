// internal/report/xlsx.go
package report

import (
	"fmt"
	"sort"

	"github.com/xuri/excelize/v2"

	"github.com/mrsinham/quantreport/internal/dicom"
)

const xlsxSheetName = "Measurement Report"

// WriteXLSX writes the report as a spreadsheet: one row per segment with
// its measurement values and characteristic selections.
func WriteXLSX(path string, doc Document) error {
	f := excelize.NewFile()

	index, err := f.NewSheet(xlsxSheetName)
	if err != nil {
		f.Close()
		return fmt.Errorf("failed to create sheet: %w", err)
	}
	f.DeleteSheet("Sheet1")
	f.SetActiveSheet(index)

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{"#E6F3FF"},
			Pattern: 1,
		},
		Border: []excelize.Border{
			{Type: "left", Color: "000000", Style: 1},
			{Type: "top", Color: "000000", Style: 1},
			{Type: "bottom", Color: "000000", Style: 1},
			{Type: "right", Color: "000000", Style: 1},
		},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		f.Close()
		return fmt.Errorf("failed to create header style: %w", err)
	}

	var measurementColumns []string
	valuesBySegment := make(map[int][]string)
	if doc.Table != nil {
		measurementColumns = doc.Table.Columns
		for _, row := range doc.Table.Rows {
			valuesBySegment[row.Segment] = row.Values
		}
	}
	conceptColumns := conceptColumns(doc.Store)

	headers := append([]string{"Segment", "Label"}, measurementColumns...)
	headers = append(headers, conceptColumns...)
	for col, header := range headers {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			f.Close()
			return fmt.Errorf("failed to convert coordinates: %w", err)
		}
		if err := f.SetCellValue(xlsxSheetName, cell, header); err != nil {
			f.Close()
			return fmt.Errorf("failed to set header cell %s: %w", cell, err)
		}
		if err := f.SetCellStyle(xlsxSheetName, cell, cell, headerStyle); err != nil {
			f.Close()
			return fmt.Errorf("failed to set header style: %w", err)
		}
	}

	for i := range headers {
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			f.Close()
			return fmt.Errorf("failed to convert column number: %w", err)
		}
		width := 18.0
		switch {
		case i == 0:
			width = 10
		case i == 1:
			width = 24
		}
		if err := f.SetColWidth(xlsxSheetName, col, col, width); err != nil {
			f.Close()
			return fmt.Errorf("failed to set column width: %w", err)
		}
	}

	segments := make([]dicom.Segment, len(doc.Segments))
	copy(segments, doc.Segments)
	sort.Slice(segments, func(i, j int) bool { return segments[i].Number < segments[j].Number })

	for rowIdx, seg := range segments {
		row := rowIdx + 2

		var entry Entry
		if doc.Store != nil {
			entry, _ = doc.Store.Get(seg.Number)
		}

		cells := []interface{}{seg.Number, seg.Label}
		values := valuesBySegment[seg.Number]
		for i := range measurementColumns {
			if i < len(values) {
				cells = append(cells, values[i])
			} else {
				cells = append(cells, "")
			}
		}
		for _, concept := range conceptColumns {
			cells = append(cells, entry[concept])
		}

		for colIdx, value := range cells {
			if err := setCell(f, colIdx+1, row, value); err != nil {
				f.Close()
				return err
			}
		}
	}

	if err := f.SetPanes(xlsxSheetName, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		f.Close()
		return fmt.Errorf("failed to freeze panes: %w", err)
	}

	if err := f.SaveAs(path); err != nil {
		f.Close()
		return fmt.Errorf("failed to save spreadsheet: %w", err)
	}
	return f.Close()
}

// conceptColumns collects every concept any segment has a selection for,
// sorted so the column set is stable.
func conceptColumns(store *Store) []string {
	if store == nil {
		return nil
	}

	seen := make(map[string]bool)
	for _, id := range store.OrderedKeys() {
		entry, _ := store.Get(id)
		for concept := range entry {
			seen[concept] = true
		}
	}

	concepts := make([]string, 0, len(seen))
	for concept := range seen {
		concepts = append(concepts, concept)
	}
	sort.Strings(concepts)
	return concepts
}

func setCell(f *excelize.File, col, row int, value interface{}) error {
	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return fmt.Errorf("failed to convert coordinates: %w", err)
	}
	if err := f.SetCellValue(xlsxSheetName, cell, value); err != nil {
		return fmt.Errorf("failed to set cell %s: %w", cell, err)
	}
	return nil
}
