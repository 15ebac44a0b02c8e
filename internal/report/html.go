// internal/report/html.go
package report

import (
	"encoding/base64"
	"fmt"
	"html/template"
	"os"
	"sort"
	"time"

	"github.com/mrsinham/quantreport/internal/catalog"
	"github.com/mrsinham/quantreport/internal/dicom"
	"github.com/mrsinham/quantreport/internal/stats"
	"github.com/mrsinham/quantreport/internal/util"
)

// Document bundles everything the HTML and spreadsheet renderings show
// about one report.
type Document struct {
	Metadata  Metadata
	Completed bool
	Segments  []dicom.Segment
	Store     *Store
	// Table holds the measurement values. Optional.
	Table *stats.Table
}

type htmlPage struct {
	Title            string
	Creator          string
	SeriesNumber     string
	InstanceNumber   string
	TimePoint        string
	CompletionFlag   string
	VerificationFlag string
	GeneratedAt      string
	Columns          []string
	Segments         []htmlSegment
}

type htmlSegment struct {
	Number          int
	Label           string
	Badge           template.URL
	Characteristics []string
	Values          []string
}

var htmlTmpl = template.Must(template.New("report").Parse(htmlReportTemplate))

const htmlReportTemplate = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<style>
body { font-family: sans-serif; margin: 2em; color: #222; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; margin-top: 1em; }
th, td { border: 1px solid #bbb; padding: 6px 10px; text-align: left; vertical-align: top; }
th { background: #e6f3ff; }
dl { display: grid; grid-template-columns: max-content auto; gap: 2px 12px; }
dt { font-weight: bold; }
dd { margin: 0; }
img.badge { display: block; }
ul { margin: 0; padding-left: 1.2em; }
.muted { color: #888; }
</style>
</head>
<body>
<h1>{{.Title}}</h1>
<dl>
<dt>Content creator</dt><dd>{{.Creator}}</dd>
<dt>Series number</dt><dd>{{.SeriesNumber}}</dd>
<dt>Instance number</dt><dd>{{.InstanceNumber}}</dd>
{{if .TimePoint}}<dt>Time point</dt><dd>{{.TimePoint}}</dd>{{end}}
<dt>Completion</dt><dd>{{.CompletionFlag}}</dd>
<dt>Verification</dt><dd>{{.VerificationFlag}}</dd>
<dt>Generated</dt><dd>{{.GeneratedAt}}</dd>
</dl>
<table>
<tr>
<th>Segment</th>
<th>Characteristics</th>
{{range .Columns}}<th>{{.}}</th>{{end}}
</tr>
{{range .Segments}}
<tr>
<td><img class="badge" src="{{.Badge}}" alt="{{.Label}}"></td>
<td>{{if .Characteristics}}<ul>{{range .Characteristics}}<li>{{.}}</li>{{end}}</ul>{{else}}<span class="muted">none selected</span>{{end}}</td>
{{range .Values}}<td>{{.}}</td>{{end}}
</tr>
{{end}}
</table>
</body>
</html>
`

// WriteHTMLReport renders a self-contained page for one report, with a
// badge image per segment inlined as a data URI.
func WriteHTMLReport(path string, doc Document) error {
	page := htmlPage{
		Title:            seriesDescription,
		Creator:          util.DisplayPersonName(doc.Metadata.ContentCreatorName),
		SeriesNumber:     doc.Metadata.SeriesNumber,
		InstanceNumber:   doc.Metadata.InstanceNumber,
		TimePoint:        doc.Metadata.ClinicalTrialTimePointID,
		CompletionFlag:   CompletionForSave(doc.Completed).String(),
		VerificationFlag: VerificationForSave(doc.Completed).String(),
		GeneratedAt:      time.Now().Format("2006-01-02 15:04"),
	}

	valuesBySegment := make(map[int][]string)
	if doc.Table != nil {
		page.Columns = doc.Table.Columns
		for _, row := range doc.Table.Rows {
			valuesBySegment[row.Segment] = row.Values
		}
	}

	segments := make([]dicom.Segment, len(doc.Segments))
	copy(segments, doc.Segments)
	sort.Slice(segments, func(i, j int) bool { return segments[i].Number < segments[j].Number })

	for _, seg := range segments {
		var entry Entry
		if doc.Store != nil {
			entry, _ = doc.Store.Get(seg.Number)
		}

		badge, err := RenderBadge(seg.Number, seg.Label, entry)
		if err != nil {
			return fmt.Errorf("segment %d: %w", seg.Number, err)
		}

		values := valuesBySegment[seg.Number]
		for len(values) < len(page.Columns) {
			values = append(values, "")
		}

		page.Segments = append(page.Segments, htmlSegment{
			Number:          seg.Number,
			Label:           seg.Label,
			Badge:           template.URL("data:image/png;base64," + base64.StdEncoding.EncodeToString(badge)),
			Characteristics: selectedCharacteristics(entry),
			Values:          values,
		})
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create report page: %w", err)
	}
	if err := htmlTmpl.Execute(f, page); err != nil {
		f.Close()
		return fmt.Errorf("failed to render report page: %w", err)
	}
	return f.Close()
}

// selectedCharacteristics lists the selections of one segment as
// "Concept: Choice" lines, in concept order, skipping unset ones.
func selectedCharacteristics(entry Entry) []string {
	concepts := make([]string, 0, len(entry))
	for concept := range entry {
		concepts = append(concepts, concept)
	}
	sort.Strings(concepts)

	var lines []string
	for _, concept := range concepts {
		choice := entry[concept]
		if choice == "" || choice == catalog.NoSelection {
			continue
		}
		lines = append(lines, fmt.Sprintf("%s: %s", concept, choice))
	}
	return lines
}
