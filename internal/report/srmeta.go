// internal/report/srmeta.go
package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mrsinham/quantreport/internal/util"
)

// seriesDescription is the fixed series description of generated reports.
const seriesDescription = "Measurement Report"

// srMetaDocument is the metadata document handed to the report encoder.
// The encoder resolves compositeContext and imageLibrary entries against
// the directories passed as separate parameters, so both hold base names.
type srMetaDocument struct {
	SeriesDescription string          `json:"SeriesDescription"`
	SeriesNumber      string          `json:"SeriesNumber"`
	InstanceNumber    string          `json:"InstanceNumber"`
	CompositeContext  []string        `json:"compositeContext"`
	ImageLibrary      []string        `json:"imageLibrary"`
	ObserverContext   observerContext `json:"observerContext"`
	VerificationFlag  string          `json:"VerificationFlag"`
	CompletionFlag    string          `json:"CompletionFlag"`
	ActivitySession   string          `json:"activitySession"`
	TimePoint         string          `json:"timePoint"`
	Measurements      json.RawMessage `json:"Measurements"`
}

type observerContext struct {
	ObserverType       string `json:"ObserverType"`
	PersonObserverName string `json:"PersonObserverName"`
}

// WriteSRMeta writes the encoder metadata document for one report.
// segFile names the referenced segmentation, imageLibrary lists the source
// image files. An empty measurements document is written as an empty array.
func WriteSRMeta(path string, md Metadata, completed bool, segFile string, imageLibrary []string, measurements json.RawMessage) error {
	if len(measurements) == 0 {
		measurements = json.RawMessage("[]")
	}

	doc := srMetaDocument{
		SeriesDescription: seriesDescription,
		SeriesNumber:      md.SeriesNumber,
		InstanceNumber:    md.InstanceNumber,
		CompositeContext:  []string{filepath.Base(segFile)},
		ImageLibrary:      baseNames(imageLibrary),
		ObserverContext: observerContext{
			ObserverType:       "PERSON",
			PersonObserverName: util.FormatPersonName(md.ContentCreatorName),
		},
		VerificationFlag: VerificationForSave(completed).String(),
		CompletionFlag:   CompletionForSave(completed).String(),
		ActivitySession:  "1",
		TimePoint:        md.ClinicalTrialTimePointID,
		Measurements:     measurements,
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode report metadata: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write report metadata: %w", err)
	}
	return nil
}

func baseNames(paths []string) []string {
	names := make([]string, 0, len(paths))
	for _, p := range paths {
		names = append(names, filepath.Base(p))
	}
	return names
}
