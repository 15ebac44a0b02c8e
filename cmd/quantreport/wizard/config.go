package wizard

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/mrsinham/quantreport/internal/report"
)

// Defaults mirrors the report content defaults for YAML serialization.
type Defaults struct {
	ContentCreatorName                  string `yaml:"content_creator_name"`
	SeriesNumber                        string `yaml:"series_number"`
	InstanceNumber                      string `yaml:"instance_number"`
	ClinicalTrialSeriesID               string `yaml:"clinical_trial_series_id,omitempty"`
	ClinicalTrialTimePointID            string `yaml:"clinical_trial_time_point_id,omitempty"`
	ClinicalTrialCoordinatingCenterName string `yaml:"clinical_trial_coordinating_center_name,omitempty"`
}

// SaveToYAML exports the defaults to a standalone YAML file.
func SaveToYAML(md report.Metadata, path string) error {
	data, err := yaml.Marshal(fromMetadata(md))
	if err != nil {
		return fmt.Errorf("encoding defaults: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing defaults %s: %w", path, err)
	}
	return nil
}

// LoadFromYAML reads defaults previously exported with SaveToYAML.
func LoadFromYAML(path string) (report.Metadata, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return report.Metadata{}, fmt.Errorf("reading defaults %s: %w", path, err)
	}

	var d Defaults
	if err := yaml.Unmarshal(data, &d); err != nil {
		return report.Metadata{}, fmt.Errorf("parsing defaults %s: %w", path, err)
	}
	return d.toMetadata(), nil
}

func fromMetadata(md report.Metadata) Defaults {
	return Defaults{
		ContentCreatorName:                  md.ContentCreatorName,
		SeriesNumber:                        md.SeriesNumber,
		InstanceNumber:                      md.InstanceNumber,
		ClinicalTrialSeriesID:               md.ClinicalTrialSeriesID,
		ClinicalTrialTimePointID:            md.ClinicalTrialTimePointID,
		ClinicalTrialCoordinatingCenterName: md.ClinicalTrialCoordinatingCenterName,
	}
}

func (d Defaults) toMetadata() report.Metadata {
	return report.Metadata{
		ContentCreatorName:                  d.ContentCreatorName,
		SeriesNumber:                        d.SeriesNumber,
		InstanceNumber:                      d.InstanceNumber,
		ClinicalTrialSeriesID:               d.ClinicalTrialSeriesID,
		ClinicalTrialTimePointID:            d.ClinicalTrialTimePointID,
		ClinicalTrialCoordinatingCenterName: d.ClinicalTrialCoordinatingCenterName,
	}
}
