// internal/report/metadata.go
package report

import (
	"errors"
	"fmt"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"

	"github.com/mrsinham/quantreport/internal/exporter"
	"github.com/mrsinham/quantreport/internal/settings"
	"github.com/mrsinham/quantreport/internal/util"
)

// SettingsGroupDefaults is the settings group holding the last metadata
// values the user confirmed. They prefill the next report.
const SettingsGroupDefaults = "QuantitativeReporting/GeneralContentInformationDefaults"

// Metadata carries the general content information of one report.
type Metadata struct {
	ContentCreatorName                  string
	ClinicalTrialSeriesID               string
	ClinicalTrialTimePointID            string
	ClinicalTrialCoordinatingCenterName string
	SeriesNumber                        string
	InstanceNumber                      string
}

// Validate checks the fields a report cannot be saved without.
func (m Metadata) Validate() error {
	return validation.ValidateStruct(&m,
		validation.Field(&m.ContentCreatorName, validation.Required, validation.By(checkPersonName)),
		validation.Field(&m.SeriesNumber, validation.Required, is.Digit),
		validation.Field(&m.InstanceNumber, validation.Required, is.Digit),
	)
}

// checkPersonName rejects values that cannot be written as a DICOM person
// name. Plain "First Last" input is fine, it is normalized on export.
func checkPersonName(value interface{}) error {
	s, _ := value.(string)
	if strings.Contains(s, `\`) {
		return errors.New("must not contain backslashes")
	}
	if strings.Count(s, "^") > 4 {
		return errors.New("must have at most five caret separated components")
	}
	return nil
}

// ExportMetadata converts the report metadata into the carrier the
// segmentation exporter consumes. The creator name is normalized to the
// DICOM person name form.
func (m Metadata) ExportMetadata() exporter.Metadata {
	return exporter.Metadata{
		ContentCreatorName:                  util.FormatPersonName(m.ContentCreatorName),
		SeriesNumber:                        m.SeriesNumber,
		InstanceNumber:                      m.InstanceNumber,
		ClinicalTrialSeriesID:               m.ClinicalTrialSeriesID,
		ClinicalTrialTimePointID:            m.ClinicalTrialTimePointID,
		ClinicalTrialCoordinatingCenterName: m.ClinicalTrialCoordinatingCenterName,
	}
}

// DefaultsFromSettings prefills metadata from the persisted defaults group.
// Missing keys stay empty.
func DefaultsFromSettings(store *settings.Store) Metadata {
	g := store.Group(SettingsGroupDefaults)
	return Metadata{
		ContentCreatorName:                  g.Get("ContentCreatorName"),
		ClinicalTrialSeriesID:               g.Get("ClinicalTrialSeriesID"),
		ClinicalTrialTimePointID:            g.Get("ClinicalTrialTimePointID"),
		ClinicalTrialCoordinatingCenterName: g.Get("ClinicalTrialCoordinatingCenterName"),
		SeriesNumber:                        g.Get("SeriesNumber"),
		InstanceNumber:                      g.Get("InstanceNumber"),
	}
}

// PersistDefaults stores confirmed metadata as the defaults for the next
// report and writes the settings file.
func PersistDefaults(store *settings.Store, m Metadata) error {
	g := store.Group(SettingsGroupDefaults)
	g.Set("ContentCreatorName", m.ContentCreatorName)
	g.Set("ClinicalTrialSeriesID", m.ClinicalTrialSeriesID)
	g.Set("ClinicalTrialTimePointID", m.ClinicalTrialTimePointID)
	g.Set("ClinicalTrialCoordinatingCenterName", m.ClinicalTrialCoordinatingCenterName)
	g.Set("SeriesNumber", m.SeriesNumber)
	g.Set("InstanceNumber", m.InstanceNumber)
	return store.Save()
}

// CompletionFlag states whether the report content is complete.
type CompletionFlag int

const (
	CompletionPartial CompletionFlag = iota
	CompletionComplete
)

// String returns the DICOM string representation of the flag
func (f CompletionFlag) String() string {
	if f == CompletionComplete {
		return "COMPLETE"
	}
	return "PARTIAL"
}

// ParseCompletionFlag parses a string into a CompletionFlag
func ParseCompletionFlag(s string) (CompletionFlag, error) {
	switch strings.ToUpper(s) {
	case "COMPLETE":
		return CompletionComplete, nil
	case "PARTIAL":
		return CompletionPartial, nil
	default:
		return CompletionPartial, fmt.Errorf("invalid completion flag: %s (valid: COMPLETE, PARTIAL)", s)
	}
}

// CompletionForSave maps the save mode to the flag written into the report.
func CompletionForSave(completed bool) CompletionFlag {
	if completed {
		return CompletionComplete
	}
	return CompletionPartial
}

// VerificationFlag states whether the report has been verified.
type VerificationFlag int

const (
	VerificationUnverified VerificationFlag = iota
	VerificationVerified
)

// String returns the DICOM string representation of the flag
func (f VerificationFlag) String() string {
	if f == VerificationVerified {
		return "VERIFIED"
	}
	return "UNVERIFIED"
}

// ParseVerificationFlag parses a string into a VerificationFlag
func ParseVerificationFlag(s string) (VerificationFlag, error) {
	switch strings.ToUpper(s) {
	case "VERIFIED":
		return VerificationVerified, nil
	case "UNVERIFIED":
		return VerificationUnverified, nil
	default:
		return VerificationUnverified, fmt.Errorf("invalid verification flag: %s (valid: VERIFIED, UNVERIFIED)", s)
	}
}

// VerificationForSave maps the save mode to the flag written into the report.
func VerificationForSave(completed bool) VerificationFlag {
	if completed {
		return VerificationVerified
	}
	return VerificationUnverified
}
