package help

// HelpText contains information about a field
type HelpText struct {
	Title       string
	Description string
	Details     string
}

// Texts contains help information for all wizard fields
var Texts = map[string]HelpText{
	"creator_name": {
		Title:       "CONTENT CREATOR",
		Description: "Person responsible for the report content.",
		Details: `Written into both the segmentation and the report.
Natural order is accepted: "Jane Doe" is stored as "Doe^Jane".
A caret-separated name ("Doe^Jane^M") is kept as typed.
Backslashes are not allowed, at most 5 caret components.`,
	},
	"series_number": {
		Title:       "SERIES NUMBER",
		Description: "Series number stamped on the saved objects.",
		Details: `Digits only. 300 is the usual number for derived
segmentation series and keeps them apart from the acquired images.`,
	},
	"instance_number": {
		Title:       "INSTANCE NUMBER",
		Description: "Instance number stamped on the saved objects.",
		Details:     "Digits only. Usually 1, each save produces one instance per object.",
	},
	"trial_series_id": {
		Title:       "CLINICAL TRIAL SERIES ID",
		Description: "Series identifier within a clinical trial.",
		Details: `Optional. Only meaningful for data collected under a trial
protocol; leave empty otherwise.`,
	},
	"time_point": {
		Title:       "CLINICAL TRIAL TIME POINT",
		Description: "Time point identifier within a clinical trial.",
		Details: `Optional. Examples: "Baseline", "Month 3", "Week 12".
Also recorded as the report's time point.`,
	},
	"coordinating_center": {
		Title:       "COORDINATING CENTER",
		Description: "Name of the trial coordinating center.",
		Details:     "Optional. The institution coordinating the clinical trial.",
	},
	"export_path": {
		Title:       "EXPORT PATH",
		Description: "File the defaults are exported to.",
		Details: `A YAML snapshot of the values on this screen. Load it later
with: quantreport wizard --from <file>`,
	},
}
