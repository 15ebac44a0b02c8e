// Package screens holds the individual wizard screens.
package screens

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/mrsinham/quantreport/cmd/quantreport/wizard/components"
	"github.com/mrsinham/quantreport/internal/report"
)

// DefaultsScreen edits the report content defaults.
type DefaultsScreen struct {
	form      *huh.Form
	helpPanel *components.HelpPanel
	metadata  *report.Metadata
	width     int
	height    int
	done      bool
	cancelled bool
}

// NewDefaultsScreen creates the defaults editing screen. The metadata is
// edited in place.
func NewDefaultsScreen(metadata *report.Metadata) *DefaultsScreen {
	// Set defaults if not provided
	if metadata.SeriesNumber == "" {
		metadata.SeriesNumber = "300"
	}
	if metadata.InstanceNumber == "" {
		metadata.InstanceNumber = "1"
	}

	s := &DefaultsScreen{
		helpPanel: components.NewHelpPanel(),
		metadata:  metadata,
	}

	s.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Key("creator_name").
				Title("Content Creator").
				Placeholder("Jane Doe or Doe^Jane").
				Value(&metadata.ContentCreatorName).
				Validate(validatePersonName),

			huh.NewInput().
				Key("series_number").
				Title("Series Number").
				Value(&metadata.SeriesNumber).
				Validate(validateDigits),

			huh.NewInput().
				Key("instance_number").
				Title("Instance Number").
				Value(&metadata.InstanceNumber).
				Validate(validateDigits),
		),
		huh.NewGroup(
			huh.NewInput().
				Key("trial_series_id").
				Title("Clinical Trial Series ID").
				Placeholder("optional").
				Value(&metadata.ClinicalTrialSeriesID),

			huh.NewInput().
				Key("time_point").
				Title("Clinical Trial Time Point").
				Placeholder("optional, e.g. Baseline").
				Value(&metadata.ClinicalTrialTimePointID),

			huh.NewInput().
				Key("coordinating_center").
				Title("Coordinating Center").
				Placeholder("optional").
				Value(&metadata.ClinicalTrialCoordinatingCenterName),
		),
	).WithShowHelp(false).WithShowErrors(true)

	return s
}

func validatePersonName(s string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("name is required")
	}
	if strings.Contains(s, `\`) {
		return fmt.Errorf("backslashes are not allowed")
	}
	if strings.Count(s, "^") > 4 {
		return fmt.Errorf("at most 5 caret-separated components")
	}
	return nil
}

func validateDigits(s string) error {
	if s == "" {
		return fmt.Errorf("a number is required")
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return fmt.Errorf("digits only")
		}
	}
	return nil
}

// Init implements tea.Model
func (s *DefaultsScreen) Init() tea.Cmd {
	return s.form.Init()
}

// Update implements tea.Model
func (s *DefaultsScreen) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			s.cancelled = true
			return s, tea.Quit
		}
	case tea.WindowSizeMsg:
		s.width = msg.Width
		s.height = msg.Height
		s.helpPanel.SetWidth(msg.Width / 2)
	}

	form, cmd := s.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		s.form = f
	}

	// Update help panel based on focused field
	focused := s.form.GetFocusedField()
	if focused != nil {
		s.helpPanel.SetField(focused.GetKey())
	}

	if s.form.State == huh.StateCompleted {
		s.done = true
	}

	return s, cmd
}

// View implements tea.Model
func (s *DefaultsScreen) View() string {
	if s.cancelled {
		return "Cancelled.\n"
	}

	title := components.TitleStyle.Render("QUANTREPORT WIZARD - Report Content Defaults")
	subtitle := components.SubtitleStyle.Render("These values are stamped on every saved segmentation and report.")

	content := lipgloss.JoinVertical(lipgloss.Left,
		title,
		subtitle,
		s.form.View(),
		"",
		s.helpPanel.View(),
		"",
		components.FooterStyle.Render("Tab: Next field | Enter: Submit | Esc: Cancel"),
	)

	return content
}

// Done returns true if the form was completed
func (s *DefaultsScreen) Done() bool {
	return s.done
}

// Cancelled returns true if the user cancelled
func (s *DefaultsScreen) Cancelled() bool {
	return s.cancelled
}
