package screens

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/mrsinham/quantreport/cmd/quantreport/wizard/components"
	"github.com/mrsinham/quantreport/internal/report"
	"github.com/mrsinham/quantreport/internal/util"
)

// SummaryAction represents the action selected on the summary screen
type SummaryAction int

const (
	// SummaryActionBack returns to the defaults screen
	SummaryActionBack SummaryAction = iota
	// SummaryActionSave persists the defaults to the settings file
	SummaryActionSave
	// SummaryActionExport writes the defaults to a standalone YAML file
	SummaryActionExport
	// SummaryActionCancel exits the wizard
	SummaryActionCancel
)

const (
	actionBack   = "back"
	actionSave   = "save"
	actionExport = "export"
	actionCancel = "cancel"
)

var (
	summaryPanelStyle = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("63")).
		Padding(1, 2)

	summaryTitleStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("63")).
		Bold(true).
		MarginBottom(1)

	summaryLabelStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("244"))

	summaryValueStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("252")).
		Bold(true)

	cliCommandStyle = lipgloss.NewStyle().
		Background(lipgloss.Color("236")).
		Foreground(lipgloss.Color("252")).
		Padding(0, 1)
)

// SummaryScreen shows the edited defaults before they are persisted.
type SummaryScreen struct {
	form         *huh.Form
	metadata     report.Metadata
	settingsPath string
	action       string
	done         bool
	cancelled    bool
	width        int
	height       int
}

// NewSummaryScreen creates a new summary screen
func NewSummaryScreen(metadata report.Metadata, settingsPath string) *SummaryScreen {
	s := &SummaryScreen{
		metadata:     metadata,
		settingsPath: settingsPath,
		action:       actionSave, // Default action
	}

	s.form = huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Key("action").
				Title("Select an action").
				Options(
					huh.NewOption("Save defaults to "+settingsPath, actionSave),
					huh.NewOption("Export defaults to YAML", actionExport),
					huh.NewOption("Back to edit", actionBack),
					huh.NewOption("Cancel and exit", actionCancel),
				).
				Value(&s.action),
		),
	).WithShowHelp(false)

	return s
}

// Init implements tea.Model
func (s *SummaryScreen) Init() tea.Cmd {
	return s.form.Init()
}

// Update implements tea.Model
func (s *SummaryScreen) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			s.cancelled = true
			return s, tea.Quit
		case "esc":
			// Esc goes back instead of cancelling
			s.action = actionBack
			s.done = true
			return s, nil
		}
	case tea.WindowSizeMsg:
		s.width = msg.Width
		s.height = msg.Height
	}

	form, cmd := s.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		s.form = f
	}

	if s.form.State == huh.StateCompleted {
		s.done = true
	}

	return s, cmd
}

// View implements tea.Model
func (s *SummaryScreen) View() string {
	if s.cancelled {
		return "Cancelled.\n"
	}

	title := components.TitleStyle.Render("SUMMARY - Review Defaults")

	panel := summaryPanelStyle.Width(58).Render(s.buildDefaultsSummary())
	cliSection := s.buildCLIHint()

	content := lipgloss.JoinVertical(lipgloss.Left,
		title,
		"",
		panel,
		"",
		cliSection,
		"",
		s.form.View(),
		"",
		components.FooterStyle.Render("Enter: Select action | Esc: Back"),
	)

	return content
}

// buildDefaultsSummary renders the edited values as label/value lines.
func (s *SummaryScreen) buildDefaultsSummary() string {
	var sb strings.Builder

	sb.WriteString(summaryTitleStyle.Render("Report Content Defaults"))
	sb.WriteString("\n\n")

	orEmpty := func(v string) string {
		if v == "" {
			return "(not set)"
		}
		return v
	}

	params := []struct {
		label string
		value string
	}{
		{"Content Creator", util.FormatPersonName(s.metadata.ContentCreatorName)},
		{"Series Number", s.metadata.SeriesNumber},
		{"Instance Number", s.metadata.InstanceNumber},
		{"Trial Series ID", orEmpty(s.metadata.ClinicalTrialSeriesID)},
		{"Trial Time Point", orEmpty(s.metadata.ClinicalTrialTimePointID)},
		{"Coordinating Center", orEmpty(s.metadata.ClinicalTrialCoordinatingCenterName)},
	}

	for _, p := range params {
		sb.WriteString(summaryLabelStyle.Render(p.label + ": "))
		sb.WriteString(summaryValueStyle.Render(p.value))
		sb.WriteString("\n")
	}

	return sb.String()
}

// buildCLIHint shows how the stored defaults are picked up on the command line.
func (s *SummaryScreen) buildCLIHint() string {
	cmd := "quantreport --settings " + s.settingsPath +
		" --seg <FILE> --catalog <FILE> --characteristics <FILE> --source-dir <DIR>"

	return lipgloss.JoinVertical(lipgloss.Left,
		summaryLabelStyle.Render("Use the saved defaults with:"),
		cliCommandStyle.Render(cmd),
	)
}

// Action returns the selected action
func (s *SummaryScreen) Action() SummaryAction {
	switch s.action {
	case actionSave:
		return SummaryActionSave
	case actionExport:
		return SummaryActionExport
	case actionCancel:
		return SummaryActionCancel
	default:
		return SummaryActionBack
	}
}

// Done returns true if an action was selected
func (s *SummaryScreen) Done() bool {
	return s.done
}

// Cancelled returns true if the user cancelled
func (s *SummaryScreen) Cancelled() bool {
	return s.cancelled
}
