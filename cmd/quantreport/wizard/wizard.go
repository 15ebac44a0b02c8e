// Package wizard provides an interactive TUI for editing the report
// content defaults kept in the settings file.
package wizard

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/mrsinham/quantreport/cmd/quantreport/wizard/components"
	"github.com/mrsinham/quantreport/cmd/quantreport/wizard/screens"
	"github.com/mrsinham/quantreport/internal/report"
	"github.com/mrsinham/quantreport/internal/settings"
)

// DefaultSettingsFile is used when no --settings flag is given.
const DefaultSettingsFile = "quantreport-settings.yaml"

// Phase represents the current phase/screen of the wizard.
type Phase int

const (
	PhaseDefaults Phase = iota
	PhaseSummary
	PhaseExport
	PhaseComplete
	PhaseError
)

// Wizard is the main orchestrator for the wizard interface.
type Wizard struct {
	settings *settings.Store
	metadata report.Metadata

	// Current phase
	phase Phase

	// Screen instances
	defaultsScreen *screens.DefaultsScreen
	summaryScreen  *screens.SummaryScreen

	// Export form
	exportForm *huh.Form
	exportPath string

	// Window size
	width  int
	height int

	// Final state
	savedTo   string
	cancelled bool
	finished  bool
	err       error
}

// NewWizard creates a wizard editing the given metadata defaults. The
// settings store receives the values when the user saves.
func NewWizard(store *settings.Store, md report.Metadata) *Wizard {
	w := &Wizard{
		settings: store,
		metadata: md,
		phase:    PhaseDefaults,
	}

	// Initialize the defaults screen
	w.defaultsScreen = screens.NewDefaultsScreen(&w.metadata)

	return w
}

// Init implements tea.Model.
func (w *Wizard) Init() tea.Cmd {
	return w.defaultsScreen.Init()
}

// Update implements tea.Model.
func (w *Wizard) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	// Handle window size for all phases
	if wsm, ok := msg.(tea.WindowSizeMsg); ok {
		w.width = wsm.Width
		w.height = wsm.Height
	}

	switch w.phase {
	case PhaseDefaults:
		return w.updateDefaults(msg)
	case PhaseSummary:
		return w.updateSummary(msg)
	case PhaseExport:
		return w.updateExport(msg)
	case PhaseComplete:
		return w.updateComplete(msg)
	case PhaseError:
		return w.updateError(msg)
	}

	return w, nil
}

// View implements tea.Model.
func (w *Wizard) View() string {
	switch w.phase {
	case PhaseDefaults:
		return w.defaultsScreen.View()
	case PhaseSummary:
		return w.summaryScreen.View()
	case PhaseExport:
		return w.viewExport()
	case PhaseComplete:
		return w.viewComplete()
	case PhaseError:
		return w.viewError()
	}

	return ""
}

// updateDefaults handles updates in the defaults editing phase.
func (w *Wizard) updateDefaults(msg tea.Msg) (tea.Model, tea.Cmd) {
	model, cmd := w.defaultsScreen.Update(msg)
	if ds, ok := model.(*screens.DefaultsScreen); ok {
		w.defaultsScreen = ds
	}

	if w.defaultsScreen.Cancelled() {
		w.cancelled = true
		return w, tea.Quit
	}

	if w.defaultsScreen.Done() {
		return w.transitionToSummary()
	}

	return w, cmd
}

// transitionToSummary moves to the summary screen.
func (w *Wizard) transitionToSummary() (tea.Model, tea.Cmd) {
	w.phase = PhaseSummary
	w.summaryScreen = screens.NewSummaryScreen(w.metadata, w.settings.Path())
	return w, w.summaryScreen.Init()
}

// updateSummary handles updates in the summary phase.
func (w *Wizard) updateSummary(msg tea.Msg) (tea.Model, tea.Cmd) {
	model, cmd := w.summaryScreen.Update(msg)
	if ss, ok := model.(*screens.SummaryScreen); ok {
		w.summaryScreen = ss
	}

	if w.summaryScreen.Cancelled() {
		w.cancelled = true
		return w, tea.Quit
	}

	if w.summaryScreen.Done() {
		switch w.summaryScreen.Action() {
		case screens.SummaryActionBack:
			// Go back to editing
			w.phase = PhaseDefaults
			w.defaultsScreen = screens.NewDefaultsScreen(&w.metadata)
			return w, w.defaultsScreen.Init()

		case screens.SummaryActionSave:
			if err := report.PersistDefaults(w.settings, w.metadata); err != nil {
				w.err = err
				w.phase = PhaseError
				return w, nil
			}
			w.savedTo = w.settings.Path()
			w.phase = PhaseComplete
			return w, nil

		case screens.SummaryActionExport:
			return w.transitionToExport()

		case screens.SummaryActionCancel:
			w.cancelled = true
			return w, tea.Quit
		}
	}

	return w, cmd
}

// transitionToExport shows the export dialog.
func (w *Wizard) transitionToExport() (tea.Model, tea.Cmd) {
	w.phase = PhaseExport
	w.exportPath = "quantreport-defaults.yaml"

	w.exportForm = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Key("export_path").
				Title("Export defaults to").
				Description("Enter the path for the YAML file").
				Value(&w.exportPath).
				Validate(func(s string) error {
					if s == "" {
						return fmt.Errorf("path is required")
					}
					return nil
				}),
		),
	).WithShowHelp(false)

	return w, w.exportForm.Init()
}

// updateExport handles updates in the export phase.
func (w *Wizard) updateExport(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "esc":
			// Go back to summary
			return w.transitionToSummary()
		case "ctrl+c":
			w.cancelled = true
			return w, tea.Quit
		}
	}

	form, cmd := w.exportForm.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		w.exportForm = f
	}

	if w.exportForm.State == huh.StateCompleted {
		if err := SaveToYAML(w.metadata, w.exportPath); err != nil {
			w.err = err
			w.phase = PhaseError
			return w, nil
		}

		// Back to summary once exported
		return w.transitionToSummary()
	}

	return w, cmd
}

// viewExport renders the export dialog.
func (w *Wizard) viewExport() string {
	title := components.TitleStyle.Render("Export Defaults")

	content := lipgloss.JoinVertical(lipgloss.Left,
		title,
		"",
		w.exportForm.View(),
		"",
		components.FooterStyle.Render("Enter: Export | Esc: Back"),
	)

	return content
}

// updateComplete handles updates after a successful save.
func (w *Wizard) updateComplete(msg tea.Msg) (tea.Model, tea.Cmd) {
	if _, ok := msg.(tea.KeyMsg); ok {
		w.finished = true
		return w, tea.Quit
	}
	return w, nil
}

// viewComplete renders the completion message.
func (w *Wizard) viewComplete() string {
	title := components.TitleStyle.Render("Defaults Saved")

	content := lipgloss.JoinVertical(lipgloss.Left,
		title,
		"",
		fmt.Sprintf("✓ Defaults saved to %s", w.savedTo),
		"",
		components.FooterStyle.Render("Press any key to exit"),
	)

	return content
}

// updateError handles updates in the error phase.
func (w *Wizard) updateError(msg tea.Msg) (tea.Model, tea.Cmd) {
	if _, ok := msg.(tea.KeyMsg); ok {
		w.finished = true
		return w, tea.Quit
	}
	return w, nil
}

// viewError renders the error message.
func (w *Wizard) viewError() string {
	title := components.ErrorStyle.Render("Error")

	content := lipgloss.JoinVertical(lipgloss.Left,
		title,
		"",
		fmt.Sprintf("%v", w.err),
		"",
		components.FooterStyle.Render("Press any key to exit"),
	)

	return content
}

// Run starts the interactive wizard for the report content defaults.
// settingsFile selects the settings store, fromDefaults optionally seeds
// the form from an exported YAML file.
func Run(settingsFile, fromDefaults string) error {
	if settingsFile == "" {
		settingsFile = DefaultSettingsFile
	}

	store, err := settings.Open(settingsFile)
	if err != nil {
		return fmt.Errorf("opening settings: %w", err)
	}

	md := report.DefaultsFromSettings(store)

	// Seed from an exported defaults file if provided
	if fromDefaults != "" {
		loaded, err := LoadFromYAML(fromDefaults)
		if err != nil {
			return fmt.Errorf("loading defaults: %w", err)
		}
		md = loaded
	}

	// Create and run the wizard
	wizard := NewWizard(store, md)
	p := tea.NewProgram(wizard, tea.WithAltScreen())

	finalModel, err := p.Run()
	if err != nil {
		return fmt.Errorf("running wizard: %w", err)
	}

	// Check final state
	if w, ok := finalModel.(*Wizard); ok {
		if w.cancelled {
			return nil // User cancelled, not an error
		}
		if w.err != nil {
			return w.err
		}
		if w.savedTo != "" {
			fmt.Printf("✓ Defaults saved to %s\n", w.savedTo)
		}
	}

	return nil
}
