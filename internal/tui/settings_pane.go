package tui

import (
	"fmt"
	"strconv"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/aristath/chorewheel/internal/config"
)

// SettingsPaneModel manages the settings form overlay.
type SettingsPaneModel struct {
	form        *huh.Form
	config      *config.Config
	globalPath  string
	projectPath string
	width       int
	height      int
	visible     bool
	saved       bool
	err         error

	// Form field bindings (strings for Huh)
	saveTarget       string
	maxSkipSteps     string
	remindersEnabled bool
	schedule         string
	intervalMinutes  string
	lookaheadHours   string
	concurrency      string
}

// NewSettingsPaneModel creates a new settings pane.
func NewSettingsPaneModel(cfg *config.Config, globalPath, projectPath string) SettingsPaneModel {
	m := SettingsPaneModel{
		config:      cfg,
		globalPath:  globalPath,
		projectPath: projectPath,
	}
	m.loadFields()
	m.buildForm()
	return m
}

// loadFields copies the current config into the form bindings.
func (m *SettingsPaneModel) loadFields() {
	m.saveTarget = "global"
	m.maxSkipSteps = strconv.Itoa(m.config.Scheduler.MaxSkipSteps)
	m.remindersEnabled = m.config.Reminders.Enabled
	m.schedule = m.config.Reminders.Schedule
	m.intervalMinutes = strconv.Itoa(m.config.Reminders.IntervalMinutes)
	m.lookaheadHours = strconv.Itoa(m.config.Reminders.LookaheadHours)
	m.concurrency = strconv.Itoa(m.config.Reminders.Concurrency)
}

// buildForm constructs the Huh form with all settings fields.
func (m *SettingsPaneModel) buildForm() {
	m.form = huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Key("saveTarget").
				Title("Save To").
				Options(
					huh.NewOption("Global (~/.chorewheel/config.json)", "global"),
					huh.NewOption("Project (.chorewheel/config.json)", "project"),
				).
				Value(&m.saveTarget),
		).Title("Save Target"),

		huh.NewGroup(
			huh.NewInput().
				Key("maxSkipSteps").
				Title("Max Skipped Occurrences Per Completion").
				Value(&m.maxSkipSteps).
				Validate(positiveInt).
				Placeholder("365"),
		).Title("Scheduler"),

		huh.NewGroup(
			huh.NewConfirm().
				Key("remindersEnabled").
				Title("Send Reminders").
				Value(&m.remindersEnabled),

			huh.NewInput().
				Key("schedule").
				Title("Cron Schedule (overrides interval)").
				Value(&m.schedule).
				Placeholder("@hourly"),

			huh.NewInput().
				Key("intervalMinutes").
				Title("Sweep Interval (minutes)").
				Value(&m.intervalMinutes).
				Validate(positiveInt).
				Placeholder("15"),

			huh.NewInput().
				Key("lookaheadHours").
				Title("Lookahead (hours)").
				Value(&m.lookaheadHours).
				Validate(positiveInt).
				Placeholder("24"),

			huh.NewInput().
				Key("concurrency").
				Title("Parallel Deliveries").
				Value(&m.concurrency).
				Validate(positiveInt).
				Placeholder("4"),
		).Title("Reminders"),
	)
}

func positiveInt(s string) error {
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return fmt.Errorf("must be a positive whole number")
	}
	return nil
}

// Init initializes the settings pane.
func (m SettingsPaneModel) Init() tea.Cmd {
	return m.form.Init()
}

// Update handles messages for the settings pane.
func (m SettingsPaneModel) Update(msg tea.Msg) (SettingsPaneModel, tea.Cmd) {
	if !m.visible {
		return m, nil
	}

	if msg, ok := msg.(tea.KeyMsg); ok && msg.String() == "esc" {
		m.visible = false
		m.saved = false
		return m, nil
	}

	form, cmd := m.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		m.form = f
	}

	if m.form.State == huh.StateCompleted {
		m.save()
		if m.saved {
			m.visible = false
		}
	}

	return m, cmd
}

// save validates and writes the edited config. The live config is only
// replaced once the file has been written.
func (m *SettingsPaneModel) save() {
	next, err := m.applyFormToConfig()
	if err == nil {
		targetPath := m.globalPath
		if m.saveTarget == "project" {
			targetPath = m.projectPath
		}
		err = config.Save(next, targetPath)
	}

	if err != nil {
		m.err = err
		m.saved = false
		return
	}
	*m.config = *next
	m.saved = true
	m.err = nil
}

// applyFormToConfig returns a copy of the config with the form values applied.
func (m *SettingsPaneModel) applyFormToConfig() (*config.Config, error) {
	next := *m.config

	ints := []struct {
		name string
		raw  string
		dst  *int
	}{
		{"max skipped occurrences", m.maxSkipSteps, &next.Scheduler.MaxSkipSteps},
		{"sweep interval", m.intervalMinutes, &next.Reminders.IntervalMinutes},
		{"lookahead", m.lookaheadHours, &next.Reminders.LookaheadHours},
		{"parallel deliveries", m.concurrency, &next.Reminders.Concurrency},
	}
	for _, f := range ints {
		n, err := strconv.Atoi(f.raw)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", f.name, err)
		}
		*f.dst = n
	}

	next.Reminders.Enabled = m.remindersEnabled
	next.Reminders.Schedule = m.schedule
	return &next, nil
}

// View renders the settings pane.
func (m SettingsPaneModel) View() string {
	if !m.visible {
		return ""
	}

	var content string
	if m.err != nil {
		content = StyleError.Render(fmt.Sprintf("✗ Error saving: %v", m.err))
	} else {
		content = m.form.View()
	}

	style := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("62")).
		Padding(1, 2).
		Width(m.width - 4).
		Height(m.height - 4)

	title := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("62")).
		Render("⚙ Settings")

	return lipgloss.JoinVertical(lipgloss.Left, title, style.Render(content))
}

// SetSize updates the dimensions of the settings pane.
func (m *SettingsPaneModel) SetSize(w, h int) {
	m.width = w
	m.height = h
	if m.form != nil {
		m.form.WithWidth(w - 8).WithHeight(h - 8)
	}
}

// SetVisible shows or hides the settings pane. Showing it reloads the form
// from the current config.
func (m *SettingsPaneModel) SetVisible(v bool) {
	m.visible = v
	m.saved = false
	m.err = nil

	if v {
		m.loadFields()
		m.buildForm()
	}
}

// IsVisible returns whether the settings pane is currently visible.
func (m SettingsPaneModel) IsVisible() bool {
	return m.visible
}

// Saved reports whether the last submission was written to disk.
func (m SettingsPaneModel) Saved() bool {
	return m.saved
}
