package tui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/bubbles/viewport"

	"github.com/aristath/chorewheel/internal/events"
	"github.com/aristath/chorewheel/internal/persistence"
)

// maxNotices caps the reminder notices kept above the activity log.
const maxNotices = 50

// ActivityPaneModel shows live reminder notices and the household's activity
// log in a scrollable viewport.
type ActivityPaneModel struct {
	notices  []string // newest first
	entries  []persistence.ActivityEntry
	viewport viewport.Model
	width    int
	height   int
	focused  bool
}

// NewActivityPaneModel creates a new activity pane model.
func NewActivityPaneModel() ActivityPaneModel {
	return ActivityPaneModel{
		viewport: viewport.New(0, 0),
	}
}

// SetEntries replaces the activity log shown below the notices.
func (m *ActivityPaneModel) SetEntries(entries []persistence.ActivityEntry) {
	m.entries = entries
	m.updateViewportContent()
}

// Notice records a reminder event. Other events reach the pane through the
// activity log on the next refresh.
func (m *ActivityPaneModel) Notice(e events.Event) {
	var line string
	switch e := e.(type) {
	case events.TaskDueEvent:
		state := "due"
		if e.Overdue {
			state = "overdue"
		}
		line = StyleDueSoon.Render(fmt.Sprintf("%s %s %s %s",
			e.Timestamp.Format(time.Kitchen), e.Title, state, e.DueDate.Format("Mon 2 Jan 15:04")))
	case events.ReminderFailedEvent:
		line = StyleError.Render(fmt.Sprintf("%s reminder for task %d failed: %v",
			e.Timestamp.Format(time.Kitchen), e.ID, e.Err))
	default:
		return
	}

	m.notices = append([]string{line}, m.notices...)
	if len(m.notices) > maxNotices {
		m.notices = m.notices[:maxNotices]
	}
	m.updateViewportContent()
}

// Update handles messages for the activity pane.
func (m ActivityPaneModel) Update(msg tea.Msg) (ActivityPaneModel, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resizeViewport()

	case tea.KeyMsg:
		if m.focused {
			m.viewport, cmd = m.viewport.Update(msg)
		}
	}

	return m, cmd
}

// View renders the activity pane.
func (m ActivityPaneModel) View() string {
	if m.width == 0 || m.height == 0 {
		return ""
	}

	content := StyleTitle.Render("Activity") + "\n" + m.viewport.View()

	style := StyleUnfocusedBorder
	if m.focused {
		style = StyleFocusedBorder
	}

	return style.
		Width(m.width - 2).
		Height(m.height - 2).
		Render(content)
}

func (m *ActivityPaneModel) updateViewportContent() {
	if len(m.notices) == 0 && len(m.entries) == 0 {
		m.viewport.SetContent(StyleMuted.Render("Nothing has happened yet."))
		return
	}

	lines := make([]string, 0, len(m.notices)+len(m.entries))
	lines = append(lines, m.notices...)
	for _, e := range m.entries {
		lines = append(lines, fmt.Sprintf("%s %s",
			StyleMuted.Render(e.CreatedAt.Local().Format("Jan 2 15:04")), e.Detail))
	}
	m.viewport.SetContent(strings.Join(lines, "\n"))
	m.viewport.GotoTop()
}

// resizeViewport resizes the viewport based on pane dimensions.
func (m *ActivityPaneModel) resizeViewport() {
	m.viewport.Width = max(10, m.width-4)
	m.viewport.Height = max(3, m.height-3)
}

// SetSize updates the pane dimensions.
func (m *ActivityPaneModel) SetSize(w, h int) {
	m.width = w
	m.height = h
	m.resizeViewport()
}

// SetFocused updates the focus state.
func (m *ActivityPaneModel) SetFocused(focused bool) {
	m.focused = focused
}
