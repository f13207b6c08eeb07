package tui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/aristath/chorewheel/internal/scheduler"
)

// dueSoonWindow is how far ahead a due date is highlighted.
const dueSoonWindow = 24 * time.Hour

// BoardPaneModel lists the household's tasks and tracks the selection.
type BoardPaneModel struct {
	tasks       []*scheduler.Task
	names       map[scheduler.MemberID]string
	selectedIdx int
	now         func() time.Time
	width       int
	height      int
	focused     bool
}

// NewBoardPaneModel creates an empty board.
func NewBoardPaneModel(now func() time.Time) BoardPaneModel {
	return BoardPaneModel{
		names: make(map[scheduler.MemberID]string),
		now:   now,
	}
}

// SetSnapshot replaces the listed tasks, keeping the selection on the same
// task when it still exists.
func (m *BoardPaneModel) SetSnapshot(tasks []*scheduler.Task, members []scheduler.Member) {
	var selected scheduler.TaskID
	if t := m.Selected(); t != nil {
		selected = t.ID
	}

	m.tasks = tasks
	m.names = make(map[scheduler.MemberID]string, len(members))
	for _, mem := range members {
		m.names[mem.ID] = mem.Name
	}

	m.selectedIdx = 0
	for i, t := range tasks {
		if t.ID == selected {
			m.selectedIdx = i
			break
		}
	}
}

// Selected returns the highlighted task, or nil when the board is empty.
func (m BoardPaneModel) Selected() *scheduler.Task {
	if m.selectedIdx >= 0 && m.selectedIdx < len(m.tasks) {
		return m.tasks[m.selectedIdx]
	}
	return nil
}

// Update handles messages for the board pane.
func (m BoardPaneModel) Update(msg tea.Msg) (BoardPaneModel, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case tea.KeyMsg:
		if !m.focused {
			break
		}
		switch msg.String() {
		case KeyJ, KeyDown:
			if m.selectedIdx < len(m.tasks)-1 {
				m.selectedIdx++
			}
		case KeyK, KeyUp:
			if m.selectedIdx > 0 {
				m.selectedIdx--
			}
		}
	}

	return m, nil
}

// View renders the board pane.
func (m BoardPaneModel) View() string {
	if m.width == 0 || m.height == 0 {
		return ""
	}

	var b strings.Builder

	title := StyleTitle.Render("Chores")
	b.WriteString(title)
	b.WriteString("\n")
	b.WriteString(strings.Repeat("=", lipgloss.Width(title)))
	b.WriteString("\n\n")

	if len(m.tasks) == 0 {
		b.WriteString(StyleMuted.Render("No chores yet."))
	}

	titleWidth := max(10, m.width-60)
	visible := max(1, m.height-6)
	start := 0
	if m.selectedIdx >= visible {
		start = m.selectedIdx - visible + 1
	}

	for i := start; i < len(m.tasks) && i < start+visible; i++ {
		line := m.renderRow(m.tasks[i], titleWidth)
		if i == m.selectedIdx && m.focused {
			line = StyleSelected.Render(line)
		}
		b.WriteString(line)
		b.WriteString("\n")
	}

	style := StyleUnfocusedBorder
	if m.focused {
		style = StyleFocusedBorder
	}

	return style.
		Width(m.width - 2).
		Height(m.height - 2).
		Render(b.String())
}

func (m BoardPaneModel) renderRow(t *scheduler.Task, titleWidth int) string {
	name := t.Title
	if len(name) > titleWidth {
		name = name[:titleWidth-3] + "..."
	}

	due := "-"
	if t.DueDate != nil {
		due = scheduler.CalendarDate(*t.DueDate)
	}

	assignee := "-"
	if t.Assigned.Primary != 0 {
		assignee = m.names[t.Assigned.Primary]
		if assignee == "" {
			assignee = fmt.Sprintf("#%d", t.Assigned.Primary)
		}
	}

	var flags []string
	if t.Repeat != nil {
		flags = append(flags, t.Repeat.String())
	}
	if t.EnableRotation {
		flags = append(flags, "rotates")
	}
	if n := len(t.SkippedDates); n > 0 {
		flags = append(flags, fmt.Sprintf("%d skipped", n))
	}

	return fmt.Sprintf("%s %-*s %10s  %-10s %s",
		m.statusIcon(t), titleWidth, name, due, assignee, StyleMuted.Render(strings.Join(flags, ", ")))
}

// statusIcon returns a styled indicator for the task's due state.
func (m BoardPaneModel) statusIcon(t *scheduler.Task) string {
	switch {
	case t.IsCompleted:
		return StyleDone.Render("✓")
	case t.DueDate == nil:
		return StyleMuted.Render("○")
	case t.DueDate.Before(m.now()):
		return StyleOverdue.Render("!")
	case t.DueDate.Before(m.now().Add(dueSoonWindow)):
		return StyleDueSoon.Render("●")
	default:
		return StyleMuted.Render("○")
	}
}

// SetSize updates the pane dimensions.
func (m *BoardPaneModel) SetSize(w, h int) {
	m.width = w
	m.height = h
}

// SetFocused updates the focus state.
func (m *BoardPaneModel) SetFocused(focused bool) {
	m.focused = focused
}
