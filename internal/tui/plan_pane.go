package tui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/aristath/chorewheel/internal/scheduler"
)

// PlanPaneModel shows household progress and the dependency order of its tasks.
type PlanPaneModel struct {
	total     int
	completed int
	overdue   int
	order     []scheduler.TaskID
	ready     map[scheduler.TaskID]bool
	titles    map[scheduler.TaskID]string
	done      map[scheduler.TaskID]bool
	now       func() time.Time
	width     int
	height    int
	focused   bool
}

// NewPlanPaneModel creates a new plan pane model.
func NewPlanPaneModel(now func() time.Time) PlanPaneModel {
	return PlanPaneModel{now: now}
}

// SetSnapshot recomputes the counters from the listed tasks.
func (m *PlanPaneModel) SetSnapshot(tasks []*scheduler.Task, order, ready []scheduler.TaskID) {
	now := m.now()
	m.total = len(tasks)
	m.completed = 0
	m.overdue = 0
	m.titles = make(map[scheduler.TaskID]string, len(tasks))
	m.done = make(map[scheduler.TaskID]bool, len(tasks))
	for _, t := range tasks {
		m.titles[t.ID] = t.Title
		switch {
		case t.IsCompleted:
			m.completed++
			m.done[t.ID] = true
		case t.DueDate != nil && t.DueDate.Before(now):
			m.overdue++
		}
	}

	m.order = order
	m.ready = make(map[scheduler.TaskID]bool, len(ready))
	for _, id := range ready {
		m.ready[id] = true
	}
}

// Update handles messages for the plan pane.
func (m PlanPaneModel) Update(msg tea.Msg) (PlanPaneModel, tea.Cmd) {
	if msg, ok := msg.(tea.WindowSizeMsg); ok {
		m.width = msg.Width
		m.height = msg.Height
	}
	return m, nil
}

// View renders the plan pane.
func (m PlanPaneModel) View() string {
	if m.width == 0 || m.height == 0 {
		return ""
	}

	var b strings.Builder

	title := StyleTitle.Render("Plan")
	b.WriteString(title)
	b.WriteString("\n")
	b.WriteString(strings.Repeat("=", lipgloss.Width(title)))
	b.WriteString("\n\n")

	open := m.total - m.completed
	b.WriteString(fmt.Sprintf("Total:     %d\n", m.total))
	b.WriteString(fmt.Sprintf("Completed: %s\n", StyleDone.Render(fmt.Sprintf("%d", m.completed))))
	b.WriteString(fmt.Sprintf("Ready:     %s\n", StyleDueSoon.Render(fmt.Sprintf("%d", len(m.ready)))))
	b.WriteString(fmt.Sprintf("Overdue:   %s\n", StyleOverdue.Render(fmt.Sprintf("%d", m.overdue))))
	b.WriteString(fmt.Sprintf("Open:      %s\n", StyleMuted.Render(fmt.Sprintf("%d", open))))
	b.WriteString("\n")

	if m.total > 0 {
		barWidth := min(m.width-14, 40)
		completedWidth := (m.completed * barWidth) / m.total
		overdueWidth := (m.overdue * barWidth) / m.total
		openWidth := barWidth - completedWidth - overdueWidth

		bar := StyleDone.Render(strings.Repeat("=", max(0, completedWidth)))
		bar += StyleOverdue.Render(strings.Repeat("!", max(0, overdueWidth)))
		bar += StyleMuted.Render(strings.Repeat(".", max(0, openWidth)))

		b.WriteString(fmt.Sprintf("[%s]  %d/%d\n\n", bar, m.completed, m.total))
	}

	// Dependency order, as far as it fits.
	room := m.height - 14
	for i, id := range m.order {
		if i >= room {
			b.WriteString(StyleMuted.Render(fmt.Sprintf("... %d more", len(m.order)-i)))
			break
		}
		marker := StyleMuted.Render("·")
		switch {
		case m.done[id]:
			marker = StyleDone.Render("✓")
		case m.ready[id]:
			marker = StyleDueSoon.Render("→")
		}
		b.WriteString(fmt.Sprintf("%s %d. %s\n", marker, i+1, m.titles[id]))
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

// SetSize updates the pane dimensions.
func (m *PlanPaneModel) SetSize(w, h int) {
	m.width = w
	m.height = h
}

// SetFocused updates the focus state.
func (m *PlanPaneModel) SetFocused(focused bool) {
	m.focused = focused
}
