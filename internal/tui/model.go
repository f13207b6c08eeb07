// Package tui is the interactive household board: tasks, dependency plan and
// activity, refreshed from the store whenever the event bus reports a change.
package tui

import (
	"context"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/aristath/chorewheel/internal/config"
	"github.com/aristath/chorewheel/internal/events"
	"github.com/aristath/chorewheel/internal/persistence"
	"github.com/aristath/chorewheel/internal/scheduler"
)

// activityLimit is how many activity entries a refresh loads.
const activityLimit = 100

// Source is what the board reads from and acts on. *chores.Service
// implements it.
type Source interface {
	Tasks(ctx context.Context, householdID scheduler.HouseholdID) ([]*scheduler.Task, error)
	Members(ctx context.Context, householdID scheduler.HouseholdID) ([]scheduler.Member, error)
	ProjectOrder(ctx context.Context, householdID scheduler.HouseholdID) ([]scheduler.TaskID, error)
	ReadyTasks(ctx context.Context, householdID scheduler.HouseholdID) ([]scheduler.TaskID, error)
	Activity(ctx context.Context, householdID scheduler.HouseholdID, limit int) ([]persistence.ActivityEntry, error)
	CompleteTask(ctx context.Context, taskID scheduler.TaskID, completedBy scheduler.MemberID) (*scheduler.Completion, error)
	SkipOccurrence(ctx context.Context, taskID scheduler.TaskID, date string) (*scheduler.Task, error)
}

// PaneID identifies which pane is focused.
type PaneID int

const (
	PaneBoard PaneID = iota
	PanePlan
	PaneActivity
)

// snapshotMsg carries a freshly loaded view of the household.
type snapshotMsg struct {
	tasks    []*scheduler.Task
	members  []scheduler.Member
	order    []scheduler.TaskID
	ready    []scheduler.TaskID
	activity []persistence.ActivityEntry
	err      error
}

// actionMsg reports the outcome of a completion or skip.
type actionMsg struct {
	status string
	err    error
}

// Model is the root Bubble Tea model for the TUI.
type Model struct {
	boardPane         BoardPaneModel
	planPane          PlanPaneModel
	activityPane      ActivityPaneModel
	settingsPane      SettingsPaneModel
	focusedPane       PaneID
	source            Source
	householdID       scheduler.HouseholdID
	members           []scheduler.Member
	eventSub          <-chan events.Event
	status            string
	err               error
	width             int
	height            int
	quitting          bool
	showSettings      bool
	config            *config.Config
	globalConfigPath  string
	projectConfigPath string
}

// New creates a new TUI model for one household.
// It subscribes to all events from the event bus using SubscribeAll.
func New(eventBus *events.EventBus, source Source, householdID scheduler.HouseholdID, cfg *config.Config, globalPath, projectPath string) Model {
	m := Model{
		boardPane:         NewBoardPaneModel(time.Now),
		planPane:          NewPlanPaneModel(time.Now),
		activityPane:      NewActivityPaneModel(),
		settingsPane:      NewSettingsPaneModel(cfg, globalPath, projectPath),
		focusedPane:       PaneBoard,
		source:            source,
		householdID:       householdID,
		eventSub:          eventBus.SubscribeAll(256),
		config:            cfg,
		globalConfigPath:  globalPath,
		projectConfigPath: projectPath,
	}
	m.updateFocusStates()
	return m
}

// Init initializes the model and returns the initial command.
func (m Model) Init() tea.Cmd {
	return tea.Batch(waitForEvent(m.eventSub), m.refresh())
}

// waitForEvent returns a command that waits for the next event from the event bus.
func waitForEvent(sub <-chan events.Event) tea.Cmd {
	return func() tea.Msg {
		event, ok := <-sub
		if !ok {
			return nil // bus closed
		}
		return event
	}
}

// refresh loads the household state in the background.
func (m Model) refresh() tea.Cmd {
	src, hh := m.source, m.householdID
	return func() tea.Msg {
		ctx := context.Background()
		var msg snapshotMsg
		if msg.tasks, msg.err = src.Tasks(ctx, hh); msg.err != nil {
			return msg
		}
		if msg.members, msg.err = src.Members(ctx, hh); msg.err != nil {
			return msg
		}
		if msg.order, msg.err = src.ProjectOrder(ctx, hh); msg.err != nil {
			return msg
		}
		if msg.ready, msg.err = src.ReadyTasks(ctx, hh); msg.err != nil {
			return msg
		}
		msg.activity, msg.err = src.Activity(ctx, hh, activityLimit)
		return msg
	}
}

// completeSelected completes the highlighted task on behalf of its primary
// assignee, falling back to the first active member.
func (m Model) completeSelected() tea.Cmd {
	task := m.boardPane.Selected()
	if task == nil {
		return nil
	}
	by := task.Assigned.Primary
	if by == 0 {
		for _, mem := range m.members {
			if mem.Active {
				by = mem.ID
				break
			}
		}
	}
	src, id, title := m.source, task.ID, task.Title
	return func() tea.Msg {
		if by == 0 {
			return actionMsg{err: fmt.Errorf("no one to complete %q", title)}
		}
		c, err := src.CompleteTask(context.Background(), id, by)
		if err != nil {
			return actionMsg{err: err}
		}
		if c.Terminal {
			return actionMsg{status: fmt.Sprintf("Completed %s", title)}
		}
		return actionMsg{status: fmt.Sprintf("%s next due %s", title, scheduler.CalendarDate(*c.Task.DueDate))}
	}
}

// skipSelected skips the current occurrence of the highlighted task.
func (m Model) skipSelected() tea.Cmd {
	task := m.boardPane.Selected()
	if task == nil {
		return nil
	}
	src, id, title, due := m.source, task.ID, task.Title, task.DueDate
	return func() tea.Msg {
		if due == nil {
			return actionMsg{err: fmt.Errorf("%q has no due date to skip", title)}
		}
		date := scheduler.CalendarDate(*due)
		if _, err := src.SkipOccurrence(context.Background(), id, date); err != nil {
			return actionMsg{err: err}
		}
		return actionMsg{status: fmt.Sprintf("Skipped %s on %s", title, date)}
	}
}

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		// If settings panel is open, route all keys to it (modal behavior)
		if m.showSettings {
			switch msg.String() {
			case "esc":
				m.showSettings = false
				m.settingsPane.SetVisible(false)
			default:
				cmds = append(cmds, m.updateSettings(msg))
			}
			return m, tea.Batch(cmds...)
		}

		switch msg.String() {
		case KeyQuit, KeyCtrlC:
			m.quitting = true
			return m, tea.Quit

		case KeySettings:
			m.showSettings = true
			m.settingsPane.SetVisible(true)
			cmds = append(cmds, m.settingsPane.Init())

		case KeyTab:
			m.focusedPane = (m.focusedPane + 1) % 3
			m.updateFocusStates()

		case KeyShiftTab:
			m.focusedPane = (m.focusedPane + 2) % 3 // +2 is equivalent to -1 mod 3
			m.updateFocusStates()

		case KeyPane1:
			m.focusedPane = PaneBoard
			m.updateFocusStates()

		case KeyPane2:
			m.focusedPane = PanePlan
			m.updateFocusStates()

		case KeyPane3:
			m.focusedPane = PaneActivity
			m.updateFocusStates()

		case KeyRefresh:
			cmds = append(cmds, m.refresh())

		case KeyComplete:
			if m.focusedPane == PaneBoard {
				cmds = append(cmds, m.completeSelected())
			}

		case KeySkip:
			if m.focusedPane == PaneBoard {
				cmds = append(cmds, m.skipSelected())
			}

		default:
			var cmd tea.Cmd
			switch m.focusedPane {
			case PaneBoard:
				m.boardPane, cmd = m.boardPane.Update(msg)
			case PanePlan:
				m.planPane, cmd = m.planPane.Update(msg)
			case PaneActivity:
				m.activityPane, cmd = m.activityPane.Update(msg)
			}
			cmds = append(cmds, cmd)
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.computeLayout()
		m.settingsPane.SetSize(msg.Width, msg.Height)

	case snapshotMsg:
		if msg.err != nil {
			m.err = msg.err
			break
		}
		m.err = nil
		m.members = msg.members
		m.boardPane.SetSnapshot(msg.tasks, msg.members)
		m.planPane.SetSnapshot(msg.tasks, msg.order, msg.ready)
		m.activityPane.SetEntries(msg.activity)

	case actionMsg:
		m.err = msg.err
		if msg.err == nil {
			m.status = msg.status
		}

	case events.TaskDueEvent, events.ReminderFailedEvent:
		m.activityPane.Notice(msg.(events.Event))
		cmds = append(cmds, waitForEvent(m.eventSub))

	case events.Event:
		// Every other event means stored state changed.
		cmds = append(cmds, m.refresh(), waitForEvent(m.eventSub))

	default:
		// Form-internal messages while the settings overlay is open.
		if m.showSettings {
			cmds = append(cmds, m.updateSettings(msg))
		}
	}

	return m, tea.Batch(cmds...)
}

// updateSettings forwards msg to the settings form and closes the overlay
// once the form has been saved.
func (m *Model) updateSettings(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	m.settingsPane, cmd = m.settingsPane.Update(msg)
	if !m.settingsPane.IsVisible() {
		m.showSettings = false
		if m.settingsPane.Saved() {
			m.status = "Settings saved"
		}
	}
	return cmd
}

// View renders the TUI.
func (m Model) View() string {
	if m.quitting {
		return "Goodbye!\n"
	}

	if m.width == 0 || m.height == 0 {
		return "Initializing..."
	}

	if m.showSettings {
		return m.settingsPane.View()
	}

	rightPane := lipgloss.JoinVertical(lipgloss.Left, m.planPane.View(), m.activityPane.View())
	mainContent := lipgloss.JoinHorizontal(lipgloss.Top, m.boardPane.View(), rightPane)

	return lipgloss.JoinVertical(lipgloss.Left, mainContent, m.statusLine(), HelpView())
}

func (m Model) statusLine() string {
	if m.err != nil {
		return StyleError.Render(m.err.Error())
	}
	return StyleMuted.Render(m.status)
}

// computeLayout calculates pane dimensions and updates all child models.
func (m *Model) computeLayout() {
	leftWidth := (m.width * 55) / 100
	rightWidth := m.width - leftWidth
	availableHeight := m.height - 2 // status line and help bar
	planHeight := (availableHeight * 45) / 100
	activityHeight := availableHeight - planHeight

	m.boardPane.SetSize(leftWidth, availableHeight)
	m.planPane.SetSize(rightWidth, planHeight)
	m.activityPane.SetSize(rightWidth, activityHeight)

	m.updateFocusStates()
}

// updateFocusStates updates the focus state of all panes.
func (m *Model) updateFocusStates() {
	m.boardPane.SetFocused(m.focusedPane == PaneBoard)
	m.planPane.SetFocused(m.focusedPane == PanePlan)
	m.activityPane.SetFocused(m.focusedPane == PaneActivity)
}
