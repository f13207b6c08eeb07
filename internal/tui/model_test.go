package tui

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/aristath/chorewheel/internal/chores"
	"github.com/aristath/chorewheel/internal/config"
	"github.com/aristath/chorewheel/internal/events"
	"github.com/aristath/chorewheel/internal/persistence"
	"github.com/aristath/chorewheel/internal/scheduler"
)

type testBoard struct {
	model Model
	svc   *chores.Service
	store *persistence.SQLiteStore
	tasks []*scheduler.Task
}

func newTestBoard(t *testing.T) *testBoard {
	t.Helper()
	ctx := context.Background()

	store, err := persistence.NewMemoryStore(ctx)
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	bus := events.NewEventBus()
	t.Cleanup(bus.Close)
	svc := chores.NewService(store, bus)

	hh, err := svc.CreateHousehold(ctx, "flat")
	if err != nil {
		t.Fatalf("failed to create household: %v", err)
	}
	for _, name := range []string{"ana", "ben"} {
		if _, err := svc.AddMember(ctx, chores.MemberInput{HouseholdID: hh.ID, Name: name}); err != nil {
			t.Fatalf("failed to add member: %v", err)
		}
	}

	due := time.Now().UTC().Add(48 * time.Hour)
	var tasks []*scheduler.Task
	for _, in := range []chores.TaskInput{
		{Title: "Take out bins", DueDate: &due, RepeatInterval: 1, RepeatUnit: "weeks", EnableRotation: true},
		{Title: "Fix tap"},
	} {
		in.HouseholdID = hh.ID
		task, err := svc.CreateTask(ctx, in)
		if err != nil {
			t.Fatalf("failed to create task: %v", err)
		}
		tasks = append(tasks, task)
	}

	dir := t.TempDir()
	cfg := config.DefaultConfig()
	m := New(bus, svc, hh.ID, cfg, filepath.Join(dir, "global.json"), filepath.Join(dir, "project.json"))

	b := &testBoard{model: m, svc: svc, store: store, tasks: tasks}
	b.send(t, tea.WindowSizeMsg{Width: 140, Height: 40})
	b.run(t, m.refresh())
	return b
}

func (b *testBoard) send(t *testing.T, msg tea.Msg) tea.Cmd {
	t.Helper()
	next, cmd := b.model.Update(msg)
	m, ok := next.(Model)
	if !ok {
		t.Fatalf("Update returned %T, want Model", next)
	}
	b.model = m
	return cmd
}

// run executes cmd and feeds the resulting messages back into the model.
// Commands that wait on the event bus must not be passed here.
func (b *testBoard) run(t *testing.T, cmd tea.Cmd) {
	t.Helper()
	if cmd == nil {
		return
	}
	msg := cmd()
	if batch, ok := msg.(tea.BatchMsg); ok {
		for _, c := range batch {
			b.run(t, c)
		}
		return
	}
	if msg != nil {
		b.send(t, msg)
	}
}

func key(s string) tea.KeyMsg {
	switch s {
	case KeyTab:
		return tea.KeyMsg{Type: tea.KeyTab}
	case KeyShiftTab:
		return tea.KeyMsg{Type: tea.KeyShiftTab}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestModelShowsSnapshot(t *testing.T) {
	b := newTestBoard(t)

	view := b.model.View()
	for _, want := range []string{"Take out bins", "Fix tap", "every 1 weeks", "created Fix tap"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q", want)
		}
	}
	if b.model.err != nil {
		t.Errorf("unexpected error: %v", b.model.err)
	}
}

func TestModelFocusCycling(t *testing.T) {
	b := newTestBoard(t)

	tests := []struct {
		key  string
		want PaneID
	}{
		{KeyTab, PanePlan},
		{KeyTab, PaneActivity},
		{KeyTab, PaneBoard},
		{KeyShiftTab, PaneActivity},
		{KeyPane2, PanePlan},
		{KeyPane1, PaneBoard},
	}

	for _, tt := range tests {
		b.send(t, key(tt.key))
		if b.model.focusedPane != tt.want {
			t.Fatalf("after %q focus = %d, want %d", tt.key, b.model.focusedPane, tt.want)
		}
	}
}

func TestModelCompleteSelectedAdvancesTask(t *testing.T) {
	b := newTestBoard(t)
	bins := b.tasks[0]

	b.run(t, b.send(t, key(KeyComplete)))
	if b.model.err != nil {
		t.Fatalf("complete failed: %v", b.model.err)
	}

	got, err := b.store.GetTask(context.Background(), bins.ID)
	if err != nil {
		t.Fatalf("failed to read task: %v", err)
	}
	if !got.DueDate.Equal(bins.DueDate.AddDate(0, 0, 7)) {
		t.Errorf("due = %v, want one week later", got.DueDate)
	}
	if got.Assigned.Primary == bins.Assigned.Primary {
		t.Errorf("assignee did not rotate from %d", bins.Assigned.Primary)
	}
	if !strings.Contains(b.model.status, "next due") {
		t.Errorf("status = %q", b.model.status)
	}
}

func TestModelSkipOneOffReportsError(t *testing.T) {
	b := newTestBoard(t)

	b.send(t, key(KeyJ))
	if sel := b.model.boardPane.Selected(); sel == nil || sel.ID != b.tasks[1].ID {
		t.Fatalf("selection did not move to the second task")
	}

	b.run(t, b.send(t, key(KeySkip)))
	if b.model.err == nil {
		t.Fatal("expected an error skipping an undated one-off task")
	}
	if !strings.Contains(b.model.View(), "no due date") {
		t.Error("error not shown in the status line")
	}
}

func TestModelReminderNotice(t *testing.T) {
	b := newTestBoard(t)

	cmd := b.send(t, events.TaskDueEvent{
		ID:        b.tasks[0].ID,
		Title:     "Take out bins",
		DueDate:   *b.tasks[0].DueDate,
		Timestamp: time.Now(),
	})
	if cmd == nil {
		t.Error("expected the model to keep listening for events")
	}
	if !strings.Contains(b.model.activityPane.viewport.View(), "Take out bins due") {
		t.Error("reminder notice not shown")
	}
}

func TestSettingsPaneSavesValidConfig(t *testing.T) {
	dir := t.TempDir()
	cfg := config.DefaultConfig()
	m := NewSettingsPaneModel(cfg, filepath.Join(dir, "global.json"), filepath.Join(dir, "project.json"))
	m.SetVisible(true)

	m.maxSkipSteps = "30"
	m.lookaheadHours = "6"
	m.schedule = "@hourly"
	m.save()
	if m.err != nil {
		t.Fatalf("save failed: %v", m.err)
	}
	if cfg.Scheduler.MaxSkipSteps != 30 || cfg.Reminders.LookaheadHours != 6 {
		t.Errorf("config not updated: %+v", cfg)
	}

	loaded, err := config.Load(filepath.Join(dir, "global.json"), "")
	if err != nil {
		t.Fatalf("failed to reload: %v", err)
	}
	if loaded.Reminders.Schedule != "@hourly" {
		t.Errorf("schedule = %q, want @hourly", loaded.Reminders.Schedule)
	}

	m.schedule = "every tuesday"
	m.save()
	if m.err == nil {
		t.Fatal("expected invalid cron schedule to be rejected")
	}
	if cfg.Reminders.Schedule != "@hourly" {
		t.Errorf("rejected edit leaked into live config: %q", cfg.Reminders.Schedule)
	}
}
