package persistence

import (
	"context"
	"errors"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/aristath/chorewheel/internal/scheduler"
)

// testStore creates an in-memory store for testing and registers cleanup.
func testStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewMemoryStore(context.Background())
	if err != nil {
		t.Fatalf("failed to create test store: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// seedHousehold creates a household with the given member names.
func seedHousehold(t *testing.T, store *SQLiteStore, names ...string) (scheduler.HouseholdID, []scheduler.MemberID) {
	t.Helper()
	ctx := context.Background()

	h := &Household{Name: "home"}
	if err := store.SaveHousehold(ctx, h); err != nil {
		t.Fatalf("failed to save household: %v", err)
	}

	var ids []scheduler.MemberID
	for _, name := range names {
		m := &scheduler.Member{HouseholdID: h.ID, Name: name, Active: true}
		if err := store.SaveMember(ctx, m); err != nil {
			t.Fatalf("failed to save member %s: %v", name, err)
		}
		ids = append(ids, m.ID)
	}
	return h.ID, ids
}

func seedTask(t *testing.T, store *SQLiteStore, householdID scheduler.HouseholdID, title string) *scheduler.Task {
	t.Helper()
	task := &scheduler.Task{HouseholdID: householdID, Title: title, RequiredPersons: 1}
	if err := store.SaveTask(context.Background(), task, nil); err != nil {
		t.Fatalf("failed to save task %s: %v", title, err)
	}
	return task
}

func TestSaveAndGetTask(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()
	hh, members := seedHousehold(t, store, "ana", "ben", "cy")

	due := time.Date(2026, 1, 10, 9, 0, 0, 0, time.UTC)
	task := &scheduler.Task{
		HouseholdID:     hh,
		Title:           "Take out trash",
		DueDate:         &due,
		Repeat:          &scheduler.Rule{Interval: 1, Unit: scheduler.UnitWeeks},
		EnableRotation:  true,
		Assigned:        scheduler.Assignment{Primary: members[0], Additional: []scheduler.MemberID{members[2]}},
		RequiredPersons: 1,
		ExcludedMembers: []scheduler.MemberID{members[1]},
		SkippedDates:    []string{"2026-01-17", "2026-01-24"},
	}

	if err := store.SaveTask(ctx, task, nil); err != nil {
		t.Fatalf("failed to save task: %v", err)
	}
	if task.ID == 0 {
		t.Fatal("SaveTask should assign an ID")
	}

	got, err := store.GetTask(ctx, task.ID)
	if err != nil {
		t.Fatalf("failed to get task: %v", err)
	}

	if got.Title != task.Title {
		t.Errorf("Title mismatch: got %q, want %q", got.Title, task.Title)
	}
	if got.DueDate == nil || !got.DueDate.Equal(due) {
		t.Errorf("DueDate mismatch: got %v, want %v", got.DueDate, due)
	}
	if got.Repeat == nil || *got.Repeat != *task.Repeat {
		t.Errorf("Repeat mismatch: got %v, want %v", got.Repeat, task.Repeat)
	}
	if !got.EnableRotation {
		t.Error("EnableRotation should round-trip")
	}
	if !reflect.DeepEqual(got.Assigned, task.Assigned) {
		t.Errorf("Assigned mismatch: got %+v, want %+v", got.Assigned, task.Assigned)
	}
	if !reflect.DeepEqual(got.ExcludedMembers, task.ExcludedMembers) {
		t.Errorf("ExcludedMembers mismatch: got %v, want %v", got.ExcludedMembers, task.ExcludedMembers)
	}
	if !reflect.DeepEqual(got.SkippedDates, task.SkippedDates) {
		t.Errorf("SkippedDates mismatch: got %v, want %v", got.SkippedDates, task.SkippedDates)
	}
	if got.IsCompleted || got.CompletedBy != nil || got.CompletedAt != nil {
		t.Errorf("completion fields should be empty, got %+v", got)
	}
}

func TestSaveTaskOneOffRoundTrip(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()
	hh, members := seedHousehold(t, store, "ana")

	task := seedTask(t, store, hh, "Fix shelf")
	done := time.Date(2026, 3, 1, 18, 30, 0, 0, time.UTC)
	task.IsCompleted = true
	task.CompletedBy = &members[0]
	task.CompletedAt = &done

	if err := store.SaveTask(ctx, task, nil); err != nil {
		t.Fatalf("failed to update task: %v", err)
	}

	got, err := store.GetTask(ctx, task.ID)
	if err != nil {
		t.Fatalf("failed to get task: %v", err)
	}
	if got.Repeat != nil || got.DueDate != nil {
		t.Errorf("one-off task without due date should stay that way, got %+v", got)
	}
	if !got.IsCompleted || got.CompletedBy == nil || *got.CompletedBy != members[0] {
		t.Errorf("completion not persisted: %+v", got)
	}
	if got.CompletedAt == nil || !got.CompletedAt.Equal(done) {
		t.Errorf("CompletedAt mismatch: got %v, want %v", got.CompletedAt, done)
	}
}

func TestGetTaskNotFound(t *testing.T) {
	store := testStore(t)

	_, err := store.GetTask(context.Background(), 404)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestListTasksScopedToHousehold(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	hh1, _ := seedHousehold(t, store)
	hh2, _ := seedHousehold(t, store)
	seedTask(t, store, hh1, "a")
	seedTask(t, store, hh1, "b")
	seedTask(t, store, hh2, "c")

	tasks, err := store.ListTasks(ctx, hh1)
	if err != nil {
		t.Fatalf("failed to list tasks: %v", err)
	}
	if len(tasks) != 2 {
		t.Fatalf("expected 2 tasks, got %d", len(tasks))
	}
	if tasks[0].Title != "a" || tasks[1].Title != "b" {
		t.Errorf("tasks should be ordered by ID, got %q, %q", tasks[0].Title, tasks[1].Title)
	}
}

func TestUpdateTaskWritesActivityAtomically(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()
	hh, members := seedHousehold(t, store, "ana")
	task := seedTask(t, store, hh, "Water plants")

	updated, err := store.UpdateTask(ctx, task.ID, func(current *scheduler.Task) (*scheduler.Task, *ActivityEntry, error) {
		next := current.Clone()
		next.Title = "Water all plants"
		return next, &ActivityEntry{
			HouseholdID: hh,
			TaskID:      current.ID,
			MemberID:    members[0],
			Kind:        ActivityCompleted,
			Detail:      "done",
		}, nil
	})
	if err != nil {
		t.Fatalf("UpdateTask failed: %v", err)
	}
	if updated.Title != "Water all plants" {
		t.Errorf("returned task not updated: %q", updated.Title)
	}

	entries, err := store.ListActivity(ctx, hh, 0)
	if err != nil {
		t.Fatalf("failed to list activity: %v", err)
	}
	if len(entries) != 1 || entries[0].Kind != ActivityCompleted || entries[0].TaskID != task.ID {
		t.Fatalf("expected one completed entry, got %+v", entries)
	}
	if entries[0].ID == "" {
		t.Error("activity entry should receive an ID")
	}
}

func TestUpdateTaskRollsBackOnError(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()
	hh, _ := seedHousehold(t, store)
	task := seedTask(t, store, hh, "Vacuum")

	boom := errors.New("boom")
	_, err := store.UpdateTask(ctx, task.ID, func(current *scheduler.Task) (*scheduler.Task, *ActivityEntry, error) {
		return nil, nil, boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected mutation error, got %v", err)
	}

	got, err := store.GetTask(ctx, task.ID)
	if err != nil {
		t.Fatalf("failed to get task: %v", err)
	}
	if got.Title != "Vacuum" {
		t.Errorf("task should be unchanged, got %q", got.Title)
	}
}

func TestUpdateTaskRejectsIdentityChange(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()
	hh, _ := seedHousehold(t, store)
	task := seedTask(t, store, hh, "Dust")

	_, err := store.UpdateTask(ctx, task.ID, func(current *scheduler.Task) (*scheduler.Task, *ActivityEntry, error) {
		next := current.Clone()
		next.ID = current.ID + 100
		return next, nil, nil
	})
	if err == nil {
		t.Fatal("expected error when mutation changes the task ID")
	}
}

func TestUpdateTaskNotFound(t *testing.T) {
	store := testStore(t)

	_, err := store.UpdateTask(context.Background(), 99, func(current *scheduler.Task) (*scheduler.Task, *ActivityEntry, error) {
		return current, nil, nil
	})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDeleteTaskCascadesEdges(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()
	hh, _ := seedHousehold(t, store)
	a := seedTask(t, store, hh, "a")
	b := seedTask(t, store, hh, "b")

	if _, err := store.UpdateGraph(ctx, hh, func(g *scheduler.DependencyGraph) (*ActivityEntry, error) {
		return nil, g.AddEdge(a.ID, b.ID)
	}); err != nil {
		t.Fatalf("failed to link: %v", err)
	}

	if err := store.DeleteTask(ctx, a.ID, nil); err != nil {
		t.Fatalf("failed to delete task: %v", err)
	}
	if err := store.DeleteTask(ctx, a.ID, nil); !errors.Is(err, ErrNotFound) {
		t.Errorf("second delete should be ErrNotFound, got %v", err)
	}

	graph, err := store.LoadGraph(ctx, hh)
	if err != nil {
		t.Fatalf("failed to load graph: %v", err)
	}
	if len(graph.Edges()) != 0 {
		t.Errorf("edges should be removed with the task, got %v", graph.Edges())
	}
	if graph.HasTask(a.ID) || !graph.HasTask(b.ID) {
		t.Errorf("graph tasks mismatch: %v", graph.Tasks())
	}
}

func TestUpdateGraphPersistsDiff(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()
	hh, _ := seedHousehold(t, store)
	a := seedTask(t, store, hh, "a")
	b := seedTask(t, store, hh, "b")
	c := seedTask(t, store, hh, "c")

	_, err := store.UpdateGraph(ctx, hh, func(g *scheduler.DependencyGraph) (*ActivityEntry, error) {
		if err := g.AddEdge(a.ID, b.ID); err != nil {
			return nil, err
		}
		return &ActivityEntry{HouseholdID: hh, TaskID: b.ID, Kind: ActivityDependencyLinked}, g.AddEdge(b.ID, c.ID)
	})
	if err != nil {
		t.Fatalf("UpdateGraph failed: %v", err)
	}

	_, err = store.UpdateGraph(ctx, hh, func(g *scheduler.DependencyGraph) (*ActivityEntry, error) {
		g.RemoveEdge(a.ID, b.ID)
		return nil, nil
	})
	if err != nil {
		t.Fatalf("UpdateGraph remove failed: %v", err)
	}

	graph, err := store.LoadGraph(ctx, hh)
	if err != nil {
		t.Fatalf("failed to load graph: %v", err)
	}
	want := []scheduler.Edge{{Prerequisite: b.ID, Dependent: c.ID}}
	if !reflect.DeepEqual(graph.Edges(), want) {
		t.Errorf("edges = %v, want %v", graph.Edges(), want)
	}

	entries, err := store.ListActivity(ctx, hh, 10)
	if err != nil {
		t.Fatalf("failed to list activity: %v", err)
	}
	if len(entries) != 1 || entries[0].Kind != ActivityDependencyLinked {
		t.Errorf("expected one dependency_linked entry, got %+v", entries)
	}
}

func TestUpdateGraphRejectsCycleWithoutWriting(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()
	hh, _ := seedHousehold(t, store)
	a := seedTask(t, store, hh, "a")
	b := seedTask(t, store, hh, "b")

	if _, err := store.UpdateGraph(ctx, hh, func(g *scheduler.DependencyGraph) (*ActivityEntry, error) {
		return nil, g.AddEdge(a.ID, b.ID)
	}); err != nil {
		t.Fatalf("failed to link: %v", err)
	}

	_, err := store.UpdateGraph(ctx, hh, func(g *scheduler.DependencyGraph) (*ActivityEntry, error) {
		return nil, g.AddEdge(b.ID, a.ID)
	})
	if !errors.Is(err, scheduler.ErrCycleDetected) {
		t.Fatalf("expected ErrCycleDetected, got %v", err)
	}

	graph, err := store.LoadGraph(ctx, hh)
	if err != nil {
		t.Fatalf("failed to load graph: %v", err)
	}
	if len(graph.Edges()) != 1 {
		t.Errorf("cycle attempt must not be persisted, edges = %v", graph.Edges())
	}
}

func TestMembersRoundTrip(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()
	hh, ids := seedHousehold(t, store, "ana", "ben")

	ben := scheduler.Member{ID: ids[1], HouseholdID: hh, Name: "ben", Active: false}
	if err := store.SaveMember(ctx, &ben); err != nil {
		t.Fatalf("failed to update member: %v", err)
	}

	members, err := store.ListMembers(ctx, hh)
	if err != nil {
		t.Fatalf("failed to list members: %v", err)
	}
	if len(members) != 2 {
		t.Fatalf("expected 2 members, got %d", len(members))
	}
	if !members[0].Active || members[1].Active {
		t.Errorf("active flags not persisted: %+v", members)
	}

	households, err := store.ListHouseholds(ctx)
	if err != nil {
		t.Fatalf("failed to list households: %v", err)
	}
	if len(households) != 1 || households[0].ID != hh {
		t.Errorf("unexpected households: %+v", households)
	}
}

func TestListActivityNewestFirst(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()
	hh, _ := seedHousehold(t, store)

	base := time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)
	for i, kind := range []ActivityKind{ActivityCreated, ActivitySkipped, ActivityRestored} {
		entry := &ActivityEntry{HouseholdID: hh, Kind: kind, CreatedAt: base.Add(time.Duration(i) * time.Minute)}
		if err := store.AppendActivity(ctx, entry); err != nil {
			t.Fatalf("failed to append activity: %v", err)
		}
	}

	entries, err := store.ListActivity(ctx, hh, 2)
	if err != nil {
		t.Fatalf("failed to list activity: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].Kind != ActivityRestored || entries[1].Kind != ActivitySkipped {
		t.Errorf("unexpected order: %s, %s", entries[0].Kind, entries[1].Kind)
	}
	if !entries[0].CreatedAt.Equal(base.Add(2 * time.Minute)) {
		t.Errorf("CreatedAt mismatch: %v", entries[0].CreatedAt)
	}
}

func TestSaveTaskWritesActivityAtomically(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()
	hh, _ := seedHousehold(t, store)

	task := &scheduler.Task{HouseholdID: hh, Title: "mop", RequiredPersons: 1}
	entry := &ActivityEntry{HouseholdID: hh, Kind: ActivityCreated, Detail: "created mop"}
	if err := store.SaveTask(ctx, task, entry); err != nil {
		t.Fatalf("failed to save task: %v", err)
	}
	if entry.TaskID != task.ID {
		t.Errorf("entry TaskID = %d, want %d", entry.TaskID, task.ID)
	}
	entries, err := store.ListActivity(ctx, hh, 0)
	if err != nil {
		t.Fatalf("failed to list activity: %v", err)
	}
	if len(entries) != 1 || entries[0].TaskID != task.ID {
		t.Fatalf("expected one created entry for task %d, got %+v", task.ID, entries)
	}

	// An entry for a missing household violates its foreign key, so the
	// task insert must roll back with it.
	orphan := &scheduler.Task{HouseholdID: hh, Title: "dust", RequiredPersons: 1}
	bad := &ActivityEntry{HouseholdID: 999, Kind: ActivityCreated}
	if err := store.SaveTask(ctx, orphan, bad); err == nil {
		t.Fatal("expected activity insert to fail")
	}
	if orphan.ID != 0 {
		t.Errorf("failed insert should leave ID unset, got %d", orphan.ID)
	}
	tasks, err := store.ListTasks(ctx, hh)
	if err != nil {
		t.Fatalf("failed to list tasks: %v", err)
	}
	if len(tasks) != 1 {
		t.Errorf("expected the failed insert to roll back, got %d tasks", len(tasks))
	}
}

func TestDeleteTaskWritesActivityAtomically(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()
	hh, _ := seedHousehold(t, store)
	a := seedTask(t, store, hh, "a")

	bad := &ActivityEntry{HouseholdID: 999, TaskID: a.ID, Kind: ActivityDeleted}
	if err := store.DeleteTask(ctx, a.ID, bad); err == nil {
		t.Fatal("expected activity insert to fail")
	}
	if _, err := store.GetTask(ctx, a.ID); err != nil {
		t.Fatalf("task should survive a failed delete: %v", err)
	}

	entry := &ActivityEntry{HouseholdID: hh, TaskID: a.ID, Kind: ActivityDeleted, Detail: "deleted a"}
	if err := store.DeleteTask(ctx, a.ID, entry); err != nil {
		t.Fatalf("failed to delete task: %v", err)
	}
	if _, err := store.GetTask(ctx, a.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
	entries, err := store.ListActivity(ctx, hh, 0)
	if err != nil {
		t.Fatalf("failed to list activity: %v", err)
	}
	if len(entries) != 1 || entries[0].Kind != ActivityDeleted {
		t.Errorf("expected one deleted entry, got %+v", entries)
	}
}

func TestForeignKeyEnforced(t *testing.T) {
	store := testStore(t)

	task := &scheduler.Task{HouseholdID: 777, Title: "orphan"}
	if err := store.SaveTask(context.Background(), task, nil); err == nil {
		t.Fatal("expected error when inserting a task for a non-existent household")
	}
}

func TestFileStorePersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "chorewheel.db")

	store, err := NewSQLiteStore(ctx, path)
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	h := &Household{Name: "flat"}
	if err := store.SaveHousehold(ctx, h); err != nil {
		t.Fatalf("failed to save household: %v", err)
	}
	store.Close()

	reopened, err := NewSQLiteStore(ctx, path)
	if err != nil {
		t.Fatalf("failed to reopen store: %v", err)
	}
	defer reopened.Close()

	households, err := reopened.ListHouseholds(ctx)
	if err != nil {
		t.Fatalf("failed to list households: %v", err)
	}
	if len(households) != 1 || households[0].Name != "flat" {
		t.Errorf("household not persisted: %+v", households)
	}
}
