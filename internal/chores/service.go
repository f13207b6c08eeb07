// Package chores is the application layer around the scheduling core. It
// reads household state from the store, runs the pure scheduler operations
// under per-task and per-household locks, persists the result together with
// an activity entry and publishes an event.
package chores

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aristath/chorewheel/internal/events"
	"github.com/aristath/chorewheel/internal/persistence"
	"github.com/aristath/chorewheel/internal/scheduler"
)

var (
	// ErrNotMember is returned when a member id does not belong to the household.
	ErrNotMember = errors.New("member does not belong to household")
	// ErrWrongHousehold is returned when a task is used outside its household.
	ErrWrongHousehold = errors.New("task belongs to another household")
)

// Service runs chore operations against a store.
type Service struct {
	store    persistence.Store
	bus      *events.EventBus
	advancer *scheduler.Advancer
	locks    *scheduler.LockManager
	now      func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithClock replaces time.Now as the source of "now".
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// WithMaxSkipSteps bounds how many skipped occurrences one completion may
// step over.
func WithMaxSkipSteps(n int) Option {
	return func(s *Service) {
		s.advancer = scheduler.NewAdvancer(n)
	}
}

// NewService creates a Service. bus may be nil, in which case no events are
// published.
func NewService(store persistence.Store, bus *events.EventBus, opts ...Option) *Service {
	s := &Service{
		store:    store,
		bus:      bus,
		advancer: scheduler.NewAdvancer(scheduler.DefaultMaxSkipSteps),
		locks:    scheduler.NewLockManager(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CompleteTask records that completedBy finished the task's current
// occurrence. One-off tasks are closed; recurring tasks move to their next
// open occurrence and, with rotation enabled, to the next eligible member.
// Nothing is written when an error is returned.
func (s *Service) CompleteTask(ctx context.Context, taskID scheduler.TaskID, completedBy scheduler.MemberID) (*scheduler.Completion, error) {
	key := scheduler.TaskKey(taskID)
	s.locks.Lock(key)
	defer s.locks.Unlock(key)

	task, err := s.store.GetTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	members, err := s.store.ListMembers(ctx, task.HouseholdID)
	if err != nil {
		return nil, err
	}
	if !hasMember(members, completedBy) {
		return nil, fmt.Errorf("complete task %d by member %d: %w", taskID, completedBy, ErrNotMember)
	}
	eligible := scheduler.EligiblePool(members, nil)
	now := s.now()

	var completion *scheduler.Completion
	_, err = s.store.UpdateTask(ctx, taskID, func(current *scheduler.Task) (*scheduler.Task, *persistence.ActivityEntry, error) {
		c, err := s.advancer.Complete(current, completedBy, now, eligible)
		if err != nil {
			return nil, nil, err
		}
		completion = c
		return c.Task, completionActivity(c, completedBy, members, now), nil
	})
	if err != nil {
		return nil, err
	}

	s.publishCompletion(completion, completedBy, now)
	return completion, nil
}

// SkipOccurrence marks the occurrence on date (YYYY-MM-DD) of a recurring task
// as skipped. Skipping an already skipped date changes nothing.
func (s *Service) SkipOccurrence(ctx context.Context, taskID scheduler.TaskID, date string) (*scheduler.Task, error) {
	return s.updateSkips(ctx, taskID, date, scheduler.Skip, persistence.ActivitySkipped)
}

// RestoreOccurrence removes date from a task's skipped dates. Restoring a date
// that is not skipped changes nothing.
func (s *Service) RestoreOccurrence(ctx context.Context, taskID scheduler.TaskID, date string) (*scheduler.Task, error) {
	return s.updateSkips(ctx, taskID, date, scheduler.Restore, persistence.ActivityRestored)
}

func (s *Service) updateSkips(ctx context.Context, taskID scheduler.TaskID, date string,
	apply func(*scheduler.Task, string) (*scheduler.Task, error), kind persistence.ActivityKind) (*scheduler.Task, error) {
	key := scheduler.TaskKey(taskID)
	s.locks.Lock(key)
	defer s.locks.Unlock(key)

	now := s.now()
	var changed bool
	updated, err := s.store.UpdateTask(ctx, taskID, func(current *scheduler.Task) (*scheduler.Task, *persistence.ActivityEntry, error) {
		next, err := apply(current, date)
		if err != nil {
			return nil, nil, err
		}
		changed = len(next.SkippedDates) != len(current.SkippedDates)
		if !changed {
			return next, nil, nil
		}
		return next, &persistence.ActivityEntry{
			HouseholdID: current.HouseholdID,
			TaskID:      current.ID,
			Kind:        kind,
			Detail:      fmt.Sprintf("%s %s on %s", kind, current.Title, date),
			CreatedAt:   now,
		}, nil
	})
	if err != nil {
		return nil, err
	}

	if changed {
		switch kind {
		case persistence.ActivitySkipped:
			s.publish(events.TopicTask, events.OccurrenceSkippedEvent{
				ID: updated.ID, HouseholdID: updated.HouseholdID, Date: date, Timestamp: now,
			})
		case persistence.ActivityRestored:
			s.publish(events.TopicTask, events.OccurrenceRestoredEvent{
				ID: updated.ID, HouseholdID: updated.HouseholdID, Date: date, Timestamp: now,
			})
		}
	}
	return updated, nil
}

// ValidateRotationConfig checks a rotation configuration against the
// household's current active members.
func (s *Service) ValidateRotationConfig(ctx context.Context, householdID scheduler.HouseholdID, excluded []scheduler.MemberID, requiredPersons int) error {
	members, err := s.store.ListMembers(ctx, householdID)
	if err != nil {
		return err
	}
	return scheduler.ValidateRotationConfig(scheduler.EligiblePool(members, nil), excluded, requiredPersons)
}

// AutoFillRotationSchedule assigns the household's eligible members
// round-robin to the empty slots. Slots that already have an assignee are
// returned unchanged.
func (s *Service) AutoFillRotationSchedule(ctx context.Context, householdID scheduler.HouseholdID, excluded []scheduler.MemberID, slots []scheduler.Slot) ([]scheduler.Slot, error) {
	members, err := s.store.ListMembers(ctx, householdID)
	if err != nil {
		return nil, err
	}
	return scheduler.AutoFillSchedule(scheduler.EligiblePool(members, excluded), slots)
}

// PlanRotation lays out the next count open occurrences of a recurring task,
// starting at its due date, and fills them round-robin starting with the
// member after the current assignee. Without rotation every occurrence stays
// with the current assignee.
func (s *Service) PlanRotation(ctx context.Context, taskID scheduler.TaskID, count int) ([]scheduler.Slot, error) {
	task, err := s.store.GetTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if !task.IsRecurring() {
		return nil, fmt.Errorf("plan rotation for task %d: %w", taskID, scheduler.ErrNotRecurring)
	}
	members, err := s.store.ListMembers(ctx, task.HouseholdID)
	if err != nil {
		return nil, err
	}

	from := s.now()
	if task.DueDate != nil {
		from = *task.DueDate
	}
	slots, err := scheduler.OccurrenceSlots(from, *task.Repeat, task.SkippedDates, count, s.advancer.MaxSkipSteps())
	if err != nil {
		return nil, err
	}
	if !task.EnableRotation {
		for i := range slots {
			slots[i].Assignee = task.Assigned.Primary
		}
		return slots, nil
	}
	if len(slots) > 0 && task.Assigned.Primary != 0 {
		slots[0].Assignee = task.Assigned.Primary
	}

	pool := scheduler.EligiblePool(members, task.ExcludedMembers)
	return scheduler.AutoFillSchedule(rotateAfter(pool, task.Assigned.Primary), slots)
}

// Activity returns the household's most recent activity entries.
func (s *Service) Activity(ctx context.Context, householdID scheduler.HouseholdID, limit int) ([]persistence.ActivityEntry, error) {
	return s.store.ListActivity(ctx, householdID, limit)
}

// Households lists every household.
func (s *Service) Households(ctx context.Context) ([]persistence.Household, error) {
	return s.store.ListHouseholds(ctx)
}

// Members lists a household's members, active or not.
func (s *Service) Members(ctx context.Context, householdID scheduler.HouseholdID) ([]scheduler.Member, error) {
	return s.store.ListMembers(ctx, householdID)
}

// Tasks lists a household's tasks ordered by id.
func (s *Service) Tasks(ctx context.Context, householdID scheduler.HouseholdID) ([]*scheduler.Task, error) {
	return s.store.ListTasks(ctx, householdID)
}

// DeleteTask removes a task together with every dependency edge touching it.
func (s *Service) DeleteTask(ctx context.Context, householdID scheduler.HouseholdID, taskID scheduler.TaskID) error {
	task, err := s.store.GetTask(ctx, taskID)
	if err != nil {
		return err
	}
	if task.HouseholdID != householdID {
		return fmt.Errorf("task %d in household %d: %w", taskID, householdID, ErrWrongHousehold)
	}

	key := scheduler.HouseholdKey(householdID)
	s.locks.Lock(key)
	defer s.locks.Unlock(key)

	return s.store.DeleteTask(ctx, taskID, &persistence.ActivityEntry{
		HouseholdID: householdID,
		TaskID:      taskID,
		Kind:        persistence.ActivityDeleted,
		Detail:      fmt.Sprintf("deleted %s", task.Title),
		CreatedAt:   s.now(),
	})
}

func (s *Service) publishCompletion(c *scheduler.Completion, completedBy scheduler.MemberID, now time.Time) {
	task := c.Task
	if c.Terminal {
		s.publish(events.TopicTask, events.TaskCompletedEvent{
			ID:          task.ID,
			HouseholdID: task.HouseholdID,
			Title:       task.Title,
			CompletedBy: completedBy,
			Timestamp:   now,
		})
		return
	}
	s.publish(events.TopicTask, events.TaskAdvancedEvent{
		ID:               task.ID,
		HouseholdID:      task.HouseholdID,
		Title:            task.Title,
		CompletedBy:      completedBy,
		PreviousDue:      c.PreviousDue,
		NextDue:          task.DueDate,
		PreviousAssignee: c.PreviousAssignee,
		NextAssignee:     task.Assigned.Primary,
		Rotated:          c.Rotated,
		StepsSkipped:     c.StepsSkipped,
		Timestamp:        now,
	})
}

func (s *Service) publish(topic string, event events.Event) {
	if s.bus != nil {
		s.bus.Publish(topic, event)
	}
}

func completionActivity(c *scheduler.Completion, completedBy scheduler.MemberID, members []scheduler.Member, now time.Time) *persistence.ActivityEntry {
	task := c.Task
	entry := &persistence.ActivityEntry{
		HouseholdID: task.HouseholdID,
		TaskID:      task.ID,
		MemberID:    completedBy,
		CreatedAt:   now,
	}

	switch {
	case c.Terminal:
		entry.Kind = persistence.ActivityCompleted
		entry.Detail = fmt.Sprintf("%s completed %s", memberName(members, completedBy), task.Title)
	case c.Rotated:
		entry.Kind = persistence.ActivityRotated
		entry.Detail = fmt.Sprintf("%s completed %s; next due %s, rotated to %s",
			memberName(members, completedBy), task.Title, formatDue(task.DueDate), memberName(members, task.Assigned.Primary))
	default:
		entry.Kind = persistence.ActivityAdvanced
		entry.Detail = fmt.Sprintf("%s completed %s; next due %s",
			memberName(members, completedBy), task.Title, formatDue(task.DueDate))
	}
	return entry
}

func formatDue(t *time.Time) string {
	if t == nil {
		return "unscheduled"
	}
	return scheduler.CalendarDate(*t)
}

func hasMember(members []scheduler.Member, id scheduler.MemberID) bool {
	for _, m := range members {
		if m.ID == id {
			return true
		}
	}
	return false
}

func memberName(members []scheduler.Member, id scheduler.MemberID) string {
	for _, m := range members {
		if m.ID == id {
			return m.Name
		}
	}
	return fmt.Sprintf("member %d", id)
}

// rotateAfter reorders pool so it starts with the member following current.
func rotateAfter(pool []scheduler.MemberID, current scheduler.MemberID) []scheduler.MemberID {
	for i, id := range pool {
		if id == current {
			out := make([]scheduler.MemberID, 0, len(pool))
			out = append(out, pool[i+1:]...)
			return append(out, pool[:i+1]...)
		}
	}
	return pool
}
