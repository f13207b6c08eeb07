package scheduler

import (
	"fmt"
	"time"
)

// DefaultMaxSkipSteps bounds how many consecutive skipped occurrences the
// advancer steps over before giving up.
const DefaultMaxSkipSteps = 365

// Completion is the outcome of completing a task.
type Completion struct {
	Task *Task

	// Terminal is true when a one-off task was closed.
	Terminal bool

	// Rotated is true when the primary assignee changed.
	Rotated bool

	PreviousDue      *time.Time
	PreviousAssignee MemberID

	// StepsSkipped counts occurrences stepped over because they were skipped.
	StepsSkipped int
}

// Advancer applies completion events to tasks.
type Advancer struct {
	maxSkipSteps int
}

// NewAdvancer creates an Advancer. maxSkipSteps <= 0 selects DefaultMaxSkipSteps.
func NewAdvancer(maxSkipSteps int) *Advancer {
	if maxSkipSteps <= 0 {
		maxSkipSteps = DefaultMaxSkipSteps
	}
	return &Advancer{maxSkipSteps: maxSkipSteps}
}

// MaxSkipSteps returns the configured skip-stepping bound.
func (a *Advancer) MaxSkipSteps() int {
	return a.maxSkipSteps
}

// Complete records that completedBy finished the task's current occurrence.
//
// One-off tasks become completed and terminal. Recurring tasks are re-armed:
// the due date moves one rule step past the previous due date (stepping over
// skipped dates) and, with rotation enabled, the primary assignee moves to the
// next member of eligible. Recurring tasks are never left completed.
//
// The input task is never modified. On error nothing about the task changes.
func (a *Advancer) Complete(task *Task, completedBy MemberID, now time.Time, eligible []MemberID) (*Completion, error) {
	if task.IsCompleted {
		return nil, fmt.Errorf("complete task %d: %w", task.ID, ErrAlreadyCompleted)
	}

	updated := task.Clone()
	result := &Completion{
		Task:             updated,
		PreviousAssignee: task.Assigned.Primary,
	}
	if task.DueDate != nil {
		prev := *task.DueDate
		result.PreviousDue = &prev
	}

	if !task.IsRecurring() {
		by := completedBy
		at := now
		updated.IsCompleted = true
		updated.CompletedBy = &by
		updated.CompletedAt = &at
		result.Terminal = true
		return result, nil
	}

	// A recurring task without a due date anchors its first step at now.
	anchor := now
	if task.DueDate != nil {
		anchor = *task.DueDate
	}

	next, steps, err := a.nextOpenOccurrence(updated, anchor)
	if err != nil {
		return nil, fmt.Errorf("advance task %d: %w", task.ID, err)
	}

	if task.EnableRotation {
		assignee, err := NextAssignee(eligible, task.ExcludedMembers, task.Assigned.Primary)
		if err != nil {
			return nil, fmt.Errorf("rotate task %d: %w", task.ID, err)
		}
		updated.Assigned.Primary = assignee
		result.Rotated = assignee != task.Assigned.Primary
	}

	updated.DueDate = &next
	updated.IsCompleted = false
	updated.CompletedBy = nil
	updated.CompletedAt = nil
	result.StepsSkipped = steps
	return result, nil
}

// nextOpenOccurrence returns the first rule step after anchor whose calendar
// date is not skipped, along with how many skipped dates were stepped over.
func (a *Advancer) nextOpenOccurrence(task *Task, anchor time.Time) (time.Time, int, error) {
	candidate, err := task.Repeat.Next(anchor)
	if err != nil {
		return time.Time{}, 0, err
	}

	steps := 0
	for IsSkipped(task, CalendarDate(candidate)) {
		steps++
		if steps > a.maxSkipSteps {
			return time.Time{}, steps, fmt.Errorf("%w: more than %d consecutive skipped occurrences after %s",
				ErrRecurrenceExhausted, a.maxSkipSteps, CalendarDate(anchor))
		}
		if candidate, err = task.Repeat.Next(candidate); err != nil {
			return time.Time{}, steps, err
		}
	}
	return candidate, steps, nil
}
