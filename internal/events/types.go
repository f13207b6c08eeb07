package events

import (
	"time"

	"github.com/aristath/chorewheel/internal/scheduler"
)

// Event is the base interface for all events.
type Event interface {
	EventType() string
	TaskID() scheduler.TaskID
}

// Topic constants
const (
	TopicTask       = "task"
	TopicDependency = "dependency"
	TopicReminder   = "reminder"
)

// Event type constants
const (
	EventTypeTaskCompleted       = "task.completed"
	EventTypeTaskAdvanced        = "task.advanced"
	EventTypeOccurrenceSkipped   = "occurrence.skipped"
	EventTypeOccurrenceRestored  = "occurrence.restored"
	EventTypeDependencyLinked    = "dependency.linked"
	EventTypeDependencyUnlinked  = "dependency.unlinked"
	EventTypeTaskDue             = "reminder.due"
	EventTypeReminderFailed      = "reminder.failed"
)

// TaskCompletedEvent is published when a one-off task is closed.
type TaskCompletedEvent struct {
	ID          scheduler.TaskID
	HouseholdID scheduler.HouseholdID
	Title       string
	CompletedBy scheduler.MemberID
	Timestamp   time.Time
}

func (e TaskCompletedEvent) EventType() string        { return EventTypeTaskCompleted }
func (e TaskCompletedEvent) TaskID() scheduler.TaskID { return e.ID }

// TaskAdvancedEvent is published when a recurring task moves to its next
// occurrence.
type TaskAdvancedEvent struct {
	ID               scheduler.TaskID
	HouseholdID      scheduler.HouseholdID
	Title            string
	CompletedBy      scheduler.MemberID
	PreviousDue      *time.Time
	NextDue          *time.Time
	PreviousAssignee scheduler.MemberID
	NextAssignee     scheduler.MemberID
	Rotated          bool
	StepsSkipped     int
	Timestamp        time.Time
}

func (e TaskAdvancedEvent) EventType() string        { return EventTypeTaskAdvanced }
func (e TaskAdvancedEvent) TaskID() scheduler.TaskID { return e.ID }

// OccurrenceSkippedEvent is published when a date is added to a task's skip list.
type OccurrenceSkippedEvent struct {
	ID          scheduler.TaskID
	HouseholdID scheduler.HouseholdID
	Date        string
	Timestamp   time.Time
}

func (e OccurrenceSkippedEvent) EventType() string        { return EventTypeOccurrenceSkipped }
func (e OccurrenceSkippedEvent) TaskID() scheduler.TaskID { return e.ID }

// OccurrenceRestoredEvent is published when a skipped date is restored.
type OccurrenceRestoredEvent struct {
	ID          scheduler.TaskID
	HouseholdID scheduler.HouseholdID
	Date        string
	Timestamp   time.Time
}

func (e OccurrenceRestoredEvent) EventType() string        { return EventTypeOccurrenceRestored }
func (e OccurrenceRestoredEvent) TaskID() scheduler.TaskID { return e.ID }

// DependencyLinkedEvent is published when an edge is added. TaskID reports
// the dependent.
type DependencyLinkedEvent struct {
	HouseholdID  scheduler.HouseholdID
	Prerequisite scheduler.TaskID
	Dependent    scheduler.TaskID
	Timestamp    time.Time
}

func (e DependencyLinkedEvent) EventType() string        { return EventTypeDependencyLinked }
func (e DependencyLinkedEvent) TaskID() scheduler.TaskID { return e.Dependent }

// DependencyUnlinkedEvent is published when an edge is removed.
type DependencyUnlinkedEvent struct {
	HouseholdID  scheduler.HouseholdID
	Prerequisite scheduler.TaskID
	Dependent    scheduler.TaskID
	Timestamp    time.Time
}

func (e DependencyUnlinkedEvent) EventType() string        { return EventTypeDependencyUnlinked }
func (e DependencyUnlinkedEvent) TaskID() scheduler.TaskID { return e.Dependent }

// TaskDueEvent is published by the reminder sweep for each task due inside
// the lookahead window.
type TaskDueEvent struct {
	ID          scheduler.TaskID
	HouseholdID scheduler.HouseholdID
	Title       string
	Assignee    scheduler.MemberID
	DueDate     time.Time
	Overdue     bool
	Timestamp   time.Time
}

func (e TaskDueEvent) EventType() string        { return EventTypeTaskDue }
func (e TaskDueEvent) TaskID() scheduler.TaskID { return e.ID }

// ReminderFailedEvent is published when a reminder could not be delivered.
type ReminderFailedEvent struct {
	ID        scheduler.TaskID
	Err       error
	Timestamp time.Time
}

func (e ReminderFailedEvent) EventType() string        { return EventTypeReminderFailed }
func (e ReminderFailedEvent) TaskID() scheduler.TaskID { return e.ID }
