package scheduler

import (
	"time"
)

// TaskID identifies a task. IDs are only meaningful within one household.
type TaskID int64

// MemberID identifies a household member.
type MemberID int64

// HouseholdID identifies a household.
type HouseholdID int64

// Assignment is the task's responsible members. Rotation only ever looks at
// and replaces Primary; Additional is carried alongside untouched.
type Assignment struct {
	Primary    MemberID   `json:"primary"`
	Additional []MemberID `json:"additional,omitempty"`
}

// Member is a household member as seen by the rotation policy.
type Member struct {
	ID          MemberID
	HouseholdID HouseholdID
	Name        string
	Active      bool
}

// Task is one chore. A recurring task is a long-lived record whose due date and
// assignee are overwritten occurrence by occurrence.
type Task struct {
	ID          TaskID
	HouseholdID HouseholdID
	Title       string

	// Scheduling. Repeat == nil means a one-off task.
	DueDate *time.Time
	Repeat  *Rule

	// Rotation
	EnableRotation  bool
	Assigned        Assignment
	RequiredPersons int
	ExcludedMembers []MemberID

	// Completion (one-off tasks only)
	IsCompleted bool
	CompletedBy *MemberID
	CompletedAt *time.Time

	// Sorted, unique YYYY-MM-DD dates. Always empty for one-off tasks.
	SkippedDates []string
}

// IsRecurring reports whether the task has a recurrence rule.
func (t *Task) IsRecurring() bool {
	return t.Repeat != nil
}

// IsExcluded reports whether the member is excluded from rotation for this task.
func (t *Task) IsExcluded(id MemberID) bool {
	for _, ex := range t.ExcludedMembers {
		if ex == id {
			return true
		}
	}
	return false
}

// Clone returns a deep copy of the task.
func (t *Task) Clone() *Task {
	if t == nil {
		return nil
	}

	cp := *t
	if t.DueDate != nil {
		d := *t.DueDate
		cp.DueDate = &d
	}
	if t.Repeat != nil {
		r := *t.Repeat
		cp.Repeat = &r
	}
	if t.Assigned.Additional != nil {
		cp.Assigned.Additional = append([]MemberID(nil), t.Assigned.Additional...)
	}
	if t.ExcludedMembers != nil {
		cp.ExcludedMembers = append([]MemberID(nil), t.ExcludedMembers...)
	}
	if t.CompletedBy != nil {
		by := *t.CompletedBy
		cp.CompletedBy = &by
	}
	if t.CompletedAt != nil {
		at := *t.CompletedAt
		cp.CompletedAt = &at
	}
	if t.SkippedDates != nil {
		cp.SkippedDates = append([]string(nil), t.SkippedDates...)
	}
	return &cp
}
