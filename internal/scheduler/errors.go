package scheduler

import "errors"

// Scheduling errors. All of them are recoverable validation or state errors;
// callers match them with errors.Is.
var (
	ErrInvalidRule                 = errors.New("invalid recurrence rule")
	ErrInvalidDate                 = errors.New("invalid calendar date")
	ErrNotRecurring                = errors.New("task is not recurring")
	ErrAlreadyCompleted            = errors.New("task is already completed")
	ErrNoEligibleMembers           = errors.New("no eligible members")
	ErrInsufficientEligibleMembers = errors.New("insufficient eligible members")
	ErrRecurrenceExhausted         = errors.New("recurrence exhausted by skipped dates")
	ErrCycleDetected               = errors.New("dependency cycle detected")
	ErrSelfReference               = errors.New("task cannot depend on itself")
	ErrUnknownTask                 = errors.New("unknown task")
	ErrDuplicateEdge               = errors.New("dependency already exists")
)
