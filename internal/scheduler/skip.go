package scheduler

import (
	"fmt"
	"sort"
	"time"
)

// DateLayout is the calendar date format used for skipped occurrences.
const DateLayout = "2006-01-02"

// ParseDate parses a YYYY-MM-DD calendar date. The input must round-trip,
// so "2026-2-1" and "2026-02-30" are both rejected.
func ParseDate(s string) (time.Time, error) {
	d, err := time.Parse(DateLayout, s)
	if err != nil || d.Format(DateLayout) != s {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return d, nil
}

// CalendarDate returns t's date in its own location as YYYY-MM-DD.
func CalendarDate(t time.Time) string {
	return t.Format(DateLayout)
}

// Skip returns a copy of task with date added to its skipped occurrences.
// Skipping an already skipped date is a no-op. The due date is not moved.
func Skip(task *Task, date string) (*Task, error) {
	if _, err := ParseDate(date); err != nil {
		return nil, err
	}
	if !task.IsRecurring() {
		return nil, fmt.Errorf("skip %s on task %d: %w", date, task.ID, ErrNotRecurring)
	}

	updated := task.Clone()
	i := sort.SearchStrings(updated.SkippedDates, date)
	if i < len(updated.SkippedDates) && updated.SkippedDates[i] == date {
		return updated, nil
	}
	updated.SkippedDates = append(updated.SkippedDates, "")
	copy(updated.SkippedDates[i+1:], updated.SkippedDates[i:])
	updated.SkippedDates[i] = date
	return updated, nil
}

// Restore returns a copy of task with date removed from its skipped
// occurrences. Restoring a date that was never skipped is a no-op.
func Restore(task *Task, date string) (*Task, error) {
	if _, err := ParseDate(date); err != nil {
		return nil, err
	}

	updated := task.Clone()
	i := sort.SearchStrings(updated.SkippedDates, date)
	if i < len(updated.SkippedDates) && updated.SkippedDates[i] == date {
		updated.SkippedDates = append(updated.SkippedDates[:i], updated.SkippedDates[i+1:]...)
	}
	return updated, nil
}

// IsSkipped reports whether the occurrence on date has been skipped.
func IsSkipped(task *Task, date string) bool {
	i := sort.SearchStrings(task.SkippedDates, date)
	return i < len(task.SkippedDates) && task.SkippedDates[i] == date
}

// NormalizeSkippedDates validates, sorts and de-duplicates dates read from
// storage or user input.
func NormalizeSkippedDates(dates []string) ([]string, error) {
	if len(dates) == 0 {
		return nil, nil
	}
	out := make([]string, 0, len(dates))
	seen := make(map[string]bool, len(dates))
	for _, d := range dates {
		if _, err := ParseDate(d); err != nil {
			return nil, err
		}
		if seen[d] {
			continue
		}
		seen[d] = true
		out = append(out, d)
	}
	sort.Strings(out)
	return out, nil
}
