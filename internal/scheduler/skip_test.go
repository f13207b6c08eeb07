package scheduler

import (
	"errors"
	"reflect"
	"testing"
)

func recurringTask(dates ...string) *Task {
	return &Task{
		ID:           1,
		HouseholdID:  1,
		Repeat:       &Rule{Interval: 1, Unit: UnitDays},
		SkippedDates: dates,
	}
}

func TestSkip(t *testing.T) {
	task := recurringTask("2026-01-05", "2026-01-20")

	updated, err := Skip(task, "2026-01-10")
	if err != nil {
		t.Fatalf("Skip() error = %v", err)
	}

	want := []string{"2026-01-05", "2026-01-10", "2026-01-20"}
	if !reflect.DeepEqual(updated.SkippedDates, want) {
		t.Errorf("SkippedDates = %v, want %v", updated.SkippedDates, want)
	}

	// Input is untouched
	if len(task.SkippedDates) != 2 {
		t.Errorf("Skip() mutated its input: %v", task.SkippedDates)
	}
}

func TestSkip_Idempotent(t *testing.T) {
	task := recurringTask()

	once, err := Skip(task, "2026-02-15")
	if err != nil {
		t.Fatalf("Skip() error = %v", err)
	}
	twice, err := Skip(once, "2026-02-15")
	if err != nil {
		t.Fatalf("second Skip() error = %v", err)
	}

	if !reflect.DeepEqual(once.SkippedDates, twice.SkippedDates) {
		t.Errorf("second Skip() changed the set: %v -> %v", once.SkippedDates, twice.SkippedDates)
	}
}

func TestSkip_DoesNotMoveDueDate(t *testing.T) {
	task := recurringTask()
	due := mustDate(t, "2026-01-10 09:00")
	task.DueDate = &due

	updated, err := Skip(task, "2026-01-10")
	if err != nil {
		t.Fatalf("Skip() error = %v", err)
	}
	if !updated.DueDate.Equal(due) {
		t.Errorf("DueDate = %v, want unchanged %v", updated.DueDate, due)
	}
}

func TestSkip_InvalidDate(t *testing.T) {
	for _, date := range []string{"", "2026-2-1", "2026-02-30", "15/02/2026", "2026-02-15T00:00:00Z"} {
		t.Run(date, func(t *testing.T) {
			_, err := Skip(recurringTask(), date)
			if !errors.Is(err, ErrInvalidDate) {
				t.Errorf("Skip(%q) error = %v, want ErrInvalidDate", date, err)
			}
		})
	}
}

func TestSkip_OneOffTask(t *testing.T) {
	_, err := Skip(&Task{ID: 4}, "2026-01-10")
	if !errors.Is(err, ErrNotRecurring) {
		t.Errorf("Skip() on one-off error = %v, want ErrNotRecurring", err)
	}
}

func TestRestore(t *testing.T) {
	task := recurringTask("2026-01-05", "2026-01-10")

	updated, err := Restore(task, "2026-01-05")
	if err != nil {
		t.Fatalf("Restore() error = %v", err)
	}
	if want := []string{"2026-01-10"}; !reflect.DeepEqual(updated.SkippedDates, want) {
		t.Errorf("SkippedDates = %v, want %v", updated.SkippedDates, want)
	}

	// Absent date is a no-op
	again, err := Restore(updated, "2026-01-05")
	if err != nil {
		t.Fatalf("Restore() of absent date error = %v", err)
	}
	if !reflect.DeepEqual(again.SkippedDates, updated.SkippedDates) {
		t.Errorf("Restore() of absent date changed the set: %v", again.SkippedDates)
	}

	if _, err := Restore(task, "nope"); !errors.Is(err, ErrInvalidDate) {
		t.Errorf("Restore(nope) error = %v, want ErrInvalidDate", err)
	}
}

func TestSkipThenRestoreIsIdentity(t *testing.T) {
	base := []string{"2026-01-05", "2026-03-01"}
	for _, date := range []string{"2026-01-01", "2026-01-05", "2026-02-01", "2026-12-31"} {
		t.Run(date, func(t *testing.T) {
			task := recurringTask(base...)
			wasSkipped := IsSkipped(task, date)

			skipped, err := Skip(task, date)
			if err != nil {
				t.Fatalf("Skip() error = %v", err)
			}
			if !IsSkipped(skipped, date) {
				t.Fatalf("IsSkipped() = false after Skip")
			}
			restored, err := Restore(skipped, date)
			if err != nil {
				t.Fatalf("Restore() error = %v", err)
			}

			// Membership of every other date is unchanged
			for _, d := range base {
				if d == date {
					continue
				}
				if !IsSkipped(restored, d) {
					t.Errorf("date %s lost after skip/restore of %s", d, date)
				}
			}
			if !wasSkipped && IsSkipped(restored, date) {
				t.Errorf("date %s still skipped after restore", date)
			}
		})
	}
}

func TestNormalizeSkippedDates(t *testing.T) {
	got, err := NormalizeSkippedDates([]string{"2026-03-01", "2026-01-01", "2026-03-01"})
	if err != nil {
		t.Fatalf("NormalizeSkippedDates() error = %v", err)
	}
	if want := []string{"2026-01-01", "2026-03-01"}; !reflect.DeepEqual(got, want) {
		t.Errorf("NormalizeSkippedDates() = %v, want %v", got, want)
	}

	if _, err := NormalizeSkippedDates([]string{"2026-13-01"}); !errors.Is(err, ErrInvalidDate) {
		t.Errorf("NormalizeSkippedDates() error = %v, want ErrInvalidDate", err)
	}
}
