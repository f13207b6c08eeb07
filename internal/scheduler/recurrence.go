package scheduler

import (
	"fmt"
	"strings"
	"time"
)

// Unit is the step size of a recurrence rule.
type Unit string

const (
	UnitDays   Unit = "days"
	UnitWeeks  Unit = "weeks"
	UnitMonths Unit = "months"
)

// ParseUnit normalises a unit name. Singular forms are accepted.
func ParseUnit(s string) (Unit, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "day", "days":
		return UnitDays, nil
	case "week", "weeks":
		return UnitWeeks, nil
	case "month", "months":
		return UnitMonths, nil
	}
	return "", fmt.Errorf("%w: unknown unit %q", ErrInvalidRule, s)
}

// Rule is "repeat every Interval Units".
type Rule struct {
	Interval int  `json:"interval"`
	Unit     Unit `json:"unit"`
}

// Validate checks the interval is positive and the unit known.
func (r Rule) Validate() error {
	if r.Interval <= 0 {
		return fmt.Errorf("%w: interval must be positive, got %d", ErrInvalidRule, r.Interval)
	}
	switch r.Unit {
	case UnitDays, UnitWeeks, UnitMonths:
		return nil
	}
	return fmt.Errorf("%w: unknown unit %q", ErrInvalidRule, r.Unit)
}

// Next is NextDate for this rule.
func (r Rule) Next(from time.Time) (time.Time, error) {
	return NextDate(from, r.Interval, r.Unit)
}

func (r Rule) String() string {
	return fmt.Sprintf("every %d %s", r.Interval, r.Unit)
}

// NextDate returns the occurrence interval units after from. Time of day and
// location are preserved. Month steps clamp to the last day of the target
// month instead of rolling over (Jan 31 + 1 month is Feb 28 or 29).
func NextDate(from time.Time, interval int, unit Unit) (time.Time, error) {
	if err := (Rule{Interval: interval, Unit: unit}).Validate(); err != nil {
		return time.Time{}, err
	}

	switch unit {
	case UnitDays:
		return from.AddDate(0, 0, interval), nil
	case UnitWeeks:
		return from.AddDate(0, 0, 7*interval), nil
	default:
		return addMonthsClamped(from, interval), nil
	}
}

func addMonthsClamped(from time.Time, months int) time.Time {
	year, month, day := from.Date()
	hour, minute, sec := from.Clock()

	// time.Date normalises month overflow into the year.
	first := time.Date(year, month+time.Month(months), 1, 0, 0, 0, 0, from.Location())
	if last := daysInMonth(first.Month(), first.Year()); day > last {
		day = last
	}
	return time.Date(first.Year(), first.Month(), day, hour, minute, sec, from.Nanosecond(), from.Location())
}

func daysInMonth(month time.Month, year int) int {
	// Day 0 of the next month is the last day of this one.
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
