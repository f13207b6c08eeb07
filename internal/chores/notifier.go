package chores

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/aristath/chorewheel/internal/scheduler"
)

// Reminder is one due-soon or overdue notice.
type Reminder struct {
	TaskID       scheduler.TaskID
	HouseholdID  scheduler.HouseholdID
	Title        string
	Assignee     scheduler.MemberID
	AssigneeName string
	DueDate      time.Time
	Overdue      bool
}

func (r Reminder) String() string {
	who := r.AssigneeName
	if who == "" {
		who = "unassigned"
	}
	state := "due"
	if r.Overdue {
		state = "overdue since"
	}
	return fmt.Sprintf("%s (%s): %s %s", r.Title, who, state, r.DueDate.Format("2006-01-02 15:04"))
}

// Notifier delivers reminders. Name keys the circuit breaker, so notifiers
// sharing a delivery channel should share a name.
type Notifier interface {
	Name() string
	Notify(ctx context.Context, reminder Reminder) error
}

// LogNotifier writes reminders to the standard logger.
type LogNotifier struct{}

func (LogNotifier) Name() string { return "log" }

func (LogNotifier) Notify(ctx context.Context, reminder Reminder) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	log.Printf("Reminder: %s", reminder)
	return nil
}
