package chores

import (
	"context"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/aristath/chorewheel/internal/events"
	"github.com/aristath/chorewheel/internal/persistence"
	"github.com/aristath/chorewheel/internal/scheduler"
)

// ReminderConfig configures a Reminders sweeper.
type ReminderConfig struct {
	Lookahead    time.Duration // Tasks due within this window are reminded (default 24h)
	Concurrency  int           // Households swept in parallel (default 4)
	MaxSkipSteps int           // Bound on the search past skipped dates
	Retry        RetryConfig
}

// SweepResult summarises one sweep.
type SweepResult struct {
	Households int
	Due        int
	Overdue    int
	Delivered  int
	Failed     int
}

// Reminders finds open tasks that are due soon or overdue and hands them to
// a Notifier.
type Reminders struct {
	store    persistence.Store
	bus      *events.EventBus
	notifier Notifier
	breakers *CircuitBreakerRegistry
	cfg      ReminderConfig
}

// NewReminders creates a sweeper. A nil notifier selects LogNotifier.
func NewReminders(store persistence.Store, bus *events.EventBus, notifier Notifier, cfg ReminderConfig) *Reminders {
	if notifier == nil {
		notifier = LogNotifier{}
	}
	if cfg.Lookahead <= 0 {
		cfg.Lookahead = 24 * time.Hour
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 4
	}
	if cfg.Retry == (RetryConfig{}) {
		cfg.Retry = DefaultRetryConfig()
	}
	return &Reminders{
		store:    store,
		bus:      bus,
		notifier: notifier,
		breakers: NewCircuitBreakerRegistry(),
		cfg:      cfg,
	}
}

// Due returns the reminders for one household at now, ordered by due date.
// Closed tasks and tasks without a due date are left out. When the current
// occurrence is skipped the reminder is for the next open one.
func (r *Reminders) Due(ctx context.Context, householdID scheduler.HouseholdID, now time.Time) ([]Reminder, error) {
	tasks, err := r.store.ListTasks(ctx, householdID)
	if err != nil {
		return nil, err
	}
	members, err := r.store.ListMembers(ctx, householdID)
	if err != nil {
		return nil, err
	}

	horizon := now.Add(r.cfg.Lookahead)
	var due []Reminder
	for _, task := range tasks {
		if task.IsCompleted || task.DueDate == nil {
			continue
		}
		dueDate, ok := r.openOccurrence(task)
		if !ok || dueDate.After(horizon) {
			continue
		}
		reminder := Reminder{
			TaskID:      task.ID,
			HouseholdID: task.HouseholdID,
			Title:       task.Title,
			Assignee:    task.Assigned.Primary,
			DueDate:     dueDate,
			Overdue:     dueDate.Before(now),
		}
		if reminder.Assignee != 0 {
			reminder.AssigneeName = memberName(members, reminder.Assignee)
		}
		due = append(due, reminder)
	}

	sortReminders(due)
	return due, nil
}

// openOccurrence returns the task's due date, or the first occurrence after
// it that is not skipped.
func (r *Reminders) openOccurrence(task *scheduler.Task) (time.Time, bool) {
	due := *task.DueDate
	if task.Repeat == nil || !scheduler.IsSkipped(task, scheduler.CalendarDate(due)) {
		return due, true
	}
	slots, err := scheduler.OccurrenceSlots(due, *task.Repeat, task.SkippedDates, 1, r.cfg.MaxSkipSteps)
	if err != nil || len(slots) == 0 {
		log.Printf("WARNING: task %d has no open occurrence to remind about: %v", task.ID, err)
		return time.Time{}, false
	}
	return slots[0].Date, true
}

// Sweep checks every household concurrently and delivers its reminders.
// Delivery failures are logged and counted, not returned; only store errors
// and cancellation abort the sweep.
func (r *Reminders) Sweep(ctx context.Context, now time.Time) (SweepResult, error) {
	households, err := r.store.ListHouseholds(ctx)
	if err != nil {
		return SweepResult{}, fmt.Errorf("failed to list households: %w", err)
	}

	var (
		mu     sync.Mutex
		result = SweepResult{Households: len(households)}
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.cfg.Concurrency)

	for _, h := range households {
		h := h
		g.Go(func() error {
			due, err := r.Due(gctx, h.ID, now)
			if err != nil {
				return fmt.Errorf("household %d: %w", h.ID, err)
			}

			for _, reminder := range due {
				delivered := r.deliver(gctx, reminder, now)

				mu.Lock()
				if reminder.Overdue {
					result.Overdue++
				} else {
					result.Due++
				}
				if delivered {
					result.Delivered++
				} else {
					result.Failed++
				}
				mu.Unlock()
			}
			return gctx.Err()
		})
	}

	if err := g.Wait(); err != nil {
		return result, err
	}
	return result, nil
}

func (r *Reminders) deliver(ctx context.Context, reminder Reminder, now time.Time) bool {
	if r.bus != nil {
		r.bus.Publish(events.TopicReminder, events.TaskDueEvent{
			ID:          reminder.TaskID,
			HouseholdID: reminder.HouseholdID,
			Title:       reminder.Title,
			Assignee:    reminder.Assignee,
			DueDate:     reminder.DueDate,
			Overdue:     reminder.Overdue,
			Timestamp:   now,
		})
	}

	cb := r.breakers.Get(r.notifier.Name())
	if err := notifyWithRetry(ctx, r.notifier, reminder, cb, r.cfg.Retry); err != nil {
		log.Printf("WARNING: reminder for task %d not delivered via %s: %v", reminder.TaskID, r.notifier.Name(), err)
		if r.bus != nil {
			r.bus.Publish(events.TopicReminder, events.ReminderFailedEvent{
				ID:        reminder.TaskID,
				Err:       err,
				Timestamp: now,
			})
		}
		return false
	}
	return true
}

func sortReminders(reminders []Reminder) {
	sort.Slice(reminders, func(i, j int) bool {
		if !reminders[i].DueDate.Equal(reminders[j].DueDate) {
			return reminders[i].DueDate.Before(reminders[j].DueDate)
		}
		return reminders[i].TaskID < reminders[j].TaskID
	})
}
