package chores

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/robfig/cron/v3"
)

// ReminderSchedule runs the reminder sweep on a cron schedule.
type ReminderSchedule struct {
	cron      *cron.Cron
	reminders *Reminders
	now       func() time.Time
}

// NewReminderSchedule creates a schedule evaluated in loc.
func NewReminderSchedule(reminders *Reminders, loc *time.Location) *ReminderSchedule {
	if loc == nil {
		loc = time.Local
	}
	return &ReminderSchedule{
		cron:      cron.New(cron.WithLocation(loc)),
		reminders: reminders,
		now:       time.Now,
	}
}

// Add registers a sweep on spec, a standard cron expression or a descriptor
// such as "@every 15m". Each run is bounded by ctx and logs its result.
func (s *ReminderSchedule) Add(ctx context.Context, spec string) (cron.EntryID, error) {
	id, err := s.cron.AddFunc(spec, func() {
		s.runOnce(ctx)
	})
	if err != nil {
		return 0, fmt.Errorf("invalid reminder schedule %q: %w", spec, err)
	}
	return id, nil
}

// Next returns when the sweep registered under id fires next.
func (s *ReminderSchedule) Next(id cron.EntryID) time.Time {
	return s.cron.Entry(id).Next
}

func (s *ReminderSchedule) Start() {
	s.cron.Start()
}

// Stop stops scheduling and waits for a running sweep to finish.
func (s *ReminderSchedule) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}

func (s *ReminderSchedule) runOnce(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	result, err := s.reminders.Sweep(ctx, s.now())
	if err != nil {
		log.Printf("WARNING: reminder sweep failed: %v", err)
		return
	}
	log.Printf("Reminder sweep: %d households, %d due, %d overdue, %d delivered, %d failed",
		result.Households, result.Due, result.Overdue, result.Delivered, result.Failed)
}
