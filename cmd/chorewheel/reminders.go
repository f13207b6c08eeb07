package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/aristath/chorewheel/internal/chores"
)

func (a *app) reminders() *chores.Reminders {
	return chores.NewReminders(a.store, a.bus, nil, chores.ReminderConfig{
		Lookahead:    a.cfg.Reminders.Lookahead(),
		Concurrency:  a.cfg.Reminders.Concurrency,
		MaxSkipSteps: a.cfg.Scheduler.MaxSkipSteps,
		Retry:        chores.RetryConfigFrom(a.cfg.Retry),
	})
}

// startReminders schedules the reminder sweep from config. The returned
// schedule is nil when reminders are disabled.
func (a *app) startReminders(ctx context.Context) (*chores.ReminderSchedule, error) {
	if !a.cfg.Reminders.Enabled {
		return nil, nil
	}
	schedule := chores.NewReminderSchedule(a.reminders(), time.Local)
	spec := a.cfg.Reminders.ReminderSpec()
	id, err := schedule.Add(ctx, spec)
	if err != nil {
		return nil, err
	}
	schedule.Start()
	log.Printf("Reminder sweep scheduled (%s), next at %s", spec, schedule.Next(id).Format(time.RFC1123))
	return schedule, nil
}

func newRemindCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "remind",
		Short: "Run one reminder sweep over every household",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				result, err := a.reminders().Sweep(ctx, time.Now())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%d households, %d due, %d overdue, %d delivered, %d failed\n",
					result.Households, result.Due, result.Overdue, result.Delivered, result.Failed)
				return nil
			})
		},
	}
}

func newServeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run reminder sweeps on the configured schedule until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := openApp(ctx, opts)
			if err != nil {
				return err
			}
			defer a.Close()

			if !a.cfg.Reminders.Enabled {
				return fmt.Errorf("reminders are disabled in %s", a.globalPath)
			}
			schedule, err := a.startReminders(ctx)
			if err != nil {
				return err
			}

			<-ctx.Done()
			stop()
			log.Println("Shutdown signal received, waiting for the running sweep...")
			schedule.Stop()
			log.Println("Shutdown complete")
			return nil
		},
	}
}
