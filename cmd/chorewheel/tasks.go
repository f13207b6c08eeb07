package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/aristath/chorewheel/internal/chores"
	"github.com/aristath/chorewheel/internal/scheduler"
)

func newTaskCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "task",
		Short: "Manage chores",
	}
	cmd.AddCommand(newTaskAddCmd(opts), newTaskListCmd(opts), newTaskDeleteCmd(opts))
	return cmd
}

func newTaskAddCmd(opts *rootOptions) *cobra.Command {
	var (
		due      string
		every    int
		unit     string
		rotate   bool
		assign   int64
		also     []int64
		required int
		exclude  []int64
		skips    []string
	)

	cmd := &cobra.Command{
		Use:   "add TITLE",
		Short: "Create a chore",
		Example: `  # One-off chore
  chorewheel task add "Fix the tap"

  # Weekly chore rotating between everyone but member 3
  chorewheel task add "Take out bins" --due 2026-01-12 --every 1 --unit weeks --rotate --exclude 3`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in := chores.TaskInput{
				Title:           args[0],
				RepeatInterval:  every,
				RepeatUnit:      unit,
				EnableRotation:  rotate,
				AssignedTo:      scheduler.MemberID(assign),
				Additional:      memberIDs(also),
				RequiredPersons: required,
				ExcludedMembers: memberIDs(exclude),
				SkippedDates:    skips,
			}
			if every != 0 && unit == "" {
				in.RepeatUnit = string(scheduler.UnitDays)
			}
			if due != "" {
				t, err := parseDue(due)
				if err != nil {
					return err
				}
				in.DueDate = t
			}

			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				hh, err := a.householdID(ctx)
				if err != nil {
					return err
				}
				in.HouseholdID = hh
				task, err := a.svc.CreateTask(ctx, in)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Created task #%d %s\n", task.ID, task.Title)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&due, "due", "", "due date, YYYY-MM-DD or \"YYYY-MM-DD HH:MM\"")
	cmd.Flags().IntVar(&every, "every", 0, "repeat every N units")
	cmd.Flags().StringVar(&unit, "unit", "", "repeat unit: days, weeks or months")
	cmd.Flags().BoolVar(&rotate, "rotate", false, "rotate the assignee on each completion")
	cmd.Flags().Int64Var(&assign, "assign", 0, "primary assignee member id")
	cmd.Flags().Int64SliceVar(&also, "also", nil, "additional assignee member ids")
	cmd.Flags().IntVar(&required, "required", 0, "members needed per occurrence (default 1)")
	cmd.Flags().Int64SliceVar(&exclude, "exclude", nil, "member ids left out of rotation")
	cmd.Flags().StringSliceVar(&skips, "skip", nil, "occurrence dates to skip, YYYY-MM-DD")
	return cmd
}

func newTaskListCmd(opts *rootOptions) *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List the household's chores",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				hh, err := a.householdID(ctx)
				if err != nil {
					return err
				}
				tasks, err := a.svc.Tasks(ctx, hh)
				if err != nil {
					return err
				}
				names, err := a.memberNames(ctx, hh)
				if err != nil {
					return err
				}

				t := newTable("ID", "TITLE", "DUE", "ASSIGNEE", "REPEAT", "SKIPPED", "STATUS")
				for _, task := range tasks {
					if task.IsCompleted && !all {
						continue
					}
					t.Row(taskRow(task, names)...)
				}
				fmt.Fprintln(cmd.OutOrStdout(), t)
				return nil
			})
		},
	}

	cmd.Flags().BoolVarP(&all, "all", "a", false, "include completed chores")
	return cmd
}

func taskRow(task *scheduler.Task, names map[scheduler.MemberID]string) []string {
	assignee := "-"
	if task.Assigned.Primary != 0 {
		assignee = names[task.Assigned.Primary]
		for _, id := range task.Assigned.Additional {
			assignee += ", " + names[id]
		}
	}

	repeat := "-"
	if task.Repeat != nil {
		repeat = task.Repeat.String()
		if task.EnableRotation {
			repeat += ", rotates"
		}
	}

	status := "open"
	if task.IsCompleted {
		status = "done"
	}

	return []string{
		strconv.FormatInt(int64(task.ID), 10),
		task.Title,
		formatDue(task.DueDate),
		assignee,
		repeat,
		strings.Join(task.SkippedDates, " "),
		status,
	}
}

func newTaskDeleteCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "delete TASK_ID",
		Aliases: []string{"rm"},
		Short:   "Delete a chore and its dependency links",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseTaskID(args[0])
			if err != nil {
				return err
			}
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				hh, err := a.householdID(ctx)
				if err != nil {
					return err
				}
				if err := a.svc.DeleteTask(ctx, hh, id); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted task #%d\n", id)
				return nil
			})
		},
	}
}

func newCompleteCmd(opts *rootOptions) *cobra.Command {
	var by int64

	cmd := &cobra.Command{
		Use:     "complete TASK_ID",
		Aliases: []string{"done"},
		Short:   "Complete a chore's current occurrence",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseTaskID(args[0])
			if err != nil {
				return err
			}
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				member := scheduler.MemberID(by)
				if member == 0 {
					task, err := a.store.GetTask(ctx, id)
					if err != nil {
						return err
					}
					if task.Assigned.Primary == 0 {
						return fmt.Errorf("task #%d has no assignee, pass --by", id)
					}
					member = task.Assigned.Primary
				}

				c, err := a.svc.CompleteTask(ctx, id, member)
				if err != nil {
					return err
				}
				names, err := a.memberNames(ctx, c.Task.HouseholdID)
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				if c.Terminal {
					fmt.Fprintf(out, "%s completed %s\n", names[member], c.Task.Title)
					return nil
				}
				fmt.Fprintf(out, "%s completed %s, next due %s", names[member], c.Task.Title, formatDue(c.Task.DueDate))
				if c.StepsSkipped > 0 {
					fmt.Fprintf(out, " (%d skipped)", c.StepsSkipped)
				}
				if c.Rotated {
					fmt.Fprintf(out, ", now %s's turn", names[c.Task.Assigned.Primary])
				}
				fmt.Fprintln(out)
				return nil
			})
		},
	}

	cmd.Flags().Int64Var(&by, "by", 0, "member who did it (default: the current assignee)")
	return cmd
}

func newSkipCmd(opts *rootOptions) *cobra.Command {
	return newSkipRestoreCmd(opts, "skip", "Skip one occurrence of a recurring chore", "Skipped")
}

func newRestoreCmd(opts *rootOptions) *cobra.Command {
	return newSkipRestoreCmd(opts, "restore", "Undo a skipped occurrence", "Restored")
}

func newSkipRestoreCmd(opts *rootOptions, use, short, verb string) *cobra.Command {
	return &cobra.Command{
		Use:   use + " TASK_ID DATE",
		Short: short,
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseTaskID(args[0])
			if err != nil {
				return err
			}
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				op := a.svc.SkipOccurrence
				if use == "restore" {
					op = a.svc.RestoreOccurrence
				}
				task, err := op(ctx, id, args[1])
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s on %s, skipped dates: [%s]\n",
					verb, task.Title, args[1], strings.Join(task.SkippedDates, " "))
				return nil
			})
		},
	}
}

func newPlanCmd(opts *rootOptions) *cobra.Command {
	var count int

	cmd := &cobra.Command{
		Use:   "plan TASK_ID",
		Short: "Show who does the next occurrences of a rotating chore",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseTaskID(args[0])
			if err != nil {
				return err
			}
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				slots, err := a.svc.PlanRotation(ctx, id, count)
				if err != nil {
					return err
				}
				task, err := a.store.GetTask(ctx, id)
				if err != nil {
					return err
				}
				names, err := a.memberNames(ctx, task.HouseholdID)
				if err != nil {
					return err
				}
				return printSlots(cmd, slots, names)
			})
		},
	}

	cmd.Flags().IntVarP(&count, "count", "n", 8, "number of occurrences")
	return cmd
}

func newFillCmd(opts *rootOptions) *cobra.Command {
	var exclude []int64

	cmd := &cobra.Command{
		Use:   "fill DATE[=MEMBER_ID]...",
		Short: "Fill a schedule round-robin, keeping the slots already assigned",
		Example: `  chorewheel fill 2026-01-10 2026-01-17=2 2026-01-24 --exclude 3`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			slots := make([]scheduler.Slot, 0, len(args))
			for _, arg := range args {
				date, member, _ := strings.Cut(arg, "=")
				d, err := parseDue(date)
				if err != nil {
					return err
				}
				slot := scheduler.Slot{Date: *d}
				if member != "" {
					id, err := parseID(member)
					if err != nil {
						return err
					}
					slot.Assignee = scheduler.MemberID(id)
				}
				slots = append(slots, slot)
			}

			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				hh, err := a.householdID(ctx)
				if err != nil {
					return err
				}
				filled, err := a.svc.AutoFillRotationSchedule(ctx, hh, memberIDs(exclude), slots)
				if err != nil {
					return err
				}
				names, err := a.memberNames(ctx, hh)
				if err != nil {
					return err
				}
				return printSlots(cmd, filled, names)
			})
		},
	}

	cmd.Flags().Int64SliceVar(&exclude, "exclude", nil, "member ids left out of the rotation")
	return cmd
}

func printSlots(cmd *cobra.Command, slots []scheduler.Slot, names map[scheduler.MemberID]string) error {
	t := newTable("DATE", "ASSIGNEE")
	for _, s := range slots {
		name := "-"
		if s.Assignee != 0 {
			name = names[s.Assignee]
		}
		t.Row(s.Date.Format("Mon 2006-01-02"), name)
	}
	_, err := fmt.Fprintln(cmd.OutOrStdout(), t)
	return err
}

func newActivityCmd(opts *rootOptions) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "activity",
		Short: "Show the household's recent activity",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				hh, err := a.householdID(ctx)
				if err != nil {
					return err
				}
				entries, err := a.svc.Activity(ctx, hh, limit)
				if err != nil {
					return err
				}
				for _, e := range entries {
					fmt.Fprintf(cmd.OutOrStdout(), "%s  %-19s %s\n",
						e.CreatedAt.Local().Format("2006-01-02 15:04"), e.Kind, e.Detail)
				}
				return nil
			})
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of entries, 0 for all")
	return cmd
}
