package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/aristath/chorewheel/internal/scheduler"
)

func newLinkCmd(opts *rootOptions) *cobra.Command {
	return newEdgeCmd(opts, "link", "Make a chore wait for another", func(ctx context.Context, a *app, hh scheduler.HouseholdID, pre, dep scheduler.TaskID) error {
		return a.svc.LinkDependency(ctx, hh, pre, dep)
	}, "now waits for")
}

func newUnlinkCmd(opts *rootOptions) *cobra.Command {
	return newEdgeCmd(opts, "unlink", "Remove a dependency between chores", func(ctx context.Context, a *app, hh scheduler.HouseholdID, pre, dep scheduler.TaskID) error {
		return a.svc.UnlinkDependency(ctx, hh, pre, dep)
	}, "no longer waits for")
}

func newEdgeCmd(opts *rootOptions, use, short string,
	fn func(ctx context.Context, a *app, hh scheduler.HouseholdID, pre, dep scheduler.TaskID) error, phrase string,
) *cobra.Command {
	return &cobra.Command{
		Use:   use + " PREREQUISITE_ID DEPENDENT_ID",
		Short: short,
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			pre, err := parseTaskID(args[0])
			if err != nil {
				return err
			}
			dep, err := parseTaskID(args[1])
			if err != nil {
				return err
			}
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				hh, err := a.householdID(ctx)
				if err != nil {
					return err
				}
				if err := fn(ctx, a, hh, pre, dep); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Task #%d %s task #%d\n", dep, phrase, pre)
				return nil
			})
		},
	}
}

func newDepsCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "deps TASK_ID",
		Short: "Show what a chore waits for and what waits for it",
		Args:  cobra.ExactArgs(1),
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
				edges, err := a.svc.DependenciesOf(ctx, hh, id)
				if err != nil {
					return err
				}
				titles, err := taskTitles(ctx, a, hh)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintln(out, "Waits for:")
				printTaskIDs(cmd, edges.Prerequisites, titles)
				fmt.Fprintln(out, "Followed by:")
				printTaskIDs(cmd, edges.FollowUps, titles)
				return nil
			})
		},
	}
}

func newAvailableCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "available TASK_ID",
		Short: "List chores that can still be linked to a chore",
		Args:  cobra.ExactArgs(1),
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
				ids, err := a.svc.AvailableTasksFor(ctx, hh, id)
				if err != nil {
					return err
				}
				return listTaskIDs(ctx, cmd, a, hh, ids)
			})
		},
	}
}

func newOrderCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "order",
		Short: "List chores with every prerequisite ahead of what waits for it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				hh, err := a.householdID(ctx)
				if err != nil {
					return err
				}
				ids, err := a.svc.ProjectOrder(ctx, hh)
				if err != nil {
					return err
				}
				return listTaskIDs(ctx, cmd, a, hh, ids)
			})
		},
	}
}

func newReadyCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "ready",
		Short: "List open chores whose prerequisites are all done",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				hh, err := a.householdID(ctx)
				if err != nil {
					return err
				}
				ids, err := a.svc.ReadyTasks(ctx, hh)
				if err != nil {
					return err
				}
				return listTaskIDs(ctx, cmd, a, hh, ids)
			})
		},
	}
}

func taskTitles(ctx context.Context, a *app, hh scheduler.HouseholdID) (map[scheduler.TaskID]string, error) {
	tasks, err := a.svc.Tasks(ctx, hh)
	if err != nil {
		return nil, err
	}
	titles := make(map[scheduler.TaskID]string, len(tasks))
	for _, t := range tasks {
		titles[t.ID] = t.Title
	}
	return titles, nil
}

func listTaskIDs(ctx context.Context, cmd *cobra.Command, a *app, hh scheduler.HouseholdID, ids []scheduler.TaskID) error {
	titles, err := taskTitles(ctx, a, hh)
	if err != nil {
		return err
	}
	printTaskIDs(cmd, ids, titles)
	return nil
}

func printTaskIDs(cmd *cobra.Command, ids []scheduler.TaskID, titles map[scheduler.TaskID]string) {
	if len(ids) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "  (none)")
		return
	}
	for _, id := range ids {
		fmt.Fprintf(cmd.OutOrStdout(), "  #%s %s\n", strconv.FormatInt(int64(id), 10), titles[id])
	}
}
