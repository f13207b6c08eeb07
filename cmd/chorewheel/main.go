// Command chorewheel manages household chores: recurring tasks with rotating
// assignees, skipped occurrences, dependencies and due-soon reminders.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/aristath/chorewheel/internal/chores"
	"github.com/aristath/chorewheel/internal/config"
	"github.com/aristath/chorewheel/internal/events"
	"github.com/aristath/chorewheel/internal/persistence"
	"github.com/aristath/chorewheel/internal/scheduler"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// rootOptions holds the persistent flags shared by every subcommand.
type rootOptions struct {
	configPath string
	dbPath     string
	household  int64
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:   "chorewheel",
		Short: "Shared household chores with rotating assignees",
		Long: `chorewheel keeps a household's chores in a local SQLite database.
Recurring chores move to their next occurrence when completed and can rotate
between members. Occurrences can be skipped, chores can wait on each other,
and a reminder sweep reports what is due soon.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "global config file (default ~/.chorewheel/config.json)")
	root.PersistentFlags().StringVar(&opts.dbPath, "db", "", "database file (overrides database.path)")
	root.PersistentFlags().Int64Var(&opts.household, "household", 0, "household id (default: the only household)")

	root.AddCommand(
		newHouseholdCmd(opts),
		newMemberCmd(opts),
		newTaskCmd(opts),
		newCompleteCmd(opts),
		newSkipCmd(opts),
		newRestoreCmd(opts),
		newPlanCmd(opts),
		newFillCmd(opts),
		newActivityCmd(opts),
		newLinkCmd(opts),
		newUnlinkCmd(opts),
		newDepsCmd(opts),
		newAvailableCmd(opts),
		newOrderCmd(opts),
		newReadyCmd(opts),
		newRemindCmd(opts),
		newServeCmd(opts),
		newBoardCmd(opts),
	)
	return root
}

// app is the wiring shared by subcommands for the length of one invocation.
type app struct {
	cfg        *config.Config
	globalPath string
	store      *persistence.SQLiteStore
	bus        *events.EventBus
	svc        *chores.Service
	opts       *rootOptions
}

func openApp(ctx context.Context, opts *rootOptions) (*app, error) {
	globalPath := opts.configPath
	if globalPath == "" {
		p, err := config.GlobalPath()
		if err != nil {
			return nil, err
		}
		globalPath = p
	}

	cfg, err := config.Load(globalPath, config.ProjectPath)
	if err != nil {
		return nil, err
	}
	if opts.dbPath != "" {
		cfg.Database.Path = opts.dbPath
	}

	store, err := persistence.NewSQLiteStore(ctx, cfg.Database.Path)
	if err != nil {
		return nil, err
	}

	bus := events.NewEventBus()
	svc := chores.NewService(store, bus, chores.WithMaxSkipSteps(cfg.Scheduler.MaxSkipSteps))
	return &app{
		cfg:        cfg,
		globalPath: globalPath,
		store:      store,
		bus:        bus,
		svc:        svc,
		opts:       opts,
	}, nil
}

func (a *app) Close() error {
	a.bus.Close()
	return a.store.Close()
}

// withApp opens the app for one command run and closes it afterwards.
func withApp(cmd *cobra.Command, opts *rootOptions, fn func(ctx context.Context, a *app) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	a, err := openApp(ctx, opts)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(ctx, a)
}

// householdID resolves --household, falling back to the only household.
func (a *app) householdID(ctx context.Context) (scheduler.HouseholdID, error) {
	households, err := a.svc.Households(ctx)
	if err != nil {
		return 0, err
	}

	if a.opts.household != 0 {
		want := scheduler.HouseholdID(a.opts.household)
		for _, h := range households {
			if h.ID == want {
				return want, nil
			}
		}
		return 0, fmt.Errorf("household %d: %w", want, persistence.ErrNotFound)
	}

	switch len(households) {
	case 0:
		return 0, errors.New("no households yet, run `chorewheel household add NAME`")
	case 1:
		return households[0].ID, nil
	default:
		return 0, errors.New("several households exist, pass --household")
	}
}

// memberNames maps member ids to names for display.
func (a *app) memberNames(ctx context.Context, householdID scheduler.HouseholdID) (map[scheduler.MemberID]string, error) {
	members, err := a.svc.Members(ctx, householdID)
	if err != nil {
		return nil, err
	}
	names := make(map[scheduler.MemberID]string, len(members))
	for _, m := range members {
		names[m.ID] = m.Name
	}
	return names, nil
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimPrefix(s, "#"), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return id, nil
}

func parseTaskID(s string) (scheduler.TaskID, error) {
	id, err := parseID(s)
	return scheduler.TaskID(id), err
}

func memberIDs(ids []int64) []scheduler.MemberID {
	out := make([]scheduler.MemberID, len(ids))
	for i, id := range ids {
		out[i] = scheduler.MemberID(id)
	}
	return out
}

var dueLayouts = []string{"2006-01-02 15:04", "2006-01-02T15:04", scheduler.DateLayout}

// parseDue reads a due date in local time. A bare date means midnight.
func parseDue(s string) (*time.Time, error) {
	for _, layout := range dueLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return &t, nil
		}
	}
	return nil, fmt.Errorf("invalid due date %q, want YYYY-MM-DD or \"YYYY-MM-DD HH:MM\"", s)
}

func formatDue(t *time.Time) string {
	if t == nil {
		return "-"
	}
	if t.Hour() == 0 && t.Minute() == 0 {
		return scheduler.CalendarDate(*t)
	}
	return t.Format("2006-01-02 15:04")
}
