package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/aristath/chorewheel/internal/chores"
	"github.com/aristath/chorewheel/internal/scheduler"
)

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.NormalBorder()).
		Headers(headers...)
}

func newHouseholdCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "household",
		Short: "Manage households",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "add NAME",
		Short: "Create a household",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				h, err := a.svc.CreateHousehold(ctx, args[0])
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Created household #%d %s\n", h.ID, h.Name)
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List households",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				households, err := a.svc.Households(ctx)
				if err != nil {
					return err
				}
				t := newTable("ID", "NAME")
				for _, h := range households {
					t.Row(strconv.FormatInt(int64(h.ID), 10), h.Name)
				}
				fmt.Fprintln(cmd.OutOrStdout(), t)
				return nil
			})
		},
	})

	return cmd
}

func newMemberCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "member",
		Short: "Manage household members",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "add NAME",
		Short: "Add a member to the household",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				hh, err := a.householdID(ctx)
				if err != nil {
					return err
				}
				m, err := a.svc.AddMember(ctx, chores.MemberInput{HouseholdID: hh, Name: args[0]})
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Added member #%d %s\n", m.ID, m.Name)
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List the household's members",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				hh, err := a.householdID(ctx)
				if err != nil {
					return err
				}
				members, err := a.svc.Members(ctx, hh)
				if err != nil {
					return err
				}
				t := newTable("ID", "NAME", "ACTIVE")
				for _, m := range members {
					t.Row(strconv.FormatInt(int64(m.ID), 10), m.Name, strconv.FormatBool(m.Active))
				}
				fmt.Fprintln(cmd.OutOrStdout(), t)
				return nil
			})
		},
	})

	cmd.AddCommand(
		newMemberActiveCmd(opts, "activate", "Let a member take part in rotation again", true),
		newMemberActiveCmd(opts, "deactivate", "Take a member out of every rotation", false),
	)
	return cmd
}

func newMemberActiveCmd(opts *rootOptions, use, short string, active bool) *cobra.Command {
	return &cobra.Command{
		Use:   use + " MEMBER_ID",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				hh, err := a.householdID(ctx)
				if err != nil {
					return err
				}
				if err := a.svc.SetMemberActive(ctx, hh, scheduler.MemberID(id), active); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Member #%d %sd\n", id, use)
				return nil
			})
		},
	}
}
