package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"lapse/internal/ledger"
)

func newCountCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "count [date]",
		Short: "Count photos per store for a date",
		Long: "Count photos in staging, on the backup volume, and on the cloud remote. " +
			"The backup volume must be reachable; counting against a missing volume fails rather than reporting zero.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			date, err := dateArg(args)
			if err != nil {
				return err
			}
			rep, err := ctx.reporter()
			if err != nil {
				return err
			}
			counts, err := rep.Counts(cmd.Context(), date)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Date", "Staging", "Backup", "Remote"},
				[][]string{{
					counts.Date,
					fmt.Sprint(counts.Staging),
					fmt.Sprint(counts.Backup),
					fmt.Sprint(counts.Remote),
				}},
				[]columnAlignment{alignLeft, alignRight, alignRight, alignRight},
			))
			return nil
		},
	}
}

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show configuration, store counts, and dependency health",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rep, err := ctx.reporter()
			if err != nil {
				return err
			}
			health := rep.Status(cmd.Context(), ctx.configPath)
			out := cmd.OutOrStdout()

			fmt.Fprintf(out, "Config: %s\n", health.ConfigPath)
			fmt.Fprintf(out, "Next sequence: %05d\n\n", health.NextSequence)

			fmt.Fprintln(out, renderTable(
				[]string{"Date", "Staging", "Backup", "Remote"},
				[][]string{{
					health.Counts.Date,
					fmt.Sprint(health.Counts.Staging),
					fmt.Sprint(health.Counts.Backup),
					fmt.Sprint(health.Counts.Remote),
				}},
				[]columnAlignment{alignLeft, alignRight, alignRight, alignRight},
			))

			if len(health.States) > 0 {
				states := make([]string, 0, len(health.States))
				for state := range health.States {
					states = append(states, string(state))
				}
				sort.Strings(states)
				rows := make([][]string, 0, len(states))
				for _, state := range states {
					rows = append(rows, []string{state, fmt.Sprint(health.States[ledger.State(state)])})
				}
				fmt.Fprintln(out, renderTable(
					[]string{"Lifecycle state", "Photos"},
					rows,
					[]columnAlignment{alignLeft, alignRight},
				))
			}

			depRows := make([][]string, 0, len(health.Dependencies))
			for _, dep := range health.Dependencies {
				detail := dep.Detail
				if detail == "" {
					detail = dep.Command
				}
				depRows = append(depRows, []string{dep.Name, yesNo(dep.Available), detail})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Dependency", "Available", "Detail"},
				depRows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft},
			))
			return nil
		},
	}
}
