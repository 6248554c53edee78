package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"lapse/internal/logging"
	"lapse/internal/photo"
)

func newCaptureCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:     "capture",
		Aliases: []string{"start"},
		Short:   "Capture one photo and push it through upload and backup",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			runner, err := ctx.pipelineRunner()
			if err != nil {
				return err
			}
			return runner.Run(cmd.Context())
		},
	}
}

func newSyncCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "end_of_day_sync [date]",
		Short: "Reconcile the day's backups against the cloud store",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			date, err := dateArg(args)
			if err != nil {
				return err
			}
			rec, err := ctx.reconciler()
			if err != nil {
				return err
			}
			report, err := rec.Reconcile(cmd.Context(), date)
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Date", "Local", "Remote", "Already", "Uploaded", "Failed"},
				[][]string{{
					report.Date,
					fmt.Sprint(report.Local),
					fmt.Sprint(report.Remote),
					fmt.Sprint(report.Already),
					fmt.Sprint(report.Uploaded),
					fmt.Sprint(report.Failed),
				}},
				[]columnAlignment{alignLeft, alignRight, alignRight, alignRight, alignRight, alignRight},
			))
			return nil
		},
	}
}

func newMontageCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "create_daily_montage [date]",
		Short: "Assemble and deliver the day's review montage",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			date, err := dateArg(args)
			if err != nil {
				return err
			}
			builder := ctx.montageBuilder(ctx.volumeManager(), ctx.remote(), ctx.notifier())
			return builder.BuildDaily(cmd.Context(), date)
		},
	}
}

func newCleanupCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "cleanup_directories [date]",
		Short: "Delete local backups confirmed on the cloud store and prune old logs",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			date, err := dateArg(args)
			if err != nil {
				return err
			}
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			rec, err := ctx.reconciler()
			if err != nil {
				return err
			}
			deleted, err := rec.CleanupVerified(cmd.Context(), date)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d verified local backups for %s\n", deleted, date)

			logging.CleanupOldLogs(ctx.ensureLogger(), cfg.Logging.RetentionDays,
				logging.RetentionTarget{Dir: cfg.Paths.LogDir, Pattern: "lapse-*.log"})
			if store := ctx.ensureLedger(); store != nil && cfg.Logging.RetentionDays > 0 {
				cutoff := time.Now().AddDate(0, 0, -cfg.Logging.RetentionDays)
				if _, err := store.Prune(cmd.Context(), cutoff); err != nil {
					ctx.ensureLogger().Warn("ledger prune failed", logging.Error(err))
				}
			}
			return nil
		},
	}
}

func dateArg(args []string) (string, error) {
	if len(args) == 0 {
		return photo.DatePart(time.Now()), nil
	}
	if _, err := time.ParseInLocation("2006-01-02", args[0], time.Local); err != nil {
		return "", fmt.Errorf("date must be YYYY-MM-DD, got %q", args[0])
	}
	return args[0], nil
}
