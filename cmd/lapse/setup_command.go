package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"lapse/internal/config"
	"lapse/internal/schedule"
)

func newSetupCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:         "setup",
		Short:       "Write the sample configuration and install the capture schedule",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			var path string
			if ctx.configFlag != nil {
				path = strings.TrimSpace(*ctx.configFlag)
			}
			if path == "" {
				defaultPath, err := config.DefaultConfigPath()
				if err != nil {
					return err
				}
				path = defaultPath
			}

			if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
				if err := config.CreateSample(path); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Wrote sample configuration to %s\n", path)
				fmt.Fprintln(cmd.OutOrStdout(), "Fill in remote.name (an rclone remote) and rerun setup to install the schedule.")
				return nil
			}

			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Configuration loaded from %s\n", ctx.configPath)

			sched := schedule.NewScheduler(cfg, ctx.ensureLogger())
			if err := sched.Install(cmd.Context()); err != nil {
				crontabPath, writeErr := sched.Write()
				if writeErr != nil {
					return writeErr
				}
				fmt.Fprintf(cmd.OutOrStdout(),
					"Schedule written to %s but not installed (%v); load it manually with: crontab %s\n",
					crontabPath, err, crontabPath)
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Schedule installed: capture every %d minutes between %02d:00 and %02d:00\n",
				cfg.Schedule.IntervalMinutes, cfg.Schedule.StartHour, cfg.Schedule.StopHour)
			return nil
		},
	}
}

func newChangeIntervalCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:         "change-interval <minutes>",
		Short:       "Change the capture interval and reinstall the schedule",
		Args:        cobra.ExactArgs(1),
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			minutes, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("interval must be a number of minutes, got %q", args[0])
			}

			var path string
			if ctx.configFlag != nil {
				path = strings.TrimSpace(*ctx.configFlag)
			}
			if err := config.UpdateInterval(path, minutes); err != nil {
				return err
			}

			cfg, resolvedPath, _, err := config.Load(path)
			if err != nil {
				return fmt.Errorf("interval updated, but config is not loadable: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Capture interval set to %d minutes in %s\n", minutes, resolvedPath)

			sched := schedule.NewScheduler(cfg, ctx.ensureLogger())
			if err := sched.Install(cmd.Context()); err != nil {
				return fmt.Errorf("interval updated, but schedule install failed: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Schedule reinstalled.")
			return nil
		},
	}
}
