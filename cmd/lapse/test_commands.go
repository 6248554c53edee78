package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"lapse/internal/services/rclone"
	"lapse/internal/volume"
)

func newTestCommands(ctx *commandContext) []*cobra.Command {
	checks := []struct {
		use   string
		short string
		run   func(context.Context, *commandContext) error
	}{
		{"test-camera", "Capture a throwaway photo to verify the camera", testCamera},
		{"test-upload", "Round-trip a probe file through the cloud remote", testUpload},
		{"test-email", "Send a test mail to the configured recipients", testEmail},
		{"test-usb", "Mount and release the backup volume", testUSB},
		{"test-usb-write", "Verify the backup volume accepts writes", testUSBWrite},
		{"test-backup-failure", "Exercise the insistent backup failure alert", testBackupFailure},
	}

	commands := make([]*cobra.Command, 0, len(checks)+1)
	for _, check := range checks {
		run := check.run
		commands = append(commands, &cobra.Command{
			Use:   check.use,
			Short: check.short,
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				if err := run(cmd.Context(), ctx); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "OK")
				return nil
			},
		})
	}

	commands = append(commands, &cobra.Command{
		Use:   "test-all",
		Short: "Run every self-test and summarize the results",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rows := make([][]string, 0, len(checks)+1)
			failures := 0
			for _, check := range checks {
				detail := ""
				err := check.run(cmd.Context(), ctx)
				if err != nil {
					failures++
					detail = err.Error()
				}
				rows = append(rows, []string{check.use, yesNo(err == nil), detail})
			}

			notifyErr := ctx.notifier().TestNotification(cmd.Context())
			detail := ""
			if notifyErr != nil {
				failures++
				detail = notifyErr.Error()
			}
			rows = append(rows, []string{"test-notify", yesNo(notifyErr == nil), detail})

			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Check", "Passed", "Detail"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft},
			))
			if failures > 0 {
				return fmt.Errorf("%d of %d checks failed", failures, len(rows))
			}
			return nil
		},
	})
	return commands
}

func testCamera(ctx context.Context, c *commandContext) error {
	dst := filepath.Join(os.TempDir(), fmt.Sprintf("lapse-test-%d.jpg", time.Now().UnixNano()))
	defer os.Remove(dst)

	if err := c.cameraClient().Capture(ctx, dst); err != nil {
		return err
	}
	info, err := os.Stat(dst)
	if err != nil {
		return fmt.Errorf("camera reported success but wrote no file: %w", err)
	}
	if info.Size() == 0 {
		return errors.New("camera wrote an empty file")
	}
	return nil
}

func testUpload(ctx context.Context, c *commandContext) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}

	probe := filepath.Join(os.TempDir(), fmt.Sprintf("lapse-probe-%d.txt", time.Now().UnixNano()))
	payload := []byte(time.Now().Format(time.RFC3339Nano) + "\n")
	if err := os.WriteFile(probe, payload, 0o644); err != nil {
		return err
	}
	defer os.Remove(probe)

	remote := c.remote()
	dest := rclone.Join(cfg.Remote.Name, cfg.Remote.BaseDir, cfg.Project.Name, "upload_probe.txt")
	if err := remote.CopyTo(ctx, probe, dest); err != nil {
		return err
	}
	echoed, err := remote.Cat(ctx, dest)
	if err != nil {
		return fmt.Errorf("probe uploaded but not readable back: %w", err)
	}
	if string(echoed) != string(payload) {
		return errors.New("probe content changed in transit")
	}
	return nil
}

func testEmail(ctx context.Context, c *commandContext) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	subject := fmt.Sprintf("%s test mail", cfg.Project.Name)
	return c.mailClient().Send(ctx, subject, "Test mail from lapse.\n", nil, cfg.Mail.Recipients)
}

func testUSB(ctx context.Context, c *commandContext) error {
	mgr := c.volumeManager()
	if _, err := mgr.Detect(ctx); err != nil {
		return err
	}
	handle, err := mgr.Acquire(ctx)
	if err != nil {
		return err
	}
	handle.Release()
	return nil
}

func testUSBWrite(ctx context.Context, c *commandContext) error {
	handle, err := c.volumeManager().Acquire(ctx)
	if err != nil {
		return err
	}
	defer handle.Release()
	return volume.WriteProbe(handle.Root())
}

func testBackupFailure(ctx context.Context, c *commandContext) error {
	return c.notifier().NotifyBackupFailed(ctx, "00000_0000-00-00_0000.jpg",
		errors.New("simulated backup failure"))
}
