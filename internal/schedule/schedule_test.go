package schedule

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"lapse/internal/logging"
	"lapse/internal/testsupport"
)

func TestRenderProducesCaptureAndDailyLines(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Schedule.IntervalMinutes = 10
	cfg.Schedule.StartHour = 7
	cfg.Schedule.StopHour = 19
	cfg.Schedule.SyncTime = "20:30"
	cfg.Schedule.MontageTime = "21:00"
	cfg.Schedule.CleanupTime = "22:15"
	cfg.Schedule.Executable = "/usr/local/bin/lapse"

	content, err := NewScheduler(cfg, logging.NewNop()).Render()
	if err != nil {
		t.Fatalf("Render: %v", err)
	}

	for _, want := range []string{
		"*/10 7-19 * * * /usr/local/bin/lapse capture",
		"30 20 * * * /usr/local/bin/lapse end_of_day_sync",
		"0 21 * * * /usr/local/bin/lapse create_daily_montage",
		"15 22 * * * /usr/local/bin/lapse cleanup_directories",
	} {
		if !strings.Contains(content, want) {
			t.Errorf("crontab missing line %q:\n%s", want, content)
		}
	}
}

func TestRenderRejectsMalformedClock(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Schedule.SyncTime = "25:99"

	if _, err := NewScheduler(cfg, logging.NewNop()).Render(); err == nil {
		t.Fatal("Render accepted malformed clock")
	}
}

func TestWriteReplacesFileWholesale(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	sched := NewScheduler(cfg, logging.NewNop())

	if err := os.MkdirAll(filepath.Dir(cfg.Schedule.CrontabPath), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(cfg.Schedule.CrontabPath, []byte("# stale manual entry\n"), 0o644); err != nil {
		t.Fatalf("seed stale crontab: %v", err)
	}

	if _, err := sched.Write(); err != nil {
		t.Fatalf("Write: %v", err)
	}
	data, err := os.ReadFile(cfg.Schedule.CrontabPath)
	if err != nil {
		t.Fatalf("read crontab: %v", err)
	}
	if strings.Contains(string(data), "stale manual entry") {
		t.Error("stale content survived regeneration")
	}
}

func TestInstallInvokesCrontab(t *testing.T) {
	cfg := testsupport.NewConfig(t)

	var gotArgs []string
	orig := commandContext
	commandContext = func(ctx context.Context, name string, args ...string) *exec.Cmd {
		gotArgs = append([]string{name}, args...)
		return exec.CommandContext(ctx, "true")
	}
	defer func() { commandContext = orig }()

	if err := NewScheduler(cfg, logging.NewNop()).Install(context.Background()); err != nil {
		t.Fatalf("Install: %v", err)
	}
	if len(gotArgs) != 2 || gotArgs[0] != "crontab" || gotArgs[1] != cfg.Schedule.CrontabPath {
		t.Errorf("crontab invocation = %v", gotArgs)
	}
}
