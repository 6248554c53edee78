package report_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"lapse/internal/config"
	"lapse/internal/logging"
	"lapse/internal/report"
	"lapse/internal/testsupport"
)

const testDate = "2026-08-29"

func seedStaging(t *testing.T, cfg *config.Config, names ...string) {
	t.Helper()
	for _, name := range names {
		testsupport.WriteFile(t, filepath.Join(cfg.Paths.StagingDir, name), 16)
	}
}

func TestCountsAcrossStores(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	remote := testsupport.NewFakeRemote()
	mounter := testsupport.NewFakeMounter(t)

	seedStaging(t, cfg, "00001_2026-08-29_0900.jpg", "not-a-photo.txt")
	backupDir := filepath.Join(mounter.Dir, "backups", testDate)
	if err := os.MkdirAll(backupDir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	testsupport.WriteFile(t, filepath.Join(backupDir, "00002_2026-08-29_0930.jpg"), 16)
	testsupport.WriteFile(t, filepath.Join(backupDir, "00003_2026-08-29_1000.jpg"), 16)
	remote.Seed("testremote:lapse/Test Project/Daily Photos/August-2026/2026-08-29/00002_2026-08-29_0930.jpg", []byte("x"))

	rep := report.NewReporter(cfg, remote, mounter, nil, logging.NewNop())
	counts, err := rep.Counts(context.Background(), testDate)
	if err != nil {
		t.Fatalf("Counts: %v", err)
	}
	if counts.Staging != 1 || counts.Backup != 2 || counts.Remote != 1 {
		t.Errorf("counts = %+v, want Staging=1 Backup=2 Remote=1", counts)
	}
}

func TestCountsFailWithoutVolume(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	mounter := testsupport.NewFakeMounter(t)
	mounter.Err = errors.New("no such device")

	rep := report.NewReporter(cfg, testsupport.NewFakeRemote(), mounter, nil, logging.NewNop())
	if _, err := rep.Counts(context.Background(), testDate); err == nil {
		t.Fatal("Counts succeeded without a volume")
	}
}

func TestStatusDegradesWithoutVolume(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	mounter := testsupport.NewFakeMounter(t)
	mounter.Err = errors.New("no such device")

	rep := report.NewReporter(cfg, testsupport.NewFakeRemote(), mounter, nil, logging.NewNop())
	health := rep.Status(context.Background(), "/tmp/lapse.toml")

	if health.ConfigPath != "/tmp/lapse.toml" {
		t.Errorf("config path = %q", health.ConfigPath)
	}
	if len(health.Dependencies) == 0 {
		t.Error("dependency checks missing from status")
	}
}
