package reconcile_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"lapse/internal/backup"
	"lapse/internal/config"
	"lapse/internal/logging"
	"lapse/internal/photo"
	"lapse/internal/reconcile"
	"lapse/internal/remotepath"
	"lapse/internal/testsupport"
	"lapse/internal/upload"
	"lapse/internal/volume"
)

const testDate = "2026-08-29"

func newReconciler(cfg *config.Config, remote *testsupport.FakeRemote, mounter volume.Mounter, notifier *testsupport.RecordingNotifier) *reconcile.Reconciler {
	uploads := upload.NewManager(cfg, remote, nil, logging.NewNop())
	backups := backup.NewManager(mounter, logging.NewNop())
	return reconcile.NewReconciler(cfg, remote, uploads, backups, mounter, notifier, nil, logging.NewNop())
}

func seedBackup(t *testing.T, mounter *testsupport.FakeMounter, name, content string) string {
	t.Helper()
	dir := filepath.Join(mounter.Dir, "backups", testDate)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write backup: %v", err)
	}
	return path
}

func remotePhotoPath(cfg *config.Config, name string) string {
	seq, _ := photo.ParseSequence(name)
	capturedAt, _ := photo.ParseCaptureTime(name)
	return remotepath.Photo(cfg, photo.Photo{Sequence: seq, CapturedAt: capturedAt})
}

func TestReconcileRepairsAndQuarantines(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	remote := testsupport.NewFakeRemote()
	mounter := testsupport.NewFakeMounter(t)
	notifier := &testsupport.RecordingNotifier{}

	// Three local backups: one already remote, one uploadable, one the
	// cloud keeps rejecting.
	already := "00001_2026-08-29_0900.jpg"
	fresh := "00002_2026-08-29_0930.jpg"
	broken := "00003_2026-08-29_1000.jpg"
	seedBackup(t, mounter, already, "a")
	seedBackup(t, mounter, fresh, "b")
	brokenPath := seedBackup(t, mounter, broken, "c")

	remote.Seed(remotePhotoPath(cfg, already), []byte("a"))
	remote.CorruptMD5[remotePhotoPath(cfg, broken)] = true

	rec := newReconciler(cfg, remote, mounter, notifier)
	report, err := rec.Reconcile(context.Background(), testDate)
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}

	if report.Local != 3 || report.Already != 1 || report.Uploaded != 1 || report.Failed != 1 {
		t.Fatalf("report = %+v, want Local=3 Already=1 Uploaded=1 Failed=1", report)
	}
	if report.Remote != 3 {
		// The corrupt object still landed remotely; the final listing sees it.
		t.Errorf("report.Remote = %d, want 3", report.Remote)
	}
	if _, err := remote.Cat(context.Background(), remotePhotoPath(cfg, fresh)); err != nil {
		t.Errorf("repaired photo missing from remote: %v", err)
	}
	if _, err := os.Stat(filepath.Join(mounter.Dir, "quarantine", broken)); err != nil {
		t.Errorf("rejected photo not quarantined: %v", err)
	}
	if _, err := os.Stat(brokenPath); !os.IsNotExist(err) {
		t.Errorf("rejected photo still in backup partition")
	}
	if !notifier.Has("sync_report: " + testDate) {
		t.Errorf("missing sync report notification, events = %v", notifier.Events)
	}
}

func TestReconcileIsIdempotent(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	remote := testsupport.NewFakeRemote()
	mounter := testsupport.NewFakeMounter(t)
	notifier := &testsupport.RecordingNotifier{}

	name := "00004_2026-08-29_1100.jpg"
	seedBackup(t, mounter, name, "d")

	rec := newReconciler(cfg, remote, mounter, notifier)
	first, err := rec.Reconcile(context.Background(), testDate)
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	second, err := rec.Reconcile(context.Background(), testDate)
	if err != nil {
		t.Fatalf("second Reconcile: %v", err)
	}

	if first.Uploaded != 1 || second.Uploaded != 0 || second.Already != 1 {
		t.Errorf("first = %+v, second = %+v; want upload once then already-synced", first, second)
	}
}

func TestReconcileRequiresVolume(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	mounter := testsupport.NewFakeMounter(t)
	mounter.Err = os.ErrNotExist
	rec := newReconciler(cfg, testsupport.NewFakeRemote(), mounter, &testsupport.RecordingNotifier{})

	if _, err := rec.Reconcile(context.Background(), testDate); err == nil {
		t.Fatal("Reconcile succeeded without a volume")
	}
}

func TestCleanupVerifiedDeletesOnlyConfirmed(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	remote := testsupport.NewFakeRemote()
	mounter := testsupport.NewFakeMounter(t)

	confirmed := "00005_2026-08-29_1200.jpg"
	unconfirmed := "00006_2026-08-29_1230.jpg"
	damaged := "00007_2026-08-29_1300.jpg"
	confirmedPath := seedBackup(t, mounter, confirmed, "e")
	unconfirmedPath := seedBackup(t, mounter, unconfirmed, "f")
	damagedPath := seedBackup(t, mounter, damaged, "g")
	remote.Seed(remotePhotoPath(cfg, confirmed), []byte("e"))
	// Listed remotely but the digest disagrees; presence alone must not
	// release the local copy.
	remote.Seed(remotePhotoPath(cfg, damaged), []byte("g"))
	remote.CorruptMD5[remotePhotoPath(cfg, damaged)] = true

	rec := newReconciler(cfg, remote, mounter, &testsupport.RecordingNotifier{})
	deleted, err := rec.CleanupVerified(context.Background(), testDate)
	if err != nil {
		t.Fatalf("CleanupVerified: %v", err)
	}
	if deleted != 1 {
		t.Errorf("deleted = %d, want 1", deleted)
	}
	if _, err := os.Stat(confirmedPath); !os.IsNotExist(err) {
		t.Errorf("confirmed backup not deleted")
	}
	if _, err := os.Stat(unconfirmedPath); err != nil {
		t.Errorf("unconfirmed backup deleted: %v", err)
	}
	if _, err := os.Stat(damagedPath); err != nil {
		t.Errorf("backup with mismatched remote digest deleted: %v", err)
	}
}

func TestReconcileArchivesLog(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	remote := testsupport.NewFakeRemote()
	mounter := testsupport.NewFakeMounter(t)

	if err := os.MkdirAll(cfg.Paths.LogDir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(cfg.LogFile(), []byte("log line\n"), 0o644); err != nil {
		t.Fatalf("write log: %v", err)
	}

	rec := newReconciler(cfg, remote, mounter, &testsupport.RecordingNotifier{})
	if _, err := rec.Reconcile(context.Background(), testDate); err != nil {
		t.Fatalf("Reconcile: %v", err)
	}

	if _, err := remote.Cat(context.Background(), remotepath.Log(cfg, testDate)); err != nil {
		t.Errorf("log missing from remote: %v", err)
	}
	info, err := os.Stat(cfg.LogFile())
	if err != nil {
		t.Fatalf("stat log: %v", err)
	}
	if info.Size() != 0 {
		t.Errorf("log not truncated after rotation")
	}
}
