package sequence_test

import (
	"context"
	"errors"
	"testing"

	"lapse/internal/logging"
	"lapse/internal/remotepath"
	"lapse/internal/sequence"
	"lapse/internal/testsupport"
)

func TestNextUsesHighestSource(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	mounter := testsupport.NewFakeMounter(t)
	remote := testsupport.NewFakeRemote()

	if err := sequence.WriteCounterFile(cfg.Paths.CounterFile, 5); err != nil {
		t.Fatalf("seed local counter: %v", err)
	}
	handle, _ := mounter.Acquire(context.Background())
	if err := sequence.WriteCounterFile(handle.CounterFile(), 3); err != nil {
		t.Fatalf("seed volume counter: %v", err)
	}
	handle.Release()
	remote.Seed(remotepath.Marker(cfg), []byte("00009\n"))

	auth := sequence.NewAuthority(cfg, remote, mounter, logging.NewNop())
	got := auth.Next(context.Background())
	if got != 9 {
		t.Fatalf("Next() = %d, want 9", got)
	}

	if v := sequence.ReadCounterFile(cfg.Paths.CounterFile); v != 10 {
		t.Errorf("local counter = %d, want 10", v)
	}
	if v := sequence.ReadCounterFile(mounter.Dir + "/sequence.txt"); v != 10 {
		t.Errorf("volume counter = %d, want 10", v)
	}
	raw, err := remote.Cat(context.Background(), remotepath.Marker(cfg))
	if err != nil {
		t.Fatalf("read marker: %v", err)
	}
	if string(raw) != "00010\n" {
		t.Errorf("cloud marker = %q, want %q", raw, "00010\n")
	}
}

func TestNextStartsAtOneWhenEverySourceIsEmpty(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	mounter := testsupport.NewFakeMounter(t)
	remote := testsupport.NewFakeRemote()

	auth := sequence.NewAuthority(cfg, remote, mounter, logging.NewNop())
	if got := auth.Next(context.Background()); got != 1 {
		t.Fatalf("Next() = %d, want 1", got)
	}
	if v := sequence.ReadCounterFile(cfg.Paths.CounterFile); v != 2 {
		t.Errorf("local counter = %d, want 2", v)
	}
}

func TestNextDegradesWhenVolumeAndRemoteUnreachable(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	mounter := testsupport.NewFakeMounter(t)
	mounter.Err = errors.New("no such device")
	remote := testsupport.NewFakeRemote()
	remote.CatErr = errors.New("connection refused")

	if err := sequence.WriteCounterFile(cfg.Paths.CounterFile, 42); err != nil {
		t.Fatalf("seed local counter: %v", err)
	}

	auth := sequence.NewAuthority(cfg, remote, mounter, logging.NewNop())
	if got := auth.Next(context.Background()); got != 42 {
		t.Fatalf("Next() = %d, want 42", got)
	}
	if v := sequence.ReadCounterFile(cfg.Paths.CounterFile); v != 43 {
		t.Errorf("local counter = %d, want 43", v)
	}
}

func TestNextRecoversFloorFromFilenames(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	mounter := testsupport.NewFakeMounter(t)
	remote := testsupport.NewFakeRemote()

	testsupport.WriteFile(t, cfg.Paths.StagingDir+"/00017_2026-08-28_1405.jpg", 64)
	testsupport.WriteFile(t, cfg.Paths.StagingDir+"/00009_2026-08-28_1305.jpg", 64)

	auth := sequence.NewAuthority(cfg, remote, mounter, logging.NewNop())
	if got := auth.Next(context.Background()); got != 18 {
		t.Fatalf("Next() = %d, want 18", got)
	}
}

func TestNextReleasesVolumeHandle(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	mounter := testsupport.NewFakeMounter(t)
	remote := testsupport.NewFakeRemote()

	auth := sequence.NewAuthority(cfg, remote, mounter, logging.NewNop())
	auth.Next(context.Background())

	if mounter.Acquires != mounter.Releases {
		t.Fatalf("acquires = %d, releases = %d, want equal", mounter.Acquires, mounter.Releases)
	}
}

func TestAdvanceMarkerOnlyRaises(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	remote := testsupport.NewFakeRemote()
	remote.Seed(remotepath.Marker(cfg), []byte("00020\n"))

	auth := sequence.NewAuthority(cfg, remote, testsupport.NewFakeMounter(t), logging.NewNop())

	if err := auth.AdvanceMarker(context.Background(), 15); err != nil {
		t.Fatalf("AdvanceMarker: %v", err)
	}
	raw, _ := remote.Cat(context.Background(), remotepath.Marker(cfg))
	if string(raw) != "00020\n" {
		t.Errorf("marker lowered to %q", raw)
	}

	if err := auth.AdvanceMarker(context.Background(), 25); err != nil {
		t.Fatalf("AdvanceMarker: %v", err)
	}
	raw, _ = remote.Cat(context.Background(), remotepath.Marker(cfg))
	if string(raw) != "00025\n" {
		t.Errorf("marker = %q, want %q", raw, "00025\n")
	}
}
