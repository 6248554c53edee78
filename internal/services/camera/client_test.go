package camera

import (
	"context"
	"errors"
	"os/exec"
	"testing"
	"time"

	"lapse/internal/services"
)

func stubCommand(t *testing.T, fn func(ctx context.Context, name string, args ...string) *exec.Cmd) {
	t.Helper()
	restore := commandContext
	commandContext = fn
	t.Cleanup(func() { commandContext = restore })
}

func TestCaptureBuildsExpectedArgs(t *testing.T) {
	var gotName string
	var gotArgs []string
	stubCommand(t, func(ctx context.Context, name string, args ...string) *exec.Cmd {
		gotName = name
		gotArgs = args
		return exec.CommandContext(ctx, "true")
	})

	cli := NewCLI(WithBinary("fswebcam"), WithDevice("1"), WithExtraArgs([]string{"--width", "1920"}))
	if err := cli.Capture(context.Background(), "/tmp/out.jpg"); err != nil {
		t.Fatal(err)
	}

	if gotName != "fswebcam" {
		t.Fatalf("binary = %s", gotName)
	}
	want := []string{"-o", "/tmp/out.jpg", "--nopreview", "--camera", "1", "--width", "1920"}
	if len(gotArgs) != len(want) {
		t.Fatalf("args = %v, want %v", gotArgs, want)
	}
	for i := range want {
		if gotArgs[i] != want[i] {
			t.Fatalf("args[%d] = %s, want %s", i, gotArgs[i], want[i])
		}
	}
}

func TestCaptureRequiresDestination(t *testing.T) {
	if err := NewCLI().Capture(context.Background(), "  "); err == nil {
		t.Fatal("expected error for empty destination")
	}
}

func TestCaptureClassifiesDeviceError(t *testing.T) {
	stubCommand(t, func(ctx context.Context, name string, args ...string) *exec.Cmd {
		return exec.CommandContext(ctx, "false")
	})

	err := NewCLI().Capture(context.Background(), "/tmp/out.jpg")
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected external tool error, got %v", err)
	}
}

func TestCaptureClassifiesTimeout(t *testing.T) {
	stubCommand(t, func(ctx context.Context, name string, args ...string) *exec.Cmd {
		return exec.CommandContext(ctx, "sleep", "5")
	})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	err := NewCLI().Capture(ctx, "/tmp/out.jpg")
	if !errors.Is(err, services.ErrTimeout) {
		t.Fatalf("expected timeout error, got %v", err)
	}
}
