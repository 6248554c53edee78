package imaging

import (
	"context"
	"os/exec"
	"strings"
	"testing"
)

func stubCommand(t *testing.T, fn func(ctx context.Context, name string, args ...string) *exec.Cmd) {
	t.Helper()
	restore := commandContext
	commandContext = fn
	t.Cleanup(func() { commandContext = restore })
}

func TestThumbnailIncludesLabelAnnotation(t *testing.T) {
	var gotArgs []string
	stubCommand(t, func(ctx context.Context, name string, args ...string) *exec.Cmd {
		gotArgs = args
		return exec.CommandContext(ctx, "true")
	})

	err := NewCLI().Thumbnail(context.Background(), "/tmp/a.jpg", "/tmp/thumb.jpg", "14:05")
	if err != nil {
		t.Fatal(err)
	}
	joined := strings.Join(gotArgs, " ")
	if !strings.Contains(joined, "-annotate +0+4  14:05 ") {
		t.Fatalf("missing label annotation in args: %v", gotArgs)
	}
	if gotArgs[0] != "/tmp/a.jpg" || gotArgs[len(gotArgs)-1] != "/tmp/thumb.jpg" {
		t.Fatalf("unexpected input/output ordering: %v", gotArgs)
	}
}

func TestThumbnailWithoutLabelSkipsAnnotation(t *testing.T) {
	var gotArgs []string
	stubCommand(t, func(ctx context.Context, name string, args ...string) *exec.Cmd {
		gotArgs = args
		return exec.CommandContext(ctx, "true")
	})

	if err := NewCLI().Thumbnail(context.Background(), "a.jpg", "b.jpg", ""); err != nil {
		t.Fatal(err)
	}
	if strings.Contains(strings.Join(gotArgs, " "), "-annotate") {
		t.Fatalf("unexpected annotation args: %v", gotArgs)
	}
}

func TestMontageTilesSixWide(t *testing.T) {
	var gotArgs []string
	stubCommand(t, func(ctx context.Context, name string, args ...string) *exec.Cmd {
		gotArgs = args
		return exec.CommandContext(ctx, "true")
	})

	inputs := []string{"t1.jpg", "t2.jpg", "t3.jpg"}
	err := NewCLI().Montage(context.Background(), inputs, "/tmp/montage.jpg", "Rooftop 2026-08-29", 6)
	if err != nil {
		t.Fatal(err)
	}

	if gotArgs[0] != "montage" {
		t.Fatalf("expected montage subcommand, got %v", gotArgs)
	}
	joined := strings.Join(gotArgs, " ")
	if !strings.Contains(joined, "-tile 6x") {
		t.Fatalf("missing tile spec: %v", gotArgs)
	}
	if !strings.Contains(joined, "-title Rooftop 2026-08-29") {
		t.Fatalf("missing heading: %v", gotArgs)
	}
}

func TestMontageRequiresInputs(t *testing.T) {
	if err := NewCLI().Montage(context.Background(), nil, "out.jpg", "x", 6); err == nil {
		t.Fatal("expected error for empty inputs")
	}
}
