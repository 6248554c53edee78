package mailer

import (
	"context"
	"errors"
	"os/exec"
	"testing"

	"lapse/internal/services"
)

func stubCommand(t *testing.T, fn func(ctx context.Context, name string, args ...string) *exec.Cmd) {
	t.Helper()
	restore := commandContext
	commandContext = fn
	t.Cleanup(func() { commandContext = restore })
}

func TestSendBuildsArgs(t *testing.T) {
	var gotArgs []string
	stubCommand(t, func(ctx context.Context, name string, args ...string) *exec.Cmd {
		gotArgs = args
		return exec.CommandContext(ctx, "cat")
	})

	err := NewCLI().Send(context.Background(),
		"Daily review 2026-08-29",
		"Montage attached.",
		[]string{"/tmp/montage.jpg"},
		[]string{"site@example.com", "ops@example.com"},
	)
	if err != nil {
		t.Fatal(err)
	}

	want := []string{"-s", "Daily review 2026-08-29", "-A", "/tmp/montage.jpg", "site@example.com", "ops@example.com"}
	if len(gotArgs) != len(want) {
		t.Fatalf("args = %v, want %v", gotArgs, want)
	}
	for i := range want {
		if gotArgs[i] != want[i] {
			t.Fatalf("args[%d] = %q, want %q", i, gotArgs[i], want[i])
		}
	}
}

func TestSendWithoutRecipientsIsConfigurationError(t *testing.T) {
	err := NewCLI().Send(context.Background(), "subject", "body", nil, nil)
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestSendSurfacesTransportFailure(t *testing.T) {
	stubCommand(t, func(ctx context.Context, name string, args ...string) *exec.Cmd {
		return exec.CommandContext(ctx, "sh", "-c", "echo 'smtp refused' >&2; exit 1")
	})

	err := NewCLI().Send(context.Background(), "subject", "body", nil, []string{"a@example.com"})
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected external tool error, got %v", err)
	}
}
