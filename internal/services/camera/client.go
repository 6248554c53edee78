// Package camera wraps the still-capture binary that drives the attached
// camera hardware.
package camera

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"strings"

	"lapse/internal/services"
)

var commandContext = exec.CommandContext

// Client defines camera capture behaviour.
type Client interface {
	Capture(ctx context.Context, destination string) error
}

// Option configures the CLI client.
type Option func(*CLI)

// WithBinary overrides the default binary name.
func WithBinary(binary string) Option {
	return func(c *CLI) {
		if binary != "" {
			c.binary = binary
		}
	}
}

// WithDevice selects a camera index or device identifier.
func WithDevice(device string) Option {
	return func(c *CLI) {
		c.device = device
	}
}

// WithExtraArgs appends additional arguments to every capture invocation.
func WithExtraArgs(args []string) Option {
	return func(c *CLI) {
		c.extraArgs = append([]string(nil), args...)
	}
}

// CLI wraps a libcamera-still style capture binary.
type CLI struct {
	binary    string
	device    string
	extraArgs []string
}

// NewCLI constructs a CLI client using defaults.
func NewCLI(opts ...Option) *CLI {
	cli := &CLI{binary: "libcamera-still"}
	for _, opt := range opts {
		opt(cli)
	}
	return cli
}

// Capture invokes the camera once, writing the image to destination. The
// provided context bounds the device; a deadline hit is reported as
// services.ErrTimeout, any other non-zero exit as services.ErrExternalTool.
// Whether a file actually appeared at destination is the caller's check.
func (c *CLI) Capture(ctx context.Context, destination string) error {
	if strings.TrimSpace(destination) == "" {
		return errors.New("destination path required")
	}

	args := []string{"-o", destination, "--nopreview"}
	if c.device != "" {
		args = append(args, "--camera", c.device)
	}
	args = append(args, c.extraArgs...)

	cmd := commandContext(ctx, c.binary, args...) //nolint:gosec
	var output bytes.Buffer
	cmd.Stdout = &output
	cmd.Stderr = &output

	err := cmd.Run()
	if err == nil {
		return nil
	}
	if ctx.Err() != nil {
		return services.Wrap(services.ErrTimeout, "camera", "capture", "device did not finish in time", ctx.Err())
	}
	detail := strings.TrimSpace(output.String())
	if detail == "" {
		detail = "no output"
	}
	return services.Wrap(services.ErrExternalTool, "camera", "capture", detail, err)
}

var _ Client = (*CLI)(nil)
