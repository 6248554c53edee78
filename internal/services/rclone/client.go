// Package rclone wraps the rclone binary that provides all cloud remote
// transport. Low-level transfer retries are delegated to rclone itself; the
// managers layered above treat any final non-zero outcome as failure and
// verify results independently.
package rclone

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"lapse/internal/services"
)

var commandContext = exec.CommandContext

// Client defines the remote operations the pipeline needs.
type Client interface {
	// CopyTo copies a local file to an exact remote path.
	CopyTo(ctx context.Context, src, remotePath string) error
	// List returns the filenames directly under a remote directory. A missing
	// directory yields an empty listing, not an error.
	List(ctx context.Context, remoteDir string) ([]string, error)
	// MD5 returns the remote side's MD5 digest for a single file.
	MD5(ctx context.Context, remotePath string) (string, error)
	// Cat reads a small remote file in full.
	Cat(ctx context.Context, remotePath string) ([]byte, error)
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

// WithRetries sets the transfer retry count passed to rclone.
func WithRetries(retries int) Option {
	return func(c *CLI) {
		if retries > 0 {
			c.retries = retries
		}
	}
}

// WithTimeout bounds each rclone invocation.
func WithTimeout(timeout time.Duration) Option {
	return func(c *CLI) {
		if timeout > 0 {
			c.timeout = timeout
		}
	}
}

// CLI wraps the rclone command-line tool.
type CLI struct {
	binary  string
	retries int
	timeout time.Duration
}

// NewCLI constructs a CLI client using defaults.
func NewCLI(opts ...Option) *CLI {
	cli := &CLI{binary: "rclone", retries: 3, timeout: 5 * time.Minute}
	for _, opt := range opts {
		opt(cli)
	}
	return cli
}

// Join builds a remote path from a remote name and path elements.
func Join(remote string, elems ...string) string {
	parts := make([]string, 0, len(elems))
	for _, elem := range elems {
		if trimmed := strings.Trim(strings.TrimSpace(elem), "/"); trimmed != "" {
			parts = append(parts, trimmed)
		}
	}
	return remote + ":" + strings.Join(parts, "/")
}

func (c *CLI) CopyTo(ctx context.Context, src, remotePath string) error {
	if strings.TrimSpace(src) == "" || strings.TrimSpace(remotePath) == "" {
		return errors.New("source and remote path required")
	}
	args := []string{"copyto", "--retries", strconv.Itoa(c.retries), src, remotePath}
	if _, err := c.run(ctx, args...); err != nil {
		return err
	}
	return nil
}

func (c *CLI) List(ctx context.Context, remoteDir string) ([]string, error) {
	output, err := c.run(ctx, "lsf", "--files-only", remoteDir)
	if err != nil {
		// rclone reports a missing directory as an error; an absent partition
		// is an empty listing for every caller here.
		if strings.Contains(err.Error(), "directory not found") {
			return nil, nil
		}
		return nil, err
	}

	var names []string
	for _, line := range strings.Split(string(output), "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			names = append(names, trimmed)
		}
	}
	return names, nil
}

func (c *CLI) MD5(ctx context.Context, remotePath string) (string, error) {
	output, err := c.run(ctx, "md5sum", remotePath)
	if err != nil {
		return "", err
	}
	for _, line := range strings.Split(string(output), "\n") {
		fields := strings.Fields(line)
		if len(fields) >= 2 {
			return fields[0], nil
		}
	}
	return "", fmt.Errorf("no digest in rclone md5sum output for %s", remotePath)
}

func (c *CLI) Cat(ctx context.Context, remotePath string) ([]byte, error) {
	return c.run(ctx, "cat", remotePath)
}

func (c *CLI) run(ctx context.Context, args ...string) ([]byte, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	cmd := commandContext(ctx, c.binary, args...) //nolint:gosec
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, services.Wrap(services.ErrTimeout, "rclone", args[0], "transfer did not finish in time", ctx.Err())
		}
		detail := strings.TrimSpace(stderr.String())
		if detail == "" {
			detail = "no output"
		}
		return nil, services.Wrap(services.ErrExternalTool, "rclone", args[0], detail, err)
	}
	return stdout.Bytes(), nil
}

var _ Client = (*CLI)(nil)
