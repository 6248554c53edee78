// Package mailer wraps the system mail command used to deliver daily
// montages and test messages to configured recipients.
package mailer

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"strings"

	"lapse/internal/services"
)

var commandContext = exec.CommandContext

// Client defines outbound mail behaviour.
type Client interface {
	Send(ctx context.Context, subject, body string, attachments, recipients []string) error
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

// CLI wraps a mailx-compatible mail binary.
type CLI struct {
	binary string
}

// NewCLI constructs a CLI client using defaults.
func NewCLI(opts ...Option) *CLI {
	cli := &CLI{binary: "mail"}
	for _, opt := range opts {
		opt(cli)
	}
	return cli
}

// Send delivers one message. Missing recipients is a configuration error,
// not a transport failure.
func (c *CLI) Send(ctx context.Context, subject, body string, attachments, recipients []string) error {
	if len(recipients) == 0 {
		return services.Wrap(services.ErrConfiguration, "mailer", "send", "no recipients configured", nil)
	}
	if strings.TrimSpace(subject) == "" {
		return errors.New("subject required")
	}

	args := []string{"-s", subject}
	for _, attachment := range attachments {
		if strings.TrimSpace(attachment) != "" {
			args = append(args, "-A", attachment)
		}
	}
	args = append(args, recipients...)

	cmd := commandContext(ctx, c.binary, args...) //nolint:gosec
	cmd.Stdin = strings.NewReader(body)
	var output bytes.Buffer
	cmd.Stdout = &output
	cmd.Stderr = &output

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return services.Wrap(services.ErrTimeout, "mailer", "send", "mail did not finish in time", ctx.Err())
		}
		detail := strings.TrimSpace(output.String())
		if detail == "" {
			detail = "no output"
		}
		return services.Wrap(services.ErrExternalTool, "mailer", "send", detail, err)
	}
	return nil
}

var _ Client = (*CLI)(nil)
