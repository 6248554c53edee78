// Package imaging wraps ImageMagick for thumbnail derivation and daily
// montage assembly.
package imaging

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"lapse/internal/services"
)

var commandContext = exec.CommandContext

// ThumbnailSize is the fixed geometry for derived thumbnails.
const ThumbnailSize = "320x240"

// Client defines the image derivation behaviour the montage builder needs.
type Client interface {
	// Thumbnail writes a fixed-size derived image with a clock label overlay.
	Thumbnail(ctx context.Context, src, dst, label string) error
	// Montage tiles the inputs into a single contact sheet with a heading.
	Montage(ctx context.Context, inputs []string, dst, heading string, tileWidth int) error
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

// CLI wraps the ImageMagick command-line tools.
type CLI struct {
	binary string
}

// NewCLI constructs a CLI client using defaults.
func NewCLI(opts ...Option) *CLI {
	cli := &CLI{binary: "magick"}
	for _, opt := range opts {
		opt(cli)
	}
	return cli
}

func (c *CLI) Thumbnail(ctx context.Context, src, dst, label string) error {
	if src == "" || dst == "" {
		return errors.New("source and destination required")
	}
	args := []string{
		src,
		"-auto-orient",
		"-thumbnail", ThumbnailSize + "^",
		"-gravity", "center",
		"-extent", ThumbnailSize,
	}
	if label != "" {
		args = append(args,
			"-gravity", "south",
			"-fill", "white",
			"-undercolor", "#00000080",
			"-pointsize", "22",
			"-annotate", "+0+4", " "+label+" ",
		)
	}
	args = append(args, dst)
	return c.run(ctx, "thumbnail", args...)
}

func (c *CLI) Montage(ctx context.Context, inputs []string, dst, heading string, tileWidth int) error {
	if len(inputs) == 0 {
		return errors.New("at least one input required")
	}
	if dst == "" {
		return errors.New("destination required")
	}
	if tileWidth < 1 {
		tileWidth = 1
	}

	args := []string{"montage"}
	args = append(args, inputs...)
	args = append(args,
		"-tile", fmt.Sprintf("%dx", tileWidth),
		"-geometry", "+2+2",
		"-background", "black",
		"-fill", "white",
		"-title", heading,
		dst,
	)
	return c.run(ctx, "montage", args...)
}

func (c *CLI) run(ctx context.Context, operation string, args ...string) error {
	cmd := commandContext(ctx, c.binary, args...) //nolint:gosec
	var output bytes.Buffer
	cmd.Stdout = &output
	cmd.Stderr = &output

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return services.Wrap(services.ErrTimeout, "imaging", operation, "imagemagick did not finish in time", ctx.Err())
		}
		detail := strings.TrimSpace(output.String())
		if detail == "" {
			detail = "no output"
		}
		return services.Wrap(services.ErrExternalTool, "imaging", operation, detail, err)
	}
	return nil
}

var _ Client = (*CLI)(nil)
