// Package ffmpeg wraps the external transcoding tool. Transcoding is an
// optional second pass after retrieval; acquisition counts as successful only
// when both steps succeed.
package ffmpeg

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
)

var commandContext = exec.CommandContext

// Client defines transcoding behaviour.
type Client interface {
	Transcode(ctx context.Context, inputPath, format string) (string, error)
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

// CLI wraps the ffmpeg command-line tool.
type CLI struct {
	binary string
}

// NewCLI constructs a CLI client using defaults.
func NewCLI(opts ...Option) *CLI {
	cli := &CLI{binary: "ffmpeg"}
	for _, opt := range opts {
		opt(cli)
	}
	return cli
}

// Transcode converts inputPath to the given audio format next to the
// original, removes the original on success, and returns the new path. When
// the input already has the target extension the call is a no-op.
func (c *CLI) Transcode(ctx context.Context, inputPath, format string) (string, error) {
	if strings.TrimSpace(inputPath) == "" {
		return "", errors.New("input path required")
	}
	format = strings.ToLower(strings.TrimSpace(format))
	if format == "" {
		return "", errors.New("target format required")
	}

	dot := strings.LastIndex(inputPath, ".")
	if dot <= 0 {
		return "", fmt.Errorf("input path %q has no extension", inputPath)
	}
	if strings.ToLower(inputPath[dot+1:]) == format {
		return inputPath, nil
	}
	outputPath := inputPath[:dot+1] + format

	args := []string{"-hide_banner", "-loglevel", "error", "-n", "-i", inputPath, "-vn", outputPath}
	cmd := commandContext(ctx, c.binary, args...) //nolint:gosec
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		_ = os.Remove(outputPath)
		return "", fmt.Errorf("transcode %s: %w: %s", inputPath, err, strings.TrimSpace(stderr.String()))
	}

	info, err := os.Stat(outputPath)
	if err != nil || info.Size() == 0 {
		_ = os.Remove(outputPath)
		return "", fmt.Errorf("transcode %s: tool produced no output", inputPath)
	}

	if err := os.Remove(inputPath); err != nil {
		return "", fmt.Errorf("remove pre-transcode file: %w", err)
	}
	return outputPath, nil
}

var _ Client = (*CLI)(nil)
