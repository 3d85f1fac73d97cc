package ffmpeg

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
)

func TestTranscodeRequiresInputAndFormat(t *testing.T) {
	cli := NewCLI()
	if _, err := cli.Transcode(context.Background(), "", "opus"); err == nil {
		t.Fatal("expected error when input path is empty")
	}
	if _, err := cli.Transcode(context.Background(), "/x/y.mp3", ""); err == nil {
		t.Fatal("expected error when format is empty")
	}
}

func TestTranscodeNoopOnMatchingExtension(t *testing.T) {
	cli := NewCLI()
	got, err := cli.Transcode(context.Background(), "/library/Road Trip/Song A.opus", "opus")
	if err != nil {
		t.Fatalf("Transcode returned error: %v", err)
	}
	if got != "/library/Road Trip/Song A.opus" {
		t.Fatalf("expected no-op path, got %q", got)
	}
}

func TestTranscodeProducesOutputAndRemovesInput(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "Song A.mp3")
	if err := os.WriteFile(input, []byte("mp3 payload"), 0o644); err != nil {
		t.Fatalf("write input: %v", err)
	}

	var captured []string
	original := commandContext
	commandContext = func(ctx context.Context, name string, args ...string) *exec.Cmd {
		captured = append([]string(nil), args...)
		// The stub writes the expected output file itself, standing in for a
		// successful tool run.
		output := args[len(args)-1]
		if err := os.WriteFile(output, []byte("opus payload"), 0o644); err != nil {
			t.Fatalf("stub write output: %v", err)
		}
		return exec.CommandContext(ctx, "true")
	}
	t.Cleanup(func() { commandContext = original })

	cli := NewCLI()
	got, err := cli.Transcode(context.Background(), input, "opus")
	if err != nil {
		t.Fatalf("Transcode returned error: %v", err)
	}
	want := filepath.Join(dir, "Song A.opus")
	if got != want {
		t.Fatalf("unexpected output path: got %q want %q", got, want)
	}
	if _, err := os.Stat(input); !os.IsNotExist(err) {
		t.Fatal("expected pre-transcode file to be removed")
	}
	joined := strings.Join(captured, " ")
	if !strings.Contains(joined, "-n ") && !strings.Contains(joined, " -n") {
		t.Fatalf("expected never-overwrite flag in args %v", captured)
	}
}

func TestTranscodeFailureCleansPartialOutput(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "Song A.mp3")
	if err := os.WriteFile(input, []byte("mp3 payload"), 0o644); err != nil {
		t.Fatalf("write input: %v", err)
	}

	original := commandContext
	commandContext = func(ctx context.Context, name string, args ...string) *exec.Cmd {
		output := args[len(args)-1]
		_ = os.WriteFile(output, []byte("partial"), 0o644)
		return exec.CommandContext(ctx, "false")
	}
	t.Cleanup(func() { commandContext = original })

	cli := NewCLI()
	if _, err := cli.Transcode(context.Background(), input, "opus"); err == nil {
		t.Fatal("expected error from failing tool")
	}
	if _, err := os.Stat(filepath.Join(dir, "Song A.opus")); !os.IsNotExist(err) {
		t.Fatal("expected partial output to be removed")
	}
	if _, err := os.Stat(input); err != nil {
		t.Fatal("input must be preserved on failure")
	}
}
