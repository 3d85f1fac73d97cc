package ytdlp

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

var commandContext = exec.CommandContext

// ListItem is one line of a flat-playlist listing. For playlist URLs each
// item is a track; for channel URLs items with Type "playlist" enumerate the
// channel's playlists.
type ListItem struct {
	ID            string
	Title         string
	URL           string
	Type          string
	PlaylistTitle string
}

// DownloadRequest describes one entry acquisition.
type DownloadRequest struct {
	// URL is the watch URL for a single entry.
	URL string
	// DestDir is the playlist's target folder; the tool groups output by this
	// directory (album-by-folder convention).
	DestDir string

	AudioFormat  string
	AudioQuality string

	EmbedThumbnail bool
	EmbedMetadata  bool
	// WriteSubs also fetches caption sidecars for later lyrics embedding.
	WriteSubs bool
}

// Client defines retrieval tool behaviour.
type Client interface {
	List(ctx context.Context, url string) ([]ListItem, error)
	Download(ctx context.Context, req DownloadRequest) (string, error)
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

// WithFFmpegLocation points the tool at a specific ffmpeg for audio extraction.
func WithFFmpegLocation(path string) Option {
	return func(c *CLI) {
		c.ffmpegLocation = path
	}
}

// WithExtraArgs appends user-configured arguments to every download.
func WithExtraArgs(args string) Option {
	return func(c *CLI) {
		c.extraArgs = strings.Fields(args)
	}
}

// CLI wraps the yt-dlp command-line tool.
type CLI struct {
	binary         string
	ffmpegLocation string
	extraArgs      []string
}

// NewCLI constructs a CLI client using defaults.
func NewCLI(opts ...Option) *CLI {
	cli := &CLI{binary: "yt-dlp"}
	for _, opt := range opts {
		opt(cli)
	}
	return cli
}

// List returns the flat listing for a playlist or channel URL, fully
// materialized. Partial output from a failed invocation is discarded: a
// truncated listing must never be reconciled against.
func (c *CLI) List(ctx context.Context, url string) ([]ListItem, error) {
	if strings.TrimSpace(url) == "" {
		return nil, errors.New("listing url required")
	}

	args := []string{"--flat-playlist", "--dump-json", url}
	cmd := commandContext(ctx, c.binary, args...) //nolint:gosec
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("list %s: %w: %s", url, err, lastLine(stderr.String()))
	}

	var items []ListItem
	scanner := bufio.NewScanner(&stdout)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var payload struct {
			ID            string `json:"id"`
			Title         string `json:"title"`
			URL           string `json:"url"`
			Type          string `json:"_type"`
			PlaylistTitle string `json:"playlist_title"`
			Playlist      string `json:"playlist"`
		}
		if err := json.Unmarshal(line, &payload); err != nil {
			continue
		}
		playlistTitle := payload.PlaylistTitle
		if playlistTitle == "" {
			playlistTitle = payload.Playlist
		}
		items = append(items, ListItem{
			ID:            payload.ID,
			Title:         payload.Title,
			URL:           payload.URL,
			Type:          payload.Type,
			PlaylistTitle: playlistTitle,
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read listing output: %w", err)
	}
	return items, nil
}

// Download fetches one entry's audio into req.DestDir and returns the final
// file path as printed by the tool. Existing files are never overwritten.
func (c *CLI) Download(ctx context.Context, req DownloadRequest) (string, error) {
	if strings.TrimSpace(req.URL) == "" {
		return "", errors.New("entry url required")
	}
	if strings.TrimSpace(req.DestDir) == "" {
		return "", errors.New("destination directory required")
	}
	if err := os.MkdirAll(req.DestDir, 0o755); err != nil {
		return "", fmt.Errorf("create destination directory: %w", err)
	}

	args := []string{
		"--extract-audio",
		"--no-overwrites",
		"--no-playlist",
		"--no-simulate",
		"--print", "after_move:filepath",
	}
	if req.AudioFormat != "" {
		args = append(args, "--audio-format", req.AudioFormat)
	}
	if req.AudioQuality != "" {
		args = append(args, "--audio-quality", req.AudioQuality)
	}
	if req.EmbedThumbnail {
		args = append(args, "--embed-thumbnail")
	}
	if req.EmbedMetadata {
		args = append(args, "--embed-metadata")
	}
	if req.WriteSubs {
		args = append(args, "--write-subs", "--write-auto-subs", "--sub-langs", "en", "--convert-subs", "lrc")
	}
	if c.ffmpegLocation != "" {
		args = append(args, "--ffmpeg-location", c.ffmpegLocation)
	}
	args = append(args, c.extraArgs...)
	args = append(args, "--output", filepath.Join(req.DestDir, "%(title)s.%(ext)s"), req.URL)

	cmd := commandContext(ctx, c.binary, args...) //nolint:gosec
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("download %s: %w: %s", req.URL, err, lastLine(stderr.String()))
	}

	path := lastLine(stdout.String())
	if path == "" {
		return "", fmt.Errorf("download %s: tool reported no output path", req.URL)
	}
	return path, nil
}

// lastLine returns the final non-empty line of tool output, which carries the
// produced file path (or the most relevant error).
func lastLine(output string) string {
	lines := strings.Split(strings.TrimSpace(output), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if line := strings.TrimSpace(lines[i]); line != "" {
			return line
		}
	}
	return ""
}

var _ Client = (*CLI)(nil)
