package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Playlist source values accepted by Playlists.Source.
const (
	SourceURLs    = "urls"
	SourceFile    = "file"
	SourceChannel = "channel"
)

// Paths contains directory and ledger location configuration.
type Paths struct {
	LibraryDir string `toml:"library_dir"`
	LedgerPath string `toml:"ledger_path"`
	LogDir     string `toml:"log_dir"`
}

// Playlists configures where the set of playlists to synchronize comes from.
type Playlists struct {
	// Source selects the input method: "urls", "file", or "channel".
	Source     string   `toml:"source"`
	URLs       []string `toml:"urls"`
	File       string   `toml:"file"`
	ChannelURL string   `toml:"channel_url"`
}

// Tools contains paths and extra arguments for the external tools.
type Tools struct {
	YtdlpPath  string `toml:"ytdlp_path"`
	FFmpegPath string `toml:"ffmpeg_path"`
	ExtraArgs  string `toml:"extra_args"`
}

// Output configures the produced audio files and their metadata.
type Output struct {
	AudioFormat         string `toml:"audio_format"`
	AudioQuality        string `toml:"audio_quality"`
	TranscodeFormat     string `toml:"transcode_format"`
	EmbedThumbnail      bool   `toml:"embed_thumbnail"`
	EmbedSourceMetadata bool   `toml:"embed_source_metadata"`
	WriteLyrics         bool   `toml:"write_lyrics"`
	AlbumArtist         string `toml:"album_artist"`
}

// Sync contains acquisition concurrency, timeout, and retry tunables.
// Durations are expressed in seconds unless noted otherwise.
type Sync struct {
	Workers            int     `toml:"workers"`
	RateLimitPerSecond float64 `toml:"rate_limit_per_second"`
	ToolTimeout        int     `toml:"tool_timeout"`
	ListTimeout        int     `toml:"list_timeout"`
	RetryCeiling       int     `toml:"retry_ceiling"`
	RetryBaseDelay     int     `toml:"retry_base_delay"`
	RetryMaxDelay      int     `toml:"retry_max_delay"`
	IntervalHours      int     `toml:"interval_hours"`
	MinFreeMB          int     `toml:"min_free_mb"`
}

// Notifications contains configuration for ntfy push notifications.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for playsync.
type Config struct {
	Paths         Paths         `toml:"paths"`
	Playlists     Playlists     `toml:"playlists"`
	Tools         Tools         `toml:"tools"`
	Output        Output        `toml:"output"`
	Sync          Sync          `toml:"sync"`
	Notifications Notifications `toml:"notifications"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/playsync/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned
// config has all path fields expanded and normalized. The second return value
// is the resolved path; the third reports whether a file existed there.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("playsync.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the directories a run needs. The library directory
// is created on a best-effort basis so the runner can start while external
// storage is temporarily unavailable; the acquisition path surfaces the real
// error per entry.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.LogDir, filepath.Dir(c.Paths.LedgerPath)} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	if strings.TrimSpace(c.Paths.LibraryDir) != "" {
		_ = os.MkdirAll(c.Paths.LibraryDir, 0o755)
	}
	return nil
}

// ToolTimeout returns the per-invocation timeout for the retrieval and
// transcoding tools.
func (c *Config) ToolTimeout() time.Duration {
	return time.Duration(c.Sync.ToolTimeout) * time.Second
}

// ListTimeout returns the timeout for remote playlist listings.
func (c *Config) ListTimeout() time.Duration {
	return time.Duration(c.Sync.ListTimeout) * time.Second
}

// Interval returns the pause between passes in continuous mode.
func (c *Config) Interval() time.Duration {
	return time.Duration(c.Sync.IntervalHours) * time.Hour
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
