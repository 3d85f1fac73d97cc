package config

import (
	"errors"
	"fmt"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validatePlaylists(); err != nil {
		return err
	}
	if err := c.validateTools(); err != nil {
		return err
	}
	if err := c.validateSync(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validatePaths() error {
	if c.Paths.LibraryDir == "" {
		return errors.New("paths.library_dir must be set")
	}
	if c.Paths.LedgerPath == "" {
		return errors.New("paths.ledger_path must be set")
	}
	return nil
}

func (c *Config) validatePlaylists() error {
	switch c.Playlists.Source {
	case SourceURLs:
		if len(c.Playlists.URLs) == 0 {
			return errors.New("playlists.urls must list at least one playlist when playlists.source is \"urls\"")
		}
	case SourceFile:
		if c.Playlists.File == "" {
			return errors.New("playlists.file must be set when playlists.source is \"file\"")
		}
	case SourceChannel:
		if c.Playlists.ChannelURL == "" {
			return errors.New("playlists.channel_url must be set when playlists.source is \"channel\"")
		}
	default:
		return fmt.Errorf("playlists.source: unsupported value %q (expected urls, file, or channel)", c.Playlists.Source)
	}
	return nil
}

func (c *Config) validateTools() error {
	if c.Tools.YtdlpPath == "" {
		return errors.New("tools.ytdlp_path must be set")
	}
	if c.Output.TranscodeFormat != "" && c.Tools.FFmpegPath == "" {
		return errors.New("tools.ffmpeg_path must be set when output.transcode_format is configured")
	}
	return nil
}

func (c *Config) validateSync() error {
	if c.Sync.Workers > 8 {
		return fmt.Errorf("sync.workers: %d exceeds the supported maximum of 8 (upstream rate limiting makes high concurrency counterproductive)", c.Sync.Workers)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
		return nil
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
}
