package config

import "strings"

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	if err := c.normalizePlaylists(); err != nil {
		return err
	}
	c.normalizeTools()
	c.normalizeOutput()
	c.normalizeSync()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	for _, field := range []*string{&c.Paths.LibraryDir, &c.Paths.LedgerPath, &c.Paths.LogDir} {
		expanded, err := expandPath(strings.TrimSpace(*field))
		if err != nil {
			return err
		}
		*field = expanded
	}
	return nil
}

func (c *Config) normalizePlaylists() error {
	c.Playlists.Source = strings.ToLower(strings.TrimSpace(c.Playlists.Source))
	c.Playlists.ChannelURL = strings.TrimSpace(c.Playlists.ChannelURL)

	urls := make([]string, 0, len(c.Playlists.URLs))
	for _, url := range c.Playlists.URLs {
		if trimmed := strings.TrimSpace(url); trimmed != "" {
			urls = append(urls, trimmed)
		}
	}
	c.Playlists.URLs = urls

	if file := strings.TrimSpace(c.Playlists.File); file != "" {
		expanded, err := expandPath(file)
		if err != nil {
			return err
		}
		c.Playlists.File = expanded
	} else {
		c.Playlists.File = ""
	}

	// Infer the source when unset and exactly one input is configured.
	if c.Playlists.Source == "" {
		switch {
		case len(c.Playlists.URLs) > 0:
			c.Playlists.Source = SourceURLs
		case c.Playlists.File != "":
			c.Playlists.Source = SourceFile
		case c.Playlists.ChannelURL != "":
			c.Playlists.Source = SourceChannel
		default:
			c.Playlists.Source = defaultSource
		}
	}
	return nil
}

func (c *Config) normalizeTools() {
	c.Tools.YtdlpPath = strings.TrimSpace(c.Tools.YtdlpPath)
	if c.Tools.YtdlpPath == "" {
		c.Tools.YtdlpPath = defaultYtdlpPath
	}
	c.Tools.FFmpegPath = strings.TrimSpace(c.Tools.FFmpegPath)
	c.Tools.ExtraArgs = strings.TrimSpace(c.Tools.ExtraArgs)
}

func (c *Config) normalizeOutput() {
	c.Output.AudioFormat = strings.ToLower(strings.TrimSpace(c.Output.AudioFormat))
	if c.Output.AudioFormat == "" || c.Output.AudioFormat == "auto" {
		c.Output.AudioFormat = "best"
	}
	c.Output.AudioQuality = strings.TrimSpace(c.Output.AudioQuality)
	if c.Output.AudioQuality == "" {
		c.Output.AudioQuality = defaultAudioQuality
	}
	c.Output.TranscodeFormat = strings.ToLower(strings.TrimSpace(c.Output.TranscodeFormat))
	if c.Output.AlbumArtist = strings.TrimSpace(c.Output.AlbumArtist); c.Output.AlbumArtist == "" {
		c.Output.AlbumArtist = defaultAlbumArtist
	}
}

func (c *Config) normalizeSync() {
	if c.Sync.Workers <= 0 {
		c.Sync.Workers = defaultWorkers
	}
	if c.Sync.RateLimitPerSecond <= 0 {
		c.Sync.RateLimitPerSecond = defaultRatePerSecond
	}
	if c.Sync.ToolTimeout <= 0 {
		c.Sync.ToolTimeout = defaultToolTimeout
	}
	if c.Sync.ListTimeout <= 0 {
		c.Sync.ListTimeout = defaultListTimeout
	}
	if c.Sync.RetryCeiling <= 0 {
		c.Sync.RetryCeiling = defaultRetryCeiling
	}
	if c.Sync.RetryBaseDelay <= 0 {
		c.Sync.RetryBaseDelay = defaultRetryBase
	}
	if c.Sync.RetryMaxDelay < c.Sync.RetryBaseDelay {
		c.Sync.RetryMaxDelay = defaultRetryMax
	}
	if c.Sync.IntervalHours <= 0 {
		c.Sync.IntervalHours = defaultIntervalHours
	}
	if c.Sync.MinFreeMB < 0 {
		c.Sync.MinFreeMB = defaultMinFreeMB
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
