package config

const (
	defaultLibraryDir    = "~/music/playlists"
	defaultLedgerPath    = "~/.local/share/playsync/ledger.json"
	defaultLogDir        = "~/.local/share/playsync/logs"
	defaultSource        = SourceURLs
	defaultYtdlpPath     = "yt-dlp"
	defaultFFmpegPath    = "ffmpeg"
	defaultAudioFormat   = "mp3"
	defaultAudioQuality  = "0"
	defaultAlbumArtist   = "Playlists"
	defaultWorkers       = 2
	defaultRatePerSecond = 1.0
	defaultToolTimeout   = 600
	defaultListTimeout   = 120
	defaultRetryCeiling  = 5
	defaultRetryBase     = 300
	defaultRetryMax      = 21600
	defaultIntervalHours = 12
	defaultMinFreeMB     = 512
	defaultNotifyTimeout = 10
	defaultLogFormat     = "console"
	defaultLogLevel      = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			LibraryDir: defaultLibraryDir,
			LedgerPath: defaultLedgerPath,
			LogDir:     defaultLogDir,
		},
		Playlists: Playlists{
			Source: defaultSource,
		},
		Tools: Tools{
			YtdlpPath:  defaultYtdlpPath,
			FFmpegPath: defaultFFmpegPath,
		},
		Output: Output{
			AudioFormat:         defaultAudioFormat,
			AudioQuality:        defaultAudioQuality,
			EmbedThumbnail:      true,
			EmbedSourceMetadata: true,
			AlbumArtist:         defaultAlbumArtist,
		},
		Sync: Sync{
			Workers:            defaultWorkers,
			RateLimitPerSecond: defaultRatePerSecond,
			ToolTimeout:        defaultToolTimeout,
			ListTimeout:        defaultListTimeout,
			RetryCeiling:       defaultRetryCeiling,
			RetryBaseDelay:     defaultRetryBase,
			RetryMaxDelay:      defaultRetryMax,
			IntervalHours:      defaultIntervalHours,
			MinFreeMB:          defaultMinFreeMB,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyTimeout,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
