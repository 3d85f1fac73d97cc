package main

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"playsync/internal/acquire"
	"playsync/internal/config"
	"playsync/internal/ledger"
	"playsync/internal/logging"
	"playsync/internal/notifications"
	"playsync/internal/remote"
	"playsync/internal/services/ffmpeg"
	"playsync/internal/services/ytdlp"
	"playsync/internal/syncrun"
	"playsync/internal/tagger"
)

func newLogger(cfg *config.Config) (*slog.Logger, error) {
	stamp := time.Now().UTC().Format("20060102T150405Z")
	logPath := filepath.Join(cfg.Paths.LogDir, fmt.Sprintf("playsync-%s.log", stamp))
	return logging.New(logging.Options{
		Level:       cfg.Logging.Level,
		Format:      cfg.Logging.Format,
		OutputPaths: []string{"stdout", logPath},
	})
}

// newRunner assembles the full synchronization stack from config.
func newRunner(cfg *config.Config, led *ledger.Ledger, logger *slog.Logger) *syncrun.Runner {
	tool := ytdlp.NewCLI(
		ytdlp.WithBinary(cfg.Tools.YtdlpPath),
		ytdlp.WithFFmpegLocation(cfg.Tools.FFmpegPath),
		ytdlp.WithExtraArgs(cfg.Tools.ExtraArgs),
	)

	var transcoder acquire.Transcoder
	if cfg.Output.TranscodeFormat != "" {
		transcoder = ffmpeg.NewCLI(ffmpeg.WithBinary(cfg.Tools.FFmpegPath))
	}

	orchestrator := acquire.New(tool, transcoder, led, acquire.Options{
		Workers:         cfg.Sync.Workers,
		RatePerSecond:   cfg.Sync.RateLimitPerSecond,
		ToolTimeout:     cfg.ToolTimeout(),
		AudioFormat:     cfg.Output.AudioFormat,
		AudioQuality:    cfg.Output.AudioQuality,
		TranscodeFormat: cfg.Output.TranscodeFormat,
		EmbedThumbnail:  cfg.Output.EmbedThumbnail,
		EmbedMetadata:   cfg.Output.EmbedSourceMetadata,
		WriteLyrics:     cfg.Output.WriteLyrics,
	}, logger)

	return syncrun.New(cfg, led,
		remote.NewResolver(tool, cfg.ListTimeout(), logger),
		remote.NewReader(tool, cfg.ListTimeout(), logger),
		orchestrator,
		tagger.New(cfg.Output.AlbumArtist, cfg.Output.WriteLyrics, logger),
		notifications.NewService(cfg),
		logger,
	)
}
