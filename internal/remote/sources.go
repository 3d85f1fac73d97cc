package remote

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"playsync/internal/config"
	"playsync/internal/logging"
	"playsync/internal/services/ytdlp"
)

// Resolver expands a configured playlist source into playlist references.
type Resolver struct {
	client  ytdlp.Client
	timeout time.Duration
	log     *slog.Logger
}

// NewResolver wires a Resolver. The listing client is only exercised for the
// channel source.
func NewResolver(client ytdlp.Client, timeout time.Duration, log *slog.Logger) *Resolver {
	if log == nil {
		log = logging.NewNop()
	}
	return &Resolver{client: client, timeout: timeout, log: log}
}

// Resolve returns the playlists named by the configured source. Explicit URLs
// and playlist files resolve offline; a channel source lists the channel page
// and keeps only playlist items.
func (r *Resolver) Resolve(ctx context.Context, src config.Playlists) ([]Playlist, error) {
	switch src.Source {
	case config.SourceURLs:
		return fromURLs(src.URLs), nil
	case config.SourceFile:
		urls, err := ParsePlaylistFile(src.File)
		if err != nil {
			return nil, err
		}
		return fromURLs(urls), nil
	case config.SourceChannel:
		return r.fromChannel(ctx, src.ChannelURL)
	default:
		return nil, fmt.Errorf("unknown playlist source %q", src.Source)
	}
}

func fromURLs(urls []string) []Playlist {
	playlists := make([]Playlist, 0, len(urls))
	seen := make(map[string]struct{}, len(urls))
	for _, url := range urls {
		url = strings.TrimSpace(url)
		if url == "" {
			continue
		}
		id := ExtractID(url)
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		playlists = append(playlists, Playlist{ID: id, URL: url})
	}
	return playlists
}

// ParsePlaylistFile reads one playlist reference per line. Blank lines and
// lines starting with # are skipped. A line is either a URL carrying a list
// parameter or a bare playlist id (PL/OL prefixes).
func ParsePlaylistFile(path string) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open playlist file: %w", err)
	}
	defer func() { _ = file.Close() }()

	var urls []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		switch {
		case line == "" || strings.HasPrefix(line, "#"):
		case strings.Contains(line, "list="):
			urls = append(urls, line)
		case strings.HasPrefix(line, "PL") || strings.HasPrefix(line, "OL"):
			urls = append(urls, PlaylistURL(line))
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read playlist file: %w", err)
	}
	return urls, nil
}

func (r *Resolver) fromChannel(ctx context.Context, channelURL string) ([]Playlist, error) {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	items, err := r.client.List(ctx, channelURL)
	if err != nil {
		return nil, fmt.Errorf("%w: list channel %s: %v", ErrUnavailable, channelURL, err)
	}

	var playlists []Playlist
	seen := make(map[string]struct{})
	for _, item := range items {
		if item.Type != "playlist" || item.ID == "" {
			continue
		}
		if _, dup := seen[item.ID]; dup {
			continue
		}
		seen[item.ID] = struct{}{}
		url := item.URL
		if url == "" {
			url = PlaylistURL(item.ID)
		}
		playlists = append(playlists, Playlist{ID: item.ID, Title: item.Title, URL: url})
	}

	r.log.Info("channel playlists resolved",
		logging.String("channel_url", channelURL),
		logging.Int("playlists", len(playlists)))
	return playlists, nil
}
