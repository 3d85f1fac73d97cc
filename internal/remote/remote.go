package remote

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"playsync/internal/logging"
	"playsync/internal/services/ytdlp"
)

// ErrUnavailable marks a playlist whose remote listing could not be read this
// run. The playlist is skipped, never failed.
var ErrUnavailable = errors.New("remote listing unavailable")

var listIDPattern = regexp.MustCompile(`list=([^&]+)`)

// Playlist is a resolved playlist reference before any listing happens.
type Playlist struct {
	ID    string
	Title string
	URL   string
}

// Entry is one remote track with its 1-based position in the listing order.
type Entry struct {
	ID       string
	Title    string
	Position int
}

// ExtractID pulls the playlist identifier from a playlist URL. URLs without a
// list parameter fall back to the last path segment.
func ExtractID(url string) string {
	if m := listIDPattern.FindStringSubmatch(url); m != nil {
		return m[1]
	}
	trimmed := strings.TrimRight(strings.TrimSpace(url), "/")
	if idx := strings.LastIndex(trimmed, "/"); idx >= 0 {
		trimmed = trimmed[idx+1:]
	}
	return trimmed
}

// PlaylistURL builds the canonical listing URL for a bare playlist id.
func PlaylistURL(id string) string {
	return "https://music.youtube.com/playlist?list=" + id
}

// WatchURL builds the single-entry URL handed to the retrieval tool.
func WatchURL(entryID string) string {
	return "https://music.youtube.com/watch?v=" + entryID
}

// FallbackTitle names a playlist whose title could not be resolved.
func FallbackTitle(id string) string {
	return "Playlist_" + id
}

// Reader fetches remote playlist snapshots.
type Reader struct {
	client  ytdlp.Client
	timeout time.Duration
	log     *slog.Logger
}

// NewReader wires a Reader around the listing client. A zero timeout disables
// the listing deadline.
func NewReader(client ytdlp.Client, timeout time.Duration, log *slog.Logger) *Reader {
	if log == nil {
		log = logging.NewNop()
	}
	return &Reader{client: client, timeout: timeout, log: log}
}

// Snapshot lists a playlist and returns its title plus entries in listing
// order. Entries without an id are dropped. Any listing failure is wrapped in
// ErrUnavailable.
func (r *Reader) Snapshot(ctx context.Context, pl Playlist) (string, []Entry, error) {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	items, err := r.client.List(ctx, pl.URL)
	if err != nil {
		return "", nil, fmt.Errorf("%w: list %s: %v", ErrUnavailable, pl.URL, err)
	}

	title := pl.Title
	entries := make([]Entry, 0, len(items))
	for _, item := range items {
		if title == "" && item.PlaylistTitle != "" {
			title = item.PlaylistTitle
		}
		if item.ID == "" || item.Type == "playlist" {
			continue
		}
		entries = append(entries, Entry{
			ID:       item.ID,
			Title:    item.Title,
			Position: len(entries) + 1,
		})
	}
	if title == "" {
		title = FallbackTitle(pl.ID)
	}

	r.log.Debug("remote snapshot read",
		logging.String(logging.FieldPlaylistID, pl.ID),
		logging.Int("entries", len(entries)))
	return title, entries, nil
}
