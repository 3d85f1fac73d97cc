package remote

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"playsync/internal/config"
	"playsync/internal/services/ytdlp"
)

type fakeClient struct {
	items []ytdlp.ListItem
	err   error
	urls  []string
}

func (f *fakeClient) List(_ context.Context, url string) ([]ytdlp.ListItem, error) {
	f.urls = append(f.urls, url)
	return f.items, f.err
}

func (f *fakeClient) Download(context.Context, ytdlp.DownloadRequest) (string, error) {
	return "", errors.New("not implemented")
}

func TestExtractID(t *testing.T) {
	cases := []struct {
		url  string
		want string
	}{
		{"https://music.youtube.com/playlist?list=PLabc123", "PLabc123"},
		{"https://www.youtube.com/playlist?list=PLabc123&feature=share", "PLabc123"},
		{"https://music.youtube.com/browse/VLPLxyz/", "VLPLxyz"},
		{"PLbare", "PLbare"},
	}
	for _, tc := range cases {
		if got := ExtractID(tc.url); got != tc.want {
			t.Errorf("ExtractID(%q) = %q, want %q", tc.url, got, tc.want)
		}
	}
}

func TestSnapshotAssignsPositions(t *testing.T) {
	client := &fakeClient{items: []ytdlp.ListItem{
		{ID: "vid1", Title: "Song A", PlaylistTitle: "Road Trip"},
		{ID: "", Title: "deleted video"},
		{ID: "vid2", Title: "Song B"},
	}}
	reader := NewReader(client, 0, nil)

	title, entries, err := reader.Snapshot(context.Background(), Playlist{ID: "PL1", URL: PlaylistURL("PL1")})
	if err != nil {
		t.Fatalf("Snapshot returned error: %v", err)
	}
	if title != "Road Trip" {
		t.Errorf("title = %q, want Road Trip", title)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].Position != 1 || entries[1].Position != 2 {
		t.Errorf("positions = %d, %d; want 1, 2", entries[0].Position, entries[1].Position)
	}
	if entries[1].ID != "vid2" {
		t.Errorf("entry 2 id = %q, want vid2", entries[1].ID)
	}
}

func TestSnapshotFallbackTitle(t *testing.T) {
	client := &fakeClient{items: []ytdlp.ListItem{{ID: "vid1", Title: "Song A"}}}
	reader := NewReader(client, 0, nil)

	title, _, err := reader.Snapshot(context.Background(), Playlist{ID: "PL9", URL: PlaylistURL("PL9")})
	if err != nil {
		t.Fatalf("Snapshot returned error: %v", err)
	}
	if title != "Playlist_PL9" {
		t.Errorf("title = %q, want Playlist_PL9", title)
	}
}

func TestSnapshotWrapsListFailure(t *testing.T) {
	client := &fakeClient{err: errors.New("network down")}
	reader := NewReader(client, 0, nil)

	_, _, err := reader.Snapshot(context.Background(), Playlist{ID: "PL1", URL: PlaylistURL("PL1")})
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}

func TestResolveURLsDeduplicates(t *testing.T) {
	resolver := NewResolver(&fakeClient{}, 0, nil)
	playlists, err := resolver.Resolve(context.Background(), config.Playlists{
		Source: config.SourceURLs,
		URLs: []string{
			"https://music.youtube.com/playlist?list=PL1",
			"  ",
			"https://www.youtube.com/playlist?list=PL1&feature=share",
			"https://music.youtube.com/playlist?list=PL2",
		},
	})
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if len(playlists) != 2 {
		t.Fatalf("expected 2 playlists, got %d", len(playlists))
	}
	if playlists[0].ID != "PL1" || playlists[1].ID != "PL2" {
		t.Errorf("ids = %q, %q; want PL1, PL2", playlists[0].ID, playlists[1].ID)
	}
}

func TestParsePlaylistFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "playlists.txt")
	content := `# favorites
https://music.youtube.com/playlist?list=PLaaa

PLbbb
OLccc
not a playlist line
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write playlist file: %v", err)
	}

	urls, err := ParsePlaylistFile(path)
	if err != nil {
		t.Fatalf("ParsePlaylistFile returned error: %v", err)
	}
	want := []string{
		"https://music.youtube.com/playlist?list=PLaaa",
		"https://music.youtube.com/playlist?list=PLbbb",
		"https://music.youtube.com/playlist?list=OLccc",
	}
	if len(urls) != len(want) {
		t.Fatalf("got %d urls, want %d: %v", len(urls), len(want), urls)
	}
	for i := range want {
		if urls[i] != want[i] {
			t.Errorf("url %d = %q, want %q", i, urls[i], want[i])
		}
	}
}

func TestResolveChannelKeepsPlaylistItems(t *testing.T) {
	client := &fakeClient{items: []ytdlp.ListItem{
		{ID: "PLch1", Title: "Uploads Mix", Type: "playlist", URL: "https://music.youtube.com/playlist?list=PLch1"},
		{ID: "vid1", Title: "a stray video", Type: "url"},
		{ID: "PLch2", Title: "Live Sets", Type: "playlist"},
		{ID: "PLch1", Title: "Uploads Mix", Type: "playlist"},
	}}
	resolver := NewResolver(client, 0, nil)

	playlists, err := resolver.Resolve(context.Background(), config.Playlists{
		Source:     config.SourceChannel,
		ChannelURL: "https://music.youtube.com/channel/UCx/playlists",
	})
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if len(playlists) != 2 {
		t.Fatalf("expected 2 playlists, got %d", len(playlists))
	}
	if playlists[1].URL != PlaylistURL("PLch2") {
		t.Errorf("missing URL not synthesized: %q", playlists[1].URL)
	}
}

func TestResolveUnknownSource(t *testing.T) {
	resolver := NewResolver(&fakeClient{}, 0, nil)
	if _, err := resolver.Resolve(context.Background(), config.Playlists{Source: "bogus"}); err == nil {
		t.Fatal("expected error for unknown source")
	}
}
