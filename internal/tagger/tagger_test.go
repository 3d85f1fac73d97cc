package tagger

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/bogem/id3v2/v2"
)

func writeAudioFixture(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("fake mpeg frames"), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	return path
}

func TestNormalizeWritesAlbumTrackAndArtist(t *testing.T) {
	path := writeAudioFixture(t, t.TempDir(), "Song A.mp3")
	n := New("Playlists", false, nil)

	err := n.Normalize(Request{Path: path, Album: "Road Trip", Track: 3, Title: "Song A"})
	if err != nil {
		t.Fatalf("Normalize returned error: %v", err)
	}

	tag, err := id3v2.Open(path, id3v2.Options{Parse: true})
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer tag.Close()

	if got := tag.Album(); got != "Road Trip" {
		t.Errorf("album = %q", got)
	}
	if got := tag.GetTextFrame(tag.CommonID("Track number/Position in set")).Text; got != "3" {
		t.Errorf("track = %q", got)
	}
	if got := tag.GetTextFrame(tag.CommonID("Band/Orchestra/Accompaniment")).Text; got != "Playlists" {
		t.Errorf("album artist = %q", got)
	}
	if got := tag.Title(); got != "Song A" {
		t.Errorf("title = %q", got)
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	path := writeAudioFixture(t, t.TempDir(), "Song A.mp3")
	n := New("Playlists", false, nil)
	req := Request{Path: path, Album: "Road Trip", Track: 1, Title: "Song A"}

	if err := n.Normalize(req); err != nil {
		t.Fatalf("first Normalize: %v", err)
	}
	before, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}

	if err := n.Normalize(req); err != nil {
		t.Fatalf("second Normalize: %v", err)
	}
	after, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(before) != string(after) {
		t.Fatal("re-normalizing an already tagged file must not rewrite it")
	}
}

func TestNormalizeUpdatesTrackOnPositionChange(t *testing.T) {
	path := writeAudioFixture(t, t.TempDir(), "Song A.mp3")
	n := New("Playlists", false, nil)

	if err := n.Normalize(Request{Path: path, Album: "Road Trip", Track: 3}); err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if err := n.Normalize(Request{Path: path, Album: "Road Trip", Track: 5}); err != nil {
		t.Fatalf("retag: %v", err)
	}

	tag, err := id3v2.Open(path, id3v2.Options{Parse: true})
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer tag.Close()
	if got := tag.GetTextFrame(tag.CommonID("Track number/Position in set")).Text; got != "5" {
		t.Errorf("track = %q, want 5", got)
	}
}

func TestNormalizeKeepsExistingTitle(t *testing.T) {
	path := writeAudioFixture(t, t.TempDir(), "Song A.mp3")

	tag, err := id3v2.Open(path, id3v2.Options{Parse: true})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	tag.SetTitle("Source Title")
	if err := tag.Save(); err != nil {
		t.Fatalf("seed title: %v", err)
	}
	tag.Close()

	n := New("Playlists", false, nil)
	if err := n.Normalize(Request{Path: path, Album: "Road Trip", Track: 1, Title: "Listing Title"}); err != nil {
		t.Fatalf("Normalize: %v", err)
	}

	tag, err = id3v2.Open(path, id3v2.Options{Parse: true})
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer tag.Close()
	if got := tag.Title(); got != "Source Title" {
		t.Errorf("title = %q, existing titles are authoritative", got)
	}
}

func TestNormalizeRejectsUnsupportedContainer(t *testing.T) {
	path := writeAudioFixture(t, t.TempDir(), "Song A.opus")
	n := New("Playlists", false, nil)

	err := n.Normalize(Request{Path: path, Album: "Road Trip", Track: 1})
	if !errors.Is(err, ErrNormalization) {
		t.Fatalf("expected ErrNormalization, got %v", err)
	}
}

func TestNormalizeEmbedsLyricsSidecar(t *testing.T) {
	dir := t.TempDir()
	path := writeAudioFixture(t, dir, "Song A.mp3")
	lrc := "[00:01.00] first line\n[00:05.00] second line\n"
	if err := os.WriteFile(filepath.Join(dir, "Song A.lrc"), []byte(lrc), 0o644); err != nil {
		t.Fatalf("write sidecar: %v", err)
	}

	n := New("Playlists", true, nil)
	if err := n.Normalize(Request{Path: path, Album: "Road Trip", Track: 1}); err != nil {
		t.Fatalf("Normalize: %v", err)
	}

	tag, err := id3v2.Open(path, id3v2.Options{Parse: true})
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer tag.Close()
	frames := tag.GetFrames(tag.CommonID("Unsynchronised lyrics/text transcription"))
	if len(frames) != 1 {
		t.Fatalf("expected one lyrics frame, got %d", len(frames))
	}
	uslt, ok := frames[0].(id3v2.UnsynchronisedLyricsFrame)
	if !ok {
		t.Fatalf("unexpected frame type %T", frames[0])
	}
	if uslt.Lyrics != lrc {
		t.Errorf("lyrics = %q", uslt.Lyrics)
	}
}
