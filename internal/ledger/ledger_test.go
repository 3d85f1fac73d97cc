package ledger_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"playsync/internal/ledger"
)

func openLedger(t *testing.T, path string) *ledger.Ledger {
	t.Helper()
	led, err := ledger.Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { _ = led.Close() })
	return led
}

func TestOpenMissingFileYieldsEmptyLedger(t *testing.T) {
	led := openLedger(t, filepath.Join(t.TempDir(), "ledger.json"))
	if snapshot := led.Snapshot(); len(snapshot) != 0 {
		t.Fatalf("expected empty ledger, got %d playlists", len(snapshot))
	}
}

func TestOpenCorruptFileFailsClosed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	_, err := ledger.Open(path)
	if !errors.Is(err, ledger.ErrCorrupt) {
		t.Fatalf("expected ErrCorrupt, got %v", err)
	}
}

func TestOpenEmptyFileFailsClosed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.json")
	if err := os.WriteFile(path, []byte("  \n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := ledger.Open(path); !errors.Is(err, ledger.ErrCorrupt) {
		t.Fatalf("expected ErrCorrupt for empty file, got %v", err)
	}
}

func TestOpenRefusesSecondLock(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.json")
	first := openLedger(t, path)

	if _, err := ledger.Open(path); !errors.Is(err, ledger.ErrLocked) {
		t.Fatalf("expected ErrLocked, got %v", err)
	}
	if err := first.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	second, err := ledger.Open(path)
	if err != nil {
		t.Fatalf("reopen after unlock failed: %v", err)
	}
	_ = second.Close()
}

func TestApplyPersistsImmediately(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.json")
	led := openLedger(t, path)

	if err := led.EnsurePlaylist("PL1", "Road Trip", "https://example.invalid/pl1"); err != nil {
		t.Fatalf("EnsurePlaylist: %v", err)
	}
	err := led.Apply("PL1", "A", func(e *ledger.Entry) {
		e.Title = "Song A"
		e.Position = 1
		e.Status = ledger.StatusPending
	})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}

	// Simulated crash: read what is on disk right now, without going through
	// the open handle.
	onDisk, err := ledger.Read(path)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	entry := onDisk["PL1"].Entries["A"]
	if entry == nil || entry.Title != "Song A" || entry.Status != ledger.StatusPending {
		t.Fatalf("entry not durable after Apply: %#v", entry)
	}
}

func TestApplyUnknownPlaylistFails(t *testing.T) {
	led := openLedger(t, filepath.Join(t.TempDir(), "ledger.json"))
	err := led.Apply("missing", "A", func(e *ledger.Entry) {})
	if !errors.Is(err, ledger.ErrUnknownPlaylist) {
		t.Fatalf("expected ErrUnknownPlaylist, got %v", err)
	}
}

func TestSaveLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	led := openLedger(t, filepath.Join(dir, "ledger.json"))
	if err := led.EnsurePlaylist("PL1", "Mix", ""); err != nil {
		t.Fatalf("EnsurePlaylist: %v", err)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), ".ledger-") {
			t.Fatalf("temp file left behind: %s", e.Name())
		}
	}
}

func TestLoadIgnoresUnknownFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.json")
	content := `{
  "version": 7,
  "some_future_field": {"x": 1},
  "playlists": {
    "PL1": {
      "playlist_id": "PL1",
      "display_name": "Road Trip",
      "future_playlist_field": true,
      "entries": {
        "A": {"entry_id": "A", "title": "Song A", "position": 1, "status": "tagged", "future_entry_field": 3}
      }
    }
  }
}`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	led := openLedger(t, path)
	playlist, ok := led.Playlist("PL1")
	if !ok {
		t.Fatal("playlist missing after load")
	}
	if playlist.Entries["A"].Status != ledger.StatusTagged {
		t.Fatalf("unexpected status: %v", playlist.Entries["A"].Status)
	}
}

func TestSnapshotIsDeepCopy(t *testing.T) {
	led := openLedger(t, filepath.Join(t.TempDir(), "ledger.json"))
	if err := led.EnsurePlaylist("PL1", "Mix", ""); err != nil {
		t.Fatalf("EnsurePlaylist: %v", err)
	}
	if err := led.Apply("PL1", "A", func(e *ledger.Entry) { e.Title = "Song A" }); err != nil {
		t.Fatalf("Apply: %v", err)
	}

	snapshot := led.Snapshot()
	snapshot["PL1"].Entries["A"].Title = "mutated"

	playlist, _ := led.Playlist("PL1")
	if playlist.Entries["A"].Title != "Song A" {
		t.Fatal("snapshot mutation leaked into ledger state")
	}
}
