package ledger

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/gofrs/flock"
)

// schemaVersion is written on save. Loading ignores unknown fields so future
// schema-additive versions stay readable by older binaries.
const schemaVersion = 1

var (
	// ErrCorrupt signals an unreadable or unparsable ledger file. Fatal for
	// the whole run: proceeding would schedule a mass re-download.
	ErrCorrupt = errors.New("ledger corrupt")
	// ErrLocked signals that another process holds the ledger lock.
	ErrLocked = errors.New("ledger locked by another process")
	// ErrUnknownPlaylist signals a mutation against a playlist the ledger has
	// never seen.
	ErrUnknownPlaylist = errors.New("unknown playlist")
)

type fileState struct {
	Version   int                  `json:"version"`
	UpdatedAt time.Time            `json:"updated_at,omitzero"`
	Playlists map[string]*Playlist `json:"playlists"`
}

// Ledger owns all persisted synchronization records. Components read
// snapshots and submit mutations through Apply; every mutation is durable
// before the call returns.
type Ledger struct {
	path string
	lock *flock.Flock

	mu    sync.Mutex
	state fileState
	now   func() time.Time
}

// Open acquires the ledger lock and loads persisted state. A missing file
// yields an empty ledger; an unreadable or corrupt file yields ErrCorrupt.
func Open(path string) (*Ledger, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("ledger path required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create ledger directory: %w", err)
	}

	lock := flock.New(path + ".lock")
	held, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire ledger lock: %w", err)
	}
	if !held {
		return nil, ErrLocked
	}

	state, err := readState(path)
	if err != nil {
		_ = lock.Unlock()
		return nil, err
	}

	return &Ledger{path: path, lock: lock, state: state, now: time.Now}, nil
}

// Read loads the ledger without taking the lock, for read-only inspection
// (status reporting) while a run may be in progress.
func Read(path string) (map[string]Playlist, error) {
	state, err := readState(path)
	if err != nil {
		return nil, err
	}
	return snapshotPlaylists(state), nil
}

func readState(path string) (fileState, error) {
	empty := fileState{Version: schemaVersion, Playlists: map[string]*Playlist{}}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return empty, nil
		}
		return fileState{}, fmt.Errorf("%w: read %s: %v", ErrCorrupt, path, err)
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return fileState{}, fmt.Errorf("%w: %s is empty", ErrCorrupt, path)
	}

	var state fileState
	if err := json.Unmarshal(data, &state); err != nil {
		return fileState{}, fmt.Errorf("%w: parse %s: %v", ErrCorrupt, path, err)
	}
	if state.Playlists == nil {
		state.Playlists = map[string]*Playlist{}
	}
	for id, playlist := range state.Playlists {
		if playlist.ID == "" {
			playlist.ID = id
		}
		if playlist.Entries == nil {
			playlist.Entries = map[string]*Entry{}
		}
	}
	return state, nil
}

// Close releases the ledger lock.
func (l *Ledger) Close() error {
	if l == nil || l.lock == nil {
		return nil
	}
	return l.lock.Unlock()
}

// Path returns the ledger file location.
func (l *Ledger) Path() string {
	return l.path
}

// Snapshot returns a deep copy of every playlist record.
func (l *Ledger) Snapshot() map[string]Playlist {
	l.mu.Lock()
	defer l.mu.Unlock()
	return snapshotPlaylists(l.state)
}

// Playlist returns a deep copy of one playlist record.
func (l *Ledger) Playlist(id string) (Playlist, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	playlist, ok := l.state.Playlists[id]
	if !ok {
		return Playlist{}, false
	}
	return playlist.Clone(), true
}

// PlaylistIDs returns the known playlist ids in stable order.
func (l *Ledger) PlaylistIDs() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	ids := make([]string, 0, len(l.state.Playlists))
	for id := range l.state.Playlists {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// EnsurePlaylist creates or refreshes a playlist record and persists the
// change. Existing entries are untouched.
func (l *Ledger) EnsurePlaylist(id, displayName, sourceURL string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	playlist, ok := l.state.Playlists[id]
	if !ok {
		playlist = &Playlist{ID: id, Entries: map[string]*Entry{}}
		l.state.Playlists[id] = playlist
	}
	if playlist.DisplayName == displayName && playlist.SourceURL == sourceURL && ok {
		return nil
	}
	playlist.DisplayName = displayName
	playlist.SourceURL = sourceURL
	return l.saveLocked()
}

// Apply mutates a single entry and persists the full state before returning.
// The entry is created when absent. The mutation sees a copy-free pointer, so
// callers must set every field they care about and nothing else.
func (l *Ledger) Apply(playlistID, entryID string, mutate func(*Entry)) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	playlist, ok := l.state.Playlists[playlistID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownPlaylist, playlistID)
	}
	entry, ok := playlist.Entries[entryID]
	if !ok {
		entry = &Entry{ID: entryID, Status: StatusPending}
		playlist.Entries[entryID] = entry
	}
	mutate(entry)
	entry.ID = entryID
	entry.UpdatedAt = l.now().UTC()
	return l.saveLocked()
}

// Save persists the full state atomically.
func (l *Ledger) Save() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.saveLocked()
}

// saveLocked writes the state to a temp file in the ledger's directory and
// renames it over the target. Callers hold l.mu.
func (l *Ledger) saveLocked() error {
	l.state.Version = schemaVersion
	l.state.UpdatedAt = l.now().UTC()

	data, err := json.MarshalIndent(&l.state, "", "  ")
	if err != nil {
		return fmt.Errorf("encode ledger: %w", err)
	}
	data = append(data, '\n')

	dir := filepath.Dir(l.path)
	tmp, err := os.CreateTemp(dir, ".ledger-*.tmp")
	if err != nil {
		return fmt.Errorf("create ledger temp file: %w", err)
	}
	tmpPath := tmp.Name()
	cleanup := func() {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
	}

	if _, err := tmp.Write(data); err != nil {
		cleanup()
		return fmt.Errorf("write ledger temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		cleanup()
		return fmt.Errorf("sync ledger temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("close ledger temp file: %w", err)
	}
	if err := os.Chmod(tmpPath, 0o644); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("chmod ledger temp file: %w", err)
	}
	if err := os.Rename(tmpPath, l.path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("replace ledger: %w", err)
	}
	return nil
}

func snapshotPlaylists(state fileState) map[string]Playlist {
	out := make(map[string]Playlist, len(state.Playlists))
	for id, playlist := range state.Playlists {
		out[id] = playlist.Clone()
	}
	return out
}
