package ledger

import "time"

// Status represents the lifecycle of a playlist entry.
type Status string

const (
	// StatusPending marks an entry observed remotely but not yet acquired.
	StatusPending Status = "pending"
	// StatusAcquired marks an entry whose audio file exists locally but has
	// not been tagged yet.
	StatusAcquired Status = "acquired"
	// StatusTagged marks an entry whose file carries verified album/track
	// metadata. Terminal under unchanged remote state.
	StatusTagged Status = "tagged"
	// StatusFailed marks an entry whose last acquisition attempt failed; it
	// may return to the fetch path under the retry policy.
	StatusFailed Status = "failed"
)

// Terminal reports whether the status needs no further acquisition work.
func (s Status) Terminal() bool {
	return s == StatusTagged
}

// Entry records the synchronization state of one song within a playlist.
// Position and Title reflect the remote playlist as of the run that last
// observed the entry.
type Entry struct {
	ID                 string    `json:"entry_id"`
	Title              string    `json:"title"`
	Position           int       `json:"position"`
	Status             Status    `json:"status"`
	LocalPath          string    `json:"local_path,omitempty"`
	ContentFingerprint string    `json:"content_fingerprint,omitempty"`
	AttemptCount       int       `json:"attempt_count,omitempty"`
	LastAttemptAt      time.Time `json:"last_attempt_at,omitzero"`
	LastError          string    `json:"last_error,omitempty"`
	UpdatedAt          time.Time `json:"updated_at,omitzero"`
}

// Playlist records everything known about one configured playlist. Records
// persist indefinitely and are never deleted automatically.
type Playlist struct {
	ID          string            `json:"playlist_id"`
	DisplayName string            `json:"display_name"`
	SourceURL   string            `json:"source_url,omitempty"`
	Entries     map[string]*Entry `json:"entries"`
}

// Clone returns a deep copy safe for callers to hold across mutations.
func (p Playlist) Clone() Playlist {
	cp := p
	cp.Entries = make(map[string]*Entry, len(p.Entries))
	for id, entry := range p.Entries {
		dup := *entry
		cp.Entries[id] = &dup
	}
	return cp
}

// CountByStatus tallies the playlist's entries per status.
func (p Playlist) CountByStatus() map[Status]int {
	counts := make(map[Status]int, 4)
	for _, entry := range p.Entries {
		counts[entry.Status]++
	}
	return counts
}
