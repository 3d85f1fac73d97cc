package syncrun

import "time"

// PlaylistResult summarizes one playlist's pass within a run.
type PlaylistResult struct {
	PlaylistID  string
	DisplayName string
	// Err is set when the playlist could not be processed at all, most
	// commonly an unavailable remote listing.
	Err error

	Planned   int
	Acquired  int
	Failed    int
	Tagged    int
	TagFailed int
	Unchanged int
	Skipped   int
}

// Report aggregates a full run.
type Report struct {
	RunID     string
	StartedAt time.Time
	Duration  time.Duration
	// ResolveErr is set when the playlist source itself could not be
	// expanded; the run completes with zero playlists.
	ResolveErr error
	Playlists  []PlaylistResult
}

// Acquired totals successful acquisitions across playlists.
func (r Report) Acquired() int {
	total := 0
	for _, p := range r.Playlists {
		total += p.Acquired
	}
	return total
}

// Tagged totals successful normalizations across playlists.
func (r Report) Tagged() int {
	total := 0
	for _, p := range r.Playlists {
		total += p.Tagged
	}
	return total
}

// Failed totals entry-level failures across playlists.
func (r Report) Failed() int {
	total := 0
	for _, p := range r.Playlists {
		total += p.Failed + p.TagFailed
	}
	return total
}

// FailedPlaylists counts playlists that could not be processed.
func (r Report) FailedPlaylists() int {
	count := 0
	for _, p := range r.Playlists {
		if p.Err != nil {
			count++
		}
	}
	return count
}

// Degraded reports whether anything in the run went wrong without aborting it.
func (r Report) Degraded() bool {
	return r.ResolveErr != nil || r.FailedPlaylists() > 0 || r.Failed() > 0
}
