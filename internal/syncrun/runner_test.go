package syncrun

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"playsync/internal/acquire"
	"playsync/internal/config"
	"playsync/internal/differ"
	"playsync/internal/ledger"
	"playsync/internal/remote"
	"playsync/internal/tagger"
	"playsync/internal/testsupport"
)

type fakeResolver struct {
	playlists []remote.Playlist
	err       error
}

func (f *fakeResolver) Resolve(context.Context, config.Playlists) ([]remote.Playlist, error) {
	return f.playlists, f.err
}

type fakeReader struct {
	titles  map[string]string
	entries map[string][]remote.Entry
	errs    map[string]error
}

func (f *fakeReader) Snapshot(_ context.Context, pl remote.Playlist) (string, []remote.Entry, error) {
	if err := f.errs[pl.ID]; err != nil {
		return "", nil, err
	}
	return f.titles[pl.ID], f.entries[pl.ID], nil
}

// fakeAcquirer records acquisitions in the real ledger the way the real
// orchestrator does, so the tagging pass sees local paths.
type fakeAcquirer struct {
	led  *ledger.Ledger
	fail map[string]error
	err  error
}

func (f *fakeAcquirer) Execute(_ context.Context, playlistID, destDir string, planned []differ.PlanEntry) (acquire.Summary, error) {
	if f.err != nil {
		return acquire.Summary{}, f.err
	}
	var summary acquire.Summary
	for _, p := range planned {
		re := p.Remote
		if failErr := f.fail[re.ID]; failErr != nil {
			summary.Failed++
			summary.Results = append(summary.Results, acquire.Result{EntryID: re.ID, Err: failErr})
			err := f.led.Apply(playlistID, re.ID, func(e *ledger.Entry) {
				e.Status = ledger.StatusFailed
				e.AttemptCount++
				e.LastError = failErr.Error()
			})
			if err != nil {
				return summary, err
			}
			continue
		}
		path := fmt.Sprintf("%s/%s.mp3", destDir, re.ID)
		summary.Acquired++
		summary.Results = append(summary.Results, acquire.Result{EntryID: re.ID, Path: path})
		err := f.led.Apply(playlistID, re.ID, func(e *ledger.Entry) {
			e.Status = ledger.StatusAcquired
			e.Title = re.Title
			e.Position = re.Position
			e.LocalPath = path
			e.ContentFingerprint = "f-" + re.ID
		})
		if err != nil {
			return summary, err
		}
	}
	return summary, nil
}

type fakeNormalizer struct {
	requests []tagger.Request
	fail     map[string]error
}

func (f *fakeNormalizer) Normalize(req tagger.Request) error {
	f.requests = append(f.requests, req)
	for path, err := range f.fail {
		if path == req.Path {
			return err
		}
	}
	return nil
}

type runnerFixture struct {
	runner     *Runner
	ledger     *ledger.Ledger
	normalizer *fakeNormalizer
	acquirer   *fakeAcquirer
}

func newFixture(t *testing.T, resolver *fakeResolver, reader *fakeReader) *runnerFixture {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	led := testsupport.MustOpenLedger(t, cfg)
	normalizer := &fakeNormalizer{}
	acquirer := &fakeAcquirer{led: led}
	runner := New(cfg, led, resolver, reader, acquirer, normalizer, nil, nil)
	runner.skipPreflight = true
	return &runnerFixture{runner: runner, ledger: led, normalizer: normalizer, acquirer: acquirer}
}

func playlistRef(id string) remote.Playlist {
	return remote.Playlist{ID: id, URL: remote.PlaylistURL(id)}
}

func TestRunAcquiresAndTagsNewEntries(t *testing.T) {
	resolver := &fakeResolver{playlists: []remote.Playlist{playlistRef("PL1")}}
	reader := &fakeReader{
		titles: map[string]string{"PL1": "Road Trip"},
		entries: map[string][]remote.Entry{
			"PL1": {
				{ID: "a", Title: "Song A", Position: 1},
				{ID: "b", Title: "Song B", Position: 2},
			},
		},
	}
	fx := newFixture(t, resolver, reader)

	report, err := fx.runner.Run(context.Background())
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if report.Acquired() != 2 || report.Tagged() != 2 || report.Failed() != 0 {
		t.Fatalf("report = %+v", report)
	}

	record, ok := fx.ledger.Playlist("PL1")
	if !ok {
		t.Fatal("playlist record missing")
	}
	if record.DisplayName != "Road Trip" {
		t.Errorf("display name = %q", record.DisplayName)
	}
	for _, id := range []string{"a", "b"} {
		entry := record.Entries[id]
		if entry == nil || entry.Status != ledger.StatusTagged {
			t.Errorf("entry %s = %+v, want tagged", id, entry)
		}
	}
	if len(fx.normalizer.requests) != 2 {
		t.Fatalf("normalizer calls = %d", len(fx.normalizer.requests))
	}
	if fx.normalizer.requests[0].Album != "Road Trip" {
		t.Errorf("album = %q", fx.normalizer.requests[0].Album)
	}
}

func TestRunSecondPassIsNoop(t *testing.T) {
	resolver := &fakeResolver{playlists: []remote.Playlist{playlistRef("PL1")}}
	reader := &fakeReader{
		titles: map[string]string{"PL1": "Road Trip"},
		entries: map[string][]remote.Entry{
			"PL1": {{ID: "a", Title: "Song A", Position: 1}},
		},
	}
	fx := newFixture(t, resolver, reader)

	if _, err := fx.runner.Run(context.Background()); err != nil {
		t.Fatalf("first run: %v", err)
	}
	report, err := fx.runner.Run(context.Background())
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if report.Acquired() != 0 || report.Tagged() != 0 {
		t.Fatalf("second run must be a no-op, got %+v", report)
	}
	if report.Playlists[0].Unchanged != 1 {
		t.Errorf("unchanged = %d, want 1", report.Playlists[0].Unchanged)
	}
}

func TestRunSkipsUnavailablePlaylist(t *testing.T) {
	resolver := &fakeResolver{playlists: []remote.Playlist{playlistRef("PL1"), playlistRef("PL2")}}
	reader := &fakeReader{
		titles: map[string]string{"PL2": "Still Works"},
		entries: map[string][]remote.Entry{
			"PL2": {{ID: "z", Title: "Song Z", Position: 1}},
		},
		errs: map[string]error{"PL1": fmt.Errorf("%w: listing failed", remote.ErrUnavailable)},
	}
	fx := newFixture(t, resolver, reader)

	report, err := fx.runner.Run(context.Background())
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if report.FailedPlaylists() != 1 {
		t.Fatalf("failed playlists = %d", report.FailedPlaylists())
	}
	if report.Acquired() != 1 {
		t.Fatalf("the healthy playlist must still be processed: %+v", report)
	}
	if _, ok := fx.ledger.Playlist("PL1"); ok {
		t.Error("unreachable playlist must not create a ledger record")
	}
}

func TestRunResolveFailureIsDegradedNotFatal(t *testing.T) {
	resolver := &fakeResolver{err: errors.New("channel page unreachable")}
	fx := newFixture(t, resolver, &fakeReader{})

	report, err := fx.runner.Run(context.Background())
	if err != nil {
		t.Fatalf("resolution failure must not be fatal: %v", err)
	}
	if report.ResolveErr == nil || !report.Degraded() {
		t.Fatalf("report = %+v", report)
	}
}

func TestRunNormalizationFailureLeavesAcquired(t *testing.T) {
	resolver := &fakeResolver{playlists: []remote.Playlist{playlistRef("PL1")}}
	reader := &fakeReader{
		titles: map[string]string{"PL1": "Road Trip"},
		entries: map[string][]remote.Entry{
			"PL1": {{ID: "a", Title: "Song A", Position: 1}},
		},
	}
	fx := newFixture(t, resolver, reader)
	destPath := fx.runner.cfg.Paths.LibraryDir + "/Road Trip/a.mp3"
	fx.normalizer.fail = map[string]error{destPath: tagger.ErrNormalization}

	report, err := fx.runner.Run(context.Background())
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if report.Playlists[0].TagFailed != 1 {
		t.Fatalf("report = %+v", report.Playlists[0])
	}

	record, _ := fx.ledger.Playlist("PL1")
	entry := record.Entries["a"]
	if entry.Status != ledger.StatusAcquired {
		t.Fatalf("status = %s, tagging failure must not revert acquisition", entry.Status)
	}
	if entry.LastError == "" {
		t.Error("tag failure must be surfaced on the entry")
	}

	// The next run retries tagging without re-downloading.
	fx.normalizer.fail = nil
	report, err = fx.runner.Run(context.Background())
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if report.Acquired() != 0 || report.Tagged() != 1 {
		t.Fatalf("second run = %+v", report)
	}
}

func TestRunRetagsOnPositionChange(t *testing.T) {
	resolver := &fakeResolver{playlists: []remote.Playlist{playlistRef("PL1")}}
	reader := &fakeReader{
		titles: map[string]string{"PL1": "Road Trip"},
		entries: map[string][]remote.Entry{
			"PL1": {{ID: "a", Title: "Song A", Position: 1}},
		},
	}
	fx := newFixture(t, resolver, reader)

	if _, err := fx.runner.Run(context.Background()); err != nil {
		t.Fatalf("first run: %v", err)
	}

	reader.entries["PL1"] = []remote.Entry{{ID: "a", Title: "Song A", Position: 4}}
	report, err := fx.runner.Run(context.Background())
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if report.Acquired() != 0 {
		t.Fatal("position change must not re-download")
	}
	if report.Tagged() != 1 {
		t.Fatalf("expected one retag, got %+v", report)
	}

	record, _ := fx.ledger.Playlist("PL1")
	if got := record.Entries["a"].Position; got != 4 {
		t.Errorf("position = %d, want 4", got)
	}
	last := fx.normalizer.requests[len(fx.normalizer.requests)-1]
	if last.Track != 4 {
		t.Errorf("retag track = %d, want 4", last.Track)
	}
}

func TestRunLedgerFailureIsFatal(t *testing.T) {
	resolver := &fakeResolver{playlists: []remote.Playlist{playlistRef("PL1")}}
	reader := &fakeReader{
		titles: map[string]string{"PL1": "Road Trip"},
		entries: map[string][]remote.Entry{
			"PL1": {{ID: "a", Title: "Song A", Position: 1}},
		},
	}
	fx := newFixture(t, resolver, reader)
	fx.acquirer.err = errors.New("ledger write failed: disk full")

	if _, err := fx.runner.Run(context.Background()); err == nil {
		t.Fatal("acquisition batch errors must abort the run")
	}
}

func TestRunPreflightFailureIsFatal(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Tools.YtdlpPath = "definitely-not-a-real-binary"
	led := testsupport.MustOpenLedger(t, cfg)
	runner := New(cfg, led, &fakeResolver{}, &fakeReader{}, &fakeAcquirer{led: led}, &fakeNormalizer{}, nil, nil)

	_, err := runner.Run(context.Background())
	if !errors.Is(err, ErrPreflight) {
		t.Fatalf("expected ErrPreflight, got %v", err)
	}
}

func TestRunPreflightPassesWithStubbedTools(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithStubbedBinaries())
	cfg.Sync.MinFreeMB = 0
	led := testsupport.MustOpenLedger(t, cfg)
	runner := New(cfg, led, &fakeResolver{}, &fakeReader{}, &fakeAcquirer{led: led}, &fakeNormalizer{}, nil, nil)

	if _, err := runner.Run(context.Background()); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
}

func TestRunLoopStopsOnCancel(t *testing.T) {
	resolver := &fakeResolver{playlists: []remote.Playlist{playlistRef("PL1")}}
	reader := &fakeReader{
		titles:  map[string]string{"PL1": "Road Trip"},
		entries: map[string][]remote.Entry{"PL1": nil},
	}
	fx := newFixture(t, resolver, reader)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- fx.runner.RunLoop(ctx, time.Hour) }()

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("RunLoop returned error: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("RunLoop did not stop on cancellation")
	}
}

type countingResolver struct {
	runs atomic.Int32
}

func (c *countingResolver) Resolve(context.Context, config.Playlists) ([]remote.Playlist, error) {
	c.runs.Add(1)
	return nil, nil
}

func TestRunLoopRunsOnPlaylistFileChange(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithPlaylistFile("https://music.youtube.com/playlist?list=PLfile\n"))
	led := testsupport.MustOpenLedger(t, cfg)
	resolver := &countingResolver{}
	runner := New(cfg, led, resolver, &fakeReader{}, &fakeAcquirer{led: led}, &fakeNormalizer{}, nil, nil)
	runner.skipPreflight = true

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- runner.RunLoop(ctx, time.Hour) }()

	waitForRuns := func(want int32, deadline time.Duration) {
		t.Helper()
		timeout := time.After(deadline)
		for resolver.runs.Load() < want {
			select {
			case <-timeout:
				t.Fatalf("saw %d runs, want %d", resolver.runs.Load(), want)
			case <-time.After(50 * time.Millisecond):
			}
		}
	}

	waitForRuns(1, 5*time.Second)

	if err := os.WriteFile(cfg.Playlists.File, []byte("PLupdated\n"), 0o644); err != nil {
		t.Fatalf("rewrite playlist file: %v", err)
	}
	waitForRuns(2, 10*time.Second)

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("RunLoop returned error: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("RunLoop did not stop")
	}
}
