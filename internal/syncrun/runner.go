package syncrun

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"playsync/internal/acquire"
	"playsync/internal/config"
	"playsync/internal/differ"
	"playsync/internal/ledger"
	"playsync/internal/logging"
	"playsync/internal/notifications"
	"playsync/internal/preflight"
	"playsync/internal/remote"
	"playsync/internal/retry"
	"playsync/internal/tagger"
	"playsync/internal/textutil"
)

// ErrPreflight marks a run aborted before any playlist was touched because a
// required tool or path check failed.
var ErrPreflight = errors.New("preflight checks failed")

// Resolver expands the configured playlist source.
type Resolver interface {
	Resolve(ctx context.Context, src config.Playlists) ([]remote.Playlist, error)
}

// SnapshotReader reads the remote listing for one playlist.
type SnapshotReader interface {
	Snapshot(ctx context.Context, pl remote.Playlist) (string, []remote.Entry, error)
}

// Acquirer executes the fetch side of a plan.
type Acquirer interface {
	Execute(ctx context.Context, playlistID, destDir string, planned []differ.PlanEntry) (acquire.Summary, error)
}

// Normalizer writes playlist metadata into one file.
type Normalizer interface {
	Normalize(req tagger.Request) error
}

// Runner owns one ledger and executes synchronization passes against it.
type Runner struct {
	cfg        *config.Config
	ledger     *ledger.Ledger
	resolver   Resolver
	reader     SnapshotReader
	acquirer   Acquirer
	normalizer Normalizer
	notifier   notifications.Service
	log        *slog.Logger
	now        func() time.Time

	// skipPreflight is set in tests that have no real tools on PATH.
	skipPreflight bool
}

// New wires a Runner from already constructed components.
func New(cfg *config.Config, led *ledger.Ledger, resolver Resolver, reader SnapshotReader, acquirer Acquirer, normalizer Normalizer, notifier notifications.Service, log *slog.Logger) *Runner {
	if notifier == nil {
		notifier = notifications.NewService(cfg)
	}
	if log == nil {
		log = logging.NewNop()
	}
	return &Runner{
		cfg:        cfg,
		ledger:     led,
		resolver:   resolver,
		reader:     reader,
		acquirer:   acquirer,
		normalizer: normalizer,
		notifier:   notifier,
		log:        log,
		now:        time.Now,
	}
}

// RetryPolicy derives the reconciliation retry policy from config.
func RetryPolicy(cfg *config.Config) retry.Policy {
	return retry.Policy{
		Ceiling:   cfg.Sync.RetryCeiling,
		BaseDelay: time.Duration(cfg.Sync.RetryBaseDelay) * time.Second,
		MaxDelay:  time.Duration(cfg.Sync.RetryMaxDelay) * time.Second,
	}
}

// Run executes one synchronization pass. The returned error is fatal: failed
// preflight or a ledger write failure. Per-playlist and per-entry failures
// are contained in the report.
func (r *Runner) Run(ctx context.Context) (Report, error) {
	start := r.now()
	report := Report{RunID: uuid.NewString()[:8], StartedAt: start}
	log := r.log.With(logging.String(logging.FieldRunID, report.RunID))

	if !r.skipPreflight {
		if failed := preflight.Failed(preflight.RunAll(r.cfg)); len(failed) > 0 {
			details := make([]string, 0, len(failed))
			for _, f := range failed {
				details = append(details, fmt.Sprintf("%s: %s", f.Name, f.Detail))
			}
			err := fmt.Errorf("%w: %s", ErrPreflight, strings.Join(details, "; "))
			_ = r.notifier.NotifyFatal(ctx, err)
			return report, err
		}
	}

	playlists, err := r.resolver.Resolve(ctx, r.cfg.Playlists)
	if err != nil {
		report.ResolveErr = err
		report.Duration = r.now().Sub(start)
		log.Error("playlist source unavailable", logging.Error(err))
		_ = r.notifier.NotifyRunDegraded(ctx, 0, err.Error())
		return report, nil
	}

	log.Info("run started", logging.Int("playlists", len(playlists)))
	_ = r.notifier.NotifyRunStarted(ctx, len(playlists))

	for _, pl := range playlists {
		if ctx.Err() != nil {
			break
		}
		result, fatal := r.syncPlaylist(ctx, log, pl)
		report.Playlists = append(report.Playlists, result)
		if fatal != nil {
			report.Duration = r.now().Sub(start)
			_ = r.notifier.NotifyFatal(ctx, fatal)
			return report, fatal
		}
	}

	report.Duration = r.now().Sub(start)
	log.Info("run finished",
		logging.Int("acquired", report.Acquired()),
		logging.Int("tagged", report.Tagged()),
		logging.Int("failed", report.Failed()),
		logging.Duration("duration", report.Duration))

	if report.FailedPlaylists() > 0 {
		_ = r.notifier.NotifyRunDegraded(ctx, report.FailedPlaylists(), "")
	} else {
		_ = r.notifier.NotifyRunCompleted(ctx, report.Acquired(), report.Tagged(), report.Failed(), report.Duration)
	}
	return report, nil
}

// syncPlaylist runs one playlist end to end. The second return value is
// non-nil only for ledger failures, which abort the run.
func (r *Runner) syncPlaylist(ctx context.Context, log *slog.Logger, pl remote.Playlist) (PlaylistResult, error) {
	result := PlaylistResult{PlaylistID: pl.ID, DisplayName: pl.Title}
	plog := log.With(logging.String(logging.FieldPlaylistID, pl.ID))

	title, remoteEntries, err := r.reader.Snapshot(ctx, pl)
	if err != nil {
		plog.Warn("playlist skipped", logging.Error(err))
		result.Err = err
		return result, nil
	}
	result.DisplayName = title

	if err := r.ledger.EnsurePlaylist(pl.ID, title, pl.URL); err != nil {
		return result, fmt.Errorf("persist playlist record: %w", err)
	}
	record, _ := r.ledger.Playlist(pl.ID)

	plan := differ.Reconcile(pl.ID, remoteEntries, record.Entries, differ.Policy{
		Retry: RetryPolicy(r.cfg),
		Now:   r.now,
	})
	result.Planned = len(plan.Fetch)
	result.Unchanged = len(plan.Unchanged)
	result.Skipped = len(plan.Skipped)

	plog.Info("playlist reconciled",
		logging.Int("fetch", len(plan.Fetch)),
		logging.Int("tag", len(plan.Tag)),
		logging.Int("unchanged", len(plan.Unchanged)),
		logging.Int("skipped", len(plan.Skipped)))

	destDir := filepath.Join(r.cfg.Paths.LibraryDir, textutil.SanitizeFileName(title))

	summary, err := r.acquirer.Execute(ctx, pl.ID, destDir, plan.Fetch)
	if err != nil {
		return result, fmt.Errorf("acquisition batch: %w", err)
	}
	result.Acquired = summary.Acquired
	result.Failed = summary.Failed

	// Tag everything the plan scheduled plus what this run just acquired.
	toTag := append([]differ.PlanEntry(nil), plan.Tag...)
	for _, res := range summary.Results {
		if res.Err != nil {
			continue
		}
		for _, planned := range plan.Fetch {
			if planned.Remote.ID == res.EntryID {
				toTag = append(toTag, planned)
				break
			}
		}
	}

	if fatal := r.normalizeEntries(plog, pl.ID, title, toTag, &result); fatal != nil {
		return result, fatal
	}
	return result, nil
}

func (r *Runner) normalizeEntries(log *slog.Logger, playlistID, album string, toTag []differ.PlanEntry, result *PlaylistResult) error {
	if r.normalizer == nil || len(toTag) == 0 {
		return nil
	}
	record, ok := r.ledger.Playlist(playlistID)
	if !ok {
		return nil
	}

	for _, planned := range toTag {
		entry, known := record.Entries[planned.Remote.ID]
		if !known || entry.LocalPath == "" {
			continue
		}

		err := r.normalizer.Normalize(tagger.Request{
			Path:  entry.LocalPath,
			Album: album,
			Track: planned.Remote.Position,
			Title: planned.Remote.Title,
		})
		if err != nil {
			// The audio payload is intact; stay acquired and retry next run.
			result.TagFailed++
			log.Warn("normalization failed",
				logging.String(logging.FieldEntryID, planned.Remote.ID),
				logging.Error(err))
			applyErr := r.ledger.Apply(playlistID, planned.Remote.ID, func(e *ledger.Entry) {
				e.LastError = err.Error()
			})
			if applyErr != nil {
				return fmt.Errorf("record normalization failure: %w", applyErr)
			}
			continue
		}

		result.Tagged++
		applyErr := r.ledger.Apply(playlistID, planned.Remote.ID, func(e *ledger.Entry) {
			e.Status = ledger.StatusTagged
			e.Position = planned.Remote.Position
			e.Title = planned.Remote.Title
			e.LastError = ""
		})
		if applyErr != nil {
			return fmt.Errorf("record normalization: %w", applyErr)
		}
	}
	return nil
}
