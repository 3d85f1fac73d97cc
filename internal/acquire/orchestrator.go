package acquire

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"playsync/internal/differ"
	"playsync/internal/ledger"
	"playsync/internal/logging"
	"playsync/internal/remote"
	"playsync/internal/services/ytdlp"
)

// ErrToolTimeout marks an acquisition aborted because the retrieval tool
// exceeded its per-entry deadline. It counts as an ordinary acquisition
// failure for retry accounting.
var ErrToolTimeout = errors.New("retrieval tool timed out")

// Fetcher is the retrieval side of the external tool client.
type Fetcher interface {
	Download(ctx context.Context, req ytdlp.DownloadRequest) (string, error)
}

// Transcoder converts an acquired file to the configured target format.
type Transcoder interface {
	Transcode(ctx context.Context, inputPath, format string) (string, error)
}

// Recorder persists per-entry state transitions. The ledger satisfies it.
type Recorder interface {
	Apply(playlistID, entryID string, mutate func(*ledger.Entry)) error
}

// Options bound the orchestrator's parallelism and shape tool invocations.
type Options struct {
	// Workers is the pool size. Values below 1 fall back to 1; the config
	// layer already caps the upper bound.
	Workers int
	// RatePerSecond throttles tool launches across all workers.
	RatePerSecond float64
	// ToolTimeout is the per-entry deadline for one tool invocation,
	// including any transcode pass. Zero disables it.
	ToolTimeout time.Duration

	AudioFormat     string
	AudioQuality    string
	TranscodeFormat string
	EmbedThumbnail  bool
	EmbedMetadata   bool
	WriteLyrics     bool

	// Now stamps attempt times. Defaults to time.Now.
	Now func() time.Time
}

// Result is the outcome of one scheduled acquisition.
type Result struct {
	EntryID string
	Path    string
	Err     error
}

// Summary aggregates a batch for the run report.
type Summary struct {
	Acquired int
	Failed   int
	Results  []Result
}

// Orchestrator runs acquisition batches.
type Orchestrator struct {
	fetcher    Fetcher
	transcoder Transcoder
	recorder   Recorder
	opts       Options
	log        *slog.Logger
}

// New wires an Orchestrator. transcoder may be nil when no transcode format
// is configured.
func New(fetcher Fetcher, transcoder Transcoder, recorder Recorder, opts Options, log *slog.Logger) *Orchestrator {
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if log == nil {
		log = logging.NewNop()
	}
	return &Orchestrator{fetcher: fetcher, transcoder: transcoder, recorder: recorder, opts: opts, log: log}
}

// Execute fetches every planned entry into destDir, recording each transition
// in the ledger before moving on. Entry failures are contained; the returned
// error is reserved for ledger write failures, which are fatal.
func (o *Orchestrator) Execute(ctx context.Context, playlistID, destDir string, planned []differ.PlanEntry) (Summary, error) {
	summary := Summary{Results: make([]Result, 0, len(planned))}
	if len(planned) == 0 {
		return summary, nil
	}
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return summary, fmt.Errorf("create playlist directory: %w", err)
	}

	var limiter *rate.Limiter
	if o.opts.RatePerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(o.opts.RatePerSecond), 1)
	}

	jobs := make(chan differ.PlanEntry, len(planned))
	results := make(chan Result, len(planned))

	var wg sync.WaitGroup
	for i := 0; i < o.opts.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for entry := range jobs {
				if limiter != nil {
					if err := limiter.Wait(ctx); err != nil {
						results <- Result{EntryID: entry.Remote.ID, Err: err}
						continue
					}
				}
				results <- o.acquireOne(ctx, playlistID, destDir, entry.Remote)
			}
		}()
	}

	for _, entry := range planned {
		jobs <- entry
	}
	close(jobs)

	go func() {
		wg.Wait()
		close(results)
	}()

	var ledgerErr error
	for res := range results {
		summary.Results = append(summary.Results, res)
		if res.Err == nil {
			summary.Acquired++
		} else {
			summary.Failed++
			if errors.Is(res.Err, errLedgerWrite) {
				ledgerErr = res.Err
			}
		}
	}
	return summary, ledgerErr
}

var errLedgerWrite = errors.New("ledger write failed")

func (o *Orchestrator) acquireOne(ctx context.Context, playlistID, destDir string, re remote.Entry) Result {
	// Record the observation before any side effects so a crash mid-fetch
	// leaves a resumable pending entry.
	err := o.recorder.Apply(playlistID, re.ID, func(e *ledger.Entry) {
		e.Title = re.Title
		e.Position = re.Position
		if e.Status != ledger.StatusAcquired && e.Status != ledger.StatusTagged {
			e.Status = ledger.StatusPending
		}
	})
	if err != nil {
		return Result{EntryID: re.ID, Err: fmt.Errorf("%w: %v", errLedgerWrite, err)}
	}

	path, fetchErr := o.fetch(ctx, destDir, re)
	now := o.opts.Now()

	if fetchErr != nil {
		o.log.Warn("acquisition failed",
			logging.String(logging.FieldPlaylistID, playlistID),
			logging.String(logging.FieldEntryID, re.ID),
			logging.Error(fetchErr))
		err = o.recorder.Apply(playlistID, re.ID, func(e *ledger.Entry) {
			e.Status = ledger.StatusFailed
			e.AttemptCount++
			e.LastAttemptAt = now
			e.LastError = fetchErr.Error()
		})
		if err != nil {
			return Result{EntryID: re.ID, Err: fmt.Errorf("%w: %v", errLedgerWrite, err)}
		}
		return Result{EntryID: re.ID, Err: fetchErr}
	}

	fingerprint, fpErr := Fingerprint(path)
	if fpErr != nil {
		err = o.recorder.Apply(playlistID, re.ID, func(e *ledger.Entry) {
			e.Status = ledger.StatusFailed
			e.AttemptCount++
			e.LastAttemptAt = now
			e.LastError = fpErr.Error()
		})
		if err != nil {
			return Result{EntryID: re.ID, Err: fmt.Errorf("%w: %v", errLedgerWrite, err)}
		}
		return Result{EntryID: re.ID, Err: fpErr}
	}

	err = o.recorder.Apply(playlistID, re.ID, func(e *ledger.Entry) {
		e.Status = ledger.StatusAcquired
		e.LocalPath = path
		e.ContentFingerprint = fingerprint
		e.LastAttemptAt = now
		e.LastError = ""
	})
	if err != nil {
		return Result{EntryID: re.ID, Err: fmt.Errorf("%w: %v", errLedgerWrite, err)}
	}

	o.log.Info("entry acquired",
		logging.String(logging.FieldPlaylistID, playlistID),
		logging.String(logging.FieldEntryID, re.ID),
		logging.String(logging.FieldPath, path))
	return Result{EntryID: re.ID, Path: path}
}

// fetch runs the tool (and optional transcode) under the per-entry deadline.
func (o *Orchestrator) fetch(ctx context.Context, destDir string, re remote.Entry) (string, error) {
	if o.opts.ToolTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.opts.ToolTimeout)
		defer cancel()
	}

	path, err := o.fetcher.Download(ctx, ytdlp.DownloadRequest{
		URL:            remote.WatchURL(re.ID),
		DestDir:        destDir,
		AudioFormat:    o.opts.AudioFormat,
		AudioQuality:   o.opts.AudioQuality,
		EmbedThumbnail: o.opts.EmbedThumbnail,
		EmbedMetadata:  o.opts.EmbedMetadata,
		WriteSubs:      o.opts.WriteLyrics,
	})
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return "", fmt.Errorf("%w after %s", ErrToolTimeout, o.opts.ToolTimeout)
		}
		return "", err
	}

	if o.transcoder != nil && o.opts.TranscodeFormat != "" {
		path, err = o.transcoder.Transcode(ctx, path, o.opts.TranscodeFormat)
		if err != nil {
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return "", fmt.Errorf("%w after %s", ErrToolTimeout, o.opts.ToolTimeout)
			}
			return "", err
		}
	}
	return path, nil
}
