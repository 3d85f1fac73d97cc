package syncrun

import (
	"context"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"playsync/internal/config"
	"playsync/internal/logging"
)

// debounce absorbs editor save bursts on the playlist file.
const debounce = 2 * time.Second

// RunLoop executes Run immediately and then again on every interval tick.
// When the playlist source is a file, edits to that file also trigger a run.
// The loop exits on context cancellation; only fatal run errors stop it.
func (r *Runner) RunLoop(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = r.cfg.Interval()
	}

	changes := r.watchPlaylistFile(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if _, err := r.Run(ctx); err != nil {
			return err
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		case <-changes:
			r.log.Info("playlist file changed, starting run")
			ticker.Reset(interval)
		}
	}
}

// watchPlaylistFile starts an fsnotify watcher over the playlist file and
// returns a debounced trigger channel. Watching the containing directory
// instead of the file survives the rename-replace pattern editors use. A nil
// return (watching unavailable) blocks forever in select.
func (r *Runner) watchPlaylistFile(ctx context.Context) <-chan struct{} {
	if r.cfg.Playlists.Source != config.SourceFile || r.cfg.Playlists.File == "" {
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		r.log.Warn("playlist file watching disabled", logging.Error(err))
		return nil
	}
	target := r.cfg.Playlists.File
	if err := watcher.Add(filepath.Dir(target)); err != nil {
		r.log.Warn("playlist file watching disabled",
			logging.String(logging.FieldPath, target),
			logging.Error(err))
		_ = watcher.Close()
		return nil
	}

	changes := make(chan struct{}, 1)
	go func() {
		defer func() { _ = watcher.Close() }()
		var quiet *time.Timer
		var fire <-chan time.Time
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if event.Name != target {
					continue
				}
				if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
					continue
				}
				if quiet == nil {
					quiet = time.NewTimer(debounce)
					fire = quiet.C
				} else {
					quiet.Reset(debounce)
				}
			case <-fire:
				quiet = nil
				fire = nil
				select {
				case changes <- struct{}{}:
				default:
				}
			case _, ok := <-watcher.Errors:
				if !ok {
					return
				}
			}
		}
	}()

	r.log.Info("watching playlist file", logging.String(logging.FieldPath, target))
	return changes
}
