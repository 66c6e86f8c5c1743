package watcher

import (
	"context"
	"path/filepath"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

const DebounceInterval = 200 * time.Millisecond

// Watch calls onChange after each save of path until ctx is done. Bursts of
// events are collapsed into one call.
func Watch(ctx context.Context, logger *zap.Logger, path string, onChange func(context.Context)) error {
	if logger == nil {
		logger = zap.NewNop()
	}

	target, err := filepath.Abs(path)
	if err != nil {
		return errors.Wrapf(err, "failed to resolve path: %s", path)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Wrap(err, "failed to create file watcher")
	}
	defer watcher.Close()

	// Editors often replace files on save, so the directory is watched.
	if err := watcher.Add(filepath.Dir(target)); err != nil {
		return errors.Wrapf(err, "failed to watch directory: %s", filepath.Dir(target))
	}

	fire := make(chan struct{}, 1)
	var debounceTimer *time.Timer
	defer func() {
		if debounceTimer != nil {
			debounceTimer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !isRelevantChange(event, target) {
				continue
			}

			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			debounceTimer = time.AfterFunc(DebounceInterval, func() {
				select {
				case fire <- struct{}{}:
				default:
				}
			})

		case <-fire:
			onChange(ctx)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("watcher error", zap.Error(err))
		}
	}
}

func isRelevantChange(event fsnotify.Event, target string) bool {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
		return false
	}
	name, err := filepath.Abs(event.Name)
	if err != nil {
		return false
	}
	return name == target
}
