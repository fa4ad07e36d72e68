package presets

import (
	"context"
	"log/slog"
	"time"

	"github.com/fsnotify/fsnotify"
)

// ReloadCallback is called after a watcher-driven reload.
type ReloadCallback func()

// Watch starts an fsnotify watcher on the preset directory and reloads the
// store when YAML files change, until ctx is cancelled. Bursts of events
// (editors writing temp files, bulk copies) are debounced into one reload.
// It calls cb (if non-nil) after each successful reload.
func (s *Store) Watch(ctx context.Context, cb ReloadCallback) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := w.Add(s.dir); err != nil {
		return err
	}
	s.logger.Info("presets: watcher started", slog.String("dir", s.dir))

	var reloadTimer *time.Timer
	var reloadCh <-chan time.Time

	scheduleReload := func() {
		if reloadTimer == nil {
			reloadTimer = time.NewTimer(200 * time.Millisecond)
			reloadCh = reloadTimer.C
		} else {
			reloadTimer.Reset(200 * time.Millisecond)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if reloadTimer != nil {
				reloadTimer.Stop()
			}
			s.logger.Info("presets: watcher stopped")
			return nil

		case <-reloadCh:
			if err := s.Load(); err != nil {
				s.logger.Warn("presets: reload failed", slog.String("error", err.Error()))
				continue
			}
			if cb != nil {
				cb()
			}

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if !isYAML(ev.Name) {
				continue
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) != 0 {
				s.logger.Debug("presets: change detected", slog.String("path", ev.Name), slog.String("op", ev.Op.String()))
				scheduleReload()
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			s.logger.Error("presets: watcher error", slog.String("error", watchErr.Error()))
		}
	}
}
