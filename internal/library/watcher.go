package library

import (
	"context"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/othala/internal/store"
)

// ReloadCallback is called after a watcher-driven snapshot swap.
type ReloadCallback func(l *Library)

// Watch monitors the store file and rebuilds the snapshot when it changes,
// then swaps it into the handle and calls cb (if non-nil). It runs until
// ctx is cancelled.
//
// SQLite writes land on the main file, the -wal journal, or both, so the
// containing directory is watched and events are filtered by basename.
// Bursts of journal activity are debounced into one reload.
func Watch(ctx context.Context, h *Handle, s *store.Store, logger *slog.Logger, cb ReloadCallback) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	dir := filepath.Dir(s.Path())
	base := filepath.Base(s.Path())
	if err := w.Add(dir); err != nil {
		return err
	}
	logger.Info("watcher: started", slog.String("store", s.Path()))

	var reloadTimer *time.Timer
	var reloadCh <-chan time.Time

	scheduleReload := func() {
		if reloadTimer == nil {
			reloadTimer = time.NewTimer(500 * time.Millisecond)
			reloadCh = reloadTimer.C
		} else {
			reloadTimer.Reset(500 * time.Millisecond)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if reloadTimer != nil {
				reloadTimer.Stop()
			}
			logger.Info("watcher: stopped")
			return nil

		case <-reloadCh:
			lib, loadErr := Load(ctx, s, logger)
			if loadErr != nil {
				logger.Warn("watcher: reload failed", slog.String("error", loadErr.Error()))
				continue
			}
			h.Replace(lib)
			logger.Info("watcher: snapshot reloaded", slog.Int("notes", lib.Len()))
			if cb != nil {
				cb(lib)
			}

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			name := filepath.Base(ev.Name)
			if name != base && !strings.HasPrefix(name, base+"-") {
				continue
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) == 0 {
				continue
			}
			logger.Debug("watcher: store changed",
				slog.String("file", name), slog.String("op", ev.Op.String()))
			scheduleReload()

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}
