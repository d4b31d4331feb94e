// Package confwatch reloads the configuration file when it changes on disk.
package confwatch

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is the quiet period after the last change before a reload.
const DefaultDebounce = 200 * time.Millisecond

// ReloadFunc applies the configuration file at its current contents.
type ReloadFunc func() error

// Watch watches the config file at path and calls reload once writes have
// settled for debounce, until ctx is cancelled. A failing reload is logged
// and the previous configuration stays in effect.
//
// The parent directory is watched rather than the file itself so that
// editors replacing the file through a rename are still seen.
func Watch(ctx context.Context, path string, debounce time.Duration, logger *slog.Logger, reload ReloadFunc) error {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := w.Add(filepath.Dir(abs)); err != nil {
		return err
	}

	logger.Info("confwatch: started", slog.String("path", abs))

	var timer *time.Timer
	var timerCh <-chan time.Time

	schedule := func() {
		if timer == nil {
			timer = time.NewTimer(debounce)
			timerCh = timer.C
		} else {
			timer.Reset(debounce)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			logger.Info("confwatch: stopped")
			return nil

		case <-timerCh:
			if err := reload(); err != nil {
				logger.Warn("confwatch: reload failed",
					slog.String("path", abs),
					slog.String("error", err.Error()))
				continue
			}
			logger.Info("confwatch: reloaded", slog.String("path", abs))

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != abs {
				continue
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) != 0 {
				logger.Debug("confwatch: change", slog.String("op", ev.Op.String()))
				schedule()
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("confwatch: error", slog.String("error", watchErr.Error()))
		}
	}
}
