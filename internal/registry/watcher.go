package registry

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// Watcher invalidates a Catalog when files under its directories change.
type Watcher struct {
	catalog  *Catalog
	watcher  *fsnotify.Watcher
	logger   zerolog.Logger
	debounce time.Duration

	// OnChange, if set, is called after each invalidation.
	OnChange func()
}

// NewWatcher watches every directory below roots.
func NewWatcher(catalog *Catalog, logger zerolog.Logger, roots ...string) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	w := &Watcher{
		catalog:  catalog,
		watcher:  fw,
		logger:   logger.With().Str("component", "registry-watcher").Logger(),
		debounce: 100 * time.Millisecond,
	}
	for _, root := range roots {
		if err := w.addTree(root); err != nil {
			fw.Close()
			return nil, err
		}
	}
	return w, nil
}

// Run processes events until ctx is done, then closes the underlying
// watcher.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.watcher.Close()

	var flush <-chan time.Time
	var timer *time.Timer
	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return nil

		case ev, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			if ev.Op&fsnotify.Create != 0 {
				if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
					if err := w.addTree(ev.Name); err != nil {
						w.logger.Warn().Err(err).Str("dir", ev.Name).Msg("watch new directory")
					}
				}
			}
			w.logger.Debug().Str("path", ev.Name).Str("op", ev.Op.String()).Msg("registry file changed")
			// Coalesce bursts of events from a single save.
			if timer == nil {
				timer = time.NewTimer(w.debounce)
				flush = timer.C
			}

		case <-flush:
			timer, flush = nil, nil
			w.catalog.Invalidate()
			if w.OnChange != nil {
				w.OnChange()
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Err(err).Msg("watch error")
		}
	}
}

func (w *Watcher) addTree(root string) error {
	return filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if d.Name() == "node_modules" || d.Name() == ".git" {
			return filepath.SkipDir
		}
		return w.watcher.Add(p)
	})
}
