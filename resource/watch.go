package resource

import (
	"context"
	"errors"
	"io/fs"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Watch starts watching all on-disk folders and reloads the index whenever a
// matching file is written, created, removed or renamed. It returns after the
// watcher is set up; events are handled on a background goroutine that exits
// when ctx is cancelled or Close is called. Cancelling ctx also releases the
// watcher, after which Watch may be called again.
func (e *Explorer) Watch(ctx context.Context) error {
	e.watchMu.Lock()
	defer e.watchMu.Unlock()

	if e.watcher != nil {
		select {
		case <-e.done:
			e.watcher = nil
		default:
			return nil
		}
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}

	e.mu.RLock()
	sources := append([]source(nil), e.sources...)
	e.mu.RUnlock()

	for _, src := range sources {
		if src.dir == "" {
			continue
		}
		if err := addWatchDirs(w, src); err != nil {
			_ = w.Close()
			return err
		}
	}

	e.watcher = w
	e.done = make(chan struct{})

	go e.watchLoop(ctx, w, e.done)

	return nil
}

func addWatchDirs(w *fsnotify.Watcher, src source) error {
	if !src.recursive {
		return w.Add(src.dir)
	}
	return filepath.WalkDir(src.dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return w.Add(p)
		}
		return nil
	})
}

func (e *Explorer) watchLoop(ctx context.Context, w *fsnotify.Watcher, done chan struct{}) {
	defer close(done)

	for {
		select {
		case <-ctx.Done():
			if err := w.Close(); err != nil && !errors.Is(err, fsnotify.ErrClosed) {
				e.opts.Logger.Warn("closing resource watcher failed", "error", err)
			}
			return
		case ev, ok := <-w.Events:
			if !ok {
				return
			}
			if !e.accepts(ev.Name) {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Remove) && !ev.Has(fsnotify.Rename) {
				continue
			}
			e.opts.Logger.Debug("resource changed", "path", ev.Name, "op", ev.Op.String())
			if _, err := e.Reload(); err != nil {
				e.opts.Logger.Error("resource reload failed", "error", err)
			}
		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			e.opts.Logger.Warn("resource watcher error", "error", err)
		}
	}
}

// Close stops the watcher (if any) and waits for its goroutine to exit.
func (e *Explorer) Close() error {
	e.watchMu.Lock()
	defer e.watchMu.Unlock()

	if e.watcher == nil {
		return nil
	}

	err := e.watcher.Close()
	<-e.done
	e.watcher = nil

	if errors.Is(err, fsnotify.ErrClosed) {
		return nil
	}

	return err
}
