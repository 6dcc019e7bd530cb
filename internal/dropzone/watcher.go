package dropzone

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/nebula-ui/nebula-upload/internal/constants"
	"github.com/nebula-ui/nebula-upload/internal/debounce"
	"github.com/nebula-ui/nebula-upload/internal/localfs"
	"github.com/nebula-ui/nebula-upload/internal/logging"
	"github.com/nebula-ui/nebula-upload/internal/models"
	"github.com/nebula-ui/nebula-upload/internal/transfer"
)

// Tracker is the part of the uploader the watcher needs to keep the record
// list in step with the folder.
type Tracker interface {
	Records() []transfer.FileRecord
	Remove(id string) bool
}

// Watcher turns a folder into a drag source. Files appearing in the folder
// are dragged over the surface and dropped once writes have settled.
// Deleting a dropped file removes its records.
type Watcher struct {
	dir     string
	surface *Surface
	tracker Tracker
	logger  *logging.Logger
	settle  time.Duration

	pending map[string]struct{}
	dropped map[string]struct{}
}

// WatcherOption customizes a Watcher.
type WatcherOption func(*Watcher)

// WithSettleDelay sets how long the folder must be quiet before a drop.
func WithSettleDelay(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		if d > 0 {
			w.settle = d
		}
	}
}

// WithWatcherLogger sets the logger for watcher diagnostics.
func WithWatcherLogger(l *logging.Logger) WatcherOption {
	return func(w *Watcher) {
		if l != nil {
			w.logger = l
		}
	}
}

// NewWatcher creates a Watcher for dir. tracker may be nil, in which case
// deletions are ignored.
func NewWatcher(dir string, surface *Surface, tracker Tracker, opts ...WatcherOption) (*Watcher, error) {
	if surface == nil {
		return nil, fmt.Errorf("drop surface required")
	}
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to stat drop folder: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", dir)
	}
	if abs, err := filepath.Abs(dir); err == nil {
		dir = abs
	}

	w := &Watcher{
		dir:     filepath.Clean(dir),
		surface: surface,
		tracker: tracker,
		logger:  logging.NewNopLogger(),
		settle:  constants.DropSettleDelay,
		pending: make(map[string]struct{}),
		dropped: make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Run watches the folder until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create folder watcher: %w", err)
	}
	defer fsWatcher.Close()

	if err := fsWatcher.Add(w.dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", w.dir, err)
	}

	settled := debounce.New[[]string](w.settle)
	defer settled.Stop()

	w.logger.Info().Str("dir", w.dir).Msg("Watching drop folder")

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-fsWatcher.Events:
			if !ok {
				return nil
			}
			w.handleEvent(event, settled)
		case err, ok := <-fsWatcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn().Err(err).Msg("Drop folder watcher error")
		case <-settled.C():
			w.drop(ctx)
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event, settled *debounce.Debouncer[[]string]) {
	path := filepath.Clean(event.Name)
	if path == "" || filepath.Dir(path) != w.dir || localfs.IsHidden(path) {
		return
	}

	switch {
	case event.Op&(fsnotify.Create|fsnotify.Write) != 0:
		info, err := os.Stat(path)
		if err != nil || !info.Mode().IsRegular() {
			return
		}
		ev := &Event{}
		if len(w.pending) == 0 {
			w.surface.DragEnter(ev)
		} else {
			w.surface.DragOver(ev)
		}
		w.pending[path] = struct{}{}
		settled.Set(w.pendingPaths())

	case event.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
		if _, ok := w.pending[path]; ok {
			delete(w.pending, path)
			if len(w.pending) == 0 {
				w.surface.DragLeave(&Event{})
			}
		}
		if _, ok := w.dropped[path]; ok {
			delete(w.dropped, path)
			w.removeRecords(path)
		}
	}
}

func (w *Watcher) pendingPaths() []string {
	paths := make([]string, 0, len(w.pending))
	for p := range w.pending {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// drop hands every pending file that still exists to the surface.
func (w *Watcher) drop(ctx context.Context) {
	paths := w.pendingPaths()
	w.pending = make(map[string]struct{})

	files := make([]*models.File, 0, len(paths))
	for _, p := range paths {
		f, err := models.NewLocalFile(p)
		if err != nil {
			w.logger.Warn().Err(err).Str("path", p).Msg("Skipping dropped file")
			continue
		}
		files = append(files, f)
		w.dropped[p] = struct{}{}
	}

	if len(files) == 0 {
		if w.surface.Hovering() {
			w.surface.DragLeave(&Event{})
		}
		return
	}

	w.logger.Debug().Int("files", len(files)).Msg("Dropping files from folder")
	w.surface.Drop(ctx, &Event{Files: files})
}

func (w *Watcher) removeRecords(path string) {
	if w.tracker == nil {
		return
	}
	for _, rec := range w.tracker.Records() {
		if rec.Raw != nil && rec.Raw.Path == path {
			w.tracker.Remove(rec.ID)
		}
	}
}
