package watcher

import (
	"context"
	"iter"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.leadline.dev/loadstate/internal/core/ports"
)

var _ ports.ConfigWatcher = (*Watcher)(nil)

const eventChannelBuffer = 16

// DefaultDebounceWindow is the default quiet window for coalescing file
// events into one reload signal.
const DefaultDebounceWindow = 100 * time.Millisecond

// Watcher implements ports.ConfigWatcher using fsnotify. It watches the
// directory containing the configuration file, since editors replace files
// by rename and a watch on the file itself would be lost on the first save.
type Watcher struct {
	fsWatcher *fsnotify.Watcher
	events    chan ports.ConfigEvent
	window    time.Duration
}

// NewWatcher creates a configuration file watcher.
func NewWatcher() (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &Watcher{
		fsWatcher: fsw,
		events:    make(chan ports.ConfigEvent, eventChannelBuffer),
		window:    DefaultDebounceWindow,
	}, nil
}

// Start begins watching the given configuration file.
func (w *Watcher) Start(ctx context.Context, path string) error {
	path = filepath.Clean(path)
	if err := w.fsWatcher.Add(filepath.Dir(path)); err != nil {
		return err
	}

	go w.processEvents(ctx, path)
	return nil
}

// Stop stops the watcher and releases all resources.
func (w *Watcher) Stop() error {
	return w.fsWatcher.Close()
}

// Events returns an iterator of debounced change events.
func (w *Watcher) Events() iter.Seq[ports.ConfigEvent] {
	return func(yield func(ports.ConfigEvent) bool) {
		for event := range w.events {
			if !yield(event) {
				return
			}
		}
	}
}

// processEvents filters raw directory events down to the watched file and
// forwards one debounced ConfigEvent per burst.
func (w *Watcher) processEvents(ctx context.Context, path string) {
	defer close(w.events)

	debouncer := NewDebouncer(w.window, func() {
		select {
		case w.events <- ports.ConfigEvent{Path: path}:
		case <-ctx.Done():
		}
	})
	defer debouncer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			debouncer.Trigger()
		case _, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
		}
	}
}
