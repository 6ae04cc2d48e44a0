package ports

import (
	"context"
	"iter"
)

// ConfigEvent signals that the watched configuration file changed on disk.
type ConfigEvent struct {
	// Path is the absolute path of the file that changed.
	Path string
}

// ConfigWatcher watches the configuration file for changes so a running
// session can hot-apply new staleness and retry settings.
//
//go:generate mockgen -source=watcher.go -destination=mocks/mock_watcher.go -package=mocks
type ConfigWatcher interface {
	// Start begins watching the given file. It returns an error if the
	// underlying watcher fails to start.
	Start(ctx context.Context, path string) error
	// Stop stops the watcher and releases all resources.
	Stop() error
	// Events returns an iterator of change events.
	Events() iter.Seq[ConfigEvent]
}
