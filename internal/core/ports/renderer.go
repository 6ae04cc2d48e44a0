package ports

import (
	"context"
	"time"

	"go.leadline.dev/loadstate/internal/core/domain"
)

// Renderer is the abstraction for output rendering. It decouples the
// engine's state stream from presentation, so the same snapshots can drive
// either an interactive TUI or linear CI logs.
//
//go:generate mockgen -source=renderer.go -destination=mocks/mock_renderer.go -package=mocks
type Renderer interface {
	// Start initializes the renderer and begins its lifecycle. For
	// asynchronous renderers (like the TUI), this may launch background
	// goroutines.
	Start(ctx context.Context) error

	// Stop signals the renderer to stop accepting new events and flush
	// any buffered output.
	Stop() error

	// Wait blocks until the renderer has fully terminated. Synchronous
	// renderers may return immediately.
	Wait() error

	// OnPlan is called once with the ids of the sections a run will load.
	OnPlan(sectionIDs []string)

	// OnSectionStart is called when a section load begins.
	OnSectionStart(id string, startedAt time.Time)

	// OnSectionComplete is called when a section load settles.
	// err is nil on success.
	OnSectionComplete(id string, finishedAt time.Time, err error)

	// OnSnapshot is called with the updated registry view after every
	// mutation.
	OnSnapshot(snap domain.Snapshot)
}
