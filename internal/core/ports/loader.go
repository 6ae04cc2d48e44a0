// Package ports defines the core interfaces for the application.
package ports

import "context"

// Loader fetches the payload for a single section. Any rejection is treated
// uniformly regardless of cause; the coordinator owns retry and state.
type Loader func(ctx context.Context) (any, error)

// ProgressFunc reports incremental progress for long-running loads.
// Called repeatedly during pagination: (50, 500), (100, 500), ...
type ProgressFunc func(loaded, total int)

// PanelLoader loads a deferred UI module by id. It is the load path shared
// by eager and hover-triggered preloading.
type PanelLoader func(ctx context.Context, id string) error
