package domain

import "time"

// PreloadState tracks the outcome of a deferred panel's background load.
type PreloadState string

const (
	// PreloadIdle indicates the panel is registered but untouched.
	PreloadIdle PreloadState = "Idle"
	// PreloadPending indicates a load is in flight for the panel.
	PreloadPending PreloadState = "Pending"
	// PreloadLoaded indicates the panel module finished loading.
	PreloadLoaded PreloadState = "Loaded"
	// PreloadError indicates the background load failed. Preloading is
	// best-effort; the on-demand load path remains authoritative.
	PreloadError PreloadState = "Error"
)

// PreloadEntry pairs a deferred UI panel with its static priority.
// Lower priority values are preloaded first.
type PreloadEntry struct {
	ID       string
	Priority int
}

// PreloadRecord captures the timing of one background load attempt.
type PreloadRecord struct {
	StartedAt  time.Time
	FinishedAt time.Time
	Duration   time.Duration

	// Err is the recorded failure message, empty on success. Failures are
	// logged but never surfaced to the user.
	Err string
}
