// Package domain holds the core types for the load orchestration engine.
package domain

import "time"

// SectionState represents the load lifecycle state of a section.
type SectionState string

const (
	// StateIdle indicates the section has never been asked to load.
	StateIdle SectionState = "Idle"
	// StateLoading indicates a load is in flight for the section.
	StateLoading SectionState = "Loading"
	// StateLoaded indicates the last load completed successfully.
	StateLoaded SectionState = "Loaded"
	// StateError indicates the last load failed after exhausting retries.
	StateError SectionState = "Error"
)

// Section is one independently loadable unit of dashboard data.
//
// A loading section retains its previous Data and LastUpdated until a new
// load succeeds; a failed load records Err but never erases the last good
// payload (stale-while-revalidate).
type Section struct {
	ID   string
	Name string

	// Data is the last successfully loaded payload, nil if never loaded.
	Data  any
	State SectionState

	// Err is the last load error message, empty after a successful load.
	Err string

	// LastUpdated is the time of the last successful load, zero if never
	// loaded.
	LastUpdated time.Time

	// Stale is derived from LastUpdated and the active threshold. It is
	// recomputed by the coordinator; nothing else writes it.
	Stale bool

	// Progress is an optional 0-100 value for loads that report
	// incremental progress.
	Progress int

	// Fingerprint is an xxhash of the encoded payload, used to detect
	// whether a refresh actually changed the data.
	Fingerprint uint64

	// DataVersion increments only when Fingerprint changes, so consumers
	// can cheaply skip re-rendering identical payloads.
	DataVersion uint64
}

// Loaded reports whether the section has ever completed a load.
func (s *Section) Loaded() bool {
	return !s.LastUpdated.IsZero()
}

// StaleAt derives staleness from LastUpdated at the given instant. A section
// that never loaded is not stale; there is nothing to be stale relative to.
func (s *Section) StaleAt(now time.Time, threshold time.Duration) bool {
	if s.LastUpdated.IsZero() {
		return false
	}
	return now.Sub(s.LastUpdated) >= threshold
}

// SectionPatch is a partial update merged into a section by the coordinator.
// Nil pointer fields are left untouched. Data is only applied when SetData
// is true, since nil is a legal payload.
type SectionPatch struct {
	Data    any
	SetData bool

	State       *SectionState
	Err         *string
	LastUpdated *time.Time
	Progress    *int
}

// ClampProgress bounds a progress value to the 0-100 range.
func ClampProgress(p int) int {
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}

// Snapshot is an immutable view of the registry published to subscribers
// after every mutation.
type Snapshot struct {
	// Sections is sorted by section ID for deterministic rendering.
	Sections []Section

	// Derived aggregates, recomputed at publish time rather than cached.
	HasErrors       bool
	HasStaleData    bool
	IsAnyLoading    bool
	OverallProgress int

	// Generation increments with every registry mutation.
	Generation uint64
}
