// Package tui implements the interactive dashboard renderer using Bubble Tea.
package tui

import (
	"time"

	"go.leadline.dev/loadstate/internal/core/domain"
)

// MsgPlan announces the sections a run will load.
type MsgPlan struct {
	SectionIDs []string
}

// MsgSectionStart marks a section load as in flight.
type MsgSectionStart struct {
	ID        string
	StartedAt time.Time
}

// MsgSectionComplete marks a section load as settled.
type MsgSectionComplete struct {
	ID         string
	FinishedAt time.Time
	Err        error
}

// MsgSnapshot carries the updated registry view.
type MsgSnapshot struct {
	Snapshot domain.Snapshot
}
