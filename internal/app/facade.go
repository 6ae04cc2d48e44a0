package app

import (
	"context"
	"errors"
	"time"

	"go.leadline.dev/loadstate/internal/core/domain"
	"go.leadline.dev/loadstate/internal/core/ports"
	"go.leadline.dev/loadstate/internal/engine/coordinator"
)

// SectionHandle is the per-section read/command facade handed to view code.
// It narrows the coordinator to one named section so a view never touches
// sections it does not own.
type SectionHandle struct {
	id    string
	coord *coordinator.Coordinator
}

// UseSection returns a handle for the named section, registering it with
// the display name when unseen. An already-registered id is reused as is.
func UseSection(coord *coordinator.Coordinator, id, name string) (*SectionHandle, error) {
	if err := coord.Register(id, name); err != nil && !isDuplicate(err) {
		return nil, err
	}
	return &SectionHandle{id: id, coord: coord}, nil
}

func isDuplicate(err error) bool {
	return errors.Is(err, domain.ErrDuplicateSection)
}

// Section returns the current record for the section.
func (h *SectionHandle) Section() (domain.Section, bool) {
	return h.coord.Section(h.id)
}

// IsLoading reports whether a load is in flight.
func (h *SectionHandle) IsLoading() bool {
	s, ok := h.coord.Section(h.id)
	return ok && s.State == domain.StateLoading
}

// Error returns the recorded load error, empty when none.
func (h *SectionHandle) Error() string {
	s, _ := h.coord.Section(h.id)
	return s.Err
}

// LastUpdated returns the timestamp of the last successful load.
func (h *SectionHandle) LastUpdated() time.Time {
	s, _ := h.coord.Section(h.id)
	return s.LastUpdated
}

// Progress returns the section's load progress in percent.
func (h *SectionHandle) Progress() int {
	s, _ := h.coord.Section(h.id)
	return s.Progress
}

// IsStale reports whether the section's data is past the staleness
// threshold.
func (h *SectionHandle) IsStale() bool {
	s, _ := h.coord.Section(h.id)
	return s.Stale
}

// StartLoading transitions the section to loading for callers that fetch
// outside the coordinator's load path.
func (h *SectionHandle) StartLoading() error {
	state := domain.StateLoading
	progress := 0
	empty := ""
	return h.coord.UpdateSection(h.id, domain.SectionPatch{
		State:    &state,
		Err:      &empty,
		Progress: &progress,
	})
}

// SetProgress records incremental progress for a manual load.
func (h *SectionHandle) SetProgress(progress int) error {
	return h.coord.SetProgress(h.id, progress)
}

// CompleteLoading records a successful manual load with its payload.
func (h *SectionHandle) CompleteLoading(data any) error {
	state := domain.StateLoaded
	progress := 100
	empty := ""
	now := time.Now()
	return h.coord.UpdateSection(h.id, domain.SectionPatch{
		Data:        data,
		SetData:     true,
		State:       &state,
		Err:         &empty,
		Progress:    &progress,
		LastUpdated: &now,
	})
}

// SetError records a failed manual load. Previously loaded data stays
// visible.
func (h *SectionHandle) SetError(msg string) error {
	state := domain.StateError
	return h.coord.UpdateSection(h.id, domain.SectionPatch{
		State: &state,
		Err:   &msg,
	})
}

// Load runs the supplied loader through the coordinator's retry path.
func (h *SectionHandle) Load(ctx context.Context, loader ports.Loader, opts ...coordinator.LoadOption) (any, error) {
	return h.coord.LoadSection(ctx, h.id, loader, opts...)
}

// Retry re-invokes the stored loader for the section.
func (h *SectionHandle) Retry(ctx context.Context, opts ...coordinator.LoadOption) (any, error) {
	return h.coord.RefreshSection(ctx, h.id, opts...)
}
