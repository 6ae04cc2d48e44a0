// Package preload schedules background loads of deferred UI panels, either
// eagerly by static priority or on a debounced hover-intent signal.
package preload

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"go.leadline.dev/loadstate/internal/core/domain"
	"go.leadline.dev/loadstate/internal/core/ports"
)

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithDebounce overrides the hover-intent debounce window.
func WithDebounce(d time.Duration) Option {
	return func(s *Scheduler) { s.debounce = d }
}

// WithEagerCount overrides how many top-priority panels are loaded eagerly.
func WithEagerCount(n int) Option {
	return func(s *Scheduler) { s.eager = n }
}

// Scheduler owns the preload lifecycle for a fixed set of panel entries.
// Preloading is best-effort: failures are logged and recorded but never
// surfaced, since the on-demand load path performs its own error handling.
type Scheduler struct {
	logger ports.Logger
	loader ports.PanelLoader

	mu       sync.Mutex
	entries  []domain.PreloadEntry
	states   map[string]domain.PreloadState
	records  map[string]domain.PreloadRecord
	timers   map[string]*time.Timer
	debounce time.Duration
	eager    int
	closed   bool
}

// New builds a Scheduler over the given entries. Entries are copied; later
// mutation of the slice by the caller has no effect.
func New(logger ports.Logger, loader ports.PanelLoader, entries []domain.PreloadEntry, opts ...Option) *Scheduler {
	if logger == nil {
		logger = noopLogger{}
	}

	s := &Scheduler{
		logger:   logger,
		loader:   loader,
		entries:  slices.Clone(entries),
		states:   make(map[string]domain.PreloadState, len(entries)),
		records:  make(map[string]domain.PreloadRecord, len(entries)),
		timers:   make(map[string]*time.Timer),
		debounce: domain.DefaultDebounce,
		eager:    domain.DefaultEagerPreloads,
	}
	for _, e := range entries {
		s.states[e.ID] = domain.PreloadIdle
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// PreloadEager loads the highest-priority panels concurrently and returns
// once they have all settled. Entries already loaded are skipped, so a
// repeated call only fills gaps.
func (s *Scheduler) PreloadEager(ctx context.Context) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}

	ranked := slices.Clone(s.entries)
	slices.SortStableFunc(ranked, func(a, b domain.PreloadEntry) int {
		return a.Priority - b.Priority
	})

	var batch []string
	for _, e := range ranked {
		if len(batch) == s.eager {
			break
		}
		if s.states[e.ID] == domain.PreloadLoaded {
			continue
		}
		batch = append(batch, e.ID)
	}
	s.mu.Unlock()

	var wg sync.WaitGroup
	for _, id := range batch {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.load(ctx, id)
		}()
	}
	wg.Wait()
}

// PreloadOnHover arms the debounce timer for a panel. A repeat call for the
// same id before the window elapses resets the timer instead of stacking a
// second load. The load fires on the timer goroutine.
func (s *Scheduler) PreloadOnHover(ctx context.Context, id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	if _, ok := s.states[id]; !ok {
		return
	}
	if s.states[id] == domain.PreloadLoaded || s.states[id] == domain.PreloadPending {
		return
	}

	if t, ok := s.timers[id]; ok {
		t.Stop()
	}
	s.timers[id] = time.AfterFunc(s.debounce, func() {
		s.mu.Lock()
		delete(s.timers, id)
		closed := s.closed
		s.mu.Unlock()

		if closed {
			return
		}
		s.load(ctx, id)
	})
}

// CancelPreload clears a pending debounce timer for id. An already-in-flight
// load is unaffected.
func (s *Scheduler) CancelPreload(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if t, ok := s.timers[id]; ok {
		t.Stop()
		delete(s.timers, id)
	}
}

// load runs one background attempt and records its outcome. Pending and
// loaded panels are skipped, so concurrent triggers collapse to one attempt.
func (s *Scheduler) load(ctx context.Context, id string) {
	s.mu.Lock()
	if s.closed || s.states[id] == domain.PreloadLoaded || s.states[id] == domain.PreloadPending {
		s.mu.Unlock()
		return
	}
	s.states[id] = domain.PreloadPending
	s.mu.Unlock()

	started := time.Now()
	err := s.loader(ctx, id)
	finished := time.Now()

	rec := domain.PreloadRecord{
		StartedAt:  started,
		FinishedAt: finished,
		Duration:   finished.Sub(started),
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err != nil {
		rec.Err = err.Error()
		s.states[id] = domain.PreloadError
		s.records[id] = rec
		s.logger.Warn(fmt.Sprintf("preload of panel %s failed after %s: %v", id, rec.Duration, err))
		return
	}
	s.states[id] = domain.PreloadLoaded
	s.records[id] = rec
	s.logger.Info(fmt.Sprintf("preloaded panel %s in %s", id, rec.Duration))
}

// State reports the current preload state for a panel.
func (s *Scheduler) State(id string) (domain.PreloadState, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.states[id]
	return st, ok
}

// Record returns the timing record of the last attempt for a panel.
func (s *Scheduler) Record(id string) (domain.PreloadRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.records[id]
	return r, ok
}

// Records returns a copy of all attempt records keyed by panel id.
func (s *Scheduler) Records() map[string]domain.PreloadRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string]domain.PreloadRecord, len(s.records))
	for id, r := range s.records {
		out[id] = r
	}
	return out
}

// Close clears every pending timer and rejects further scheduling. Timers
// must never fire a load against a torn-down consumer.
func (s *Scheduler) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.closed = true
	for id, t := range s.timers {
		t.Stop()
		delete(s.timers, id)
	}
}

type noopLogger struct{}

func (noopLogger) Info(string) {}
func (noopLogger) Warn(string) {}
func (noopLogger) Error(error) {}
