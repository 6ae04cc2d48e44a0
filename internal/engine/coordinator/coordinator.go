// Package coordinator implements the section registry and load coordinator.
//
// The coordinator owns the mapping from section id to load state, drives
// retries through the retry executor, derives staleness, and publishes an
// aggregate snapshot to subscribers after every mutation. It is the sole
// boundary that converts loader failures into state: nothing above it needs
// to handle loader errors directly.
package coordinator

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.leadline.dev/loadstate/internal/core/domain"
	"go.leadline.dev/loadstate/internal/core/ports"
	"go.leadline.dev/loadstate/internal/engine/retry"
	"go.trai.ch/zerr"
	"golang.org/x/sync/singleflight"
)

// LoadListener observes load lifecycle events, typically a renderer.
type LoadListener interface {
	OnSectionStart(id string, startedAt time.Time)
	OnSectionComplete(id string, finishedAt time.Time, err error)
}

// Subscription identifies one snapshot subscriber.
type Subscription struct {
	id int64
	c  *Coordinator
}

// Unsubscribe removes the subscriber. Safe to call more than once.
func (s *Subscription) Unsubscribe() {
	s.c.mu.Lock()
	defer s.c.mu.Unlock()
	delete(s.c.subs, s.id)
}

// Coordinator owns the section registry for one consuming view. Create it
// on view mount and Close it on unmount; nothing is persisted beyond that
// lifetime.
type Coordinator struct {
	logger   ports.Logger
	notifier ports.Notifier
	tracer   ports.Tracer
	listener LoadListener

	mu             sync.RWMutex
	sections       map[string]*domain.Section
	loaders        map[string]ports.Loader
	policy         domain.RetryPolicy
	staleThreshold time.Duration
	sweepInterval  time.Duration
	generation     uint64
	subs           map[int64]func(domain.Snapshot)
	nextSubID      int64
	closed         bool

	// flight coalesces concurrent loads for the same section id: a second
	// call while one is in flight joins the first call's result instead of
	// racing it for last-writer-wins.
	flight singleflight.Group

	sweepCancel context.CancelFunc
	sweepDone   chan struct{}
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithRetryPolicy overrides the default retry policy.
func WithRetryPolicy(p domain.RetryPolicy) Option {
	return func(c *Coordinator) { c.policy = p }
}

// WithStaleThreshold overrides the default staleness threshold.
func WithStaleThreshold(d time.Duration) Option {
	return func(c *Coordinator) { c.staleThreshold = d }
}

// WithSweepInterval overrides the default staleness sweep interval.
func WithSweepInterval(d time.Duration) Option {
	return func(c *Coordinator) { c.sweepInterval = d }
}

// WithListener attaches a load lifecycle listener.
func WithListener(l LoadListener) Option {
	return func(c *Coordinator) { c.listener = l }
}

// New creates a Coordinator. Nil collaborators are replaced with no-op
// implementations so the engine can run headless in tests.
func New(logger ports.Logger, notifier ports.Notifier, tracer ports.Tracer, opts ...Option) *Coordinator {
	c := &Coordinator{
		logger:   logger,
		notifier: notifier,
		tracer:   tracer,
		sections: make(map[string]*domain.Section),
		loaders:  make(map[string]ports.Loader),
		policy: domain.RetryPolicy{
			MaxRetries:   domain.DefaultMaxRetries,
			InitialDelay: domain.DefaultInitialDelay,
		},
		staleThreshold: domain.DefaultStaleThreshold,
		sweepInterval:  domain.DefaultSweepInterval,
		subs:           make(map[int64]func(domain.Snapshot)),
	}
	if c.logger == nil {
		c.logger = noopLogger{}
	}
	if c.notifier == nil {
		c.notifier = noopNotifier{}
	}
	if c.tracer == nil {
		c.tracer = noopTracer{}
	}

	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Register declares a section in the idle state. Registering is optional;
// LoadSection initializes unseen sections on first use with the id as the
// display name.
func (c *Coordinator) Register(id, name string) error {
	c.mu.Lock()

	if c.closed {
		c.mu.Unlock()
		return domain.ErrCoordinatorClosed
	}
	if _, ok := c.sections[id]; ok {
		c.mu.Unlock()
		return zerr.With(
			zerr.Wrap(domain.ErrDuplicateSection, "register section"),
			"section", id,
		)
	}

	c.sections[id] = &domain.Section{ID: id, Name: name, State: domain.StateIdle}
	c.publishLocked()
	return nil
}

// LoadOption adjusts the behavior of a single load call.
type LoadOption func(*loadOptions)

type loadOptions struct {
	retry  bool
	notice bool
}

// WithoutRetry makes the load a single attempt with no backoff.
func WithoutRetry() LoadOption {
	return func(o *loadOptions) { o.retry = false }
}

// WithoutErrorNotice suppresses the user-facing notice on final failure.
// The section error state is recorded either way.
func WithoutErrorNotice() LoadOption {
	return func(o *loadOptions) { o.notice = false }
}

// LoadSection loads the named section through the supplied loader.
//
// The section transitions to loading (keeping any stale data visible), the
// loader runs through the retry executor, and the registry is updated with
// the result. On success the payload is returned. On exhausted retries the
// section carries the error, subscribers are notified, and the wrapped
// error is returned; the previous data and lastUpdated survive untouched.
//
// A concurrent call for the same id joins the in-flight load rather than
// starting a second one.
func (c *Coordinator) LoadSection(ctx context.Context, id string, loader ports.Loader, opts ...LoadOption) (any, error) {
	o := loadOptions{retry: true, notice: true}
	for _, opt := range opts {
		opt(&o)
	}

	if err := c.prepare(id, loader); err != nil {
		return nil, err
	}

	v, err, _ := c.flight.Do(id, func() (any, error) {
		return c.loadOnce(ctx, id, loader, o)
	})
	return v, err
}

// prepare initializes the section if unseen and records the loader for
// later refreshes.
func (c *Coordinator) prepare(id string, loader ports.Loader) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return domain.ErrCoordinatorClosed
	}
	if _, ok := c.sections[id]; !ok {
		c.sections[id] = &domain.Section{ID: id, Name: id, State: domain.StateIdle}
	}
	c.loaders[id] = loader
	return nil
}

// exhaustedError builds the terminal load failure. Callers can match both
// the exhaustion sentinel and the underlying loader error through it.
func exhaustedError(id string, err error) error {
	return zerr.With(
		zerr.Wrap(errors.Join(domain.ErrRetriesExhausted, err), "load section"),
		"section", id,
	)
}

// loadOnce performs one coalesced load for a section.
func (c *Coordinator) loadOnce(ctx context.Context, id string, loader ports.Loader, o loadOptions) (any, error) {
	attemptID := uuid.NewString()
	startedAt := time.Now()

	ctx, span := c.tracer.Start(ctx, "load section")
	defer span.End()
	span.SetAttribute("section.id", id)
	span.SetAttribute("load.attempt_id", attemptID)

	c.beginLoad(id)
	if c.listener != nil {
		c.listener.OnSectionStart(id, startedAt)
	}

	policy := c.currentPolicy()
	if !o.retry {
		policy = domain.RetryPolicy{MaxRetries: 0}
	}

	data, err := retry.Do(ctx, retry.Config{
		Policy: policy,
		OnRetry: func(attempt int, err error) {
			c.logger.Warn(fmt.Sprintf("section %s load failed, retry %d/%d: %v", id, attempt, policy.MaxRetries, err))
		},
		OnExhausted: func(err error) {
			c.logger.Error(zerr.With(exhaustedError(id, err), "attempt_id", attemptID))
		},
	}, loader)

	finishedAt := time.Now()
	if err != nil {
		span.RecordError(err)
		c.failLoad(id, err)
		if c.listener != nil {
			c.listener.OnSectionComplete(id, finishedAt, err)
		}
		if o.notice {
			c.notifier.Notify(ports.Notification{
				Title:       "Failed to load " + c.displayName(id),
				Description: err.Error(),
				Variant:     ports.VariantError,
			})
		}
		return nil, exhaustedError(id, err)
	}

	c.completeLoad(id, data)
	if c.listener != nil {
		c.listener.OnSectionComplete(id, finishedAt, nil)
	}
	return data, nil
}

// beginLoad transitions a section to loading, clearing the error and
// resetting progress while keeping the previous payload visible.
func (c *Coordinator) beginLoad(id string) {
	c.mu.Lock()
	if s, ok := c.sections[id]; ok {
		s.State = domain.StateLoading
		s.Err = ""
		s.Progress = 0
	}
	c.publishLocked()
}

// completeLoad records a successful payload.
func (c *Coordinator) completeLoad(id string, data any) {
	c.mu.Lock()
	if s, ok := c.sections[id]; ok {
		fp := fingerprint(data)
		if fp != s.Fingerprint || s.DataVersion == 0 {
			s.DataVersion++
		}
		s.Fingerprint = fp
		s.Data = data
		s.State = domain.StateLoaded
		s.Err = ""
		s.LastUpdated = time.Now()
		s.Stale = false
		s.Progress = 100
	}
	c.publishLocked()
}

// failLoad records a final failure, preserving the last good payload and
// its timestamp.
func (c *Coordinator) failLoad(id string, err error) {
	c.mu.Lock()
	if s, ok := c.sections[id]; ok {
		s.State = domain.StateError
		s.Err = err.Error()
	}
	c.publishLocked()
}

// UpdateSection merges a partial patch into a section. When the patch sets
// LastUpdated, staleness is recomputed immediately against the current
// threshold; this is the single path by which the stale flag changes outside
// the sweep.
func (c *Coordinator) UpdateSection(id string, patch domain.SectionPatch) error {
	c.mu.Lock()

	s, ok := c.sections[id]
	if !ok {
		c.mu.Unlock()
		return zerr.With(
			zerr.Wrap(domain.ErrSectionNotFound, "update section"),
			"section", id,
		)
	}

	if patch.SetData {
		fp := fingerprint(patch.Data)
		if fp != s.Fingerprint || s.DataVersion == 0 {
			s.DataVersion++
		}
		s.Fingerprint = fp
		s.Data = patch.Data
	}
	if patch.State != nil {
		s.State = *patch.State
	}
	if patch.Err != nil {
		s.Err = *patch.Err
	}
	if patch.Progress != nil {
		s.Progress = domain.ClampProgress(*patch.Progress)
	}
	if patch.LastUpdated != nil {
		s.LastUpdated = *patch.LastUpdated
		s.Stale = s.StaleAt(time.Now(), c.staleThreshold)
	}

	c.publishLocked()
	return nil
}

// SetProgress records incremental progress for a long-running load.
func (c *Coordinator) SetProgress(id string, progress int) error {
	p := progress
	return c.UpdateSection(id, domain.SectionPatch{Progress: &p})
}

// RefreshSection re-invokes the stored loader for one section.
func (c *Coordinator) RefreshSection(ctx context.Context, id string, opts ...LoadOption) (any, error) {
	c.mu.RLock()
	loader, ok := c.loaders[id]
	c.mu.RUnlock()

	if !ok {
		return nil, zerr.With(
			zerr.Wrap(domain.ErrLoaderNotRegistered, "refresh section"),
			"section", id,
		)
	}
	return c.LoadSection(ctx, id, loader, opts...)
}

// BatchResult reports the per-section outcome of a batch load.
type BatchResult struct {
	Succeeded []string
	Failed    []string
}

// RefreshAll re-invokes every stored loader concurrently and returns once
// all attempts have settled. One section's failure never aborts the others.
// With no stored loaders it resolves immediately.
func (c *Coordinator) RefreshAll(ctx context.Context) (BatchResult, error) {
	c.mu.RLock()
	loaders := make(map[string]ports.Loader, len(c.loaders))
	for id, l := range c.loaders {
		loaders[id] = l
	}
	c.mu.RUnlock()

	return c.LoadAll(ctx, loaders)
}

// LoadAll loads a batch of sections concurrently with allSettled semantics.
// Per-section failure notices are suppressed in favor of a single batch
// notice: info when everything loaded, warning on partial failure, error on
// total failure. Only total failure produces a non-nil error.
func (c *Coordinator) LoadAll(ctx context.Context, loaders map[string]ports.Loader, opts ...LoadOption) (BatchResult, error) {
	if len(loaders) == 0 {
		return BatchResult{}, nil
	}

	var (
		mu  sync.Mutex
		res BatchResult
		wg  sync.WaitGroup
	)

	batchOpts := append(slices.Clone(opts), WithoutErrorNotice())
	for id, loader := range loaders {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := c.LoadSection(ctx, id, loader, batchOpts...)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				res.Failed = append(res.Failed, id)
			} else {
				res.Succeeded = append(res.Succeeded, id)
			}
		}()
	}
	wg.Wait()

	slices.Sort(res.Succeeded)
	slices.Sort(res.Failed)

	switch {
	case len(res.Failed) == 0:
		c.notifier.Notify(ports.Notification{
			Title:       "Dashboard data loaded",
			Description: fmt.Sprintf("%d sections up to date", len(res.Succeeded)),
			Variant:     ports.VariantInfo,
		})
		return res, nil
	case len(res.Succeeded) == 0:
		c.notifier.Notify(ports.Notification{
			Title:       "Dashboard data unavailable",
			Description: fmt.Sprintf("all %d sections failed to load", len(res.Failed)),
			Variant:     ports.VariantError,
		})
		return res, zerr.With(
			zerr.Wrap(domain.ErrAllSectionsFailed, "load sections"),
			"sections", len(res.Failed),
		)
	default:
		c.notifier.Notify(ports.Notification{
			Title:       "Some sections failed to load",
			Description: fmt.Sprintf("%d of %d sections unavailable", len(res.Failed), len(res.Failed)+len(res.Succeeded)),
			Variant:     ports.VariantWarning,
		})
		return res, nil
	}
}

// Section returns a copy of the section's current record. The stale flag is
// derived fresh at read time.
func (c *Coordinator) Section(id string) (domain.Section, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	s, ok := c.sections[id]
	if !ok {
		return domain.Section{}, false
	}
	out := *s
	out.Stale = s.StaleAt(time.Now(), c.staleThreshold)
	return out, true
}

// Sections returns copies of all sections sorted by id.
func (c *Coordinator) Sections() []domain.Section {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.sectionsLocked()
}

func (c *Coordinator) sectionsLocked() []domain.Section {
	now := time.Now()
	out := make([]domain.Section, 0, len(c.sections))
	for _, s := range c.sections {
		cp := *s
		cp.Stale = s.StaleAt(now, c.staleThreshold)
		out = append(out, cp)
	}
	slices.SortFunc(out, func(a, b domain.Section) int {
		return strings.Compare(a.ID, b.ID)
	})
	return out
}

// HasErrors reports whether any section is in the error state. Recomputed
// on every call, never cached.
func (c *Coordinator) HasErrors() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	for _, s := range c.sections {
		if s.State == domain.StateError {
			return true
		}
	}
	return false
}

// HasStaleData reports whether any loaded section has crossed the staleness
// threshold.
func (c *Coordinator) HasStaleData() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	now := time.Now()
	for _, s := range c.sections {
		if s.StaleAt(now, c.staleThreshold) {
			return true
		}
	}
	return false
}

// IsAnyLoading reports whether any section load is in flight.
func (c *Coordinator) IsAnyLoading() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	for _, s := range c.sections {
		if s.State == domain.StateLoading {
			return true
		}
	}
	return false
}

// OverallProgress aggregates per-section progress into a 0-100 completion
// percentage: loaded counts as 100, loading contributes its reported
// progress, idle and error contribute 0. An empty registry is complete.
func (c *Coordinator) OverallProgress() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return overallProgressOf(c.sections)
}

func overallProgressOf(sections map[string]*domain.Section) int {
	if len(sections) == 0 {
		return 100
	}

	total := 0
	for _, s := range sections {
		switch s.State {
		case domain.StateLoaded:
			total += 100
		case domain.StateLoading:
			total += domain.ClampProgress(s.Progress)
		case domain.StateIdle, domain.StateError:
		}
	}
	return total / len(sections)
}

// Snapshot returns the current registry view with derived aggregates.
func (c *Coordinator) Snapshot() domain.Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snapshotLocked()
}

func (c *Coordinator) snapshotLocked() domain.Snapshot {
	snap := domain.Snapshot{
		Sections:        c.sectionsLocked(),
		OverallProgress: overallProgressOf(c.sections),
		Generation:      c.generation,
	}
	for _, s := range snap.Sections {
		snap.HasErrors = snap.HasErrors || s.State == domain.StateError
		snap.HasStaleData = snap.HasStaleData || s.Stale
		snap.IsAnyLoading = snap.IsAnyLoading || s.State == domain.StateLoading
	}
	return snap
}

// Subscribe registers a handler invoked with a fresh snapshot after every
// registry mutation. Handlers run on the mutating goroutine and must not
// call back into the coordinator's write paths.
func (c *Coordinator) Subscribe(handler func(domain.Snapshot)) *Subscription {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.nextSubID++
	id := c.nextSubID
	c.subs[id] = handler
	return &Subscription{id: id, c: c}
}

// SetStaleThreshold replaces the staleness threshold and recomputes every
// section's stale flag against it. Used by config hot-reload.
func (c *Coordinator) SetStaleThreshold(d time.Duration) {
	c.mu.Lock()
	c.staleThreshold = d
	c.resweepLocked()
	c.publishLocked()
}

// SetRetryPolicy replaces the retry policy for subsequent loads.
func (c *Coordinator) SetRetryPolicy(p domain.RetryPolicy) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.policy = p
}

func (c *Coordinator) currentPolicy() domain.RetryPolicy {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.policy
}

// StaleThreshold returns the active staleness threshold.
func (c *Coordinator) StaleThreshold() time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.staleThreshold
}

func (c *Coordinator) displayName(id string) string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if s, ok := c.sections[id]; ok && s.Name != "" {
		return s.Name
	}
	return id
}

// publishLocked bumps the generation, builds a snapshot, and releases the
// write lock before invoking subscribers. Callers must hold the write lock
// and must not unlock it themselves.
func (c *Coordinator) publishLocked() {
	c.generation++
	snap := c.snapshotLocked()

	handlers := make([]func(domain.Snapshot), 0, len(c.subs))
	for _, h := range c.subs {
		handlers = append(handlers, h)
	}
	c.mu.Unlock()

	for _, h := range handlers {
		h(snap)
	}
}

// Close stops the staleness sweep and drops all subscribers. The
// coordinator rejects further loads after Close.
func (c *Coordinator) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	cancel := c.sweepCancel
	done := c.sweepDone
	c.subs = make(map[int64]func(domain.Snapshot))
	c.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
}
