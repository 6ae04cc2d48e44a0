package coordinator

import (
	"context"
	"time"
)

// Start launches the periodic staleness sweep. Staleness is time-relative
// and must surface even when no loads happen, so the sweep runs on its own
// interval, independent of load activity. The sweep stops when ctx is
// cancelled or the coordinator is closed. A non-positive sweep interval
// disables the sweep entirely.
func (c *Coordinator) Start(ctx context.Context) {
	c.mu.Lock()

	if c.closed || c.sweepCancel != nil || c.sweepInterval <= 0 {
		c.mu.Unlock()
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	c.sweepCancel = cancel
	c.sweepDone = make(chan struct{})
	done := c.sweepDone
	interval := c.sweepInterval
	c.mu.Unlock()

	go func() {
		defer close(done)

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				c.sweep()
			}
		}
	}()
}

// sweep recomputes the stale flag for every section with a recorded load.
// Subscribers are only notified when a flag actually flips.
func (c *Coordinator) sweep() {
	c.mu.Lock()

	if !c.resweepLocked() {
		c.mu.Unlock()
		return
	}
	c.publishLocked()
}

// resweepLocked recomputes stored stale flags against the current threshold
// and reports whether any changed. Callers must hold the write lock.
func (c *Coordinator) resweepLocked() bool {
	now := time.Now()
	changed := false
	for _, s := range c.sections {
		stale := s.StaleAt(now, c.staleThreshold)
		if stale != s.Stale {
			s.Stale = stale
			changed = true
		}
	}
	return changed
}
