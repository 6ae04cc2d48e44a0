package coordinator_test

import (
	"context"
	"sync"
	"testing"
	"testing/synctest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.leadline.dev/loadstate/internal/core/domain"
	"go.leadline.dev/loadstate/internal/engine/coordinator"
)

func TestSweep_FlipsStaleWithoutLoads(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		c := coordinator.New(nil, nil, nil,
			coordinator.WithStaleThreshold(10*time.Minute),
			coordinator.WithSweepInterval(time.Minute),
		)
		defer c.Close()

		_, err := c.LoadSection(context.Background(), "financial", staticLoader(1))
		require.NoError(t, err)

		var mu sync.Mutex
		var staleSnaps int
		sub := c.Subscribe(func(snap domain.Snapshot) {
			mu.Lock()
			defer mu.Unlock()
			if snap.HasStaleData {
				staleSnaps++
			}
		})
		defer sub.Unsubscribe()

		c.Start(context.Background())

		// Nine sweeps pass with fresh data and publish nothing.
		time.Sleep(9*time.Minute + 30*time.Second)
		synctest.Wait()
		mu.Lock()
		assert.Zero(t, staleSnaps)
		mu.Unlock()

		// The tenth sweep crosses the threshold and flips the flag once.
		time.Sleep(time.Minute)
		synctest.Wait()
		mu.Lock()
		assert.Equal(t, 1, staleSnaps)
		mu.Unlock()

		s, _ := c.Section("financial")
		assert.True(t, s.Stale)
	})
}

func TestSweep_NoRepeatNotification(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		c := coordinator.New(nil, nil, nil,
			coordinator.WithStaleThreshold(time.Minute),
			coordinator.WithSweepInterval(time.Minute),
		)
		defer c.Close()

		_, err := c.LoadSection(context.Background(), "financial", staticLoader(1))
		require.NoError(t, err)

		var mu sync.Mutex
		var published int
		sub := c.Subscribe(func(domain.Snapshot) {
			mu.Lock()
			defer mu.Unlock()
			published++
		})
		defer sub.Unsubscribe()

		c.Start(context.Background())

		// The flag flips on the first sweep; later sweeps see no change and
		// stay silent.
		time.Sleep(5 * time.Minute)
		synctest.Wait()

		mu.Lock()
		defer mu.Unlock()
		assert.Equal(t, 1, published)
	})
}

func TestSweep_ReloadClearsStale(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		c := coordinator.New(nil, nil, nil,
			coordinator.WithStaleThreshold(10*time.Minute),
			coordinator.WithSweepInterval(time.Minute),
		)
		defer c.Close()

		_, err := c.LoadSection(context.Background(), "financial", staticLoader(1))
		require.NoError(t, err)

		c.Start(context.Background())

		time.Sleep(11 * time.Minute)
		synctest.Wait()
		assert.True(t, c.HasStaleData())

		_, err = c.RefreshSection(context.Background(), "financial")
		require.NoError(t, err)
		assert.False(t, c.HasStaleData())

		s, _ := c.Section("financial")
		assert.False(t, s.Stale)
	})
}

func TestSweep_StopsOnContextCancel(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		c := coordinator.New(nil, nil, nil,
			coordinator.WithStaleThreshold(time.Minute),
			coordinator.WithSweepInterval(time.Minute),
		)
		defer c.Close()

		_, err := c.LoadSection(context.Background(), "financial", staticLoader(1))
		require.NoError(t, err)

		published := 0
		sub := c.Subscribe(func(domain.Snapshot) { published++ })
		defer sub.Unsubscribe()

		ctx, cancel := context.WithCancel(context.Background())
		c.Start(ctx)
		cancel()
		synctest.Wait()

		// Sweep goroutine is gone; nothing fires after cancellation.
		time.Sleep(5 * time.Minute)
		synctest.Wait()
		assert.Zero(t, published)
	})
}

func TestSweep_NonPositiveIntervalDisablesSweep(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		c := coordinator.New(nil, nil, nil,
			coordinator.WithStaleThreshold(time.Minute),
			coordinator.WithSweepInterval(0),
		)
		defer c.Close()

		_, err := c.LoadSection(context.Background(), "financial", staticLoader(1))
		require.NoError(t, err)

		var mu sync.Mutex
		published := 0
		sub := c.Subscribe(func(domain.Snapshot) {
			mu.Lock()
			defer mu.Unlock()
			published++
		})
		defer sub.Unsubscribe()

		// Must not panic on a zero interval; no ticker means no sweeps.
		c.Start(context.Background())

		time.Sleep(5 * time.Minute)
		synctest.Wait()

		mu.Lock()
		defer mu.Unlock()
		assert.Zero(t, published)
	})
}

func TestSweep_SecondStartIsNoop(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		c := coordinator.New(nil, nil, nil,
			coordinator.WithStaleThreshold(time.Minute),
			coordinator.WithSweepInterval(time.Minute),
		)
		defer c.Close()

		_, err := c.LoadSection(context.Background(), "financial", staticLoader(1))
		require.NoError(t, err)

		var mu sync.Mutex
		published := 0
		sub := c.Subscribe(func(domain.Snapshot) {
			mu.Lock()
			defer mu.Unlock()
			published++
		})
		defer sub.Unsubscribe()

		c.Start(context.Background())
		c.Start(context.Background())

		time.Sleep(90 * time.Second)
		synctest.Wait()

		mu.Lock()
		defer mu.Unlock()
		assert.Equal(t, 1, published, "a duplicate Start must not double the sweep")
	})
}
