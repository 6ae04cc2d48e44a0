package coordinator_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"testing/synctest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.leadline.dev/loadstate/internal/core/domain"
	"go.leadline.dev/loadstate/internal/core/ports"
	"go.leadline.dev/loadstate/internal/core/ports/mocks"
	"go.leadline.dev/loadstate/internal/engine/coordinator"
	"go.uber.org/mock/gomock"
)

var errUpstream = errors.New("upstream unavailable")

// staticLoader returns a loader that always yields the given payload.
func staticLoader(payload any) ports.Loader {
	return func(context.Context) (any, error) {
		return payload, nil
	}
}

// failingLoader returns a loader that always rejects.
func failingLoader() ports.Loader {
	return func(context.Context) (any, error) {
		return nil, errUpstream
	}
}

// fastRetry is a policy that keeps tests quick while still retrying.
func fastRetry() coordinator.Option {
	return coordinator.WithRetryPolicy(domain.RetryPolicy{MaxRetries: 1, InitialDelay: 0})
}

// notificationMatcher matches a notification by variant.
type notificationMatcher struct {
	variant ports.NotificationVariant
}

func (m notificationMatcher) Matches(x any) bool {
	n, ok := x.(ports.Notification)
	return ok && n.Variant == m.variant
}

func (m notificationMatcher) String() string {
	return fmt.Sprintf("notification with variant %q", m.variant)
}

func matchVariant(v ports.NotificationVariant) gomock.Matcher {
	return notificationMatcher{variant: v}
}

func TestLoadSection_Success(t *testing.T) {
	c := coordinator.New(nil, nil, nil)
	defer c.Close()

	data, err := c.LoadSection(context.Background(), "financial", staticLoader(map[string]int{"revenue": 42}))
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"revenue": 42}, data)

	s, ok := c.Section("financial")
	require.True(t, ok)
	assert.Equal(t, domain.StateLoaded, s.State)
	assert.Empty(t, s.Err)
	assert.False(t, s.LastUpdated.IsZero())
	assert.False(t, s.Stale)
	assert.Equal(t, 100, s.Progress)
}

func TestLoadSection_FailureKeepsPreviousData(t *testing.T) {
	c := coordinator.New(nil, nil, nil, fastRetry())
	defer c.Close()

	_, err := c.LoadSection(context.Background(), "clients", staticLoader("client list v1"))
	require.NoError(t, err)

	loaded, ok := c.Section("clients")
	require.True(t, ok)

	_, err = c.LoadSection(context.Background(), "clients", failingLoader())
	require.ErrorIs(t, err, domain.ErrRetriesExhausted)

	s, ok := c.Section("clients")
	require.True(t, ok)
	assert.Equal(t, domain.StateError, s.State)
	assert.Contains(t, s.Err, "upstream unavailable")
	// Stale-while-revalidate: the last good payload and its timestamp
	// survive the failed reload.
	assert.Equal(t, "client list v1", s.Data)
	assert.Equal(t, loaded.LastUpdated, s.LastUpdated)
}

func TestLoadSection_FailureErrorChain(t *testing.T) {
	c := coordinator.New(nil, nil, nil, fastRetry())
	defer c.Close()

	_, err := c.LoadSection(context.Background(), "clients", failingLoader(), coordinator.WithoutErrorNotice())
	require.Error(t, err)

	// Callers branch on the exhaustion sentinel while still being able to
	// inspect the loader's own error, so both must sit in the chain.
	assert.ErrorIs(t, err, domain.ErrRetriesExhausted)
	assert.ErrorIs(t, err, errUpstream)
}

func TestLoadSection_FailureNotifies(t *testing.T) {
	ctrl := gomock.NewController(t)
	notifier := mocks.NewMockNotifier(ctrl)
	notifier.EXPECT().Notify(matchVariant(ports.VariantError)).Times(1)

	c := coordinator.New(nil, notifier, nil, fastRetry())
	defer c.Close()

	_, err := c.LoadSection(context.Background(), "health", failingLoader())
	require.Error(t, err)
}

func TestLoadSection_WithoutErrorNoticeSuppressesToast(t *testing.T) {
	ctrl := gomock.NewController(t)
	notifier := mocks.NewMockNotifier(ctrl)
	// No Notify expectation: any call fails the test.

	c := coordinator.New(nil, notifier, nil, fastRetry())
	defer c.Close()

	_, err := c.LoadSection(context.Background(), "health", failingLoader(), coordinator.WithoutErrorNotice())
	require.Error(t, err)
}

func TestLoadSection_WithoutRetryIsSingleAttempt(t *testing.T) {
	c := coordinator.New(nil, nil, nil, coordinator.WithRetryPolicy(domain.RetryPolicy{MaxRetries: 5, InitialDelay: 0}))
	defer c.Close()

	calls := 0
	_, err := c.LoadSection(context.Background(), "reports", func(context.Context) (any, error) {
		calls++
		return nil, errUpstream
	}, coordinator.WithoutRetry(), coordinator.WithoutErrorNotice())

	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestLoadSection_TracesEachLoad(t *testing.T) {
	ctrl := gomock.NewController(t)
	span := mocks.NewMockSpan(ctrl)
	span.EXPECT().SetAttribute(gomock.Any(), gomock.Any()).AnyTimes()
	span.EXPECT().End().Times(1)

	tracer := mocks.NewMockTracer(ctrl)
	tracer.EXPECT().Start(gomock.Any(), "load section").DoAndReturn(
		func(ctx context.Context, _ string) (context.Context, ports.Span) {
			return ctx, span
		},
	).Times(1)

	c := coordinator.New(nil, nil, tracer)
	defer c.Close()

	_, err := c.LoadSection(context.Background(), "financial", staticLoader(1))
	require.NoError(t, err)
}

func TestLoadSection_ConcurrentCallsCoalesce(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		c := coordinator.New(nil, nil, nil)
		defer c.Close()

		var mu sync.Mutex
		calls := 0
		loader := func(ctx context.Context) (any, error) {
			mu.Lock()
			calls++
			mu.Unlock()
			time.Sleep(100 * time.Millisecond)
			return "payload", nil
		}

		results := make(chan any, 2)
		for range 2 {
			go func() {
				v, err := c.LoadSection(context.Background(), "financial", loader)
				require.NoError(t, err)
				results <- v
			}()
		}
		synctest.Wait()
		time.Sleep(150 * time.Millisecond)
		synctest.Wait()

		assert.Equal(t, "payload", <-results)
		assert.Equal(t, "payload", <-results)

		mu.Lock()
		defer mu.Unlock()
		assert.Equal(t, 1, calls, "second call must join the in-flight load")
	})
}

func TestLoadSection_AfterClose(t *testing.T) {
	c := coordinator.New(nil, nil, nil)
	c.Close()

	_, err := c.LoadSection(context.Background(), "financial", staticLoader(1))
	require.ErrorIs(t, err, domain.ErrCoordinatorClosed)
}

func TestRegister_Duplicate(t *testing.T) {
	c := coordinator.New(nil, nil, nil)
	defer c.Close()

	require.NoError(t, c.Register("financial", "Financial Metrics"))
	err := c.Register("financial", "Financial Metrics")
	require.ErrorIs(t, err, domain.ErrDuplicateSection)
}

func TestUpdateSection_MergesPatch(t *testing.T) {
	c := coordinator.New(nil, nil, nil)
	defer c.Close()

	require.NoError(t, c.Register("financial", "Financial Metrics"))

	state := domain.StateLoading
	progress := 250 // clamped to 100
	require.NoError(t, c.UpdateSection("financial", domain.SectionPatch{
		Data:     "partial rows",
		SetData:  true,
		State:    &state,
		Progress: &progress,
	}))

	s, ok := c.Section("financial")
	require.True(t, ok)
	assert.Equal(t, "partial rows", s.Data)
	assert.Equal(t, domain.StateLoading, s.State)
	assert.Equal(t, 100, s.Progress)
	assert.True(t, s.LastUpdated.IsZero(), "patch without LastUpdated must not touch it")
}

func TestUpdateSection_UnknownSection(t *testing.T) {
	c := coordinator.New(nil, nil, nil)
	defer c.Close()

	err := c.UpdateSection("ghost", domain.SectionPatch{})
	require.ErrorIs(t, err, domain.ErrSectionNotFound)
}

func TestUpdateSection_LastUpdatedRecomputesStaleness(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		c := coordinator.New(nil, nil, nil, coordinator.WithStaleThreshold(10*time.Minute))
		defer c.Close()

		require.NoError(t, c.Register("financial", "Financial Metrics"))

		old := time.Now().Add(-time.Hour)
		require.NoError(t, c.UpdateSection("financial", domain.SectionPatch{LastUpdated: &old}))

		s, _ := c.Section("financial")
		assert.True(t, s.Stale)

		fresh := time.Now()
		require.NoError(t, c.UpdateSection("financial", domain.SectionPatch{LastUpdated: &fresh}))

		s, _ = c.Section("financial")
		assert.False(t, s.Stale)
	})
}

func TestStalenessLaw(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		c := coordinator.New(nil, nil, nil, coordinator.WithStaleThreshold(10*time.Minute))
		defer c.Close()

		_, err := c.LoadSection(context.Background(), "financial", staticLoader(1))
		require.NoError(t, err)

		// Any check before t0+10m sees fresh data.
		time.Sleep(10*time.Minute - time.Millisecond)
		s, _ := c.Section("financial")
		assert.False(t, s.Stale)
		assert.False(t, c.HasStaleData())

		// At t0+10m the section is stale, with no load in between.
		time.Sleep(time.Millisecond)
		s, _ = c.Section("financial")
		assert.True(t, s.Stale)
		assert.True(t, c.HasStaleData())
	})
}

func TestRefreshAll_EmptyRegistry(t *testing.T) {
	c := coordinator.New(nil, nil, nil)
	defer c.Close()

	res, err := c.RefreshAll(context.Background())
	require.NoError(t, err)
	assert.Empty(t, res.Succeeded)
	assert.Empty(t, res.Failed)
}

func TestLoadAll_PartialFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	notifier := mocks.NewMockNotifier(ctrl)
	notifier.EXPECT().Notify(matchVariant(ports.VariantWarning)).Times(1)

	c := coordinator.New(nil, notifier, nil, fastRetry())
	defer c.Close()

	res, err := c.LoadAll(context.Background(), map[string]ports.Loader{
		"a": staticLoader("alpha"),
		"b": failingLoader(),
		"c": staticLoader("charlie"),
	})
	require.NoError(t, err, "partial failure is reported, not raised")

	assert.Equal(t, []string{"a", "c"}, res.Succeeded)
	assert.Equal(t, []string{"b"}, res.Failed)

	// Sections that succeeded keep their data; B carries the error.
	a, _ := c.Section("a")
	assert.Equal(t, domain.StateLoaded, a.State)
	assert.Equal(t, "alpha", a.Data)

	b, _ := c.Section("b")
	assert.Equal(t, domain.StateError, b.State)

	cSec, _ := c.Section("c")
	assert.Equal(t, domain.StateLoaded, cSec.State)
	assert.Equal(t, "charlie", cSec.Data)

	assert.True(t, c.HasErrors())
	assert.False(t, c.IsAnyLoading())
}

func TestLoadAll_TotalFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	notifier := mocks.NewMockNotifier(ctrl)
	notifier.EXPECT().Notify(matchVariant(ports.VariantError)).Times(1)

	c := coordinator.New(nil, notifier, nil, fastRetry())
	defer c.Close()

	_, err := c.LoadAll(context.Background(), map[string]ports.Loader{
		"a": failingLoader(),
		"b": failingLoader(),
	})
	require.ErrorIs(t, err, domain.ErrAllSectionsFailed)
}

func TestLoadAll_FullSuccessNotice(t *testing.T) {
	ctrl := gomock.NewController(t)
	notifier := mocks.NewMockNotifier(ctrl)
	notifier.EXPECT().Notify(matchVariant(ports.VariantInfo)).Times(1)

	c := coordinator.New(nil, notifier, nil)
	defer c.Close()

	res, err := c.LoadAll(context.Background(), map[string]ports.Loader{
		"a": staticLoader(1),
		"b": staticLoader(2),
	})
	require.NoError(t, err)
	assert.Len(t, res.Succeeded, 2)
}

func TestRefreshSection_ReusesStoredLoader(t *testing.T) {
	c := coordinator.New(nil, nil, nil)
	defer c.Close()

	calls := 0
	loader := func(context.Context) (any, error) {
		calls++
		return calls, nil
	}

	_, err := c.LoadSection(context.Background(), "financial", loader)
	require.NoError(t, err)

	v, err := c.RefreshSection(context.Background(), "financial")
	require.NoError(t, err)
	assert.Equal(t, 2, v)
}

func TestRefreshSection_NoLoader(t *testing.T) {
	c := coordinator.New(nil, nil, nil)
	defer c.Close()

	require.NoError(t, c.Register("financial", "Financial Metrics"))
	_, err := c.RefreshSection(context.Background(), "financial")
	require.ErrorIs(t, err, domain.ErrLoaderNotRegistered)
}

func TestOverallProgress(t *testing.T) {
	c := coordinator.New(nil, nil, nil, fastRetry())
	defer c.Close()

	// Empty registry is vacuously complete.
	assert.Equal(t, 100, c.OverallProgress())

	_, err := c.LoadSection(context.Background(), "a", staticLoader(1))
	require.NoError(t, err)
	require.NoError(t, c.Register("b", "B"))

	// One loaded, one idle.
	assert.Equal(t, 50, c.OverallProgress())

	state := domain.StateLoading
	progress := 50
	require.NoError(t, c.UpdateSection("b", domain.SectionPatch{State: &state, Progress: &progress}))
	assert.Equal(t, 75, c.OverallProgress())
}

func TestDataVersion_AdvancesOnlyOnChange(t *testing.T) {
	c := coordinator.New(nil, nil, nil)
	defer c.Close()

	_, err := c.LoadSection(context.Background(), "financial", staticLoader(map[string]int{"revenue": 42}))
	require.NoError(t, err)
	s, _ := c.Section("financial")
	v1 := s.DataVersion

	// Identical payload: timestamp moves, version does not.
	_, err = c.LoadSection(context.Background(), "financial", staticLoader(map[string]int{"revenue": 42}))
	require.NoError(t, err)
	s, _ = c.Section("financial")
	assert.Equal(t, v1, s.DataVersion)

	_, err = c.LoadSection(context.Background(), "financial", staticLoader(map[string]int{"revenue": 43}))
	require.NoError(t, err)
	s, _ = c.Section("financial")
	assert.Equal(t, v1+1, s.DataVersion)
}

func TestSubscribe_NotifiedOnMutation(t *testing.T) {
	c := coordinator.New(nil, nil, nil)
	defer c.Close()

	var mu sync.Mutex
	var last domain.Snapshot
	notified := 0

	sub := c.Subscribe(func(snap domain.Snapshot) {
		mu.Lock()
		defer mu.Unlock()
		notified++
		last = snap
	})
	defer sub.Unsubscribe()

	_, err := c.LoadSection(context.Background(), "financial", staticLoader(1))
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	// One notification for the loading transition, one for completion.
	assert.Equal(t, 2, notified)
	require.Len(t, last.Sections, 1)
	assert.Equal(t, domain.StateLoaded, last.Sections[0].State)
	assert.Equal(t, 100, last.OverallProgress)
	assert.False(t, last.IsAnyLoading)
}

func TestSubscribe_UnsubscribeStopsDelivery(t *testing.T) {
	c := coordinator.New(nil, nil, nil)
	defer c.Close()

	notified := 0
	sub := c.Subscribe(func(domain.Snapshot) { notified++ })
	sub.Unsubscribe()

	_, err := c.LoadSection(context.Background(), "financial", staticLoader(1))
	require.NoError(t, err)
	assert.Zero(t, notified)
}

func TestSetStaleThreshold_RecomputesImmediately(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		c := coordinator.New(nil, nil, nil, coordinator.WithStaleThreshold(time.Hour))
		defer c.Close()

		_, err := c.LoadSection(context.Background(), "financial", staticLoader(1))
		require.NoError(t, err)

		time.Sleep(10 * time.Minute)
		assert.False(t, c.HasStaleData())

		c.SetStaleThreshold(5 * time.Minute)
		assert.True(t, c.HasStaleData())

		s, _ := c.Section("financial")
		assert.True(t, s.Stale)
	})
}
