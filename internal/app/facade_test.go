package app_test

import (
	"context"
	"errors"
	"testing"
	"testing/synctest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.leadline.dev/loadstate/internal/app"
	"go.leadline.dev/loadstate/internal/core/domain"
	"go.leadline.dev/loadstate/internal/engine/coordinator"
)

func newHandle(t *testing.T) *app.SectionHandle {
	t.Helper()

	coord := coordinator.New(nil, nil, nil)
	t.Cleanup(func() { coord.Close() })

	h, err := app.UseSection(coord, "overview", "Overview")
	require.NoError(t, err)
	return h
}

func TestUseSection_ReusesRegistration(t *testing.T) {
	coord := coordinator.New(nil, nil, nil)
	defer coord.Close()

	first, err := app.UseSection(coord, "overview", "Overview")
	require.NoError(t, err)
	require.NoError(t, first.StartLoading())

	// A second handle for the same id observes the same section state.
	second, err := app.UseSection(coord, "overview", "Overview")
	require.NoError(t, err)
	assert.True(t, second.IsLoading())
}

func TestSectionHandle_ManualLifecycle(t *testing.T) {
	h := newHandle(t)

	s, ok := h.Section()
	require.True(t, ok)
	assert.Equal(t, domain.StateIdle, s.State)

	require.NoError(t, h.StartLoading())
	assert.True(t, h.IsLoading())
	assert.Equal(t, 0, h.Progress())

	require.NoError(t, h.SetProgress(40))
	assert.Equal(t, 40, h.Progress())

	require.NoError(t, h.CompleteLoading(map[string]int{"rows": 3}))
	assert.False(t, h.IsLoading())
	assert.Equal(t, 100, h.Progress())
	assert.Empty(t, h.Error())
	assert.False(t, h.LastUpdated().IsZero())

	s, _ = h.Section()
	assert.Equal(t, domain.StateLoaded, s.State)
	assert.Equal(t, map[string]int{"rows": 3}, s.Data)
}

func TestSectionHandle_SetErrorKeepsData(t *testing.T) {
	h := newHandle(t)

	require.NoError(t, h.CompleteLoading("payload"))
	updated := h.LastUpdated()

	require.NoError(t, h.SetError("upstream timeout"))
	assert.Equal(t, "upstream timeout", h.Error())

	s, _ := h.Section()
	assert.Equal(t, domain.StateError, s.State)
	assert.Equal(t, "payload", s.Data)
	assert.Equal(t, updated, h.LastUpdated())
}

func TestSectionHandle_LoadAndRetry(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		h := newHandle(t)

		calls := 0
		loader := func(_ context.Context) (any, error) {
			calls++
			if calls == 1 {
				return nil, errors.New("transient")
			}
			return "fresh", nil
		}

		_, err := h.Load(context.Background(), loader, coordinator.WithoutRetry())
		require.Error(t, err)
		assert.Equal(t, "transient", h.Error())

		data, err := h.Retry(context.Background(), coordinator.WithoutRetry())
		require.NoError(t, err)
		assert.Equal(t, "fresh", data)
		assert.Empty(t, h.Error())
	})
}

func TestSectionHandle_NotStaleWhenFresh(t *testing.T) {
	h := newHandle(t)

	require.NoError(t, h.CompleteLoading("payload"))
	assert.False(t, h.IsStale())
}
