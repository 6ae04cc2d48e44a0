package linear_test

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.leadline.dev/loadstate/internal/adapters/linear"
	"go.leadline.dev/loadstate/internal/core/domain"
)

func newRenderer(t *testing.T) (*linear.Renderer, *bytes.Buffer) {
	t.Helper()
	t.Setenv("NO_COLOR", "1")

	var buf bytes.Buffer
	return linear.NewRenderer(&buf), &buf
}

func TestRenderer_Lifecycle(t *testing.T) {
	r, _ := newRenderer(t)

	require.NoError(t, r.Start(t.Context()))
	require.NoError(t, r.Stop())
	require.NoError(t, r.Wait())
}

func TestRenderer_OnPlan(t *testing.T) {
	r, buf := newRenderer(t)

	r.OnPlan([]string{"financial", "clients", "reports"})
	assert.Equal(t, "Loading 3 section(s): financial, clients, reports\n", buf.String())
}

func TestRenderer_SectionSuccess(t *testing.T) {
	r, buf := newRenderer(t)

	start := time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC)
	r.OnSectionStart("financial", start)
	r.OnSectionComplete("financial", start.Add(320*time.Millisecond), nil)

	out := buf.String()
	assert.Contains(t, out, "[financial] loading...")
	assert.Contains(t, out, "[financial] ✓ loaded in 320ms")
}

func TestRenderer_SectionFailure(t *testing.T) {
	r, buf := newRenderer(t)

	start := time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC)
	r.OnSectionStart("clients", start)
	r.OnSectionComplete("clients", start.Add(time.Second), errors.New("timeout"))

	out := buf.String()
	assert.Contains(t, out, "[clients] ✗ failed after 1s: timeout")
}

func TestRenderer_CompleteWithoutStart(t *testing.T) {
	r, buf := newRenderer(t)

	// Coalesced loads can complete for callers that never saw a start.
	r.OnSectionComplete("financial", time.Now(), nil)
	assert.Contains(t, buf.String(), "[financial] ✓ loaded in 0s")
}

func TestRenderer_SnapshotReportsOnlyChanges(t *testing.T) {
	r, buf := newRenderer(t)

	r.OnSnapshot(domain.Snapshot{OverallProgress: 50})
	r.OnSnapshot(domain.Snapshot{OverallProgress: 50})
	r.OnSnapshot(domain.Snapshot{OverallProgress: 100})

	assert.Equal(t, "overall progress 50%\noverall progress 100%\n", buf.String())
}

func TestRenderer_SnapshotStalenessTransitions(t *testing.T) {
	r, buf := newRenderer(t)

	r.OnSnapshot(domain.Snapshot{OverallProgress: 100, HasStaleData: true})
	r.OnSnapshot(domain.Snapshot{OverallProgress: 100, HasStaleData: true})
	r.OnSnapshot(domain.Snapshot{OverallProgress: 100, HasStaleData: false})

	out := buf.String()
	assert.Contains(t, out, "◷ some sections are stale\n")
	assert.Contains(t, out, "all sections fresh\n")
	assert.Equal(t, 1, bytes.Count([]byte(out), []byte("stale")))
}
