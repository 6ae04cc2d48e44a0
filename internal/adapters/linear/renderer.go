// Package linear provides a synchronous, line-oriented renderer for CI and
// other non-interactive environments.
package linear

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/muesli/termenv"
	"go.leadline.dev/loadstate/internal/core/domain"
	"go.leadline.dev/loadstate/internal/core/ports"
	"go.leadline.dev/loadstate/internal/ui/output"
	"go.leadline.dev/loadstate/internal/ui/style"
)

var _ ports.Renderer = (*Renderer)(nil)

// Renderer implements ports.Renderer with chronological, prefixed log lines.
type Renderer struct {
	out *termenv.Output

	mu       sync.Mutex
	starts   map[string]time.Time
	progress int
	stale    bool
}

// NewRenderer creates a linear renderer writing to w, defaulting to stderr.
func NewRenderer(w io.Writer) *Renderer {
	if w == nil {
		w = os.Stderr
	}
	return &Renderer{
		out:      output.NewWithProfile(w, output.ColorProfileANSI),
		starts:   make(map[string]time.Time),
		progress: -1,
	}
}

// Start is a no-op; the linear renderer is synchronous.
func (r *Renderer) Start(_ context.Context) error {
	return nil
}

// Stop is a no-op; every event is flushed as it arrives.
func (r *Renderer) Stop() error {
	return nil
}

// Wait is a no-op; the linear renderer owns no goroutines.
func (r *Renderer) Wait() error {
	return nil
}

// OnPlan prints the sections a run will load.
func (r *Renderer) OnPlan(sectionIDs []string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.printf("Loading %d section(s): %s\n", len(sectionIDs), strings.Join(sectionIDs, ", "))
}

// OnSectionStart prints a start line for the section.
func (r *Renderer) OnSectionStart(id string, startedAt time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.starts[id] = startedAt
	prefix := r.out.String(fmt.Sprintf("[%s]", id)).Faint().String()
	r.printf("%s loading...\n", prefix)
}

// OnSectionComplete prints the outcome with the measured duration.
func (r *Renderer) OnSectionComplete(id string, finishedAt time.Time, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var duration time.Duration
	if started, ok := r.starts[id]; ok {
		duration = finishedAt.Sub(started).Round(time.Millisecond)
		delete(r.starts, id)
	}

	prefix := fmt.Sprintf("[%s]", id)
	if err != nil {
		symbol := r.out.String(style.Cross).Foreground(termenv.ANSIRed).String()
		r.printf("%s %s failed after %v: %v\n", prefix, symbol, duration, err)
		return
	}
	symbol := r.out.String(style.Check).Foreground(termenv.ANSIGreen).String()
	r.printf("%s %s loaded in %v\n", prefix, symbol, duration)
}

// OnSnapshot prints aggregate changes: overall progress movement and
// staleness transitions. Unchanged aggregates stay silent so CI logs do not
// drown in snapshots.
func (r *Renderer) OnSnapshot(snap domain.Snapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if snap.OverallProgress != r.progress {
		r.progress = snap.OverallProgress
		r.printf("overall progress %d%%\n", snap.OverallProgress)
	}
	if snap.HasStaleData != r.stale {
		r.stale = snap.HasStaleData
		if snap.HasStaleData {
			symbol := r.out.String(style.Clock).Foreground(termenv.ANSIYellow).String()
			r.printf("%s some sections are stale\n", symbol)
		} else {
			r.printf("all sections fresh\n")
		}
	}
}

func (r *Renderer) printf(format string, args ...any) {
	_, _ = r.out.WriteString(fmt.Sprintf(format, args...))
}
