package tui

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"go.leadline.dev/loadstate/internal/core/domain"
	"go.leadline.dev/loadstate/internal/core/ports"
)

var _ ports.Renderer = (*Renderer)(nil)

// Renderer wraps the Bubble Tea model as a ports.Renderer.
type Renderer struct {
	program *tea.Program
	model   *Model
	errCh   chan error
}

// NewRenderer creates a TUI renderer around the given model.
func NewRenderer(model *Model, opts ...tea.ProgramOption) *Renderer {
	program := tea.NewProgram(model, opts...)
	return &Renderer{
		program: program,
		model:   model,
		errCh:   make(chan error, 1),
	}
}

// Start launches the TUI in a background goroutine.
func (r *Renderer) Start(_ context.Context) error {
	go func() {
		_, err := r.program.Run()
		r.errCh <- err
	}()
	return nil
}

// Stop signals the TUI to quit.
func (r *Renderer) Stop() error {
	r.program.Quit()
	return nil
}

// Wait blocks until the TUI has terminated.
func (r *Renderer) Wait() error {
	return <-r.errCh
}

// OnPlan forwards the run plan to the TUI.
func (r *Renderer) OnPlan(sectionIDs []string) {
	r.program.Send(MsgPlan{SectionIDs: sectionIDs})
}

// OnSectionStart forwards a load start to the TUI.
func (r *Renderer) OnSectionStart(id string, startedAt time.Time) {
	r.program.Send(MsgSectionStart{ID: id, StartedAt: startedAt})
}

// OnSectionComplete forwards a settled load to the TUI.
func (r *Renderer) OnSectionComplete(id string, finishedAt time.Time, err error) {
	r.program.Send(MsgSectionComplete{ID: id, FinishedAt: finishedAt, Err: err})
}

// OnSnapshot forwards the updated registry view to the TUI.
func (r *Renderer) OnSnapshot(snap domain.Snapshot) {
	r.program.Send(MsgSnapshot{Snapshot: snap})
}

// Program returns the underlying tea.Program for testing.
func (r *Renderer) Program() *tea.Program {
	return r.program
}
