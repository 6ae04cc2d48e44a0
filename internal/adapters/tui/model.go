package tui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"go.leadline.dev/loadstate/internal/core/domain"
)

// row is the per-section display state.
type row struct {
	ID        string
	StartedAt time.Time
	Elapsed   time.Duration
	Section   domain.Section
	Planned   bool
}

// Model is the dashboard TUI state.
type Model struct {
	Rows     []*row
	RowMap   map[string]*row
	Snapshot domain.Snapshot
	Width    int
	Height   int
	Quitting bool

	// OnRefresh is invoked from the update loop when the user requests a
	// reload. It must not block.
	OnRefresh func()

	now func() time.Time
}

// NewModel creates an empty dashboard model.
func NewModel() *Model {
	return &Model{
		RowMap: make(map[string]*row),
		now:    time.Now,
	}
}

// Init starts the elapsed-time ticker.
//
//nolint:gocritic // hugeParam ignored
func (m *Model) Init() tea.Cmd {
	return tick()
}

type msgTick time.Time

func tick() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(t time.Time) tea.Msg {
		return msgTick(t)
	})
}

// Update handles incoming messages.
//
//nolint:cyclop,gocritic // hugeParam ignored, message switch is inherently branchy
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.Quitting = true
			return m, tea.Quit
		case "r":
			if m.OnRefresh != nil {
				m.OnRefresh()
			}
		}

	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height

	case MsgPlan:
		for _, id := range msg.SectionIDs {
			r := m.ensureRow(id)
			r.Planned = true
		}

	case MsgSectionStart:
		r := m.ensureRow(msg.ID)
		r.StartedAt = msg.StartedAt
		r.Elapsed = 0

	case MsgSectionComplete:
		r := m.ensureRow(msg.ID)
		if !r.StartedAt.IsZero() {
			r.Elapsed = msg.FinishedAt.Sub(r.StartedAt)
		}
		r.StartedAt = time.Time{}

	case MsgSnapshot:
		m.Snapshot = msg.Snapshot
		for i := range msg.Snapshot.Sections {
			s := msg.Snapshot.Sections[i]
			r := m.ensureRow(s.ID)
			r.Section = s
		}

	case msgTick:
		for _, r := range m.Rows {
			if !r.StartedAt.IsZero() {
				r.Elapsed = m.now().Sub(r.StartedAt)
			}
		}
		return m, tick()
	}

	return m, nil
}

// ensureRow returns the row for id, creating it in arrival order.
func (m *Model) ensureRow(id string) *row {
	if r, ok := m.RowMap[id]; ok {
		return r
	}
	r := &row{ID: id, Section: domain.Section{ID: id, Name: id, State: domain.StateIdle}}
	m.Rows = append(m.Rows, r)
	m.RowMap[id] = r
	return r
}
