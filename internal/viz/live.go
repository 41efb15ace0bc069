package viz

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/guptarohit/asciigraph"

	"github.com/quantfall/xasim/internal/evolve"
)

const (
	chartWidth  = 64
	chartHeight = 12
)

type TickMsg time.Time

// Model animates one simulated path factor by factor. The path is
// simulated up front; the ticker only moves the playback head, so
// pausing and scrubbing never change the realization.
type Model struct {
	eng     *evolve.Engine
	grid    evolve.Grid
	names   []string
	seed    uint64
	path    *evolve.Path
	err     error
	head    int
	factor  int
	running bool
	help    bool
}

func NewModel(eng *evolve.Engine, g evolve.Grid, names []string, seed uint64) Model {
	m := Model{
		eng:     eng,
		grid:    g,
		names:   names,
		seed:    seed,
		running: true,
	}
	m.rerun()
	return m
}

func (m *Model) rerun() {
	m.path, m.err = m.eng.RunPath(context.Background(), m.grid, m.seed)
	m.head = 0
}

func (m Model) Init() tea.Cmd {
	return tea.Tick(time.Second/30, func(t time.Time) tea.Msg { return TickMsg(t) })
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case " ":
			m.running = !m.running
		case "r":
			m.seed++
			m.rerun()
			m.running = true
		case "tab":
			if len(m.names) > 0 {
				m.factor = (m.factor + 1) % len(m.names)
			}
		case "[":
			m.running = false
			if m.head > 0 {
				m.head--
			}
		case "]":
			m.running = false
			if m.path != nil && m.head < len(m.path.States)-1 {
				m.head++
			}
		case "?":
			m.help = !m.help
		}
	case TickMsg:
		if m.running && m.err == nil && m.head < len(m.path.States)-1 {
			m.head++
		}
		return m, tea.Tick(time.Second/30, func(t time.Time) tea.Msg { return TickMsg(t) })
	}
	return m, nil
}

func (m Model) View() string {
	var s strings.Builder
	s.WriteString(headerStyle.Render("LIVE PATH") + "\n")

	if m.err != nil {
		s.WriteString(errorStyle.Render("simulation failed: "+m.err.Error()) + "\n")
		s.WriteString(helpStyle.Render("R:Reseed Q:Quit"))
		return panelStyle.Render(s.String())
	}

	status := "RUNNING"
	if m.head >= len(m.path.States)-1 {
		status = "DONE"
	}
	if !m.running {
		status = "PAUSED"
	}
	s.WriteString(statusStyle.Render(status) + fmt.Sprintf("  seed %d\n\n", m.seed))

	series := m.series()
	if len(series) > 1 {
		chart := asciigraph.Plot(series,
			asciigraph.Height(chartHeight),
			asciigraph.Width(chartWidth),
			asciigraph.Caption(m.names[m.factor]),
		)
		s.WriteString(graphStyle.Render(chart) + "\n\n")
	}

	s.WriteString(labelStyle.Render("Time") + valueStyle.Render(fmt.Sprintf("%.4f", m.path.Times[m.head])) + "\n")
	for i, name := range m.names {
		line := labelStyle.Render(name) + valueStyle.Render(fmt.Sprintf("%+.6f", m.path.States[m.head][i]))
		if i == m.factor {
			s.WriteString(statusStyle.Render("> ") + line + "\n")
		} else {
			s.WriteString("  " + line + "\n")
		}
	}

	if m.help {
		s.WriteString(helpStyle.Render("\nSpace pause/resume, R new seed, Tab focus factor,\n[ ] scrub, ? toggle help, Q quit"))
	} else {
		s.WriteString(helpStyle.Render("\nSP:Pause R:Reseed Tab:Factor [ ]:Scrub ?:Help Q:Quit"))
	}
	return panelStyle.Render(s.String())
}

func (m Model) series() []float64 {
	if m.path == nil {
		return nil
	}
	out := make([]float64, 0, m.head+1)
	for i := 0; i <= m.head && i < len(m.path.States); i++ {
		out = append(out, m.path.States[i][m.factor])
	}
	return out
}

// RunLive starts the interactive viewer.
func RunLive(eng *evolve.Engine, g evolve.Grid, names []string, seed uint64) error {
	_, err := tea.NewProgram(NewModel(eng, g, names, seed), tea.WithAltScreen()).Run()
	return err
}
