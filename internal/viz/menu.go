package viz

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/quantfall/xasim/internal/evolve"
	"github.com/quantfall/xasim/internal/scenario"
)

const (
	menuSelect = iota
	menuOptions
	menuLive
)

// menuModel is the preset picker shown when xasim starts without a
// subcommand. Selecting a preset opens a small options pane, starting
// hands over to the live path viewer.
type menuModel struct {
	state   int
	cursor  int
	presets []string
	descs   map[string]string

	optCursor int
	seed      uint64
	scheme    string
	err       error

	live Model
}

var optionNames = []string{"seed", "scheme"}

func NewMenu() menuModel {
	names := scenario.ListPresets()
	descs := make(map[string]string, len(names))
	for _, name := range names {
		p := scenario.GetPreset(name)
		descs[name] = fmt.Sprintf("%d factors, %s, %d paths", len(p.Factors), p.Scheme, p.Paths)
	}
	return menuModel{
		state:   menuSelect,
		presets: names,
		descs:   descs,
		seed:    scenario.DefaultSeed,
		scheme:  "euler",
	}
}

func (m menuModel) Init() tea.Cmd { return nil }

func (m menuModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok {
		return m.handleKey(key)
	}
	if m.state == menuLive {
		newLive, cmd := m.live.Update(msg)
		m.live = newLive.(Model)
		return m, cmd
	}
	return m, nil
}

func (m menuModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch m.state {
	case menuSelect:
		return m.selectKey(msg)
	case menuOptions:
		return m.optionsKey(msg)
	case menuLive:
		if msg.String() == "esc" {
			m.state = menuSelect
			return m, nil
		}
		newLive, cmd := m.live.Update(msg)
		m.live = newLive.(Model)
		return m, cmd
	}
	return m, nil
}

func (m menuModel) selectKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.presets)-1 {
			m.cursor++
		}
	case "enter", " ":
		p := scenario.GetPreset(m.presets[m.cursor])
		m.state, m.optCursor, m.err = menuOptions, 0, nil
		m.seed = p.Seed
		m.scheme = p.Scheme
	}
	return m, nil
}

func (m menuModel) optionsKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		return m, tea.Quit
	case "q", "esc":
		m.state = menuSelect
	case "up", "k":
		if m.optCursor > 0 {
			m.optCursor--
		}
	case "down", "j":
		if m.optCursor < len(optionNames)-1 {
			m.optCursor++
		}
	case "left", "h":
		if m.optCursor == 0 && m.seed > 0 {
			m.seed--
		} else if m.optCursor == 1 {
			m.scheme = toggleScheme(m.scheme)
		}
	case "right", "l":
		if m.optCursor == 0 {
			m.seed++
		} else if m.optCursor == 1 {
			m.scheme = toggleScheme(m.scheme)
		}
	case "enter", "s":
		return m.start()
	}
	return m, nil
}

func toggleScheme(s string) string {
	if s == "euler" {
		return "exact"
	}
	return "euler"
}

func (m menuModel) start() (tea.Model, tea.Cmd) {
	p := scenario.GetPreset(m.presets[m.cursor])
	c := *p
	c.Seed = m.seed
	c.Scheme = m.scheme

	if err := c.Validate(); err != nil {
		m.err = err
		return m, nil
	}
	_, proc, err := c.Build()
	if err != nil {
		m.err = err
		return m, nil
	}
	g, err := c.Grid()
	if err != nil {
		m.err = err
		return m, nil
	}

	names := make([]string, len(c.Factors))
	for i, f := range c.Factors {
		names[i] = f.Name
	}
	m.live = NewModel(evolve.NewEngine(proc), g, names, m.seed)
	m.state = menuLive
	return m, m.live.Init()
}

func (m menuModel) View() string {
	switch m.state {
	case menuSelect:
		return m.viewSelect()
	case menuOptions:
		return m.viewOptions()
	case menuLive:
		return m.live.View()
	}
	return ""
}

func (m menuModel) viewSelect() string {
	var b strings.Builder
	h := lipgloss.NewStyle().Foreground(lipgloss.Color("#00cccc")).Bold(true)
	sub := lipgloss.NewStyle().Foreground(lipgloss.Color("#666688"))
	b.WriteString("\n\n    " + h.Render("XASIM") + "\n    " + sub.Render("correlated factor scenarios") + "\n    " + sub.Render("───────────────────────────") + "\n\n")
	for i, name := range m.presets {
		if i == m.cursor {
			b.WriteString(fmt.Sprintf("    %s %s  %s\n",
				lipgloss.NewStyle().Foreground(lipgloss.Color("#00ffff")).Bold(true).Render("▸"),
				lipgloss.NewStyle().Foreground(lipgloss.Color("#ffffff")).Bold(true).Render(fmt.Sprintf("%-18s", name)),
				lipgloss.NewStyle().Foreground(lipgloss.Color("#ff88ff")).Render(m.descs[name])))
		} else {
			b.WriteString(fmt.Sprintf("    %s  %s\n",
				lipgloss.NewStyle().Foreground(lipgloss.Color("#555566")).Render(fmt.Sprintf("  %-18s", name)),
				lipgloss.NewStyle().Foreground(lipgloss.Color("#444455")).Render(m.descs[name])))
		}
	}
	b.WriteString("\n    " + keyHint("j/k", "navigate") + keyHint("enter", "select") + keyHint("q", "quit") + "\n")
	return b.String()
}

func (m menuModel) viewOptions() string {
	var b strings.Builder
	h := lipgloss.NewStyle().Foreground(lipgloss.Color("#00cccc")).Bold(true)
	sub := lipgloss.NewStyle().Foreground(lipgloss.Color("#666688"))
	name := m.presets[m.cursor]
	b.WriteString("\n\n    " + h.Render(strings.ToUpper(name)) + "\n    " + sub.Render(m.descs[name]) + "\n    " + sub.Render("───────────────────────────") + "\n\n")

	vals := []string{fmt.Sprintf("%8d", m.seed), fmt.Sprintf("%8s", m.scheme)}
	for i, opt := range optionNames {
		if i == m.optCursor {
			b.WriteString(fmt.Sprintf("    %s %s %s\n",
				lipgloss.NewStyle().Foreground(lipgloss.Color("#00ffff")).Bold(true).Render("▸"),
				lipgloss.NewStyle().Foreground(lipgloss.Color("#ffffff")).Bold(true).Render(fmt.Sprintf("%-10s", opt)),
				lipgloss.NewStyle().Foreground(lipgloss.Color("#ff88ff")).Bold(true).Render(vals[i])))
		} else {
			b.WriteString(fmt.Sprintf("    %s %s\n",
				lipgloss.NewStyle().Foreground(lipgloss.Color("#555566")).Render(fmt.Sprintf("  %-10s", opt)),
				lipgloss.NewStyle().Foreground(lipgloss.Color("#444455")).Render(vals[i])))
		}
	}
	if m.err != nil {
		b.WriteString("\n    " + errorStyle.Render(m.err.Error()) + "\n")
	}
	b.WriteString("\n    " + keyHint("j/k", "select") + keyHint("h/l", "adjust") + keyHint("enter", "start") + keyHint("esc", "back") + "\n")
	return b.String()
}

func keyHint(key, action string) string {
	return lipgloss.NewStyle().Foreground(lipgloss.Color("#00aaaa")).Bold(true).Render(key) +
		lipgloss.NewStyle().Foreground(lipgloss.Color("#555566")).Render(" "+action+"  ")
}

// RunMenu starts the interactive preset picker.
func RunMenu() error {
	_, err := tea.NewProgram(NewMenu(), tea.WithAltScreen()).Run()
	return err
}
