// Package tui renders the control loop live in the terminal: the ball
// in its tube, the fan command and the setpoint band.
package tui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/MathBorgess/automation-engineering/internal/control"
	"github.com/MathBorgess/automation-engineering/internal/sim"
)

var (
	cyan   = lipgloss.NewStyle().Foreground(lipgloss.Color("86"))
	white  = lipgloss.NewStyle().Foreground(lipgloss.Color("255"))
	dim    = lipgloss.NewStyle().Foreground(lipgloss.Color("242"))
	green  = lipgloss.NewStyle().Foreground(lipgloss.Color("82"))
	yellow = lipgloss.NewStyle().Foreground(lipgloss.Color("220"))
	red    = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
)

const tubeRows = 20

type tickMsg time.Time

// Live is the bubbletea model for a running simulation. The fuzzy
// controller is optional; without it the up/down keys still move the
// target marker but nothing retunes.
type Live struct {
	sim      *sim.Simulator
	fz       *control.Fuzzy
	setpoint float64
	interval time.Duration

	rec    sim.Record
	paused bool
	err    error

	width  int
	height int
}

func NewLive(s *sim.Simulator, fz *control.Fuzzy, setpoint float64, interval time.Duration) *Live {
	if interval <= 0 {
		interval = 50 * time.Millisecond
	}
	return &Live{sim: s, fz: fz, setpoint: setpoint, interval: interval, width: 80, height: 24}
}

func (m *Live) tick() tea.Cmd {
	return tea.Tick(m.interval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m *Live) Init() tea.Cmd { return m.tick() }

func (m *Live) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case " ":
			m.paused = !m.paused
		case "m":
			if m.sim.Mode() == sim.Automatic {
				m.sim.SetMode(sim.Manual)
			} else {
				m.sim.SetMode(sim.Automatic)
			}
		case "up":
			m.moveSetpoint(1)
		case "down":
			m.moveSetpoint(-1)
		case "r":
			m.sim.Reset()
		}
		return m, nil

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tickMsg:
		if !m.paused {
			m.rec = m.sim.Step()
		}
		return m, m.tick()
	}
	return m, nil
}

func (m *Live) moveSetpoint(delta float64) {
	cfg := m.sim.Config()
	sp := m.setpoint + delta
	if sp < cfg.GridHeight+1 || sp > cfg.MaxHeight()-1 {
		return
	}
	m.setpoint = sp
	if m.fz != nil {
		m.err = m.fz.Retarget(sp, cfg.MaxDistance())
	}
}

func (m *Live) View() string {
	cfg := m.sim.Config()
	var b strings.Builder

	b.WriteString(cyan.Render("airball") + dim.Render(fmt.Sprintf("  t=%.1fs  mode=%s", m.rec.Time, m.rec.Mode)))
	if m.paused {
		b.WriteString(yellow.Render("  [paused]"))
	}
	b.WriteString("\n\n")

	b.WriteString(m.renderTube(cfg))
	b.WriteString("\n")
	b.WriteString(m.renderFanBar())
	b.WriteString("\n\n")

	b.WriteString(fmt.Sprintf("  height %s cm   measured %s cm   setpoint %s cm\n",
		white.Render(fmt.Sprintf("%6.1f", m.rec.Height)),
		white.Render(fmt.Sprintf("%6.1f", m.rec.Measured)),
		green.Render(fmt.Sprintf("%5.1f", m.setpoint))))

	if m.err != nil {
		b.WriteString(red.Render(fmt.Sprintf("  %v\n", m.err)))
	}

	b.WriteString(dim.Render("\n  q quit · space pause · m mode · ↑/↓ setpoint · r reset\n"))
	return b.String()
}

// renderTube draws the tube as a vertical column, highest row first.
// Each row spans an equal slice of the reachable band.
func (m *Live) renderTube(cfg sim.Config) string {
	lo, hi := cfg.GridHeight, cfg.MaxHeight()
	rowOf := func(h float64) int {
		frac := (h - lo) / (hi - lo)
		row := int(frac * float64(tubeRows-1))
		if row < 0 {
			row = 0
		}
		if row > tubeRows-1 {
			row = tubeRows - 1
		}
		return row
	}

	ballRow := rowOf(m.rec.Height)
	spRow := rowOf(m.setpoint)

	var b strings.Builder
	for row := tubeRows - 1; row >= 0; row-- {
		b.WriteString("    " + dim.Render("|"))
		switch {
		case row == ballRow:
			b.WriteString(white.Render("   (O)   "))
		case row == spRow:
			b.WriteString(green.Render(" ------- "))
		default:
			b.WriteString("         ")
		}
		b.WriteString(dim.Render("|"))
		if row == spRow {
			b.WriteString(green.Render(fmt.Sprintf("  <- %.0f cm", m.setpoint)))
		}
		b.WriteString("\n")
	}
	b.WriteString("    " + dim.Render("|=========|") + dim.Render("  grid\n"))
	b.WriteString("    " + dim.Render("   [FAN]\n"))
	return b.String()
}

func (m *Live) renderFanBar() string {
	const barWidth = 40
	filled := int(m.rec.Command / 100 * barWidth)
	bar := strings.Repeat("#", filled) + strings.Repeat(" ", barWidth-filled)
	style := green
	if m.rec.Command > 80 {
		style = red
	} else if m.rec.Command > 60 {
		style = yellow
	}
	return fmt.Sprintf("    fan [%s] %s", style.Render(bar),
		white.Render(fmt.Sprintf("%5.1f%%", m.rec.Command)))
}

// Run blocks until the user quits.
func Run(m *Live) error {
	p := tea.NewProgram(m, tea.WithAltScreen())
	_, err := p.Run()
	return err
}
