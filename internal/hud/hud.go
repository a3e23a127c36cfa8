// Package hud renders a terminal heads-up display for a running
// engine, built on Bubble Tea. It is a pure Event Bus consumer — the
// 3D note highway renderer is out of scope, but this is the same
// downstream integration point it would occupy.
package hud

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/djentronome/rhythm-core/internal/bus"
	"github.com/djentronome/rhythm-core/internal/domain"
	"github.com/djentronome/rhythm-core/internal/pattern"
)

var (
	scoreStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#fde68a")).
			Bold(true)

	comboStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#bae6fd"))

	perfectStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#4ade80"))
	goodStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#bbf7d0"))
	okStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#fde68a"))
	missStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#fca5a5"))
	ghostStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#71717a")).Italic(true)

	secondaryStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#71717a"))
	sepStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("#3f3f46"))
)

const maxLogLines = 8

// judgmentMsg carries a HIT_JUDGED payload into the Bubble Tea loop.
type judgmentMsg struct{ j domain.Judgment }

// scoreMsg refreshes the displayed score state.
type scoreMsg struct{ s domain.ScoreState }

// sectionMsg announces a section change.
type sectionMsg struct{ name string }

type model struct {
	score   domain.ScoreState
	logLine []string
	section string
	quit    bool
}

func (m model) Init() tea.Cmd { return nil }

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch v := msg.(type) {
	case tea.KeyMsg:
		if v.String() == "q" || v.String() == "ctrl+c" {
			m.quit = true
			return m, tea.Quit
		}
	case scoreMsg:
		m.score = v.s
	case judgmentMsg:
		m.logLine = append(m.logLine, formatJudgment(v.j))
		if len(m.logLine) > maxLogLines {
			m.logLine = m.logLine[len(m.logLine)-maxLogLines:]
		}
	case sectionMsg:
		m.section = v.name
	}
	return m, nil
}

func (m model) View() string {
	var b strings.Builder

	b.WriteString(scoreStyle.Render(fmt.Sprintf("Score %d", m.score.Score)))
	b.WriteString("  ")
	b.WriteString(comboStyle.Render(fmt.Sprintf("Combo x%d (max %d)", m.score.Combo, m.score.MaxCombo)))
	b.WriteString("  ")
	b.WriteString(secondaryStyle.Render(fmt.Sprintf("Multiplier %.1f", m.score.Multiplier)))
	b.WriteString("\n")

	if m.section != "" {
		b.WriteString(secondaryStyle.Render("Section: " + m.section))
		b.WriteString("\n")
	}

	b.WriteString(sepStyle.Render(strings.Repeat("─", 40)))
	b.WriteString("\n")
	for _, line := range m.logLine {
		b.WriteString(line)
		b.WriteString("\n")
	}
	b.WriteString(secondaryStyle.Render("q to quit"))
	b.WriteString("\n")
	return b.String()
}

func formatJudgment(j domain.Judgment) string {
	style := styleFor(j.Accuracy)
	return style.Render(fmt.Sprintf("%-8s delta=%+.0fms combo=%d", j.Accuracy, j.DeltaMs, j.ComboAfter))
}

func styleFor(a domain.Accuracy) lipgloss.Style {
	switch a {
	case domain.Perfect:
		return perfectStyle
	case domain.Good:
		return goodStyle
	case domain.Ok:
		return okStyle
	case domain.Miss:
		return missStyle
	default:
		return ghostStyle
	}
}

// HUD owns the Bubble Tea program and subscribes to the engine's event bus.
type HUD struct {
	program *tea.Program
}

// New creates a HUD and subscribes its handlers to b. Call Run to
// start the terminal program (blocking); call it from its own
// goroutine if the caller also drives the engine's tick loop.
func New(b *bus.Bus) *HUD {
	h := &HUD{program: tea.NewProgram(model{score: domain.ScoreState{Multiplier: 1.0}})}

	b.Subscribe(bus.HitJudged, func(e bus.Event) error {
		j := e.Payload.(domain.Judgment)
		h.program.Send(judgmentMsg{j: j})
		return nil
	})
	b.Subscribe(bus.SectionChanged, func(e bus.Event) error {
		name := e.Payload.(pattern.SectionChangedPayload).Section.Name
		h.program.Send(sectionMsg{name: name})
		return nil
	})

	return h
}

// PushScore sends a fresh score snapshot into the HUD. The engine's
// owner calls this after ticks that may have changed score state.
func (h *HUD) PushScore(s domain.ScoreState) {
	h.program.Send(scoreMsg{s: s})
}

// Run starts the Bubble Tea program; blocks until the user quits.
func (h *HUD) Run() error {
	_, err := h.program.Run()
	return err
}
