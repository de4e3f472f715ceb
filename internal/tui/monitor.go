// Package tui renders a live view of a running solve: iteration counter,
// residual norm and convergence history.
package tui

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"

	"github.com/san-kum/thermnet/internal/plant"
	"github.com/san-kum/thermnet/internal/solver"
)

var (
	cyan   = lipgloss.NewStyle().Foreground(lipgloss.Color("86"))
	white  = lipgloss.NewStyle().Foreground(lipgloss.Color("255"))
	dim    = lipgloss.NewStyle().Foreground(lipgloss.Color("242"))
	green  = lipgloss.NewStyle().Foreground(lipgloss.Color("82"))
	yellow = lipgloss.NewStyle().Foreground(lipgloss.Color("220"))
	red    = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
)

type iterMsg struct {
	iter     int
	residual float64
}

type doneMsg struct {
	result *solver.Result
	err    error
}

// Monitor is the bubbletea model of the convergence view.
type Monitor struct {
	label   string
	updates chan tea.Msg
	start   time.Time

	iter     int
	residual float64
	history  []float64
	done     bool
	err      error
	result   *solver.Result

	width  int
	height int
}

func NewMonitor(label string) *Monitor {
	return &Monitor{
		label:   label,
		updates: make(chan tea.Msg, 64),
		start:   time.Now(),
		width:   80,
		height:  24,
	}
}

// Observer feeds iteration updates into the view.
func (m *Monitor) Observer() solver.Observer {
	return solver.ObserverFunc(func(iter int, residual float64) {
		m.updates <- iterMsg{iter: iter, residual: residual}
	})
}

func (m *Monitor) finish(res *solver.Result, err error) {
	m.updates <- doneMsg{result: res, err: err}
}

func (m *Monitor) wait() tea.Cmd {
	return func() tea.Msg { return <-m.updates }
}

func (m *Monitor) Init() tea.Cmd { return m.wait() }

func (m *Monitor) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		}
		return m, nil
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil
	case iterMsg:
		m.iter = msg.iter
		m.residual = msg.residual
		m.history = append(m.history, msg.residual)
		return m, m.wait()
	case doneMsg:
		m.done = true
		m.result = msg.result
		m.err = msg.err
		return m, tea.Quit
	}
	return m, nil
}

func (m *Monitor) View() string {
	var b strings.Builder
	b.WriteString(cyan.Render(m.label))
	b.WriteString(dim.Render(fmt.Sprintf("  %.1fs", time.Since(m.start).Seconds())))
	b.WriteString("\n\n")

	b.WriteString(white.Render(fmt.Sprintf("  iteration %3d", m.iter)))
	b.WriteString(white.Render(fmt.Sprintf("   residual %10.3e", m.residual)))
	b.WriteString("\n\n")

	if len(m.history) > 1 {
		data := make([]float64, len(m.history))
		for i, r := range m.history {
			if r > 0 {
				data[i] = math.Log10(r)
			}
		}
		w := m.width - 12
		if w > 70 {
			w = 70
		}
		graph := asciigraph.Plot(data,
			asciigraph.Height(10),
			asciigraph.Width(w),
			asciigraph.Caption("log10 residual"),
		)
		b.WriteString(dim.Render(graph))
		b.WriteString("\n\n")
	}

	switch {
	case m.done && m.err != nil:
		b.WriteString(red.Render("  " + m.err.Error()))
	case m.done:
		b.WriteString(green.Render(fmt.Sprintf("  converged after %d iterations", m.iter)))
	default:
		b.WriteString(yellow.Render("  solving..."))
	}
	b.WriteString(dim.Render("\n\n  q to quit\n"))
	return b.String()
}

// RunSolve drives a solve with the live view attached and returns its
// outcome.
func RunSolve(ctx context.Context, label string, s *solver.Solver, sys *plant.System, opts solver.Options) (*solver.Result, error) {
	mon := NewMonitor(label)
	s.Observers = append(s.Observers, mon.Observer())

	p := tea.NewProgram(mon)
	go func() {
		res, err := s.Solve(ctx, sys, opts)
		mon.finish(res, err)
	}()
	if _, err := p.Run(); err != nil {
		return nil, err
	}
	return mon.result, mon.err
}
