// Package tui provides the live progress view for a validation run.
// The model never touches the controller's internals; it polls a
// snapshot function on a tick, which is exactly the concurrency story
// the progress tracker is built for.
package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/halverson/readycheck/internal/validation"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#4ECDC4"))
	phaseStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("243"))
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	errStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	verdictStyle = lipgloss.NewStyle().Bold(true)
)

// SnapshotFunc returns the current progress; called on every tick.
type SnapshotFunc func() validation.ProgressSnapshot

// DoneMsg tells the view the run has finished and carries the verdict
// line to display before quitting.
type DoneMsg struct {
	Verdict string
}

type tickMsg time.Time

// Model is the bubbletea model for the progress view.
type Model struct {
	snapshot SnapshotFunc
	refresh  time.Duration

	spinner  spinner.Model
	bar      progress.Model
	current  validation.ProgressSnapshot
	verdict  string
	finished bool
	width    int
}

// NewModel builds the progress view polling snapshot every refresh.
func NewModel(snapshot SnapshotFunc, refresh time.Duration) Model {
	if refresh <= 0 {
		refresh = 200 * time.Millisecond
	}
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	bar := progress.New(progress.WithDefaultGradient())
	return Model{
		snapshot: snapshot,
		refresh:  refresh,
		spinner:  sp,
		bar:      bar,
		width:    80,
	}
}

// NewProgram wraps the model in a tea.Program.
func NewProgram(snapshot SnapshotFunc, refresh time.Duration) *tea.Program {
	return tea.NewProgram(NewModel(snapshot, refresh))
}

// Init starts the spinner and the poll tick.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.tick())
}

func (m Model) tick() tea.Cmd {
	return tea.Tick(m.refresh, func(t time.Time) tea.Msg { return tickMsg(t) })
}

// Update handles ticks, resizes and the done signal.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" || (m.finished && msg.String() == "q") {
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.bar.Width = msg.Width - 10
		if m.bar.Width > 60 {
			m.bar.Width = 60
		}
	case tickMsg:
		m.current = m.snapshot()
		if m.finished {
			return m, nil
		}
		return m, m.tick()
	case DoneMsg:
		m.current = m.snapshot()
		m.verdict = msg.Verdict
		m.finished = true
		return m, tea.Quit
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

// View renders the progress block.
func (m Model) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("readycheck validation"))
	b.WriteString("\n\n")

	s := m.current
	if m.finished {
		b.WriteString(m.bar.ViewAs(1.0))
	} else {
		b.WriteString(m.bar.ViewAs(s.PercentComplete / 100))
	}
	fmt.Fprintf(&b, " %3.0f%%\n\n", s.PercentComplete)

	if !m.finished {
		phase := s.CurrentPhase
		if phase == "" {
			phase = "preparing"
		}
		line := m.spinner.View() + " " + phaseStyle.Render(phase)
		if s.CurrentStep != "" {
			line += dimStyle.Render(" · " + s.CurrentStep)
		}
		b.WriteString(line + "\n")
		fmt.Fprintf(&b, "%s\n", dimStyle.Render(fmt.Sprintf("steps %d/%d · elapsed %s · eta %s",
			s.CompletedSteps, s.TotalSteps,
			s.Elapsed.Round(time.Second), s.EstimatedRemaining.Round(time.Second))))
	} else if m.verdict != "" {
		b.WriteString(verdictStyle.Render(m.verdict) + "\n")
	}

	if n := len(s.Warnings); n > 0 {
		fmt.Fprintf(&b, "%s\n", warnStyle.Render(fmt.Sprintf("%d warnings", n)))
	}
	if n := len(s.Errors); n > 0 {
		fmt.Fprintf(&b, "%s\n", errStyle.Render(fmt.Sprintf("%d errors", n)))
	}
	if m.finished {
		b.WriteString(dimStyle.Render("press q to exit") + "\n")
	}
	return b.String()
}
