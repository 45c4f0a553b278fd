package tui

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/sokinpui/anchorpatch/anchorpatch"
	"github.com/sokinpui/anchorpatch/model"
)

// --- Styles ---
var (
	headerStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("63")) // Mauve
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("78"))            // Green
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("197"))           // Red
	stageStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))           // Orange
	pathStyle    = lipgloss.NewStyle()
	faintStyle   = lipgloss.NewStyle().Faint(true)
)

// --- Messages ---
type summaryMsg struct {
	model.Summary
}

type errorMsg struct{ err error }

func (e errorMsg) Error() string { return e.err.Error() }

type progressMsg struct{ done, total int }

// --- Model ---
type Model struct {
	app     *anchorpatch.App
	ctx     context.Context
	cancel  context.CancelFunc
	spinner spinner.Model
	state   state
	done    int
	total   int
	summary summaryMsg
	err     error
}

type state int

const (
	stateProcessing state = iota
	stateSummary
	stateError
)

func New(app *anchorpatch.App) *Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))
	ctx, cancel := context.WithCancel(context.Background())
	return &Model{
		app:     app,
		ctx:     ctx,
		cancel:  cancel,
		spinner: s,
		state:   stateProcessing,
	}
}

// SetProgram wires progress updates from the app into the program.
func (m *Model) SetProgram(p *tea.Program) {
	m.app.SetProgressCallback(func(done, total int) {
		p.Send(progressMsg{done: done, total: total})
	})
}

// Summary returns the result once the program has finished.
func (m *Model) Summary() (model.Summary, error) {
	return m.summary.Summary, m.err
}

func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.runApp)
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			// Files already written stay written; the rest are skipped.
			m.cancel()
			return m, nil
		}

	case progressMsg:
		m.done, m.total = msg.done, msg.total

	case summaryMsg:
		m.state = stateSummary
		m.summary = msg
		return m, tea.Quit

	case errorMsg:
		m.state = stateError
		m.err = msg.err
		return m, tea.Quit

	default:
		var cmd tea.Cmd
		if m.state == stateProcessing {
			m.spinner, cmd = m.spinner.Update(msg)
		}
		return m, cmd
	}
	return m, nil
}

func (m *Model) View() string {
	switch m.state {
	case stateProcessing:
		if m.total > 0 {
			return fmt.Sprintf("%s Patching... [%d/%d]", m.spinner.View(), m.done, m.total)
		}
		return fmt.Sprintf("%s Patching...", m.spinner.View())
	case stateError:
		return errorStyle.Render("Error: ", m.err.Error()) + "\n"
	case stateSummary:
		return m.renderSummary()
	default:
		return ""
	}
}

func (m *Model) renderSummary() string {
	var b strings.Builder
	s := m.summary

	if s.Message != "" {
		b.WriteString(headerStyle.Render(s.Message))
		b.WriteString("\n\n")
	}

	hasContent := false
	if len(s.Patched) > 0 {
		hasContent = true
		b.WriteString(successStyle.Render("Patched:"))
		b.WriteString("\n")
		for _, f := range s.Patched {
			b.WriteString(fmt.Sprintf("  %s\n", pathStyle.Render(f)))
		}
	}
	if len(s.Unchanged) > 0 {
		hasContent = true
		b.WriteString(faintStyle.Render("Unchanged:"))
		b.WriteString("\n")
		for _, f := range s.Unchanged {
			b.WriteString(fmt.Sprintf("  %s\n", pathStyle.Render(f)))
		}
	}
	if len(s.Failed) > 0 {
		hasContent = true
		b.WriteString(errorStyle.Render("Failed:"))
		b.WriteString("\n")
		for _, f := range s.Failed {
			b.WriteString(fmt.Sprintf("  %s %s\n", pathStyle.Render(f.Path), stageStyle.Render("["+f.Stage+"]")))
			b.WriteString(fmt.Sprintf("    %s\n", faintStyle.Render(f.Reason)))
		}
	}

	if !hasContent && s.Message == "" {
		b.WriteString(faintStyle.Render("Nothing to do."))
		b.WriteString("\n")
	}

	return b.String()
}

func (m *Model) runApp() tea.Msg {
	summary, err := m.app.Execute(m.ctx)
	if err != nil {
		// Check for detailed error to print stack
		if e, ok := err.(*anchorpatch.DetailedError); ok {
			// The TUI will exit, so we can print to stderr here for the stack trace.
			fmt.Fprintf(os.Stderr, "\n--- Stack Trace ---\n%s\n", e.Stack)
		}
		return errorMsg{err}
	}
	return summaryMsg{
		Summary: summary,
	}
}
