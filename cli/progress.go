// cli/progress.go

package cli

import (
	"context"
	"fmt"
	"io"
	"path/filepath"

	"RekordPdbPatcher/converter"
	"RekordPdbPatcher/pipeline"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

type (
	snapshotMsg converter.Snapshot
	doneMsg     struct{}
)

type runResult struct {
	report *pipeline.Report
	err    error
}

// progressModel renders the conversion progress fed by the pipeline tracker
type progressModel struct {
	bar         progress.Model
	snap        converter.Snapshot
	status      string
	cancel      context.CancelFunc
	interrupted bool
	quitting    bool
	statusStyle lipgloss.Style
	failStyle   lipgloss.Style
}

func newProgressModel(cancel context.CancelFunc) progressModel {
	return progressModel{
		bar:         progress.New(progress.WithDefaultGradient()),
		cancel:      cancel,
		status:      "Scanning device...",
		statusStyle: lipgloss.NewStyle().Foreground(lipgloss.Color("212")),
		failStyle:   lipgloss.NewStyle().Foreground(lipgloss.Color("9")),
	}
}

func (m progressModel) Init() tea.Cmd {
	return nil
}

func (m progressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" || msg.String() == "q" {
			// keep running until the pipeline has unwound and cleaned up
			if !m.interrupted {
				m.interrupted = true
				m.status = "Cancelling, waiting for running encoders to stop..."
				m.cancel()
			}
		}
		return m, nil

	case tea.WindowSizeMsg:
		m.bar.Width = msg.Width - 4
		if m.bar.Width > 80 {
			m.bar.Width = 80
		}
		return m, nil

	case snapshotMsg:
		m.snap = converter.Snapshot(msg)
		if !m.interrupted {
			m.status = describe(m.snap.Last)
		}
		return m, m.bar.SetPercent(m.snap.Fraction())

	case doneMsg:
		m.quitting = true
		return m, tea.Quit

	case progress.FrameMsg:
		bar, cmd := m.bar.Update(msg)
		m.bar = bar.(progress.Model)
		return m, cmd
	}
	return m, nil
}

func (m progressModel) View() string {
	if m.quitting {
		return ""
	}

	s := "\n"
	if m.snap.Total > 0 {
		s += fmt.Sprintf("Converting %d/%d", m.snap.Done(), m.snap.Total)
		if failed := m.snap.EncodeFailed + m.snap.CopyFailed; failed > 0 {
			s += " " + m.failStyle.Render(fmt.Sprintf("(%d failed)", failed))
		}
		s += "\n"
	}
	s += m.bar.View() + "\n\n"
	s += m.statusStyle.Render(m.status) + "\n"
	return s
}

func describe(r converter.Result) string {
	name := filepath.Base(r.Task.File.Path)
	switch {
	case r.Stage == converter.StageCopyBack && r.Success:
		return "Copied back " + filepath.Base(r.OutputPath)
	case r.Success:
		return "Converted " + name
	default:
		return "Failed " + name
	}
}

// runWithProgress runs the pipeline while a bubbletea program draws its progress.
// Ctrl+C cancels the run; the program exits once the pipeline has returned.
func runWithProgress(ctx context.Context, p *pipeline.Pipeline, out io.Writer) (*pipeline.Report, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	prog := tea.NewProgram(newProgressModel(cancel), tea.WithOutput(out))
	p.Observer = func(s converter.Snapshot) {
		prog.Send(snapshotMsg(s))
	}

	results := make(chan runResult, 1)
	go func() {
		report, err := p.Run(ctx)
		results <- runResult{report: report, err: err}
		prog.Send(doneMsg{})
	}()

	if _, err := prog.Run(); err != nil {
		p.Logger.Warning("Progress display failed: %v", err)
	}
	res := <-results
	return res.report, res.err
}

// lineObserver prints one line per finished task
func lineObserver(out io.Writer) func(converter.Snapshot) {
	return func(s converter.Snapshot) {
		line := describe(s.Last)
		if !s.Last.Success && s.Last.Err != nil {
			line += ": " + s.Last.Err.Error()
		}
		fmt.Fprintf(out, "[%d/%d] %s\n", s.Done(), s.Total, line)
	}
}
