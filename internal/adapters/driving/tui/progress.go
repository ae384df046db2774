// Package tui renders export progress in the terminal.
package tui

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/dustin/go-humanize"

	"github.com/custodia-labs/capshare/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/capshare/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/capshare/internal/core/domain"
	"github.com/custodia-labs/capshare/internal/core/ports/driven"
)

const maxBarWidth = 60

// ProgressMsg carries one progress notification into the model.
type ProgressMsg domain.ProgressUpdate

// FinishedMsg carries the export outcome into the model.
type FinishedMsg struct {
	Record *domain.ExportRecord
	Err    error
}

// ExportFunc runs one export, reporting into progress and watching cancel.
type ExportFunc func(cancel *domain.Cancellation, progress driven.ProgressReporter) (*domain.ExportRecord, error)

// Model is the bubbletea model of a single export.
type Model struct {
	title  string
	styles *styles.Styles
	keys   *keymap.KeyMap
	bar    progress.Model
	help   help.Model
	cancel *domain.Cancellation

	update     domain.ProgressUpdate
	cancelling bool
	finished   bool
	record     *domain.ExportRecord
	err        error
}

// NewModel creates a progress model for the capture named title.
func NewModel(title string, cancel *domain.Cancellation) *Model {
	s := styles.DefaultStyles()
	bar := progress.New(progress.WithGradient(string(s.Theme().Primary), string(s.Theme().Secondary)))
	bar.Width = maxBarWidth

	return &Model{
		title:  title,
		styles: s,
		keys:   keymap.DefaultKeyMap(),
		bar:    bar,
		help:   help.New(),
		cancel: cancel,
		update: domain.ProgressUpdate{State: domain.ProgressPreparing},
	}
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if key.Matches(msg, m.keys.Cancel) && !m.finished {
			m.cancel.Cancel()
			m.cancelling = true
		}
	case tea.WindowSizeMsg:
		m.bar.Width = min(max(msg.Width-4, 10), maxBarWidth)
	case ProgressMsg:
		m.update = domain.ProgressUpdate(msg)
	case FinishedMsg:
		m.finished = true
		m.record = msg.Record
		m.err = msg.Err
		return m, tea.Quit
	}
	return m, nil
}

// View implements tea.Model.
func (m *Model) View() string {
	var b strings.Builder
	b.WriteString(m.styles.Title.Render(m.title))
	b.WriteString("\n")
	b.WriteString(m.bar.ViewAs(m.update.Percent / 100))
	b.WriteString("\n")

	switch {
	case m.finished && m.err == nil:
		if m.record != nil {
			b.WriteString(m.styles.Success.Render("Exported " + m.record.Location))
		}
	case m.finished && errors.Is(m.err, domain.ErrCancelled):
		b.WriteString(m.styles.Warning.Render("Cancelled"))
	case m.finished:
		b.WriteString(m.styles.Error.Render(m.err.Error()))
	case m.cancelling:
		b.WriteString(m.styles.Warning.Render("Cancelling after the current chunk..."))
	default:
		b.WriteString(m.styles.Muted.Render(StatusLine(m.update)))
		b.WriteString("\n")
		b.WriteString(m.help.ShortHelpView(m.keys.ShortHelp()))
	}
	b.WriteString("\n")
	return b.String()
}

// Result returns the export outcome once FinishedMsg has arrived.
func (m *Model) Result() (*domain.ExportRecord, error) {
	return m.record, m.err
}

// StatusLine renders an update as one line of plain text.
func StatusLine(u domain.ProgressUpdate) string {
	line := fmt.Sprintf("%-12s %3.0f%%", u.State, u.Percent)
	if u.TotalBytes > 0 {
		line += fmt.Sprintf("  %s / %s",
			humanize.IBytes(uint64(u.BytesSent)), humanize.IBytes(uint64(u.TotalBytes)))
	}
	if u.Message != "" {
		line += "  " + u.Message
	}
	return line
}

// Run executes export on a background goroutine while rendering its
// progress. Cancel keys trigger the cancellation passed to export.
func Run(in io.Reader, out io.Writer, title string, export ExportFunc) (*domain.ExportRecord, error) {
	cancel := domain.NewCancellation()
	model := NewModel(title, cancel)
	program := tea.NewProgram(model, tea.WithInput(in), tea.WithOutput(out))

	go func() {
		reporter := driven.ProgressFunc(func(u domain.ProgressUpdate) {
			program.Send(ProgressMsg(u))
		})
		record, err := export(cancel, reporter)
		program.Send(FinishedMsg{Record: record, Err: err})
	}()

	if _, err := program.Run(); err != nil {
		cancel.Cancel()
		return nil, fmt.Errorf("progress view: %w", err)
	}
	return model.Result()
}
