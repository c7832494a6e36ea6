package ui

import (
	"context"
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/spoti/internal/shared"
	"github.com/desertthunder/spoti/internal/tasks"
)

const (
	maxBarWidth = 60
	maxLog      = 5
	fileWidth   = 32
)

// Label is the display name of a phase.
func Label(p tasks.Phase) string {
	switch p {
	case tasks.FetchCatalog:
		return "Fetching catalog"
	case tasks.FetchFeatures:
		return "Audio features"
	case tasks.Prepare:
		return "Checking library"
	case tasks.Search:
		return "Searching"
	case tasks.Download, tasks.DownloadBytes:
		return "Downloading"
	case tasks.Convert:
		return "Converting"
	case tasks.Tag:
		return "Tagging"
	case tasks.Complete:
		return "Done"
	default:
		return "Working"
	}
}

// ProgressModel displays pipeline progress until its update channel is closed.
type ProgressModel struct {
	title   string
	updates <-chan tasks.ProgressUpdate
	cancel  context.CancelFunc
	palette *Palette
	keys    keyMap
	help    help.Model
	spinner spinner.Model
	bar     progress.Model
	bytes   progress.Model

	current   tasks.ProgressUpdate
	transfers map[string]tasks.ByteProgress
	log       []string
	details   bool
	cancelled bool
	done      bool
}

// NewProgressModel creates a model reading from updates. cancel may be nil.
func NewProgressModel(title string, updates <-chan tasks.ProgressUpdate, cancel context.CancelFunc) *ProgressModel {
	palette := DefaultPalette()
	return &ProgressModel{
		title:     title,
		updates:   updates,
		cancel:    cancel,
		palette:   palette,
		keys:      newKeyMap(),
		help:      help.New(),
		spinner:   spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(palette.title.UnsetMarginBottom())),
		bar:       progress.New(progress.WithDefaultGradient(), progress.WithWidth(40)),
		bytes:     progress.New(progress.WithSolidFill("#626262"), progress.WithWidth(20), progress.WithoutPercentage()),
		transfers: make(map[string]tasks.ByteProgress),
	}
}

// Init starts the spinner and waits for the first update.
func (m *ProgressModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.waitForProgress())
}

// Update handles incoming messages and updates the model state.
func (m *ProgressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.bar.Width = min(max(msg.Width-4, 10), maxBarWidth)
		m.help.Width = msg.Width
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.quit):
			if !m.cancelled && m.cancel != nil {
				m.cancel()
			}
			m.cancelled = true
			if m.updates == nil {
				return m, tea.Quit
			}
		case key.Matches(msg, m.keys.details):
			m.details = !m.details
		}
		return m, nil

	case spinner.TickMsg:
		if m.done {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case Msg:
		switch msg.kind {
		case MsgProgressUpdate:
			m.apply(msg.data.(tasks.ProgressUpdate))
			return m, m.waitForProgress()
		case MsgUpdatesClosed:
			m.done = true
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m *ProgressModel) apply(u tasks.ProgressUpdate) {
	if u.Phase == tasks.DownloadBytes {
		bp, ok := u.Data.(tasks.ByteProgress)
		if !ok {
			return
		}
		if bp.Total > 0 && bp.Written >= bp.Total {
			delete(m.transfers, bp.File)
		} else {
			m.transfers[bp.File] = bp
		}
		return
	}

	if u.Phase != tasks.Download {
		clear(m.transfers)
	}
	m.current = u
	if u.Message != "" {
		m.log = append(m.log, u.Message)
		if len(m.log) > maxLog {
			m.log = m.log[len(m.log)-maxLog:]
		}
	}
}

func (m *ProgressModel) waitForProgress() tea.Cmd {
	return func() tea.Msg {
		if m.updates == nil {
			return updatesClosedMsg()
		}
		update, ok := <-m.updates
		if !ok {
			return updatesClosedMsg()
		}
		return progressUpdateMsg(update)
	}
}

func fraction(u tasks.ProgressUpdate) float64 {
	if u.Total <= 0 {
		return 0
	}
	return min(float64(u.Step)/float64(u.Total), 1)
}

// View renders the current phase, its progress bar, active downloads and help.
func (m *ProgressModel) View() string {
	var b strings.Builder
	b.WriteString(m.palette.Title(m.title))
	b.WriteString("\n")

	if m.done {
		if m.current.Phase == tasks.Complete {
			b.WriteString(m.palette.OK("✓ " + m.current.Message))
		} else if m.cancelled {
			b.WriteString(m.palette.Warn("Cancelled"))
		}
		b.WriteString("\n")
		return b.String()
	}

	fmt.Fprintf(&b, "%s %s", m.spinner.View(), Label(m.current.Phase))
	if m.current.Total > 0 {
		fmt.Fprintf(&b, " %d/%d", m.current.Step, m.current.Total)
	}
	b.WriteString("\n")
	b.WriteString(m.bar.ViewAs(fraction(m.current)))
	b.WriteString("\n")

	for _, file := range slices.Sorted(maps.Keys(m.transfers)) {
		bp := m.transfers[file]
		size := shared.FormatSize(bp.Written)
		if bp.Total > 0 {
			size += " / " + shared.FormatSize(bp.Total)
		}
		fmt.Fprintf(&b, "  %s %s %s\n", shared.Truncate(file, fileWidth), m.bytes.ViewAs(bp.Fraction()), m.palette.faint.Render(size))
	}

	if m.details {
		for _, line := range m.log {
			b.WriteString(m.palette.Help("  " + line))
			b.WriteString("\n")
		}
	} else if m.current.Message != "" {
		b.WriteString(m.current.Message)
		b.WriteString("\n")
	}

	if m.cancelled {
		b.WriteString(m.palette.Warn("Cancelling, cleaning up partial downloads..."))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(m.help.ShortHelpView(m.keys.ShortHelp()))
	return b.String()
}

// Run shows the model until the update channel is closed.
func Run(m *ProgressModel, opts ...tea.ProgramOption) error {
	_, err := tea.NewProgram(m, opts...).Run()
	return err
}

// Print writes one line per update to w until updates is closed. Byte progress is skipped.
func Print(w io.Writer, updates <-chan tasks.ProgressUpdate) {
	for u := range updates {
		if u.Phase == tasks.DownloadBytes || u.Message == "" {
			continue
		}
		fmt.Fprintf(w, "%-16s %s\n", Label(u.Phase), u.Message)
	}
}
